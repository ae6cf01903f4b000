package gemini

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// MetaMaxLength is the maximum length of a response meta string.
const MetaMaxLength = 1024

// Response represents a response sent to (or received from) a Gemini client.
type Response struct {
	Status int
	// Meta is the MIME type for success responses, the target for
	// redirects, and a human-readable message otherwise.
	Meta string
	// Body is the response payload. Only success responses carry one;
	// it is ignored for every other status class.
	Body io.ReadCloser
}

// WriteResponse serializes a response to w: the header line, then the body
// iff the status class is success. There is no body framing; closing the
// stream signals end-of-body.
func WriteResponse(w io.Writer, resp *Response) error {
	meta := resp.Meta
	if len(meta) > MetaMaxLength {
		cut := MetaMaxLength
		// Don't cut in the middle of a multi-byte rune.
		for cut > 0 && !utf8.RuneStart(meta[cut]) {
			cut--
		}
		meta = meta[:cut]
	}
	// Meta must not break the header line.
	meta = strings.ReplaceAll(meta, "\r", " ")
	meta = strings.ReplaceAll(meta, "\n", " ")

	if _, err := fmt.Fprintf(w, "%d %s\r\n", resp.Status, meta); err != nil {
		return fmt.Errorf("failed to write header line to the client: %w", err)
	}

	if SimplifyStatus(resp.Status) != StatusSuccess || resp.Body == nil {
		return nil
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to write the response body to the client: %w", err)
	}
	return nil
}

// ErrorResponse create a response from the given error with the error string as the Meta field.
// If the error is of type gemini.Error, the status will be taken from the status field,
// otherwise it will default to StatusTemporaryFailure.
// If the error is nil, the function will panic.
func ErrorResponse(err error) *Response {
	if err == nil {
		panic("nil error is not a valid parameter")
	}

	if ge, ok := err.(Error); ok {
		return &Response{Status: ge.Status, Meta: ge.Err.Error()}
	}

	return &Response{Status: StatusTemporaryFailure, Meta: err.Error()}
}
