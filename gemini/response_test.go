package gemini

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestWriteResponseSuccess(t *testing.T) {
	var buf bytes.Buffer
	resp := &Response{
		Status: StatusSuccess,
		Meta:   "text/gemini",
		Body:   io.NopCloser(strings.NewReader("# Hello\n")),
	}

	if err := WriteResponse(&buf, resp); err != nil {
		t.Fatalf("WriteResponse returned error: %v", err)
	}
	want := "20 text/gemini\r\n# Hello\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteResponseNoBodyForFailures(t *testing.T) {
	// A body attached to a non-success response must never reach the wire.
	var buf bytes.Buffer
	resp := &Response{
		Status: StatusNotFound,
		Meta:   "not found",
		Body:   io.NopCloser(strings.NewReader("should not appear")),
	}

	if err := WriteResponse(&buf, resp); err != nil {
		t.Fatalf("WriteResponse returned error: %v", err)
	}
	if got, want := buf.String(), "51 not found\r\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteResponseSanitizesMeta(t *testing.T) {
	var buf bytes.Buffer
	resp := &Response{Status: StatusRedirectPermanent, Meta: "evil\r\ninjection"}

	if err := WriteResponse(&buf, resp); err != nil {
		t.Fatalf("WriteResponse returned error: %v", err)
	}
	if got, want := buf.String(), "31 evil  injection\r\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteResponseTruncatesLongMeta(t *testing.T) {
	var buf bytes.Buffer
	resp := &Response{Status: StatusNotFound, Meta: strings.Repeat("a", MetaMaxLength+100)}

	if err := WriteResponse(&buf, resp); err != nil {
		t.Fatalf("WriteResponse returned error: %v", err)
	}
	if got, want := len(buf.String()), 2+1+MetaMaxLength+2; got != want {
		t.Errorf("header is %d bytes, want %d", got, want)
	}
}

func TestWriteResponseTruncatesMetaOnRuneBoundary(t *testing.T) {
	// Place a multi-byte rune so the byte limit falls inside it; the cut
	// must back up to the rune's start instead of emitting a partial one.
	var buf bytes.Buffer
	meta := strings.Repeat("a", MetaMaxLength-1) + "é" + "tail"
	resp := &Response{Status: StatusNotFound, Meta: meta}

	if err := WriteResponse(&buf, resp); err != nil {
		t.Fatalf("WriteResponse returned error: %v", err)
	}
	line := strings.TrimSuffix(strings.TrimPrefix(buf.String(), "51 "), "\r\n")
	if !utf8.ValidString(line) {
		t.Errorf("truncated meta is not valid UTF-8: %q", line[len(line)-4:])
	}
	if got, want := line, strings.Repeat("a", MetaMaxLength-1); got != want {
		t.Errorf("got %d-byte meta ending %q, want the rune dropped entirely", len(got), got[len(got)-4:])
	}
}

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse(Error{Err: io.ErrUnexpectedEOF, Status: StatusBadRequest})
	if resp.Status != StatusBadRequest {
		t.Errorf("got status %d, want %d", resp.Status, StatusBadRequest)
	}

	resp = ErrorResponse(io.ErrUnexpectedEOF)
	if resp.Status != StatusTemporaryFailure {
		t.Errorf("got status %d, want %d", resp.Status, StatusTemporaryFailure)
	}
}
