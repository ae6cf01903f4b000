package gemini

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
)

// MaxRequestBytes is the maximum size of a request line, CRLF terminator
// included.
const MaxRequestBytes = 1024

// ErrRequestTooLong is returned when a request line exceeds MaxRequestBytes
// before its CRLF terminator arrives. No further bytes are read once the
// ceiling is hit.
var ErrRequestTooLong = errors.New("gemini: request line exceeds 1024 bytes")

// ErrMalformedRequest is returned when the request line cannot be parsed as
// an absolute gemini URL.
var ErrMalformedRequest = errors.New("gemini: malformed request")

// ClientIdentity describes the certificate a client presented during the TLS
// handshake. A nil ClientIdentity is the normal state for anonymous requests.
type ClientIdentity struct {
	// Fingerprint is the SHA-256 digest of the raw certificate, hex encoded.
	Fingerprint string
	// Subject is the certificate subject's common name, if any.
	Subject string
}

// Request contains the data of a single client request.
type Request struct {
	URL        *url.URL
	RemoteAddr net.Addr
	// Identity is the client certificate presented during the handshake,
	// or nil when none was.
	Identity *ClientIdentity
}

// ReadRequest reads exactly one request line from r and parses it. The
// protocol is strictly one request per connection, so nothing past the CRLF
// terminator is ever read.
//
// Oversized lines yield ErrRequestTooLong; lines that do not parse as an
// absolute gemini URL yield an error wrapping ErrMalformedRequest. Transport
// failures are returned as-is.
func ReadRequest(r io.Reader) (*Request, error) {
	line, err := readRequestLine(r)
	if err != nil {
		return nil, err
	}

	u, err := parseRequestURL(string(line))
	if err != nil {
		return nil, err
	}

	return &Request{URL: u}, nil
}

func readRequestLine(r io.Reader) ([]byte, error) {
	var line []byte
	delim := []byte("\r\n")
	// A small buffer is inefficient but the maximum length of the line is small so it's okay
	buf := make([]byte, 1)

	for {
		n, err := r.Read(buf)
		if err == io.EOF && n <= 0 {
			return nil, fmt.Errorf("%w: connection closed before CRLF", ErrMalformedRequest)
		} else if err != nil && err != io.EOF {
			return nil, err
		}

		line = append(line, buf[:n]...)
		if bytes.HasSuffix(line, delim) {
			return line[:len(line)-len(delim)], nil
		}
		if len(line) >= MaxRequestBytes {
			return nil, ErrRequestTooLong
		}
	}
}

func parseRequestURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: URL is not absolute: %s", ErrMalformedRequest, raw)
	}
	if u.Scheme != "gemini" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedRequest, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: URL has no host: %s", ErrMalformedRequest, raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}
