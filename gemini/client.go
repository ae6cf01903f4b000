package gemini

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// responseHeaderLimit is the longest legal response header: two status
// digits, a space, the meta string, CRLF.
const responseHeaderLimit = 2 + 1 + MetaMaxLength + 2

type header struct {
	status int
	meta   string
}

// Client fetches resources from Gemini servers. Its checks mirror the
// trust-on-first-use model: self-signed certificates are accepted, but
// hostname and validity window are still verified unless disabled.
type Client struct {
	// NoTimeCheck allows connections with expired or future certs if set to true.
	NoTimeCheck bool
	// NoHostnameCheck allows connections when the cert doesn't match the
	// requested hostname or IP.
	NoHostnameCheck bool
	// AllowInvalidStatuses means the client won't raise an error if a status
	// that is out of spec is returned.
	AllowInvalidStatuses bool
	// Insecure disables all TLS-based checks, use with caution.
	// It overrides all the variables above.
	Insecure bool
	// Certificate is the optional client certificate to present, for
	// resources that answer with the certificate-required status class.
	Certificate *tls.Certificate
	// Timeout is equivalent to the Timeout field in net.Dialer.
	// It's the time it takes to form the initial connection.
	// The timeout of the DefaultClient is 15 seconds.
	Timeout time.Duration
}

var DefaultClient = &Client{Timeout: 15 * time.Second}

// Fetch a resource from a Gemini server with the given URL.
// It assumes port 1965 if no port is specified.
func (c *Client) Fetch(rawURL string) (*Response, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	host := parsedURL.Host
	if parsedURL.Port() == "" {
		host = net.JoinHostPort(parsedURL.Hostname(), "1965")
	}
	return c.FetchWithHost(host, rawURL)
}

// FetchWithHost fetches a resource from a Gemini server at the given host,
// with the given URL. This can be used for proxying, where the URL host and
// actual server don't match. It assumes the host is using port 1965 if no
// port number is provided.
func (c *Client) FetchWithHost(host, rawURL string) (*Response, error) {
	if len(rawURL)+2 > MaxRequestBytes {
		// Out of spec
		return nil, fmt.Errorf("url is too long")
	}

	// Add port to host if needed
	if _, _, err := net.SplitHostPort(host); err != nil {
		// Error likely means there's no port in the host
		host = net.JoinHostPort(host, "1965")
	}

	conn, err := c.connect(host)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the server: %w", err)
	}

	if err := sendRequest(conn, rawURL); err != nil {
		conn.Close()
		return nil, err
	}

	res, err := getResponse(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if !c.AllowInvalidStatuses && !IsStatusValid(res.Status) {
		conn.Close()
		return nil, fmt.Errorf("invalid status code: %v", res.Status)
	}

	return res, nil
}

// Fetch a resource from a Gemini server with the default client.
func Fetch(url string) (*Response, error) {
	return DefaultClient.Fetch(url)
}

func (c *Client) connect(host string) (*tls.Conn, error) {
	conf := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, // This must be set to allow self-signed certs
	}
	if c.Certificate != nil {
		conf.Certificates = []tls.Certificate{*c.Certificate}
	}

	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: c.Timeout}, "tcp", host, conf)
	if err != nil {
		return nil, err
	}

	if c.Insecure {
		return conn, nil
	}

	cert := conn.ConnectionState().PeerCertificates[0]

	// Verify hostname
	if !c.NoHostnameCheck {
		// Cert hostname has to match connection host, not request host
		hostname, _, _ := net.SplitHostPort(host)
		if cert.Subject.CommonName != hostname && cert.VerifyHostname(hostname) != nil {
			conn.Close()
			return nil, fmt.Errorf("hostname does not verify")
		}
	}
	// Verify expiry
	if !c.NoTimeCheck {
		if cert.NotBefore.After(time.Now()) {
			conn.Close()
			return nil, fmt.Errorf("server cert is for the future")
		} else if cert.NotAfter.Before(time.Now()) {
			conn.Close()
			return nil, fmt.Errorf("server cert is expired")
		}
	}

	return conn, nil
}

func sendRequest(conn io.Writer, requestURL string) error {
	_, err := fmt.Fprintf(conn, "%s\r\n", requestURL)
	if err != nil {
		return fmt.Errorf("could not send request to the server: %w", err)
	}
	return nil
}

func getResponse(conn io.ReadCloser) (*Response, error) {
	h, err := getHeader(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to get header: %w", err)
	}

	return &Response{Status: h.status, Meta: h.meta, Body: conn}, nil
}

func getHeader(conn io.Reader) (header, error) {
	line, err := readHeaderLine(conn)
	if err != nil {
		return header{}, fmt.Errorf("failed to read header: %w", err)
	}

	if len(line) == 0 {
		return header{}, fmt.Errorf("empty header")
	}

	fields := strings.Fields(string(line))
	if len(fields) == 0 || (len(fields) < 2 && line[len(line)-1] != ' ') {
		return header{}, fmt.Errorf("header not formatted correctly")
	}

	status, err := strconv.Atoi(fields[0])
	if err != nil {
		return header{}, fmt.Errorf("unexpected status value %v: %v", fields[0], err)
	}

	var meta string
	if len(line) > len(fields[0])+1 {
		meta = string(line)[len(fields[0])+1:]
	}
	if len(meta) > MetaMaxLength {
		return header{}, fmt.Errorf("meta string is too long")
	}

	return header{status, meta}, nil
}

func readHeaderLine(conn io.Reader) ([]byte, error) {
	var line []byte
	delim := []byte("\r\n")
	// A small buffer is inefficient but the maximum length of the header is small so it's okay
	buf := make([]byte, 1)

	for {
		n, err := conn.Read(buf)
		if err == io.EOF && n <= 0 {
			return nil, err
		} else if err != nil && err != io.EOF {
			return nil, err
		}

		line = append(line, buf[:n]...)
		if bytes.HasSuffix(line, delim) {
			return line[:len(line)-len(delim)], nil
		}
		if len(line) >= responseHeaderLimit {
			return nil, fmt.Errorf("header exceeds %d bytes", responseHeaderLimit)
		}
	}
}
