package gemini

import (
	"crypto/tls"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultReadTimeout bounds the TLS handshake plus the request-line read.
	DefaultReadTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds the response write. Bodies are served from
	// a local content root, so a stalled write means a stalled client.
	DefaultWriteTimeout = 1 * time.Minute
	// DefaultMaxConnections bounds concurrently active sessions.
	DefaultMaxConnections = 256
)

// Handler is the interface a struct need to implement to be able to handle Gemini requests.
type Handler interface {
	Handle(r *Request) *Response
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(r *Request) *Response

// Handle calls f(r).
func (f HandlerFunc) Handle(r *Request) *Response {
	return f(r)
}

// Server serves Gemini requests over TLS. The zero value is not usable; at
// minimum Identity and Handler must be set. All fields are read-only once the
// server starts accepting connections.
type Server struct {
	// Addr is the TCP address to listen on. Defaults to ":1965".
	Addr string

	// Identity is the server's TLS key material.
	Identity *Identity

	// Handler resolves requests into responses.
	Handler Handler

	// Logger receives connection diagnostics. Defaults to a nop logger.
	Logger *zap.Logger

	// ReadTimeout bounds the handshake and request-line read.
	// WriteTimeout bounds the response write. Zero selects the defaults;
	// a negative value disables the timeout.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxConnections bounds concurrently active sessions. Connections
	// beyond the bound are closed before the handshake completes.
	MaxConnections int
}

// ListenAndServe binds the configured TCP address and serves connections
// until the listener fails. Each connection is handled in its own goroutine.
func (srv *Server) ListenAndServe() error {
	addr := srv.Addr
	if addr == "" {
		addr = ":1965"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	return srv.Serve(ln)
}

// Serve accepts connections from ln, wrapping each in TLS using the server's
// identity. It returns when the listener is closed.
func (srv *Server) Serve(ln net.Listener) error {
	logger := srv.logger()
	sem := make(chan struct{}, srv.maxConnections())
	tlsConfig := srv.tlsConfig()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warn("failed to accept connection", zap.Error(err))
			continue
		}

		select {
		case sem <- struct{}{}:
		default:
			// At the bound new connections are dropped before any TLS
			// handshake; the client sees a plain connection reset.
			logger.Debug("connection limit reached, dropping connection",
				zap.Stringer("remote", conn.RemoteAddr()))
			conn.Close()
			continue
		}

		go func(conn net.Conn) {
			defer func() { <-sem }()
			srv.handleConn(tls.Server(conn, tlsConfig), logger)
		}(conn)
	}
}

func (srv *Server) handleConn(conn *tls.Conn, logger *zap.Logger) {
	defer conn.Close()

	readTimeout := timeout(srv.ReadTimeout, DefaultReadTimeout)
	if readTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(readTimeout))
	}
	if err := conn.Handshake(); err != nil {
		// Handshake failures are routine (scanners, TLS version probes)
		// and never escalated.
		logger.Debug("TLS handshake failed",
			zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
		return
	}

	s := &session{
		conn:         conn,
		handler:      srv.Handler,
		logger:       logger,
		readTimeout:  readTimeout,
		writeTimeout: timeout(srv.WriteTimeout, DefaultWriteTimeout),
		state:        stateAwaitingRequest,
		identity:     peerIdentity(conn),
	}
	s.run()
}

// peerIdentity extracts the client certificate fingerprint from a completed
// handshake. Certificates are accepted unconditionally at the TLS layer;
// policy decisions belong to the resolver.
func peerIdentity(conn *tls.Conn) *ClientIdentity {
	peers := conn.ConnectionState().PeerCertificates
	if len(peers) == 0 {
		return nil
	}
	return &ClientIdentity{
		Fingerprint: CertificateFingerprint(peers[0]),
		Subject:     peers[0].Subject.CommonName,
	}
}

func (srv *Server) tlsConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{srv.Identity.Certificate()},
		MinVersion:   tls.VersionTLS12,
		// Request, never require: absence of a client certificate is a
		// valid state, and per-path policy is the resolver's business.
		ClientAuth: tls.RequestClientCert,
	}
}

func (srv *Server) logger() *zap.Logger {
	if srv.Logger == nil {
		return zap.NewNop()
	}
	return srv.Logger
}

func (srv *Server) maxConnections() int {
	if srv.MaxConnections <= 0 {
		return DefaultMaxConnections
	}
	return srv.MaxConnections
}

func timeout(configured, fallback time.Duration) time.Duration {
	if configured == 0 {
		return fallback
	}
	if configured < 0 {
		return 0
	}
	return configured
}
