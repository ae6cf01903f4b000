package gemini

import (
	"errors"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

// sessionState is the per-connection protocol state. A session walks
// awaitingRequest → resolving → responding → closed; any I/O failure drops it
// into errored, which is absorbing.
type sessionState int

const (
	stateAwaitingRequest sessionState = iota
	stateResolving
	stateResponding
	stateClosed
	stateErrored
)

func (s sessionState) String() string {
	switch s {
	case stateAwaitingRequest:
		return "awaiting-request"
	case stateResolving:
		return "resolving"
	case stateResponding:
		return "responding"
	case stateClosed:
		return "closed"
	case stateErrored:
		return "errored"
	}
	return "unknown"
}

func (s sessionState) terminal() bool {
	return s == stateClosed || s == stateErrored
}

// session drives one connection through the protocol. Each transition is a
// single step call, so the state graph is testable without a real listener.
type session struct {
	conn    net.Conn
	handler Handler
	logger  *zap.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration

	state    sessionState
	identity *ClientIdentity
	req      *Request
	resp     *Response
}

func (s *session) run() {
	for !s.state.terminal() {
		s.state = s.step()
	}
}

func (s *session) step() sessionState {
	switch s.state {
	case stateAwaitingRequest:
		return s.awaitRequest()
	case stateResolving:
		return s.resolve()
	case stateResponding:
		return s.respond()
	}
	return s.state
}

// awaitRequest reads and parses the request line. Parse failures still get a
// best-effort status line; transport failures do not.
func (s *session) awaitRequest() sessionState {
	if s.readTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}

	req, err := ReadRequest(s.conn)
	if err != nil {
		// A terminator that never arrives is a malformed request too; the
		// stream may still be writable, so try to say so.
		if errors.Is(err, ErrRequestTooLong) || errors.Is(err, ErrMalformedRequest) ||
			errors.Is(err, os.ErrDeadlineExceeded) {
			s.logger.Debug("rejecting request", zap.Error(err))
			s.resp = &Response{Status: StatusBadRequest, Meta: "bad request"}
			return stateResponding
		}
		s.logger.Debug("failed to read request", zap.Error(err))
		return stateErrored
	}

	req.RemoteAddr = s.conn.RemoteAddr()
	req.Identity = s.identity
	s.req = req
	return stateResolving
}

// resolve hands the request to the handler. Resolution always produces some
// response; a handler returning nil is treated as a temporary failure rather
// than failing the session.
func (s *session) resolve() sessionState {
	resp := s.handler.Handle(s.req)
	if resp == nil {
		resp = &Response{Status: StatusTemporaryFailure, Meta: "no response"}
	}
	s.resp = resp
	return stateResponding
}

func (s *session) respond() sessionState {
	if s.resp.Body != nil {
		defer s.resp.Body.Close()
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}

	if err := WriteResponse(s.conn, s.resp); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
		return stateErrored
	}

	url := ""
	if s.req != nil {
		url = s.req.URL.String()
	}
	s.logger.Info("request served",
		zap.String("url", url),
		zap.Int("status", s.resp.Status),
		zap.String("meta", s.resp.Meta),
	)
	return stateClosed
}
