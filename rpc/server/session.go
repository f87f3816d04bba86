package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ValentinKolb/dRec/lib/repo"
	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/ValentinKolb/dRec/rpc/serializer"
	"github.com/ValentinKolb/dRec/rpc/transport/base"
	"github.com/segmentio/ksuid"
)

// session owns one accepted connection and runs the
// read, decode, dispatch, encode, write loop until the conversation ends
type session struct {
	id         ksuid.KSUID
	conn       net.Conn
	scanner    *bufio.Scanner
	writer     *bufio.Writer
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter
	repository repo.IRepository
	config     common.ServerConfig
	metrics    *serverMetrics
}

func newSession(
	conn net.Conn,
	config common.ServerConfig,
	serializer serializer.IRPCSerializer,
	adapter IRPCServerAdapter,
	repository repo.IRepository,
	metrics *serverMetrics,
) *session {
	maxLine := config.MaxLineBytes
	if maxLine <= 0 {
		maxLine = 1 << 20
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, min(4096, maxLine)), maxLine)

	return &session{
		id:         ksuid.New(),
		conn:       conn,
		scanner:    scanner,
		writer:     bufio.NewWriter(conn),
		serializer: serializer,
		adapter:    adapter,
		repository: repository,
		config:     config,
		metrics:    metrics,
	}
}

// serve runs the session loop. The connection is always closed on return.
func (s *session) serve() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer s.close()

	s.metrics.sessionOpened()
	defer s.metrics.sessionClosed()
	Logger.Debugf("[%s] Session started for %s", s.id, s.conn.RemoteAddr())

	requests := 0
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		requests++

		req, err := s.serializer.DecodeRequest(line)
		if err != nil {
			Logger.Warningf("[%s] Closing session after undecodable request: %v", s.id, err)
			s.fail(common.CodeServerError, fmt.Sprintf("cannot decode request: %v", err))
			return
		}

		start := time.Now()
		resp, quit := s.adapter.Handle(ctx, req, s.repository)
		s.metrics.observe(common.ParseAction(req.Action), resp, start)
		Logger.Debugf("[%s] %s -> %s %s (%s)", s.id, req.Action, resp.Status, resp.Code, time.Since(start))

		if err := s.write(resp); err != nil {
			Logger.Warningf("[%s] Failed to write response: %v", s.id, err)
			return
		}
		if quit {
			Logger.Debugf("[%s] Client quit after %d request(s)", s.id, requests)
			return
		}
	}

	err := s.scanner.Err()
	switch {
	case err == nil:
		Logger.Debugf("[%s] Client closed the connection after %d request(s)", s.id, requests)
	case base.IsTimeout(err):
		Logger.Infof("[%s] Closing idle connection from %s", s.id, s.conn.RemoteAddr())
		s.fail(common.CodeTimeout, fmt.Sprintf("no request received for %v", s.config.IdleTimeout))
	case errors.Is(err, bufio.ErrTooLong):
		Logger.Warningf("[%s] Closing session, request exceeds %d bytes", s.id, s.config.MaxLineBytes)
		s.fail(common.CodeServerError, fmt.Sprintf("request exceeds %d bytes", s.config.MaxLineBytes))
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrUnexpectedEOF):
		Logger.Debugf("[%s] Connection closed: %v", s.id, err)
	default:
		Logger.Warningf("[%s] Read failed: %v", s.id, err)
		s.fail(common.CodeServerError, "read failed")
	}
}

// write encodes one response, terminates the line and flushes it
func (s *session) write(resp *common.Response) error {
	out, err := s.serializer.EncodeResponse(resp)
	if err != nil {
		Logger.Errorf("[%s] Failed to encode response: %v", s.id, err)
		out, err = s.serializer.EncodeResponse(common.NewErrorResponse(common.CodeServerError, "cannot encode response"))
		if err != nil {
			return err
		}
	}

	if s.config.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
			return err
		}
	}
	if _, err := s.writer.Write(out); err != nil {
		return err
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return err
	}
	return s.writer.Flush()
}

// fail sends a final error response, best effort
func (s *session) fail(code common.ErrorCode, message string) {
	s.metrics.countError(code)
	if err := s.write(common.NewErrorResponse(code, message)); err != nil {
		Logger.Debugf("[%s] Could not deliver %s response: %v", s.id, code, err)
	}
}

func (s *session) close() {
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		Logger.Debugf("[%s] Close failed: %v", s.id, err)
	}
}
