// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package websocket

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/roomcast/internal/auth"
	"github.com/tomtom215/roomcast/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

var errConnClosed = errors.New("use of closed network connection")

// fakeConn is an in-memory Conn. Frames pushed to inbound are returned by
// ReadMessage; closing inbound simulates a client close frame.
type fakeConn struct {
	inbound chan []byte
	writes  chan []byte

	mu         sync.Mutex
	closeCodes []int
	readLimit  int64
	closed     bool
	closedCh   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound:  make(chan []byte, 16),
		writes:   make(chan []byte, 64),
		closedCh: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-c.inbound:
		if !ok {
			return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
		}
		return websocket.TextMessage, data, nil
	case <-c.closedCh:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errConnClosed
	}
	if messageType == websocket.TextMessage {
		c.writes <- append([]byte(nil), data...)
	}
	return nil
}

func (c *fakeConn) WriteControl(messageType int, data []byte, _ time.Time) error {
	if messageType == websocket.CloseMessage && len(data) >= 2 {
		c.mu.Lock()
		c.closeCodes = append(c.closeCodes, int(binary.BigEndian.Uint16(data[:2])))
		c.mu.Unlock()
	}
	return nil
}

func (c *fakeConn) SetReadLimit(limit int64) {
	c.mu.Lock()
	c.readLimit = limit
	c.mu.Unlock()
}

func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closedCh)
	}
	return nil
}

func (c *fakeConn) CloseCodes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.closeCodes...)
}

// nextWrite waits for the next text frame written to the connection.
func (c *fakeConn) nextWrite(t *testing.T) string {
	t.Helper()
	select {
	case data := <-c.writes:
		return string(data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a written frame")
		return ""
	}
}

// fakeAcceptor records which side of the handshake was taken.
type fakeAcceptor struct {
	conn      *fakeConn
	acceptErr error

	accepted bool
	rejected error
}

func (a *fakeAcceptor) Accept() (Conn, error) {
	if a.acceptErr != nil {
		return nil, a.acceptErr
	}
	a.accepted = true
	return a.conn, nil
}

func (a *fakeAcceptor) Reject(err error) {
	a.rejected = err
}

// recordingHandle collects delivered envelopes.
type recordingHandle struct {
	id  string
	err error

	mu   sync.Mutex
	envs []Envelope
}

func (h *recordingHandle) ID() string { return h.id }

func (h *recordingHandle) Deliver(_ context.Context, env Envelope) error {
	if h.err != nil {
		return h.err
	}
	h.mu.Lock()
	h.envs = append(h.envs, env)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandle) Received() []Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Envelope(nil), h.envs...)
}

// staticAuthorizer allows or denies every join.
type staticAuthorizer struct {
	allow bool
	err   error
}

func (a staticAuthorizer) CanJoin(*auth.AuthSubject, string) (bool, error) {
	return a.allow, a.err
}

func subject(name string) *auth.AuthSubject {
	return &auth.AuthSubject{ID: name, Username: name, Roles: []string{"user"}}
}

func testSessionConfig() SessionConfig {
	cfg := DefaultSessionConfig()
	cfg.DeliveryTimeout = 50 * time.Millisecond
	cfg.RatePerSecond = 0
	return cfg
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}
