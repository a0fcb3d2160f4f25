// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeRelay records published payloads.
type fakeRelay struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (r *fakeRelay) Publish(_ context.Context, _ string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, data)
	return nil
}

func (r *fakeRelay) Sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.sent...)
}

// upgradeAcceptor performs a real gorilla upgrade.
type upgradeAcceptor struct {
	w        http.ResponseWriter
	r        *http.Request
	upgrader *websocket.Upgrader
}

func (a upgradeAcceptor) Accept() (Conn, error) {
	conn, err := a.upgrader.Upgrade(a.w, a.r, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (a upgradeAcceptor) Reject(err error) {
	http.Error(a.w, err.Error(), http.StatusForbidden)
}

// newTestServer serves /ws/call/{room}?user=<name> backed by hub.
func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := &websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		room := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws/call/"), "/")
		sess := hub.NewSession()
		if err := sess.Admit(subject(r.URL.Query().Get("user")), room, upgradeAcceptor{w: w, r: r, upgrader: upgrader}); err != nil {
			return
		}
		_ = sess.Serve(context.Background())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, room, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/call/" + room + "/?user=" + user
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial %s as %s: %v", room, user, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return string(data)
}

func TestHub_EndToEndRoomIsolation(t *testing.T) {
	hub := NewHub(testSessionConfig())
	srv := newTestServer(t, hub)

	alice := dial(t, srv, "lobby", "alice")
	bob := dial(t, srv, "lobby", "bob")
	carol := dial(t, srv, "other", "carol")
	eventually(t, func() bool {
		return hub.Registry().Count("chat_lobby") == 2 && hub.Registry().Count("chat_other") == 1
	}, "all clients joined")

	if err := alice.WriteMessage(websocket.TextMessage, []byte(`{"message":"hi"}`)); err != nil {
		t.Fatal(err)
	}

	want := `{"message":"hi","user":"alice"}`
	if got := readFrame(t, alice); got != want {
		t.Errorf("alice received %s, want %s", got, want)
	}
	if got := readFrame(t, bob); got != want {
		t.Errorf("bob received %s, want %s", got, want)
	}

	_ = carol.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, data, err := carol.ReadMessage(); err == nil {
		t.Errorf("carol in another room received %s", data)
	}

	groups := hub.Groups()
	if len(groups) != 2 || groups[0].Key != "chat_lobby" || groups[0].Members != 2 {
		t.Errorf("Groups() = %+v", groups)
	}

	// Disconnect removes the session from its group.
	_ = bob.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = bob.Close()
	eventually(t, func() bool { return hub.Registry().Count("chat_lobby") == 1 }, "bob removed from lobby")

	if err := alice.WriteMessage(websocket.TextMessage, []byte(`{"message":"anyone?"}`)); err != nil {
		t.Fatal(err)
	}
	if got := readFrame(t, alice); got != `{"message":"anyone?","user":"alice"}` {
		t.Errorf("alice received %s", got)
	}
}

func TestHub_UnauthenticatedHandshakeRefused(t *testing.T) {
	hub := NewHub(testSessionConfig())
	srv := newTestServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/call/lobby/"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial without identity succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	eventually(t, func() bool { return hub.SessionCount() == 0 }, "refused session forgotten")
}

func TestHub_PublishAndRelay(t *testing.T) {
	relay := &fakeRelay{}
	hub := NewHub(testSessionConfig(), WithRelay(relay))
	member := &recordingHandle{id: "m1"}
	hub.Registry().Join(hub.GroupKey("lobby"), member)

	report, err := hub.Publish(context.Background(), "lobby", "system", "maintenance at noon")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if report.Group != "chat_lobby" || report.Delivered != 1 {
		t.Errorf("report = %+v", report)
	}
	if got := member.Received(); len(got) != 1 || got[0].User != "system" {
		t.Errorf("member received %+v", got)
	}

	sent := relay.Sent()
	if len(sent) != 1 {
		t.Fatalf("relay published %d messages, want 1", len(sent))
	}
	msg, err := DecodeRelayMessage(sent[0])
	if err != nil {
		t.Fatal(err)
	}
	if msg.Origin != hub.NodeID() || msg.Group != "chat_lobby" {
		t.Errorf("relay message = %+v", msg)
	}

	if _, err := hub.Publish(context.Background(), "bad room", "system", "x"); !errors.Is(err, ErrInvalidRoom) {
		t.Errorf("Publish() to invalid room error = %v", err)
	}
}

func TestHub_RelayFailureDoesNotFailBroadcast(t *testing.T) {
	hub := NewHub(testSessionConfig(), WithRelay(&fakeRelay{err: errors.New("bus down")}))
	member := &recordingHandle{id: "m1"}
	hub.Registry().Join("chat_lobby", member)

	report := hub.Broadcast(context.Background(), "chat_lobby", NewChatEnvelope("hi", "alice"))
	if report.Delivered != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestHub_HandleRelayed(t *testing.T) {
	hub := NewHub(testSessionConfig())
	member := &recordingHandle{id: "m1"}
	hub.Registry().Join("chat_lobby", member)

	remote, _ := encodeRelayMessage("chat_lobby", "other-node", NewChatEnvelope("from afar", "dave"))
	if err := hub.HandleRelayed(context.Background(), remote); err != nil {
		t.Fatalf("HandleRelayed() error = %v", err)
	}
	own, _ := encodeRelayMessage("chat_lobby", hub.NodeID(), NewChatEnvelope("echo", "alice"))
	if err := hub.HandleRelayed(context.Background(), own); err != nil {
		t.Fatalf("HandleRelayed() error = %v", err)
	}

	got := member.Received()
	if len(got) != 1 || got[0].Message != "from afar" {
		t.Errorf("member received %+v, want only the remote message", got)
	}

	if err := hub.HandleRelayed(context.Background(), []byte("garbage")); err == nil {
		t.Error("HandleRelayed() accepted garbage")
	}
}

func TestHub_RunWithContextClosesSessions(t *testing.T) {
	hub := NewHub(testSessionConfig())
	conn := newFakeConn()
	sess := hub.NewSession()
	if err := sess.Admit(subject("alice"), "lobby", &fakeAcceptor{conn: conn}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithContext did not return")
	}

	if sess.CloseReason() != CloseServerShutdown {
		t.Errorf("reason = %s, want server_shutdown", sess.CloseReason())
	}
	if codes := conn.CloseCodes(); len(codes) != 1 || codes[0] != websocket.CloseGoingAway {
		t.Errorf("close codes = %v", codes)
	}
	if hub.SessionCount() != 0 || hub.Registry().Len() != 0 {
		t.Errorf("sessions=%d members=%d after shutdown", hub.SessionCount(), hub.Registry().Len())
	}
}

func TestGetShutdownReason(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(canceled); got != ShutdownReasonContextCanceled {
		t.Errorf("canceled = %s", got)
	}

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("deadline = %s", got)
	}
}
