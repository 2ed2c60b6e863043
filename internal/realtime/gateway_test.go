package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"snaphomz.org/internal/identity"
)

type stubAuthenticator struct {
	tokens map[string]identity.Principal
}

func (s *stubAuthenticator) AuthenticateSocket(_ context.Context, token string) (identity.Principal, error) {
	p, ok := s.tokens[token]
	if !ok {
		return identity.Principal{}, errors.New("unknown token")
	}
	return p, nil
}

type gatewayFixture struct {
	gw  *Gateway
	srv *httptest.Server
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	authn := &stubAuthenticator{tokens: map[string]identity.Principal{
		"good-token": identity.UserPrincipal(&identity.User{ID: "u1", Fullname: "Amy Pond"}),
	}}
	gw := NewGateway(authn)
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	t.Cleanup(srv.Close)
	return &gatewayFixture{gw: gw, srv: srv}
}

func (f *gatewayFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/?" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func expectClose(t *testing.T, ws *websocket.Conn, reason string) {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := ws.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("err = %v, want close frame", err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation || closeErr.Text != reason {
		t.Fatalf("close = %d %q, want %d %q",
			closeErr.Code, closeErr.Text, websocket.ClosePolicyViolation, reason)
	}
}

func waitForRoom(t *testing.T, gw *Gateway, room string, size int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if gw.RoomSize(room) == size {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %q never reached size %d", room, size)
}

func readEnvelope(t *testing.T, ws *websocket.Conn) envelope {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestHandshakeRequiresToken(t *testing.T) {
	f := newGatewayFixture(t)
	ws := f.dial(t, "userId=u1")
	expectClose(t, ws, "Token not provided")
}

func TestHandshakeRejectsInvalidToken(t *testing.T) {
	f := newGatewayFixture(t)
	ws := f.dial(t, "token=junk&userId=u1")
	expectClose(t, ws, "Invalid token")
}

func TestHandshakeJoinsRoom(t *testing.T) {
	f := newGatewayFixture(t)
	ws := f.dial(t, "token=good-token&userId=u1")
	waitForRoom(t, f.gw, "u1", 1)

	_ = ws.Close()
	waitForRoom(t, f.gw, "u1", 0)
}

func TestSendRealTimeNotificationReachesAllConnections(t *testing.T) {
	f := newGatewayFixture(t)
	a := f.dial(t, "token=good-token&userId=u1")
	b := f.dial(t, "token=good-token&userId=u2")
	waitForRoom(t, f.gw, "u1", 1)
	waitForRoom(t, f.gw, "u2", 1)

	f.gw.SendRealTimeNotification(Message{Title: "t", Body: "b", User: "u1", UserType: "user"})

	for _, ws := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, ws)
		if env.Event != eventReceive {
			t.Fatalf("event = %q, want %q", env.Event, eventReceive)
		}
		var msg Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if msg.Title != "t" || msg.User != "u1" {
			t.Fatalf("message = %+v", msg)
		}
	}
}

func TestBroadcastNotificationIsRoomScoped(t *testing.T) {
	f := newGatewayFixture(t)
	a := f.dial(t, "token=good-token&userId=u1")
	b := f.dial(t, "token=good-token&userId=u2")
	waitForRoom(t, f.gw, "u1", 1)
	waitForRoom(t, f.gw, "u2", 1)

	f.gw.BroadcastNotification([]string{"u1", "u2"}, []Message{
		{Title: "for-u1", Body: "b", User: "u1", UserType: "user"},
	})

	env := readEnvelope(t, a)
	var msgs []Message
	if err := json.Unmarshal(env.Data, &msgs); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Title != "for-u1" {
		t.Fatalf("batch = %+v", msgs)
	}

	// The u2 room has no matching items and must stay silent.
	_ = b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := b.ReadMessage(); err == nil {
		t.Fatal("u2 received a batch it should not see")
	}
}

func TestClientSendEventFansOut(t *testing.T) {
	f := newGatewayFixture(t)
	a := f.dial(t, "token=good-token&userId=u1")
	b := f.dial(t, "token=good-token&userId=u2")
	waitForRoom(t, f.gw, "u1", 1)
	waitForRoom(t, f.gw, "u2", 1)

	payload, _ := json.Marshal(sendNotificationPayload{
		Notification: Message{Title: "from-client", Body: "b", User: "u2", UserType: "user"},
	})
	frame, _ := json.Marshal(envelope{Event: eventSend, Data: payload})
	if err := a.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}

	env := readEnvelope(t, b)
	var msg Message
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Title != "from-client" {
		t.Fatalf("message = %+v", msg)
	}
}
