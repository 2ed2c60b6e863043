// Package realtime maintains the websocket notification channel: one room
// per recipient id, joined at connection time, fed by the notification
// dispatcher.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"snaphomz.org/internal/identity"
	"snaphomz.org/internal/obs"
)

const (
	eventReceive = "receiveNotification"
	eventSend    = "sendNotification"

	writeWait     = 10 * time.Second
	sendQueueSize = 16
)

// Message is the wire payload exchanged on the notification channel.
type Message struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	User     string `json:"user"`
	UserType string `json:"userType"`
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type sendNotificationPayload struct {
	Notification Message `json:"notification"`
}

// Authenticator resolves a handshake token to a principal. Both the token
// decode and the store lookup try user first, then agent.
type Authenticator interface {
	AuthenticateSocket(ctx context.Context, token string) (identity.Principal, error)
}

// Gateway owns all websocket connections and the room registry.
type Gateway struct {
	upgrader websocket.Upgrader
	authn    Authenticator
	logf     func(format string, args ...any)

	mu    sync.RWMutex
	conns map[*connection]struct{}
	rooms map[string]map[*connection]struct{}
}

type connection struct {
	id        string
	ws        *websocket.Conn
	send      chan []byte
	room      string
	principal identity.Principal
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithAllowedOrigins restricts the websocket handshake origin check.
func WithAllowedOrigins(origins []string) Option {
	return func(g *Gateway) {
		allowAll := len(origins) == 0 || (len(origins) == 1 && origins[0] == "*")
		set := make(map[string]bool, len(origins))
		for _, o := range origins {
			set[o] = true
		}
		g.upgrader.CheckOrigin = func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return set[origin]
		}
	}
}

// WithLogf overrides the gateway logger.
func WithLogf(logf func(string, ...any)) Option {
	return func(g *Gateway) {
		if logf != nil {
			g.logf = logf
		}
	}
}

// NewGateway constructs a Gateway over the given authenticator.
func NewGateway(authn Authenticator, opts ...Option) *Gateway {
	g := &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		authn: authn,
		logf:  func(string, ...any) {},
		conns: make(map[*connection]struct{}),
		rooms: make(map[string]map[*connection]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HandleWS upgrades the request, authenticates the handshake token, joins
// the connection to the room named by the userId query parameter, and runs
// the read/write pumps until the peer goes away.
//
// The userId room key is taken as-is from the handshake and is not checked
// against the authenticated principal.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logf("realtime: upgrade: %v", err)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		g.reject(ws, "Token not provided")
		return
	}

	principal, err := g.authn.AuthenticateSocket(r.Context(), token)
	if err != nil {
		// Detail is never surfaced: malformed token and missing principal
		// are indistinguishable to the client.
		g.reject(ws, "Invalid token")
		return
	}

	conn := &connection{
		id:        uuid.NewString(),
		ws:        ws,
		send:      make(chan []byte, sendQueueSize),
		room:      r.URL.Query().Get("userId"),
		principal: principal,
	}
	g.register(conn)
	obs.RealtimeConnectionOpened()
	g.logf("realtime: client %s connected (room %q)", conn.id, conn.room)

	go g.writePump(conn)
	g.readPump(conn)
}

func (g *Gateway) reject(ws *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	_ = ws.Close()
}

func (g *Gateway) register(c *connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conns[c] = struct{}{}
	if c.room != "" {
		room, ok := g.rooms[c.room]
		if !ok {
			room = make(map[*connection]struct{})
			g.rooms[c.room] = room
		}
		room[c] = struct{}{}
	}
}

func (g *Gateway) unregister(c *connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.conns[c]; !ok {
		return
	}
	delete(g.conns, c)
	close(c.send)
	if room, ok := g.rooms[c.room]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(g.rooms, c.room)
		}
	}
	obs.RealtimeConnectionClosed()
}

func (g *Gateway) readPump(c *connection) {
	defer func() {
		g.unregister(c)
		_ = c.ws.Close()
		g.logf("realtime: client %s disconnected", c.id)
	}()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if env.Event != eventSend {
			continue
		}
		var payload sendNotificationPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			continue
		}
		g.SendRealTimeNotification(payload.Notification)
	}
}

func (g *Gateway) writePump(c *connection) {
	for data := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closed"),
		time.Now().Add(writeWait))
}

// SendRealTimeNotification emits a single notification to every open
// connection. This is a global broadcast, not room-scoped; batched delivery
// via BroadcastNotification is the room-scoped path.
func (g *Gateway) SendRealTimeNotification(msg Message) {
	data := marshalEvent(msg)
	g.mu.RLock()
	defer g.mu.RUnlock()
	for c := range g.conns {
		select {
		case c.send <- data:
		default:
			// Drop when the client is slow to avoid blocking the caller.
		}
	}
}

// BroadcastNotification delivers per-recipient slices: for each id the
// notification list is filtered down to that recipient's items and emitted
// to that room only. Rooms with no matching items receive nothing.
func (g *Gateway) BroadcastNotification(recipientIDs []string, msgs []Message) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, id := range recipientIDs {
		var own []Message
		for _, m := range msgs {
			if m.User == id {
				own = append(own, m)
			}
		}
		if len(own) == 0 {
			continue
		}
		data := marshalEvent(own)
		for c := range g.rooms[id] {
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

// RoomSize reports the number of connections joined to a room.
func (g *Gateway) RoomSize(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms[id])
}

func marshalEvent(data any) []byte {
	raw, _ := json.Marshal(data)
	out, _ := json.Marshal(envelope{Event: eventReceive, Data: raw})
	return out
}
