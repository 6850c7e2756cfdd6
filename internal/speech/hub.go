// Package speech bridges the browser's speech adapter over WebSocket.
//
// The browser does the actual capture and synthesis (Web Speech API); this
// package carries finalized transcripts and capture status in, and speak
// commands plus session state out. If a learner has no socket connected,
// outbound events are dropped: the adapter is best effort and the REST flow
// keeps working without it.
package speech

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/speakai-labs/speakai/internal/config"
	"github.com/speakai-labs/speakai/internal/domain"
)

// Hub tracks the active speech socket per learner and implements the session
// manager's Sink. One socket per learner: a second tab replaces the first.
type Hub struct {
	speech config.SpeechConfig

	mu    sync.RWMutex
	conns map[string]*conn
}

type conn struct {
	ws *websocket.Conn
	// writeMu serializes writes; speak pushes and state pushes can race.
	writeMu sync.Mutex
	// lastRevision is the newest snapshot revision written to this socket,
	// guarded by writeMu. State pushes can race past each other between the
	// manager releasing its lock and the write; an older snapshot arriving
	// late must not roll the client back.
	lastRevision uint64
}

// NewHub creates a Hub that stamps speak events with the given synthesis
// parameters.
func NewHub(speech config.SpeechConfig) *Hub {
	return &Hub{
		speech: speech,
		conns:  make(map[string]*conn),
	}
}

// Register adds the socket for a learner, closing any previous one.
func (h *Hub) Register(userID string, ws *websocket.Conn) {
	h.mu.Lock()
	if existing, ok := h.conns[userID]; ok && existing.ws != ws {
		_ = existing.ws.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	h.conns[userID] = &conn{ws: ws}
	h.mu.Unlock()
	slog.Info("speech socket registered", "user_id", userID)
}

// Unregister removes the socket for a learner if it is still the active one.
func (h *Hub) Unregister(userID string, ws *websocket.Conn) {
	h.mu.Lock()
	if current, ok := h.conns[userID]; ok && current.ws == ws {
		delete(h.conns, userID)
		slog.Info("speech socket unregistered", "user_id", userID)
	}
	h.mu.Unlock()
}

// Connected reports whether the learner has an active speech socket.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

// Speak pushes a synthesis request to the learner's browser. Fire-and-forget.
func (h *Hub) Speak(userID, text string) {
	h.send(userID, outboundMessage{
		Type:   "speak",
		Text:   text,
		Rate:   h.speech.Rate,
		Pitch:  h.speech.Pitch,
		Volume: h.speech.Volume,
	})
}

// SessionChanged pushes the new session snapshot to the learner's browser.
// Snapshots delivered out of order are dropped: the revision check and the
// write happen under the same lock, so the socket only ever moves forward.
func (h *Hub) SessionChanged(userID string, snap domain.Snapshot) {
	h.mu.RLock()
	c, ok := h.conns[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if snap.Revision <= c.lastRevision {
		slog.Debug("stale state push dropped", "user_id", userID, "revision", snap.Revision, "latest", c.lastRevision)
		return
	}
	c.lastRevision = snap.Revision
	h.write(c, userID, outboundMessage{Type: "state", Session: &snap})
}

func (h *Hub) send(userID string, msg outboundMessage) {
	h.mu.RLock()
	c, ok := h.conns[userID]
	h.mu.RUnlock()
	if !ok {
		// No adapter connected; degrade silently.
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	h.write(c, userID, msg)
}

// write encodes and sends one message. Callers must hold c.writeMu.
func (h *Hub) write(c *conn, userID string, msg outboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to encode speech message", "type", msg.Type, "error", err)
		return
	}
	if err := c.ws.Write(context.Background(), websocket.MessageText, data); err != nil {
		slog.Debug("speech socket write failed", "user_id", userID, "type", msg.Type, "error", err)
	}
}

// outboundMessage is the server-to-browser envelope.
type outboundMessage struct {
	Type    string           `json:"type"`
	Text    string           `json:"text,omitempty"`
	Rate    float64          `json:"rate,omitempty"`
	Pitch   float64          `json:"pitch,omitempty"`
	Volume  float64          `json:"volume,omitempty"`
	Session *domain.Snapshot `json:"session,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// inboundMessage is the browser-to-server envelope.
type inboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}
