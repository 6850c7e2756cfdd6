package speech

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/speakai-labs/speakai/internal/identity"
	"github.com/speakai-labs/speakai/internal/session"
)

// WebSocketHandler upgrades /ws/speech connections and relays speech adapter
// events into the session manager.
type WebSocketHandler struct {
	mgr           *session.Manager
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new speech WebSocket handler.
func NewWebSocketHandler(mgr *session.Manager, hub *Hub, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		mgr:           mgr,
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	slog.Info("speech socket request", "user_id", userID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept speech socket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("failed to close speech socket", "error", closeErr, "user_id", userID)
		}
	}()

	h.hub.Register(userID, ws)
	defer h.hub.Unregister(userID, ws)

	// The socket dropping means capture ended, whatever the reason; the
	// listening flag must never survive the adapter.
	defer h.mgr.CaptureEnded(userID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, userID)
	slog.Info("speech socket closed", "user_id", userID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("speech socket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("speech socket closed by client", "user_id", userID)
			} else {
				slog.Warn("speech socket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("ignoring malformed speech message", "user_id", userID, "error", err)
			continue
		}

		// All outbound writes go through the hub so they serialize with
		// speak and state pushes on the same socket.
		switch msg.Type {
		case "transcript":
			// A finalized utterance from the browser's recognizer.
			if _, err := h.mgr.SubmitUtterance(userID, msg.Content); err != nil {
				h.hub.send(userID, outboundMessage{Type: "error", Error: err.Error()})
			}
		case "capture_started":
			h.mgr.CaptureStarted(userID)
		case "capture_ended":
			h.mgr.CaptureEnded(userID)
		case "ping":
			h.hub.send(userID, outboundMessage{Type: "pong"})
		default:
			slog.Debug("unknown speech message type", "user_id", userID, "type", msg.Type)
		}
	}
}
