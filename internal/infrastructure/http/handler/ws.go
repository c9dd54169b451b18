package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rezkam/taskflow/internal/application/gateway"
)

// GatewayHandler upgrades client connections for the WebSocket gateway.
type GatewayHandler struct {
	svc      *gateway.Service
	upgrader websocket.Upgrader
}

// NewGatewayHandler creates a new WebSocket upgrade handler. Origin checks
// are disabled; the gateway sits behind the mesh's edge.
func NewGatewayHandler(svc *gateway.Service) *GatewayHandler {
	return &GatewayHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the websocket subtree.
func (h *GatewayHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", h.Serve)
	return r
}

// Serve handles GET /ws?user_id=. The upgrade is accepted before the
// parameter check so the close code reaches the client over the socket.
func (h *GatewayHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(gateway.CloseMissingUserID, "user_id query parameter is required")
		if err := ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			slog.WarnContext(r.Context(), "failed to send close frame", "error", err)
		}
		ws.Close()
		return
	}

	if err := h.svc.Connect(r.Context(), userID, ws); err != nil {
		slog.ErrorContext(r.Context(), "websocket connect failed",
			"user_id", userID,
			"error", err)
		ws.Close()
		return
	}
	// The request context dies with the handler; presence cleanup must not.
	defer h.svc.Disconnect(context.WithoutCancel(r.Context()), userID, ws)

	for {
		messageType, message, err := ws.ReadMessage()
		if err != nil {
			slog.DebugContext(r.Context(), "websocket read loop ended",
				"user_id", userID,
				"error", err)
			return
		}
		if messageType == websocket.TextMessage {
			slog.DebugContext(r.Context(), "client frame received",
				"user_id", userID,
				"size", len(message))
		}
	}
}
