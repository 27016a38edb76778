package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/devforum/api/internal/realtime"
	"github.com/devforum/api/internal/transport/http/middleware"
	"github.com/gorilla/websocket"
)

// WSHandler upgrades authenticated requests to websocket connections and
// hands them to the hub.
type WSHandler struct {
	hub      *realtime.Hub
	sender   realtime.MessageSender
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *realtime.Hub, sender realtime.MessageSender, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:    hub,
		sender: sender,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser clients
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		slog.Warn("websocket upgrade failed", "user_id", claims.UserID, "error", err)
		return
	}
	client := realtime.NewClient(h.hub, conn, claims.UserID, h.sender)
	h.hub.Register(client)
	// The request context dies when this handler returns; the connection
	// outlives it.
	go client.Run(context.Background())
}
