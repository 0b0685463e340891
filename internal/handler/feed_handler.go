package handler

import (
	"log/slog"
	"net/http"

	gorillaws "github.com/gorilla/websocket"

	"go-ecoforum/internal/service"
	"go-ecoforum/internal/websocket"
)

type FeedHandler struct {
	hub        *websocket.Hub
	authorizer *service.Authorizer
	upgrader   gorillaws.Upgrader
}

func NewFeedHandler(hub *websocket.Hub, authorizer *service.Authorizer, allowedOrigins []string) *FeedHandler {
	return &FeedHandler{
		hub:        hub,
		authorizer: authorizer,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Serve upgrades a moderator's connection and streams domain events to it.
func (h *FeedHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.authorizer, service.ActionModerate, "", 0) {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		slog.Warn("feed upgrade failed", "error", err)
		return
	}

	actor := actorFromRequest(r)
	slog.Info("feed connected", "user_id", actor.UserID)
	websocket.NewClient(h.hub, conn, actor.UserID).Serve()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
