/*
Package handler provides the HTTP handlers and routing setup for the relay.

This file defines the main Router, applying middleware for request IDs, logging,
CORS and panic recovery before delegating requests to the REST and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Relay Chat Server"

// Router sets up the main HTTP routing table (chi.Router) for the application.
// Outside development, CORS and WebSocket upgrades are limited to the configured origins.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logx.Debug("Health check endpoint hit")

		data := map[string]any{
			"status":  "ok",
			"service": ServiceName,
			"online":  deps.Manager.OnlineCount(),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/users/online", HandleListOnlineUsers(deps))

		api.Route("/chat", func(chat chi.Router) {
			chat.Get("/history/{userId}", HandleGetHistory(deps))
			chat.Get("/history/{userId1}/{userId2}", HandleGetHistoryBetween(deps))
			chat.Post("/messages", HandleSendMessage(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, deps))

	return r
}
