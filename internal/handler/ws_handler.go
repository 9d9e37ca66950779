/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which upgrades the HTTP connection,
assigns it a session handle and runs the client lifecycle until the socket closes.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"relaychat/internal/app/ws"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Users identify themselves later with a JOIN frame; the connection itself is anonymous.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		sessionID := randx.SessionID()

		logx.Info("WebSocket connection established", "session_id", sessionID)

		ws.NewClient(deps.Hub, conn, sessionID, deps.Manager).Serve()
	}
}
