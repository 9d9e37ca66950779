/*
Package chat routes direct messages and reacts to session lifecycle signals.

It sits between the transport layer and the presence registry and history
store: the transport reports connects and disconnects through SessionListener,
client handlers submit joins, leaves and chats through the Manager, and the
Manager hands outbound traffic back to the transport through Transport.
*/
package chat

import "relaychat/internal/app/message"

// Transport is the outbound side of the transport layer.
// Calls are fire-and-forget: implementations must not block on network I/O.
type Transport interface {
	// DeliverToUser hands msg to the private channel of userID.
	DeliverToUser(userID string, msg message.Message)

	// BroadcastPresence fans the online snapshot out to every connected client.
	BroadcastPresence(online map[string]string)

	// SendPresence hands the online snapshot to the connection of sessionID only.
	SendPresence(sessionID string, online map[string]string)
}

// SessionListener is implemented by the core and called by the transport
// layer when a connection opens or closes.
type SessionListener interface {
	OnConnected(sessionID string)
	OnDisconnected(sessionID string)
}
