/*
Package ws is the WebSocket transport of the relay.

The Hub tracks live connections by session handle and implements the core's
outbound Transport. Each Client runs a read pump that turns inbound frames
into submissions and a write pump that drains its send queue to the socket.
*/
package ws

import (
	"encoding/json"

	"relaychat/internal/app/message"
)

// FrameType names the kind of an outbound frame.
type FrameType string

const (
	// FrameMessage carries a routed chat message.
	FrameMessage FrameType = "MESSAGE"

	// FrameUsers carries the online-user snapshot.
	FrameUsers FrameType = "USERS"

	// FrameAck confirms a JOIN or LEAVE with the stamped notice.
	FrameAck FrameType = "ACK"

	// FrameError reports a rejected submission.
	FrameError FrameType = "ERROR"
)

// Envelope is the outbound frame layout.
type Envelope struct {
	Type    FrameType `json:"type"`
	Payload any       `json:"payload"`
}

// ErrorPayload is the payload of a FrameError.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// inboundFrame is what clients send. Type selects the submission.
type inboundFrame struct {
	Type        message.Type `json:"type"`
	Content     string       `json:"content,omitempty"`
	Sender      string       `json:"sender"`
	Receiver    string       `json:"receiver,omitempty"`
	DisplayName string       `json:"displayName,omitempty"`
}

func encode(frameType FrameType, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: frameType, Payload: payload})
}
