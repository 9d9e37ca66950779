/*
Package message defines the chat message exchanged between the relay's
components and sent to clients.
*/
package message

import "time"

// Type is the kind of a Message.
type Type string

const (
	TypeJoin  Type = "JOIN"
	TypeChat  Type = "CHAT"
	TypeLeave Type = "LEAVE"
)

// Valid reports whether t is one of the known message kinds.
func (t Type) Valid() bool {
	switch t {
	case TypeJoin, TypeChat, TypeLeave:
		return true
	}
	return false
}

// Message is a routed chat message. ID and Timestamp are assigned by the
// router; values supplied by callers are overwritten.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
}

// IsBetween reports whether m is a directed exchange between a and b, in
// either direction.
func (m Message) IsBetween(a, b string) bool {
	return (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a)
}
