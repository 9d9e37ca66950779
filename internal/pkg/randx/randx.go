/*
Package randx generates the identifiers the relay hands out: message IDs and
transport session handles. Both are random (v4) UUIDs.
*/
package randx

import (
	"github.com/google/uuid"
)

// MessageID generates a UUID v4 string used as a routed message identifier.
func MessageID() string {
	return uuid.New().String()
}

// SessionID generates a UUID v4 string used as the handle of one live connection.
func SessionID() string {
	return uuid.NewString()
}
