// Package events publishes domain events for records changed through the API.
// Delivery is best effort: callers log publish failures and carry on.
package events

import (
	"encoding/json"
	"time"
)

// Type is the kind of change an event describes.
type Type string

const (
	TypeCreated Type = "created"
	TypeUpdated Type = "updated"
	TypeDeleted Type = "deleted"
)

// IsValid reports whether t is a known event type.
func (t Type) IsValid() bool {
	switch t {
	case TypeCreated, TypeUpdated, TypeDeleted:
		return true
	default:
		return false
	}
}

// Event is the payload written to the stream.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Resource   string          `json:"resource"`
	DocumentID string          `json:"documentId"`
	OwnerID    string          `json:"ownerId,omitempty"`
	Timestamp  int64           `json:"timestamp"` // Unix milliseconds
	Data       json.RawMessage `json:"data,omitempty"`
}

// Time returns the event timestamp.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}
