package models

import "time"

// Kinds of position-sample change events.
const (
	ChangeUpsert = "upsert"
	ChangeDelete = "delete"
)

// ChangeEvent signals that a session's position samples changed. It carries
// no row data on purpose: consumers refetch the whole session, so delivery
// order does not matter.
type ChangeEvent struct {
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}
