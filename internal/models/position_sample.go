package models

import (
	"time"
)

// PositionSample is the latest known location of one participant within one
// session. Exactly one live sample exists per (participant, session) pair; a
// new sample replaces the previous one. Accuracy, heading and speed are
// optional and omitted when the location source did not report them.
type PositionSample struct {
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Accuracy      *float64  `json:"accuracy,omitempty"` // meters
	Heading       *float64  `json:"heading,omitempty"`  // degrees, 0-360
	Speed         *float64  `json:"speed,omitempty"`    // meters per second
	UpdatedAt     time.Time `json:"updated_at"`
}

// Key returns the identity of the sample within its session.
func (s PositionSample) Key() string {
	return s.SessionID + "/" + s.ParticipantID
}
