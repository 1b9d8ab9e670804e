package presence

import (
	"time"

	"github.com/foodshare/pickup-tracker/pkg/geocode"
)

// Marker is the rendering handle for one participant. Its identity is stable:
// a participant who merely moves keeps the same marker, only its position and
// metadata change.
type Marker struct {
	ParticipantID string
	Position      geocode.Point
	UpdatedAt     time.Time
}

// MarkerState is an immutable copy of a marker for snapshot consumers.
type MarkerState struct {
	ParticipantID string        `json:"participant_id"`
	Position      geocode.Point `json:"position"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (m *Marker) state() MarkerState {
	return MarkerState{
		ParticipantID: m.ParticipantID,
		Position:      m.Position,
		UpdatedAt:     m.UpdatedAt,
	}
}
