package store

import (
	"context"

	"github.com/foodshare/pickup-tracker/internal/models"
)

// SampleStore is the shared position-sample store. The conflict key of every
// mutation is (participant, session): an upsert replaces any existing row for
// that pair and a delete of an absent row is a no-op.
type SampleStore interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.PositionSample, error)
	Upsert(ctx context.Context, sample models.PositionSample) error
	Delete(ctx context.Context, sessionID, participantID string) error
}
