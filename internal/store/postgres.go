package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/foodshare/pickup-tracker/internal/models"
)

// The composite primary key enforces the one-live-sample-per-pair invariant
// at the storage layer, independent of client behavior.
const schema = `
CREATE TABLE IF NOT EXISTS position_samples (
	participant_id text NOT NULL,
	session_id     text NOT NULL,
	latitude       double precision NOT NULL,
	longitude      double precision NOT NULL,
	accuracy       double precision,
	heading        double precision,
	speed          double precision,
	updated_at     timestamptz NOT NULL,
	PRIMARY KEY (participant_id, session_id)
);
CREATE INDEX IF NOT EXISTS position_samples_session_idx ON position_samples (session_id);
`

// PostgresStore implements SampleStore on a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("module", "store").Logger(),
	}
}

// EnsureSchema creates the position_samples table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure position_samples schema: %w", err)
	}
	return nil
}

// ListBySession returns all position samples for the session.
func (s *PostgresStore) ListBySession(ctx context.Context, sessionID string) ([]models.PositionSample, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT participant_id, session_id, latitude, longitude, accuracy, heading, speed, updated_at
		 FROM position_samples WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var samples []models.PositionSample
	for rows.Next() {
		var sample models.PositionSample
		err := rows.Scan(&sample.ParticipantID, &sample.SessionID, &sample.Latitude,
			&sample.Longitude, &sample.Accuracy, &sample.Heading, &sample.Speed, &sample.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample row: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sample rows: %w", err)
	}

	return samples, nil
}

// Upsert writes the sample, replacing any existing row for the same
// (participant, session) pair.
func (s *PostgresStore) Upsert(ctx context.Context, sample models.PositionSample) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO position_samples
			(participant_id, session_id, latitude, longitude, accuracy, heading, speed, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (participant_id, session_id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			accuracy = EXCLUDED.accuracy,
			heading = EXCLUDED.heading,
			speed = EXCLUDED.speed,
			updated_at = EXCLUDED.updated_at`,
		sample.ParticipantID, sample.SessionID, sample.Latitude, sample.Longitude,
		sample.Accuracy, sample.Heading, sample.Speed, sample.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sample %s: %w", sample.Key(), err)
	}

	s.logger.Debug().
		Str("participant_id", sample.ParticipantID).
		Str("session_id", sample.SessionID).
		Msg("Position sample upserted")
	return nil
}

// Delete removes the participant's sample for the session. Deleting an
// absent row is not an error.
func (s *PostgresStore) Delete(ctx context.Context, sessionID, participantID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM position_samples WHERE participant_id = $1 AND session_id = $2`,
		participantID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete sample %s/%s: %w", sessionID, participantID, err)
	}
	return nil
}
