package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/foodshare/pickup-tracker/internal/models"
	"github.com/foodshare/pickup-tracker/internal/store"
	"github.com/foodshare/pickup-tracker/pkg/geolocation"
	"github.com/foodshare/pickup-tracker/pkg/identity"
)

const sampleWriteTimeout = 5 * time.Second

// UserNotifier surfaces non-fatal, user-visible notifications. A nil err is a
// plain confirmation message.
type UserNotifier func(message string, err error)

// TrackerService publishes this participant's position sample for a session.
// It turns the provider's continuous fix stream into rate-limited upserts of
// the one live sample keyed on (participant, session).
type TrackerService struct {
	// Configuration fields
	sessionID       string
	publishInterval time.Duration
	watchOpts       geolocation.WatchOptions

	// Dependencies
	participantInfo  identity.ParticipantInfoInterface
	sampleStore      store.SampleStore
	locationProvider geolocation.Provider
	notify           UserNotifier
	logger           zerolog.Logger

	// Internal state management
	ctx         context.Context
	cancel      context.CancelFunc
	trackCancel context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
	tracking    bool
	currentFix  *geolocation.Fix
}

// NewTrackerService creates a new TrackerService instance with the provided configuration.
func NewTrackerService(sessionID string, publishInterval time.Duration, watchOpts geolocation.WatchOptions,
	participantInfo identity.ParticipantInfoInterface, sampleStore store.SampleStore,
	locationProvider geolocation.Provider, notify UserNotifier, logger zerolog.Logger) *TrackerService {
	if notify == nil {
		notify = func(string, error) {}
	}
	return &TrackerService{
		sessionID:        sessionID,
		publishInterval:  publishInterval,
		watchOpts:        watchOpts,
		participantInfo:  participantInfo,
		sampleStore:      sampleStore,
		locationProvider: locationProvider,
		notify:           notify,
		logger:           logger,
	}
}

// Start initiates the TrackerService and begins location sharing.
func (t *TrackerService) Start() error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		t.logger.Warn().Msg("TrackerService is already running")
		return errors.New("tracker service is already running")
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.running = true
	t.mu.Unlock()

	if err := t.StartTracking(); err != nil {
		t.mu.Lock()
		t.running = false
		t.cancel()
		t.mu.Unlock()
		return err
	}

	t.logger.Info().
		Str("session_id", t.sessionID).
		Dur("publish_interval", t.publishInterval).
		Msg("TrackerService started")
	return nil
}

// Stop tears the service down. Monitoring is cancelled unconditionally even
// when StopTracking was never called, so no sampling subscription outlives
// the service. The participant's sample is not deleted here; only an
// explicit StopTracking removes it.
func (t *TrackerService) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		t.logger.Warn().Msg("TrackerService is not running")
		return errors.New("tracker service is not running")
	}
	t.cancel()
	t.mu.Unlock()

	t.wg.Wait()

	if err := t.locationProvider.Close(); err != nil {
		t.logger.Error().Err(err).Msg("Failed to close location provider")
	}

	t.mu.Lock()
	t.running = false
	t.tracking = false
	t.currentFix = nil
	t.mu.Unlock()

	t.logger.Info().Msg("TrackerService stopped")
	return nil
}

// StartTracking begins continuous location monitoring and publishing. It
// fails fast when the device has no location capability; nothing runs in
// that case.
func (t *TrackerService) StartTracking() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return errors.New("tracker service is not running")
	}
	if t.tracking {
		t.mu.Unlock()
		t.logger.Warn().Msg("Location sharing is already active")
		return errors.New("location sharing is already active")
	}

	trackCtx, trackCancel := context.WithCancel(t.ctx)
	events, err := t.locationProvider.Watch(trackCtx, t.watchOpts)
	if err != nil {
		trackCancel()
		t.mu.Unlock()
		t.logger.Error().Err(err).Msg("Failed to start location monitoring")
		t.notify("Location is unavailable on this device", err)
		return err
	}

	t.trackCancel = trackCancel
	t.tracking = true
	t.currentFix = nil
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.runTrackingLoop(trackCtx, events)
	}()

	t.logger.Info().Str("session_id", t.sessionID).Msg("Location sharing started")
	t.notify("Location sharing started", nil)
	return nil
}

// StopTracking cancels monitoring, clears the observable state and removes
// this participant's sample from the store. The removal is best-effort: a
// failed delete is logged, never returned.
func (t *TrackerService) StopTracking() error {
	t.mu.Lock()
	if !t.tracking {
		t.mu.Unlock()
		t.logger.Warn().Msg("Location sharing is not active")
		return errors.New("location sharing is not active")
	}
	t.tracking = false
	t.trackCancel()
	t.trackCancel = nil
	t.mu.Unlock()

	t.wg.Wait()

	// The loop may still consume a buffered event between the cancel and its
	// exit; clear the observable fix only once it has fully stopped.
	t.mu.Lock()
	t.currentFix = nil
	t.mu.Unlock()

	participantID := t.participantInfo.GetParticipantID()
	ctx, cancel := context.WithTimeout(context.Background(), sampleWriteTimeout)
	defer cancel()
	if err := t.sampleStore.Delete(ctx, t.sessionID, participantID); err != nil {
		// Best-effort cleanup: the row may linger, but stopping must not fail.
		t.logger.Error().
			Err(err).
			Str("session_id", t.sessionID).
			Str("participant_id", participantID).
			Msg("Failed to delete position sample on stop")
	}

	t.logger.Info().Str("session_id", t.sessionID).Msg("Location sharing stopped")
	t.notify("Location sharing stopped", nil)
	return nil
}

// IsTracking reports whether location sharing is currently active.
func (t *TrackerService) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// CurrentFix returns a copy of the most recent fix, or nil when no fix has
// been observed since tracking started.
func (t *TrackerService) CurrentFix() *geolocation.Fix {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.currentFix == nil {
		return nil
	}
	fix := *t.currentFix
	return &fix
}

func (t *TrackerService) runTrackingLoop(ctx context.Context, events <-chan geolocation.Event) {
	var lastPublish time.Time

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("Tracking loop stopping")
			return

		case event, ok := <-events:
			if !ok {
				t.logger.Warn().Msg("Location event stream closed")
				return
			}
			if event.Err != nil {
				// Transient read failure; monitoring continues.
				t.logger.Error().Err(event.Err).Msg("Failed to read location")
				t.notify("Could not read your location", event.Err)
				continue
			}

			t.mu.Lock()
			fix := event.Fix
			t.currentFix = &fix
			t.mu.Unlock()

			if time.Since(lastPublish) < t.publishInterval {
				continue
			}
			lastPublish = time.Now()
			t.publishSample(event.Fix)
		}
	}
}

// publishSample upserts the participant's sample. Write failures are logged
// only; the next location event is the retry.
func (t *TrackerService) publishSample(fix geolocation.Fix) {
	sample := models.PositionSample{
		SessionID:     t.sessionID,
		ParticipantID: t.participantInfo.GetParticipantID(),
		Latitude:      fix.Latitude,
		Longitude:     fix.Longitude,
		Accuracy:      fix.Accuracy,
		Heading:       fix.Heading,
		Speed:         fix.Speed,
		UpdatedAt:     time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), sampleWriteTimeout)
	defer cancel()

	if err := t.sampleStore.Upsert(ctx, sample); err != nil {
		t.logger.Error().
			Err(err).
			Str("session_id", sample.SessionID).
			Str("participant_id", sample.ParticipantID).
			Msg("Failed to publish position sample")
		return
	}

	t.logger.Debug().
		Float64("latitude", sample.Latitude).
		Float64("longitude", sample.Longitude).
		Msg("Position sample published")
}
