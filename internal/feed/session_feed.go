package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/foodshare/pickup-tracker/internal/models"
	"github.com/foodshare/pickup-tracker/internal/store"
	"github.com/foodshare/pickup-tracker/pkg/mqtt"
)

const refetchTimeout = 10 * time.Second

// SessionFeed keeps a local materialized list of one session's position
// samples synchronized with the store, using pull-then-subscribe: a full
// fetch on session acquisition, then one change-notification subscription
// whose every delivery triggers a full refetch. The local list is replaced
// wholesale on each fetch; nothing is patched incrementally.
type SessionFeed struct {
	store      store.SampleStore
	mqttClient mqtt.MQTTClient
	qos        int
	staleAfter time.Duration // 0 disables the read-side staleness cutoff
	logger     zerolog.Logger

	mu         sync.Mutex
	sessionID  string
	topic      string
	subscribed bool
	snapshot   []models.PositionSample
	onUpdate   func([]models.PositionSample)
}

// NewSessionFeed creates a new SessionFeed instance.
func NewSessionFeed(sampleStore store.SampleStore, mqttClient mqtt.MQTTClient, qos int,
	staleAfter time.Duration, logger zerolog.Logger) *SessionFeed {
	return &SessionFeed{
		store:      sampleStore,
		mqttClient: mqttClient,
		qos:        qos,
		staleAfter: staleAfter,
		logger:     logger.With().Str("module", "session-feed").Logger(),
	}
}

// OnUpdate registers the callback invoked with the new snapshot after every
// successful fetch. It must be set before SetSession.
func (f *SessionFeed) OnUpdate(fn func([]models.PositionSample)) {
	f.mu.Lock()
	f.onUpdate = fn
	f.mu.Unlock()
}

// SetSession switches the feed to the given session: any previous
// subscription is released first, then the session is fetched once and the
// change subscription opened. The initial fetch error is returned to the
// caller; refetches triggered by notifications only log failures.
func (f *SessionFeed) SetSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	f.unsubscribeLocked()
	f.sessionID = sessionID
	f.snapshot = nil
	f.mu.Unlock()

	if sessionID == "" {
		return nil
	}

	if err := f.refetch(ctx, sessionID); err != nil {
		return err
	}

	topic := store.ChangeTopic(sessionID)
	token := f.mqttClient.Subscribe(topic, byte(f.qos), f.handleChange)
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}

	f.mu.Lock()
	f.topic = topic
	f.subscribed = true
	f.mu.Unlock()

	f.logger.Info().Str("session_id", sessionID).Msg("Session feed subscribed")
	return nil
}

// Snapshot returns a copy of the current materialized list.
func (f *SessionFeed) Snapshot() []models.PositionSample {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.PositionSample, len(f.snapshot))
	copy(out, f.snapshot)
	return out
}

// Close releases the change subscription. Closing an unsubscribed feed is a
// no-op, so Close after SetSession("") never unsubscribes twice.
func (f *SessionFeed) Close() {
	f.mu.Lock()
	f.unsubscribeLocked()
	f.sessionID = ""
	f.snapshot = nil
	f.mu.Unlock()
}

// unsubscribeLocked releases the subscription exactly once. Callers hold f.mu.
func (f *SessionFeed) unsubscribeLocked() {
	if !f.subscribed {
		return
	}
	f.subscribed = false

	token := f.mqttClient.Unsubscribe(f.topic)
	token.Wait()
	if err := token.Error(); err != nil {
		f.logger.Error().Err(err).Str("topic", f.topic).Msg("Failed to unsubscribe from change topic")
	}
	f.topic = ""
}

// handleChange reacts to any change notification with one full refetch. The
// payload is deliberately ignored: delivery order is not trusted, the fetch
// result is.
func (f *SessionFeed) handleChange(_ mqttLib.Client, _ mqttLib.Message) {
	f.mu.Lock()
	sessionID := f.sessionID
	f.mu.Unlock()
	if sessionID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refetchTimeout)
	defer cancel()

	if err := f.refetch(ctx, sessionID); err != nil {
		f.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to refetch session samples")
	}
}

func (f *SessionFeed) refetch(ctx context.Context, sessionID string) error {
	samples, err := f.store.ListBySession(ctx, sessionID)
	if err != nil {
		return err
	}

	if f.staleAfter > 0 {
		cutoff := time.Now().Add(-f.staleAfter)
		fresh := samples[:0]
		for _, sample := range samples {
			if sample.UpdatedAt.After(cutoff) {
				fresh = append(fresh, sample)
			}
		}
		samples = fresh
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].ParticipantID < samples[j].ParticipantID
	})

	f.mu.Lock()
	if f.sessionID != sessionID {
		// Session switched while the fetch was in flight; drop the result.
		f.mu.Unlock()
		return nil
	}
	f.snapshot = samples
	onUpdate := f.onUpdate
	f.mu.Unlock()

	if onUpdate != nil {
		out := make([]models.PositionSample, len(samples))
		copy(out, samples)
		onUpdate(out)
	}
	return nil
}
