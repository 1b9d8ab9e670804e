package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foodshare/pickup-tracker/internal/models"
	"github.com/foodshare/pickup-tracker/pkg/mqtt"
)

// ChangeTopic returns the MQTT topic carrying change events for a session.
func ChangeTopic(sessionID string) string {
	return fmt.Sprintf("sessions/%s/positions", sessionID)
}

// NotifyingStore decorates a SampleStore so that every successful mutation
// publishes a session-scoped change event. The event carries no row data;
// subscribers refetch the session wholesale. A failed notification never
// fails the mutation itself.
type NotifyingStore struct {
	inner      SampleStore
	mqttClient mqtt.MQTTClient
	qos        int
	logger     zerolog.Logger
}

// NewNotifyingStore creates a new NotifyingStore instance.
func NewNotifyingStore(inner SampleStore, mqttClient mqtt.MQTTClient, qos int, logger zerolog.Logger) *NotifyingStore {
	return &NotifyingStore{
		inner:      inner,
		mqttClient: mqttClient,
		qos:        qos,
		logger:     logger.With().Str("module", "store-notifier").Logger(),
	}
}

// ListBySession returns all position samples for the session.
func (n *NotifyingStore) ListBySession(ctx context.Context, sessionID string) ([]models.PositionSample, error) {
	return n.inner.ListBySession(ctx, sessionID)
}

// Upsert writes the sample and notifies the session's subscribers.
func (n *NotifyingStore) Upsert(ctx context.Context, sample models.PositionSample) error {
	if err := n.inner.Upsert(ctx, sample); err != nil {
		return err
	}
	n.notify(sample.SessionID, models.ChangeUpsert)
	return nil
}

// Delete removes the sample and notifies the session's subscribers.
func (n *NotifyingStore) Delete(ctx context.Context, sessionID, participantID string) error {
	if err := n.inner.Delete(ctx, sessionID, participantID); err != nil {
		return err
	}
	n.notify(sessionID, models.ChangeDelete)
	return nil
}

func (n *NotifyingStore) notify(sessionID, kind string) {
	event := models.ChangeEvent{
		SessionID: sessionID,
		Kind:      kind,
		Timestamp: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error().Err(err).Msg("Failed to serialize change event")
		return
	}

	token := n.mqttClient.Publish(ChangeTopic(sessionID), byte(n.qos), false, payload)
	token.Wait()

	if err := token.Error(); err != nil {
		n.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Str("kind", kind).
			Msg("Failed to publish change event")
	}
}
