package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/foodshare/pickup-tracker/internal/feed"
	"github.com/foodshare/pickup-tracker/internal/presence"
)

const pickupResolveTimeout = 15 * time.Second

// PresenceService wires a session feed into a presence view: every snapshot
// delivered by the feed is reconciled into the marker set. It also resolves
// the session's pickup address once on startup.
type PresenceService struct {
	sessionID     string
	pickupAddress string
	sessionFeed   *feed.SessionFeed
	view          *presence.View
	logger        zerolog.Logger

	running bool
}

// NewPresenceService creates a new PresenceService instance.
func NewPresenceService(sessionID, pickupAddress string, sessionFeed *feed.SessionFeed,
	view *presence.View, logger zerolog.Logger) *PresenceService {
	return &PresenceService{
		sessionID:     sessionID,
		pickupAddress: pickupAddress,
		sessionFeed:   sessionFeed,
		view:          view,
		logger:        logger,
	}
}

// Start performs the initial session fetch, opens the change subscription and
// places the pickup marker. The initial fetch error is the one store-read
// failure surfaced to the caller.
func (p *PresenceService) Start() error {
	if p.running {
		p.logger.Warn().Msg("PresenceService is already running")
		return errors.New("presence service is already running")
	}

	p.sessionFeed.OnUpdate(p.view.Apply)

	ctx, cancel := context.WithTimeout(context.Background(), pickupResolveTimeout)
	defer cancel()

	if err := p.sessionFeed.SetSession(ctx, p.sessionID); err != nil {
		p.logger.Error().Err(err).Str("session_id", p.sessionID).Msg("Failed to load session samples")
		return err
	}

	p.view.SetPickupAddress(ctx, p.pickupAddress)

	p.running = true
	p.logger.Info().Str("session_id", p.sessionID).Msg("PresenceService started")
	return nil
}

// Stop releases the feed subscription.
func (p *PresenceService) Stop() error {
	if !p.running {
		p.logger.Warn().Msg("PresenceService is not running")
		return errors.New("presence service is not running")
	}

	p.sessionFeed.Close()
	p.running = false

	p.logger.Info().Msg("PresenceService stopped")
	return nil
}

// View returns the presence view maintained by this service.
func (p *PresenceService) View() *presence.View {
	return p.view
}
