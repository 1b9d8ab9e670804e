package service_registry

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/foodshare/pickup-tracker/internal/feed"
	"github.com/foodshare/pickup-tracker/internal/presence"
	"github.com/foodshare/pickup-tracker/internal/registry"
	"github.com/foodshare/pickup-tracker/internal/services"
	"github.com/foodshare/pickup-tracker/internal/store"
	"github.com/foodshare/pickup-tracker/internal/utils"
	"github.com/foodshare/pickup-tracker/internal/web"
	"github.com/foodshare/pickup-tracker/pkg/geocode"
	"github.com/foodshare/pickup-tracker/pkg/geolocation"
	"github.com/foodshare/pickup-tracker/pkg/identity"
	"github.com/foodshare/pickup-tracker/pkg/mqtt"
)

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	mqttClient  mqtt.MQTTClient
	sampleStore store.SampleStore
	geocoder    geocode.Geocoder
	notify      services.UserNotifier
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, sampleStore store.SampleStore,
	geocoder geocode.Geocoder, notify services.UserNotifier, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:    make(map[string]registry.Service),
		mqttClient:  mqttClient,
		sampleStore: sampleStore,
		geocoder:    geocoder,
		notify:      notify,
		Logger:      logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, participantInfo identity.ParticipantInfoInterface) error {
	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    "tracker",
			enabled: config.Services.Tracker.Enabled,
			constructor: func() (registry.Service, error) {
				provider, err := sr.buildLocationProvider(config)
				if err != nil {
					return nil, err
				}
				return services.NewTrackerService(
					config.Session.ID,
					config.Services.Tracker.PublishInterval,
					geolocation.WatchOptions{
						HighAccuracy: config.Services.Tracker.HighAccuracy,
						Timeout:      config.Services.Tracker.WatchTimeout,
						MaximumAge:   config.Services.Tracker.MaximumFixAge,
					},
					participantInfo,
					sr.sampleStore,
					provider,
					sr.notify,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "heartbeat",
			enabled: config.Services.Heartbeat.Enabled,
			constructor: func() (registry.Service, error) {
				return services.NewHeartbeatService(
					config.Services.Heartbeat.Topic,
					config.Services.Heartbeat.Interval,
					config.Services.Heartbeat.QOS,
					participantInfo,
					sr.mqttClient,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "presence",
			enabled: config.Services.Presence.Enabled,
			constructor: func() (registry.Service, error) {
				sessionFeed := feed.NewSessionFeed(
					sr.sampleStore,
					sr.mqttClient,
					config.Services.Presence.QOS,
					config.Services.Presence.StaleAfter,
					sr.Logger,
				)
				view := presence.NewView(
					sr.geocoder,
					config.Services.Presence.FitPadding,
					config.Services.Presence.MaxZoom,
					sr.Logger,
				)
				return services.NewPresenceService(
					config.Session.ID,
					config.Session.PickupAddress,
					sessionFeed,
					view,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "web",
			enabled: config.Services.Web.Enabled,
			constructor: func() (registry.Service, error) {
				presenceSvc, ok := sr.services["presence"].(*services.PresenceService)
				if !ok {
					return nil, errors.New("web service requires the presence service")
				}
				return web.NewServer(
					config.Services.Web.ListenAddr,
					presenceSvc.View(),
					sr.Logger,
				), nil
			},
		},
	}

	for _, def := range servicesInOrder {
		if !def.enabled {
			sr.Logger.Info().Msgf("Service %s is disabled", def.name)
			continue
		}
		svc, err := def.constructor()
		if err != nil {
			return fmt.Errorf("failed to construct service %s: %w", def.name, err)
		}
		sr.RegisterService(def.name, svc)
	}

	return nil
}

// buildLocationProvider selects the device location capability from config:
// a serial GPS sensor, or the Google geolocation API as fallback.
func (sr *ServiceRegistry) buildLocationProvider(config *utils.Config) (geolocation.Provider, error) {
	if config.Services.Tracker.SensorBased {
		return geolocation.NewSerialNMEAProvider(
			config.Services.Tracker.GPSDevicePort,
			config.Services.Tracker.GPSDeviceBaudRate,
		), nil
	}
	return geolocation.NewGoogleGeolocationProvider(
		config.Google.MapsAPIKey,
		config.Services.Tracker.ModemIndex,
	)
}
