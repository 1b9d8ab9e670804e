package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/foodshare/pickup-tracker/internal/service_registry"
	"github.com/foodshare/pickup-tracker/internal/store"
	"github.com/foodshare/pickup-tracker/internal/utils"
	"github.com/foodshare/pickup-tracker/pkg/file"
	"github.com/foodshare/pickup-tracker/pkg/geocode"
	"github.com/foodshare/pickup-tracker/pkg/identity"
	"github.com/foodshare/pickup-tracker/pkg/mqtt"
)

func main() {
	// Set up structured logging with JSON output
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig("configs/config.yaml", fileClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Generate a unique MQTT Client ID by appending a UUID
	config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	log.Info().Str("client_id", config.MQTT.ClientID).Msg("Using MQTT Client ID")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient)
	err = mqttClient.Initialize(config.MQTT.Broker, config.MQTT.ClientID, config.MQTT.CACertificate)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	// Load the participant identity
	participantInfo := identity.NewParticipantInfo(config.Identity.ParticipantFile, fileClient)
	err = participantInfo.LoadIdentity()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load participant identity")
	}

	// First run on this device: provision a stable participant id and persist it
	if participantInfo.GetParticipantID() == "" {
		if err := participantInfo.SaveParticipantID(uuid.New().String()); err != nil {
			log.Fatal().Err(err).Msg("Failed to provision participant identity")
		}
		log.Info().Str("participant_id", participantInfo.GetParticipantID()).Msg("Provisioned new participant identity")
	}

	// Connect to the shared position-sample store
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, config.Store.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the position store")
	}
	defer pool.Close()

	pgStore := store.NewPostgresStore(pool, log)
	if config.Store.EnsureSchema {
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure store schema")
		}
	}

	// Every successful mutation fans out a change event over MQTT
	sampleStore := store.NewNotifyingStore(pgStore, mqttClient, config.Store.NotifyQOS, log)

	// Geocoder for the pickup address marker
	var geocoder geocode.Geocoder
	if config.Google.MapsAPIKey != "" {
		geocoder, err = geocode.NewGoogleGeocoder(config.Google.MapsAPIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create geocoder")
		}
	} else {
		log.Warn().Msg("No maps API key configured; pickup address will not be resolved")
	}

	// User-facing notifications surface on the console
	noticeLog := log.With().Str("module", "notice").Logger()
	notify := func(message string, err error) {
		if err != nil {
			noticeLog.Warn().Err(err).Msg(message)
			return
		}
		noticeLog.Info().Msg(message)
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, sampleStore, geocoder, notify, log)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config, participantInfo); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Failed to stop some services")
	}
	mqttClient.Disconnect(250)
}
