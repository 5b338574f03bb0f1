package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/hamkkekids/care-agent/internal/clients"
	"github.com/hamkkekids/care-agent/internal/models"
	"github.com/hamkkekids/care-agent/internal/service_registry"
	"github.com/hamkkekids/care-agent/internal/services"
	"github.com/hamkkekids/care-agent/internal/utils"
	"github.com/hamkkekids/care-agent/pkg/eventbridge"
	"github.com/hamkkekids/care-agent/pkg/geo"
	"github.com/hamkkekids/care-agent/pkg/location"
	"github.com/hamkkekids/care-agent/pkg/mapview"
	"github.com/hamkkekids/care-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

const configPath = "configs/config.yaml"

func main() {
	// Set up structured logging with JSON output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	config, err := utils.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	token, err := os.ReadFile(config.Backend.TokenFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to read backend token")
	}

	// Generate a unique MQTT Client ID by appending a UUID
	clientID := config.MQTT.ClientID + "-" + uuid.New().String()
	logger.Info().Str("client_id", clientID).Msg("Using MQTT client ID")

	mqttClient := mqtt.NewMqttService()
	if config.Services.Presence.Enabled {
		if err := mqttClient.Initialize(config.MQTT.Broker, clientID, config.MQTT.CACertificate); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}
	}

	backend := clients.NewCareBackend(config.Backend.BaseURL, strings.TrimSpace(string(token)),
		config.Backend.RequestTimeout, logger)

	geocoder, err := mapview.NewGoogleGeocoder(config.Map.APIKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create geocoder")
	}

	// The event bridge topics are owned here and passed by reference; the
	// map and chat sides never hold a direct reference to each other.
	mapClicked := eventbridge.NewTopic[models.MapClickEvent]()
	placesFound := eventbridge.NewTopic[[]models.Place]()
	locationUpdates := eventbridge.NewTopic[models.LocationUpdate]()

	// The map surface is an explicitly owned resource: acquired here,
	// disposed on shutdown.
	mapHandle := mapview.NewMemoryMap()

	shareWindows, err := geo.ParseWindows(config.Services.Location.ShareWindows)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid share windows in configuration")
	}

	provider, err := buildLocationProvider(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create location provider")
	}

	mapSync := services.NewMapSyncService(mapHandle, geocoder, geocoder, backend,
		mapClicked, placesFound, config.Map.FitPaddingMeters, config.Map.IndicatorTTL, logger)

	chat := services.NewChatService(backend, config.Extraction.NewExtractor(),
		mapClicked, placesFound, config.Services.Chat.HistoryLimit, logger)

	registry := service_registry.NewServiceRegistry(logger)
	registry.Register("map-sync", mapSync)
	if config.Services.Chat.Enabled {
		registry.Register("chat", chat)
	}
	if config.Services.Location.Enabled {
		registry.Register("location", services.NewLocationService(clientID,
			config.Services.Location.DisplayName, shareWindows, provider, backend,
			geocoder, mapSync, locationUpdates, logger))
	}
	if config.Services.Presence.Enabled {
		group := config.Services.Presence.Group
		registry.Register("presence", services.NewPresenceService(
			"care/groups/"+group+"/location",
			"care/groups/"+group+"/heartbeat",
			config.Services.Presence.QOS,
			config.Services.Presence.HeartbeatInterval,
			clientID, mqttClient, mapSync, locationUpdates, logger))
	}

	if err := registry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	// Extraction tuning follows the config file without a restart.
	stopWatch, err := utils.WatchExtraction(configPath, logger, func(ec utils.ExtractionConfig) {
		chat.SetExtractor(ec.NewExtractor())
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Config hot reload unavailable")
	} else {
		defer stopWatch()
	}

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := registry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Some services failed to stop cleanly")
	}
	mapHandle.Dispose()
	if config.Services.Presence.Enabled {
		mqttClient.Disconnect(250)
	}
}

func buildLocationProvider(config *utils.Config, logger zerolog.Logger) (location.Provider, error) {
	if config.Services.Location.Provider == "sensor" {
		return location.NewDeviceSensorProvider(
			config.Services.Location.GPSDevicePort,
			config.Services.Location.GPSDeviceBaudRate,
			logger), nil
	}
	return location.NewGoogleGeolocationProvider(
		config.Map.APIKey,
		config.Services.Location.Interval,
		config.Services.Location.MaxFixAge,
		logger)
}
