package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/hamkkekids/care-agent/internal/models"
	"github.com/hamkkekids/care-agent/pkg/eventbridge"
	"github.com/hamkkekids/care-agent/pkg/mqtt"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/host"
)

// PresenceService shares the guardian group's live positions over the MQTT
// broker: it republishes the agent's own accepted fixes to the group topic
// and mirrors other guardians' updates onto the map. Location updates only
// ever reach the broker after the share-window gate has already accepted
// them, so no additional gating happens here.
type PresenceService struct {
	// Configuration fields
	locationTopic     string
	heartbeatTopic    string
	qos               int
	heartbeatInterval time.Duration
	clientID          string

	// Dependencies
	mqttClient      mqtt.MQTTClient
	mapSync         *MapSyncService
	locationUpdates *eventbridge.Topic[models.LocationUpdate]
	logger          zerolog.Logger

	// Internal state management
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	unsubLocal func()
	running    bool
}

// NewPresenceService creates a new PresenceService instance.
func NewPresenceService(locationTopic, heartbeatTopic string, qos int, heartbeatInterval time.Duration,
	clientID string, mqttClient mqtt.MQTTClient, mapSync *MapSyncService,
	locationUpdates *eventbridge.Topic[models.LocationUpdate], logger zerolog.Logger) *PresenceService {
	if heartbeatInterval <= 0 {
		heartbeatInterval = time.Minute
	}
	return &PresenceService{
		locationTopic:     locationTopic,
		heartbeatTopic:    heartbeatTopic,
		qos:               qos,
		heartbeatInterval: heartbeatInterval,
		clientID:          clientID,
		mqttClient:        mqttClient,
		mapSync:           mapSync,
		locationUpdates:   locationUpdates,
		logger:            logger,
	}
}

// Start subscribes to the group topic and begins the heartbeat loop.
func (p *PresenceService) Start() error {
	if p.running {
		p.logger.Warn().Msg("PresenceService is already running")
		return errors.New("presence service is already running")
	}

	token := p.mqttClient.Subscribe(p.locationTopic, byte(p.qos), p.onGroupLocation)
	if token.Wait() && token.Error() != nil {
		p.logger.Error().Err(token.Error()).Str("topic", p.locationTopic).Msg("Failed to subscribe to group location topic")
		return token.Error()
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.unsubLocal = p.locationUpdates.Subscribe(p.publishOwnLocation)
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.publishHeartbeat()
			case <-p.ctx.Done():
				return
			}
		}
	}()

	p.logger.Info().
		Str("location_topic", p.locationTopic).
		Dur("heartbeat_interval", p.heartbeatInterval).
		Msg("PresenceService started")
	return nil
}

// Stop ends the heartbeat loop and unsubscribes from the group.
func (p *PresenceService) Stop() error {
	if !p.running {
		p.logger.Warn().Msg("PresenceService is not running")
		return errors.New("presence service is not running")
	}

	p.cancel()
	p.unsubLocal()
	p.wg.Wait()

	token := p.mqttClient.Unsubscribe(p.locationTopic)
	if token.Wait() && token.Error() != nil {
		p.logger.Error().Err(token.Error()).Msg("Failed to unsubscribe from group location topic")
		return token.Error()
	}

	p.running = false
	p.logger.Info().Msg("PresenceService stopped")
	return nil
}

// publishOwnLocation forwards an accepted fix to the guardian group.
func (p *PresenceService) publishOwnLocation(update models.LocationUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to serialize location update")
		return
	}

	token := p.mqttClient.Publish(p.locationTopic, byte(p.qos), false, payload)
	if token.Wait() && token.Error() != nil {
		p.logger.Error().Err(token.Error()).Str("topic", p.locationTopic).Msg("Failed to publish location update")
		return
	}
	p.logger.Debug().Str("topic", p.locationTopic).Msg("Shared location with guardian group")
}

// onGroupLocation mirrors another guardian's update onto the map. Own
// echoes are dropped.
func (p *PresenceService) onGroupLocation(_ pahomqtt.Client, msg pahomqtt.Message) {
	var update models.LocationUpdate
	if err := json.Unmarshal(msg.Payload(), &update); err != nil {
		p.logger.Warn().Err(err).Msg("Ignoring malformed group location update")
		return
	}
	if update.ClientID == "" || update.ClientID == p.clientID {
		return
	}

	name := update.DisplayName
	if name == "" {
		name = update.ClientID
	}

	p.mapSync.UpsertGuardian(models.TrackedEntity{
		ID:          update.ClientID,
		DisplayName: name,
		Kind:        models.EntityGuardian,
		Location: models.EntityLocation{
			Latitude:  update.Latitude,
			Longitude: update.Longitude,
			Address:   update.Address,
			UpdatedAt: update.Timestamp,
		},
	})
}

// publishHeartbeat announces liveness with the host uptime.
func (p *PresenceService) publishHeartbeat() {
	uptime, err := host.Uptime()
	if err != nil {
		p.logger.Debug().Err(err).Msg("Failed to read host uptime")
	}

	payload, err := json.Marshal(models.Heartbeat{
		ClientID:      p.clientID,
		UptimeSeconds: uptime,
		Timestamp:     time.Now(),
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to serialize heartbeat")
		return
	}

	token := p.mqttClient.Publish(p.heartbeatTopic, byte(p.qos), false, payload)
	if token.Wait() && token.Error() != nil {
		p.logger.Error().Err(token.Error()).Msg("Failed to publish heartbeat")
	}
}
