package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hamkkekids/care-agent/internal/clients"
	"github.com/hamkkekids/care-agent/internal/models"
	"github.com/hamkkekids/care-agent/pkg/eventbridge"
	"github.com/hamkkekids/care-agent/pkg/geo"
	"github.com/hamkkekids/care-agent/pkg/location"
	"github.com/hamkkekids/care-agent/pkg/mapview"
	"github.com/rs/zerolog"
)

// TrackingState is the user-visible state of location tracking.
type TrackingState string

const (
	TrackingStopped TrackingState = "stopped"
	TrackingActive  TrackingState = "active"
	TrackingDenied  TrackingState = "denied"
)

// LocationService watches the positioning source and distributes fixes: the
// map always gets them, the backend only inside the configured
// pickup/drop-off windows. Keeping positions on the device outside those
// windows is a privacy decision, not a gap.
type LocationService struct {
	// Configuration fields
	clientID     string
	displayName  string
	shareWindows geo.WindowSet

	// Dependencies
	provider        location.Provider
	backend         clients.Backend
	geocoder        mapview.Geocoder
	mapSync         *MapSyncService
	locationUpdates *eventbridge.Topic[models.LocationUpdate]
	logger          zerolog.Logger

	// now is the clock used for window gating; tests substitute it.
	now func() time.Time

	// Internal state management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	state   TrackingState
	running bool
}

// NewLocationService creates a new LocationService instance.
func NewLocationService(clientID, displayName string, shareWindows geo.WindowSet,
	provider location.Provider, backend clients.Backend, geocoder mapview.Geocoder,
	mapSync *MapSyncService, locationUpdates *eventbridge.Topic[models.LocationUpdate],
	logger zerolog.Logger) *LocationService {
	return &LocationService{
		clientID:        clientID,
		displayName:     displayName,
		shareWindows:    shareWindows,
		provider:        provider,
		backend:         backend,
		geocoder:        geocoder,
		mapSync:         mapSync,
		locationUpdates: locationUpdates,
		logger:          logger,
		now:             time.Now,
		state:           TrackingStopped,
	}
}

// Start begins the continuous watch.
func (l *LocationService) Start() error {
	if l.running {
		l.logger.Warn().Msg("LocationService is already running")
		return errors.New("location service is already running")
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.running = true
	l.setState(TrackingActive)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		err := l.provider.Watch(l.ctx, l.handleSample)
		if err == nil {
			return
		}
		if errors.Is(err, location.ErrPermissionDenied) {
			// Tracking halts and the denial is surfaced; no position ever
			// reaches the backend in this state.
			l.logger.Error().Err(err).Msg("Location permission denied, tracking halted")
			l.setState(TrackingDenied)
			return
		}
		l.logger.Error().Err(err).Msg("Location watch ended unexpectedly")
		l.setState(TrackingStopped)
	}()

	l.logger.Info().
		Str("share_windows", windowsString(l.shareWindows)).
		Msg("LocationService started")
	return nil
}

// Stop clears the active watch and closes the provider.
func (l *LocationService) Stop() error {
	if !l.running {
		l.logger.Warn().Msg("LocationService is not running")
		return errors.New("location service is not running")
	}

	l.cancel()
	l.wg.Wait()

	if err := l.provider.Close(); err != nil {
		l.logger.Error().Err(err).Msg("Failed to close location provider")
		return err
	}

	l.running = false
	l.setState(TrackingStopped)
	l.logger.Info().Msg("LocationService stopped")
	return nil
}

// State returns the user-visible tracking state.
func (l *LocationService) State() TrackingState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *LocationService) setState(s TrackingState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// handleSample processes one fix: update the local map, then share it if the
// clock is inside a pickup/drop-off window.
func (l *LocationService) handleSample(sample location.Sample) {
	update := models.LocationUpdate{
		ClientID:    l.clientID,
		DisplayName: l.displayName,
		Latitude:    sample.Latitude,
		Longitude:   sample.Longitude,
		Timestamp:   sample.Timestamp,
	}

	// Address is best effort; the fix is useful without it.
	if l.geocoder != nil {
		if addr, err := l.geocoder.ReverseGeocode(l.ctx, mapview.LatLng{Lat: sample.Latitude, Lng: sample.Longitude}); err == nil {
			update.Address = addr
		} else {
			l.logger.Debug().Err(err).Msg("Reverse geocoding of own fix failed")
		}
	}

	l.mapSync.SetSelf(models.TrackedEntity{
		ID:          l.clientID,
		DisplayName: l.displayName,
		Kind:        models.EntitySelf,
		Location: models.EntityLocation{
			Latitude:  sample.Latitude,
			Longitude: sample.Longitude,
			Address:   update.Address,
			UpdatedAt: sample.Timestamp,
		},
	})

	if !l.shareWindows.Contains(l.now()) {
		l.logger.Debug().Msg("Outside share windows, position kept on device")
		return
	}

	if err := l.backend.UpdateLocation(l.ctx, update); err != nil {
		l.logger.Error().Err(err).Msg("Failed to push location to backend")
		return
	}

	// Announce the accepted fix so the presence service can share it.
	l.locationUpdates.Publish(update)

	// Proximity membership may have changed; refresh the nearby set.
	l.refreshNearby()
}

// refreshNearby mirrors the nearby-guardian set. A failed fetch means no
// change to the guardian snapshot.
func (l *LocationService) refreshNearby() {
	ctx, cancel := context.WithTimeout(l.ctx, 15*time.Second)
	defer cancel()

	guardians, err := l.backend.NearbyGuardians(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("Failed to refresh nearby guardians")
		return
	}
	l.mapSync.SetGuardians(guardians)
}

func windowsString(ws geo.WindowSet) string {
	out := ""
	for i, w := range ws {
		if i > 0 {
			out += ","
		}
		out += w.String()
	}
	return out
}
