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
	"github.com/hamkkekids/care-agent/pkg/mapview"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// markerRecord correlates a logical entity with its live marker handle.
type markerRecord struct {
	entity models.TrackedEntity
	handle mapview.Marker
}

// MapSyncService owns the map viewport and marker lifecycle. It merges four
// entity streams (self, children, nearby guardians, extracted places) into
// marker create/remove operations, refits the viewport after every change,
// and bridges map clicks into the chat panel. It is the only component
// allowed to mutate marker state.
type MapSyncService struct {
	// Configuration fields
	fitPaddingMeters float64
	indicatorTTL     time.Duration

	// Dependencies
	mapHandle   mapview.Map
	geocoder    mapview.Geocoder
	searcher    mapview.PlaceSearcher
	backend     clients.Backend
	mapClicked  *eventbridge.Topic[models.MapClickEvent]
	placesFound *eventbridge.Topic[[]models.Place]
	logger      zerolog.Logger

	// Marker registry: exactly one record per entity kind:id.
	markers cmap.ConcurrentMap[string, *markerRecord]

	// Snapshot state, replaced wholesale by the setters.
	mu        sync.Mutex
	self      *models.TrackedEntity
	children  []models.TrackedEntity
	guardians map[string]models.TrackedEntity
	places    []models.TrackedEntity
	resolved  map[string]models.Place

	// Internal state management
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	cancelClick func()
	unsubPlaces func()
}

// NewMapSyncService creates a MapSyncService around the given map surface.
func NewMapSyncService(mapHandle mapview.Map, geocoder mapview.Geocoder, searcher mapview.PlaceSearcher,
	backend clients.Backend, mapClicked *eventbridge.Topic[models.MapClickEvent],
	placesFound *eventbridge.Topic[[]models.Place], fitPaddingMeters float64, indicatorTTL time.Duration,
	logger zerolog.Logger) *MapSyncService {
	if fitPaddingMeters <= 0 {
		fitPaddingMeters = 50
	}
	if indicatorTTL <= 0 {
		indicatorTTL = 3 * time.Second
	}
	return &MapSyncService{
		fitPaddingMeters: fitPaddingMeters,
		indicatorTTL:     indicatorTTL,
		mapHandle:        mapHandle,
		geocoder:         geocoder,
		searcher:         searcher,
		backend:          backend,
		mapClicked:       mapClicked,
		placesFound:      placesFound,
		logger:           logger,
		markers:          cmap.New[*markerRecord](),
		guardians:        make(map[string]models.TrackedEntity),
		resolved:         make(map[string]models.Place),
	}
}

// Start registers the map click listener, subscribes to extracted places and
// loads the initial children snapshot.
func (m *MapSyncService) Start() error {
	if m.running {
		m.logger.Warn().Msg("MapSyncService is already running")
		return errors.New("map sync service is already running")
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())

	cancelClick, err := m.mapHandle.OnClick(m.onMapClick)
	if err != nil {
		// Without a live map surface this view is unusable.
		m.logger.Error().Err(err).Msg("Failed to register map click listener")
		m.cancel()
		return err
	}
	m.cancelClick = cancelClick

	m.unsubPlaces = m.placesFound.Subscribe(m.SetPlaces)

	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.loadChildren()
	}()

	m.logger.Info().
		Float64("fit_padding_m", m.fitPaddingMeters).
		Dur("indicator_ttl", m.indicatorTTL).
		Msg("MapSyncService started")
	return nil
}

// Stop removes every marker, detaches the listeners and waits for in-flight
// work.
func (m *MapSyncService) Stop() error {
	if !m.running {
		m.logger.Warn().Msg("MapSyncService is not running")
		return errors.New("map sync service is not running")
	}

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	m.cancel()
	m.cancelClick()
	m.unsubPlaces()
	m.wg.Wait()

	// Teardown destroys every marker record.
	for _, key := range m.markers.Keys() {
		if rec, ok := m.markers.Get(key); ok {
			if err := m.mapHandle.RemoveMarker(rec.handle); err != nil {
				m.logger.Debug().Err(err).Str("key", key).Msg("Failed to remove marker during teardown")
			}
		}
		m.markers.Remove(key)
	}

	m.logger.Info().Msg("MapSyncService stopped")
	return nil
}

// SetSelf replaces the local guardian's entity and reconciles markers.
func (m *MapSyncService) SetSelf(entity models.TrackedEntity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity.Kind = models.EntitySelf
	m.self = &entity
	m.sync()
}

// SetChildren replaces the children snapshot and reconciles markers.
func (m *MapSyncService) SetChildren(children []models.TrackedEntity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children = children
	m.sync()
}

// SetGuardians replaces the nearby-guardian snapshot and reconciles markers.
func (m *MapSyncService) SetGuardians(guardians []models.TrackedEntity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guardians = make(map[string]models.TrackedEntity, len(guardians))
	for _, g := range guardians {
		m.guardians[g.ID] = g
	}
	m.sync()
}

// UpsertGuardian merges a single live guardian update into the snapshot.
// Presence updates arriving over the broker land here.
func (m *MapSyncService) UpsertGuardian(guardian models.TrackedEntity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	guardian.Kind = models.EntityGuardian
	m.guardians[guardian.ID] = guardian
	m.sync()
}

// SetPlaces replaces the searched-place snapshot. Places without coordinates
// are resolved through the place search first; unresolvable ones are
// dropped from display, never fatal.
func (m *MapSyncService) SetPlaces(places []models.Place) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entities []models.TrackedEntity
	for _, p := range places {
		resolved, ok := m.resolvePlace(p)
		if !ok {
			continue
		}
		id := resolved.ID
		if id == "" {
			id = resolved.Name
		}
		entities = append(entities, models.TrackedEntity{
			ID:          id,
			DisplayName: resolved.Name,
			Kind:        models.EntityPlace,
			Location: models.EntityLocation{
				Latitude:  resolved.Latitude,
				Longitude: resolved.Longitude,
				Address:   resolved.Address,
				UpdatedAt: time.Now(),
			},
		})
	}
	m.places = entities
	m.sync()
}

// resolvePlace fills in coordinates via the place searcher, caching results
// per query so repeated AI answers do not re-search.
func (m *MapSyncService) resolvePlace(p models.Place) (models.Place, bool) {
	if p.HasCoordinates() {
		return p, true
	}
	if p.Name == "" {
		return p, false
	}
	if cached, ok := m.resolved[p.Name]; ok {
		return cached, true
	}
	if m.searcher == nil {
		return p, false
	}

	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	at, address, err := m.searcher.Search(ctx, p.Name)
	if err != nil {
		m.logger.Warn().Err(err).Str("query", p.Name).Msg("Place search failed, dropping place from display")
		return p, false
	}

	p.Latitude = at.Lat
	p.Longitude = at.Lng
	if p.Address == "" {
		p.Address = address
	}
	m.resolved[p.Name] = p
	return p, true
}

// sync reconciles the marker registry with the current snapshots. Callers
// hold m.mu. A changed position is remove-then-recreate; an entity whose
// position is unchanged is never removed, which also keeps the self marker
// from flickering when only accuracy or timestamp drift on a noisy fix.
func (m *MapSyncService) sync() {
	if !m.running {
		return
	}

	desired := make(map[string]models.TrackedEntity)
	if m.self != nil {
		desired[m.self.Key()] = *m.self
	}
	for _, c := range m.children {
		desired[c.Key()] = c
	}
	for _, g := range m.guardians {
		desired[g.Key()] = g
	}
	for _, p := range m.places {
		desired[p.Key()] = p
	}

	mutated := false

	for _, key := range m.markers.Keys() {
		rec, ok := m.markers.Get(key)
		if !ok {
			continue
		}
		entity, keep := desired[key]
		if keep && !renderChanged(rec.entity, entity) {
			// Same place on the map; refresh bookkeeping only.
			rec.entity = entity
			delete(desired, key)
			continue
		}
		if err := m.mapHandle.RemoveMarker(rec.handle); err != nil {
			m.logger.Debug().Err(err).Str("key", key).Msg("Failed to remove marker")
		}
		m.markers.Remove(key)
		mutated = true
	}

	for key, entity := range desired {
		handle, err := m.mapHandle.AddMarker(mapview.MarkerOptions{
			Position: mapview.LatLng{Lat: entity.Location.Latitude, Lng: entity.Location.Longitude},
			Title:    entity.DisplayName,
			Role:     iconRole(entity.Kind),
			InfoText: infoText(entity),
		})
		if err != nil {
			m.logger.Debug().Err(err).Str("key", key).Msg("Failed to create marker")
			continue
		}
		m.markers.Set(key, &markerRecord{entity: entity, handle: handle})
		mutated = true
	}

	if mutated {
		m.fitBounds()
	}
}

// renderChanged reports whether the entity needs a new marker.
func renderChanged(prev, cur models.TrackedEntity) bool {
	return prev.Location.Latitude != cur.Location.Latitude ||
		prev.Location.Longitude != cur.Location.Longitude ||
		prev.DisplayName != cur.DisplayName
}

// fitBounds recomputes the viewport over all rendered markers. With zero
// markers the viewport is left alone.
func (m *MapSyncService) fitBounds() {
	bounds := geo.NewBounds()
	for _, key := range m.markers.Keys() {
		if rec, ok := m.markers.Get(key); ok {
			pos := rec.handle.Position()
			bounds = bounds.Extend(geo.Point{Latitude: pos.Lat, Longitude: pos.Lng})
		}
	}
	if bounds.IsEmpty() {
		return
	}

	bounds = bounds.Pad(m.fitPaddingMeters)
	err := m.mapHandle.FitBounds(mapview.Viewport{
		SouthWest: mapview.LatLng{Lat: bounds.MinLat, Lng: bounds.MinLng},
		NorthEast: mapview.LatLng{Lat: bounds.MaxLat, Lng: bounds.MaxLng},
	})
	if err != nil {
		m.logger.Debug().Err(err).Msg("Failed to fit viewport")
	}
}

// onMapClick reverse-geocodes the tapped coordinate, drops a transient
// indicator, and forwards the click to the chat panel. Geocoding failure
// degrades to the raw coordinate; it never aborts the flow.
func (m *MapSyncService) onMapClick(at mapview.LatLng) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		address := ""
		if m.geocoder != nil {
			addr, err := m.geocoder.ReverseGeocode(m.ctx, at)
			if err != nil {
				m.logger.Debug().Err(err).Msg("Reverse geocoding failed, showing raw coordinate")
			} else {
				address = addr
			}
		}
		if address == "" {
			address = mapview.FormatCoordinate(at)
		}

		if handle, err := m.mapHandle.AddMarker(mapview.MarkerOptions{
			Position: at,
			Title:    address,
			Role:     mapview.IconIndicator,
		}); err == nil {
			time.AfterFunc(m.indicatorTTL, func() {
				_ = m.mapHandle.RemoveMarker(handle)
			})
		}

		m.mapClicked.Publish(models.MapClickEvent{
			Latitude:  at.Lat,
			Longitude: at.Lng,
			Address:   address,
			Timestamp: time.Now(),
		})
	}()
}

// loadChildren mirrors the registered children from the backend. A failed
// fetch is no change to the children snapshot.
func (m *MapSyncService) loadChildren() {
	ctx, cancel := context.WithTimeout(m.ctx, 15*time.Second)
	defer cancel()

	children, err := m.backend.Children(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to load children from backend")
		return
	}
	m.SetChildren(children)
	m.logger.Info().Int("count", len(children)).Msg("Loaded children")
}

// MarkerCount reports how many markers the registry holds.
func (m *MapSyncService) MarkerCount() int {
	return m.markers.Count()
}

func iconRole(kind models.EntityKind) mapview.IconRole {
	switch kind {
	case models.EntitySelf:
		return mapview.IconSelf
	case models.EntityChild:
		return mapview.IconChild
	case models.EntityGuardian:
		return mapview.IconGuardian
	default:
		return mapview.IconPlace
	}
}

func infoText(e models.TrackedEntity) string {
	text := e.DisplayName
	if e.Location.Address != "" {
		text += "\n" + e.Location.Address
	}
	if !e.Location.UpdatedAt.IsZero() {
		text += "\n" + e.Location.UpdatedAt.Format("15:04")
	}
	return text
}
