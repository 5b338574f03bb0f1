package location

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

// acquireTimeout bounds a single geolocation request.
const acquireTimeout = 10 * time.Second

// GoogleGeolocationProvider polls the Google Maps Geolocation API using
// nearby WiFi access points and cell towers. When a request fails, the last
// fix is re-delivered as long as it is younger than maxFixAge, so brief API
// hiccups do not blank the map.
type GoogleGeolocationProvider struct {
	client    *maps.Client
	interval  time.Duration
	maxFixAge time.Duration
	logger    zerolog.Logger

	lastFix *Sample
}

// NewGoogleGeolocationProvider creates an API-backed provider polling at the
// given interval.
func NewGoogleGeolocationProvider(apiKey string, interval, maxFixAge time.Duration, logger zerolog.Logger) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxFixAge <= 0 {
		maxFixAge = 60 * time.Second
	}
	return &GoogleGeolocationProvider{
		client:    c,
		interval:  interval,
		maxFixAge: maxFixAge,
		logger:    logger,
	}, nil
}

// Watch polls the Geolocation API until ctx is cancelled.
func (g *GoogleGeolocationProvider) Watch(ctx context.Context, fn func(Sample)) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	// First fix immediately rather than one interval in.
	g.deliver(ctx, fn)

	for {
		select {
		case <-ticker.C:
			g.deliver(ctx, fn)
		case <-ctx.Done():
			return nil
		}
	}
}

func (g *GoogleGeolocationProvider) deliver(ctx context.Context, fn func(Sample)) {
	sample, err := g.locate(ctx)
	if err != nil {
		if g.lastFix != nil && time.Since(g.lastFix.Timestamp) < g.maxFixAge {
			g.logger.Debug().Err(err).Msg("Geolocation request failed, re-using cached fix")
			fn(*g.lastFix)
			return
		}
		g.logger.Warn().Err(err).Msg("Geolocation request failed and no fresh cached fix")
		return
	}

	g.lastFix = &sample
	fn(sample)
}

func (g *GoogleGeolocationProvider) locate(ctx context.Context) (Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	req := &maps.GeolocationRequest{ConsiderIP: true}

	// Radio environment data is best effort; IP-based positioning still
	// works without it.
	if wifiAPs, err := getWiFiAccessPoints(ctx); err == nil {
		req.WiFiAccessPoints = wifiAPs
	} else {
		g.logger.Debug().Err(err).Msg("WiFi access point scan unavailable")
	}
	if cellTowers, err := getCellTowers(ctx, 0); err == nil {
		req.CellTowers = cellTowers
	} else {
		g.logger.Debug().Err(err).Msg("Cell tower scan unavailable")
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Sample{}, err
	}

	return Sample{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
		Timestamp: time.Now(),
	}, nil
}

// Close implements Provider; the Maps client holds no resources needing
// release.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}
