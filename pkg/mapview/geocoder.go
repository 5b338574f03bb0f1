package mapview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"
)

// requestTimeout bounds every Maps API round trip.
const requestTimeout = 10 * time.Second

// ErrNoResult is returned when the Maps API answers with an empty result
// set.
var ErrNoResult = errors.New("no result for query")

// Geocoder converts a coordinate into a human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, at LatLng) (string, error)
}

// PlaceSearcher resolves a free-text place query to a coordinate and
// address.
type PlaceSearcher interface {
	Search(ctx context.Context, query string) (LatLng, string, error)
}

// GoogleGeocoder implements Geocoder and PlaceSearcher against the Google
// Maps web services.
type GoogleGeocoder struct {
	client *maps.Client
}

// NewGoogleGeocoder creates a Maps API backed geocoder.
func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GoogleGeocoder{client: c}, nil
}

// ReverseGeocode returns the formatted address of the first geocoding result
// for the coordinate.
func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, at LatLng) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: at.Lat, Lng: at.Lng},
	})
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", ErrNoResult
	}
	return results[0].FormattedAddress, nil
}

// Search runs a text search for the query and returns the top result's
// position and address.
func (g *GoogleGeocoder) Search(ctx context.Context, query string) (LatLng, string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := g.client.TextSearch(ctx, &maps.TextSearchRequest{Query: query})
	if err != nil {
		return LatLng{}, "", err
	}
	if len(resp.Results) == 0 {
		return LatLng{}, "", ErrNoResult
	}

	top := resp.Results[0]
	at := LatLng{Lat: top.Geometry.Location.Lat, Lng: top.Geometry.Location.Lng}
	return at, top.FormattedAddress, nil
}

// FormatCoordinate is the display fallback when reverse geocoding fails: the
// click flow degrades to showing the raw coordinate, it never aborts.
func FormatCoordinate(at LatLng) string {
	return fmt.Sprintf("%.4f, %.4f", at.Lat, at.Lng)
}
