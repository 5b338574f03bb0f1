// Package clients holds HTTP clients for the external collaborators the
// agent consumes.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hamkkekids/care-agent/internal/models"
	"github.com/rs/zerolog"
)

// Backend defines the care backend operations the agent consumes. The
// backend owns children and nearby-guardian data; the agent only mirrors it.
type Backend interface {
	UpdateLocation(ctx context.Context, update models.LocationUpdate) error
	NearbyGuardians(ctx context.Context) ([]models.TrackedEntity, error)
	Children(ctx context.Context) ([]models.TrackedEntity, error)
	Chat(ctx context.Context, message string) (models.ChatResponse, error)
}

// CareBackend is the HTTP implementation of Backend.
type CareBackend struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

// NewCareBackend creates a client for the backend at baseURL, authenticating
// every request with the bearer token.
func NewCareBackend(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *CareBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CareBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// UpdateLocation pushes the local guardian's position.
func (c *CareBackend) UpdateLocation(ctx context.Context, update models.LocationUpdate) error {
	body := struct {
		Lat     float64 `json:"lat"`
		Lng     float64 `json:"lng"`
		Address string  `json:"address"`
	}{update.Latitude, update.Longitude, update.Address}

	return c.do(ctx, http.MethodPut, "/users/location", body, nil)
}

// NearbyGuardians fetches the guardians currently near the user.
func (c *CareBackend) NearbyGuardians(ctx context.Context) ([]models.TrackedEntity, error) {
	var resp struct {
		NearbyParents []struct {
			UID      string                `json:"uid"`
			FullName string                `json:"full_name"`
			Location models.EntityLocation `json:"location"`
		} `json:"nearby_parents"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/nearby-parents", nil, &resp); err != nil {
		return nil, err
	}

	entities := make([]models.TrackedEntity, 0, len(resp.NearbyParents))
	for _, p := range resp.NearbyParents {
		entities = append(entities, models.TrackedEntity{
			ID:          p.UID,
			DisplayName: p.FullName,
			Kind:        models.EntityGuardian,
			Location:    p.Location,
		})
	}
	return entities, nil
}

// Children fetches the user's registered children.
func (c *CareBackend) Children(ctx context.Context) ([]models.TrackedEntity, error) {
	var resp struct {
		Children []struct {
			ID       string                 `json:"id"`
			Name     string                 `json:"name"`
			School   string                 `json:"school"`
			Grade    int                    `json:"grade"`
			Location *models.EntityLocation `json:"location"`
		} `json:"children"`
	}
	if err := c.do(ctx, http.MethodGet, "/children/", nil, &resp); err != nil {
		return nil, err
	}

	var entities []models.TrackedEntity
	for _, ch := range resp.Children {
		// Children without a reported position cannot be rendered.
		if ch.Location == nil {
			continue
		}
		entities = append(entities, models.TrackedEntity{
			ID:          ch.ID,
			DisplayName: ch.Name,
			Kind:        models.EntityChild,
			Location:    *ch.Location,
		})
	}
	return entities, nil
}

// Chat sends a message to the AI coordinator and returns its reply.
func (c *CareBackend) Chat(ctx context.Context, message string) (models.ChatResponse, error) {
	q := url.Values{}
	q.Set("message", message)
	q.Set("mode", "auto")

	var resp models.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/ai/chat?"+q.Encode(), nil, &resp); err != nil {
		return models.ChatResponse{}, err
	}
	return resp, nil
}

func (c *CareBackend) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("path", path).
			Msg("Backend request failed")
		return fmt.Errorf("backend returned status %d for %s %s", resp.StatusCode, method, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
