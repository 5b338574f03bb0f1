package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hamkkekids/care-agent/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *CareBackend {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewCareBackend(server.URL, "test-token", 5*time.Second, zerolog.Nop())
}

// TestCareBackend_UpdateLocation tests the outbound position payload and
// authentication.
func TestCareBackend_UpdateLocation(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/users/location", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body struct {
			Lat     float64 `json:"lat"`
			Lng     float64 `json:"lng"`
			Address string  `json:"address"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 37.5665, body.Lat)
		assert.Equal(t, 126.9780, body.Lng)
		assert.Equal(t, "서울 중구", body.Address)

		w.WriteHeader(http.StatusNoContent)
	})

	err := backend.UpdateLocation(context.Background(), models.LocationUpdate{
		Latitude:  37.5665,
		Longitude: 126.9780,
		Address:   "서울 중구",
	})
	assert.NoError(t, err)
}

// TestCareBackend_NearbyGuardians tests the nearby-parents response mapping.
func TestCareBackend_NearbyGuardians(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/nearby-parents", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"nearby_parents": [
				{"uid": "u1", "full_name": "김보호", "location": {"lat": 37.5, "lng": 127.0, "address": "서울"}}
			]
		}`))
	})

	guardians, err := backend.NearbyGuardians(context.Background())
	assert.NoError(t, err)
	assert.Len(t, guardians, 1)
	assert.Equal(t, "u1", guardians[0].ID)
	assert.Equal(t, "김보호", guardians[0].DisplayName)
	assert.Equal(t, models.EntityGuardian, guardians[0].Kind)
	assert.Equal(t, 37.5, guardians[0].Location.Latitude)
}

// TestCareBackend_Children tests that children without a reported location
// are filtered out.
func TestCareBackend_Children(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/children/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"children": [
				{"id": "c1", "name": "지우", "location": {"lat": 37.55, "lng": 126.99}},
				{"id": "c2", "name": "민준", "location": null}
			]
		}`))
	})

	children, err := backend.Children(context.Background())
	assert.NoError(t, err)
	assert.Len(t, children, 1)
	assert.Equal(t, "c1", children[0].ID)
	assert.Equal(t, models.EntityChild, children[0].Kind)
}

// TestCareBackend_Chat tests the chat round trip and query encoding.
func TestCareBackend_Chat(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ai/chat", r.URL.Path)
		assert.Equal(t, "놀이터 추천해줘", r.URL.Query().Get("message"))
		assert.Equal(t, "auto", r.URL.Query().Get("mode"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response": "한강 공원 추천드려요", "urgency": "low"}`))
	})

	resp, err := backend.Chat(context.Background(), "놀이터 추천해줘")
	assert.NoError(t, err)
	assert.Equal(t, "한강 공원 추천드려요", resp.Text())
	assert.Equal(t, "low", resp.Urgency)
}

// TestCareBackend_ChatResponseKeys tests that any of the historical answer
// keys is accepted.
func TestCareBackend_ChatResponseKeys(t *testing.T) {
	bodies := []string{
		`{"message": "답변"}`,
		`{"response": "답변"}`,
		`{"coordination_result": "답변"}`,
	}
	for _, body := range bodies {
		payload := body
		backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		})
		resp, err := backend.Chat(context.Background(), "질문")
		assert.NoError(t, err)
		assert.Equal(t, "답변", resp.Text(), "body %s", payload)
	}
}

// TestCareBackend_ErrorStatus tests non-2xx handling.
func TestCareBackend_ErrorStatus(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := backend.Chat(context.Background(), "질문")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	err = backend.UpdateLocation(context.Background(), models.LocationUpdate{})
	assert.Error(t, err)
}
