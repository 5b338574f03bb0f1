package services

import (
	"context"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/hamkkekids/care-agent/internal/models"
	"github.com/hamkkekids/care-agent/pkg/location"
	"github.com/hamkkekids/care-agent/pkg/mapview"
	"github.com/stretchr/testify/mock"
)

// MockBackend is a testify mock for the care backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) UpdateLocation(ctx context.Context, update models.LocationUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func (m *MockBackend) NearbyGuardians(ctx context.Context) ([]models.TrackedEntity, error) {
	args := m.Called(ctx)
	entities, _ := args.Get(0).([]models.TrackedEntity)
	return entities, args.Error(1)
}

func (m *MockBackend) Children(ctx context.Context) ([]models.TrackedEntity, error) {
	args := m.Called(ctx)
	entities, _ := args.Get(0).([]models.TrackedEntity)
	return entities, args.Error(1)
}

func (m *MockBackend) Chat(ctx context.Context, message string) (models.ChatResponse, error) {
	args := m.Called(ctx, message)
	resp, _ := args.Get(0).(models.ChatResponse)
	return resp, args.Error(1)
}

// MockGeocoder is a testify mock for reverse geocoding.
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) ReverseGeocode(ctx context.Context, at mapview.LatLng) (string, error) {
	args := m.Called(ctx, at)
	return args.String(0), args.Error(1)
}

// MockPlaceSearcher is a testify mock for place search.
type MockPlaceSearcher struct {
	mock.Mock
}

func (m *MockPlaceSearcher) Search(ctx context.Context, query string) (mapview.LatLng, string, error) {
	args := m.Called(ctx, query)
	at, _ := args.Get(0).(mapview.LatLng)
	return at, args.String(1), args.Error(2)
}

// MockMQTTClient is a testify mock for the broker client.
type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) Connect() pahomqtt.Token {
	args := m.Called()
	return args.Get(0).(pahomqtt.Token)
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(pahomqtt.Token)
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	args := m.Called(topic, qos, callback)
	return args.Get(0).(pahomqtt.Token)
}

func (m *MockMQTTClient) Unsubscribe(topics ...string) pahomqtt.Token {
	args := m.Called(topics)
	return args.Get(0).(pahomqtt.Token)
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

// stubToken is a completed MQTT token carrying an optional error.
type stubToken struct {
	err error
}

func (t *stubToken) Wait() bool                     { return true }
func (t *stubToken) WaitTimeout(time.Duration) bool { return true }
func (t *stubToken) Error() error                   { return t.err }
func (t *stubToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// stubMessage is an inbound MQTT message carrying a fixed payload.
type stubMessage struct {
	topic   string
	payload []byte
}

func (m *stubMessage) Duplicate() bool   { return false }
func (m *stubMessage) Qos() byte         { return 1 }
func (m *stubMessage) Retained() bool    { return false }
func (m *stubMessage) Topic() string     { return m.topic }
func (m *stubMessage) MessageID() uint16 { return 1 }
func (m *stubMessage) Payload() []byte   { return m.payload }
func (m *stubMessage) Ack()              {}

// stubProvider replays fixed samples, then blocks until the watch is
// cancelled or fails with the configured error.
type stubProvider struct {
	samples []location.Sample
	err     error
	closed  bool
}

func (p *stubProvider) Watch(ctx context.Context, fn func(location.Sample)) error {
	for _, s := range p.samples {
		fn(s)
	}
	if p.err != nil {
		return p.err
	}
	<-ctx.Done()
	return nil
}

func (p *stubProvider) Close() error {
	p.closed = true
	return nil
}
