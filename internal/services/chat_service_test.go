package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamkkekids/care-agent/internal/models"
	"github.com/hamkkekids/care-agent/pkg/eventbridge"
	"github.com/hamkkekids/care-agent/pkg/extraction"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newChatFixture(backend *MockBackend, historyLimit int) (*ChatService, *eventbridge.Topic[models.MapClickEvent], *eventbridge.Topic[[]models.Place]) {
	mapClicked := eventbridge.NewTopic[models.MapClickEvent]()
	placesFound := eventbridge.NewTopic[[]models.Place]()
	svc := NewChatService(backend, extraction.NewKeywordExtractor(nil, nil, true),
		mapClicked, placesFound, historyLimit, zerolog.Nop())
	return svc, mapClicked, placesFound
}

// TestChatService_SendPublishesExtractedPlaces tests the happy path: the
// answer lands in the transcript and its places cross the bridge normalized.
func TestChatService_SendPublishesExtractedPlaces(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Chat", mock.Anything, "아이랑 갈만한 곳 추천해줘").
		Return(models.ChatResponse{Response: "한강 공원 추천드려요", Urgency: models.UrgencyLow}, nil)

	svc, _, placesFound := newChatFixture(backend, 0)
	assert.NoError(t, svc.Start())
	defer svc.Stop()

	var published [][]models.Place
	placesFound.Subscribe(func(p []models.Place) { published = append(published, p) })

	assert.NoError(t, svc.Send(context.Background(), "아이랑 갈만한 곳 추천해줘"))

	msgs := svc.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, models.MessageUser, msgs[0].Kind)
	assert.Equal(t, "아이랑 갈만한 곳 추천해줘", msgs[0].Content)
	assert.Equal(t, models.MessageAI, msgs[1].Kind)
	assert.Equal(t, "한강 공원 추천드려요", msgs[1].Content)
	assert.Equal(t, models.UrgencyLow, msgs[1].Urgency)

	assert.Len(t, published, 1)
	assert.Len(t, published[0], 1)
	assert.Equal(t, "한강 공원", published[0][0].Name)
}

// TestChatService_SendPrefersBackendPlaces tests that places supplied by the
// backend bypass text mining but still get normalized names.
func TestChatService_SendPrefersBackendPlaces(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Chat", mock.Anything, mock.Anything).
		Return(models.ChatResponse{
			Response: "근처에 좋은 곳이 있어요",
			Places: []models.Place{
				{Name: "OO 키즈카페", Latitude: 37.5444, Longitude: 127.0374},
			},
		}, nil)

	svc, _, placesFound := newChatFixture(backend, 0)
	assert.NoError(t, svc.Start())
	defer svc.Stop()

	var published [][]models.Place
	placesFound.Subscribe(func(p []models.Place) { published = append(published, p) })

	assert.NoError(t, svc.Send(context.Background(), "키즈카페 알려줘"))

	assert.Len(t, published, 1)
	assert.Len(t, published[0], 1)
	assert.Equal(t, "서울 키즈카페", published[0][0].Name)
	assert.Equal(t, 37.5444, published[0][0].Latitude)
	assert.Equal(t, 127.0374, published[0][0].Longitude)
}

// TestChatService_SendFailureAddsApologyEntry tests that a backend failure
// produces exactly one error entry and no propagated error.
func TestChatService_SendFailureAddsApologyEntry(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Chat", mock.Anything, mock.Anything).
		Return(models.ChatResponse{}, errors.New("status 500"))

	svc, _, placesFound := newChatFixture(backend, 0)
	assert.NoError(t, svc.Start())
	defer svc.Stop()

	publishes := 0
	placesFound.Subscribe(func([]models.Place) { publishes++ })

	assert.NoError(t, svc.Send(context.Background(), "놀이터 어디가 좋아?"))

	msgs := svc.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, models.MessageUser, msgs[0].Kind)
	assert.Equal(t, models.MessageAIError, msgs[1].Kind)
	assert.Equal(t, aiErrorMessage, msgs[1].Content)
	assert.Zero(t, publishes)
}

// TestChatService_SendRejectsWhileInFlight tests the single-outstanding
// request guard.
func TestChatService_SendRejectsWhileInFlight(t *testing.T) {
	svc, _, _ := newChatFixture(new(MockBackend), 0)
	assert.NoError(t, svc.Start())
	defer svc.Stop()

	svc.inFlight.Store(true)
	assert.ErrorIs(t, svc.Send(context.Background(), "공원 추천"), ErrBusy)
	assert.Empty(t, svc.Messages())
	svc.inFlight.Store(false)
}

// TestChatService_SendRejectsEmptyMessage tests the empty input guard.
func TestChatService_SendRejectsEmptyMessage(t *testing.T) {
	svc, _, _ := newChatFixture(new(MockBackend), 0)
	assert.NoError(t, svc.Start())
	defer svc.Stop()

	assert.Error(t, svc.Send(context.Background(), ""))
	assert.Empty(t, svc.Messages())
}

// TestChatService_MapClickEntersTranscript tests that a bridged tap becomes
// a location entry.
func TestChatService_MapClickEntersTranscript(t *testing.T) {
	svc, mapClicked, _ := newChatFixture(new(MockBackend), 0)
	assert.NoError(t, svc.Start())
	defer svc.Stop()

	mapClicked.Publish(models.MapClickEvent{
		Latitude:  37.5665,
		Longitude: 126.9780,
		Address:   "서울 중구 세종대로 110",
		Timestamp: time.Now(),
	})

	msgs := svc.Messages()
	assert.Len(t, msgs, 1)
	assert.Equal(t, models.MessageLocation, msgs[0].Kind)
	assert.Contains(t, msgs[0].Content, "서울 중구 세종대로 110")
	assert.Contains(t, msgs[0].Content, "37.5665, 126.9780")
}

// TestChatService_StoppedServiceIgnoresClicks tests that the bridge is
// detached on stop.
func TestChatService_StoppedServiceIgnoresClicks(t *testing.T) {
	svc, mapClicked, _ := newChatFixture(new(MockBackend), 0)
	assert.NoError(t, svc.Start())
	assert.NoError(t, svc.Stop())

	mapClicked.Publish(models.MapClickEvent{Address: "어딘가"})
	assert.Empty(t, svc.Messages())
}

// TestChatService_HistoryLimitTrimsOldest tests the transcript cap.
func TestChatService_HistoryLimitTrimsOldest(t *testing.T) {
	svc, mapClicked, _ := newChatFixture(new(MockBackend), 3)
	assert.NoError(t, svc.Start())
	defer svc.Stop()

	for i := 0; i < 5; i++ {
		mapClicked.Publish(models.MapClickEvent{Address: "장소", Timestamp: time.Now()})
	}

	assert.Len(t, svc.Messages(), 3)
}

// TestChatService_SetExtractorSwapsAtRuntime tests config hot reload of the
// extractor.
func TestChatService_SetExtractorSwapsAtRuntime(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Chat", mock.Anything, mock.Anything).
		Return(models.ChatResponse{Response: "실내 수영장 가보실래요"}, nil)

	svc, _, placesFound := newChatFixture(backend, 0)
	assert.NoError(t, svc.Start())
	defer svc.Stop()

	var published [][]models.Place
	placesFound.Subscribe(func(p []models.Place) { published = append(published, p) })

	svc.SetExtractor(extraction.NewKeywordExtractor(
		[]extraction.KeywordGroup{{Category: "pool", Keywords: []string{"수영장"}}},
		nil, false))

	assert.NoError(t, svc.Send(context.Background(), "수영장 알려줘"))
	assert.Len(t, published, 1)
	assert.Equal(t, "pool", published[0][0].Category)
}
