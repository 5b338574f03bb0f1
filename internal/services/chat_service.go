package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hamkkekids/care-agent/internal/clients"
	"github.com/hamkkekids/care-agent/internal/models"
	"github.com/hamkkekids/care-agent/pkg/eventbridge"
	"github.com/hamkkekids/care-agent/pkg/extraction"
	"github.com/rs/zerolog"
)

// aiErrorMessage is shown in place of an AI answer when the backend call
// fails. The user retries by resending.
const aiErrorMessage = "죄송합니다. 일시적인 오류가 발생했습니다. 다시 시도해 주세요."

// ErrBusy is returned when a send arrives while an AI request is still in
// flight. At most one request is outstanding at a time, which sidesteps
// response reordering entirely.
var ErrBusy = errors.New("an AI request is already in flight")

// defaultHistoryLimit bounds the in-memory transcript.
const defaultHistoryLimit = 200

// ChatService runs the AI chat session: it sends user messages, mines the
// answers for places and forwards them to the map, and folds map clicks back
// into the transcript.
type ChatService struct {
	// Configuration fields
	historyLimit int

	// Dependencies
	backend     clients.Backend
	mapClicked  *eventbridge.Topic[models.MapClickEvent]
	placesFound *eventbridge.Topic[[]models.Place]
	logger      zerolog.Logger

	// extractor is swappable at runtime for config hot reload.
	extractor atomic.Pointer[extraction.Extractor]

	// Internal state management
	mu       sync.Mutex
	messages []models.ChatMessage
	inFlight atomic.Bool
	unsubMap func()
	running  bool
}

// NewChatService creates a new ChatService instance.
func NewChatService(backend clients.Backend, extractor extraction.Extractor,
	mapClicked *eventbridge.Topic[models.MapClickEvent], placesFound *eventbridge.Topic[[]models.Place],
	historyLimit int, logger zerolog.Logger) *ChatService {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	c := &ChatService{
		historyLimit: historyLimit,
		backend:      backend,
		mapClicked:   mapClicked,
		placesFound:  placesFound,
		logger:       logger,
	}
	c.extractor.Store(&extractor)
	return c
}

// SetExtractor swaps the place extractor; used by config hot reload.
func (c *ChatService) SetExtractor(extractor extraction.Extractor) {
	c.extractor.Store(&extractor)
}

// Start subscribes the transcript to map clicks.
func (c *ChatService) Start() error {
	if c.running {
		c.logger.Warn().Msg("ChatService is already running")
		return errors.New("chat service is already running")
	}
	c.unsubMap = c.mapClicked.Subscribe(c.onMapClick)
	c.running = true
	c.logger.Info().Int("history_limit", c.historyLimit).Msg("ChatService started")
	return nil
}

// Stop detaches from the bridge. In-flight requests are not aborted; their
// results land in the transcript whenever they complete.
func (c *ChatService) Stop() error {
	if !c.running {
		c.logger.Warn().Msg("ChatService is not running")
		return errors.New("chat service is not running")
	}
	c.unsubMap()
	c.running = false
	c.logger.Info().Msg("ChatService stopped")
	return nil
}

// Send submits a user message to the AI coordinator. The user entry is
// appended optimistically before the round trip. A backend failure adds the
// canonical apology entry instead of propagating.
func (c *ChatService) Send(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("empty message")
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.inFlight.Store(false)

	c.append(models.ChatMessage{
		ID:        uuid.New().String(),
		Kind:      models.MessageUser,
		Content:   text,
		Timestamp: time.Now(),
	})

	resp, err := c.backend.Chat(ctx, text)
	if err != nil {
		c.logger.Error().Err(err).Msg("AI chat request failed")
		c.append(models.ChatMessage{
			ID:        uuid.New().String(),
			Kind:      models.MessageAIError,
			Content:   aiErrorMessage,
			Timestamp: time.Now(),
		})
		return nil
	}

	c.append(models.ChatMessage{
		ID:        uuid.New().String(),
		Kind:      models.MessageAI,
		Content:   resp.Text(),
		Urgency:   resp.Urgency,
		Timestamp: time.Now(),
	})

	if places := c.placesFrom(resp); len(places) > 0 {
		c.placesFound.Publish(places)
	}
	return nil
}

// placesFrom prefers places the backend supplied directly; otherwise the
// answer text is mined. Either way, names go through normalization so the
// map never searches a raw sentence fragment.
func (c *ChatService) placesFrom(resp models.ChatResponse) []models.Place {
	ext := *c.extractor.Load()

	if len(resp.Places) > 0 {
		places := make([]models.Place, 0, len(resp.Places))
		for _, p := range resp.Places {
			candidates := ext.Extract(p.Name)
			if len(candidates) > 0 {
				p.Name = candidates[0].Name
			}
			places = append(places, p)
		}
		return places
	}

	text := resp.Text()
	if text == "" {
		return nil
	}

	candidates := ext.Extract(text)
	places := make([]models.Place, 0, len(candidates))
	for _, cand := range candidates {
		places = append(places, models.Place{
			Name:     cand.Name,
			Category: cand.Category,
		})
	}
	return places
}

// onMapClick folds a tapped coordinate into the transcript so the user can
// ask about it.
func (c *ChatService) onMapClick(ev models.MapClickEvent) {
	content := fmt.Sprintf("📍 지도에서 선택한 위치입니다.\n주소: %s\n좌표: %.4f, %.4f",
		ev.Address, ev.Latitude, ev.Longitude)
	c.append(models.ChatMessage{
		ID:        uuid.New().String(),
		Kind:      models.MessageLocation,
		Content:   content,
		Timestamp: ev.Timestamp,
	})
}

// Messages returns a copy of the transcript.
func (c *ChatService) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *ChatService) append(msg models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	if len(c.messages) > c.historyLimit {
		c.messages = c.messages[len(c.messages)-c.historyLimit:]
	}
}
