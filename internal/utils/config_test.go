package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
version: "1.2.0"
backend:
  base_url: "https://api.example.com"
  token_file: "/tmp/token"
  request_timeout: 15s
mqtt:
  broker: "ssl://broker.example.com:8883"
  client_id: "care-agent"
map:
  api_key: "key"
  fit_padding_meters: 75
  indicator_ttl: 2s
services:
  location:
    enabled: true
    provider: "geolocation"
    interval: 30s
    max_fix_age: 60s
    share_windows:
      - "07:00-09:00"
      - "15:00-18:00"
    display_name: "보호자"
  presence:
    enabled: true
    group: "g1"
    qos: 1
    heartbeat_interval: 60s
  chat:
    enabled: true
    history_limit: 100
extraction:
  default_locality: "부산"
  max_query_length: 12
  fallback_whole_text: true
`

// TestLoadConfig_Success tests loading a complete file.
func TestLoadConfig_Success(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, validConfig))
	assert.NoError(t, err)

	assert.Equal(t, "https://api.example.com", config.Backend.BaseURL)
	assert.Equal(t, 15*time.Second, config.Backend.RequestTimeout)
	assert.Equal(t, "ssl://broker.example.com:8883", config.MQTT.Broker)
	assert.Equal(t, 75.0, config.Map.FitPaddingMeters)
	assert.Equal(t, 2*time.Second, config.Map.IndicatorTTL)
	assert.Equal(t, "geolocation", config.Services.Location.Provider)
	assert.Equal(t, []string{"07:00-09:00", "15:00-18:00"}, config.Services.Location.ShareWindows)
	assert.Equal(t, "g1", config.Services.Presence.Group)
	assert.Equal(t, 100, config.Services.Chat.HistoryLimit)
	assert.Equal(t, "부산", config.Extraction.DefaultLocality)
	assert.Equal(t, 12, config.Extraction.MaxQueryLength)
	assert.True(t, config.Extraction.FallbackWholeText)
}

// TestLoadConfig_VersionGate tests the schema version checks.
func TestLoadConfig_VersionGate(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `version: "2.0.0"`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config version")

	_, err = LoadConfig(writeConfig(t, `backend: {base_url: "x"}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing a version")

	_, err = LoadConfig(writeConfig(t, `version: "not-semver"`))
	assert.Error(t, err)
}

// TestLoadConfig_Errors tests missing and malformed files.
func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "version: [broken"))
	assert.Error(t, err)
}

// TestExtractionConfig_NewExtractor tests that the extraction section
// produces a working extractor.
func TestExtractionConfig_NewExtractor(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, validConfig))
	assert.NoError(t, err)

	ext := config.Extraction.NewExtractor()
	got := ext.Extract("OO 공원 추천드려요")
	assert.Len(t, got, 1)
	assert.Equal(t, "부산 공원", got[0].Name)
}

// TestWatchExtraction_ReloadsOnRewrite tests config hot reload of the
// extraction section.
func TestWatchExtraction_ReloadsOnRewrite(t *testing.T) {
	path := writeConfig(t, validConfig)

	reloaded := make(chan ExtractionConfig, 1)
	stop, err := WatchExtraction(path, zerolog.Nop(), func(ec ExtractionConfig) {
		select {
		case reloaded <- ec:
		default:
		}
	})
	assert.NoError(t, err)
	defer stop()

	updated := validConfig + "\n"
	assert.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case ec := <-reloaded:
		assert.Equal(t, "부산", ec.DefaultLocality)
	case <-time.After(3 * time.Second):
		t.Fatal("config rewrite was never observed")
	}
}

// TestWatchExtraction_IgnoresBrokenRewrite tests that a rewrite that fails to
// load does not reach the callback.
func TestWatchExtraction_IgnoresBrokenRewrite(t *testing.T) {
	path := writeConfig(t, validConfig)

	reloads := make(chan struct{}, 4)
	stop, err := WatchExtraction(path, zerolog.Nop(), func(ExtractionConfig) {
		reloads <- struct{}{}
	})
	assert.NoError(t, err)
	defer stop()

	assert.NoError(t, os.WriteFile(path, []byte(`version: "9.0.0"`), 0o644))

	select {
	case <-reloads:
		t.Fatal("broken config should not trigger a reload")
	case <-time.After(300 * time.Millisecond):
	}
}
