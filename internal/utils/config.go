package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/hamkkekids/care-agent/pkg/extraction"
	"gopkg.in/yaml.v3"
)

// supportedConfigMajor is the config schema major version this build
// understands. A newer major means the file carries settings this agent
// would silently ignore, so loading refuses it.
const supportedConfigMajor = 1

// Config represents the structure of the configuration file.
type Config struct {
	Version string `yaml:"version"` // Config schema version

	Backend struct {
		BaseURL        string        `yaml:"base_url"`        // Care backend base URL
		TokenFile      string        `yaml:"token_file"`      // Path to the bearer token file
		RequestTimeout time.Duration `yaml:"request_timeout"` // Timeout per backend request
	} `yaml:"backend"`

	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate (optional)
	} `yaml:"mqtt"`

	Map struct {
		APIKey           string        `yaml:"api_key"`            // Maps API key for geocoding/search
		FitPaddingMeters float64       `yaml:"fit_padding_meters"` // Viewport padding around markers
		IndicatorTTL     time.Duration `yaml:"indicator_ttl"`      // Lifetime of the click indicator
	} `yaml:"map"`

	Services struct {
		Location struct {
			Enabled           bool          `yaml:"enabled"`         // Enable/disable location tracking
			Provider          string        `yaml:"provider"`        // "sensor" or "geolocation"
			GPSDevicePort     string        `yaml:"gps_device_port"` // UNIX port where the GPS sensor is mounted
			GPSDeviceBaudRate int           `yaml:"gps_baud_rate"`   // Baud rate for the GPS sensor
			Interval          time.Duration `yaml:"interval"`        // Poll interval for the geolocation API provider
			MaxFixAge         time.Duration `yaml:"max_fix_age"`     // Tolerance for re-using a cached fix
			ShareWindows      []string      `yaml:"share_windows"`   // Pickup/drop-off windows, "HH:MM-HH:MM"
			DisplayName       string        `yaml:"display_name"`    // Name shown to other guardians
		} `yaml:"location"`

		Presence struct {
			Enabled           bool          `yaml:"enabled"`            // Enable/disable group presence sharing
			Group             string        `yaml:"group"`              // Guardian group ID
			QOS               int           `yaml:"qos"`                // MQTT QoS level for presence messages
			HeartbeatInterval time.Duration `yaml:"heartbeat_interval"` // Interval between heartbeats
		} `yaml:"presence"`

		Chat struct {
			Enabled      bool `yaml:"enabled"`       // Enable/disable the AI chat session
			HistoryLimit int  `yaml:"history_limit"` // Max transcript entries kept in memory
		} `yaml:"chat"`
	} `yaml:"services"`

	Extraction ExtractionConfig `yaml:"extraction"`
}

// ExtractionConfig tunes the place extractor. It is the hot-reloadable part
// of the config.
type ExtractionConfig struct {
	DefaultLocality   string                    `yaml:"default_locality"`    // Substituted for the "OO" placeholder
	MaxQueryLength    int                       `yaml:"max_query_length"`    // Cap on normalized names, in runes
	FallbackWholeText bool                      `yaml:"fallback_whole_text"` // Treat the whole message as one place when nothing matches
	KeywordGroups     []extraction.KeywordGroup `yaml:"keyword_groups"`      // Category cascade; empty selects the built-in list
}

// LoadConfig loads the YAML configuration from the specified file and
// validates its schema version.
func LoadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var config Config
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if config.Version == "" {
		return nil, fmt.Errorf("config file %s is missing a version", filename)
	}
	v, err := semver.NewVersion(config.Version)
	if err != nil {
		return nil, fmt.Errorf("invalid config version %q: %w", config.Version, err)
	}
	if v.Major() != supportedConfigMajor {
		return nil, fmt.Errorf("unsupported config version %s, this build supports %d.x", config.Version, supportedConfigMajor)
	}

	return &config, nil
}

// NewExtractor builds the place extractor described by the extraction
// section.
func (e ExtractionConfig) NewExtractor() *extraction.KeywordExtractor {
	norm := extraction.NewNormalizer(e.DefaultLocality, e.MaxQueryLength)
	groups := e.KeywordGroups
	if len(groups) == 0 {
		groups = nil
	}
	return extraction.NewKeywordExtractor(groups, norm, e.FallbackWholeText)
}
