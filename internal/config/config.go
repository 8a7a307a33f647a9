package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete client configuration. Values come from an
// optional YAML file, overridden by environment variables (a local
// .env file is honored when present).
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Recording RecordingConfig `yaml:"recording"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Chat      ChatConfig      `yaml:"chat"`
	Providers ProviderConfig  `yaml:"providers"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BackendConfig locates the external backend service.
type BackendConfig struct {
	BaseURL          string        `yaml:"base_url"`
	ChatTimeout      time.Duration `yaml:"chat_timeout"`
	UploadTimeout    time.Duration `yaml:"upload_timeout"`
	SynthesisTimeout time.Duration `yaml:"synthesis_timeout"`
	Token            string        `yaml:"-"` // env only, never from file
}

// RecordingConfig contains the press-to-record policy.
type RecordingConfig struct {
	MinDuration   time.Duration `yaml:"min_duration"`
	Tick          time.Duration `yaml:"tick"`
	SampleRate    int           `yaml:"sample_rate"`
	BitrateTarget int           `yaml:"bitrate_target"` // bits per second
}

// SynthesisConfig controls text-to-speech requests and playback.
type SynthesisConfig struct {
	Transport   string        `yaml:"transport"` // hex or base64, pinned per deployment
	VoiceType   string        `yaml:"voice_type"`
	Speed       float64       `yaml:"speed"`
	Volume      float64       `yaml:"volume"`
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

// ChatConfig carries conversation identity and seeding.
type ChatConfig struct {
	UserID    string `yaml:"user_id"`
	SessionID string `yaml:"session_id"`
	Greeting  string `yaml:"greeting"`
}

// ProviderConfig selects adapter implementations per stage.
type ProviderConfig struct {
	Capture       string `yaml:"capture"`       // portaudio, mock
	Transcription string `yaml:"transcription"` // backend, google, mock
	Chat          string `yaml:"chat"`          // backend, gemini, mock
	Synthesis     string `yaml:"synthesis"`     // backend, mock
}

// BridgeConfig configures the local UI bridge server.
type BridgeConfig struct {
	Address     string `yaml:"address"`
	TokenSecret string `yaml:"-"` // env only
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:          "http://localhost:8000",
			ChatTimeout:      30 * time.Second,
			UploadTimeout:    60 * time.Second,
			SynthesisTimeout: 30 * time.Second,
		},
		Recording: RecordingConfig{
			MinDuration:   time.Second,
			Tick:          100 * time.Millisecond,
			SampleRate:    16000,
			BitrateTarget: 64000,
		},
		Synthesis: SynthesisConfig{
			Transport:   "hex",
			VoiceType:   "female",
			Speed:       1.0,
			Volume:      1.0,
			LoadTimeout: 5 * time.Second,
		},
		Chat: ChatConfig{
			Greeting: "Hi! I'm Happy Partner, nice to meet you!",
		},
		Providers: ProviderConfig{
			Capture:       "portaudio",
			Transcription: "backend",
			Chat:          "backend",
			Synthesis:     "backend",
		},
		Bridge: BridgeConfig{
			Address: ":8090",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path (optional, defaults apply when path
// is empty), applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit files are not.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("VOICELINK_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("VOICELINK_TOKEN"); v != "" {
		c.Backend.Token = v
	}
	if v := os.Getenv("VOICELINK_BRIDGE_ADDRESS"); v != "" {
		c.Bridge.Address = v
	}
	if v := os.Getenv("VOICELINK_BRIDGE_SECRET"); v != "" {
		c.Bridge.TokenSecret = v
	}
	if v := os.Getenv("VOICELINK_SYNTHESIS_TRANSPORT"); v != "" {
		c.Synthesis.Transport = v
	}
	if v := os.Getenv("VOICELINK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VOICELINK_USER_ID"); v != "" {
		c.Chat.UserID = v
	}
	if v := os.Getenv("VOICELINK_SESSION_ID"); v != "" {
		c.Chat.SessionID = v
	}
	if v := os.Getenv("VOICELINK_MIN_RECORDING_SECONDS"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			c.Recording.MinDuration = time.Duration(secs * float64(time.Second))
		}
	}
}

// Validate performs validation of all sections.
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	if err := c.Recording.Validate(); err != nil {
		return fmt.Errorf("recording config: %w", err)
	}
	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}
	if err := c.Providers.Validate(); err != nil {
		return fmt.Errorf("providers config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate checks the backend section.
func (c *BackendConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.ChatTimeout <= 0 || c.UploadTimeout <= 0 || c.SynthesisTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// Validate checks the recording section.
func (c *RecordingConfig) Validate() error {
	if c.MinDuration <= 0 {
		return fmt.Errorf("min_duration must be positive, got %s", c.MinDuration)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	if c.Tick > c.MinDuration {
		return fmt.Errorf("tick %s exceeds min_duration %s", c.Tick, c.MinDuration)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.BitrateTarget <= 0 {
		return fmt.Errorf("bitrate_target must be positive, got %d", c.BitrateTarget)
	}
	return nil
}

// Validate checks the synthesis section.
func (c *SynthesisConfig) Validate() error {
	if c.Transport != "hex" && c.Transport != "base64" {
		return fmt.Errorf("transport must be hex or base64, got %q", c.Transport)
	}
	if c.Speed < 0.5 || c.Speed > 2.0 {
		return fmt.Errorf("speed must be between 0.5 and 2.0, got %f", c.Speed)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume must be between 0 and 1, got %f", c.Volume)
	}
	if c.LoadTimeout <= 0 {
		return fmt.Errorf("load_timeout must be positive, got %s", c.LoadTimeout)
	}
	return nil
}

// Validate checks the provider selections.
func (c *ProviderConfig) Validate() error {
	switch c.Capture {
	case "portaudio", "mock":
	default:
		return fmt.Errorf("unknown capture provider %q", c.Capture)
	}
	switch c.Transcription {
	case "backend", "google", "mock":
	default:
		return fmt.Errorf("unknown transcription provider %q", c.Transcription)
	}
	switch c.Chat {
	case "backend", "gemini", "mock":
	default:
		return fmt.Errorf("unknown chat provider %q", c.Chat)
	}
	switch c.Synthesis {
	case "backend", "mock":
	default:
		return fmt.Errorf("unknown synthesis provider %q", c.Synthesis)
	}
	return nil
}

// Validate checks the logging section.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
}
