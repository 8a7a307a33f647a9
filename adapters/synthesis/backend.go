package synthesis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
)

const (
	synthesizePath          = "/api/v1/audio/synthesize"
	defaultSynthesisTimeout = 30 * time.Second
)

// Transport is the encoded-audio wire encoding. The deployed backend
// uses exactly one; it is pinned in configuration, never guessed per
// call.
type Transport string

const (
	TransportHex    Transport = "hex"
	TransportBase64 Transport = "base64"
)

// BackendConfig holds configuration for the backend synthesis client.
// Required fields:
// - BaseURL: backend base URL
// Optional fields with defaults:
// - Transport: hex or base64 (default hex)
// - VoiceType: voice selection (default female)
// - Speed: speech rate 0.5-2.0 (default 1.0)
// - Volume: 0.0-1.0 (default 1.0)
// - Timeout: request timeout (default 30s)
type BackendConfig struct {
	BaseURL   string
	Transport Transport
	VoiceType string
	Speed     float64
	Volume    float64
	Timeout   time.Duration
	Token     string
}

// Backend obtains encoded audio for assistant text from the backend
// text-to-speech endpoint and decodes it into playable bytes.
type Backend struct {
	baseURL    string
	transport  Transport
	voiceType  string
	speed      float64
	volume     float64
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.Synthesizer = (*Backend)(nil)

type synthesizeRequestBody struct {
	Text      string  `json:"text"`
	VoiceType string  `json:"voice_type"`
	Speed     float64 `json:"speed"`
	Volume    float64 `json:"volume"`
}

type synthesizeResponseBody struct {
	AudioData  string  `json:"audio_data"`
	Duration   float64 `json:"duration"`
	Format     string  `json:"format"`
	SampleRate int     `json:"sample_rate"`
}

// NewBackend creates a backend synthesis client.
func NewBackend(config BackendConfig, logger *zap.Logger) (*Backend, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}

	transport := config.Transport
	if transport == "" {
		transport = TransportHex
		logger.Info("using default synthesis transport", zap.String("transport", string(transport)))
	}
	if transport != TransportHex && transport != TransportBase64 {
		return nil, fmt.Errorf("unsupported synthesis transport %q, want hex or base64", transport)
	}

	voiceType := config.VoiceType
	if voiceType == "" {
		voiceType = "female"
	}
	speed := config.Speed
	if speed == 0 {
		speed = 1.0
	}
	volume := config.Volume
	if volume == 0 {
		volume = 1.0
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultSynthesisTimeout
	}

	return &Backend{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		transport:  transport,
		voiceType:  voiceType,
		speed:      speed,
		volume:     volume,
		token:      config.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Synthesize requests encoded audio for the text and decodes it per
// the pinned transport. One request, no retry.
func (b *Backend) Synthesize(ctx context.Context, text string) (domain.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Audio{}, fmt.Errorf("text cannot be empty")
	}

	payload, err := json.Marshal(synthesizeRequestBody{
		Text:      text,
		VoiceType: b.voiceType,
		Speed:     b.speed,
		Volume:    b.volume,
	})
	if err != nil {
		return domain.Audio{}, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+synthesizePath, bytes.NewReader(payload))
	if err != nil {
		return domain.Audio{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return domain.Audio{}, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return domain.Audio{}, fmt.Errorf("synthesis service returned %d: %s", resp.StatusCode, string(detail))
	}

	var parsed synthesizeResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Audio{}, fmt.Errorf("failed to decode synthesis response: %w", err)
	}
	if parsed.AudioData == "" {
		return domain.Audio{}, fmt.Errorf("synthesis response carried no audio data")
	}

	data, err := b.decode(parsed.AudioData)
	if err != nil {
		return domain.Audio{}, fmt.Errorf("failed to decode %s audio payload: %w", b.transport, err)
	}

	format := parsed.Format
	if format == "" {
		format = "wav"
	}

	b.logger.Debug("synthesis payload decoded",
		zap.Int("bytes", len(data)),
		zap.String("format", format),
		zap.Int("sample_rate", parsed.SampleRate))

	return domain.Audio{
		Data:       data,
		Format:     format,
		SampleRate: parsed.SampleRate,
	}, nil
}

func (b *Backend) decode(encoded string) ([]byte, error) {
	if b.transport == TransportBase64 {
		return base64.StdEncoding.DecodeString(encoded)
	}
	return hex.DecodeString(encoded)
}
