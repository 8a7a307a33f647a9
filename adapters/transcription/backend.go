package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/happypartner/voicelink/audio"
	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
)

const (
	transcribePath       = "/api/v1/audio/transcribe"
	defaultUploadTimeout = 60 * time.Second
)

// BackendConfig holds configuration for the backend transcription client.
// Required fields:
// - BaseURL: backend base URL
// Optional fields with defaults:
// - Timeout: upload timeout (default 60s, uploads are slower than JSON calls)
// - Preprocess: ask the service to preprocess audio (default true)
// - Token: bearer token attached when non-empty
type BackendConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Preprocess bool
	Token      string
}

// Backend sends captured audio to the backend speech-to-text endpoint.
// One request per recording, no automatic retries.
type Backend struct {
	baseURL    string
	preprocess bool
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.Transcriber = (*Backend)(nil)

// transcribeResponse is the service's reply envelope.
type transcribeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Duration   float64 `json:"duration"`
	Language   string  `json:"language"`
}

// NewBackend creates a backend transcription client.
func NewBackend(config BackendConfig, logger *zap.Logger) (*Backend, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	return &Backend{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		preprocess: config.Preprocess,
		token:      config.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Transcribe uploads the recording as multipart form data and returns
// the recognized text. Success is false when the request failed or the
// service recognized nothing.
func (b *Backend) Transcribe(ctx context.Context, rec domain.Recording) (domain.TranscriptionResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := fmt.Sprintf("recording_%d.%s", time.Now().UnixMilli(), audio.FileExtension(rec.Encoding))
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", rec.Encoding)

	part, err := writer.CreatePart(header)
	if err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := part.Write(rec.Data); err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("preprocess", strconv.FormatBool(b.preprocess)); err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("failed to write preprocess field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := b.baseURL + transcribePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	b.logger.Debug("uploading recording for transcription",
		zap.String("url", url),
		zap.Int("bytes", len(rec.Data)),
		zap.String("encoding", rec.Encoding))

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return domain.TranscriptionResult{}, fmt.Errorf("transcription service returned %d: %s", resp.StatusCode, string(detail))
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("failed to decode transcription response: %w", err)
	}

	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		b.logger.Info("transcription returned no text")
		return domain.TranscriptionResult{Success: false}, nil
	}

	b.logger.Info("transcription completed",
		zap.String("text", text),
		zap.Float64("confidence", parsed.Confidence),
		zap.String("language", parsed.Language))

	return domain.TranscriptionResult{
		Text:       text,
		Success:    true,
		Confidence: parsed.Confidence,
		Language:   parsed.Language,
	}, nil
}
