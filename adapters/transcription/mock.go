package transcription

import (
	"context"

	"go.uber.org/zap"

	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
)

// Mock is a placeholder transcriber for local development without a
// backend or microphone permissions.
type Mock struct {
	logger *zap.Logger
}

var _ repositories.Transcriber = (*Mock)(nil)

// NewMock creates a mock transcriber.
func NewMock(logger *zap.Logger) *Mock {
	return &Mock{logger: logger}
}

// Transcribe fabricates text based on the recording size.
func (m *Mock) Transcribe(ctx context.Context, rec domain.Recording) (domain.TranscriptionResult, error) {
	m.logger.Info("mock transcription",
		zap.Int("bytes", len(rec.Data)),
		zap.String("encoding", rec.Encoding))

	var text string
	switch {
	case len(rec.Data) > 10000:
		text = "I want to learn about multiplication tables today."
	case len(rec.Data) > 1000:
		text = "Can you tell me a story?"
	case len(rec.Data) > 0:
		text = "Hello!"
	default:
		return domain.TranscriptionResult{Success: false}, nil
	}

	return domain.TranscriptionResult{
		Text:       text,
		Success:    true,
		Confidence: 0.9,
		Language:   "en-US",
	}, nil
}
