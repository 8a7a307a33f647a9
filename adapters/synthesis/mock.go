package synthesis

import (
	"context"

	"go.uber.org/zap"

	"github.com/happypartner/voicelink/audio"
	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
)

// Mock fabricates a short WAV payload so the playback path can be
// exercised without a backend.
type Mock struct {
	logger *zap.Logger
}

var _ repositories.Synthesizer = (*Mock)(nil)

// NewMock creates a mock synthesizer.
func NewMock(logger *zap.Logger) *Mock {
	return &Mock{logger: logger}
}

// Synthesize generates a silent PCM payload sized to the text length.
func (m *Mock) Synthesize(ctx context.Context, text string) (domain.Audio, error) {
	const sampleRate = 16000

	m.logger.Info("mock synthesis", zap.Int("text_length", len(text)))

	pcm := make([]byte, len(text)*200+sampleRate/10)
	wav, err := audio.EncodeWAV(pcm, sampleRate, 1)
	if err != nil {
		return domain.Audio{}, err
	}
	return domain.Audio{
		Data:       wav,
		Format:     "wav",
		SampleRate: sampleRate,
	}, nil
}
