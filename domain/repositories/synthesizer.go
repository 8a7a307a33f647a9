package repositories

import (
	"context"

	"github.com/happypartner/voicelink/domain"
)

// Synthesizer converts assistant text into decoded, playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (domain.Audio, error)
}
