package repositories

import (
	"context"

	"github.com/happypartner/voicelink/domain"
)

// Player plays decoded synthesis audio. Playback is best-effort: a
// failure must never disturb the already-displayed chat turn.
type Player interface {
	Play(ctx context.Context, audio domain.Audio) error
}
