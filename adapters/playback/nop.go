package playback

import (
	"context"

	"go.uber.org/zap"

	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
)

// Nop discards audio. Used in bridge mode, where playback happens on
// the connected client, and in tests.
type Nop struct {
	logger *zap.Logger
}

var _ repositories.Player = (*Nop)(nil)

// NewNop creates a no-op player.
func NewNop(logger *zap.Logger) *Nop {
	return &Nop{logger: logger}
}

// Play logs and drops the payload.
func (n *Nop) Play(ctx context.Context, a domain.Audio) error {
	n.logger.Debug("discarding playback payload",
		zap.Int("bytes", len(a.Data)),
		zap.String("format", a.Format))
	return nil
}
