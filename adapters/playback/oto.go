package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	mp3 "github.com/hajimehoshi/go-mp3"
	"go.uber.org/zap"

	"github.com/happypartner/voicelink/audio"
	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
)

const defaultLoadTimeout = 5 * time.Second

// OtoPlayer plays decoded synthesis payloads through the system audio
// device. Playback is best-effort: callers log failures and move on.
//
// The audio context is process-wide and created once, at the sample
// rate of the first payload; later payloads with a different rate fail
// playback rather than reinitialize the device.
type OtoPlayer struct {
	loadTimeout time.Duration
	logger      *zap.Logger

	mu         sync.Mutex
	ctx        *oto.Context
	sampleRate int
	channels   int
}

var _ repositories.Player = (*OtoPlayer)(nil)

// NewOtoPlayer creates a player. loadTimeout bounds device readiness
// to avoid playback hangs; zero means the 5s default.
func NewOtoPlayer(loadTimeout time.Duration, logger *zap.Logger) *OtoPlayer {
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}
	return &OtoPlayer{
		loadTimeout: loadTimeout,
		logger:      logger,
	}
}

// Play decodes the payload per its format and plays it to completion,
// bounded by ctx.
func (p *OtoPlayer) Play(ctx context.Context, a domain.Audio) error {
	pcm, sampleRate, channels, err := decodePayload(a)
	if err != nil {
		return err
	}

	otoCtx, err := p.context(sampleRate, channels)
	if err != nil {
		return err
	}

	player := otoCtx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	p.logger.Debug("playback finished", zap.Int("bytes", len(pcm)))
	return nil
}

// context returns the process-wide audio context, creating it on first
// use and waiting for device readiness within the load timeout.
func (p *OtoPlayer) context(sampleRate, channels int) (*oto.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		if sampleRate != p.sampleRate || channels != p.channels {
			return nil, fmt.Errorf("audio device initialized at %dHz/%dch, payload wants %dHz/%dch",
				p.sampleRate, p.channels, sampleRate, channels)
		}
		return p.ctx, nil
	}

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}

	select {
	case <-ready:
	case <-time.After(p.loadTimeout):
		return nil, fmt.Errorf("audio device not ready after %s", p.loadTimeout)
	}

	p.ctx = otoCtx
	p.sampleRate = sampleRate
	p.channels = channels
	return otoCtx, nil
}

func decodePayload(a domain.Audio) (pcm []byte, sampleRate, channels int, err error) {
	switch strings.ToLower(a.Format) {
	case "wav":
		return audio.DecodeWAV(a.Data)
	case "mp3":
		dec, err := mp3.NewDecoder(bytes.NewReader(a.Data))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to decode mp3 payload: %w", err)
		}
		pcm, err := io.ReadAll(dec)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to read mp3 samples: %w", err)
		}
		// go-mp3 always emits 16-bit stereo.
		return pcm, dec.SampleRate(), 2, nil
	default:
		return nil, 0, 0, fmt.Errorf("unsupported playback format %q", a.Format)
	}
}
