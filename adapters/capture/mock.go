package capture

import (
	"context"
	"sync"
	"time"

	"github.com/happypartner/voicelink/audio"
	"github.com/happypartner/voicelink/domain/repositories"
)

// MockSource fabricates audio chunks for development without a
// microphone. It reports support for the whole preference list, so
// negotiation picks the top choice.
type MockSource struct {
	sampleRate int
	interval   time.Duration
}

var _ repositories.CaptureSource = (*MockSource)(nil)

// NewMockSource creates a fake capture source.
func NewMockSource(sampleRate int) *MockSource {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &MockSource{
		sampleRate: sampleRate,
		interval:   50 * time.Millisecond,
	}
}

// Supports accepts every negotiable encoding.
func (m *MockSource) Supports(encoding string) bool {
	for _, enc := range audio.PreferredEncodings {
		if enc == encoding {
			return true
		}
	}
	return false
}

// SampleRate returns the nominal capture rate.
func (m *MockSource) SampleRate() int { return m.sampleRate }

// Open starts emitting synthetic chunks until the stream is closed.
func (m *MockSource) Open(ctx context.Context) (repositories.CaptureStream, error) {
	ms := &mockStream{
		chunks: make(chan []byte, 16),
		stop:   make(chan struct{}),
	}
	go ms.run(m.interval)
	return ms, nil
}

type mockStream struct {
	chunks    chan []byte
	stop      chan struct{}
	closeOnce sync.Once
}

func (m *mockStream) Chunks() <-chan []byte { return m.chunks }

func (m *mockStream) run(interval time.Duration) {
	defer close(m.chunks)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq byte
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			chunk := make([]byte, 1600)
			for i := range chunk {
				chunk[i] = seq
			}
			seq++
			select {
			case m.chunks <- chunk:
			case <-m.stop:
				return
			}
		}
	}
}

func (m *mockStream) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	return nil
}
