package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/happypartner/voicelink/audio"
	"github.com/happypartner/voicelink/domain/repositories"
)

const defaultFramesPerBuffer = 1600 // 100ms of mono audio at 16kHz

// PortAudioSource captures microphone audio through PortAudio. It
// emits raw PCM-16 chunks, so the only encoding it supports is WAV;
// the session wraps the assembled blob in a WAV container.
type PortAudioSource struct {
	sampleRate int
	frames     int
	logger     *zap.Logger

	initOnce sync.Once
	initErr  error
}

var _ repositories.CaptureSource = (*PortAudioSource)(nil)

// NewPortAudioSource creates a microphone source at the given sample
// rate (16kHz when zero).
func NewPortAudioSource(sampleRate int, logger *zap.Logger) *PortAudioSource {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &PortAudioSource{
		sampleRate: sampleRate,
		frames:     defaultFramesPerBuffer,
		logger:     logger,
	}
}

// Supports reports WAV only; PortAudio delivers raw PCM.
func (s *PortAudioSource) Supports(encoding string) bool {
	return encoding == audio.MIMEWAV
}

// SampleRate returns the capture rate.
func (s *PortAudioSource) SampleRate() int { return s.sampleRate }

// Open acquires the default input device and starts streaming chunks.
func (s *PortAudioSource) Open(ctx context.Context) (repositories.CaptureStream, error) {
	s.initOnce.Do(func() {
		s.initErr = portaudio.Initialize()
	})
	if s.initErr != nil {
		return nil, fmt.Errorf("portaudio initialization failed: %w", s.initErr)
	}

	buf := make([]int16, s.frames)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(s.sampleRate), len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}

	ps := &portAudioStream{
		stream: stream,
		buf:    buf,
		chunks: make(chan []byte, 16),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: s.logger,
	}
	go ps.run()
	return ps, nil
}

type portAudioStream struct {
	stream *portaudio.Stream
	buf    []int16
	chunks chan []byte
	stop   chan struct{}
	done   chan struct{}
	logger *zap.Logger

	closeOnce sync.Once
}

func (p *portAudioStream) Chunks() <-chan []byte { return p.chunks }

func (p *portAudioStream) run() {
	defer close(p.done)
	defer close(p.chunks)

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		if err := p.stream.Read(); err != nil {
			// Abort from Close unblocks the read with an error.
			select {
			case <-p.stop:
			default:
				p.logger.Warn("microphone read failed", zap.Error(err))
			}
			return
		}

		chunk := make([]byte, len(p.buf)*2)
		for i, sample := range p.buf {
			binary.LittleEndian.PutUint16(chunk[i*2:], uint16(sample))
		}

		select {
		case p.chunks <- chunk:
		case <-p.stop:
			return
		}
	}
}

// Close stops the device and releases it. Safe to call more than once.
func (p *portAudioStream) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.stop)
		if abortErr := p.stream.Abort(); abortErr != nil {
			p.logger.Debug("stream abort", zap.Error(abortErr))
		}
		<-p.done
		err = p.stream.Close()
	})
	return err
}
