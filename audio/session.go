package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
)

// State of the recording session state machine.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

var (
	// ErrRecordingTooShort is the policy rejection for releases before
	// the minimum duration. Not a true error: the caller surfaces a
	// notice and no network request is made.
	ErrRecordingTooShort = errors.New("recording too short")

	// ErrNoActiveSession is returned by Stop when nothing is recording.
	ErrNoActiveSession = errors.New("no active recording session")

	// ErrNoAudio is returned when the device delivered no data.
	ErrNoAudio = errors.New("no audio captured")
)

// DeviceAccessError reports a microphone permission or availability
// failure. Fatal to the recording attempt only; the session stays Idle.
type DeviceAccessError struct {
	Err error
}

func (e *DeviceAccessError) Error() string {
	return fmt.Sprintf("microphone access failed: %v", e.Err)
}

func (e *DeviceAccessError) Unwrap() error { return e.Err }

// SessionConfig holds the recording policy knobs.
type SessionConfig struct {
	// MinDuration gates commit vs cancel on release.
	MinDuration time.Duration
	// Tick is the elapsed-time counter interval.
	Tick time.Duration
}

// DefaultSessionConfig matches the press-to-record policy: 1s minimum,
// 100ms tick.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MinDuration: time.Second,
		Tick:        100 * time.Millisecond,
	}
}

// Session coordinates one press-and-hold recording at a time:
// Idle -> Recording -> (commit | cancel) -> Idle. It owns the capture
// stream for the session's lifetime and releases the device on every
// exit path.
type Session struct {
	source repositories.CaptureSource
	cfg    SessionConfig
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	encoding string
	elapsed  time.Duration
	chunks   [][]byte
	stream   repositories.CaptureStream
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSession creates an idle session bound to a capture source.
func NewSession(source repositories.CaptureSource, cfg SessionConfig, logger *zap.Logger) *Session {
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = time.Second
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 100 * time.Millisecond
	}
	return &Session{
		source: source,
		cfg:    cfg,
		logger: logger,
		state:  StateIdle,
	}
}

// State returns the current machine state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Recording reports whether a session is currently active.
func (s *Session) Recording() bool {
	return s.State() == StateRecording
}

// Elapsed returns the running duration counter of the active session.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Start acquires the microphone, negotiates the encoding, and begins
// buffering chunks. A second Start while recording is a no-op. A
// device failure is reported as *DeviceAccessError and the session
// stays Idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateRecording {
		s.mu.Unlock()
		s.logger.Debug("recording already active, press ignored")
		return nil
	}
	s.mu.Unlock()

	stream, err := s.source.Open(ctx)
	if err != nil {
		return &DeviceAccessError{Err: err}
	}

	encoding := NegotiateFormat(PreferredEncodings, s.source.Supports)

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	if s.state == StateRecording {
		// Lost the race against a concurrent press.
		s.mu.Unlock()
		cancel()
		stream.Close()
		return nil
	}
	s.state = StateRecording
	s.encoding = encoding
	s.elapsed = 0
	s.chunks = nil
	s.stream = stream
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	s.logger.Info("recording started", zap.String("encoding", encoding))
	go s.loop(loopCtx, stream, done)
	return nil
}

func (s *Session) loop(ctx context.Context, stream repositories.CaptureStream, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.elapsed += s.cfg.Tick
			s.mu.Unlock()
		case chunk, ok := <-stream.Chunks():
			if !ok {
				return
			}
			if len(chunk) == 0 {
				continue
			}
			buf := make([]byte, len(chunk))
			copy(buf, chunk)
			s.mu.Lock()
			s.chunks = append(s.chunks, buf)
			s.mu.Unlock()
		}
	}
}

// Stop ends the active session. The microphone is released
// unconditionally. If the elapsed time met the minimum duration the
// buffered chunks are assembled into one Recording; otherwise
// ErrRecordingTooShort is returned and the chunks are discarded.
func (s *Session) Stop() (domain.Recording, error) {
	s.mu.Lock()
	// A nil stream while still Recording means another Stop is mid
	// drain; release and pointer-leave fire the same path, so a double
	// fire is normal and the loser must not touch the stream.
	if s.state != StateRecording || s.stream == nil {
		s.mu.Unlock()
		return domain.Recording{}, ErrNoActiveSession
	}
	stream := s.stream
	cancel := s.cancel
	done := s.done
	s.stream = nil
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	// Stop the device first so the chunk channel closes and the loop
	// drains the final chunks before exiting.
	if err := stream.Close(); err != nil {
		s.logger.Warn("failed to close capture stream", zap.Error(err))
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		s.logger.Warn("capture loop did not drain in time")
	}
	cancel()

	s.mu.Lock()
	s.state = StateIdle
	elapsed := s.elapsed
	chunks := s.chunks
	encoding := s.encoding
	s.chunks = nil
	s.mu.Unlock()

	if elapsed < s.cfg.MinDuration {
		s.logger.Info("recording cancelled, too short", zap.Duration("elapsed", elapsed))
		return domain.Recording{}, ErrRecordingTooShort
	}

	var size int
	for _, c := range chunks {
		size += len(c)
	}
	if size == 0 {
		return domain.Recording{}, ErrNoAudio
	}

	blob := make([]byte, 0, size)
	for _, c := range chunks {
		blob = append(blob, c...)
	}

	if encoding == MIMEWAV {
		wav, err := EncodeWAV(blob, s.source.SampleRate(), 1)
		if err != nil {
			return domain.Recording{}, fmt.Errorf("failed to assemble WAV recording: %w", err)
		}
		blob = wav
	}

	s.logger.Info("recording committed",
		zap.Duration("elapsed", elapsed),
		zap.Int("bytes", len(blob)),
		zap.String("encoding", encoding))

	return domain.Recording{
		Encoding: encoding,
		Data:     blob,
		Duration: elapsed,
	}, nil
}
