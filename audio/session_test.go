package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/happypartner/voicelink/domain/repositories"
)

type fakeStream struct {
	ch         chan []byte
	closeDelay time.Duration
	once       sync.Once
}

func newFakeStream(closeDelay time.Duration) *fakeStream {
	return &fakeStream{ch: make(chan []byte, 64), closeDelay: closeDelay}
}

func (s *fakeStream) Chunks() <-chan []byte { return s.ch }

func (s *fakeStream) Close() error {
	s.once.Do(func() {
		if s.closeDelay > 0 {
			time.Sleep(s.closeDelay)
		}
		close(s.ch)
	})
	return nil
}

type fakeSource struct {
	mu         sync.Mutex
	stream     *fakeStream
	openErr    error
	openCount  int
	supported  map[string]bool
	rate       int
	closeDelay time.Duration
}

func newFakeSource(supported ...string) *fakeSource {
	m := make(map[string]bool, len(supported))
	for _, enc := range supported {
		m[enc] = true
	}
	return &fakeSource{supported: m, rate: 16000}
}

func (s *fakeSource) Open(ctx context.Context) (repositories.CaptureStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openCount++
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.stream = newFakeStream(s.closeDelay)
	return s.stream, nil
}

func (s *fakeSource) Supports(encoding string) bool { return s.supported[encoding] }

func (s *fakeSource) SampleRate() int { return s.rate }

func (s *fakeSource) opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openCount
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		MinDuration: 50 * time.Millisecond,
		Tick:        10 * time.Millisecond,
	}
}

func TestSessionCommit(t *testing.T) {
	source := newFakeSource(MIMEWebMOpus)
	session := NewSession(source, testSessionConfig(), zaptest.NewLogger(t))

	require.NoError(t, session.Start(context.Background()))
	assert.Equal(t, StateRecording, session.State())

	source.stream.ch <- []byte("chunk-one ")
	source.stream.ch <- []byte("chunk-two")
	time.Sleep(200 * time.Millisecond)

	rec, err := session.Stop()
	require.NoError(t, err)

	assert.Equal(t, MIMEWebMOpus, rec.Encoding)
	assert.Equal(t, []byte("chunk-one chunk-two"), rec.Data)
	assert.GreaterOrEqual(t, rec.Duration, 50*time.Millisecond)
	assert.Equal(t, StateIdle, session.State())
}

func TestSessionTooShort(t *testing.T) {
	source := newFakeSource(MIMEWebMOpus)
	session := NewSession(source, testSessionConfig(), zaptest.NewLogger(t))

	require.NoError(t, session.Start(context.Background()))
	source.stream.ch <- []byte("data")

	_, err := session.Stop()
	assert.ErrorIs(t, err, ErrRecordingTooShort)
	assert.Equal(t, StateIdle, session.State())

	// The device was released; a new session can start.
	require.NoError(t, session.Start(context.Background()))
	assert.Equal(t, 2, source.opens())
	session.Stop()
}

func TestSessionStopWithoutStart(t *testing.T) {
	source := newFakeSource(MIMEWebMOpus)
	session := NewSession(source, testSessionConfig(), zaptest.NewLogger(t))

	_, err := session.Stop()
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestSessionSecondStartIsNoOp(t *testing.T) {
	source := newFakeSource(MIMEWebMOpus)
	session := NewSession(source, testSessionConfig(), zaptest.NewLogger(t))

	require.NoError(t, session.Start(context.Background()))
	require.NoError(t, session.Start(context.Background()))
	assert.Equal(t, 1, source.opens())
	session.Stop()
}

func TestSessionDeviceAccessError(t *testing.T) {
	source := newFakeSource(MIMEWebMOpus)
	source.openErr = errors.New("permission denied")
	session := NewSession(source, testSessionConfig(), zaptest.NewLogger(t))

	err := session.Start(context.Background())
	require.Error(t, err)

	var accessErr *DeviceAccessError
	assert.True(t, errors.As(err, &accessErr))
	assert.ErrorIs(t, err, source.openErr)
	assert.Equal(t, StateIdle, session.State())
}

func TestSessionNoAudio(t *testing.T) {
	source := newFakeSource(MIMEWebMOpus)
	session := NewSession(source, testSessionConfig(), zaptest.NewLogger(t))

	require.NoError(t, session.Start(context.Background()))
	time.Sleep(200 * time.Millisecond)

	_, err := session.Stop()
	assert.ErrorIs(t, err, ErrNoAudio)
	assert.Equal(t, StateIdle, session.State())
}

func TestSessionWrapsRawPCMInWAV(t *testing.T) {
	source := newFakeSource(MIMEWAV)
	session := NewSession(source, testSessionConfig(), zaptest.NewLogger(t))

	require.NoError(t, session.Start(context.Background()))

	pcm := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	source.stream.ch <- pcm
	time.Sleep(200 * time.Millisecond)

	rec, err := session.Stop()
	require.NoError(t, err)
	assert.Equal(t, MIMEWAV, rec.Encoding)

	decoded, rate, channels, err := DecodeWAV(rec.Data)
	require.NoError(t, err)
	assert.Equal(t, pcm, decoded)
	assert.Equal(t, source.rate, rate)
	assert.Equal(t, 1, channels)
}

func TestSessionNegotiatesPreferredEncoding(t *testing.T) {
	source := newFakeSource(MIMEOggOpus, MIMEWAV)
	session := NewSession(source, testSessionConfig(), zaptest.NewLogger(t))

	require.NoError(t, session.Start(context.Background()))
	source.stream.ch <- []byte("opus bytes")
	time.Sleep(200 * time.Millisecond)

	rec, err := session.Stop()
	require.NoError(t, err)
	assert.Equal(t, MIMEOggOpus, rec.Encoding)
}

func TestSessionConcurrentStop(t *testing.T) {
	source := newFakeSource(MIMEWebMOpus)
	source.closeDelay = 100 * time.Millisecond
	session := NewSession(source, testSessionConfig(), zaptest.NewLogger(t))

	require.NoError(t, session.Start(context.Background()))
	source.stream.ch <- []byte("audio bytes")
	time.Sleep(200 * time.Millisecond)

	// Release and pointer-leave can fire the same stop path twice.
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := session.Stop()
			errs <- err
		}()
	}

	var committed, noSession int
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			switch {
			case err == nil:
				committed++
			case errors.Is(err, ErrNoActiveSession):
				noSession++
			default:
				t.Fatalf("unexpected stop error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("stop did not return")
		}
	}

	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, noSession)
	assert.Equal(t, StateIdle, session.State())
}

func TestSessionElapsedCounter(t *testing.T) {
	source := newFakeSource(MIMEWebMOpus)
	session := NewSession(source, testSessionConfig(), zaptest.NewLogger(t))

	require.NoError(t, session.Start(context.Background()))
	time.Sleep(100 * time.Millisecond)
	assert.Greater(t, session.Elapsed(), time.Duration(0))
	session.Stop()
}
