package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/happypartner/voicelink/audio"
	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
	"github.com/happypartner/voicelink/internal/safety"
)

type stubTranscriber struct {
	mu     sync.Mutex
	result domain.TranscriptionResult
	err    error
	calls  int
}

func (s *stubTranscriber) Transcribe(ctx context.Context, rec domain.Recording) (domain.TranscriptionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, s.err
}

func (s *stubTranscriber) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubChat struct {
	mu    sync.Mutex
	reply domain.Reply
	err   error
	reqs  []repositories.ChatRequest

	// When set, Send signals started and then blocks until proceed is
	// closed, holding the dispatch in flight.
	started chan struct{}
	proceed chan struct{}
}

func (s *stubChat) Send(ctx context.Context, req repositories.ChatRequest) (domain.Reply, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	started, proceed := s.started, s.proceed
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
		<-proceed
	}
	if s.err != nil {
		return domain.Reply{Content: "Sorry, your message could not be delivered.", Agent: domain.AgentMeta}, s.err
	}
	return s.reply, nil
}

func (s *stubChat) requests() []repositories.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repositories.ChatRequest(nil), s.reqs...)
}

type stubSynthesizer struct {
	err   error
	calls chan string
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string) (domain.Audio, error) {
	s.calls <- text
	if s.err != nil {
		return domain.Audio{}, s.err
	}
	return domain.Audio{Data: []byte{0x01}, Format: "wav", SampleRate: 16000}, nil
}

type stubPlayer struct {
	err   error
	calls chan domain.Audio
}

func (s *stubPlayer) Play(ctx context.Context, a domain.Audio) error {
	s.calls <- a
	return s.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	infos    []string
	warnings []string
	errs     []string
}

func (n *recordingNotifier) Info(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, text)
}

func (n *recordingNotifier) Warning(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, text)
}

func (n *recordingNotifier) Error(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, text)
}

func (n *recordingNotifier) snapshot() (infos, warnings, errs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.infos...),
		append([]string(nil), n.warnings...),
		append([]string(nil), n.errs...)
}

type fakeStream struct {
	ch   chan []byte
	once sync.Once
}

func (s *fakeStream) Chunks() <-chan []byte { return s.ch }

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

type fakeSource struct {
	mu      sync.Mutex
	stream  *fakeStream
	openErr error
}

func (s *fakeSource) Open(ctx context.Context) (repositories.CaptureStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.stream = &fakeStream{ch: make(chan []byte, 16)}
	return s.stream, nil
}

func (s *fakeSource) Supports(encoding string) bool { return encoding == audio.MIMEWebMOpus }

func (s *fakeSource) SampleRate() int { return 16000 }

type pipelineFixture struct {
	service     *PipelineService
	source      *fakeSource
	transcriber *stubTranscriber
	chat        *stubChat
	synthesizer *stubSynthesizer
	player      *stubPlayer
	notifier    *recordingNotifier
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	source := &fakeSource{}
	session := audio.NewSession(source, audio.SessionConfig{
		MinDuration: 50 * time.Millisecond,
		Tick:        10 * time.Millisecond,
	}, zaptest.NewLogger(t))

	f := &pipelineFixture{
		source:      source,
		transcriber: &stubTranscriber{},
		chat:        &stubChat{reply: domain.Reply{Content: "hello!", Agent: domain.AgentEdu}},
		synthesizer: &stubSynthesizer{calls: make(chan string, 4)},
		player:      &stubPlayer{calls: make(chan domain.Audio, 4)},
		notifier:    &recordingNotifier{},
	}

	f.service = NewPipelineService(
		session,
		f.transcriber,
		f.chat,
		f.synthesizer,
		f.player,
		f.notifier,
		safety.NewFilter(nil),
		domain.NewConversation(""),
		nil,
		PipelineConfig{UserID: "child-1", SessionID: "session-1"},
		zaptest.NewLogger(t),
	)
	return f
}

func waitFor[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestSendAppendsTurnAndSpeaks(t *testing.T) {
	f := newPipelineFixture(t)

	f.service.Send(context.Background(), "what do pandas eat", false)

	msgs := f.service.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.SenderUser, msgs[0].Sender)
	assert.Equal(t, "what do pandas eat", msgs[0].Content)
	assert.False(t, msgs[0].AudioOrigin)
	assert.Equal(t, domain.SenderAssistant, msgs[1].Sender)
	assert.Equal(t, "hello!", msgs[1].Content)
	assert.Equal(t, msgs[0].Turn, msgs[1].Turn)

	reqs := f.chat.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "child-1", reqs[0].UserID)
	assert.Equal(t, "session-1", reqs[0].SessionID)

	assert.Equal(t, "hello!", waitFor(t, f.synthesizer.calls, "synthesis"))
	played := waitFor(t, f.player.calls, "playback")
	assert.Equal(t, "wav", played.Format)
}

func TestSendIgnoresEmptyContent(t *testing.T) {
	f := newPipelineFixture(t)

	f.service.Send(context.Background(), "   ", false)

	assert.Equal(t, 0, f.service.Conversation().Len())
	assert.Empty(t, f.chat.requests())
}

func TestSendWhileDispatchInFlightNotifies(t *testing.T) {
	f := newPipelineFixture(t)
	f.chat.started = make(chan struct{}, 1)
	f.chat.proceed = make(chan struct{})

	go f.service.Send(context.Background(), "first question", false)
	select {
	case <-f.chat.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first dispatch never reached the backend")
	}

	// The second send arrives while the first is still in flight: it is
	// dropped, but the sender must be told.
	f.service.Send(context.Background(), "second question", false)

	infos, _, _ := f.notifier.snapshot()
	require.Len(t, infos, 1)
	require.Len(t, f.chat.requests(), 1)

	close(f.chat.proceed)
	assert.Equal(t, "hello!", waitFor(t, f.synthesizer.calls, "synthesis"))
	assert.Equal(t, 2, f.service.Conversation().Len())
}

func TestSendDispatchFailureStillTerminatesTurn(t *testing.T) {
	f := newPipelineFixture(t)
	f.chat.err = errors.New("backend down")

	f.service.Send(context.Background(), "hi", false)

	msgs := f.service.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.SenderAssistant, msgs[1].Sender)
	assert.Equal(t, domain.AgentMeta, msgs[1].Agent)

	_, _, errs := f.notifier.snapshot()
	require.Len(t, errs, 1)

	// Failed turns are never voiced.
	select {
	case <-f.synthesizer.calls:
		t.Fatal("synthesis should not run after dispatch failure")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSendMasksFilteredContent(t *testing.T) {
	f := newPipelineFixture(t)

	f.service.Send(context.Background(), "tell me about weapons", false)

	reqs := f.chat.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "tell me about ******s", reqs[0].Content)

	msgs := f.service.Conversation().Messages()
	assert.Equal(t, "tell me about ******s", msgs[0].Content)

	_, warnings, _ := f.notifier.snapshot()
	require.Len(t, warnings, 1)
}

func TestSendSynthesisFailureIsSwallowed(t *testing.T) {
	f := newPipelineFixture(t)
	f.synthesizer.err = errors.New("voice unavailable")

	f.service.Send(context.Background(), "hi", false)
	waitFor(t, f.synthesizer.calls, "synthesis")

	// The chat turn stays intact and no user-facing notice appears.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, f.service.Conversation().Len())
	infos, warnings, errs := f.notifier.snapshot()
	assert.Empty(t, infos)
	assert.Empty(t, warnings)
	assert.Empty(t, errs)
}

func TestStopRecordingTooShort(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	f.service.StartRecording(ctx)
	require.True(t, f.service.Recording())
	f.service.StopRecording(ctx)

	infos, _, _ := f.notifier.snapshot()
	require.Len(t, infos, 1)
	assert.Equal(t, 0, f.transcriber.callCount())
	assert.Equal(t, 0, f.service.Conversation().Len())
	assert.False(t, f.service.Recording())
}

func TestStopRecordingDispatchesTranscript(t *testing.T) {
	f := newPipelineFixture(t)
	f.transcriber.result = domain.TranscriptionResult{Text: "why is the sky blue", Success: true}
	ctx := context.Background()

	f.service.StartRecording(ctx)
	f.source.stream.ch <- []byte("audio bytes")
	time.Sleep(200 * time.Millisecond)
	f.service.StopRecording(ctx)

	assert.Equal(t, 1, f.transcriber.callCount())

	msgs := f.service.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "why is the sky blue", msgs[0].Content)
	assert.True(t, msgs[0].AudioOrigin)
}

func TestStopRecordingTranscriptionFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.transcriber.err = errors.New("service unavailable")
	ctx := context.Background()

	f.service.StartRecording(ctx)
	f.source.stream.ch <- []byte("audio bytes")
	time.Sleep(200 * time.Millisecond)
	f.service.StopRecording(ctx)

	_, warnings, _ := f.notifier.snapshot()
	require.Len(t, warnings, 1)
	assert.Empty(t, f.chat.requests())
	assert.Equal(t, 0, f.service.Conversation().Len())
}

func TestStopRecordingEmptyTranscription(t *testing.T) {
	f := newPipelineFixture(t)
	f.transcriber.result = domain.TranscriptionResult{Text: "   ", Success: true}
	ctx := context.Background()

	f.service.StartRecording(ctx)
	f.source.stream.ch <- []byte("audio bytes")
	time.Sleep(200 * time.Millisecond)
	f.service.StopRecording(ctx)

	_, warnings, _ := f.notifier.snapshot()
	require.Len(t, warnings, 1)
	assert.Empty(t, f.chat.requests())
}

func TestStartRecordingDeviceFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.openErr = errors.New("permission denied")

	f.service.StartRecording(context.Background())

	assert.False(t, f.service.Recording())
	_, _, errs := f.notifier.snapshot()
	require.Len(t, errs, 1)

	// The pipeline stays usable for typed input.
	f.source.openErr = nil
	f.service.Send(context.Background(), "hi", false)
	assert.Equal(t, 2, f.service.Conversation().Len())
}

func TestStopRecordingWithoutStart(t *testing.T) {
	f := newPipelineFixture(t)

	f.service.StopRecording(context.Background())

	infos, warnings, errs := f.notifier.snapshot()
	assert.Empty(t, infos)
	assert.Empty(t, warnings)
	assert.Empty(t, errs)
}
