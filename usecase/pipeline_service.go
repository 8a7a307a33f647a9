package usecase

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/happypartner/voicelink/audio"
	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
	"github.com/happypartner/voicelink/internal/metrics"
	"github.com/happypartner/voicelink/internal/safety"
)

// User-facing notices. The pipeline reports through a Notifier so any
// view (terminal, bridge client) can render them.
const (
	noticeDeviceAccess  = "Could not access the microphone. Please check permission settings."
	noticeTooShort      = "Recording was too short and has been cancelled."
	noticeNoSpeech      = "No speech was recognized. Please try again."
	noticeDispatchError = "Your message could not be sent. Please try again."
	noticeFiltered      = "Some words were masked by the safety filter."
	noticeBusy          = "Still answering your last message, one moment."
)

// PipelineConfig carries conversation identity and the synthesis
// deadline for the background playback stage.
type PipelineConfig struct {
	UserID           string
	SessionID        string
	SynthesisTimeout time.Duration
}

// PipelineService orchestrates the voice conversation flow: recording
// session -> transcription -> chat dispatch -> synthesis -> playback.
// Each stage fails independently; failures degrade instead of aborting
// the pipeline.
type PipelineService struct {
	session      *audio.Session
	transcriber  repositories.Transcriber
	chat         repositories.ChatService
	synthesizer  repositories.Synthesizer
	player       repositories.Player
	notifier     repositories.Notifier
	filter       *safety.Filter
	conversation *domain.Conversation
	metrics      *metrics.Metrics
	logger       *zap.Logger
	cfg          PipelineConfig

	dispatching atomic.Bool
}

// NewPipelineService creates the pipeline orchestrator. The metrics
// argument may be nil outside the bridge.
func NewPipelineService(
	session *audio.Session,
	transcriber repositories.Transcriber,
	chat repositories.ChatService,
	synthesizer repositories.Synthesizer,
	player repositories.Player,
	notifier repositories.Notifier,
	filter *safety.Filter,
	conversation *domain.Conversation,
	m *metrics.Metrics,
	cfg PipelineConfig,
	logger *zap.Logger,
) *PipelineService {
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = 30 * time.Second
	}
	return &PipelineService{
		session:      session,
		transcriber:  transcriber,
		chat:         chat,
		synthesizer:  synthesizer,
		player:       player,
		notifier:     notifier,
		filter:       filter,
		conversation: conversation,
		metrics:      m,
		logger:       logger,
		cfg:          cfg,
	}
}

// Conversation exposes the message log to the bound view.
func (s *PipelineService) Conversation() *domain.Conversation {
	return s.conversation
}

// Recording reports whether a capture session is active.
func (s *PipelineService) Recording() bool {
	return s.session.Recording()
}

// Elapsed returns the running duration of the active recording.
func (s *PipelineService) Elapsed() time.Duration {
	return s.session.Elapsed()
}

// Dispatching reports whether a chat turn is in flight.
func (s *PipelineService) Dispatching() bool {
	return s.dispatching.Load()
}

// StartRecording handles the press gesture. A press while already
// recording is ignored; a device failure is reported and leaves the
// pipeline usable.
func (s *PipelineService) StartRecording(ctx context.Context) {
	if err := s.session.Start(ctx); err != nil {
		var accessErr *audio.DeviceAccessError
		if errors.As(err, &accessErr) {
			s.logger.Error("microphone access failed", zap.Error(err))
			s.notifier.Error(noticeDeviceAccess)
			return
		}
		s.logger.Error("failed to start recording", zap.Error(err))
		s.notifier.Error(noticeDeviceAccess)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordingsStarted.Inc()
	}
}

// StopRecording handles the release gesture (and its pointer-leave and
// touch-cancel equivalents). The microphone is released on every path;
// a committed recording flows into transcription and, when text was
// recognized, into chat dispatch.
func (s *PipelineService) StopRecording(ctx context.Context) {
	rec, err := s.session.Stop()
	switch {
	case errors.Is(err, audio.ErrNoActiveSession):
		return
	case errors.Is(err, audio.ErrRecordingTooShort):
		if s.metrics != nil {
			s.metrics.RecordingsCancelled.WithLabelValues("too_short").Inc()
		}
		s.notifier.Info(noticeTooShort)
		return
	case errors.Is(err, audio.ErrNoAudio):
		if s.metrics != nil {
			s.metrics.RecordingsCancelled.WithLabelValues("no_audio").Inc()
		}
		s.notifier.Warning(noticeNoSpeech)
		return
	case err != nil:
		if s.metrics != nil {
			s.metrics.RecordingsCancelled.WithLabelValues("error").Inc()
		}
		s.logger.Error("failed to assemble recording", zap.Error(err))
		s.notifier.Warning(noticeNoSpeech)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordingsCommitted.Inc()
		s.metrics.RecordingDuration.Observe(rec.Duration.Seconds())
	}

	text, ok := s.transcribe(ctx, rec)
	if !ok {
		s.notifier.Warning(noticeNoSpeech)
		return
	}
	s.Send(ctx, text, true)
}

func (s *PipelineService) transcribe(ctx context.Context, rec domain.Recording) (string, bool) {
	if s.metrics != nil {
		s.metrics.TranscriptionRequests.Inc()
	}

	result, err := s.transcriber.Transcribe(ctx, rec)
	if err != nil {
		if s.metrics != nil {
			s.metrics.TranscriptionFailures.Inc()
		}
		s.logger.Error("transcription failed", zap.Error(err))
		return "", false
	}
	text := strings.TrimSpace(result.Text)
	if !result.Success || text == "" {
		if s.metrics != nil {
			s.metrics.TranscriptionFailures.Inc()
		}
		return "", false
	}

	if s.metrics != nil {
		s.metrics.TranscriptionSuccesses.Inc()
	}
	return text, true
}

// Send dispatches one user turn, typed or transcribed. The user
// message is appended to the log before the network round trip; the
// turn always terminates with exactly one assistant message. A send
// while another dispatch is in flight is ignored, mirroring the
// disabled input during loading.
func (s *PipelineService) Send(ctx context.Context, content string, audioOrigin bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	if !s.dispatching.CompareAndSwap(false, true) {
		// Remote views have no disabled input box, so a dropped send
		// must be visible to the sender.
		s.logger.Debug("dispatch already in flight, send dropped")
		s.notifier.Info(noticeBusy)
		return
	}
	defer s.dispatching.Store(false)

	if s.filter != nil {
		if res := s.filter.Check(content); !res.Safe {
			s.logger.Info("safety filter masked content", zap.Strings("keywords", res.Matched))
			s.notifier.Warning(noticeFiltered)
			content = res.Filtered
		}
	}

	userMsg := s.conversation.AppendUser(content, audioOrigin)

	if s.metrics != nil {
		s.metrics.ChatDispatches.Inc()
	}
	reply, err := s.chat.Send(ctx, repositories.ChatRequest{
		Content:   content,
		UserID:    s.cfg.UserID,
		SessionID: s.cfg.SessionID,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.ChatDispatchFailures.Inc()
		}
		s.logger.Error("chat dispatch failed", zap.Error(err))
		s.notifier.Error(noticeDispatchError)
	}

	// The dispatcher guarantees a usable reply even on failure, so the
	// log stays consistent for the turn.
	s.conversation.AppendReply(userMsg.Turn, reply.Content, reply.Agent)

	if err == nil {
		go s.speak(reply.Content)
	}
}

// speak voices the reply, best-effort. Any failure is logged and
// swallowed; the displayed chat turn is never rolled back.
func (s *PipelineService) speak(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SynthesisTimeout)
	defer cancel()

	if s.metrics != nil {
		s.metrics.SynthesisRequests.Inc()
	}
	payload, err := s.synthesizer.Synthesize(ctx, text)
	if err != nil {
		if s.metrics != nil {
			s.metrics.SynthesisFailures.Inc()
		}
		s.logger.Warn("synthesis failed", zap.Error(err))
		return
	}

	if err := s.player.Play(ctx, payload); err != nil {
		if s.metrics != nil {
			s.metrics.PlaybackFailures.Inc()
		}
		s.logger.Warn("playback failed", zap.Error(err))
	}
}
