package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/happypartner/voicelink/adapters/capture"
	chatadapter "github.com/happypartner/voicelink/adapters/chat"
	"github.com/happypartner/voicelink/adapters/synthesis"
	"github.com/happypartner/voicelink/adapters/transcription"
	"github.com/happypartner/voicelink/audio"
	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
	"github.com/happypartner/voicelink/internal/config"
	"github.com/happypartner/voicelink/internal/metrics"
	"github.com/happypartner/voicelink/internal/safety"
	"github.com/happypartner/voicelink/usecase"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "voicelink",
	Short:         "Voice conversation client for the Happy Partner assistant",
	Long:          "voicelink records speech, transcribes it, chats with the Happy Partner backend, and voices the replies.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("voicelink", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Chat.UserID == "" {
		cfg.Chat.UserID = uuid.NewString()
	}
	if cfg.Chat.SessionID == "" {
		cfg.Chat.SessionID = uuid.NewString()
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	zapCfg.OutputPaths = []string{"stderr"}
	return zapCfg.Build()
}

// buildPipeline wires the adapters selected by the provider config into
// one pipeline service.
func buildPipeline(
	ctx context.Context,
	cfg *config.Config,
	notifier repositories.Notifier,
	filter *safety.Filter,
	player repositories.Player,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*usecase.PipelineService, error) {
	source, err := buildCaptureSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	session := audio.NewSession(source, audio.SessionConfig{
		MinDuration: cfg.Recording.MinDuration,
		Tick:        cfg.Recording.Tick,
	}, logger)

	transcriber, err := buildTranscriber(cfg, logger)
	if err != nil {
		return nil, err
	}
	chatService, err := buildChat(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	synthesizer, err := buildSynthesizer(cfg, logger)
	if err != nil {
		return nil, err
	}

	conversation := domain.NewConversation(cfg.Chat.Greeting)

	return usecase.NewPipelineService(
		session,
		transcriber,
		chatService,
		synthesizer,
		player,
		notifier,
		filter,
		conversation,
		m,
		usecase.PipelineConfig{
			UserID:           cfg.Chat.UserID,
			SessionID:        cfg.Chat.SessionID,
			SynthesisTimeout: cfg.Backend.SynthesisTimeout + cfg.Synthesis.LoadTimeout,
		},
		logger,
	), nil
}

func buildCaptureSource(cfg *config.Config, logger *zap.Logger) (repositories.CaptureSource, error) {
	switch cfg.Providers.Capture {
	case "portaudio":
		return capture.NewPortAudioSource(cfg.Recording.SampleRate, logger), nil
	case "mock":
		return capture.NewMockSource(cfg.Recording.SampleRate), nil
	default:
		return nil, fmt.Errorf("unknown capture provider %q", cfg.Providers.Capture)
	}
}

func buildTranscriber(cfg *config.Config, logger *zap.Logger) (repositories.Transcriber, error) {
	switch cfg.Providers.Transcription {
	case "backend":
		return transcription.NewBackend(transcription.BackendConfig{
			BaseURL:    cfg.Backend.BaseURL,
			Timeout:    cfg.Backend.UploadTimeout,
			Preprocess: true,
			Token:      cfg.Backend.Token,
		}, logger)
	case "google":
		return transcription.NewGoogle("", cfg.Recording.SampleRate, logger), nil
	case "mock":
		return transcription.NewMock(logger), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Providers.Transcription)
	}
}

func buildChat(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.ChatService, error) {
	switch cfg.Providers.Chat {
	case "backend":
		return chatadapter.NewBackend(chatadapter.BackendConfig{
			BaseURL: cfg.Backend.BaseURL,
			Timeout: cfg.Backend.ChatTimeout,
			Token:   cfg.Backend.Token,
		}, logger)
	case "gemini":
		return chatadapter.NewGemini(ctx, chatadapter.GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		}, logger)
	case "mock":
		return chatadapter.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Providers.Chat)
	}
}

func buildSynthesizer(cfg *config.Config, logger *zap.Logger) (repositories.Synthesizer, error) {
	switch cfg.Providers.Synthesis {
	case "backend":
		return synthesis.NewBackend(synthesis.BackendConfig{
			BaseURL:   cfg.Backend.BaseURL,
			Transport: synthesis.Transport(cfg.Synthesis.Transport),
			VoiceType: cfg.Synthesis.VoiceType,
			Speed:     cfg.Synthesis.Speed,
			Volume:    cfg.Synthesis.Volume,
			Timeout:   cfg.Backend.SynthesisTimeout,
			Token:     cfg.Backend.Token,
		}, logger)
	case "mock":
		return synthesis.NewMock(logger), nil
	default:
		return nil, fmt.Errorf("unknown synthesis provider %q", cfg.Providers.Synthesis)
	}
}
