package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/happypartner/voicelink/adapters/playback"
	"github.com/happypartner/voicelink/internal/bridge"
	"github.com/happypartner/voicelink/internal/metrics"
	"github.com/happypartner/voicelink/internal/safety"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local UI bridge server",
	Long: `Runs the bridge the graphical UI connects to: a websocket that
mirrors the conversation and accepts chat and recording commands, plus
parental-control and operational endpoints.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	hub := bridge.NewHub(logger)
	filter := safety.NewFilter(nil)
	m := metrics.New(prometheus.DefaultRegisterer)

	// Playback happens on the connected UI client, not in the bridge.
	player := playback.NewNop(logger)

	pipeline, err := buildPipeline(ctx, cfg, hub, filter, player, m, logger)
	if err != nil {
		return err
	}
	hub.Bind(pipeline)
	go hub.Run(ctx)

	settings := bridge.NewSettingsStore(cfg.Chat.UserID, filter)
	server := bridge.NewServer(hub, settings, cfg.Bridge.TokenSecret, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Bridge.Address)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("bridge shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("bridge forced to shutdown", zap.Error(err))
		return err
	}
	logger.Info("bridge exited")
	return nil
}
