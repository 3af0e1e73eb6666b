// Command spotlight-live runs a live audio+video conversation from the
// terminal: microphone audio and camera frames stream up, spoken answers
// play back, and transcripts plus highlight boxes print as they arrive.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gen2brain/malgo"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spotlight-go/spotlight/pkg/config"
	"github.com/spotlight-go/spotlight/pkg/credentials"
	"github.com/spotlight-go/spotlight/pkg/live"
	"github.com/spotlight-go/spotlight/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	envFile := flag.String("env", ".env", "path to env file with GEMINI_API_KEY")
	imagePath := flag.String("image", "", "still image to stream as the camera view")
	model := flag.String("model", "", "override the configured model")
	flag.Parse()

	// Missing env file is fine; the key may come from the environment or the
	// credentials file.
	_ = godotenv.Load(*envFile)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *model != "" {
		cfg.Session.Model = *model
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		m = metrics.New(registry)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("metrics listening", "address", cfg.Metrics.Address)
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{ThreadPriority: malgo.ThreadPriorityRealtime}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	defer func() {
		_ = malgoCtx.Uninit()
	}()

	sessionCfg := cfg.SessionConfig()

	mic, err := newMicSource(malgoCtx.Context, sessionCfg.InputSampleRate, sessionCfg.Channels)
	if err != nil {
		return err
	}
	defer mic.Close()

	speaker, err := newSpeakerOutput(sessionCfg.OutputSampleRate, sessionCfg.Channels)
	if err != nil {
		return err
	}
	defer speaker.Close()

	var camera live.FrameSource
	if *imagePath != "" {
		camera, err = newFileFrameSource(*imagePath)
		if err != nil {
			return err
		}
	} else {
		camera = newSyntheticFrameSource()
	}

	session := live.NewSession(live.SessionOptions{
		Config:      sessionCfg,
		Connector:   live.NewGeminiConnector(cfg.Session.Host),
		Credentials: credentials.Default(),
		Mic:         mic,
		Camera:      camera,
		Output:      speaker,
		Logger:      logger,
		Metrics:     m,
	})

	go printEvents(session, logger)

	fmt.Println("press Enter to start the conversation, Ctrl+C to quit")
	waitForEnter()
	speaker.Resume()

	if err := session.Start(context.Background()); err != nil {
		return err
	}
	defer session.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	return nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func waitForEnter() {
	reader := bufio.NewReader(os.Stdin)
	_, _ = reader.ReadString('\n')
}

// printEvents renders session events to the terminal.
func printEvents(session *live.Session, logger *slog.Logger) {
	for ev := range session.Events() {
		switch e := ev.(type) {
		case *live.TranscriptDeltaEvent:
			fmt.Printf("[%s] %s\n", e.Source, e.Delta)
		case *live.TurnCompleteEvent:
			fmt.Println("--- turn complete ---")
		case *live.BoxesUpdatedEvent:
			for _, box := range e.Boxes {
				fmt.Printf("[box] %s at (%.2f, %.2f) %.2fx%.2f\n",
					box.Label, box.X, box.Y, box.Width, box.Height)
			}
		case *live.BoxesClearedEvent:
			fmt.Println("[box] cleared")
		case *live.StateChangedEvent:
			logger.Info("state changed", "from", e.From.String(), "to", e.To.String())
		case *live.NoticeEvent:
			fmt.Println("[notice]", e.Message)
		case *live.ErrorEvent:
			logger.Error("session error", "error", e.Err)
		case *live.ClosedEvent:
			logger.Info("session closed", "reason", e.Reason)
		}
	}
}
