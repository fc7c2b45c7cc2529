package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/ghostrev/internal/api"
	"github.com/MikeSquared-Agency/ghostrev/internal/clock"
	"github.com/MikeSquared-Agency/ghostrev/internal/config"
	"github.com/MikeSquared-Agency/ghostrev/internal/hermes"
	"github.com/MikeSquared-Agency/ghostrev/internal/monetize"
	"github.com/MikeSquared-Agency/ghostrev/internal/processor"
	"github.com/MikeSquared-Agency/ghostrev/internal/push"
	"github.com/MikeSquared-Agency/ghostrev/internal/session"
	"github.com/MikeSquared-Agency/ghostrev/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	slog.Info("ghostrev starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session store
	var sessions session.Store = session.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to open session store", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		sessions = db
		slog.Info("session store connected")
	} else {
		slog.Warn("DATABASE_URL not set, sessions are kept in memory")
	}

	clk := clock.Real{}

	// Presenters: every decision is logged and pushed to connected tabs.
	hub := push.NewHub(slog.Default())
	presenters := monetize.Fanout{monetize.LogPresenter{Logger: slog.Default()}, hub}

	// NATS/Hermes (optional)
	var hermesClient *hermes.Client
	var onLock monetize.LockFunc
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		slog.Info("NATS connected", "url", cfg.NatsURL)

		natsPresenter := hermes.NewPresenter(hermesClient, clk, slog.Default())
		presenters = append(presenters, natsPresenter)
		onLock = natsPresenter.SessionLocked
	} else {
		slog.Warn("NATS not configured, ad decisions are not published to the bus")
	}

	// Processor owns the live pages
	proc := processor.New(sessions, clk, presenters, processor.Options{
		Cooldown:     cfg.Cooldown,
		DismissAfter: cfg.AdDismiss,
		PageTTL:      cfg.PageTTL,
		OnLock:       onLock,
	}, slog.Default())

	if hermesClient != nil {
		subs := map[string]func(string, []byte){
			hermes.SubjectPageLoaded: proc.HandlePageLoaded,
			hermes.SubjectPageEvent:  proc.HandlePageEvent,
			hermes.SubjectPageClosed: proc.HandlePageClosed,
		}
		for subject, handler := range subs {
			if err := hermesClient.Subscribe(subject, handler); err != nil {
				slog.Error("failed to subscribe", "subject", subject, "error", err)
				os.Exit(1)
			}
		}
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, proc, hub)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if hermesClient != nil {
		if err := hermesClient.Register(cfg.Port, cfg.Cooldown); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("ghostrev ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown error", "error", err)
	}
	if hermesClient != nil {
		if err := hermesClient.Drain(); err != nil {
			slog.Warn("NATS drain error", "error", err)
		}
	}
	proc.Shutdown()
	cancel()
	slog.Info("ghostrev stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
