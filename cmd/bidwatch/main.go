package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/bidwatch/internal/adapter/driven/browser"
	"github.com/ericfisherdev/bidwatch/internal/adapter/driven/memory"
	"github.com/ericfisherdev/bidwatch/internal/adapter/driven/portal"
	sqliteadapter "github.com/ericfisherdev/bidwatch/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/bidwatch/internal/adapter/driving/http"
	"github.com/ericfisherdev/bidwatch/internal/application"
	"github.com/ericfisherdev/bidwatch/internal/config"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"scrape_interval", cfg.ScrapeInterval,
		"run_on_start", cfg.RunOnStart,
		"headless", cfg.Headless,
		"secret_key_set", cfg.HasSecretKey(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open stores. An unusable database falls back to memory for the life of the process.
	credentialStore, bidStore, closeStores := openStores(ctx, cfg)
	defer closeStores()

	// 4. Wire the scraping core.
	registry := portal.NewRegistry(portal.DefaultTimeouts())
	newBrowser := func() driven.Browser {
		return browser.NewSession(browser.Options{
			Bin:      cfg.BrowserBin,
			Headless: cfg.Headless,
		})
	}
	orchestrator := application.NewOrchestrator(credentialStore, bidStore, registry, newBrowser)

	// 5. Start the scheduler.
	scheduler := application.NewScheduler(orchestrator, cfg.ScrapeInterval, cfg.RunOnStart)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// 6. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(scheduler, orchestrator, bidStore, credentialStore, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	// Manual runs execute inside the request, so the write timeout covers a full scrape.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("bidwatch started",
		"listen_addr", cfg.ListenAddr,
		"schedule", scheduler.Status().Schedule,
	)

	// 7. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (driven.CredentialStore, driven.BidStore, func()) {
	db, err := sqliteadapter.Open(ctx, cfg.DBPath, slog.Default())
	if err != nil {
		slog.Warn("database unavailable, using in-memory stores", "path", cfg.DBPath, "error", err)
		return memory.NewCredentialStore(), memory.NewBidStore(), func() {}
	}
	slog.Info("database opened", "path", cfg.DBPath)

	closeFn := func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}
	return sqliteadapter.NewCredentialRepo(db, cfg.SecretKey), sqliteadapter.NewBidRepo(db), closeFn
}
