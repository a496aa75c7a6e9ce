package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gnemet/DeckForge/internal/ai"
	"github.com/gnemet/DeckForge/internal/config"
	"github.com/gnemet/DeckForge/internal/database"
	"github.com/gnemet/DeckForge/internal/generator"
	"github.com/gnemet/DeckForge/internal/i18n"
	"github.com/gnemet/DeckForge/internal/logger"
	"github.com/gnemet/DeckForge/internal/observer"
	"github.com/gnemet/DeckForge/internal/storage"
	"github.com/gnemet/DeckForge/internal/web"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	i18n.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	aiClient, err := ai.NewClient(&cfg.AI)
	if err != nil {
		logger.Fatal(ctx, "failed to init ai client", err)
	}

	opts := web.Options{Config: cfg}

	var usage generator.UsageRecorder
	if cfg.Database.Enabled() {
		db, err := database.NewConnection(ctx, cfg.Database.GetConnectStr())
		if err != nil {
			logger.Fatal(ctx, "failed to connect to database", err)
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			logger.Fatal(ctx, "failed to prepare database", err)
		}
		repo := database.NewRepository(db)
		usage = repo
		opts.Stats = repo
	} else {
		logger.Info(ctx, "no database configured, usage ledger disabled")
	}

	orch := generator.NewOrchestrator(aiClient, usage)
	jobs, err := generator.NewJobs(orch, cfg.Application.JobCacheSize)
	if err != nil {
		logger.Fatal(ctx, "failed to init job store", err)
	}
	opts.Orchestrator = orch
	opts.Jobs = jobs

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Application.Storage.Inbox != "" {
		sink, err := storage.NewSink(cfg.Application.Storage)
		if err != nil {
			logger.Fatal(ctx, "failed to init deck storage", err)
		}
		_, settings, _ := cfg.AI.Active()
		if settings.Key == "" {
			logger.Warn(ctx, "batch inbox enabled but the active provider has no key; requests will be rejected", "provider", aiClient.Provider())
		}

		logChan := make(chan string, 100)
		obs := observer.NewObserver(cfg.Application.Storage, orch, sink, settings.Key, logChan)
		batchLog := web.NewLogBuffer(200)
		opts.Batch = obs
		opts.BatchLog = batchLog

		g.Go(func() error { return obs.Start(gctx) })
		g.Go(func() error { return batchLog.Consume(gctx, logChan) })
	}

	srv, err := web.NewServer(opts)
	if err != nil {
		logger.Fatal(ctx, "failed to init web server", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Application.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info(ctx, "DeckForge starting",
			"addr", httpServer.Addr,
			"provider", aiClient.Provider(),
			"model", aiClient.Model(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal(ctx, "server stopped", err)
	}

	logger.Info(context.Background(), "waiting for running generations")
	jobs.Wait()
	logger.Info(context.Background(), "DeckForge stopped")
}
