package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ExpressedAi/Pinkmemory/internal/api"
	"github.com/ExpressedAi/Pinkmemory/internal/config"
	"github.com/ExpressedAi/Pinkmemory/internal/db"
	"github.com/ExpressedAi/Pinkmemory/internal/mcp"
	"github.com/ExpressedAi/Pinkmemory/internal/memory"
	"github.com/ExpressedAi/Pinkmemory/internal/provider"
	"github.com/ExpressedAi/Pinkmemory/internal/scheduler"
)

var version = "dev" // set via ldflags at build time

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	slog.Info("starting pinkmemory", "version", version)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	runtime := config.NewRuntime(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// External providers: embeddings, affect scoring, streamed completion
	embedder, err := provider.NewEmbedClient(cfg.Provider)
	if err != nil {
		slog.Error("failed to create embed client", "error", err)
		os.Exit(1)
	}
	scorer, err := provider.NewAnthropicScorer(cfg.Provider)
	if err != nil {
		slog.Error("failed to create scorer", "error", err)
		os.Exit(1)
	}
	streamer, err := provider.NewAnthropicStreamer(cfg.Provider)
	if err != nil {
		slog.Error("failed to create streamer", "error", err)
		os.Exit(1)
	}

	repo := memory.NewPgRepository(pool)
	svc := memory.NewService(repo, embedder, scorer, streamer, runtime)
	if longScorer := provider.NewLongTermScorer(cfg.Provider); longScorer != nil {
		svc.SetLongTermScorer(longScorer)
	}

	// Decay sweeps run for the lifetime of the process
	sweeper := scheduler.NewSweeper(svc, cfg.Memory.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	// Reflection only runs while autonomy is enabled; the settings API can
	// start and stop it at runtime.
	reflection := scheduler.NewReflection(svc, cfg.Reflection.Interval)
	if cfg.Reflection.Autonomy {
		reflection.Start()
	}
	defer reflection.Stop()

	mcpServer := mcp.NewServer(svc)
	apiRouter := api.NewRouter(svc, runtime, reflection)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpServer.Handler())
	mux.Handle("/", apiRouter)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // chat responses stream until the model finishes
		IdleTimeout:  120 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("pinkmemory server listening",
		"addr", addr,
		"mcp", "/mcp",
		"rest", "/api/v1/",
		"health", "/health",
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	// Pending score boosts from in-flight recalls finish before exit
	svc.WaitBoosts()

	slog.Info("server stopped")
}
