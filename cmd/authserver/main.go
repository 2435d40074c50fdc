package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/realmd/internal/auth"
	"github.com/udisondev/realmd/internal/config"
	"github.com/udisondev/realmd/internal/db"
	"github.com/udisondev/realmd/internal/metrics"
	"github.com/udisondev/realmd/internal/patch"
	"github.com/udisondev/realmd/internal/realm"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadAuthServer(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Configure slog
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})))

	slog.Info("realmd auth server starting", "bind", cfg.BindAddress, "port", cfg.Port)

	// Run migrations
	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// Connect to database
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	accounts := db.NewAccountRepository(database.Pool())
	bans := db.NewBanRepository(database.Pool())
	realmRepo := db.NewRealmRepository(database.Pool())

	infos, err := realmRepo.LoadBuilds(ctx)
	if err != nil {
		return fmt.Errorf("loading client builds: %w", err)
	}
	builds, err := realm.NewBuildTable(infos)
	if err != nil {
		return fmt.Errorf("building client build table: %w", err)
	}
	slog.Info("client builds loaded", "count", builds.Len())

	realms := realm.NewList(realmRepo, cfg.RealmUpdateInterval())
	if err := realms.Initialize(ctx); err != nil {
		return fmt.Errorf("loading realm list: %w", err)
	}

	patcher := patch.NewPatcher(cfg.DataDir)
	slog.Info("patches loaded", "dir", patcher.Dir(), "count", patcher.Load())

	var m *metrics.Metrics
	if cfg.MetricsAddress != "" {
		m = metrics.Default()
	}

	handler := auth.NewHandler(cfg, accounts, bans, realms, builds, patcher, m)
	server := auth.NewServer(cfg, handler)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Run(gctx); err != nil {
			return fmt.Errorf("auth server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// без каталога патчей сервер работает, просто без hot reload
		if err := patcher.Watch(gctx, patch.DefaultReloadDelay); err != nil {
			slog.Warn("patch directory is not watched", "err", err)
		}
		return nil
	})

	if cfg.MetricsAddress != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddress)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("auth server stopped")
	return nil
}

// serveMetrics exposes /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics endpoint started", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
