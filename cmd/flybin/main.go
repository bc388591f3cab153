package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"flybin/cfg"
	"flybin/svc/api"
	"flybin/svc/cache"
	"flybin/svc/db"
	"flybin/svc/ingest"
	"flybin/svc/lim"
	"flybin/svc/svc"
	"flybin/svc/util"
)

func main() {
	godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		util.Fatal().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}
	if err := cfg.Validate(c); err != nil {
		util.Fatal().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	util.InitLog(c.LogLevel, c.Environment == "development")
	util.Info().Msg("starting flybin")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqlDB, err := db.NewSQLiteWithConfig(c.DatabasePath, c.DBMaxOpenConns, c.DBMaxIdleConns, c.DBQueryTimeout)
	if err != nil {
		util.Fatal().Err(err).Msg("failed to initialize database")
		os.Exit(1)
	}
	defer sqlDB.Close()
	util.Info().Str("path", c.DatabasePath).Msg("database initialized")

	var rdb *db.Redis
	if c.RedisURL != "" {
		rdb, err = db.NewRedis(c.RedisURL, c.RedisTimeout)
		if err != nil {
			if c.Environment == "production" {
				util.Fatal().Err(err).Msg("redis required in production")
				os.Exit(1)
			}
			util.Warn().Err(err).Msg("redis unavailable (dev mode)")
		} else {
			util.Info().Msg("redis connected")
		}
	}
	if rdb != nil {
		defer rdb.Close()
	}

	lruCache, err := cache.NewLRU(c.LRUCacheSize)
	if err != nil {
		util.Fatal().Err(err).Msg("failed to create LRU cache")
		os.Exit(1)
	}
	util.Info().Int("size", c.LRUCacheSize).Msg("LRU cache initialized")

	pasteSvc := svc.NewPaste(sqlDB, lruCache)

	bucket := lim.NewShared(rdb, c.AdmitPermits, c.AdmitWindow, c.AdmitQueueSize)
	util.Info().
		Int("permits", c.AdmitPermits).
		Dur("window", c.AdmitWindow).
		Int("queue", c.AdmitQueueSize).
		Msg("admission bucket initialized")

	server := api.NewServer(c, pasteSvc, bucket, sqlDB, rdb)
	listener := ingest.New(c, pasteSvc)

	quitWAL := make(chan struct{})
	go db.StartWALMaintenance(sqlDB.DB(), quitWAL)

	if err := svc.StartSweeper(ctx, sqlDB, c.SweepInterval); err != nil {
		util.Error().Err(err).Msg("failed to start sweeper")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(listener.Start)
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigCh:
			util.Info().Msg("shutting down gracefully...")
		case <-gctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			util.Error().Err(err).Msg("http server shutdown error")
		}
		if err := listener.Shutdown(shutdownCtx); err != nil {
			util.Error().Err(err).Msg("ingest listener shutdown error")
		}
		close(quitWAL)
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		util.Fatal().Err(err).Msg("server failed")
		os.Exit(1)
	}
	util.Info().Msg("shutdown complete")
}
