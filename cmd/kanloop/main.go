package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kanloop/kanloop/internal/config"
	"github.com/kanloop/kanloop/internal/realtime"
	"github.com/kanloop/kanloop/internal/server"
	"github.com/kanloop/kanloop/internal/server/middleware"
	"github.com/kanloop/kanloop/internal/store/postgres"
	redisstore "github.com/kanloop/kanloop/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("KANLOOP_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("KANLOOP_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Optional Redis: cross-instance fan-out bridge plus GET response cache.
	var (
		bridge    realtime.Bridge
		respCache middleware.ResponseCache
		redisRun  func(*realtime.Service)
	)
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if redisErr != nil {
			return redisErr
		}
		defer redisClient.Close()

		rb := redisstore.NewBridge(redisClient)
		bridge = rb
		respCache = redisstore.NewResponseCache(redisClient)

		redisRun = func(rt *realtime.Service) {
			go func() {
				if runErr := rb.Run(ctx, rt.Broadcaster().Deliver); runErr != nil {
					log.Error().Err(runErr).Msg("redis bridge stopped")
				}
			}()
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis bridge enabled")
	} else {
		log.Info().Msg("redis not configured, running single-node")
	}

	// Create the realtime collaboration core.
	rt := realtime.NewService(bridge, log.Logger)
	defer rt.Close()

	if redisRun != nil {
		redisRun(rt)
	}

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, store, rt, respCache)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
