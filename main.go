package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"mempool-backend/config"
	"mempool-backend/internal/auth"
	"mempool-backend/internal/broadcaster"
	"mempool-backend/internal/history"
	"mempool-backend/internal/metrics"
	"mempool-backend/internal/server"
	"mempool-backend/internal/simulate"
	"mempool-backend/internal/snapshot"
	"mempool-backend/internal/upstream"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}
	conf.Debug = *debug

	log := newLogger(conf)
	log.Info().Str("app", conf.AppName).Msg("starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared state, constructed once and passed by reference.
	store := history.NewStore(conf.History.Window)
	gen := simulate.NewGenerator(conf.Simulate)
	creds := auth.NewCredentials()
	sessions := auth.NewSessions(conf.Auth)
	m := metrics.NewProvider(conf.Metrics)

	client := upstream.NewClient(conf.Upstream, gen)
	snapshots := snapshot.NewService(client, store, m, log)
	feed := broadcaster.NewBroadcaster(conf.Broadcast, snapshots, m, log)

	srv, err := server.NewServer(conf, snapshots, store, gen, creds, sessions, feed, m, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to create server")
		os.Exit(1)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		feed.Start(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("graceful shutdown completed")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout reached")
	}
}

func newLogger(conf *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(conf.Logger.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	var log zerolog.Logger
	if conf.Logger.Pretty || conf.Debug {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}
