package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/shards"
)

const (
	serverTimeout   = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// ready is set to true after shardstats has fully initialised, and is used by the
// health endpoint to distinguish "starting up" from "running".
var ready atomic.Bool

type serveCmd struct {
	Config string `type:"path" default:"${config_file}" env:"SHARDSTATS_CONFIG" help:"Config file path"`
}

func (s *serveCmd) Run() error {
	// config
	cfg, err := readConfig(s.Config)
	if err != nil {
		return err
	}

	resolver, err := shardstats.NewGroupResolver(cfg.Groups)
	if err != nil {
		return err
	}

	policy := newGroupPolicy(resolver)

	// shards
	registry := shards.New(shards.Config{Logger: log.Logger})
	for _, id := range cfg.shardIDs() {
		registry.Open(id)
	}

	log.Info().
		Int("shards", len(registry.IDs())).
		Msg("Shards Initialised")

	// Check authentication. If no auth -> warn user.
	if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
		log.Warn().Msg("API Unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// reports
	webhooks, err := initWebhooks(ctx, cfg)
	if err != nil {
		return err
	}

	scheduler, err := newScheduler(cfg, registry, webhooks)
	if err != nil {
		return err
	}

	log.Info().
		Int("webhooks", len(webhooks)).
		Str("report_schedule", cfg.Report.Schedule).
		Str("clear_schedule", cfg.ClearSchedule).
		Msg("Schedules Initialised")

	g, gctx := errgroup.WithContext(ctx)

	// http
	startHTTPServers(gctx, g, cfg, getRouter(cfg, registry, policy))

	// config reload
	watcher, err := newConfigWatcher(s.Config, policy, log.Logger)
	if err != nil {
		log.Warn().
			Err(err).
			Msg("Config Watch Disabled")
	} else {
		g.Go(func() error {
			watcher.run(gctx)
			return nil
		})
	}

	// shard stats
	if cfg.StatsInterval > 0 {
		g.Go(func() error {
			shardStats(gctx, registry, cfg.StatsInterval)
			return nil
		})
	}

	scheduler.Start()

	// display initialised banner
	log.Info().
		Str("version", fmt.Sprintf("%s (%s@%s)", Version, GitCommit, Timestamp)).
		Msg("Shardstats Initialised")

	notifyReady()

	err = g.Wait()

	// wait for running jobs
	<-scheduler.Stop().Done()

	if err != nil {
		return err
	}

	log.Info().Msg("Shardstats Stopped")
	return nil
}

// startHTTPServers starts one server per host address that serves the router.
// The servers shut down once ctx is done.
func startHTTPServers(ctx context.Context, g *errgroup.Group, cfg config, router http.Handler) {
	for _, host := range cfg.Host {
		addr := host
		if !strings.Contains(addr, ":") {
			addr = fmt.Sprintf("%s:%d", host, cfg.Port)
		}

		server := &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  serverTimeout,
			WriteTimeout: serverTimeout,
		}

		g.Go(func() error {
			log.Info().Str("addr", addr).Msg("Server Starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", addr, err)
			}

			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			log.Info().Str("addr", addr).Msg("Server Stopping")
			return server.Shutdown(shutdownCtx)
		})
	}
}

// notifyReady marks the process as ready (sd_notify + ready flag).
func notifyReady() {
	ready.Store(true)

	sdOK, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warn().Err(err).Msg("sd_notify Failed")
	} else if sdOK {
		log.Info().Msg("sd_notify Ready Sent")
	}
}
