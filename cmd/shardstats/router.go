package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/cloudbox/shardstats/api"
	"github.com/cloudbox/shardstats/exporter"
	"github.com/cloudbox/shardstats/shards"
)

func createCredentials(cfg config) map[string]string {
	creds := make(map[string]string)
	creds[cfg.Auth.Username] = cfg.Auth.Password
	return creds
}

func getRouter(cfg config, registry *shards.Registry, policy *groupPolicy) chi.Router {
	mux := chi.NewRouter()

	// Middleware
	mux.Use(middleware.Recoverer)

	// Logging-related middleware
	mux.Use(hlog.NewHandler(log.Logger))
	mux.Use(hlog.RequestIDHandler("id", "request-id"))
	mux.Use(hlog.URLHandler("url"))
	mux.Use(hlog.MethodHandler("method"))
	mux.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Int("status", status).
			Dur("duration", duration).
			Msg("Request Processed")
	}))

	// Health check
	mux.Get("/health", healthHandler)

	// Prometheus
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", exporter.HTTPHandler(exporter.NewRegistry(registry, cfg.Metrics.Groups)))
	}

	// Stats and shard lifecycle
	mux.Group(func(sub chi.Router) {
		// Use Basic Auth middleware if username and password are set.
		if cfg.Auth.Username != "" && cfg.Auth.Password != "" {
			sub.Use(middleware.BasicAuth("Shardstats", createCredentials(cfg)))
		}

		api.New(api.Config{
			Registry: registry,
			Groups:   policy.Resolver,
		}).Mount(sub)
	})

	return mux
}

// Other Handlers
func healthHandler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	if ready.Load() {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte(`{"status":"ready"}`))
	} else {
		rw.WriteHeader(http.StatusServiceUnavailable)
		_, _ = rw.Write([]byte(`{"status":"initializing"}`))
	}
}
