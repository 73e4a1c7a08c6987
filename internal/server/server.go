// Package server exposes the HTTP surface: the query API, the auth endpoints
// and the rendered dashboard views.
package server

import (
	"context"
	"html/template"
	"net/http"

	"github.com/coocood/freecache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mempool-backend/config"
	"mempool-backend/internal/auth"
	"mempool-backend/internal/history"
	"mempool-backend/internal/metrics"
	"mempool-backend/internal/models"
	"mempool-backend/internal/simulate"
	"mempool-backend/web"
)

// SnapshotSource produces the current snapshot; Tick is total.
type SnapshotSource interface {
	Tick(ctx context.Context) models.NetworkSnapshot
}

// FeedStats is the part of the broadcaster surfaced by /health.
type FeedStats interface {
	Port() int
	ClientCount() int
	UniqueClients() uint64
}

// Server wires the handlers to their collaborators.
type Server struct {
	cfg       *config.Config
	snapshots SnapshotSource
	store     *history.Store
	gen       *simulate.Generator
	creds     *auth.Credentials
	sessions  *auth.Sessions
	feed      FeedStats
	metrics   metrics.Provider
	cache     *freecache.Cache
	log       zerolog.Logger
	tmpl      *template.Template
}

// NewServer creates the HTTP server. feed may be nil when the websocket
// listener could not start; /health then reports the feed as disabled.
func NewServer(cfg *config.Config, snapshots SnapshotSource, store *history.Store, gen *simulate.Generator, creds *auth.Credentials, sessions *auth.Sessions, feed FeedStats, m metrics.Provider, log zerolog.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, err
	}

	// A zero TTL disables caching; freecache would treat it as "never expire".
	var cache *freecache.Cache
	if cfg.Cache.Enabled && cfg.Cache.TTL > 0 {
		cache = freecache.NewCache(cfg.Cache.Size)
	}

	return &Server{
		cfg:       cfg,
		snapshots: snapshots,
		store:     store,
		gen:       gen,
		creds:     creds,
		sessions:  sessions,
		feed:      feed,
		metrics:   m,
		cache:     cache,
		log:       log.With().Str("component", "server").Logger(),
		tmpl:      tmpl,
	}, nil
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Query API. Every read endpoint goes through the safe-call wrapper:
	// internal failures degrade to a 200 with synthesized fallback data.
	mux.HandleFunc("/network-data", s.safeJSON("network-data", s.fetchNetworkData, s.fallbackNetworkData))
	mux.HandleFunc("/fee-history", s.safeJSON("fee-history", s.fetchFeeHistory, s.fallbackFeeHistory))
	mux.HandleFunc("/mempool-history", s.safeJSON("mempool-history", s.fetchMempoolHistory, s.fallbackMempoolHistory))
	mux.HandleFunc("/tx-volume-history", s.safeJSON("tx-volume-history", s.fetchVolumeHistory, s.fallbackVolumeHistory))
	mux.HandleFunc("/test-data", s.safeJSON("test-data", s.fetchTestData, s.fallbackTestData))

	// Auth. Conventional status codes; not wrapped.
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/session", s.handleSession)

	// Infrastructure.
	mux.HandleFunc("/health", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	// Views and static assets.
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/user", s.handleUser)
	mux.Handle("/static/", http.FileServer(http.FS(web.Static)))
	mux.HandleFunc("/", s.handleIndex)

	return metrics.Middleware(s.metrics, mux)
}

// Start runs the server until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		return server.Shutdown(context.Background())
	}
}
