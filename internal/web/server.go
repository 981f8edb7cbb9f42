// Package web serves the JSON API and the selection event stream consumed by
// the dashboard UI.
package web

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vadiminshakov/marginscope/internal/domain"
	"github.com/vadiminshakov/marginscope/internal/services/marketdata"
	"github.com/vadiminshakov/marginscope/internal/services/risk"
	"github.com/vadiminshakov/marginscope/internal/services/selector"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

const (
	streamPollInterval = 500 * time.Millisecond
	heartbeatInterval  = 20 * time.Second
	shutdownTimeout    = 5 * time.Second
)

type selectionStore interface {
	State() domain.PositionState
	Dispatch(a selector.Action, checks ...selector.Check) (domain.PositionState, error)
	EventsAfter(index uint64) []selector.EventRecord
}

type marketSource interface {
	Current() (*marketdata.Market, bool)
}

// Server exposes the selection API, risk projections and the SSE stream.
type Server struct {
	Addr      string
	Store     selectionStore
	Markets   marketSource
	Projector *risk.Projector

	l       *zap.Logger
	metrics *metrics
	// pollInterval how often the stream checks the journal for new events.
	pollInterval time.Duration
}

// NewServer creates a new web server instance.
func NewServer(l *zap.Logger, addr string, store selectionStore, markets marketSource) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{
		Addr:         addr,
		Store:        store,
		Markets:      markets,
		Projector:    risk.NewProjector(l),
		l:            l,
		metrics:      newMetrics(),
		pollInterval: streamPollInterval,
	}
}

// Handler returns the routed API with request ids, logging and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, h))
	}

	route("GET /api/selection", s.handleGetSelection)
	route("POST /api/selection/select", s.handleSelect)
	route("POST /api/selection/deselect", s.handleDeselect)
	route("POST /api/selection/reset", s.handleReset)
	route("POST /api/selection/interaction", s.handleSetInteraction)
	route("POST /api/selection/base", s.handleSetBase)
	route("GET /api/selection/stream", s.handleSelectionStream)
	route("POST /api/projection", s.handleProjection)
	route("GET /api/market", s.handleMarket)
	route("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.handler())

	return withRequestID(mux)
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.l.Info("api listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Warn("acme server shutdown", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Warn("https server shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Error("acme server", zap.Error(err))
		}
	}()

	s.l.Info("api listening with tls", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
