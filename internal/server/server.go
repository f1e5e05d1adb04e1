// ABOUTME: Server orchestrator that wires store, sessions, todo service and web UI
// ABOUTME: Manages the HTTP listener, Tailscale node, session sweeps and shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/todo-list/internal/auth"
	"github.com/2389/todo-list/internal/config"
	"github.com/2389/todo-list/internal/store"
	"github.com/2389/todo-list/internal/todo"
	"github.com/2389/todo-list/internal/web"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = time.Hour

// Server runs the todo-list HTTP service.
type Server struct {
	config      *config.Config
	store       store.Store
	redis       *redis.Client
	sessions    *auth.Sessions
	handler     http.Handler
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// sweepInterval is the period between expired-session purges
	sweepInterval time.Duration
}

// New opens the configured backends and builds a Server.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	sessionStore, redisClient, err := openSessionStore(ctx, cfg.Sessions, s)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	srv, err := newServer(cfg, s, sessionStore, logger)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		_ = s.Close()
		return nil, err
	}
	srv.redis = redisClient
	return srv, nil
}

// newServer assembles a Server around already opened stores.
func newServer(cfg *config.Config, s store.Store, sessionStore store.SessionStore, logger *slog.Logger) (*Server, error) {
	accounts := auth.NewAccounts(s, cfg.Accounts.BcryptCost)
	signer := auth.NewCookieSigner([]byte(cfg.Sessions.Secret))
	sessions := auth.NewSessions(sessionStore, s, signer, cfg.Sessions.Duration)
	todos := todo.NewService(s, todo.WithLogger(logger))

	ui, err := web.New(todos, accounts, sessions, web.Config{BasePath: cfg.Server.BasePath})
	if err != nil {
		return nil, fmt.Errorf("creating web UI: %w", err)
	}

	srv := &Server{
		config:        cfg,
		store:         s,
		sessions:      sessions,
		logger:        logger.With("component", "server"),
		sweepInterval: DefaultSweepInterval,
	}

	router := mux.NewRouter()

	// Health endpoints - no auth required
	router.HandleFunc("/health", srv.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", srv.handleReady).Methods(http.MethodGet)

	ui.RegisterRoutes(router)

	srv.handler = withRequestID(accessLog(logger.With("component", "http"), router))
	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupListener creates the HTTP listener (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled",
				"http_addr", s.config.Server.HTTPAddr,
			)
		}
		return s.setupTailscaleListener(ctx)
	}

	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// Run serves until ctx is canceled or the HTTP server fails.
// Returns nil on graceful shutdown (context canceled).
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		_ = s.gracefulShutdown()
		return err
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepSessions(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}
	stopSweep()

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// The Run context is already canceled at this point.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// sweepSessions purges expired sessions now and every sweepInterval.
func (s *Server) sweepSessions(ctx context.Context) {
	purge := func() {
		if _, err := s.sessions.Purge(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("failed to purge expired sessions", "error", err)
		}
	}

	purge()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "todo-list", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener starts a tsnet node and listens on its port 80.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		s.closeTailscale()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	s.logTailscaleStatus(tsCfg.Hostname, status)

	ln, err := s.tsnetServer.Listen("tcp", ":80")
	if err != nil {
		s.closeTailscale()
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return ln, nil
}

// closeTailscale tears down a node that failed to come up.
func (s *Server) closeTailscale() {
	_ = s.tsnetServer.Close()
	s.tsnetServer = nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (s *Server) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	s.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and releases every backend.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))

	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}
	if s.redis != nil {
		errs = appendCloseError(errs, "redis close", s.redis.Close())
	}
	errs = appendCloseError(errs, "store close", s.store.Close())

	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the process is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK when every backend answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("store not ready", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.logger.Warn("redis not ready", "error", err)
			http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
