// ABOUTME: Gateway orchestrator wiring the store, assignment engine, relay, and HTTP server
// ABOUTME: Manages startup bootstrap, route registration, and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/glotdesk/glotdesk/internal/assign"
	"github.com/glotdesk/glotdesk/internal/auth"
	"github.com/glotdesk/glotdesk/internal/config"
	"github.com/glotdesk/glotdesk/internal/presence"
	"github.com/glotdesk/glotdesk/internal/relay"
	"github.com/glotdesk/glotdesk/internal/store"
	"github.com/glotdesk/glotdesk/internal/translator"
	"github.com/google/uuid"
)

// Gateway orchestrates the glotdesk server components: the SQLite store,
// the assignment engine, the message relay, the presence registry, and the
// HTTP server carrying both the REST API and the websocket endpoint.
type Gateway struct {
	config     *config.Config
	store      store.Store
	verifier   *auth.JWTVerifier
	engine     *assign.Engine
	relay      *relay.Service
	presence   *presence.Registry
	translator translator.Translator
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates a store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("GLOTDESK_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// initTranslator builds the translation client with its TTL cache.
func initTranslator(cfg *config.Config) (translator.Translator, error) {
	client, err := translator.NewClient(translator.Options{
		BaseURL: cfg.Translator.BaseURL,
		APIKey:  cfg.Translator.APIKey,
		Timeout: cfg.Translator.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating translator client: %w", err)
	}
	return translator.NewCached(client, cfg.Translator.CacheTTL), nil
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	trans, err := initTranslator(cfg)
	if err != nil {
		return nil, err
	}

	reg := presence.NewRegistry(logger)
	engine := assign.New(s, logger.With("component", "assign"))
	relaySvc := relay.NewService(s, trans, reg, logger)

	gw := &Gateway{
		config:     cfg,
		store:      s,
		verifier:   auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)),
		engine:     engine,
		relay:      relaySvc,
		presence:   reg,
		translator: trans,
		logger:     logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/health/ready", gw.handleReady)

	gw.registerRoutes(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// registerRoutes registers the API and websocket routes on the mux.
func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	authMW := auth.Middleware(g.verifier)
	staffMW := auth.RequireRole(auth.RoleAgent, auth.RoleAdmin, auth.RoleSuperadmin)
	adminMW := auth.RequireRole(auth.RoleAdmin, auth.RoleSuperadmin)
	superMW := auth.RequireRole(auth.RoleSuperadmin)

	// Public endpoints
	mux.HandleFunc("POST /api/clients/signup", g.handleClientSignup)
	mux.HandleFunc("POST /api/clients/login", g.handleClientLogin)
	mux.HandleFunc("POST /api/staff/login", g.handleStaffLogin)
	mux.HandleFunc("GET /api/languages", g.handleListLanguages)

	// Authenticated endpoints
	mux.Handle("POST /api/staff/logout", authMW(staffMW(http.HandlerFunc(g.handleStaffLogout))))
	mux.Handle("PATCH /api/me/status", authMW(staffMW(http.HandlerFunc(g.handleUpdateStatus))))
	mux.Handle("PATCH /api/me/language", authMW(http.HandlerFunc(g.handleUpdateLanguage)))
	mux.Handle("POST /api/messages", authMW(http.HandlerFunc(g.handleSendMessage)))
	mux.Handle("POST /api/messages/voice", authMW(http.HandlerFunc(g.handleSendVoiceMessage)))
	mux.Handle("GET /api/messages", authMW(http.HandlerFunc(g.handleHistory)))
	mux.Handle("GET /api/clients", authMW(staffMW(http.HandlerFunc(g.handleListClients))))

	// Admin endpoints
	mux.Handle("GET /api/agents", authMW(adminMW(http.HandlerFunc(g.handleListAgents))))
	mux.Handle("POST /api/agents", authMW(adminMW(http.HandlerFunc(g.handleCreateAgent))))
	mux.Handle("DELETE /api/agents/{id}", authMW(adminMW(http.HandlerFunc(g.handleDeleteAgent))))
	mux.Handle("POST /api/agents/reconcile", authMW(adminMW(http.HandlerFunc(g.handleReconcile))))

	// Superadmin endpoints
	mux.Handle("POST /api/admins", authMW(superMW(http.HandlerFunc(g.handleCreateAdmin))))

	// Live channel - token is carried in the query string because browser
	// websocket clients cannot set an Authorization header
	mux.HandleFunc("GET /ws", g.handleWebSocket)

	// Voice recordings
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(g.config.Uploads.Dir))))
}

// bootstrapSuperadmin creates the configured superadmin account on first
// startup. Subsequent startups find the account and leave it alone.
func (g *Gateway) bootstrapSuperadmin(ctx context.Context) error {
	_, err := g.store.GetUserByEmail(ctx, g.config.Superadmin.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("checking superadmin: %w", err)
	}

	hash, err := auth.HashPassword(g.config.Superadmin.Password)
	if err != nil {
		return fmt.Errorf("hashing superadmin password: %w", err)
	}

	now := time.Now().UTC()
	su := &store.User{
		ID:           uuid.New().String(),
		FirstName:    "Super",
		LastName:     "Admin",
		Email:        g.config.Superadmin.Email,
		Username:     "superadmin",
		PasswordHash: hash,
		Role:         store.RoleSuperadmin,
		Verified:     true,
		Status:       store.StatusNotActive,
		Language:     "en",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := g.store.CreateUser(ctx, su); err != nil {
		return fmt.Errorf("creating superadmin: %w", err)
	}

	g.logger.Info("superadmin account created", "email", su.Email)
	return nil
}

// Run starts the gateway and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the
// server fails.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.bootstrapSuperadmin(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(g.config.Uploads.Dir, 0o750); err != nil {
		return fmt.Errorf("creating uploads dir: %w", err)
	}

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops the gateway and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	g.presence.Close()

	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the store answers queries.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := g.store.GetUserByEmail(r.Context(), g.config.Superadmin.Email); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
