// Package refserver is an in-memory implementation of the house/room/device API
// the harness validates. It backs local runs and the repository's own tests.
package refserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"homeharness/internal/clock"
	"homeharness/internal/config"
)

// Identifier key styles.
const (
	IDKeyUnderscore = "_id"
	IDKeyPlain      = "id"
)

// Options select the response style and token behavior of a Server.
type Options struct {
	// Envelope wraps success payloads as {success, message, data}.
	Envelope bool
	// IDKey names the identifier field of every resource: "_id" or "id".
	IDKey string
	// TokenTTL is the lifetime of issued bearer tokens.
	TokenTTL time.Duration
	// TokenSecret signs tokens. Empty means a random per-process secret.
	TokenSecret []byte
	// Seed lists the accounts that can log in. Nil selects the built-in seed.
	Seed *config.Seed
	// Clock stamps resources and tokens. Nil selects the real clock.
	Clock clock.Clock
}

// DefaultOptions returns the style the original server used: enveloped payloads
// and "_id" identifiers.
func DefaultOptions() Options {
	return Options{
		Envelope: true,
		IDKey:    IDKeyUnderscore,
		TokenTTL: time.Hour,
	}
}

// Server provides the reference HTTP API
type Server struct {
	opts   Options
	store  *Store
	tokens *TokenManager
	hub    *Hub
	logger *zap.Logger
	router chi.Router
	server *http.Server
	addr   string
}

// NewServer creates a reference API server
func NewServer(opts Options, logger *zap.Logger) (*Server, error) {
	if opts.IDKey == "" {
		opts.IDKey = IDKeyUnderscore
	}
	if opts.IDKey != IDKeyUnderscore && opts.IDKey != IDKeyPlain {
		return nil, fmt.Errorf("unsupported id key %q: must be %q or %q", opts.IDKey, IDKeyUnderscore, IDKeyPlain)
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.Seed == nil {
		opts.Seed = config.DefaultSeed()
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}

	tokens, err := NewTokenManager(opts.TokenSecret, opts.TokenTTL, opts.Clock)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:   opts,
		store:  NewStore(opts.Seed, opts.Clock),
		tokens: tokens,
		hub:    NewHub(logger, opts.Clock.Now),
		logger: logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)
	r.Handle("/events", s.hub)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/houses", func(r chi.Router) {
				r.Get("/", s.handleListHouses)
				r.Post("/", s.handleCreateHouse)

				r.Route("/{houseID}", func(r chi.Router) {
					r.Get("/", s.handleGetHouse)
					r.Put("/", s.handleUpdateHouse)
					r.Delete("/", s.handleDeleteHouse)
					r.Get("/rooms", s.handleListRooms)
					r.Post("/rooms", s.handleCreateRoom)
				})
			})

			r.Route("/rooms/{roomID}", func(r chi.Router) {
				r.Get("/", s.handleGetRoom)
				r.Put("/", s.handleUpdateRoom)
				r.Delete("/", s.handleDeleteRoom)
				r.Get("/devices", s.handleListDevices)
				r.Post("/devices", s.handleCreateDevice)
			})

			r.Route("/devices/{deviceID}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Put("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
			})
		})
	})

	return r
}

// Handler returns the HTTP handler, for embedding in httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Hub returns the event hub behind /events.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Tokens returns the token manager.
func (s *Server) Tokens() *TokenManager {
	return s.tokens
}

// requestLogger logs every request with its final status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.opts.Clock.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", s.opts.Clock.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Start begins serving HTTP requests on addr
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting reference API server",
		zap.String("addr", addr),
		zap.Bool("envelope", s.opts.Envelope),
		zap.String("id_key", s.opts.IDKey))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.addr = ln.Addr().String()

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the address the server listens on once started.
func (s *Server) Addr() string {
	return s.addr
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping reference API server")
	s.hub.Close()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
