// internal/httpserver/server.go
//
// HTTP server wiring for the idiom chain backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, metrics).
//   - Public endpoints: "/", "/health", "/metrics", "/debug/idioms".
//   - Chat endpoints: POST /chats/{chatID}/commands, GET /chats/{chatID}/session,
//     GET /scores/{chatID}.
//   - Moderator endpoints: POST /auth/login, /moderation/* (require moderator JWT).
//
// Notes:
//   - A chat transport (bot gateway) posts one Command per user action and
//     renders the returned events; the same events also go to the configured
//     notify.Publisher.
//   - Recoverable game errors are events in a 200 response; only malformed
//     requests and auth failures produce error statuses.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robalobadob/idiomchain/internal/bot"
	"github.com/robalobadob/idiomchain/internal/contrib"
	"github.com/robalobadob/idiomchain/internal/dictionary"
	"github.com/robalobadob/idiomchain/internal/game"
	"github.com/robalobadob/idiomchain/internal/ledger"
	"github.com/robalobadob/idiomchain/internal/metrics"
)

// Deps are the core services the HTTP layer exposes.
type Deps struct {
	Bot     *bot.Dispatcher
	Games   *game.Manager
	Dict    *dictionary.Store
	Ledger  *ledger.Ledger
	Contrib *contrib.Workflow
}

// Auth configures moderator login.
type Auth struct {
	ModeratorID           string
	ModeratorPasswordHash string
	JWTSecret             string
	JWTExpires            time.Duration
}

// Server bundles the router and the services behind it.
type Server struct {
	r    *chi.Mux
	deps Deps
	auth Auth
	http *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(deps Deps, auth Auth, clientOrigin string) *Server {
	if auth.JWTExpires <= 0 {
		auth.JWTExpires = 14 * 24 * time.Hour
	}
	s := &Server{r: chi.NewRouter(), deps: deps, auth: auth}
	s.http = &http.Server{Handler: s.r, ReadHeaderTimeout: 5 * time.Second}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(metrics.Middleware)              // request counters per route
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(clientOrigin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"idiomchain","endpoints":["/health","POST /chats/{chatID}/commands","GET /scores/{chatID}","/moderation/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	s.r.Get("/debug/idioms", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(s.deps.Dict.Stats())
	})

	s.mountChat()
	s.mountModeration()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})
	return s
}

// Start begins serving HTTP on addr. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server; a later Start returns at once.
func (s *Server) Shutdown(ctx context.Context) error { return s.http.Shutdown(ctx) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors allows a single origin (or "*"). Credentials are only allowed for a
// concrete origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeCommandError maps Dispatch errors to statuses.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bot.ErrUnknownCommand):
		http.Error(w, `{"error":"unknown_command"}`, http.StatusBadRequest)
	case errors.Is(err, bot.ErrMissingChat):
		http.Error(w, `{"error":"missing_chat"}`, http.StatusBadRequest)
	case errors.Is(err, bot.ErrForbidden):
		http.Error(w, `{"error":"Forbidden"}`, http.StatusForbidden)
	default:
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	}
}
