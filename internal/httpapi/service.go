// Package httpapi exposes the batch-send API consumed by the wizard UI:
// multipart run submission, run status/progress polling, and saved
// recipient-list management.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Anant-tripathi/WABulkMessenger/internal/automation"
	"github.com/Anant-tripathi/WABulkMessenger/internal/dispatch"
	"github.com/Anant-tripathi/WABulkMessenger/internal/staging"
	"github.com/Anant-tripathi/WABulkMessenger/internal/store"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

// Config controls the HTTP server.
//
// Security:
//   - Prefer binding to localhost (default).
//   - If binding to a non-loopback address, set Token.
type Config struct {
	Enabled bool
	Addr    string
	Token   string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RatePerMin caps run submissions; every run is a long browser-driven
	// batch, so a handful per minute is already generous.
	RatePerMin int
}

// Deps are the collaborators the handlers need. Store may be nil (list
// endpoints then answer 404).
type Deps struct {
	Dispatcher *dispatch.Service
	Session    *automation.Session
	Staging    *staging.Store
	Store      store.Store

	// ContactPattern validates inline contact fields; nil falls back to
	// the campaign default.
	ContactPattern *regexp.Regexp
}

type Service struct {
	mu   sync.Mutex
	log  logx.Logger
	cfg  Config
	deps Deps

	limiter *rate.Limiter

	ln  net.Listener
	srv *http.Server
}

func New(cfg Config, deps Deps, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	rpm := cfg.RatePerMin
	if rpm <= 0 {
		rpm = 6
	}
	return &Service{
		log:     log,
		cfg:     cfg,
		deps:    deps,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:5000"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  orDefault(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: orDefault(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(s.cfg.IdleTimeout, 60*time.Second),
	}
	s.ln = ln
	s.srv = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", logx.Err(err))
		}
	}()

	s.log.Info("http api listening", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/healthz", s.handleHealth)
	mux.HandleFunc("POST /api/runs", s.handleSubmitRun)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRunStatus)
	mux.HandleFunc("GET /api/runs/{id}/progress", s.handleRunProgress)
	mux.HandleFunc("GET /api/lists", s.handleLists)
	mux.HandleFunc("GET /api/lists/{name}", s.handleGetList)
	mux.HandleFunc("DELETE /api/lists/{name}", s.handleDeleteList)
	return s.wrap(mux)
}

// wrap applies CORS (the wizard UI is served from its own dev origin, like
// the original express backend behind cors()) and the optional token guard.
func (s *Service) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if token := s.token(); token != "" {
			got := r.Header.Get("Authorization")
			got = strings.TrimPrefix(got, "Bearer ")
			if got != token {
				writeErr(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.cfg.Token)
}
