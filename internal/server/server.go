// Package server serves static files and a live session feed over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rbright/voxscribe/internal/ipc"
)

var ErrPortInUse = errors.New("address already in use")

const shutdownTimeout = 3 * time.Second

// Options configures a Server.
type Options struct {
	Addr      string
	StaticDir string
	// Commands answers /api/status and /api/command; nil disables both.
	Commands ipc.Handler
	Hub      *Hub
	Logger   *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	opts Options
}

// New builds a server.
func New(opts Options) *Server {
	if opts.StaticDir == "" {
		opts.StaticDir = "."
	}
	return &Server{opts: opts}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/api/status", s.handleStatus)
	r.Post("/api/command", s.handleCommand)
	if s.opts.Hub != nil {
		r.Handle("/ws", s.opts.Hub)
	}
	r.Handle("/*", staticHandler(s.opts.StaticDir))
	return r
}

// ListenAndServe binds Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %s; stop the other server or set server.addr", ErrPortInUse, s.opts.Addr)
		}
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve handles requests on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	s.logInfo("http server listening", "addr", listener.Addr().String(), "static_dir", s.opts.StaticDir)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Commands == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no session attached"})
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Commands.Handle(r.Context(), ipc.Request{Command: "status"}))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.opts.Commands == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no session attached"})
		return
	}

	var req ipc.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	resp := s.opts.Commands.Handle(r.Context(), req)
	status := http.StatusOK
	if !resp.OK {
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

// cors allows any origin and answers preflight requests directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// staticHandler serves files under dir and rejects paths that climb out of it.
func staticHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if escapesRoot(r.URL.Path) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func escapesRoot(urlPath string) bool {
	if strings.Contains(urlPath, "\x00") || strings.Contains(urlPath, "\\") {
		return true
	}
	for _, segment := range strings.Split(urlPath, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) logInfo(message string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Info(message, args...)
	}
}
