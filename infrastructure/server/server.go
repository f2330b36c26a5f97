// Package server exposes the optional status HTTP endpoints
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"clipwatch/infrastructure/logging"
	"clipwatch/infrastructure/sqlite"
)

// History lists persisted detections
type History interface {
	List(ctx context.Context, clip string, limit int) ([]sqlite.Record, error)
}

// Deps are the collaborators behind the routes; nil members disable their route
type Deps struct {
	// Status returns the JSON-encodable health snapshot
	Status  func() any
	History History
	Feed    http.Handler
}

// Server is a thin wrapper over chi + stdlib http.Server
type Server struct {
	addr string
	srv  *http.Server
}

// NewRouter mounts /healthz, /detections and /ws
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Status == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		writeJSON(w, http.StatusOK, deps.Status())
	})

	if deps.History != nil {
		r.Get("/detections", func(w http.ResponseWriter, r *http.Request) {
			limit := 50
			if v := r.URL.Query().Get("limit"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
					return
				}
				limit = n
			}

			records, err := deps.History.List(r.Context(), r.URL.Query().Get("clip"), limit)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			if records == nil {
				records = []sqlite.Record{}
			}
			writeJSON(w, http.StatusOK, records)
		})
	}

	if deps.Feed != nil {
		r.Handle("/ws", deps.Feed)
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// New creates a server listening on addr
func New(addr string, deps Deps) *Server {
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Addr returns the listening address
func (s *Server) Addr() string { return s.addr }

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	log := logging.Named("http")

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("status server listening")

	errc := make(chan error, 1)
	go func() {
		errc <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
