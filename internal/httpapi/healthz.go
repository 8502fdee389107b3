// Package httpapi exposes the single ambient ops endpoint this service
// needs: a read-only /healthz liveness probe. The full state/plan JSON
// surface the browser UI consumes is an external collaborator's concern,
// not this package's.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"probedge/internal/models"
	"probedge/internal/statestore"
)

// componentDoc is one entry in /healthz's components map.
type componentDoc struct {
	Status          models.HeartbeatStatus `json:"status"`
	LastHeartbeatTS time.Time              `json:"last_heartbeat_ts"`
}

// healthzDoc is the full /healthz response body.
type healthzDoc struct {
	Status     models.HeartbeatStatus  `json:"status"`
	Components map[string]componentDoc `json:"components"`
}

// Server serves /healthz from a statestore.Store's current snapshot.
// It owns no state of its own: every request reads the store fresh.
type Server struct {
	store  *statestore.Store
	logger zerolog.Logger
	srv    *http.Server
}

// New builds a Server bound to addr. Call Run to start serving.
func New(addr string, store *statestore.Store, logger zerolog.Logger) *Server {
	s := &Server{store: store, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()

	doc := healthzDoc{
		Status:     models.HeartbeatOK,
		Components: make(map[string]componentDoc, len(snap.Agents)),
	}
	for component, hb := range snap.Agents {
		doc.Components[component] = componentDoc{
			Status:          hb.Status,
			LastHeartbeatTS: hb.LastHeartbeatTS,
		}
		if worse(hb.Status, doc.Status) {
			doc.Status = hb.Status
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if doc.Status == models.HeartbeatDown {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode /healthz response")
	}
}

// worse reports whether candidate is a more severe status than current,
// for rolling up per-component statuses into one overall status: DOWN
// beats WARN beats OK.
func worse(candidate, current models.HeartbeatStatus) bool {
	rank := func(s models.HeartbeatStatus) int {
		switch s {
		case models.HeartbeatDown:
			return 2
		case models.HeartbeatWarn:
			return 1
		default:
			return 0
		}
	}
	return rank(candidate) > rank(current)
}
