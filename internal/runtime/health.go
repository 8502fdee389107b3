package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"probedge/internal/models"
	"probedge/internal/statestore"
)

// healthWarnAfter and healthDownAfter mirror the teacher's liveness-check
// thresholds: a component that has gone quiet warns first, then is
// declared down, rather than flapping straight to DOWN on one missed beat.
const (
	healthWarnAfter = 10 * time.Second
	healthDownAfter = 60 * time.Second
)

// healthTracker records the last heartbeat timestamp per component and
// derives a HeartbeatStatus from how long ago that was, relative to the
// clock in use (wall or replay).
type healthTracker struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func newHealthTracker() *healthTracker {
	return &healthTracker{last: make(map[string]time.Time)}
}

func (h *healthTracker) heartbeat(component string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[component] = now
}

// snapshot computes the current AgentHB for every component that has
// ever reported a heartbeat, as of now.
func (h *healthTracker) snapshot(now time.Time) map[string]models.AgentHB {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]models.AgentHB, len(h.last))
	for component, ts := range h.last {
		age := now.Sub(ts)
		status := models.HeartbeatOK
		switch {
		case age >= healthDownAfter:
			status = models.HeartbeatDown
		case age >= healthWarnAfter:
			status = models.HeartbeatWarn
		}
		out[component] = models.AgentHB{
			Component:       component,
			Status:          status,
			LastHeartbeatTS: ts,
		}
	}
	return out
}

// runHealth republishes every component's derived health into the
// agents field family, and journals a health_log row on any status
// transition for post-mortem review.
func (r *Runtime) runHealth(ctx context.Context) {
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := r.clk.Now()
			computed := r.health.snapshot(now)
			prev := r.store.Snapshot().Agents

			r.store.Apply(func(s *statestore.State) {
				for component, hb := range computed {
					s.Agents[component] = hb
				}
			})

			for component, hb := range computed {
				old, tracked := prev[component]
				if tracked && old.Status == hb.Status {
					continue
				}
				msg := fmt.Sprintf("%s -> %s", oldStatus(old, tracked), hb.Status)
				if err := r.journal.RecordHealth(ctx, now, component, hb.Status, msg); err != nil {
					r.logger.Error().Err(err).Str("component", component).Msg("failed to journal health transition")
				}
			}
		}
	}
}

func oldStatus(hb models.AgentHB, tracked bool) models.HeartbeatStatus {
	if !tracked {
		return "UNKNOWN"
	}
	return hb.Status
}
