package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/mozilla-ai/mcpfleet/internal/domain"
	"github.com/mozilla-ai/mcpfleet/internal/errors"
)

// HealthTracker records per-server health under a single RWMutex, handing out
// copies so callers never share mutable state. Updates are applied in
// issuance order per server: a check that started earlier can never overwrite
// the result of one that started later.
type HealthTracker struct {
	mu      sync.RWMutex
	records map[string]*healthRecord
}

type healthRecord struct {
	health  domain.ServerHealth
	issued  uint64
	applied uint64
}

// NewHealthTracker creates a tracker seeded with an unknown status for each
// named server.
func NewHealthTracker(serverNames []string) *HealthTracker {
	records := make(map[string]*healthRecord, len(serverNames))
	for _, name := range serverNames {
		records[name] = &healthRecord{
			health: domain.ServerHealth{Name: name, Status: domain.HealthStatusUnknown},
		}
	}
	return &HealthTracker{records: records}
}

// Status returns the health record for a single tracked server.
func (h *HealthTracker) Status(name string) (domain.ServerHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rec, ok := h.records[name]; ok {
		return rec.health, nil
	}

	return domain.ServerHealth{}, fmt.Errorf("%w: %s", errors.ErrHealthNotTracked, name)
}

// List returns a copy of all known server health records.
func (h *HealthTracker) List() []domain.ServerHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.ServerHealth, 0, len(h.records))
	for _, name := range slices.Sorted(maps.Keys(h.records)) {
		out = append(out, h.records[name].health)
	}

	return out
}

// BeginCheck registers the issuance of a health check for the server and
// returns the token to pass to Record when the check completes.
func (h *HealthTracker) BeginCheck(name string) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.records[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errors.ErrHealthNotTracked, name)
	}

	rec.issued++

	return rec.issued, nil
}

// Record applies a completed health check issued with token. Results from
// checks that were issued before an already-applied one are dropped, so a
// slow stale probe never overwrites a newer status.
func (h *HealthTracker) Record(
	name string,
	token uint64,
	status domain.HealthStatus,
	latency *time.Duration,
	reason string,
) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.records[name]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrHealthNotTracked, name)
	}

	if token <= rec.applied {
		return nil
	}
	rec.applied = token

	now := time.Now().UTC()

	lastSuccessful := rec.health.LastSuccessful
	if status == domain.HealthStatusOK {
		lastSuccessful = &now
	}

	rec.health = domain.ServerHealth{
		Name:           name,
		Status:         status,
		Reason:         reason,
		Latency:        latency,
		LastChecked:    &now,
		LastSuccessful: lastSuccessful,
	}

	return nil
}

// Update records a health check without explicit issuance ordering, for
// callers that perform one check at a time.
func (h *HealthTracker) Update(name string, status domain.HealthStatus, latency *time.Duration, reason string) error {
	token, err := h.BeginCheck(name)
	if err != nil {
		return err
	}

	return h.Record(name, token, status, latency, reason)
}
