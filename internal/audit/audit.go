// Package audit provides the append-only structured event log: one JSON
// object per line, recording egress blocks, breaker transitions and server
// lifecycle events for after-the-fact inspection.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/mcpfleet/internal/files"
	"github.com/mozilla-ai/mcpfleet/internal/perms"
)

const (
	// EventEgressBlocked records an outbound call denied by the egress allowlist.
	EventEgressBlocked EventType = "egress_blocked"

	// EventInvalidURL records an outbound call rejected because its URL could not be parsed.
	EventInvalidURL EventType = "invalid_url"

	// EventAllowlistUpdated records a runtime replacement of the egress allowlist.
	EventAllowlistUpdated EventType = "allowlist_updated"

	// EventBreakerTransition records a circuit breaker state change.
	EventBreakerTransition EventType = "breaker_transition"

	// EventServerSpawned records a successfully started server process.
	EventServerSpawned EventType = "server_spawned"

	// EventServerExited records a server process exit observed by the orchestrator.
	EventServerExited EventType = "server_exited"

	// EventSpawnFailed records a child process that failed to start.
	EventSpawnFailed EventType = "spawn_failed"

	// EventServerSkipped records an enabled server excluded for missing
	// required environment variables.
	EventServerSkipped EventType = "server_skipped"
)

// EventType classifies an audit event.
type EventType string

// Event is a single append-only audit record.
type Event struct {
	ID     string         `json:"id"`
	Time   time.Time      `json:"ts"`
	Type   EventType      `json:"type"`
	Server string         `json:"server,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Recorder appends audit events. Implementations must be safe for concurrent use.
type Recorder interface {
	// Record appends one event. Failures are absorbed: audit logging must
	// never disturb the supervision path.
	Record(eventType EventType, server string, detail map[string]any)
}

var (
	_ Recorder = (*FileRecorder)(nil)
	_ Recorder = (*NopRecorder)(nil)
)

// FileRecorder appends JSON-line events to a file with secure permissions.
type FileRecorder struct {
	logger hclog.Logger
	mu     sync.Mutex
	file   *os.File
}

// NewFileRecorder opens (creating if needed) the audit log at path.
// The parent directory is created with secure permissions.
func NewFileRecorder(logger hclog.Logger, path string) (*FileRecorder, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if path == "" {
		return nil, fmt.Errorf("audit log path cannot be empty")
	}

	if err := files.EnsureAtLeastSecureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("could not prepare audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, perms.SecureFile)
	if err != nil {
		return nil, fmt.Errorf("could not open audit log '%s': %w", path, err)
	}

	return &FileRecorder{
		logger: logger.Named("audit"),
		file:   f,
	}, nil
}

// Record appends one event as a single JSON line.
func (r *FileRecorder) Record(eventType EventType, server string, detail map[string]any) {
	event := Event{
		ID:     uuid.NewString(),
		Time:   time.Now().UTC(),
		Type:   eventType,
		Server: server,
		Detail: detail,
	}

	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("Failed to marshal audit event", "type", eventType, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.file.Write(append(data, '\n')); err != nil {
		r.logger.Error("Failed to write audit event", "type", eventType, "error", err)
	}
}

// Close closes the underlying file.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

// NopRecorder discards all events, used when audit logging is disabled.
type NopRecorder struct{}

// Record implements Recorder and does nothing.
func (NopRecorder) Record(EventType, string, map[string]any) {}
