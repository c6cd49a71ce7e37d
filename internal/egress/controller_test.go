package egress

import (
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/mcpfleet/internal/audit"
)

// captureRecorder collects audit events for assertions.
type captureRecorder struct {
	mu     sync.Mutex
	events []audit.EventType
}

func (r *captureRecorder) Record(eventType audit.EventType, _ string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *captureRecorder) Events() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.EventType(nil), r.events...)
}

func newTestController(t *testing.T, allowlist []string, opt ...ControllerOption) (*Controller, *captureRecorder) {
	t.Helper()

	recorder := &captureRecorder{}
	c, err := NewController(hclog.NewNullLogger(), recorder, allowlist, opt...)
	require.NoError(t, err)

	return c, recorder
}

func TestNewController_Validation(t *testing.T) {
	t.Parallel()

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()

		_, err := NewController(nil, audit.NopRecorder{}, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "logger cannot be nil")
	})

	t.Run("nil recorder", func(t *testing.T) {
		t.Parallel()

		_, err := NewController(hclog.NewNullLogger(), nil, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "audit recorder cannot be nil")
	})
}

func TestController_IsAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		allowlist []string
		hostname  string
		want      bool
	}{
		{
			name:      "empty allowlist allows everything",
			allowlist: nil,
			hostname:  "api.example.com",
			want:      true,
		},
		{
			name:      "exact match",
			allowlist: []string{"api.example.com"},
			hostname:  "api.example.com",
			want:      true,
		},
		{
			name:      "exact mismatch",
			allowlist: []string{"api.example.com"},
			hostname:  "evil.example.org",
			want:      false,
		},
		{
			name:      "wildcard covers subdomain",
			allowlist: []string{"*.example.com"},
			hostname:  "api.example.com",
			want:      true,
		},
		{
			name:      "wildcard covers nested subdomain",
			allowlist: []string{"*.example.com"},
			hostname:  "a.b.example.com",
			want:      true,
		},
		{
			name:      "wildcard does not cover apex",
			allowlist: []string{"*.example.com"},
			hostname:  "example.com",
			want:      false,
		},
		{
			name:      "hostname comparison is case-insensitive",
			allowlist: []string{"API.Example.Com"},
			hostname:  "api.example.com",
			want:      true,
		},
		{
			name:      "whitespace trimmed from lookup",
			allowlist: []string{"api.example.com"},
			hostname:  "  api.example.com  ",
			want:      true,
		},
		{
			name:      "empty entries are dropped",
			allowlist: []string{"", "  "},
			hostname:  "anything.example.com",
			want:      true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, _ := newTestController(t, tc.allowlist)
			require.Equal(t, tc.want, c.IsAllowed(tc.hostname))
		})
	}
}

func TestController_ValidateURL_Allowed(t *testing.T) {
	t.Parallel()

	c, recorder := newTestController(t, []string{"api.example.com"})

	require.True(t, c.ValidateURL("https://api.example.com/v1/health", "probe:time"))
	require.Empty(t, recorder.Events())
}

func TestController_ValidateURL_Blocked(t *testing.T) {
	t.Parallel()

	var blocked []string
	c, recorder := newTestController(t, []string{"api.example.com"}, WithBlockedCallback(func(callContext string) {
		blocked = append(blocked, callContext)
	}))

	require.False(t, c.ValidateURL("https://evil.example.org/steal", "probe:time"))
	require.Equal(t, []audit.EventType{audit.EventEgressBlocked}, recorder.Events())
	require.Equal(t, []string{"probe:time"}, blocked)
}

func TestController_ValidateURL_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		rawURL string
	}{
		{
			name:   "unparseable",
			rawURL: "http://[::1",
		},
		{
			name:   "no hostname",
			rawURL: "not-a-url",
		},
		{
			name:   "empty",
			rawURL: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, recorder := newTestController(t, []string{"api.example.com"})
			require.False(t, c.ValidateURL(tc.rawURL, "probe:time"))
			require.Equal(t, []audit.EventType{audit.EventInvalidURL}, recorder.Events())
		})
	}
}

func TestController_UpdateAllowlist(t *testing.T) {
	t.Parallel()

	c, recorder := newTestController(t, []string{"old.example.com"})
	require.True(t, c.IsAllowed("old.example.com"))

	c.UpdateAllowlist([]string{"  NEW.example.com ", ""})

	require.False(t, c.IsAllowed("old.example.com"))
	require.True(t, c.IsAllowed("new.example.com"))
	require.Equal(t, []string{"new.example.com"}, c.Allowlist())
	require.Equal(t, []audit.EventType{audit.EventAllowlistUpdated}, recorder.Events())
}

func TestController_AllowlistReturnsCopy(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(t, []string{"api.example.com"})

	entries := c.Allowlist()
	entries[0] = "mutated"

	require.Equal(t, []string{"api.example.com"}, c.Allowlist())
}
