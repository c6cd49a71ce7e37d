package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *int {
	return &i
}

func TestServerEntry_IsEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		entry    ServerEntry
		features map[string]bool
		want     bool
	}{
		{
			name:  "enabled via per-server flag",
			entry: ServerEntry{Name: "alpha", Enabled: boolPtr(true)},
			want:  true,
		},
		{
			name:     "enabled via feature flag only",
			entry:    ServerEntry{Name: "alpha"},
			features: map[string]bool{"alpha": true},
			want:     true,
		},
		{
			name:     "feature flag activates despite explicit false flag",
			entry:    ServerEntry{Name: "alpha", Enabled: boolPtr(false)},
			features: map[string]bool{"alpha": true},
			want:     true,
		},
		{
			name:  "disabled when neither source set",
			entry: ServerEntry{Name: "alpha"},
			want:  false,
		},
		{
			name:     "feature flag for another server does not activate",
			entry:    ServerEntry{Name: "alpha"},
			features: map[string]bool{"beta": true},
			want:     false,
		},
		{
			name:     "feature flag set to false does not activate",
			entry:    ServerEntry{Name: "alpha"},
			features: map[string]bool{"alpha": false},
			want:     false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, tc.entry.IsEnabled(tc.features))
		})
	}
}

func TestServerEntry_ProbeKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry ServerEntry
		want  string
	}{
		{
			name:  "explicit http probe",
			entry: ServerEntry{Probe: &ProbeConfigSection{Type: "http"}},
			want:  ProbeTypeHTTP,
		},
		{
			name:  "explicit stdio probe",
			entry: ServerEntry{Command: "server", Probe: &ProbeConfigSection{Type: "stdio"}},
			want:  ProbeTypeStdio,
		},
		{
			name:  "probe type normalized",
			entry: ServerEntry{Probe: &ProbeConfigSection{Type: " HTTP "}},
			want:  ProbeTypeHTTP,
		},
		{
			name:  "defaults to http when url set",
			entry: ServerEntry{URL: "https://example.com"},
			want:  ProbeTypeHTTP,
		},
		{
			name:  "defaults to stdio for command servers",
			entry: ServerEntry{Command: "server"},
			want:  ProbeTypeStdio,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, tc.entry.ProbeKind())
		})
	}
}

func TestServerEntry_ProbeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry ServerEntry
		want  string
	}{
		{
			name: "probe url preferred over server url",
			entry: ServerEntry{
				URL:   "https://example.com",
				Probe: &ProbeConfigSection{URL: "https://example.com/health"},
			},
			want: "https://example.com/health",
		},
		{
			name:  "falls back to server url",
			entry: ServerEntry{URL: "https://example.com"},
			want:  "https://example.com",
		},
		{
			name:  "empty when neither set",
			entry: ServerEntry{Command: "server"},
			want:  "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, tc.entry.ProbeURL())
		})
	}
}

func TestServerEntry_RPSLimit(t *testing.T) {
	t.Parallel()

	entry := ServerEntry{Limits: &LimitsConfigSection{RPS: intPtr(10)}}
	rps, ok := entry.RPSLimit()
	require.True(t, ok)
	require.Equal(t, 10, rps)

	_, ok = (&ServerEntry{}).RPSLimit()
	require.False(t, ok)

	_, ok = (&ServerEntry{Limits: &LimitsConfigSection{}}).RPSLimit()
	require.False(t, ok)
}

func TestConfig_ListServers_ReturnsCopy(t *testing.T) {
	t.Parallel()

	cfg := &Config{Servers: []ServerEntry{{Name: "alpha"}}}

	listed := cfg.ListServers()
	listed[0].Name = "mutated"

	require.Equal(t, "alpha", cfg.Servers[0].Name)
}

func TestConfig_Server(t *testing.T) {
	t.Parallel()

	cfg := &Config{Servers: []ServerEntry{{Name: "alpha"}, {Name: "beta"}}}

	entry, ok := cfg.Server("beta")
	require.True(t, ok)
	require.Equal(t, "beta", entry.Name)

	entry, ok = cfg.Server(" alpha ")
	require.True(t, ok)
	require.Equal(t, "alpha", entry.Name)

	_, ok = cfg.Server("gamma")
	require.False(t, ok)
}
