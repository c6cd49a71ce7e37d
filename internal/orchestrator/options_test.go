package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewOptions_Defaults(t *testing.T) {
	t.Parallel()

	opts, err := NewOptions()
	require.NoError(t, err)

	require.Equal(t, DefaultClientInitTimeout(), opts.ClientInitTimeout)
	require.Equal(t, DefaultHealthCheckInterval(), opts.HealthCheckInterval)
	require.Equal(t, DefaultShutdownGrace(), opts.ShutdownGrace)
	require.Equal(t, DefaultMaxConcurrentProbes(), opts.MaxConcurrentProbes)
	require.Equal(t, DefaultBackoffInitial, opts.BackoffInitial)
	require.Equal(t, DefaultBackoffMax, opts.BackoffMax)
	require.Empty(t, opts.APIOptions)
}

func TestNewOptions_NilOptionSkipped(t *testing.T) {
	t.Parallel()

	opts, err := NewOptions(nil, WithMaxConcurrentProbes(2))
	require.NoError(t, err)
	require.Equal(t, 2, opts.MaxConcurrentProbes)
}

func TestNewOptions_LaterOptionsWin(t *testing.T) {
	t.Parallel()

	opts, err := NewOptions(
		WithHealthCheckInterval(time.Second),
		WithHealthCheckInterval(3*time.Second),
	)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, opts.HealthCheckInterval)
}

func TestOptions_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		option  Option
		wantErr string
	}{
		{
			name:    "zero init timeout",
			option:  WithClientInitTimeout(0),
			wantErr: "init timeout must be positive",
		},
		{
			name:    "negative health check interval",
			option:  WithHealthCheckInterval(-time.Second),
			wantErr: "health check interval must be positive",
		},
		{
			name:    "zero shutdown grace",
			option:  WithShutdownGrace(0),
			wantErr: "shutdown grace must be positive",
		},
		{
			name:    "zero probe concurrency",
			option:  WithMaxConcurrentProbes(0),
			wantErr: "max concurrent probes must be positive",
		},
		{
			name:    "backoff max below initial",
			option:  WithRestartBackoff(10*time.Second, time.Second),
			wantErr: "invalid backoff bounds",
		},
		{
			name:   "valid backoff bounds",
			option: WithRestartBackoff(time.Second, time.Minute),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opts, err := NewOptions(tc.option)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, time.Second, opts.BackoffInitial)
			require.Equal(t, time.Minute, opts.BackoffMax)
		})
	}
}
