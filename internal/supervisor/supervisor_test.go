package supervisor

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	internalerrors "github.com/mozilla-ai/mcpfleet/internal/errors"
)

func newTestSupervisor(t *testing.T) *ExecSupervisor {
	t.Helper()

	s, err := NewExecSupervisor(hclog.NewNullLogger())
	require.NoError(t, err)

	return s
}

func TestNewExecSupervisor_NilLogger(t *testing.T) {
	t.Parallel()

	_, err := NewExecSupervisor(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "logger cannot be nil")
}

func TestExecSupervisor_WaitReturnsExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		script   string
		wantCode int
	}{
		{
			name:     "clean exit",
			script:   "exit 0",
			wantCode: 0,
		},
		{
			name:     "non-zero exit",
			script:   "exit 3",
			wantCode: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newTestSupervisor(t)

			h, err := s.Spawn(context.Background(), "/bin/sh", []string{"-c", tc.script}, nil)
			require.NoError(t, err)
			require.Positive(t, h.PID())

			result, err := s.Wait(h, 5*time.Second)
			require.NoError(t, err)
			require.Equal(t, tc.wantCode, result.Code)
		})
	}
}

func TestExecSupervisor_SpawnInjectsEnv(t *testing.T) {
	t.Parallel()

	s := newTestSupervisor(t)

	h, err := s.Spawn(
		context.Background(),
		"/bin/sh",
		[]string{"-c", `test "$MCPFLEET_TEST_VAR" = "injected"`},
		[]string{"MCPFLEET_TEST_VAR=injected"},
	)
	require.NoError(t, err)

	result, err := s.Wait(h, 5*time.Second)
	require.NoError(t, err)
	require.Zero(t, result.Code)
}

func TestExecSupervisor_SpawnUnknownCommand(t *testing.T) {
	t.Parallel()

	s := newTestSupervisor(t)

	_, err := s.Spawn(context.Background(), "/nonexistent/mcpfleet-test-binary", nil, nil)
	require.ErrorIs(t, err, internalerrors.ErrSpawnFailed)
}

func TestExecSupervisor_WaitTimeoutKillsProcess(t *testing.T) {
	t.Parallel()

	s := newTestSupervisor(t)

	h, err := s.Spawn(context.Background(), "/bin/sh", []string{"-c", "sleep 30"}, nil)
	require.NoError(t, err)

	start := time.Now()
	result, err := s.Wait(h, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrWaitTimeout)
	require.Equal(t, -1, result.Code)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestExecSupervisor_SignalTerminatesProcess(t *testing.T) {
	t.Parallel()

	s := newTestSupervisor(t)

	h, err := s.Spawn(context.Background(), "/bin/sh", []string{"-c", "sleep 30"}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Signal(h, syscall.SIGKILL))

	result, err := s.Wait(h, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, -1, result.Code)
}

func TestExecSupervisor_ContextCancelKillsProcess(t *testing.T) {
	t.Parallel()

	s := newTestSupervisor(t)

	ctx, cancel := context.WithCancel(context.Background())
	h, err := s.Spawn(ctx, "/bin/sh", []string{"-c", "sleep 30"}, nil)
	require.NoError(t, err)

	cancel()

	result, err := s.Wait(h, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, -1, result.Code)
}
