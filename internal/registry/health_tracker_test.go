package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/mcpfleet/internal/domain"
	"github.com/mozilla-ai/mcpfleet/internal/errors"
)

func TestNewHealthTracker_SeedsUnknown(t *testing.T) {
	t.Parallel()

	tracker := NewHealthTracker([]string{"time", "git"})

	health, err := tracker.Status("time")
	require.NoError(t, err)
	require.Equal(t, domain.HealthStatusUnknown, health.Status)
	require.Nil(t, health.LastChecked)
	require.Nil(t, health.LastSuccessful)
}

func TestHealthTracker_UnknownServer(t *testing.T) {
	t.Parallel()

	tracker := NewHealthTracker([]string{"time"})

	_, err := tracker.Status("nope")
	require.ErrorIs(t, err, errors.ErrHealthNotTracked)

	_, err = tracker.BeginCheck("nope")
	require.ErrorIs(t, err, errors.ErrHealthNotTracked)

	err = tracker.Record("nope", 1, domain.HealthStatusOK, nil, "")
	require.ErrorIs(t, err, errors.ErrHealthNotTracked)
}

func TestHealthTracker_Update(t *testing.T) {
	t.Parallel()

	tracker := NewHealthTracker([]string{"time"})

	latency := 12 * time.Millisecond
	require.NoError(t, tracker.Update("time", domain.HealthStatusOK, &latency, ""))

	health, err := tracker.Status("time")
	require.NoError(t, err)
	require.Equal(t, domain.HealthStatusOK, health.Status)
	require.Equal(t, &latency, health.Latency)
	require.NotNil(t, health.LastChecked)
	require.NotNil(t, health.LastSuccessful)
}

func TestHealthTracker_LastSuccessfulSurvivesFailure(t *testing.T) {
	t.Parallel()

	tracker := NewHealthTracker([]string{"time"})

	require.NoError(t, tracker.Update("time", domain.HealthStatusOK, nil, ""))

	healthy, err := tracker.Status("time")
	require.NoError(t, err)
	require.NotNil(t, healthy.LastSuccessful)

	require.NoError(t, tracker.Update("time", domain.HealthStatusTimeout, nil, "timeout"))

	failed, err := tracker.Status("time")
	require.NoError(t, err)
	require.Equal(t, domain.HealthStatusTimeout, failed.Status)
	require.Equal(t, "timeout", failed.Reason)
	require.Equal(t, healthy.LastSuccessful, failed.LastSuccessful)
}

func TestHealthTracker_StaleResultDropped(t *testing.T) {
	t.Parallel()

	tracker := NewHealthTracker([]string{"time"})

	slow, err := tracker.BeginCheck("time")
	require.NoError(t, err)

	fast, err := tracker.BeginCheck("time")
	require.NoError(t, err)
	require.Greater(t, fast, slow)

	// The later-issued check completes first.
	require.NoError(t, tracker.Record("time", fast, domain.HealthStatusOK, nil, ""))

	// The earlier check straggles in afterwards and must be dropped.
	require.NoError(t, tracker.Record("time", slow, domain.HealthStatusUnreachable, nil, "exit code 1"))

	health, err := tracker.Status("time")
	require.NoError(t, err)
	require.Equal(t, domain.HealthStatusOK, health.Status)
	require.Empty(t, health.Reason)
}

func TestHealthTracker_List_SortedCopies(t *testing.T) {
	t.Parallel()

	tracker := NewHealthTracker([]string{"zeta", "alpha", "mid"})

	require.NoError(t, tracker.Update("mid", domain.HealthStatusOK, nil, ""))

	list := tracker.List()
	require.Len(t, list, 3)
	require.Equal(t, "alpha", list[0].Name)
	require.Equal(t, "mid", list[1].Name)
	require.Equal(t, "zeta", list[2].Name)

	// Mutating the returned slice must not affect tracked state.
	list[1].Status = domain.HealthStatusUnreachable

	health, err := tracker.Status("mid")
	require.NoError(t, err)
	require.Equal(t, domain.HealthStatusOK, health.Status)
}

func TestHealthTracker_ConcurrentUpdates(t *testing.T) {
	t.Parallel()

	tracker := NewHealthTracker([]string{"time", "git", "fetch"})
	names := []string{"time", "git", "fetch"}

	var wg sync.WaitGroup
	for i := range 30 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := names[n%len(names)]
			_ = tracker.Update(name, domain.HealthStatusOK, nil, "")
		}(i)
	}
	wg.Wait()

	for _, name := range names {
		health, err := tracker.Status(name)
		require.NoError(t, err)
		require.Equal(t, domain.HealthStatusOK, health.Status)
	}
}
