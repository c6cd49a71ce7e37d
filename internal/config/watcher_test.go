package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_Validation(t *testing.T) {
	t.Parallel()

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()

		_, err := NewWatcher(nil, Layers{Base: "mcpfleet.toml"}, 0)
		require.Error(t, err)
		require.Contains(t, err.Error(), "logger cannot be nil")
	})

	t.Run("no files to watch", func(t *testing.T) {
		t.Parallel()

		_, err := NewWatcher(hclog.NewNullLogger(), Layers{}, 0)
		require.Error(t, err)
		require.Contains(t, err.Error(), "no config files to watch")
	})

	t.Run("zero debounce uses default", func(t *testing.T) {
		t.Parallel()

		w, err := NewWatcher(hclog.NewNullLogger(), Layers{Base: "mcpfleet.toml"}, 0)
		require.NoError(t, err)
		require.Equal(t, DefaultDebounceInterval, w.debounceInterval)
	})
}

func TestWatcher_EmitsDebouncedChangeEvent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "mcpfleet.toml")
	require.NoError(t, os.WriteFile(base, []byte("[[servers]]\nname = \"time\"\n"), 0o600))

	w, err := NewWatcher(hclog.NewNullLogger(), Layers{Base: base}, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	// Two rapid writes coalesce into a single event.
	require.NoError(t, os.WriteFile(base, []byte("[[servers]]\nname = \"git\"\n"), 0o600))
	require.NoError(t, os.WriteFile(base, []byte("[[servers]]\nname = \"fetch\"\n"), 0o600))

	select {
	case ev := <-w.Events():
		require.Equal(t, base, ev.Path)
		require.False(t, ev.Timestamp.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcher_IgnoresUnwatchedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "mcpfleet.toml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(base, []byte(""), 0o600))

	w, err := NewWatcher(hclog.NewNullLogger(), Layers{Base: base}, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(other, []byte("scratch"), 0o600))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for unwatched file: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "mcpfleet.toml")
	require.NoError(t, os.WriteFile(base, []byte(""), 0o600))

	w, err := NewWatcher(hclog.NewNullLogger(), Layers{Base: base}, 20*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
