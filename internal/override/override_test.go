package override

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultLoader_Load(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(t *testing.T) string
		wantErr    bool
		expectInit bool
	}{
		{
			name: "file does not exist - returns initialized config",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nonexistent.toml")
			},
			wantErr:    false,
			expectInit: true,
		},
		{
			name: "file exists and is valid",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				path := filepath.Join(dir, "valid.toml")
				content := `
[servers.myserver]
args = ["--foo", "--bar"]
[servers.myserver.env]
FOO = "bar"
`
				err := os.WriteFile(path, []byte(content), 0o644)
				require.NoError(t, err)
				return path
			},
			wantErr:    false,
			expectInit: false,
		},
		{
			name: "file exists but is malformed",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				path := filepath.Join(dir, "bad.toml")
				content := "not [valid"
				err := os.WriteFile(path, []byte(content), 0o644)
				require.NoError(t, err)
				return path
			},
			wantErr:    true,
			expectInit: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := tc.setup(t)
			loader := &DefaultLoader{}
			mod, err := loader.Load(path)

			if tc.wantErr {
				require.Error(t, err)
				require.ErrorContains(t, err, "failed to load local override config")
				require.ErrorContains(t, err, "could not be parsed")
				return
			}

			require.NoError(t, err)

			if tc.expectInit {
				require.Empty(t, mod.List())
				return
			}

			srv, ok := mod.Get("myserver")
			require.True(t, ok)
			require.Equal(t, "myserver", srv.Name)
			require.Equal(t, []string{"--foo", "--bar"}, srv.Args)
			require.Equal(t, "bar", srv.Env["FOO"])
		})
	}
}

func TestDefaultLoader_Load_EmptyPath(t *testing.T) {
	t.Parallel()

	loader := &DefaultLoader{}
	_, err := loader.Load("  ")
	require.Error(t, err)
	require.ErrorContains(t, err, "path cannot be empty")
}

func TestConfig_Upsert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing map[string]ServerOverride
		input    ServerOverride
		want     UpsertResult
		wantErr  bool
	}{
		{
			name:     "create new override",
			existing: nil,
			input: ServerOverride{
				Name: "alpha",
				Env:  map[string]string{"KEY": "value"},
			},
			want: Created,
		},
		{
			name: "update existing override",
			existing: map[string]ServerOverride{
				"alpha": {Name: "alpha", Env: map[string]string{"KEY": "old"}},
			},
			input: ServerOverride{
				Name: "alpha",
				Env:  map[string]string{"KEY": "new"},
			},
			want: Updated,
		},
		{
			name: "delete via empty override",
			existing: map[string]ServerOverride{
				"alpha": {Name: "alpha", Env: map[string]string{"KEY": "value"}},
			},
			input: ServerOverride{Name: "alpha"},
			want:  Deleted,
		},
		{
			name:     "noop for empty override on empty config",
			existing: nil,
			input:    ServerOverride{Name: "alpha"},
			want:     Noop,
		},
		{
			name: "noop for identical override",
			existing: map[string]ServerOverride{
				"alpha": {Name: "alpha", Args: []string{"--debug"}},
			},
			input: ServerOverride{Name: "alpha", Args: []string{"--debug"}},
			want:  Noop,
		},
		{
			name:    "empty name rejected",
			input:   ServerOverride{Name: "  "},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "overrides.toml")
			cfg := NewConfig(path)
			for name, srv := range tc.existing {
				cfg.Servers[name] = srv
			}

			result, err := cfg.Upsert(tc.input)

			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, result)

			if tc.want == Noop {
				return
			}

			// Mutating operations persist to disk with restricted permissions.
			info, err := os.Stat(path)
			require.NoError(t, err)
			require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			loader := &DefaultLoader{}
			reloaded, err := loader.Load(path)
			require.NoError(t, err)

			_, exists := reloaded.Get(tc.input.Name)
			require.Equal(t, tc.want != Deleted, exists)
		})
	}
}

func TestConfig_Get_ReturnsCopies(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(filepath.Join(t.TempDir(), "overrides.toml"))
	cfg.Servers["alpha"] = ServerOverride{
		Name: "alpha",
		Args: []string{"--debug"},
		Env:  map[string]string{"KEY": "value"},
	}

	got, ok := cfg.Get("alpha")
	require.True(t, ok)

	got.Args[0] = "--mutated"
	got.Env["KEY"] = "mutated"

	original := cfg.Servers["alpha"]
	require.Equal(t, []string{"--debug"}, original.Args)
	require.Equal(t, "value", original.Env["KEY"])
}

func TestConfig_List_SortedByName(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(filepath.Join(t.TempDir(), "overrides.toml"))
	cfg.Servers["zeta"] = ServerOverride{Name: "zeta"}
	cfg.Servers["Alpha"] = ServerOverride{Name: "Alpha"}
	cfg.Servers["beta"] = ServerOverride{Name: "beta"}

	list := cfg.List()
	require.Len(t, list, 3)
	require.Equal(t, "Alpha", list[0].Name)
	require.Equal(t, "beta", list[1].Name)
	require.Equal(t, "zeta", list[2].Name)
}

func TestServerOverride_Equals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    ServerOverride
		b    ServerOverride
		want bool
	}{
		{
			name: "identical",
			a:    ServerOverride{Name: "s", Args: []string{"-a"}, Env: map[string]string{"K": "v"}},
			b:    ServerOverride{Name: "s", Args: []string{"-a"}, Env: map[string]string{"K": "v"}},
			want: true,
		},
		{
			name: "args order ignored",
			a:    ServerOverride{Name: "s", Args: []string{"-a", "-b"}},
			b:    ServerOverride{Name: "s", Args: []string{"-b", "-a"}},
			want: true,
		},
		{
			name: "different names",
			a:    ServerOverride{Name: "s1"},
			b:    ServerOverride{Name: "s2"},
			want: false,
		},
		{
			name: "different env values",
			a:    ServerOverride{Name: "s", Env: map[string]string{"K": "v1"}},
			b:    ServerOverride{Name: "s", Env: map[string]string{"K": "v2"}},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, tc.a.Equals(tc.b))
		})
	}
}
