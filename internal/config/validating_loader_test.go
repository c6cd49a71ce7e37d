package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	internalerrors "github.com/mozilla-ai/mcpfleet/internal/errors"
)

func TestValidatingLoader_SchemaPredicate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "valid config passes",
			content: `
[[servers]]
name = "github-server"
command = "github-mcp"
scopes = ["repo:read"]

[servers.limits]
rps = 5

[servers.probe]
type = "stdio"
timeout = "3s"
`,
		},
		{
			name: "server name with invalid characters rejected",
			content: `
[[servers]]
name = "bad name!"
command = "alpha-mcp"
`,
			wantErr: "bad name!",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			base := writeFile(t, t.TempDir(), "mcpfleet.toml", tc.content)

			loader := NewValidatingLoader(&DefaultLoader{}, ServerSchemaPredicate())
			cfg, err := loader.Load(Layers{Base: base})

			if tc.wantErr != "" {
				require.Error(t, err)
				require.ErrorIs(t, err, internalerrors.ErrConfigValidation)
				require.ErrorContains(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
		})
	}
}

func TestValidatingLoader_CustomPredicate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := writeFile(t, dir, "mcpfleet.toml", `
[[servers]]
name = "alpha"
command = "alpha-mcp"
`)

	var seen int
	predicate := func(cfg *Config) error {
		seen = len(cfg.Servers)
		return nil
	}

	loader := NewValidatingLoader(&DefaultLoader{}, predicate)
	_, err := loader.Load(Layers{Base: base})
	require.NoError(t, err)
	require.Equal(t, 1, seen)
}

func TestValidatingLoader_InnerErrorPropagates(t *testing.T) {
	t.Parallel()

	loader := NewValidatingLoader(&DefaultLoader{}, ServerSchemaPredicate())
	_, err := loader.Load(Layers{Base: "/nonexistent/mcpfleet.toml"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrConfigLoadFailed)
}
