package guards

import "strings"

// ScopeGuard validates caller-declared scopes against the per-server scope
// sets from the resolved configuration. Lookups never panic: an unconfigured
// server or scope pairing yields the configured unscoped policy.
type ScopeGuard struct {
	scopes        map[string]map[string]struct{}
	allowUnscoped bool
}

// NewScopeGuard builds a scope guard from per-server scope lists.
// allowUnscoped controls the result for servers that declare no scopes.
func NewScopeGuard(serverScopes map[string][]string, allowUnscoped bool) *ScopeGuard {
	scopes := make(map[string]map[string]struct{}, len(serverScopes))
	for server, list := range serverScopes {
		set := make(map[string]struct{}, len(list))
		for _, scope := range list {
			scope = strings.TrimSpace(scope)
			if scope == "" {
				continue
			}
			set[scope] = struct{}{}
		}
		scopes[server] = set
	}

	return &ScopeGuard{
		scopes:        scopes,
		allowUnscoped: allowUnscoped,
	}
}

// ValidateScope reports whether the scope is permitted for the server.
// Servers with a configured scope set require an exact match; servers without
// one (or unknown servers) follow the unscoped policy.
func (g *ScopeGuard) ValidateScope(server string, scope string) bool {
	set, ok := g.scopes[server]
	if !ok || len(set) == 0 {
		return g.allowUnscoped
	}

	_, permitted := set[strings.TrimSpace(scope)]

	return permitted
}
