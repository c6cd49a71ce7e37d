package config

import (
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
)

// envTokenPattern matches ${NAME} references to process environment variables.
var envTokenPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ResolveEnv interpolates ${NAME} tokens in each value against the process
// environment. Tokens naming unset variables are left in place as literal
// text, values are never dropped. The input map is not modified and the
// process environment is never mutated.
func ResolveEnv(env map[string]string) map[string]string {
	resolved := make(map[string]string, len(env))
	for key, value := range env {
		resolved[key] = expandValue(value)
	}
	return resolved
}

// HasRequiredEnvs reports whether every value in env interpolates to a
// non-empty string with no unresolved ${NAME} references remaining.
func HasRequiredEnvs(env map[string]string) bool {
	return len(MissingEnvVars(env)) == 0
}

// MissingEnvVars returns the sorted names of environment variables referenced
// by env that are unset, along with variables that resolved to an empty value.
// Keys whose literal configured value is empty are reported under the key name.
func MissingEnvVars(env map[string]string) []string {
	missing := make(map[string]struct{})

	for key, value := range env {
		resolved := expandValue(value)

		for _, name := range referencedVars(resolved) {
			missing[name] = struct{}{}
		}

		if strings.TrimSpace(resolved) != "" {
			continue
		}

		names := referencedVars(value)
		if len(names) == 0 {
			missing[key] = struct{}{}
		}
		for _, name := range names {
			missing[name] = struct{}{}
		}
	}

	out := slices.Collect(maps.Keys(missing))
	slices.Sort(out)

	return out
}

// expandValue interpolates ${NAME} tokens in a single value, leaving tokens
// for unset variables intact.
func expandValue(value string) string {
	return envTokenPattern.ReplaceAllStringFunc(value, func(token string) string {
		name := token[2 : len(token)-1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return token
	})
}

// referencedVars returns the variable names referenced by ${NAME} tokens in value.
func referencedVars(value string) []string {
	matches := envTokenPattern.FindAllStringSubmatch(value, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}
