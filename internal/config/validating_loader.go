package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	internalerrors "github.com/mozilla-ai/mcpfleet/internal/errors"
)

//go:embed server_schema.json
var serverSchemaJSON []byte

// ValidationPredicate evaluates a loaded Config and returns an error if invalid.
type ValidationPredicate func(*Config) error

// validatingLoader wraps a Loader to run additional validation predicates at load time.
// Uses decorator pattern to preserve custom loader implementations while adding validation.
type validatingLoader struct {
	Loader
	predicates []ValidationPredicate
}

// NewValidatingLoader creates a loader that runs validation predicates after Load().
func NewValidatingLoader(inner Loader, predicates ...ValidationPredicate) *validatingLoader {
	return &validatingLoader{
		Loader:     inner,
		predicates: predicates,
	}
}

// Load delegates to the inner loader, then runs validation predicates.
func (l *validatingLoader) Load(layers Layers) (*Config, error) {
	cfg, err := l.Loader.Load(layers)
	if err != nil {
		return nil, err
	}

	for _, predicate := range l.predicates {
		if err := predicate(cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", internalerrors.ErrConfigValidation, err)
		}
	}

	return cfg, nil
}

// ServerSchemaPredicate returns a predicate that checks every merged server
// record against the embedded JSON Schema, collecting all violations.
func ServerSchemaPredicate() ValidationPredicate {
	schemaLoader := gojsonschema.NewBytesLoader(serverSchemaJSON)

	return func(cfg *Config) error {
		var validationErrors []error

		for _, entry := range cfg.Servers {
			data, err := json.Marshal(entry)
			if err != nil {
				validationErrors = append(
					validationErrors,
					fmt.Errorf("failed to marshal server '%s' for schema validation: %w", entry.Name, err),
				)
				continue
			}

			result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
			if err != nil {
				validationErrors = append(
					validationErrors,
					fmt.Errorf("schema validation errored for server '%s': %w", entry.Name, err),
				)
				continue
			}

			if !result.Valid() {
				for _, verr := range result.Errors() {
					validationErrors = append(
						validationErrors,
						fmt.Errorf("server '%s': %s: %s", entry.Name, verr.Field(), verr.Description()),
					)
				}
			}
		}

		return errors.Join(validationErrors...)
	}
}
