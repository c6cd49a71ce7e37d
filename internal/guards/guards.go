// Package guards implements the composable failure-isolation policies applied
// around every interaction with a supervised MCP server: timeout, rate limit,
// circuit breaker and scope validation.
package guards

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/mcpfleet/internal/errors"
)

// GuardSet composes the per-server guard policies into a single call path.
// Order of evaluation: scope, rate limit, circuit breaker (which applies the
// request timeout around the wrapped operation).
type GuardSet struct {
	logger        hclog.Logger
	scopes        *ScopeGuard
	limiters      *RateLimiters
	breakers      *BreakerRegistry
	onRateLimited func(server string)
}

// GuardSetOption configures optional GuardSet behavior.
type GuardSetOption func(*GuardSet)

// WithRateLimitedCallback registers a callback invoked whenever a call is
// rejected by the rate limiter, typically to bump a metric.
func WithRateLimitedCallback(fn func(server string)) GuardSetOption {
	return func(g *GuardSet) {
		g.onRateLimited = fn
	}
}

// NewGuardSet wires the guard policies into a single call path.
func NewGuardSet(
	logger hclog.Logger,
	scopes *ScopeGuard,
	limiters *RateLimiters,
	breakers *BreakerRegistry,
	opt ...GuardSetOption,
) (*GuardSet, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if scopes == nil {
		return nil, fmt.Errorf("scope guard cannot be nil")
	}
	if limiters == nil {
		return nil, fmt.Errorf("rate limiters cannot be nil")
	}
	if breakers == nil {
		return nil, fmt.Errorf("breaker registry cannot be nil")
	}

	g := &GuardSet{
		logger:   logger.Named("guards"),
		scopes:   scopes,
		limiters: limiters,
		breakers: breakers,
	}

	for _, o := range opt {
		if o != nil {
			o(g)
		}
	}

	return g, nil
}

// Call runs fn against the named server with every guard applied.
// Rejections are distinguishable via errors.Is: ErrScopeForbidden,
// ErrRateLimitExceeded, ErrCircuitOpen and ErrGuardTimeout.
func (g *GuardSet) Call(ctx context.Context, server string, scope string, fn func(ctx context.Context) error) error {
	if !g.scopes.ValidateScope(server, scope) {
		return fmt.Errorf("%w: scope '%s' for server '%s'", errors.ErrScopeForbidden, scope, server)
	}

	if !g.limiters.Allow(server) {
		g.logger.Debug("Rate limit exceeded", "server", server)
		if g.onRateLimited != nil {
			g.onRateLimited(server)
		}
		return fmt.Errorf("%w: '%s'", errors.ErrRateLimitExceeded, server)
	}

	return g.breakers.For(server).Execute(ctx, fn)
}

// Breakers returns the underlying breaker registry for observability endpoints.
func (g *GuardSet) Breakers() *BreakerRegistry {
	return g.breakers
}
