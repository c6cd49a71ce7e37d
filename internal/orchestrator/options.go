package orchestrator

import (
	"fmt"
	"time"

	"github.com/mozilla-ai/mcpfleet/internal/api"
)

// Options contains optional configuration for the orchestrator.
// NewOptions should be used to create instances of Options.
type Options struct {
	// APIOptions contains functional options for the API server.
	APIOptions []api.APIOption

	// ClientInitTimeout specifies how long to wait for MCP server initialization.
	ClientInitTimeout time.Duration

	// HealthCheckInterval specifies how often the health loop probes servers.
	HealthCheckInterval time.Duration

	// ShutdownGrace specifies how long terminating children are given before
	// being force-killed, and how long MCP clients are allowed to close.
	ShutdownGrace time.Duration

	// MaxConcurrentProbes caps how many probes run at once per health cycle.
	MaxConcurrentProbes int

	// BackoffInitial is the first restart delay after a spawn failure.
	BackoffInitial time.Duration

	// BackoffMax caps the restart delay growth.
	BackoffMax time.Duration
}

// Option defines a functional option for configuring Options.
// Options are applied in order, with later options overriding earlier ones.
type Option func(*Options) error

// NewOptions creates Options with optional configurations applied.
// Starts with default values, then applies options in order with later options overriding earlier ones.
func NewOptions(opts ...Option) (Options, error) {
	options := defaultOptions()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return Options{}, err
		}
	}

	return options, nil
}

// WithAPIOptions configures API server options.
// Replaces all previous API configuration including CORS settings.
func WithAPIOptions(apiOpts ...api.APIOption) Option {
	return func(o *Options) error {
		o.APIOptions = apiOpts
		return nil
	}
}

// WithClientInitTimeout configures how long to wait for MCP servers to initialize.
func WithClientInitTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return fmt.Errorf("init timeout must be positive, got %v", timeout)
		}
		o.ClientInitTimeout = timeout
		return nil
	}
}

// WithHealthCheckInterval configures how often the health loop probes servers.
func WithHealthCheckInterval(interval time.Duration) Option {
	return func(o *Options) error {
		if interval <= 0 {
			return fmt.Errorf("health check interval must be positive, got %v", interval)
		}
		o.HealthCheckInterval = interval
		return nil
	}
}

// WithShutdownGrace configures how long terminating children are given before SIGKILL.
func WithShutdownGrace(grace time.Duration) Option {
	return func(o *Options) error {
		if grace <= 0 {
			return fmt.Errorf("shutdown grace must be positive, got %v", grace)
		}
		o.ShutdownGrace = grace
		return nil
	}
}

// WithMaxConcurrentProbes configures the per-cycle probe concurrency cap.
func WithMaxConcurrentProbes(n int) Option {
	return func(o *Options) error {
		if n <= 0 {
			return fmt.Errorf("max concurrent probes must be positive, got %d", n)
		}
		o.MaxConcurrentProbes = n
		return nil
	}
}

// WithRestartBackoff configures the exponential restart backoff bounds.
func WithRestartBackoff(initial, max time.Duration) Option {
	return func(o *Options) error {
		if initial <= 0 || max < initial {
			return fmt.Errorf("invalid backoff bounds: initial %v, max %v", initial, max)
		}
		o.BackoffInitial = initial
		o.BackoffMax = max
		return nil
	}
}

// DefaultClientInitTimeout is the default time to wait for MCP server initialization.
func DefaultClientInitTimeout() time.Duration {
	return 30 * time.Second
}

// DefaultHealthCheckInterval is the default interval for health checks.
func DefaultHealthCheckInterval() time.Duration {
	return 10 * time.Second
}

// DefaultShutdownGrace is the default time terminating children are given before SIGKILL.
func DefaultShutdownGrace() time.Duration {
	return 5 * time.Second
}

// DefaultMaxConcurrentProbes is the default per-cycle probe concurrency cap.
func DefaultMaxConcurrentProbes() int {
	return 8
}

// defaultOptions returns Options with default values.
func defaultOptions() Options {
	return Options{
		ClientInitTimeout:   DefaultClientInitTimeout(),
		HealthCheckInterval: DefaultHealthCheckInterval(),
		ShutdownGrace:       DefaultShutdownGrace(),
		MaxConcurrentProbes: DefaultMaxConcurrentProbes(),
		BackoffInitial:      DefaultBackoffInitial,
		BackoffMax:          DefaultBackoffMax,
	}
}
