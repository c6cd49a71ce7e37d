package api

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/client"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/contracts"
	"github.com/mozilla-ai/mcpfleet/internal/domain"
	"github.com/mozilla-ai/mcpfleet/internal/errors"
	"github.com/mozilla-ai/mcpfleet/internal/metrics"
	"github.com/mozilla-ai/mcpfleet/internal/registry"
)

var (
	_ contracts.MCPHealthMonitor  = (*mockHealthMonitor)(nil)
	_ contracts.MCPClientAccessor = (*mockClientAccessor)(nil)
	_ contracts.CallGuard         = (guardFunc)(nil)
	_ contracts.BreakerInspector  = (*mockBreakerInspector)(nil)
	_ contracts.EgressManager     = (*mockEgressManager)(nil)
	_ contracts.ReadinessReporter = (*mockReadiness)(nil)
)

// mockHealthMonitor implements contracts.MCPHealthMonitor for testing.
type mockHealthMonitor struct {
	mu      sync.Mutex
	servers map[string]domain.ServerHealth
}

func newMockHealthMonitor() *mockHealthMonitor {
	return &mockHealthMonitor{servers: make(map[string]domain.ServerHealth)}
}

func (m *mockHealthMonitor) Status(name string) (domain.ServerHealth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.servers[name]
	if !ok {
		return domain.ServerHealth{}, fmt.Errorf("%w: %s", errors.ErrHealthNotTracked, name)
	}
	return h, nil
}

func (m *mockHealthMonitor) List() []domain.ServerHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.ServerHealth, 0, len(m.servers))
	for _, h := range m.servers {
		out = append(out, h)
	}
	return out
}

func (m *mockHealthMonitor) Update(name string, status domain.HealthStatus, latency *time.Duration, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.servers[name] = domain.ServerHealth{Name: name, Status: status, Latency: latency, Reason: reason}
	return nil
}

// mockClientAccessor implements contracts.MCPClientAccessor for testing.
type mockClientAccessor struct {
	clients map[string]*client.Client
	tools   map[string][]string
}

func newMockClientAccessor() *mockClientAccessor {
	return &mockClientAccessor{
		clients: make(map[string]*client.Client),
		tools:   make(map[string][]string),
	}
}

func (m *mockClientAccessor) Add(name string, c *client.Client, tools []string) {
	m.clients[name] = c
	m.tools[name] = tools
}

func (m *mockClientAccessor) Client(name string) (*client.Client, bool) {
	c, ok := m.clients[name]
	return c, ok
}

func (m *mockClientAccessor) Tools(name string) ([]string, bool) {
	tools, ok := m.tools[name]
	return tools, ok
}

func (m *mockClientAccessor) List() []string {
	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	return names
}

func (m *mockClientAccessor) Remove(name string) {
	delete(m.clients, name)
	delete(m.tools, name)
}

// guardFunc adapts a function to contracts.CallGuard. The function decides
// whether the guarded call proceeds; on nil the wrapped fn runs unguarded.
type guardFunc func(server, scope string) error

func (f guardFunc) Call(ctx context.Context, server string, scope string, fn func(ctx context.Context) error) error {
	if err := f(server, scope); err != nil {
		return err
	}
	return fn(ctx)
}

// mockBreakerInspector implements contracts.BreakerInspector for testing.
type mockBreakerInspector struct {
	statuses map[string]domain.BreakerStatus
}

func (m *mockBreakerInspector) Status(server string) (domain.BreakerStatus, bool) {
	s, ok := m.statuses[server]
	return s, ok
}

func (m *mockBreakerInspector) List() []domain.BreakerStatus {
	out := make([]domain.BreakerStatus, 0, len(m.statuses))
	for _, s := range m.statuses {
		out = append(out, s)
	}
	return out
}

// mockEgressManager implements contracts.EgressManager for testing.
type mockEgressManager struct {
	entries []string
}

func (m *mockEgressManager) Allowlist() []string {
	out := make([]string, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *mockEgressManager) UpdateAllowlist(entries []string) {
	m.entries = entries
}

func (m *mockEgressManager) IsAllowed(hostname string) bool {
	for _, e := range m.entries {
		if e == hostname {
			return true
		}
	}
	return len(m.entries) == 0
}

// mockReadiness implements contracts.ReadinessReporter for testing.
type mockReadiness struct {
	readiness domain.Readiness
}

func (m *mockReadiness) Readiness() domain.Readiness {
	return m.readiness
}

func testRegistry(t *testing.T, cfg *config.Config) *registry.Registry {
	t.Helper()

	if cfg == nil {
		cfg = &config.Config{}
	}
	reg, err := registry.New(cfg)
	require.NoError(t, err)

	return reg
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "bad request",
			err:            fmt.Errorf("%w: allowlist entries cannot be empty", errors.ErrBadRequest),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "server not found",
			err:            fmt.Errorf("%w: time", errors.ErrServerNotFound),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "tools not found",
			err:            fmt.Errorf("%w: time", errors.ErrToolsNotFound),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "health not tracked",
			err:            fmt.Errorf("%w: time", errors.ErrHealthNotTracked),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "tool forbidden",
			err:            fmt.Errorf("%w: time/get_current_time", errors.ErrToolForbidden),
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "scope forbidden",
			err:            fmt.Errorf("%w: write", errors.ErrScopeForbidden),
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "egress blocked",
			err:            fmt.Errorf("%w: evil.example.com", errors.ErrEgressBlocked),
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "rate limit exceeded",
			err:            fmt.Errorf("%w: time", errors.ErrRateLimitExceeded),
			expectedStatus: http.StatusTooManyRequests,
		},
		{
			name:           "circuit open",
			err:            fmt.Errorf("%w: time", errors.ErrCircuitOpen),
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "guard timeout",
			err:            fmt.Errorf("%w: time", errors.ErrGuardTimeout),
			expectedStatus: http.StatusGatewayTimeout,
		},
		{
			name:           "tool list failed",
			err:            fmt.Errorf("%w: time", errors.ErrToolListFailed),
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "tool call failed",
			err:            fmt.Errorf("%w: time/get_current_time", errors.ErrToolCallFailed),
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "unknown error falls through to 500",
			err:            stdErrors.New("something unexpected"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			statusErr := mapError(hclog.NewNullLogger(), tc.err)
			require.Equal(t, tc.expectedStatus, statusErr.GetStatus())
		})
	}
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	handler := errorHandler(hclog.NewNullLogger())

	t.Run("no errors returns generic status", func(t *testing.T) {
		t.Parallel()

		statusErr := handler(nil, http.StatusUnprocessableEntity, "validation failed")
		require.Equal(t, http.StatusUnprocessableEntity, statusErr.GetStatus())
	})

	t.Run("single error is mapped", func(t *testing.T) {
		t.Parallel()

		statusErr := handler(nil, http.StatusInternalServerError, "ignored",
			fmt.Errorf("%w: time", errors.ErrServerNotFound))
		require.Equal(t, http.StatusNotFound, statusErr.GetStatus())
	})

	t.Run("multiple errors are joined then mapped", func(t *testing.T) {
		t.Parallel()

		statusErr := handler(nil, http.StatusInternalServerError, "ignored",
			stdErrors.New("context"),
			fmt.Errorf("%w: time", errors.ErrRateLimitExceeded))
		require.Equal(t, http.StatusTooManyRequests, statusErr.GetStatus())
	})
}

func TestNewAPIServer_InvalidDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewAPIServer(APIDependencies{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid dependencies for API server")
}

func TestNewAPIServer_InvalidOptions(t *testing.T) {
	t.Parallel()

	deps := testAPIDependencies(t)

	_, err := NewAPIServer(deps, WithShutdownTimeout(-1*time.Second))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid API options")
}

func testAPIDependencies(t *testing.T) APIDependencies {
	t.Helper()

	return APIDependencies{
		Logger:        hclog.NewNullLogger(),
		ClientManager: newMockClientAccessor(),
		HealthMonitor: newMockHealthMonitor(),
		Registry:      testRegistry(t, nil),
		Guard:         guardFunc(func(server, scope string) error { return nil }),
		Breakers:      &mockBreakerInspector{},
		Egress:        &mockEgressManager{},
		Readiness:     &mockReadiness{readiness: domain.Readiness{Ready: true, Status: domain.ReadinessOK}},
		Addr:          "localhost:8090",
	}
}

func newOpsMux(t *testing.T, deps APIDependencies) *chi.Mux {
	t.Helper()

	srv, err := NewAPIServer(deps)
	require.NoError(t, err)

	mux := chi.NewMux()
	srv.registerOpsRoutes(mux)

	return mux
}

func TestOpsRoutes_Healthz(t *testing.T) {
	t.Parallel()

	mux := newOpsMux(t, testAPIDependencies(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok\n", rec.Body.String())
}

func TestOpsRoutes_Readyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		readiness      domain.Readiness
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "ready",
			readiness:      domain.Readiness{Ready: true, Status: domain.ReadinessOK},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"ok"`,
		},
		{
			name:           "degraded is still not ready",
			readiness:      domain.Readiness{Ready: false, Status: domain.ReadinessDegraded},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"status":"degraded"`,
		},
		{
			name:           "down",
			readiness:      domain.Readiness{Ready: false, Status: domain.ReadinessDown},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"status":"down"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			deps := testAPIDependencies(t)
			deps.Readiness = &mockReadiness{readiness: tc.readiness}
			mux := newOpsMux(t, deps)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			require.Equal(t, tc.expectedStatus, rec.Code)
			require.Contains(t, rec.Body.String(), tc.expectedBody)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestOpsRoutes_Metrics(t *testing.T) {
	t.Parallel()

	t.Run("mounted when a handler is supplied", func(t *testing.T) {
		t.Parallel()

		deps := testAPIDependencies(t)
		deps.MetricsHandler = metrics.New().Handler()
		mux := newOpsMux(t, deps)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("absent when no handler is supplied", func(t *testing.T) {
		t.Parallel()

		mux := newOpsMux(t, testAPIDependencies(t))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
