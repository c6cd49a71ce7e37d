package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mozilla-ai/mcpfleet/internal/domain"
	"github.com/mozilla-ai/mcpfleet/internal/supervisor"
)

// healthFlag is appended to the server command when probing over stdio.
const healthFlag = "--health"

// HTTPProbe issues a GET against url, bounded by timeout. The probe is
// healthy only for status codes in [200,300). Elapsed always reflects wall
// time, including on failure.
func (c *Checker) HTTPProbe(ctx context.Context, url string, timeout time.Duration) domain.ProbeResult {
	start := time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return domain.ProbeResult{Elapsed: time.Since(start), Err: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return domain.ProbeResult{Elapsed: elapsed, Err: "timeout"}
		}
		return domain.ProbeResult{Elapsed: elapsed, Err: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ProbeResult{Elapsed: elapsed, Err: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	return domain.ProbeResult{OK: true, Elapsed: elapsed}
}

// StdioProbe spawns the server command with a trailing health flag and judges
// the exit code. A process that does not exit within timeout is force-killed
// and reported as "timeout".
func (c *Checker) StdioProbe(
	ctx context.Context,
	command string,
	args []string,
	env []string,
	timeout time.Duration,
) domain.ProbeResult {
	start := time.Now()

	probeArgs := append(append([]string(nil), args...), healthFlag)

	handle, err := c.supervisor.Spawn(ctx, command, probeArgs, env)
	if err != nil {
		return domain.ProbeResult{Elapsed: time.Since(start), Err: err.Error()}
	}

	result, err := c.supervisor.Wait(handle, timeout)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, supervisor.ErrWaitTimeout) {
			return domain.ProbeResult{Elapsed: elapsed, Err: "timeout"}
		}
		return domain.ProbeResult{Elapsed: elapsed, Err: err.Error()}
	}

	if result.Code != 0 {
		return domain.ProbeResult{Elapsed: elapsed, Err: fmt.Sprintf("exit code %d", result.Code)}
	}

	return domain.ProbeResult{OK: true, Elapsed: elapsed}
}
