// Package supervisor abstracts child process lifecycle management behind a
// small interface: spawn with an injected environment, signal, and wait with
// a deadline that force-kills stragglers.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"reflect"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	internalerrors "github.com/mozilla-ai/mcpfleet/internal/errors"
)

// ErrWaitTimeout indicates the process did not exit within the wait deadline
// and was forcibly terminated.
var ErrWaitTimeout = errors.New("process wait timed out")

// ExitResult describes how a child process ended.
type ExitResult struct {
	// Code is the process exit code, or -1 when the process was killed
	// before exiting on its own.
	Code int
}

// Handle identifies a spawned process.
type Handle interface {
	// PID returns the OS process ID.
	PID() int
}

// ProcessSupervisor spawns and supervises child processes.
type ProcessSupervisor interface {
	// Spawn starts command with args, appending env ("KEY=VALUE" pairs) to
	// the inherited environment. The process is placed in its own process
	// group so the whole tree can be signalled.
	Spawn(ctx context.Context, command string, args []string, env []string) (Handle, error)

	// Signal delivers sig to the process group of h.
	Signal(h Handle, sig os.Signal) error

	// Wait blocks until the process exits or timeout elapses. On timeout the
	// process group is force-killed and ErrWaitTimeout is returned.
	Wait(h Handle, timeout time.Duration) (ExitResult, error)
}

var _ ProcessSupervisor = (*ExecSupervisor)(nil)

// ExecSupervisor is the os/exec implementation of ProcessSupervisor.
// Child stdout and stderr are scanned line-wise into the logger.
type ExecSupervisor struct {
	logger hclog.Logger
}

// NewExecSupervisor creates a supervisor that logs child output to logger.
func NewExecSupervisor(logger hclog.Logger) (*ExecSupervisor, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &ExecSupervisor{
		logger: logger.Named("supervisor"),
	}, nil
}

type execHandle struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// PID returns the OS process ID of the spawned process.
func (h *execHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Spawn implements ProcessSupervisor.
func (s *ExecSupervisor) Spawn(ctx context.Context, command string, args []string, env []string) (Handle, error) {
	cmd := exec.Command(command, args...)
	cmd.Env = append(os.Environ(), env...)

	// Own process group, so signals reach the whole child tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", internalerrors.ErrSpawnFailed, command, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", internalerrors.ErrSpawnFailed, command, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", internalerrors.ErrSpawnFailed, command, err)
	}

	s.logger.Debug("Spawned process", "command", command, "pid", cmd.Process.Pid)

	go s.scanOutput(command, "stdout", stdout)
	go s.scanOutput(command, "stderr", stderr)

	h := &execHandle{
		cmd:  cmd,
		done: make(chan struct{}),
	}

	go func() {
		_ = cmd.Wait()
		close(h.done)
	}()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = s.Signal(h, syscall.SIGKILL)
			case <-h.done:
			}
		}()
	}

	return h, nil
}

// Signal implements ProcessSupervisor, delivering sig to the process group.
func (s *ExecSupervisor) Signal(h Handle, sig os.Signal) error {
	eh, ok := h.(*execHandle)
	if !ok || eh.cmd.Process == nil {
		return fmt.Errorf("invalid process handle")
	}

	sysSig, ok := sig.(syscall.Signal)
	if !ok {
		return fmt.Errorf("unsupported signal type: %v", sig)
	}

	// Negative PID targets the process group.
	return syscall.Kill(-eh.cmd.Process.Pid, sysSig)
}

// Wait implements ProcessSupervisor, force-killing the process group when
// the timeout elapses.
func (s *ExecSupervisor) Wait(h Handle, timeout time.Duration) (ExitResult, error) {
	eh, ok := h.(*execHandle)
	if !ok {
		return ExitResult{Code: -1}, fmt.Errorf("invalid process handle")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-eh.done:
		return ExitResult{Code: eh.cmd.ProcessState.ExitCode()}, nil
	case <-timer.C:
		s.logger.Debug("Process wait timed out, killing", "pid", eh.PID(), "timeout", timeout)
		_ = s.Signal(h, syscall.SIGKILL)
		<-eh.done
		return ExitResult{Code: -1}, fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
	}
}

func (s *ExecSupervisor) scanOutput(command string, stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.logger.Debug("Child output", "command", command, "stream", stream, "line", scanner.Text())
	}
}
