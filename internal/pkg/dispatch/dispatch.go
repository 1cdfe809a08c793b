package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCommandFailed wraps any non-zero exit, spawn failure or timeout of
// a device command.
var ErrCommandFailed = errors.New("command failed")

const defaultTimeout = 2 * time.Minute

// Exec runs device commands as local subprocesses. A command that is
// already in flight is allowed to finish even when the surrounding run
// is shutting down, within the dispatcher's own timeout.
type Exec struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewExec(timeout time.Duration) *Exec {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Exec{timeout: timeout, logger: zap.L()}
}

func (e *Exec) Dispatch(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%w: empty command", ErrCommandFailed)
	}
	// Shutdown is cooperative between ticks; a command already in flight
	// runs to completion under the dispatcher's own deadline.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	out, err := exec.CommandContext(cctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s: %v: %s", ErrCommandFailed, argv[0], err, bytes.TrimSpace(out))
	}
	e.logger.Debug("command finished", zap.Strings("argv", argv))
	return nil
}

// DryRun records commands instead of executing them. It always reports
// success so intended-state tracking behaves exactly as in live mode.
type DryRun struct {
	mu     sync.Mutex
	calls  [][]string
	logger *zap.Logger
}

func NewDryRun() *DryRun {
	return &DryRun{logger: zap.L()}
}

func (d *DryRun) Dispatch(_ context.Context, argv []string) error {
	d.mu.Lock()
	d.calls = append(d.calls, slices.Clone(argv))
	d.mu.Unlock()
	d.logger.Info("dry-run: would execute", zap.Strings("argv", argv))
	return nil
}

// Calls returns the argv of every recorded dispatch, in order.
func (d *DryRun) Calls() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}
