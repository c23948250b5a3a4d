package shell

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultGrace is how long Terminate waits after SIGHUP before SIGKILL.
const DefaultGrace = 3 * time.Second

// Process is a started shell. It removes its rc file once it has exited.
type Process struct {
	cmd    *exec.Cmd
	rcPath string
	grace  time.Duration
	done   chan struct{}
	err    error
}

var _ Handle = (*Process)(nil)

func start(cmd *exec.Cmd, rcPath string, grace time.Duration) (*Process, error) {
	if grace <= 0 {
		grace = DefaultGrace
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	p := &Process{cmd: cmd, rcPath: rcPath, grace: grace, done: make(chan struct{})}
	go p.wait()
	return p, nil
}

func (p *Process) wait() {
	p.err = p.cmd.Wait()
	if p.rcPath != "" {
		_ = os.Remove(p.rcPath)
	}
	close(p.done)
}

// Pid returns the process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Done is closed after the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err returns the result of waiting on the process. It is only meaningful
// after Done is closed.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Terminate sends SIGHUP, escalates to SIGKILL after the grace period and
// waits for the process to exit. Interactive bash ignores SIGTERM.
func (p *Process) Terminate() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	pid := p.cmd.Process.Pid
	if err := unix.Kill(pid, unix.SIGHUP); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("failed to signal shell %d: %w", pid, err)
	}

	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
	}

	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("failed to kill shell %d: %w", pid, err)
	}
	<-p.done
	return nil
}
