package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/specialistvlad/envo/internal/ctxlog"
)

// Bash spawns interactive bash shells with a generated rc file. Zero values
// mean: bash from PATH, the process's own stdio and DefaultGrace.
type Bash struct {
	Path   string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Grace  time.Duration
}

var _ Spawner = (*Bash)(nil)

// Spawn writes the rc file and starts `bash --rcfile <file> -i`. The child
// inherits the current process environment.
func (b *Bash) Spawn(ctx context.Context, prompt string, lines []string) (Handle, error) {
	logger := ctxlog.FromContext(ctx)

	rc, err := os.CreateTemp("", "envo-*.rc")
	if err != nil {
		return nil, fmt.Errorf("failed to create rc file: %w", err)
	}
	if err := WriteRC(rc, lines, prompt); err != nil {
		rc.Close()
		os.Remove(rc.Name())
		return nil, fmt.Errorf("failed to write rc file: %w", err)
	}
	if err := rc.Close(); err != nil {
		os.Remove(rc.Name())
		return nil, fmt.Errorf("failed to write rc file: %w", err)
	}

	path := b.Path
	if path == "" {
		path = "bash"
	}
	cmd := exec.Command(path, "--rcfile", rc.Name(), "-i")
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if b.Stdin != nil {
		cmd.Stdin = b.Stdin
	}
	if b.Stdout != nil {
		cmd.Stdout = b.Stdout
	}
	if b.Stderr != nil {
		cmd.Stderr = b.Stderr
	}

	p, err := start(cmd, rc.Name(), b.Grace)
	if err != nil {
		os.Remove(rc.Name())
		return nil, err
	}
	logger.Debug("Shell spawned.", "pid", p.Pid(), "rc", rc.Name(), "prompt", prompt)
	return p, nil
}
