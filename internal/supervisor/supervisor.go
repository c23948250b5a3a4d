package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/envo/internal/ctxlog"
	"github.com/specialistvlad/envo/internal/env"
	"github.com/specialistvlad/envo/internal/shell"
	"github.com/specialistvlad/envo/internal/watch"
)

// DefaultSettle is how long a reload waits after spawning the new shell
// before it looks at file events again.
const DefaultSettle = time.Second

// State is the lifecycle state of a Supervisor.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateReloading
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateReloading:
		return "reloading"
	case StateExiting:
		return "exiting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// BuildFunc discovers, loads and evaluates a fresh tree. It returns the tree
// and every descriptor file it was built from.
type BuildFunc func(ctx context.Context) (*env.Node, []string, error)

// Activator validates, activates and renders environments.
type Activator interface {
	Flatten(n *env.Node) (map[string]string, error)
	Activate(ctx context.Context, n *env.Node) (map[string]string, error)
	Render(addExport bool) []string
}

// Watcher delivers changes to a replaceable set of files.
type Watcher interface {
	Set(paths []string) error
	Events() <-chan watch.Event
	Errors() <-chan error
}

// Config holds the collaborators of a Supervisor.
type Config struct {
	Build     BuildFunc
	Activator Activator
	Spawner   shell.Spawner
	Watcher   Watcher
	Settle    time.Duration
}

// Supervisor owns the current shell and the reload loop.
type Supervisor struct {
	cfg Config

	mu            sync.Mutex
	state         State
	current       shell.Handle
	sourceChanged bool
	reloads       int

	exited   chan struct{}
	exitOnce sync.Once
}

// New creates a supervisor. A zero Settle means DefaultSettle.
func New(cfg Config) *Supervisor {
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	return &Supervisor{cfg: cfg, exited: make(chan struct{})}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reloads returns the number of completed reloads.
func (s *Supervisor) Reloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}

// Run builds and activates the environment, spawns the first shell and then
// reloads on every descriptor change. Errors before the first shell runs are
// returned; later errors are logged. Run returns nil once the user exits the
// shell or ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if err := s.start(ctx); err != nil {
		return err
	}

	events, errs := s.cfg.Watcher.Events(), s.cfg.Watcher.Errors()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Context cancelled, stopping supervisor.")
			s.stop(ctx)
			return nil

		case <-s.exited:
			logger.Info("👋 Shell exited, bye.")
			return nil

		case ev, ok := <-events:
			if !ok {
				s.stop(ctx)
				return errors.New("file watcher stopped")
			}
			logger.Info("🔄 Descriptor changed, reloading...", "path", ev.Path, "op", ev.Op)
			s.reload(ctx)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}

func (s *Supervisor) start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, files, err := s.cfg.Build(ctx)
	if err != nil {
		return err
	}
	if err := s.spawnLocked(ctx, node, files); err != nil {
		return err
	}
	s.state = StateRunning
	return nil
}

// reload replaces the running shell. The new tree is built and validated
// first; if that fails the current shell keeps running.
func (s *Supervisor) reload(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	node, files, err := s.cfg.Build(ctx)
	if err == nil {
		_, err = s.cfg.Activator.Flatten(node)
	}
	if err != nil {
		logger.Error("Reload failed, keeping the current shell.", "error", err)
		return
	}

	s.state = StateReloading
	s.sourceChanged = true
	defer func() {
		s.sourceChanged = false
		s.state = StateRunning
	}()

	if s.current != nil {
		if err := s.current.Terminate(); err != nil {
			logger.Error("Failed to terminate the shell.", "error", err)
		}
		s.current = nil
	}

	if err := s.spawnLocked(ctx, node, files); err != nil {
		logger.Error("Failed to start a new shell, still watching for changes.", "error", err)
		return
	}
	s.reloads++

	timer := time.NewTimer(s.cfg.Settle)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}
	s.drain()
	logger.Debug("Reload complete.", "env", node.FullName(), "reloads", s.reloads)
}

// spawnLocked points the watcher at files, activates node and starts a shell
// for it. s.mu must be held.
func (s *Supervisor) spawnLocked(ctx context.Context, node *env.Node, files []string) error {
	logger := ctxlog.FromContext(ctx)

	if err := s.cfg.Watcher.Set(files); err != nil {
		return fmt.Errorf("failed to watch descriptors: %w", err)
	}
	if _, err := s.cfg.Activator.Activate(ctx, node); err != nil {
		return err
	}
	h, err := s.cfg.Spawner.Spawn(ctx, shell.Prompt(node), s.cfg.Activator.Render(true))
	if err != nil {
		return fmt.Errorf("failed to spawn shell: %w", err)
	}
	s.current = h
	go s.watchShell(h)

	logger.Info(fmt.Sprintf("%s Environment %s activated.", node.Emoji, node.FullName()), "stage", node.Stage, "files", len(files))
	return nil
}

// watchShell waits for h to exit and decides whether the user quit.
func (s *Supervisor) watchShell(h shell.Handle) {
	<-h.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sourceChanged || h != s.current {
		return
	}
	s.state = StateExiting
	s.current = nil
	s.exitOnce.Do(func() { close(s.exited) })
}

// drain discards events queued while a reload was running.
func (s *Supervisor) drain() {
	events := s.cfg.Watcher.Events()
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *Supervisor) stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateExiting
	if s.current == nil {
		return
	}
	h := s.current
	s.current = nil
	if err := h.Terminate(); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to terminate the shell.", "error", err)
	}
}
