package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/specialistvlad/envo/internal/activate"
	"github.com/specialistvlad/envo/internal/config"
	"github.com/specialistvlad/envo/internal/ctxlog"
	"github.com/specialistvlad/envo/internal/env"
	"github.com/specialistvlad/envo/internal/fsutil"
	"github.com/specialistvlad/envo/internal/shell"
	"github.com/specialistvlad/envo/internal/supervisor"
	"github.com/specialistvlad/envo/internal/watch"
)

// WatcherFactory creates the file watcher of a supervised session. The
// returned closer releases it.
type WatcherFactory func() (supervisor.Watcher, io.Closer, error)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	activator  *activate.Activator
	spawner    shell.Spawner
	newWatcher WatcherFactory
}

// Option customizes an App.
type Option func(*App)

// WithSpawner replaces the bash spawner.
func WithSpawner(s shell.Spawner) Option {
	return func(a *App) { a.spawner = s }
}

// WithWatcher replaces the inotify watcher.
func WithWatcher(f WatcherFactory) Option {
	return func(a *App) { a.newWatcher = f }
}

// NewApp is the constructor for the main application. Program output (dry
// run lines) goes to outW, logs go to logW. The baseline environment is
// captured here, before anything is activated.
func NewApp(outW, logW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:      outW,
		logger:    logger,
		config:    appConfig,
		loader:    loader,
		activator: activate.New(),
		spawner:   &shell.Bash{Path: appConfig.Shell},
		newWatcher: func() (supervisor.Watcher, io.Closer, error) {
			w, err := watch.New()
			if err != nil {
				return nil, nil, err
			}
			return w, w, nil
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Activator returns the application's activator. This is primarily for testing.
func (a *App) Activator() *activate.Activator {
	return a.activator
}

// build discovers the descriptor directory and resolves a fresh tree. It runs
// for the first activation and again on every reload.
func (a *App) build(ctx context.Context) (*env.Node, []string, error) {
	logger := ctxlog.FromContext(ctx)

	dir, err := fsutil.FindUpward(a.config.Dir, config.CommonFileName)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Descriptor directory found.", "dir", dir)

	return config.Resolve(ctx, a.loader, dir, a.config.Stage, a.activator.Baseline())
}
