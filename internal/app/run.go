package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/envo/internal/ctxlog"
	"github.com/specialistvlad/envo/internal/scaffold"
	"github.com/specialistvlad/envo/internal/supervisor"
)

// Run executes the mode selected by the configuration: optional scaffolding
// first, then a dry run, a dotenv dump or the supervised shell.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "stage", a.config.Stage, "dir", a.config.Dir)

	if a.config.Init {
		if _, err := scaffold.Init(ctx, a.config.Dir, a.config.Stage, a.config.Addons); err != nil {
			return fmt.Errorf("init failed: %w", err)
		}
		if !a.config.Stage.Activatable() {
			return nil
		}
	}

	switch {
	case a.config.DryRun:
		return a.dryRun(ctx)
	case a.config.Save:
		return a.save(ctx)
	default:
		return a.supervise(ctx)
	}
}

// dryRun activates in-process and prints the export lines.
func (a *App) dryRun(ctx context.Context) error {
	node, _, err := a.build(ctx)
	if err != nil {
		return err
	}
	if _, err := a.activator.Activate(ctx, node); err != nil {
		return err
	}
	for _, line := range a.activator.Render(true) {
		fmt.Fprintln(a.outW, line)
	}
	return nil
}

// save writes the dotenv file of the stage into the working directory.
func (a *App) save(ctx context.Context) error {
	node, _, err := a.build(ctx)
	if err != nil {
		return err
	}
	_, err = a.activator.DumpDotEnv(ctx, node, a.config.Dir)
	return err
}

// supervise runs the shell with hot reload until the user exits it.
func (a *App) supervise(ctx context.Context) error {
	w, closer, err := a.newWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer closer.Close()

	sup := supervisor.New(supervisor.Config{
		Build:     a.build,
		Activator: a.activator,
		Spawner:   a.spawner,
		Watcher:   w,
		Settle:    a.config.Settle,
	})
	a.logger.Debug("Supervisor starting.")
	err = sup.Run(ctx)
	a.logger.Debug("App.Run method finished.", "state", sup.State(), "reloads", sup.Reloads())
	return err
}
