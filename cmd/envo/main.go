package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/envo/internal/app"
	"github.com/specialistvlad/envo/internal/cli"
	"github.com/specialistvlad/envo/internal/hcl"
)

// main is the entrypoint for the envo application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	// The real main function handles errors and exit codes.
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW, errW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Recover here to turn an unexpected panic into a clean exit message.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application panicked | %v", r)
		}
	}()

	// Ctrl-C and Ctrl-\ belong to the interactive shell. Catching them rather
	// than ignoring them keeps the shell's children interruptible.
	if !appConfig.DryRun && !appConfig.Save {
		swallowed := make(chan os.Signal, 1)
		signal.Notify(swallowed, os.Interrupt, syscall.SIGQUIT)
		defer signal.Stop(swallowed)
	}

	// Instantiate the concrete HCL loader to pass to the app.
	loader := hcl.NewLoader()
	envoApp := app.NewApp(outW, errW, appConfig, loader)

	return envoApp.Run(ctx)
}
