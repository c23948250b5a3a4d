package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/specialistvlad/envo/internal/app"
	"github.com/specialistvlad/envo/internal/env"
)

// Version is the program version, set at build time with
// -ldflags "-X github.com/specialistvlad/envo/internal/cli.Version=...".
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// initNoValue marks --init given without addons.
const initNoValue = " "

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("envo", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SortFlags = false

	stages := make([]string, 0, len(env.Stages()))
	for _, s := range env.Stages() {
		if s.Activatable() {
			stages = append(stages, string(s))
		}
	}

	flagSet.Usage = func() {
		fmt.Fprintf(output, `
envo - Activates a declarative, stage-aware environment in a hot-reloading shell.

Usage:
  envo [options] [STAGE]

Arguments:
  STAGE
    One of: %s. Defaults to %s.

Options:
`, strings.Join(stages, ", "), env.DefaultStage)
		flagSet.PrintDefaults()
	}

	dryRunFlag := flagSet.Bool("dry-run", false, "Print the export lines instead of spawning a shell.")
	saveFlag := flagSet.Bool("save", false, "Write the environment to .env_<stage> instead of spawning a shell.")
	initFlag := flagSet.String("init", "", "Create descriptors for the current directory. Addons go after '=', e.g. --init=venv.")
	flagSet.Lookup("init").NoOptDefVal = initNoValue
	shellFlag := flagSet.String("shell", "", "Path to the bash binary. Defaults to bash from PATH.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	versionFlag := flagSet.Bool("version", false, "Print the version and exit.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	if *versionFlag {
		fmt.Fprintf(output, "envo %s\n", Version)
		return nil, true, nil
	}

	if flagSet.NArg() > 1 {
		return nil, false, usageError("expected at most one stage argument, got %q", flagSet.Args())
	}
	stage := env.DefaultStage
	if flagSet.NArg() == 1 {
		parsed, err := env.ParseStage(flagSet.Arg(0))
		if err != nil {
			return nil, false, usageError("%s", err.Error())
		}
		stage = parsed
	}
	slog.Debug("Stage determined.", "stage", stage)

	cfg := app.Config{
		Stage:     stage,
		DryRun:    *dryRunFlag,
		Save:      *saveFlag,
		Init:      flagSet.Changed("init"),
		Addons:    strings.TrimSpace(*initFlag),
		Shell:     *shellFlag,
		LogFormat: strings.ToLower(*logFormatFlag),
		LogLevel:  strings.ToLower(*logLevelFlag),
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
