package app

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/specialistvlad/envo/internal/env"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Stage env.Stage
	Dir   string // discovery starts here; dotenv files are written here

	DryRun bool
	Save   bool
	Init   bool
	Addons string // space-separated, only with Init

	Shell  string        // shell binary, empty means bash from PATH
	Settle time.Duration // pause after a reload, zero means the supervisor default

	LogFormat string
	LogLevel  string
}

// LogLevels and LogFormats list the accepted logging options.
var (
	LogLevels  = []string{"debug", "info", "warn", "error"}
	LogFormats = []string{"text", "json"}
)

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Stage == "" {
		cfg.Stage = env.DefaultStage
	}
	stage, err := env.ParseStage(string(cfg.Stage))
	if err != nil {
		return nil, err
	}
	cfg.Stage = stage
	if !cfg.Stage.Activatable() && !cfg.Init {
		return nil, fmt.Errorf("stage %q can't be activated: %w", cfg.Stage, env.ErrAbstractStage)
	}
	if cfg.DryRun && cfg.Save {
		return nil, errors.New("--dry-run and --save can't be combined")
	}
	if cfg.Addons != "" && !cfg.Init {
		return nil, errors.New("addons are only used together with --init")
	}

	if cfg.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.Dir = wd
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if !slices.Contains(LogLevels, cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log-level %q: must be one of %v", cfg.LogLevel, LogLevels)
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if !slices.Contains(LogFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log-format %q: must be one of %v", cfg.LogFormat, LogFormats)
	}

	return &cfg, nil
}
