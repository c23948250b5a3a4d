package config

import (
	"context"

	"github.com/specialistvlad/envo/internal/env"
)

// Loader is the interface for a format-specific descriptor loader.
type Loader interface {
	// Load reads the descriptor pair in dir for stage and translates it into
	// the format-agnostic model. Nothing is evaluated yet.
	Load(ctx context.Context, dir string, stage env.Stage) (*Descriptor, error)

	// Evaluate builds a fresh env.Node from a loaded descriptor. baseline is
	// the process environment before any activation and is what descriptor
	// expressions see as their environment.
	Evaluate(ctx context.Context, d *Descriptor, parent *env.Node, baseline map[string]string) (*env.Node, error)
}
