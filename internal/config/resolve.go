package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/envo/internal/ctxlog"
	"github.com/specialistvlad/envo/internal/env"
)

// Resolve loads the descriptors in dir for stage, resolves the parent chain
// with the same stage, and returns the evaluated tree plus every descriptor
// file involved, ancestors first.
func Resolve(ctx context.Context, l Loader, dir string, stage env.Stage, baseline map[string]string) (*env.Node, []string, error) {
	return resolve(ctx, l, dir, stage, baseline, nil)
}

func resolve(ctx context.Context, l Loader, dir string, stage env.Stage, baseline map[string]string, trail []string) (*env.Node, []string, error) {
	logger := ctxlog.FromContext(ctx)

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	for _, seen := range trail {
		if seen == abs {
			return nil, nil, fmt.Errorf("parent cycle: %s -> %s", strings.Join(trail, " -> "), abs)
		}
	}
	trail = append(trail, abs)

	d, err := l.Load(ctx, abs, stage)
	if err != nil {
		return nil, nil, err
	}

	var parent *env.Node
	var files []string
	if d.ParentDir != "" {
		logger.Debug("Resolving parent descriptor.", "env", d.Name, "parent_dir", d.ParentDir)
		parent, files, err = resolve(ctx, l, d.ParentDir, stage, baseline, trail)
		if err != nil {
			return nil, nil, fmt.Errorf("parent of %q: %w", d.Name, err)
		}
	}
	files = append(files, d.Files...)

	node, err := l.Evaluate(ctx, d, parent, baseline)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Descriptor resolved.", "env", node.FullName(), "stage", stage, "files", len(files))
	return node, files, nil
}
