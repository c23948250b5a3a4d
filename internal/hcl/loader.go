package hcl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/envo/internal/config"
	"github.com/specialistvlad/envo/internal/ctxlog"
	"github.com/specialistvlad/envo/internal/env"
	"github.com/specialistvlad/envo/internal/fsutil"
	"github.com/specialistvlad/envo/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
// It keeps no state between calls; every Load parses the files again.
type Loader struct{}

// NewLoader creates a new HCL descriptor loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses the common descriptor and, unless stage is comm, the stage
// descriptor found in dir.
func (l *Loader) Load(ctx context.Context, dir string, stage env.Stage) (*config.Descriptor, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "dir", dir, "stage", stage)

	parser := hclparse.NewParser()

	commonPath := filepath.Join(dir, config.CommonFileName)
	var common schema.CommonFile
	if err := parseInto(parser, commonPath, &common); err != nil {
		return nil, err
	}
	if common.Env == nil {
		return nil, fmt.Errorf("%s: missing \"env\" block", commonPath)
	}

	schemaRoot, err := translateEnv(ctx, common.Env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", commonPath, err)
	}

	d := &config.Descriptor{
		Name:    common.Env.Name,
		Dir:     dir,
		Stage:   stage,
		Emoji:   stage.Emoji(),
		Options: translateOptions(common.Env),
		Schema:  schemaRoot,
		Files:   []string{commonPath},
	}
	if common.Env.Parent != nil && *common.Env.Parent != "" {
		parentDir := *common.Env.Parent
		if !filepath.IsAbs(parentDir) {
			parentDir = filepath.Join(dir, parentDir)
		}
		d.ParentDir = filepath.Clean(parentDir)
	}

	if stage == env.StageComm {
		logger.Debug("Loaded common descriptor only.", "env", d.Name)
		return d, nil
	}

	stagePath := filepath.Join(dir, config.StageFileName(stage))
	if !fsutil.Exists(stagePath) {
		return nil, fmt.Errorf("stage descriptor %s: %w", stagePath, fsutil.ErrNotFound)
	}
	var sf schema.StageFile
	if err := parseInto(parser, stagePath, &sf); err != nil {
		return nil, err
	}
	if sf.Stage != nil && *sf.Stage != string(stage) {
		return nil, fmt.Errorf("%s: declares stage %q, expected %q", stagePath, *sf.Stage, stage)
	}
	if sf.Emoji != nil {
		d.Emoji = *sf.Emoji
	}
	if !isNullExpr(sf.Values) {
		d.Values = sf.Values
	}
	d.Files = append(d.Files, stagePath)

	logger.Debug("HCL loading complete.", "env", d.Name, "variables", len(schemaRoot.Variables), "groups", len(schemaRoot.Groups))
	return d, nil
}

// parseInto parses one file and decodes its body into target.
func parseInto(parser *hclparse.Parser, path string, target any) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("descriptor %s: %w", path, fsutil.ErrNotFound)
		}
		return fmt.Errorf("error accessing %s: %w", path, err)
	}

	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	diags = gohcl.DecodeBody(hclFile.Body, nil, target)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	return nil
}

func translateOptions(e *schema.Env) env.Options {
	opts := env.DefaultOptions()
	if e.Strict != nil {
		opts.Strict = *e.Strict
	}
	if e.StripRawUnderscores != nil {
		opts.StripRawUnderscores = *e.StripRawUnderscores
	}
	if e.SearchPath != nil {
		opts.SearchPath = *e.SearchPath
	}
	return opts
}

// isNullExpr reports whether expr is absent. gohcl fills missing optional
// expression fields with a static null.
func isNullExpr(expr hcl.Expression) bool {
	if expr == nil {
		return true
	}
	if len(expr.Variables()) > 0 {
		return false
	}
	val, diags := expr.Value(nil)
	return !diags.HasErrors() && val.IsNull()
}
