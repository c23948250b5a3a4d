package scaffold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/envo/internal/config"
	"github.com/specialistvlad/envo/internal/ctxlog"
	"github.com/specialistvlad/envo/internal/env"
	"github.com/specialistvlad/envo/internal/fsutil"
)

var (
	// ErrUnknownAddon is returned for an addon name outside Addons().
	ErrUnknownAddon = errors.New("unknown addon")
	// ErrTargetExists is returned when the stage descriptor is already there.
	ErrTargetExists = errors.New("descriptor already exists")
)

// Addon is an optional block added to the generated descriptors.
type Addon string

// AddonVenv adds a Python virtualenv group and puts its bin directory on PATH.
const AddonVenv Addon = "venv"

// Addons returns every known addon.
func Addons() []Addon { return []Addon{AddonVenv} }

// ParseAddons splits a space-separated addon list. Duplicates are dropped.
func ParseAddons(list string) ([]Addon, error) {
	var out []Addon
	for _, name := range strings.Fields(list) {
		a := Addon(name)
		if !slices.Contains(Addons(), a) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAddon, name)
		}
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Result lists the files Init wrote.
type Result struct {
	Written []string
	Skipped []string
}

// Init writes env_comm.hcl and env_<stage>.hcl into dir. Addons are parsed
// and the stage descriptor checked before anything is written. An existing
// common descriptor is kept as it is.
func Init(ctx context.Context, dir string, stage env.Stage, addons string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	parsed, err := ParseAddons(addons)
	if err != nil {
		return nil, err
	}

	commonPath := filepath.Join(dir, config.CommonFileName)
	stagePath := ""
	if stage.Activatable() {
		stagePath = filepath.Join(dir, config.StageFileName(stage))
		if fsutil.Exists(stagePath) {
			return nil, fmt.Errorf("%w: %s", ErrTargetExists, stagePath)
		}
	}

	res := &Result{}
	if fsutil.Exists(commonPath) {
		logger.Info("Common descriptor exists, leaving it alone.", "path", commonPath)
		res.Skipped = append(res.Skipped, commonPath)
	} else {
		if err := write(commonPath, Common(EnvName(dir), parsed)); err != nil {
			return nil, err
		}
		res.Written = append(res.Written, commonPath)
	}

	if stagePath != "" {
		if err := write(stagePath, Stage(stage)); err != nil {
			return nil, err
		}
		res.Written = append(res.Written, stagePath)
	}

	for _, p := range res.Written {
		logger.Info("Created descriptor ✨", "path", p)
	}
	return res, nil
}

// write creates path exclusively so a concurrent writer is never clobbered.
func write(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrTargetExists, path)
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

var invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// EnvName derives an env name from a directory: its base name with every run
// of characters that can't appear in a variable name replaced by "_".
func EnvName(dir string) string {
	name := invalidNameChars.ReplaceAllString(filepath.Base(dir), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "env"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "env_" + name
	}
	return strings.ToLower(name)
}

// Common renders the common descriptor.
func Common(name string, addons []Addon) []byte {
	f := hclwrite.NewEmptyFile()
	envBody := f.Body().AppendNewBlock("env", []string{name}).Body()

	v := envBody.AppendNewBlock("variable", []string{"test_var"}).Body()
	v.SetAttributeTraversal("type", traversal("string"))
	v.SetAttributeValue("description", cty.StringVal("Example variable, assigned in every stage descriptor."))

	if slices.Contains(addons, AddonVenv) {
		envBody.AppendNewline()
		venv := envBody.AppendNewBlock("group", []string{"venv"}).Body()

		bin := venv.AppendNewBlock("variable", []string{"bin"}).Body()
		bin.SetAttributeTraversal("type", traversal("path"))
		bin.SetAttributeRaw("value", venvBin())

		pathValue := hclwrite.TokensForFunctionCall("join",
			hclwrite.TokensForValue(cty.StringVal(":")),
			hclwrite.TokensForTuple([]hclwrite.Tokens{
				venvBin(),
				hclwrite.TokensForFunctionCall("lookup",
					hclwrite.TokensForTraversal(traversal("env")),
					hclwrite.TokensForValue(cty.StringVal("PATH")),
					hclwrite.TokensForValue(cty.StringVal("")),
				),
			}),
		)
		path := venv.AppendNewBlock("variable", []string{"path"}).Body()
		path.SetAttributeValue("raw", cty.True)
		path.SetAttributeRaw("value", pathValue)
	}

	return hclwrite.Format(f.Bytes())
}

// venvBin returns the tokens of path(".venv", "bin").
func venvBin() hclwrite.Tokens {
	return hclwrite.TokensForFunctionCall("path",
		hclwrite.TokensForValue(cty.StringVal(".venv")),
		hclwrite.TokensForValue(cty.StringVal("bin")),
	)
}

// Stage renders the descriptor of one stage.
func Stage(stage env.Stage) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	body.SetAttributeValue("stage", cty.StringVal(string(stage)))
	body.SetAttributeValue("emoji", cty.StringVal(stage.Emoji()))
	body.SetAttributeValue("values", cty.ObjectVal(map[string]cty.Value{
		"test_var": cty.StringVal(string(stage) + " value"),
	}))
	return hclwrite.Format(f.Bytes())
}

func traversal(names ...string) hcl.Traversal {
	t := hcl.Traversal{hcl.TraverseRoot{Name: names[0]}}
	for _, n := range names[1:] {
		t = append(t, hcl.TraverseAttr{Name: n})
	}
	return t
}
