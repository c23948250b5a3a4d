package activate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/specialistvlad/envo/internal/ctxlog"
	"github.com/specialistvlad/envo/internal/env"
)

// Activator computes flat environment maps and applies them to the process
// environment relative to a baseline captured once at construction.
type Activator struct {
	mu       sync.Mutex
	baseline map[string]string
}

// New snapshots the current process environment as the baseline.
func New() *Activator {
	return &Activator{baseline: Environ()}
}

// Baseline returns a copy of the environment as it was before any activation.
func (a *Activator) Baseline() map[string]string {
	out := make(map[string]string, len(a.baseline))
	for k, v := range a.baseline {
		out[k] = v
	}
	return out
}

// Flatten validates n and every ancestor and returns the merged flat map.
// Ancestors are merged first so that the nearer node wins on key collisions.
// Nothing is written to the process environment.
func (a *Activator) Flatten(n *env.Node) (map[string]string, error) {
	out := make(map[string]string)
	chain := n.Chain()

	for i := len(chain) - 1; i >= 0; i-- {
		node := chain[i]
		if !node.Stage.Activatable() {
			return nil, fmt.Errorf("%s: %w", node.FullName(), env.ErrAbstractStage)
		}
		if err := env.Validate(node); err != nil {
			return nil, err
		}

		seen := make(map[string]string)
		if err := flattenGroup(node.Group, "", node.Name(), node.Options.StripRawUnderscores, seen, out); err != nil {
			return nil, err
		}

		if sp := node.Options.SearchPath; sp != "" {
			base, ok := out[sp]
			if !ok {
				base = a.baseline[sp]
			}
			roots := make([]string, 0, len(chain)-i)
			for _, cur := range chain[i:] {
				roots = append(roots, cur.Root)
			}
			out[sp] = prependPaths(roots, base)
		}
	}
	return out, nil
}

// Activate flattens n, resets the process environment to the baseline and
// writes the flat map on top of it. A validation failure leaves the process
// environment untouched.
func (a *Activator) Activate(ctx context.Context, n *env.Node) (map[string]string, error) {
	logger := ctxlog.FromContext(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	flat, err := a.Flatten(n)
	if err != nil {
		return nil, err
	}

	if err := a.restoreLocked(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := os.Setenv(k, flat[k]); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", k, err)
		}
	}

	logger.Debug("Environment activated.", "env", n.FullName(), "stage", n.Stage, "keys", len(keys))
	return flat, nil
}

// Restore resets the process environment to the baseline.
func (a *Activator) Restore() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.restoreLocked()
}

func (a *Activator) restoreLocked() error {
	for k := range Environ() {
		if _, keep := a.baseline[k]; !keep {
			if err := os.Unsetenv(k); err != nil {
				return fmt.Errorf("failed to unset %s: %w", k, err)
			}
		}
	}
	for k, v := range a.baseline {
		if cur, ok := os.LookupEnv(k); ok && cur == v {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("failed to restore %s: %w", k, err)
		}
	}
	return nil
}

// Render returns the whole current process environment as KEY="value" lines,
// sorted by key, optionally prefixed with "export ". Exported bash functions
// are left out.
func (a *Activator) Render(addExport bool) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := Environ()
	keys := make([]string, 0, len(current))
	for k := range current {
		if strings.Contains(k, "BASH_FUNC_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		line := k + "=" + Quote(current[k])
		if addExport {
			line = "export " + line
		}
		lines = append(lines, line)
	}
	return lines
}

// DotEnvName returns the conventional dotenv file name of a stage.
func DotEnvName(stage env.Stage) string {
	if stage == "" {
		return ".env"
	}
	return ".env_" + string(stage)
}

// DumpDotEnv activates n and writes the rendered environment to the stage's
// dotenv file in dir. It returns the written path.
func (a *Activator) DumpDotEnv(ctx context.Context, n *env.Node, dir string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	if _, err := a.Activate(ctx, n); err != nil {
		return "", err
	}

	name := DotEnvName(n.Stage)
	path := filepath.Join(dir, name)
	content := strings.Join(a.Render(false), "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info(fmt.Sprintf("Saved envs to %s 💾", name), "path", path)
	return path, nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 && pair[0] != "" {
			envMap[pair[0]] = pair[1]
		}
	}
	return envMap
}

// Quote wraps v in double quotes, escaping the characters that bash and
// dotenv parsers treat specially inside them.
func Quote(v string) string {
	var b strings.Builder
	b.Grow(len(v) + 2)
	b.WriteByte('"')
	for _, r := range v {
		switch r {
		case '\\', '"', '$', '`':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
