package activate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/envo/internal/env"
)

// Key returns the exported name of a namespaced variable. prefix is the
// accumulated namespace of its group, e.g. "SANDBOXPYTHON".
func Key(prefix, field string) string {
	return prefix + "_" + env.Namespace(field)
}

// RawKey returns the exported name of a raw variable.
func RawKey(field string, stripUnderscores bool) string {
	if stripUnderscores {
		return env.Namespace(field)
	}
	return strings.ToUpper(field)
}

// ErrKeyCollision is reported when two variables of one node export the same
// key. Across nodes the nearer node wins instead.
var ErrKeyCollision = errors.New("exported key collision")

// flattenGroup writes every declared variable of g into out. owner is the
// accumulated namespace of the enclosing groups, path the dotted location of
// g and seen the variable that exported each key so far.
func flattenGroup(g *env.Group, owner, path string, stripRaw bool, seen, out map[string]string) error {
	prefix := owner + g.Namespace()
	for _, d := range g.Decls() {
		at := path + "." + d.Name

		var key string
		switch d.Kind {
		case env.KindGroup:
			if sub, ok := g.Sub(d.Name); ok {
				if err := flattenGroup(sub, prefix, at, stripRaw, seen, out); err != nil {
					return err
				}
			}
			continue
		case env.KindRaw:
			key = RawKey(d.Name, stripRaw)
		default:
			key = Key(prefix, d.Name)
		}

		if first, dup := seen[key]; dup {
			return fmt.Errorf("%w: %q and %q both export %s", ErrKeyCollision, first, at, key)
		}
		seen[key] = at
		v, _ := g.Value(d.Name)
		out[key] = v
	}
	return nil
}

// prependPaths puts entries in front of the list in base, keeping the first
// occurrence of each entry and dropping empty ones.
func prependPaths(entries []string, base string) string {
	all := append([]string{}, entries...)
	if base != "" {
		all = append(all, filepath.SplitList(base)...)
	}

	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, e := range all {
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return strings.Join(out, string(filepath.ListSeparator))
}
