// This file contains the logic for translating HCL schema structs (from the
// schema package) into the format-agnostic descriptor model defined in the
// config package.

package hcl

import (
	"context"
	"fmt"

	"github.com/specialistvlad/envo/internal/config"
	"github.com/specialistvlad/envo/internal/env"
	"github.com/specialistvlad/envo/internal/schema"
)

var reserved = map[string]bool{
	env.VarRoot:      true,
	env.VarStage:     true,
	env.VarEnvoStage: true,
}

const invalidNameMsg = "not a valid name, use letters, digits and underscores and don't start with a digit"

// validName reports whether name, once uppercased, is a name bash can export.
// HCL identifiers also allow dashes and non-ASCII letters, which bash does not.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// translateEnv converts the top-level env block into the root group schema.
func translateEnv(ctx context.Context, e *schema.Env) (*config.GroupSchema, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("env block needs a non-empty name")
	}
	if !validName(e.Name) {
		return nil, fmt.Errorf("env %q: %s", e.Name, invalidNameMsg)
	}
	for _, v := range e.Variables {
		if reserved[v.Name] {
			return nil, fmt.Errorf("variable %q in env %q: name is reserved", v.Name, e.Name)
		}
	}
	for _, g := range e.Groups {
		if reserved[g.Name] {
			return nil, fmt.Errorf("group %q in env %q: name is reserved", g.Name, e.Name)
		}
	}
	return translateGroup(ctx, e.Name, e.Name, e.Variables, e.Groups)
}

// translateGroup converts one level of variable and group blocks. path is the
// dotted location used in error messages.
func translateGroup(ctx context.Context, name, path string, vars []*schema.Variable, groups []*schema.Group) (*config.GroupSchema, error) {
	g := &config.GroupSchema{Name: name}
	seen := make(map[string]string, len(vars)+len(groups))

	for _, v := range vars {
		if kind, dup := seen[v.Name]; dup {
			return nil, fmt.Errorf("variable %q in %s: name already used by a %s", v.Name, path, kind)
		}
		seen[v.Name] = "variable"

		def, err := translateVariable(ctx, v, path)
		if err != nil {
			return nil, err
		}
		g.Variables = append(g.Variables, def)
	}

	for _, sub := range groups {
		if !validName(sub.Name) {
			return nil, fmt.Errorf("group %q in %s: %s", sub.Name, path, invalidNameMsg)
		}
		if kind, dup := seen[sub.Name]; dup {
			return nil, fmt.Errorf("group %q in %s: name already used by a %s", sub.Name, path, kind)
		}
		seen[sub.Name] = "group"

		translated, err := translateGroup(ctx, sub.Name, path+"."+sub.Name, sub.Variables, sub.Groups)
		if err != nil {
			return nil, err
		}
		g.Groups = append(g.Groups, translated)
	}
	return g, nil
}

// translateVariable is a helper that processes a single variable block,
// parsing its type and keeping its value expression for evaluation.
func translateVariable(ctx context.Context, v *schema.Variable, path string) (*config.VariableDefinition, error) {
	if v.Name == "" {
		return nil, fmt.Errorf("variable in %s needs a non-empty name", path)
	}
	if !validName(v.Name) {
		return nil, fmt.Errorf("variable %q in %s: %s", v.Name, path, invalidNameMsg)
	}
	parsedType, err := typeExprToEnvType(ctx, v.Type)
	if err != nil {
		return nil, fmt.Errorf("in %s, variable %q: %w", path, v.Name, err)
	}

	def := &config.VariableDefinition{
		Name:        v.Name,
		Type:        parsedType,
		Raw:         v.Raw,
		Description: v.Description,
	}
	if !isNullExpr(v.Value) {
		def.Value = v.Value
	}
	return def, nil
}
