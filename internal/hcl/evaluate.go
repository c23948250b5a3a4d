package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/envo/internal/config"
	"github.com/specialistvlad/envo/internal/ctxlog"
	"github.com/specialistvlad/envo/internal/env"
)

// Evaluate builds a fresh env.Node from d. Stage values win over the common
// values. Keys the stage file assigns without a declaration are kept so that
// validation can report them.
func (l *Loader) Evaluate(ctx context.Context, d *config.Descriptor, parent *env.Node, baseline map[string]string) (*env.Node, error) {
	logger := ctxlog.FromContext(ctx)

	node := env.NewNode(d.Name, env.Meta{
		Stage:   d.Stage,
		Emoji:   d.Emoji,
		Root:    d.Dir,
		Parent:  parent,
		Options: d.Options,
	})
	evalCtx := newEvalContext(d, baseline)

	stageValues := cty.NilVal
	if d.Values != nil {
		val, diags := d.Values.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate stage values of %q: %w", d.Name, diags)
		}
		if !val.IsNull() {
			if !isObjectLike(val) {
				return nil, fmt.Errorf("stage values of %q must be an object, got %s", d.Name, val.Type().FriendlyName())
			}
			stageValues = val
		}
	}

	if d.Schema != nil {
		if err := fill(ctx, node.Group, d.Schema, stageValues, evalCtx, d.Dir, d.Name); err != nil {
			return nil, err
		}
	}

	logger.Debug("Descriptor evaluated.", "env", d.Name, "stage", d.Stage, "assigned", len(node.Assigned()))
	return node, nil
}

// fill declares the schema on g and assigns common and stage values. path is
// the dotted location used in error messages.
func fill(ctx context.Context, g *env.Group, s *config.GroupSchema, values cty.Value, evalCtx *hcl.EvalContext, root, path string) error {
	for _, decl := range s.Decls() {
		g.Declare(decl)
	}
	assigned := valueMap(values)

	for _, v := range s.Variables {
		var val cty.Value
		if v.Value != nil {
			cv, diags := v.Value.Value(evalCtx)
			if diags.HasErrors() {
				return fmt.Errorf("failed to evaluate %s.%s: %w", path, v.Name, diags)
			}
			val = cv
		}
		if sv, ok := assigned[v.Name]; ok && !sv.IsNull() {
			val = sv
		}
		if val.IsNull() {
			continue
		}

		str, err := stringify(ctx, val, v.Type, root)
		if err != nil {
			return fmt.Errorf("variable %q: %w", path+"."+v.Name, err)
		}
		g.Assign(v.Name, str)
	}

	for _, sub := range s.Groups {
		subValues := assigned[sub.Name]
		if !subValues.IsNull() && !isObjectLike(subValues) {
			return fmt.Errorf("group %q: expected an object, got %s", path+"."+sub.Name, subValues.Type().FriendlyName())
		}
		sg := env.NewGroup(sub.Name)
		if err := fill(ctx, sg, sub, subValues, evalCtx, root, path+"."+sub.Name); err != nil {
			return err
		}
		g.AssignGroup(sub.Name, sg)
	}

	keys := make([]string, 0, len(assigned))
	for k := range assigned {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, declared := g.Decl(k); declared {
			if reserved[k] && !inSchema(s, k) {
				return fmt.Errorf("%s.%s: name is reserved", path, k)
			}
			continue
		}
		val := assigned[k]
		if isObjectLike(val) {
			g.AssignGroup(k, env.NewGroup(k))
			continue
		}
		str, err := stringify(ctx, val, env.TypeString, root)
		if err != nil {
			str = ""
		}
		g.Assign(k, str)
	}
	return nil
}

// newEvalContext builds the variables and functions visible to descriptor
// expressions.
func newEvalContext(d *config.Descriptor, baseline map[string]string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"root":  cty.StringVal(d.Dir),
			"stage": cty.StringVal(string(d.Stage)),
			"name":  cty.StringVal(d.Name),
			"env":   stringMap(baseline),
		},
		Functions: functions(d.Dir),
	}
}

// inSchema reports whether the descriptor itself declares name.
func inSchema(s *config.GroupSchema, name string) bool {
	for _, d := range s.Decls() {
		if d.Name == name {
			return true
		}
	}
	return false
}

func isObjectLike(v cty.Value) bool {
	t := v.Type()
	return t.IsObjectType() || t.IsMapType()
}

// valueMap returns the attributes of an object or map value, or nil.
func valueMap(v cty.Value) map[string]cty.Value {
	if v.IsNull() || !v.IsKnown() || !isObjectLike(v) {
		return nil
	}
	return v.AsValueMap()
}
