package hcl

import (
	"context"
	"fmt"
	"strconv"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/specialistvlad/envo/internal/ctxlog"
	"github.com/specialistvlad/envo/internal/env"
)

// ctyType maps a declared variable type onto the cty type its value must
// convert to.
func ctyType(t env.Type) cty.Type {
	switch t {
	case env.TypeNumber:
		return cty.Number
	case env.TypeBool:
		return cty.Bool
	default:
		return cty.String
	}
}

// stringify converts an evaluated value to the declared type and renders it
// as the string stored in the environment. Paths are anchored at root.
func stringify(ctx context.Context, val cty.Value, t env.Type, root string) (string, error) {
	logger := ctxlog.FromContext(ctx)
	target := ctyType(t)

	if !val.IsWhollyKnown() {
		return "", fmt.Errorf("value is not known")
	}
	converted, err := convert.Convert(val, target)
	if err != nil {
		return "", fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), t, err)
	}
	if !val.Type().Equals(converted.Type()) {
		logger.Debug("Implicitly converted value type.",
			"from", val.Type().FriendlyName(),
			"to", converted.Type().FriendlyName(),
		)
	}

	switch t {
	case env.TypeNumber:
		return converted.AsBigFloat().Text('f', -1), nil
	case env.TypeBool:
		var b bool
		if err := gocty.FromCtyValue(converted, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	}

	var s string
	if err := gocty.FromCtyValue(converted, &s); err != nil {
		return "", err
	}
	if t == env.TypePath {
		s = anchor(root, s)
	}
	return s, nil
}
