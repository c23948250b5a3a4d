package hcl

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions returns the function table available to descriptor expressions.
// root anchors relative paths.
func functions(root string) map[string]function.Function {
	return map[string]function.Function{
		"upper":     stdlib.UpperFunc,
		"lower":     stdlib.LowerFunc,
		"join":      stdlib.JoinFunc,
		"split":     stdlib.SplitFunc,
		"format":    stdlib.FormatFunc,
		"replace":   stdlib.ReplaceFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"concat":    stdlib.ConcatFunc,
		"coalesce":  stdlib.CoalesceFunc,
		"length":    stdlib.LengthFunc,
		"lookup":    stdlib.LookupFunc,
		"path":      pathFunc(root),
		"dotenv":    dotenvFunc(root),
	}
}

// anchor makes p absolute against root.
func anchor(root, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	return filepath.Clean(p)
}

// pathFunc joins its arguments into a path relative to root.
func pathFunc(root string) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{
			Name: "parts",
			Type: cty.String,
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			parts := make([]string, 0, len(args))
			for _, a := range args {
				parts = append(parts, a.AsString())
			}
			return cty.StringVal(anchor(root, filepath.Join(parts...))), nil
		},
	})
}

// dotenvFunc reads a dotenv file into a map of strings.
func dotenvFunc(root string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "file", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.Map(cty.String)),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			file := anchor(root, args[0].AsString())
			vars, err := godotenv.Read(file)
			if err != nil {
				return cty.NilVal, fmt.Errorf("failed to read dotenv file %s: %w", file, err)
			}
			return stringMap(vars), nil
		},
	})
}

// stringMap converts a Go string map to a cty map, which must not be empty
// for cty.MapVal.
func stringMap(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	return cty.MapVal(vals)
}
