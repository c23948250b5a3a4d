// This file contains the logic for parsing HCL type keywords (e.g., `string`,
// `path`) into env.Type values.

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/specialistvlad/envo/internal/ctxlog"
	"github.com/specialistvlad/envo/internal/env"
)

// typeExprToEnvType converts an HCL type expression into its env.Type
// equivalent. An absent type means string.
func typeExprToEnvType(ctx context.Context, expr hcl.Expression) (env.Type, error) {
	logger := ctxlog.FromContext(ctx)

	if isNullExpr(expr) {
		logger.Debug("Type expression is absent, defaulting to string.")
		return env.TypeString, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return env.TypeString, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		rootName := v.Traversal.RootName()
		logger.Debug("Parsing type expression as a primitive.", "keyword", rootName)
		switch rootName {
		case "string":
			return env.TypeString, nil
		case "number":
			return env.TypeNumber, nil
		case "bool":
			return env.TypeBool, nil
		case "path":
			return env.TypePath, nil
		default:
			return env.TypeString, fmt.Errorf("unknown primitive type %q", rootName)
		}

	case *hclsyntax.FunctionCallExpr:
		return env.TypeString, fmt.Errorf("collection type %q can't be exported as an environment variable", v.Name)

	default:
		return env.TypeString, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}
