package config

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/specialistvlad/envo/internal/env"
)

// CommonFileName is the descriptor shared by every stage. Discovery looks for
// it when walking up from the working directory.
const CommonFileName = "env_comm.hcl"

// StageFileName returns the descriptor file name of a stage.
func StageFileName(stage env.Stage) string {
	return "env_" + string(stage) + ".hcl"
}

// Descriptor is the unified, format-agnostic representation of one
// descriptor pair (common + stage file) before evaluation.
type Descriptor struct {
	Name      string
	Dir       string // absolute; becomes the node root
	Stage     env.Stage
	Emoji     string
	ParentDir string // absolute, empty without a parent
	Options   env.Options
	Schema    *GroupSchema
	Values    hcl.Expression // stage assignments, nil when absent
	Files     []string
}

// GroupSchema is the declaration list of a group.
type GroupSchema struct {
	Name      string
	Variables []*VariableDefinition
	Groups    []*GroupSchema
}

// VariableDefinition is a single declared variable.
type VariableDefinition struct {
	Name        string
	Type        env.Type
	Raw         bool
	Description string
	Value       hcl.Expression // common value, nil when absent
}

// Decls converts the schema to the static declaration list of env.Group.
func (g *GroupSchema) Decls() []env.Decl {
	decls := make([]env.Decl, 0, len(g.Variables)+len(g.Groups))
	for _, v := range g.Variables {
		kind := env.KindScalar
		if v.Raw {
			kind = env.KindRaw
		}
		decls = append(decls, env.Decl{Name: v.Name, Kind: kind, Type: v.Type})
	}
	for _, sub := range g.Groups {
		decls = append(decls, env.Decl{Name: sub.Name, Kind: env.KindGroup})
	}
	return decls
}
