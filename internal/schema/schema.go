// Package schema holds the gohcl decoding targets for descriptor files.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Common descriptor (env_comm.hcl) ---

// Variable represents a `variable` block: one declared field of a group.
type Variable struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Raw         bool           `hcl:"raw,optional"`
	Value       hcl.Expression `hcl:"value,optional"`
	Description string         `hcl:"description,optional"`
}

// Group represents a `group` block: a nested, namespaced set of variables.
type Group struct {
	Name      string      `hcl:"name,label"`
	Variables []*Variable `hcl:"variable,block"`
	Groups    []*Group    `hcl:"group,block"`
}

// Env represents the top-level `env` block of a common descriptor.
type Env struct {
	Name                string      `hcl:"name,label"`
	Parent              *string     `hcl:"parent,optional"`
	Strict              *bool       `hcl:"strict,optional"`
	StripRawUnderscores *bool       `hcl:"strip_raw_underscores,optional"`
	SearchPath          *string     `hcl:"search_path,optional"`
	Variables           []*Variable `hcl:"variable,block"`
	Groups              []*Group    `hcl:"group,block"`
}

// CommonFile is the root of env_comm.hcl.
type CommonFile struct {
	Env  *Env     `hcl:"env,block"`
	Body hcl.Body `hcl:",remain"`
}

// --- Stage descriptor (env_<stage>.hcl) ---

// StageFile is the root of env_<stage>.hcl.
type StageFile struct {
	Stage  *string        `hcl:"stage,optional"`
	Emoji  *string        `hcl:"emoji,optional"`
	Values hcl.Expression `hcl:"values,optional"`
}
