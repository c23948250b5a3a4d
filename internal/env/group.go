package env

import (
	"sort"
	"strings"
)

// Kind classifies a declared variable.
type Kind int

const (
	// KindScalar is exported under the accumulated namespace prefix.
	KindScalar Kind = iota
	// KindRaw is exported under its own name, without any prefix.
	KindRaw
	// KindGroup is a nested VariableGroup.
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindRaw:
		return "raw"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Type is the declared value type of a scalar or raw variable.
type Type int

const (
	TypeString Type = iota
	TypeNumber
	TypeBool
	TypePath
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypePath:
		return "path"
	default:
		return "unknown"
	}
}

// Decl is one entry of a group's static schema.
type Decl struct {
	Name string
	Kind Kind
	Type Type
}

// Group is a named, ordered bag of declared variables and their assigned
// values. Assign never validates; see Validate.
type Group struct {
	name   string
	decls  []Decl
	index  map[string]int
	values map[string]string
	groups map[string]*Group
}

// NewGroup returns a group with the given declarations.
func NewGroup(name string, decls ...Decl) *Group {
	g := &Group{
		name:   name,
		index:  make(map[string]int),
		values: make(map[string]string),
		groups: make(map[string]*Group),
	}
	for _, d := range decls {
		g.Declare(d)
	}
	return g
}

// Name returns the group name as written in the descriptor.
func (g *Group) Name() string { return g.name }

// Namespace returns the prefix token of the group: the name without
// underscores, uppercased.
func (g *Group) Namespace() string { return Namespace(g.name) }

// Declare adds d to the schema. Redeclaring a name replaces the earlier entry
// in place, keeping its position.
func (g *Group) Declare(d Decl) {
	if i, ok := g.index[d.Name]; ok {
		g.decls[i] = d
		return
	}
	g.index[d.Name] = len(g.decls)
	g.decls = append(g.decls, d)
}

// Decls returns the declarations in declaration order.
func (g *Group) Decls() []Decl {
	out := make([]Decl, len(g.decls))
	copy(out, g.decls)
	return out
}

// Decl looks up a declaration by name.
func (g *Group) Decl(name string) (Decl, bool) {
	i, ok := g.index[name]
	if !ok {
		return Decl{}, false
	}
	return g.decls[i], true
}

// Assign records a scalar value under name.
func (g *Group) Assign(name, value string) {
	g.values[name] = value
}

// AssignGroup records a nested group under name.
func (g *Group) AssignGroup(name string, sub *Group) {
	g.groups[name] = sub
}

// Value returns the scalar assigned to name.
func (g *Group) Value(name string) (string, bool) {
	v, ok := g.values[name]
	return v, ok
}

// Sub returns the nested group assigned to name.
func (g *Group) Sub(name string) (*Group, bool) {
	sub, ok := g.groups[name]
	return sub, ok
}

// Assigned returns every assigned name, scalars and groups, sorted.
func (g *Group) Assigned() []string {
	names := make([]string, 0, len(g.values)+len(g.groups))
	for name := range g.values {
		names = append(names, name)
	}
	for name := range g.groups {
		if _, dup := g.values[name]; !dup {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// isAssigned reports whether d has a value of the matching shape.
func (g *Group) isAssigned(d Decl) bool {
	if d.Kind == KindGroup {
		_, ok := g.groups[d.Name]
		return ok
	}
	_, ok := g.values[d.Name]
	return ok
}

// Namespace derives a namespace token from a name.
func Namespace(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "_", ""))
}
