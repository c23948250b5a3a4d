package env

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnset is reported for a declared variable without a value.
	ErrUnset = errors.New("variable is unset")
	// ErrUndeclared is reported for an assigned variable missing from the schema.
	ErrUndeclared = errors.New("variable is undeclared")
	// ErrAbstractStage guards against activating the common base.
	ErrAbstractStage = errors.New(`cannot activate env with "comm" stage`)
)

// Problem is a single validation finding.
type Problem struct {
	Path string
	Err  error
}

func (p Problem) String() string {
	switch {
	case errors.Is(p.Err, ErrUnset):
		return fmt.Sprintf("Variable %q is unset!", p.Path)
	case errors.Is(p.Err, ErrUndeclared):
		return fmt.Sprintf("Variable %q is undeclared!", p.Path)
	default:
		return fmt.Sprintf("Variable %q: %v", p.Path, p.Err)
	}
}

// ValidationError lists every problem found in a tree, in walk order.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return "Detected errors! " + strings.Join(msgs, "; ")
}

// Is matches ErrUnset and ErrUndeclared when any problem carries them.
func (e *ValidationError) Is(target error) bool {
	for _, p := range e.Problems {
		if errors.Is(p.Err, target) {
			return true
		}
	}
	return false
}

// Paths returns the dotted path of every problem.
func (e *ValidationError) Paths() []string {
	out := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		out[i] = p.Path
	}
	return out
}

// Validate walks the node depth first and returns a *ValidationError naming
// every unset variable and, with Options.Strict, every undeclared one.
func Validate(n *Node) error {
	return ValidateGroup(n.Group, n.Options.Strict)
}

// ValidateGroup validates a bare group. The root path is the group name.
func ValidateGroup(g *Group, strict bool) error {
	var problems []Problem
	walk(g, g.Name(), strict, &problems)
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func walk(g *Group, path string, strict bool, problems *[]Problem) {
	var unset, undeclared []Problem

	for _, d := range g.decls {
		if !g.isAssigned(d) {
			unset = append(unset, Problem{Path: path + "." + d.Name, Err: ErrUnset})
		}
	}
	if strict {
		for _, name := range g.Assigned() {
			if _, ok := g.index[name]; !ok {
				undeclared = append(undeclared, Problem{Path: path + "." + name, Err: ErrUndeclared})
			}
		}
	}
	*problems = append(*problems, unset...)
	*problems = append(*problems, undeclared...)

	// Only descend into groups that are both declared and assigned.
	for _, d := range g.decls {
		if d.Kind != KindGroup {
			continue
		}
		if sub, ok := g.groups[d.Name]; ok {
			walk(sub, path+"."+d.Name, strict, problems)
		}
	}
}
