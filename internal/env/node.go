package env

import (
	"fmt"
	"strings"
)

// Stage names an environment variant sharing one schema.
type Stage string

const (
	// StageComm is the common, abstract base. It is never activatable.
	StageComm  Stage = "comm"
	StageLocal Stage = "local"
	StageTest  Stage = "test"
	StageStage Stage = "stage"
	StageProd  Stage = "prod"
)

// DefaultStage is activated when no stage is given on the command line.
const DefaultStage = StageLocal

var stageEmoji = map[Stage]string{
	StageComm:  "",
	StageTest:  "🛠",
	StageLocal: "🐣",
	StageStage: "🤖",
	StageProd:  "🔥",
}

// Stages lists the known stages in promotion order.
func Stages() []Stage {
	return []Stage{StageComm, StageLocal, StageTest, StageStage, StageProd}
}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := stageEmoji[st]; !ok {
		names := make([]string, 0, len(stageEmoji))
		for _, known := range Stages() {
			names = append(names, string(known))
		}
		return "", fmt.Errorf("unknown stage %q: must be one of %s", s, strings.Join(names, ", "))
	}
	return st, nil
}

// Emoji returns the default prompt decoration of the stage.
func (s Stage) Emoji() string { return stageEmoji[s] }

// Activatable reports whether a node of this stage may be activated.
func (s Stage) Activatable() bool { return s != StageComm && s != "" }

// Built-in variables declared on every node.
const (
	VarRoot      = "root"
	VarStage     = "stage"
	VarEnvoStage = "envo_stage"
)

// DefaultSearchPath is the search-path variable extended with node roots.
const DefaultSearchPath = "PYTHONPATH"

// Options tune validation and naming for one node.
type Options struct {
	// Strict also rejects assigned-but-undeclared variables.
	Strict bool
	// StripRawUnderscores drops underscores from raw keys (not_nested ->
	// NOTNESTED). By default they are kept (NOT_NESTED).
	StripRawUnderscores bool
	// SearchPath names the variable prepended with every root in the chain.
	// Empty disables it.
	SearchPath string
}

// DefaultOptions returns strict validation, preserved raw underscores and
// PYTHONPATH as the search path.
func DefaultOptions() Options {
	return Options{Strict: true, SearchPath: DefaultSearchPath}
}

// Meta carries the per-node configuration that is not a variable.
type Meta struct {
	Stage   Stage
	Emoji   string
	Root    string
	Parent  *Node
	Options Options
}

// Node is a VariableGroup extended with a stage, emoji, root directory and an
// optional parent. The parent reference is for composition only; it is built
// and owned by whoever built the child.
type Node struct {
	*Group
	Stage   Stage
	Emoji   string
	Root    string
	Parent  *Node
	Options Options
}

// NewNode returns a node whose schema already contains the built-in root,
// stage and envo_stage variables, assigned from meta.
func NewNode(name string, meta Meta) *Node {
	g := NewGroup(name,
		Decl{Name: VarRoot, Kind: KindScalar, Type: TypePath},
		Decl{Name: VarStage, Kind: KindScalar, Type: TypeString},
		Decl{Name: VarEnvoStage, Kind: KindRaw, Type: TypeString},
	)
	g.Assign(VarRoot, meta.Root)
	g.Assign(VarStage, string(meta.Stage))
	g.Assign(VarEnvoStage, string(meta.Stage))

	emoji := meta.Emoji
	if emoji == "" {
		emoji = meta.Stage.Emoji()
	}
	return &Node{
		Group:   g,
		Stage:   meta.Stage,
		Emoji:   emoji,
		Root:    meta.Root,
		Parent:  meta.Parent,
		Options: meta.Options,
	}
}

// FullName joins every ancestor name and this node's name with dots,
// outermost first.
func (n *Node) FullName() string {
	if n.Parent == nil {
		return n.Name()
	}
	return n.Parent.FullName() + "." + n.Name()
}

// Chain returns the node followed by its ancestors, nearest first.
func (n *Node) Chain() []*Node {
	var chain []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	return chain
}

func (n *Node) String() string { return n.Name() }
