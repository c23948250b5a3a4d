package shell

import (
	"bufio"
	"fmt"
	"io"

	"github.com/specialistvlad/envo/internal/activate"
	"github.com/specialistvlad/envo/internal/env"
)

// Prompt returns the prompt prefix of a node, e.g. "🛠(sandbox.child)".
func Prompt(n *env.Node) string {
	return n.Emoji + "(" + n.FullName() + ")"
}

// WriteRC writes a bash rc file: the user's ~/.bashrc first, then lines,
// then the prompt override.
func WriteRC(w io.Writer, lines []string, prompt string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "[ -f ~/.bashrc ] && source ~/.bashrc")
	for _, line := range lines {
		fmt.Fprintln(bw, line)
	}
	fmt.Fprintf(bw, "PS1=%s\"$PS1\"\n", activate.Quote(prompt))
	return bw.Flush()
}
