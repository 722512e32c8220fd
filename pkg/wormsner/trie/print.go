package trie

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes the subtree below n, one child per line, indented by four
// spaces per level. Terminal children are followed by their ids.
func Fprint(w io.Writer, n *Node, indent int) error {
	for _, tok := range n.Tokens() {
		child := n.children[tok]
		line := strings.Repeat(" ", indent) + tok
		if child.IsTerminal() {
			line += " " + formatIDs(child.ids)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if err := Fprint(w, child, indent+4); err != nil {
			return err
		}
	}
	return nil
}

// FprintFrom writes the start token with the ids of the node it reaches,
// followed by that node's subtree.
func FprintFrom(w io.Writer, root *Node, start string) error {
	node, ok := root.Child(start)
	if !ok {
		return fmt.Errorf("token %q not in index", start)
	}
	if _, err := fmt.Fprintln(w, start, formatIDs(node.ids)); err != nil {
		return err
	}
	return Fprint(w, node, 4)
}

func formatIDs(ids []string) string {
	return "[" + strings.Join(ids, " ") + "]"
}
