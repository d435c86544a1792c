package fuzzer

import (
	"fmt"
	"io"
	"strings"
)

// WriteDot renders the decision tree as a DOT digraph. Nodes are shaded by
// exploration state and edges carry the alternative index they stand for.
func (t *DecisionTree) WriteDot(w io.Writer) error {
	var b strings.Builder

	fmt.Fprint(&b,
		"digraph DecisionTree {\n"+
			"    edge [fontname=\"PT Mono\"];\n"+
			"    node [fontname=\"PT Mono\",shape=\"circle\"];\n"+
			"\n",
	)

	for id, n := range t.nodes {
		var attrs string
		switch n.state {
		case statePartiallyExplored:
			attrs = " [style=\"filled\",fillcolor=\"gray85\"]"
		case stateFullyExplored:
			attrs = " [style=\"filled\",fillcolor=\"gray55\"]"
		}
		fmt.Fprintf(&b, "    n%v%v;\n", id, attrs)
	}
	fmt.Fprint(&b, "\n")

	for id, n := range t.nodes {
		for k := uint32(0); k < n.nChoices; k++ {
			fmt.Fprintf(&b, "    n%v->n%v [label=\"%v\"];\n", id, n.firstChild+k, k)
		}
	}

	fmt.Fprint(&b, "}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
