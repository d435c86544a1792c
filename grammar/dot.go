package grammar

import (
	"fmt"
	"io"
	"strings"
)

// WriteDot renders the grammar as a DOT digraph. Every rule becomes a node,
// every alternative a record-shaped node listing the alternative's terms as
// ports, and every port points at the rule or terminal it expands to. Rules,
// alternatives, and terminals that have been covered are shaded.
func (g *Graph) WriteDot(w io.Writer) error {
	var b strings.Builder

	fmt.Fprint(&b,
		"digraph GrammarGraph {\n"+
			"    edge [fontname=\"PT Mono\"];\n"+
			"    node [fontname=\"PT Mono\"];\n"+
			"\n",
	)

	termCovered := make([]bool, len(g.terminals))
	for _, exp := range g.exps {
		if exp.Kind == ExpansionTerminal && exp.CovCount > 0 {
			termCovered[exp.ID] = true
		}
	}

	for _, rule := range g.rules {
		attrs := ""
		if rule.CovCount > 0 {
			attrs = ",style=\"filled\",fillcolor=\"gray85\""
		}
		fmt.Fprintf(&b, "    %v [shape=\"box\"%v];\n", quoteID(g.ruleLabel(rule.Name)), attrs)
	}
	fmt.Fprint(&b, "\n")

	expUID := 1
	for _, rule := range g.rules {
		for _, first := range rule.Alts {
			var label strings.Builder
			var targets []string
			port := 1
			for i := first; ; i++ {
				exp := &g.exps[i]
				if port > 1 {
					label.WriteString("|")
				}
				var text string
				if exp.Kind == ExpansionTerminal {
					text = g.terminalLabel(TerminalID(exp.ID))
					targets = append(targets, g.terminalLabel(TerminalID(exp.ID)))
				} else {
					text = g.ruleLabel(g.rules[exp.ID].Name)
					targets = append(targets, g.ruleLabel(g.rules[exp.ID].Name))
				}
				fmt.Fprintf(&label, "<p%v>%v", port, escapeRecord(text))
				port++
				if !exp.HasNext {
					break
				}
			}

			attrs := ""
			if g.exps[first].CovCount > 0 {
				attrs = ",style=\"filled\",fillcolor=\"gray85\""
			}
			fmt.Fprintf(&b, "    %v->e%v:p1;\n", quoteID(g.ruleLabel(rule.Name)), expUID)
			fmt.Fprintf(&b, "    e%v [shape=\"record\",label=\"%v\"%v];\n", expUID, label.String(), attrs)
			for p, target := range targets {
				fmt.Fprintf(&b, "    e%v:p%v->%v;\n", expUID, p+1, quoteID(target))
			}
			expUID++
		}
	}
	fmt.Fprint(&b, "\n")

	for tid := range g.terminals {
		attrs := ""
		if termCovered[tid] {
			attrs = ",style=\"filled\",fillcolor=\"gray85\""
		}
		fmt.Fprintf(&b, "    %v [shape=\"none\",height=0%v];\n", quoteID(g.terminalLabel(TerminalID(tid))), attrs)
	}

	fmt.Fprint(&b, "}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (g *Graph) ruleLabel(name string) string {
	return "<" + name + ">"
}

func (g *Graph) terminalLabel(tid TerminalID) string {
	return "'" + g.terminals[tid] + "'"
}

func quoteID(id string) string {
	var b strings.Builder
	b.WriteString("\"")
	for i := 0; i < len(id); i++ {
		switch id[i] {
		case '"', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(id[i])
	}
	b.WriteString("\"")
	return b.String()
}

// escapeRecord escapes the characters that delimit fields and ports in a
// record-shaped node label.
func escapeRecord(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '}', '<', '>', '|', '\\', '"', ' ':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
