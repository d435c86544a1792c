package grammar

import (
	"errors"
	"strings"
)

// ErrSentence is reported when a decision sequence runs out (or indexes a
// nonexistent alternative) before the derivation it induces is complete.
// Sequences produced by the decision tree against the same graph never
// trigger it.
var ErrSentence = errors.New("the decision sequence does not determine a complete sentence")

// GenerateSentence materializes the sentence determined by the given
// per-rule choice sequence. The walk is a depth-first left-to-right
// pre-order expansion of the derivation tree: each rule visit consumes one
// decision that selects among its alternatives. Every rule and expansion
// term visited has its coverage counter incremented, saturating at the
// maximum; surplus decisions at the end of the sequence are ignored.
//
// On ErrSentence the partial output is discarded but counters already
// advanced stay advanced. Coverage is an over-approximation.
func (g *Graph) GenerateSentence(decisions []uint32) (string, error) {
	var b strings.Builder
	var stack []uint32
	di := 0

	push := func(rid RuleID) error {
		rule := &g.rules[rid]
		covTouch(&rule.CovCount, &g.nCov)
		if di >= len(decisions) {
			return ErrSentence
		}
		choice := decisions[di]
		di++
		if choice >= uint32(len(rule.Alts)) {
			return ErrSentence
		}

		// Push the chosen alternative's run in reverse so that the
		// leftmost term is expanded first.
		first := rule.Alts[choice]
		last := first
		for g.exps[last].HasNext {
			last++
		}
		for i := last; ; i-- {
			stack = append(stack, i)
			if i == first {
				break
			}
		}
		return nil
	}

	if err := push(g.rootRuleID); err != nil {
		return "", err
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		exp := &g.exps[i]
		covTouch(&exp.CovCount, &g.nCov)
		if exp.Kind == ExpansionTerminal {
			b.WriteString(g.terminals[exp.ID])
			continue
		}
		if err := push(RuleID(exp.ID)); err != nil {
			return "", err
		}
	}

	return b.String(), nil
}
