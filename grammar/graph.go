package grammar

import (
	"math"

	verr "github.com/yavuzkoroglu/gfuzzer/error"
	"github.com/yavuzkoroglu/gfuzzer/spec/bnf"
)

type RuleID uint32

type TerminalID uint32

type ExpansionKind int

const (
	// ExpansionTerminal is a terminal literal appearing verbatim in sentences.
	ExpansionTerminal ExpansionKind = iota

	// ExpansionReference is a reference to another rule.
	ExpansionReference
)

// ExpansionTerm is one element of an alternative. ID is a TerminalID or a
// RuleID depending on Kind. HasNext threads the consecutive terms of one
// alternative through the flat expansion list: the last term of an
// alternative has HasNext=false, all earlier terms have HasNext=true.
type ExpansionTerm struct {
	Kind     ExpansionKind
	ID       uint32
	CovCount uint32
	HasNext  bool
}

// Rule is a named nonterminal. Alts holds the flat index of the first
// expansion term of each alternative, in declaration order.
type Rule struct {
	Name     string
	Alts     []uint32
	CovCount uint32
}

// Graph is the compact in-memory representation of a grammar. Rules and
// terminals are interned into index arenas; every cross-reference is an
// index, never a pointer, so cyclic grammars need no special treatment.
type Graph struct {
	rules      []Rule
	ruleIDs    map[string]RuleID
	terminals  []string
	termIDs    map[string]TerminalID
	exps       []ExpansionTerm
	rootRuleID RuleID

	// nCov counts the rules and expansion terms whose CovCount has
	// transitioned from 0 to >=1.
	nCov uint32
}

// Build constructs a Graph from a parsed BNF source. When rootName is empty
// the first rule defined in source order becomes the root. A second
// declaration of an already-known rule appends its alternatives to the
// existing rule.
func Build(root *bnf.RootNode, rootName string) (*Graph, error) {
	if len(root.Rules) == 0 {
		return nil, verr.SpecErrors{
			&verr.SpecError{
				Cause: semErrNoRule,
			},
		}
	}

	g := &Graph{
		ruleIDs: map[string]RuleID{},
		termIDs: map[string]TerminalID{},
	}

	// refPos remembers where each rule was referenced first so that a
	// dangling reference can be reported with a row.
	refPos := map[RuleID]bnf.Position{}
	defined := map[RuleID]bool{}

	for _, rule := range root.Rules {
		rid := g.internRule(rule.LHS)
		defined[rid] = true
		for _, alt := range rule.RHS {
			g.rules[rid].Alts = append(g.rules[rid].Alts, uint32(len(g.exps)))
			for i, term := range alt.Terms {
				hasNext := i < len(alt.Terms)-1
				if term.IsTerminal {
					tid := g.internTerminal(term.Terminal)
					g.exps = append(g.exps, ExpansionTerm{
						Kind:    ExpansionTerminal,
						ID:      uint32(tid),
						HasNext: hasNext,
					})
				} else {
					refID := g.internRule(term.RuleName)
					if _, ok := refPos[refID]; !ok {
						refPos[refID] = term.Pos
					}
					g.exps = append(g.exps, ExpansionTerm{
						Kind:    ExpansionReference,
						ID:      uint32(refID),
						HasNext: hasNext,
					})
				}
			}
		}
	}

	var errs verr.SpecErrors
	for rid := range g.rules {
		if defined[RuleID(rid)] {
			continue
		}
		errs = append(errs, &verr.SpecError{
			Cause:  semErrUndefinedRule,
			Detail: g.rules[rid].Name,
			Row:    refPos[RuleID(rid)].Row,
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if rootName != "" {
		rid, ok := g.ToRuleID(rootName)
		if !ok {
			return nil, verr.SpecErrors{
				&verr.SpecError{
					Cause:  semErrUndefinedRoot,
					Detail: rootName,
				},
			}
		}
		g.rootRuleID = rid
	}

	return g, nil
}

func (g *Graph) internRule(name string) RuleID {
	if rid, ok := g.ruleIDs[name]; ok {
		return rid
	}
	rid := RuleID(len(g.rules))
	g.ruleIDs[name] = rid
	g.rules = append(g.rules, Rule{
		Name: name,
	})
	return rid
}

func (g *Graph) internTerminal(text string) TerminalID {
	if tid, ok := g.termIDs[text]; ok {
		return tid
	}
	tid := TerminalID(len(g.terminals))
	g.termIDs[text] = tid
	g.terminals = append(g.terminals, text)
	return tid
}

func (g *Graph) Root() RuleID {
	return g.rootRuleID
}

// ToRuleID looks up a rule by its name.
func (g *Graph) ToRuleID(name string) (RuleID, bool) {
	rid, ok := g.ruleIDs[name]
	return rid, ok
}

func (g *Graph) RuleName(rid RuleID) string {
	return g.rules[rid].Name
}

func (g *Graph) Terminal(tid TerminalID) string {
	return g.terminals[tid]
}

func (g *Graph) NRules() uint32 {
	return uint32(len(g.rules))
}

func (g *Graph) NTerminals() uint32 {
	return uint32(len(g.terminals))
}

func (g *Graph) NExpansionTerms() uint32 {
	return uint32(len(g.exps))
}

// NTotalTerms returns the number of coverable entities: every rule plus
// every expansion term.
func (g *Graph) NTotalTerms() uint32 {
	return uint32(len(g.rules) + len(g.exps))
}

// CoveragePercent returns the percentage of rules and expansion terms
// visited by at least one sentence, with floor division.
func (g *Graph) CoveragePercent() uint32 {
	return (100 * g.nCov) / g.NTotalTerms()
}

// NAlts returns the number of alternatives of a rule.
func (g *Graph) NAlts(rid RuleID) uint32 {
	return uint32(len(g.rules[rid].Alts))
}

// AltExpansion returns the flat index of the first expansion term of the
// alt-th alternative of a rule.
func (g *Graph) AltExpansion(rid RuleID, alt uint32) uint32 {
	return g.rules[rid].Alts[alt]
}

// AltCovered reports whether the first expansion term of the alt-th
// alternative of a rule has been covered.
func (g *Graph) AltCovered(rid RuleID, alt uint32) bool {
	return g.exps[g.AltExpansion(rid, alt)].CovCount > 0
}

// AppendAltReferences appends the rule ids of every reference term in the
// alt-th alternative of a rule to dst, in left-to-right order.
func (g *Graph) AppendAltReferences(dst []RuleID, rid RuleID, alt uint32) []RuleID {
	for i := g.AltExpansion(rid, alt); ; i++ {
		exp := &g.exps[i]
		if exp.Kind == ExpansionReference {
			dst = append(dst, RuleID(exp.ID))
		}
		if !exp.HasNext {
			break
		}
	}
	return dst
}

func covTouch(cov *uint32, nCov *uint32) {
	if *cov == 0 {
		*nCov++
	}
	if *cov < math.MaxUint32 {
		*cov++
	}
}
