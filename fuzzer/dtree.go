package fuzzer

import (
	"math/rand"

	"github.com/yavuzkoroglu/gfuzzer/grammar"
)

// Status reports the outcome of a sequence generation.
type Status int

const (
	StatusOk Status = iota

	// StatusShallowSequence marks a sequence shorter than the requested
	// minimum depth. The sequence is still recorded in the tree.
	StatusShallowSequence

	// StatusNoUniqueSequenceRemaining means the whole decision prefix
	// space has been enumerated under unique mode.
	StatusNoUniqueSequenceRemaining
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusShallowSequence:
		return "shallow sequence"
	case StatusNoUniqueSequenceRemaining:
		return "no unique sequence remaining"
	}
	return "unknown"
}

type nodeState uint8

const (
	stateUnexplored nodeState = iota
	statePartiallyExplored
	stateFullyExplored
)

const invalidNodeID = ^uint32(0)

// node is one decision point. Siblings are laid out contiguously, so the
// k-th child of a node is firstChild+k and a node needs no child array.
type node struct {
	state      nodeState
	nChoices   uint32
	parentID   uint32
	firstChild uint32
}

// DecisionTree is a prefix trie over the decision sequences sampled so far.
// It grows monotonically: nodes are stored in a flat arena indexed by uint32
// and are never removed.
type DecisionTree struct {
	nodes []node
}

func NewDecisionTree() *DecisionTree {
	t := &DecisionTree{}
	t.addUnexploredNode(invalidNodeID)
	return t
}

func (t *DecisionTree) addUnexploredNode(parentID uint32) uint32 {
	id := uint32(len(t.nodes))
	t.nodes = append(t.nodes, node{
		state:      stateUnexplored,
		parentID:   parentID,
		firstChild: invalidNodeID,
	})
	return id
}

func (t *DecisionTree) NNodes() uint32 {
	return uint32(len(t.nodes))
}

// GenerateSequence walks the grammar from its root rule and draws one
// alternative per visited rule, recording the walk in the tree. Under unique
// mode the returned sequence has never been returned before; when the prefix
// space is exhausted the status is StatusNoUniqueSequenceRemaining and the
// sequence is empty. A sequence shorter than minDepth is reported as
// StatusShallowSequence but its leaf is still marked, so the prefix is
// consumed either way.
func (t *DecisionTree) GenerateSequence(
	g *grammar.Graph,
	rng *rand.Rand,
	minDepth uint32,
	covGuided bool,
	unique bool,
) ([]uint32, Status) {
	if unique && t.nodes[0].state == stateFullyExplored {
		return nil, StatusNoUniqueSequenceRemaining
	}

	var seq []uint32
	var refs []grammar.RuleID
	var candidates []uint32
	cur := uint32(0)
	pending := []grammar.RuleID{g.Root()}
	for len(pending) > 0 {
		rid := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		var choice uint32
		choice, candidates = t.partiallyExploreNode(cur, rid, g, rng, covGuided, unique, candidates)
		seq = append(seq, choice)
		cur = t.nodes[cur].firstChild + choice

		// Push the references of the chosen alternative in reverse so
		// that the leftmost reference is expanded next.
		refs = g.AppendAltReferences(refs[:0], rid, choice)
		for i := len(refs) - 1; i >= 0; i-- {
			pending = append(pending, refs[i])
		}
	}
	t.setLeaf(cur)

	if uint32(len(seq)) < minDepth {
		return seq, StatusShallowSequence
	}
	return seq, StatusOk
}

func (t *DecisionTree) partiallyExploreNode(
	id uint32,
	rid grammar.RuleID,
	g *grammar.Graph,
	rng *rand.Rand,
	covGuided bool,
	unique bool,
	candidates []uint32,
) (uint32, []uint32) {
	if t.nodes[id].state == stateUnexplored {
		nChoices := g.NAlts(rid)
		t.nodes[id].state = statePartiallyExplored
		t.nodes[id].nChoices = nChoices
		t.nodes[id].firstChild = uint32(len(t.nodes))
		for i := uint32(0); i < nChoices; i++ {
			t.addUnexploredNode(id)
		}
	}

	n := t.nodes[id]
	candidates = candidates[:0]
	for k := uint32(0); k < n.nChoices; k++ {
		if unique && t.nodes[n.firstChild+k].state == stateFullyExplored {
			continue
		}
		candidates = append(candidates, k)
	}
	if covGuided {
		// Restrict the draw to uncovered alternatives when any remain.
		// The filter applies after the uniqueness exclusion so that an
		// exhausted child can never be drawn again.
		nUncov := 0
		for _, k := range candidates {
			if !g.AltCovered(rid, k) {
				candidates[nUncov] = k
				nUncov++
			}
		}
		if nUncov > 0 {
			candidates = candidates[:nUncov]
		}
	}
	if len(candidates) == 0 {
		panic("fuzzer: no selectable alternative; the decision tree is corrupt")
	}

	return candidates[rng.Intn(len(candidates))], candidates
}

// setLeaf marks the node where a walk ended as fully explored. Reaching an
// already fully explored leaf again is possible when unique mode is off and
// is a no-op.
func (t *DecisionTree) setLeaf(id uint32) {
	if t.nodes[id].state == stateFullyExplored {
		return
	}
	t.nodes[id].state = stateFullyExplored
	t.nodes[id].nChoices = 0
	t.propagateFullyExplored(id)
}

func (t *DecisionTree) propagateFullyExplored(id uint32) {
	for {
		pid := t.nodes[id].parentID
		if pid == invalidNodeID {
			return
		}
		p := t.nodes[pid]
		for k := uint32(0); k < p.nChoices; k++ {
			if t.nodes[p.firstChild+k].state != stateFullyExplored {
				return
			}
		}
		t.nodes[pid].state = stateFullyExplored
		id = pid
	}
}
