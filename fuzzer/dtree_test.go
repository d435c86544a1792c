package fuzzer

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"

	"github.com/yavuzkoroglu/gfuzzer/grammar"
	"github.com/yavuzkoroglu/gfuzzer/spec/bnf"
)

const digitGrammar = `<digit> ::= '0' | '1' | '2' | '3' | '4' | '5' | '6' | '7' | '8' | '9'
<number> ::= <digit> | <digit> <number>
`

func mustBuild(t *testing.T, src string, rootName string) *grammar.Graph {
	t.Helper()
	ast, err := bnf.Parse(strings.NewReader(src))
	require.NoError(t, err)
	g, err := grammar.Build(ast, rootName)
	require.NoError(t, err)
	return g
}

func TestDecisionTree_UniqueModeExhaustsBinaryGrammar(t *testing.T) {
	g := mustBuild(t, "<x> ::= '0' | '1'\n", "")
	dtree := NewDecisionTree()
	rng := rand.New(rand.NewSource(131077))

	seq1, status := dtree.GenerateSequence(g, rng, 0, false, true)
	require.Equal(t, StatusOk, status)
	require.Len(t, seq1, 1)

	seq2, status := dtree.GenerateSequence(g, rng, 0, false, true)
	require.Equal(t, StatusOk, status)
	require.Len(t, seq2, 1)

	assert.NotEqual(t, seq1[0], seq2[0])
	assert.ElementsMatch(t, []uint32{0, 1}, []uint32{seq1[0], seq2[0]})

	seq3, status := dtree.GenerateSequence(g, rng, 0, false, true)
	assert.Equal(t, StatusNoUniqueSequenceRemaining, status)
	assert.Empty(t, seq3)
}

func TestDecisionTree_UniqueSequencesArePairwiseDistinct(t *testing.T) {
	g := mustBuild(t, digitGrammar, "number")
	dtree := NewDecisionTree()
	rng := rand.New(rand.NewSource(131077))

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seq, status := dtree.GenerateSequence(g, rng, 0, false, true)
		require.Equal(t, StatusOk, status)

		key := fmt.Sprint(seq)
		assert.False(t, seen[key], "sequence %v was produced twice", key)
		seen[key] = true

		// Every Ok sequence materializes against the same graph.
		_, err := g.GenerateSentence(seq)
		assert.NoError(t, err)
	}
}

func TestDecisionTree_SameModeRevisitsSequences(t *testing.T) {
	g := mustBuild(t, "<x> ::= '0'\n", "")
	dtree := NewDecisionTree()
	rng := rand.New(rand.NewSource(131077))

	// The language has a single sentence; without unique mode the walk
	// keeps revisiting it.
	for i := 0; i < 3; i++ {
		seq, status := dtree.GenerateSequence(g, rng, 0, false, false)
		require.Equal(t, StatusOk, status)
		assert.True(t, slices.Equal([]uint32{0}, seq))
	}
}

func TestDecisionTree_ShallowSequenceConsumesItsPrefix(t *testing.T) {
	g := mustBuild(t, "<x> ::= '0' | '1'\n", "")
	dtree := NewDecisionTree()
	rng := rand.New(rand.NewSource(131077))

	// Every sequence of this grammar has one decision, below the minimum
	// depth; the prefix space must still drain.
	_, status := dtree.GenerateSequence(g, rng, 2, false, true)
	require.Equal(t, StatusShallowSequence, status)
	_, status = dtree.GenerateSequence(g, rng, 2, false, true)
	require.Equal(t, StatusShallowSequence, status)
	_, status = dtree.GenerateSequence(g, rng, 2, false, true)
	assert.Equal(t, StatusNoUniqueSequenceRemaining, status)
}

func TestDecisionTree_CoverageGuidedDrawsUncoveredAlternatives(t *testing.T) {
	g := mustBuild(t, "<digit> ::= '0' | '1' | '2' | '3' | '4' | '5' | '6' | '7' | '8' | '9'\n", "")
	dtree := NewDecisionTree()
	rng := rand.New(rand.NewSource(131077))

	covered := map[uint32]bool{}
	for i := 0; i < 10; i++ {
		seq, status := dtree.GenerateSequence(g, rng, 0, true, false)
		require.Equal(t, StatusOk, status)
		require.Len(t, seq, 1)

		// Each draw must pick a so-far-uncovered alternative.
		assert.False(t, covered[seq[0]], "alternative %v was drawn twice while others were uncovered", seq[0])
		covered[seq[0]] = true

		_, err := g.GenerateSentence(seq)
		require.NoError(t, err)
	}
	assert.Len(t, covered, 10)

	for alt := uint32(0); alt < 10; alt++ {
		assert.True(t, g.AltCovered(0, alt), "alternative %v must be covered", alt)
	}
}

func TestDecisionTree_NodeArenaGrowsMonotonically(t *testing.T) {
	g := mustBuild(t, digitGrammar, "number")
	dtree := NewDecisionTree()
	rng := rand.New(rand.NewSource(131077))

	require.Equal(t, uint32(1), dtree.NNodes())
	prev := dtree.NNodes()
	for i := 0; i < 10; i++ {
		_, status := dtree.GenerateSequence(g, rng, 0, false, true)
		require.Equal(t, StatusOk, status)
		assert.GreaterOrEqual(t, dtree.NNodes(), prev)
		prev = dtree.NNodes()
	}
}

func TestDecisionTree_WriteDot(t *testing.T) {
	g := mustBuild(t, "<x> ::= '0' | '1'\n", "")
	dtree := NewDecisionTree()
	rng := rand.New(rand.NewSource(131077))
	_, status := dtree.GenerateSequence(g, rng, 0, false, true)
	require.Equal(t, StatusOk, status)

	var b strings.Builder
	require.NoError(t, dtree.WriteDot(&b))
	dot := b.String()

	assert.Contains(t, dot, "digraph DecisionTree {")
	assert.Contains(t, dot, `n0 [style="filled",fillcolor="gray85"];`)
	assert.Contains(t, dot, `n0->n1 [label="0"];`)
	assert.Contains(t, dot, `n0->n2 [label="1"];`)
	// One leaf is fully explored, the other still untouched.
	assert.Contains(t, dot, `fillcolor="gray55"`)
}
