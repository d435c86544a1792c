package fuzzer

import (
	"io"
	"math/rand"
	"time"

	"github.com/yavuzkoroglu/gfuzzer/grammar"
)

// Options configures a generation run.
type Options struct {
	// N is the sentence quota. Zero means no quota; the run is bounded by
	// the timeout alone.
	N uint32

	// Timeout is the wall-clock budget. The budget is checked between
	// iterations only: a sentence whose materialization has begun
	// completes. Zero means no budget.
	Timeout time.Duration

	// MinDepth is the minimum decision-sequence length a sentence must
	// have to be emitted. Shorter sequences are discarded (but still
	// consume their prefix in the decision tree).
	MinDepth uint32

	// CovGuided restricts each draw to uncovered alternatives while any
	// remain.
	CovGuided bool

	// Unique forbids emitting the same decision sequence twice.
	Unique bool
}

// Result summarizes a finished run.
type Result struct {
	Sentences uint32
	Discarded uint32
	Exhausted bool
}

// Generator drives the decision tree and the grammar graph to produce a
// stream of sentences. It is single-threaded; the graph and tree persist
// across iterations while per-iteration scratch is released every round.
type Generator struct {
	graph *grammar.Graph
	tree  *DecisionTree
	rng   *rand.Rand
	opts  Options
}

func NewGenerator(g *grammar.Graph, rng *rand.Rand, opts Options) *Generator {
	return &Generator{
		graph: g,
		tree:  NewDecisionTree(),
		rng:   rng,
		opts:  opts,
	}
}

// Tree exposes the decision tree, primarily for diagnostic rendering.
func (gen *Generator) Tree() *DecisionTree {
	return gen.tree
}

// Run emits sentences to w, one per line, until the quota is reached, the
// wall-clock budget is exhausted, or unique mode runs out of sequences
// (reported through Result.Exhausted).
func (gen *Generator) Run(w io.Writer) (Result, error) {
	var res Result
	var deadline time.Time
	if gen.opts.Timeout > 0 {
		deadline = time.Now().Add(gen.opts.Timeout)
	}

	for {
		if gen.opts.N > 0 && res.Sentences >= gen.opts.N {
			break
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}

		seq, status := gen.tree.GenerateSequence(gen.graph, gen.rng, gen.opts.MinDepth, gen.opts.CovGuided, gen.opts.Unique)
		switch status {
		case StatusNoUniqueSequenceRemaining:
			res.Exhausted = true
			return res, nil
		case StatusShallowSequence:
			res.Discarded++
			continue
		}

		sentence, err := gen.graph.GenerateSentence(seq)
		if err != nil {
			return res, err
		}
		if _, err := io.WriteString(w, sentence); err != nil {
			return res, err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return res, err
		}
		res.Sentences++
	}

	return res, nil
}
