package fuzzer

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_UniqueModeExhaustsBinaryGrammar(t *testing.T) {
	g := mustBuild(t, "<x> ::= '0' | '1'\n", "")
	rng := rand.New(rand.NewSource(131077))
	gen := NewGenerator(g, rng, Options{
		N:      1000000,
		Unique: true,
	})

	var b strings.Builder
	res, err := gen.Run(&b)
	require.NoError(t, err)

	assert.True(t, res.Exhausted)
	assert.Equal(t, uint32(2), res.Sentences)
	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	assert.ElementsMatch(t, []string{"0", "1"}, lines)
}

func TestGenerator_QuotaBoundsTheRun(t *testing.T) {
	g := mustBuild(t, digitGrammar, "number")
	rng := rand.New(rand.NewSource(131077))
	gen := NewGenerator(g, rng, Options{
		N:       10,
		Timeout: 60 * time.Second,
		Unique:  true,
	})

	var b strings.Builder
	res, err := gen.Run(&b)
	require.NoError(t, err)

	assert.False(t, res.Exhausted)
	assert.Equal(t, uint32(10), res.Sentences)

	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	require.Len(t, lines, 10)
	for _, line := range lines {
		assert.NotEmpty(t, line)
		for _, c := range line {
			assert.True(t, c >= '0' && c <= '9', "a sentence of the number grammar must be a digit string; got: %v", line)
		}
	}
}

func TestGenerator_SameSeedSameStream(t *testing.T) {
	run := func() string {
		g := mustBuild(t, digitGrammar, "number")
		rng := rand.New(rand.NewSource(131077))
		gen := NewGenerator(g, rng, Options{
			N:      50,
			Unique: true,
		})
		var b strings.Builder
		_, err := gen.Run(&b)
		require.NoError(t, err)
		return b.String()
	}

	assert.Equal(t, run(), run())
}

func TestGenerator_CoverageGuidedRunCoversEveryDigit(t *testing.T) {
	g := mustBuild(t, digitGrammar, "number")
	rng := rand.New(rand.NewSource(131077))
	gen := NewGenerator(g, rng, Options{
		N:         10,
		CovGuided: true,
		Unique:    true,
	})

	var b strings.Builder
	res, err := gen.Run(&b)
	require.NoError(t, err)
	require.Equal(t, uint32(10), res.Sentences)

	digit, ok := g.ToRuleID("digit")
	require.True(t, ok)
	for alt := uint32(0); alt < g.NAlts(digit); alt++ {
		assert.True(t, g.AltCovered(digit, alt), "alternative %v of digit must be covered", alt)
	}

	emitted := b.String()
	for _, d := range "0123456789" {
		assert.Contains(t, emitted, string(d))
	}
}

func TestGenerator_MinDepthDiscardsShallowSequences(t *testing.T) {
	g := mustBuild(t, "<x> ::= '0' | '1'\n", "")
	rng := rand.New(rand.NewSource(131077))
	gen := NewGenerator(g, rng, Options{
		N:        10,
		MinDepth: 2,
		Unique:   true,
	})

	var b strings.Builder
	res, err := gen.Run(&b)
	require.NoError(t, err)

	assert.True(t, res.Exhausted)
	assert.Equal(t, uint32(0), res.Sentences)
	assert.Equal(t, uint32(2), res.Discarded)
	assert.Empty(t, b.String())
}

func TestGenerator_CoverageIsMonotone(t *testing.T) {
	g := mustBuild(t, digitGrammar, "number")
	rng := rand.New(rand.NewSource(131077))
	gen := NewGenerator(g, rng, Options{
		Unique: true,
	})

	prev := g.CoveragePercent()
	require.Equal(t, uint32(0), prev)
	gen.opts.N = 1
	for i := 0; i < 20; i++ {
		_, err := gen.Run(&strings.Builder{})
		require.NoError(t, err)
		cov := g.CoveragePercent()
		assert.GreaterOrEqual(t, cov, prev)
		prev = cov
	}
	assert.Greater(t, prev, uint32(0))
}
