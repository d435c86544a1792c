package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	verr "github.com/yavuzkoroglu/gfuzzer/error"
	"github.com/yavuzkoroglu/gfuzzer/fuzzer"
	"github.com/yavuzkoroglu/gfuzzer/grammar"
	"github.com/yavuzkoroglu/gfuzzer/spec/bnf"
)

const (
	versionText   = "gfuzzer v1.0"
	copyrightText = "Copyright (C) 2025 Yavuz Koroglu"

	maxNumber     = 4194304
	maxTimeout    = 604800
	maxRootLen    = 1024
	defaultSeed   = 131077
	defaultBudget = 60
)

var rootFlags = struct {
	bnf        *string
	covGuided  *bool
	copyright  *bool
	dotFile    *string
	minDepth   *uint32
	number     *uint32
	prefixTree *string
	root       *string
	seed       *uint32
	same       *bool
	timeout    *uint32
	verbose    *bool
	version    *bool
}{}

var rootCmd = &cobra.Command{
	Use:   "gfuzzer",
	Short: "Generate random sentences from a BNF grammar",
	Long: `gfuzzer samples sentences from the language of a context-free grammar
written in a simple BNF dialect. Generation is biased toward exploring the
grammar broadly: every decision sequence is recorded in a prefix tree, so by
default no decision sequence is used twice (an ambiguous grammar can still
yield the same sentence from two sequences), and coverage-guided mode steers each
choice toward alternatives no sentence has exercised yet.`,
	Example:       `  gfuzzer -b grammar.bnf -n 100 -c`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runRoot,
}

func init() {
	rootFlags.bnf = rootCmd.Flags().StringP("bnf", "b", "", "an input grammar in Backus-Naur Form (mandatory)")
	rootFlags.covGuided = rootCmd.Flags().BoolP("cov-guided", "c", false, "prefer alternatives no sentence has covered yet")
	rootFlags.copyright = rootCmd.Flags().BoolP("copyright", "C", false, "output the copyright message and exit")
	rootFlags.dotFile = rootCmd.Flags().StringP("dot-file", "d", "", "output the grammar graph in DOT format to a file")
	rootFlags.minDepth = rootCmd.Flags().Uint32P("min-depth", "m", 0, "discard sentences with fewer decisions than this")
	rootFlags.number = rootCmd.Flags().Uint32P("number", "n", 0, "the number of sentences (0 means unlimited)")
	rootFlags.prefixTree = rootCmd.Flags().StringP("prefix-tree", "p", "", "output the decision tree in DOT format to a file")
	rootFlags.root = rootCmd.Flags().StringP("root", "r", "", "the root rule (default: the first rule in the grammar)")
	rootFlags.seed = rootCmd.Flags().Uint32P("seed", "s", defaultSeed, "the random seed")
	rootFlags.same = rootCmd.Flags().BoolP("same", "S", false, "allow the same sentence twice")
	rootFlags.timeout = rootCmd.Flags().Uint32P("timeout", "t", defaultBudget, "the wall-clock budget in seconds")
	rootFlags.verbose = rootCmd.Flags().BoolP("verbose", "v", false, "timestamped status information to stderr")
	rootFlags.version = rootCmd.Flags().BoolP("version", "V", false, "output the version number and exit")
}

func Execute() error {
	return rootCmd.Execute()
}

func verbose(format string, args ...interface{}) {
	if !*rootFlags.verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "[%v] %v\n", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
}

func runRoot(cmd *cobra.Command, args []string) (retErr error) {
	if *rootFlags.version {
		fmt.Fprintln(os.Stderr, versionText)
		return nil
	}
	if *rootFlags.copyright {
		fmt.Fprintln(os.Stderr, copyrightText)
		return nil
	}

	if cmd.Flags().NFlag() == 0 {
		return cmd.Help()
	}
	if *rootFlags.bnf == "" {
		return fmt.Errorf("must specify a BNF file with -b or --bnf")
	}
	if *rootFlags.number > maxNumber {
		return fmt.Errorf("the number of sentences cannot exceed %v", maxNumber)
	}
	if *rootFlags.timeout < 1 || *rootFlags.timeout > maxTimeout {
		return fmt.Errorf("the timeout must be between 1 and %v seconds", maxTimeout)
	}
	rootName := strings.TrimSuffix(strings.TrimPrefix(*rootFlags.root, "<"), ">")
	if len(rootName) > maxRootLen {
		return fmt.Errorf("the root rule name cannot exceed %v bytes", maxRootLen)
	}

	defer func() {
		if retErr == nil {
			return
		}
		specErrs, ok := retErr.(verr.SpecErrors)
		if !ok {
			return
		}
		for _, err := range specErrs {
			err.FilePath = *rootFlags.bnf
			err.SourceName = *rootFlags.bnf
		}
	}()

	g, err := readGrammar(*rootFlags.bnf, rootName)
	if err != nil {
		return err
	}
	verbose("grammar loaded: %v rules, %v terminals, %v expansion terms", g.NRules(), g.NTerminals(), g.NExpansionTerms())
	verbose("root rule: %v", g.RuleName(g.Root()))

	unique := !*rootFlags.same
	verbose("unique = %v, cov-guided = %v, seed = %v", unique, *rootFlags.covGuided, *rootFlags.seed)

	rng := rand.New(rand.NewSource(int64(*rootFlags.seed)))
	gen := fuzzer.NewGenerator(g, rng, fuzzer.Options{
		N:         *rootFlags.number,
		Timeout:   time.Duration(*rootFlags.timeout) * time.Second,
		MinDepth:  *rootFlags.minDepth,
		CovGuided: *rootFlags.covGuided,
		Unique:    unique,
	})

	out := bufio.NewWriter(os.Stdout)
	res, err := gen.Run(out)
	if err != nil {
		return err
	}
	err = out.Flush()
	if err != nil {
		return err
	}
	if res.Exhausted {
		fmt.Fprintln(os.Stderr, "gfuzzer: no unique sequence remaining")
	}
	verbose("emitted %v sentences (%v shallow sequences discarded)", res.Sentences, res.Discarded)
	verbose("grammar coverage: %v%%", g.CoveragePercent())

	if *rootFlags.dotFile != "" {
		err := writeDotFile(*rootFlags.dotFile, g.WriteDot)
		if err != nil {
			return err
		}
		verbose("grammar graph written to %v", *rootFlags.dotFile)
	}
	if *rootFlags.prefixTree != "" {
		err := writeDotFile(*rootFlags.prefixTree, gen.Tree().WriteDot)
		if err != nil {
			return err
		}
		verbose("decision tree written to %v", *rootFlags.prefixTree)
	}

	return nil
}

func readGrammar(path string, rootName string) (*grammar.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open the grammar file %s: %w", path, err)
	}
	defer f.Close()

	ast, err := bnf.Parse(f)
	if err != nil {
		return nil, err
	}

	return grammar.Build(ast, rootName)
}

func writeDotFile(path string, render func(w io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("cannot write the DOT file %s: %w", path, err)
	}
	defer f.Close()

	return render(f)
}
