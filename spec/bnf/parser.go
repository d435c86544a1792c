package bnf

import (
	"fmt"
	"io"

	verr "github.com/yavuzkoroglu/gfuzzer/error"
)

type RootNode struct {
	Rules []*RuleNode
}

type RuleNode struct {
	LHS string
	RHS []*AlternativeNode
	Pos Position
}

type AlternativeNode struct {
	Terms []*TermNode
	Pos   Position
}

// TermNode is either a reference to a rule or a terminal. The IsTerminal flag
// distinguishes the two because the empty terminal '' is legal.
type TermNode struct {
	RuleName   string
	Terminal   string
	IsTerminal bool
	Pos        Position
}

func raiseSyntaxError(row int, synErr *SyntaxError) {
	panic(&verr.SpecError{
		Cause: synErr,
		Row:   row,
	})
}

func raiseSyntaxErrorWithDetail(row int, synErr *SyntaxError, detail string) {
	panic(&verr.SpecError{
		Cause:  synErr,
		Detail: detail,
		Row:    row,
	})
}

func Parse(src io.Reader) (*RootNode, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}

	return p.parse()
}

type parser struct {
	lex       *lexer
	peekedTok *token
	lastTok   *token
	errs      verr.SpecErrors

	// A token position that the parser read at last.
	// It is used as additional information in error messages.
	pos Position
}

func newParser(src io.Reader) (*parser, error) {
	lex, err := newLexer(src)
	if err != nil {
		specErr, ok := err.(*verr.SpecError)
		if !ok {
			return nil, err
		}
		return nil, verr.SpecErrors{specErr}
	}
	return &parser{
		lex: lex,
	}, nil
}

func (p *parser) parse() (root *RootNode, retErr error) {
	root = p.parseRoot()
	if len(p.errs) > 0 {
		return nil, p.errs
	}

	return root, nil
}

func (p *parser) parseRoot() *RootNode {
	defer func() {
		err := recover()
		if err != nil {
			specErr, ok := err.(*verr.SpecError)
			if !ok {
				panic(fmt.Errorf("an unexpected error occurred: %v", err))
			}
			p.errs = append(p.errs, specErr)
		}
	}()

	var rules []*RuleNode
	for {
		rule := p.parseRule()
		if rule != nil {
			rules = append(rules, rule)
			continue
		}

		if p.consume(tokenKindEOF) {
			break
		}
	}

	return &RootNode{
		Rules: rules,
	}
}

func (p *parser) parseRule() *RuleNode {
	defer func() {
		err := recover()
		if err == nil {
			return
		}

		specErr, ok := err.(*verr.SpecError)
		if !ok {
			panic(err)
		}

		p.errs = append(p.errs, specErr)
		p.skipOverTo(tokenKindNewline)
	}()

	p.consume(tokenKindNewline)

	if p.consume(tokenKindEOF) {
		return nil
	}

	if !p.consume(tokenKindRuleName) {
		raiseSyntaxError(p.pos.Row, synErrNoRuleName)
	}
	lhs := p.lastTok.text
	lhsPos := p.lastTok.pos

	if !p.consume(tokenKindEquiv) {
		raiseSyntaxError(p.pos.Row, synErrNoEquiv)
	}

	alt := p.parseAlternative()
	rhs := []*AlternativeNode{alt}
	for {
		if !p.consume(tokenKindOr) {
			break
		}
		alt := p.parseAlternative()
		rhs = append(rhs, alt)
	}

	if !p.consume(tokenKindNewline) {
		if !p.consume(tokenKindEOF) {
			raiseSyntaxErrorWithDetail(p.pos.Row, synErrInvalidToken, p.peekedText())
		}
	}

	return &RuleNode{
		LHS: lhs,
		RHS: rhs,
		Pos: lhsPos,
	}
}

func (p *parser) parseAlternative() *AlternativeNode {
	var terms []*TermNode
	for {
		term := p.parseTerm()
		if term == nil {
			break
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		raiseSyntaxError(p.pos.Row, synErrEmptyAlternative)
	}

	return &AlternativeNode{
		Terms: terms,
		Pos:   terms[0].Pos,
	}
}

func (p *parser) parseTerm() *TermNode {
	switch {
	case p.consume(tokenKindRuleName):
		return &TermNode{
			RuleName: p.lastTok.text,
			Pos:      p.lastTok.pos,
		}
	case p.consume(tokenKindTerminal):
		return &TermNode{
			Terminal:   p.lastTok.text,
			IsTerminal: true,
			Pos:        p.lastTok.pos,
		}
	}
	return nil
}

func (p *parser) consume(expected tokenKind) bool {
	var tok *token
	var err error
	if p.peekedTok != nil {
		tok = p.peekedTok
		p.peekedTok = nil
	} else {
		tok, err = p.lex.next()
		if err != nil {
			specErr, ok := err.(*verr.SpecError)
			if !ok {
				panic(err)
			}
			panic(specErr)
		}
	}
	p.pos = tok.pos
	if tok.kind == tokenKindInvalid {
		raiseSyntaxErrorWithDetail(p.pos.Row, synErrInvalidToken, tok.text)
	}
	if tok.kind == expected {
		p.lastTok = tok
		return true
	}
	p.peekedTok = tok

	return false
}

func (p *parser) peekedText() string {
	if p.peekedTok == nil {
		return ""
	}
	return p.peekedTok.text
}

func (p *parser) skip() {
	var tok *token
	var err error
	for {
		if p.peekedTok != nil {
			tok = p.peekedTok
			p.peekedTok = nil
		} else {
			tok, err = p.lex.next()
			if err != nil {
				specErr, ok := err.(*verr.SpecError)
				if !ok {
					panic(err)
				}
				p.errs = append(p.errs, specErr)
				continue
			}
		}

		break
	}

	p.lastTok = tok
	p.pos = tok.pos
}

func (p *parser) skipOverTo(kind tokenKind) {
	// skip is used instead of consume so that an invalid token on the rest
	// of a broken line does not abort the resynchronization.
	for {
		p.skip()
		if p.lastTok.kind == kind || p.lastTok.kind == tokenKindEOF {
			return
		}
	}
}
