package bnf

import (
	"io"

	verr "github.com/yavuzkoroglu/gfuzzer/error"
)

const (
	// maxTermLen is the maximum byte length of a rule name or a terminal.
	maxTermLen = 1024

	// maxSourceSize is the maximum byte size of a grammar source.
	maxSourceSize = 1048576
)

type tokenKind string

const (
	tokenKindRuleName = tokenKind("rule name")
	tokenKindTerminal = tokenKind("terminal")
	tokenKindEquiv    = tokenKind("::=")
	tokenKindOr       = tokenKind("|")
	tokenKindNewline  = tokenKind("newline")
	tokenKindEOF      = tokenKind("eof")
	tokenKindInvalid  = tokenKind("invalid")
)

type Position struct {
	Row int
}

func newPosition(row int) Position {
	return Position{
		Row: row,
	}
}

type token struct {
	kind tokenKind
	text string
	pos  Position
}

func newRuleNameToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindRuleName,
		text: text,
		pos:  pos,
	}
}

func newTerminalToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindTerminal,
		text: text,
		pos:  pos,
	}
}

func newSymbolToken(kind tokenKind, pos Position) *token {
	return &token{
		kind: kind,
		pos:  pos,
	}
}

func newEOFToken(pos Position) *token {
	return &token{
		kind: tokenKindEOF,
		pos:  pos,
	}
}

func newInvalidToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindInvalid,
		text: text,
		pos:  pos,
	}
}

// lexer tokenizes a BNF source. The source is byte-oriented: a terminal may
// contain arbitrary bytes, so the lexer never decodes runes.
type lexer struct {
	src []byte
	i   int
	row int
	buf *token
}

func newLexer(src io.Reader) (*lexer, error) {
	b, err := io.ReadAll(io.LimitReader(src, maxSourceSize+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxSourceSize {
		return nil, &verr.SpecError{
			Cause: synErrSourceTooLarge,
		}
	}
	return &lexer{
		src: b,
		row: 1,
	}, nil
}

// next returns the next token. Consecutive newlines are folded into one.
func (l *lexer) next() (*token, error) {
	if l.buf != nil {
		tok := l.buf
		l.buf = nil
		return tok, nil
	}

	var newline *token
	for {
		tok, err := l.lexAndSkipWSs()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokenKindNewline {
			newline = tok
			continue
		}

		if newline != nil {
			l.buf = tok
			return newline, nil
		}
		return tok, nil
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\v' || b == '\f' || b == '\r'
}

func (l *lexer) lexAndSkipWSs() (*token, error) {
	for l.i < len(l.src) && isSpace(l.src[l.i]) {
		l.i++
	}
	if l.i >= len(l.src) {
		return newEOFToken(newPosition(l.row)), nil
	}

	b := l.src[l.i]
	switch b {
	case '\n':
		row := l.row
		l.row++
		l.i++
		return newSymbolToken(tokenKindNewline, newPosition(row)), nil
	case ';':
		for l.i < len(l.src) && l.src[l.i] != '\n' {
			l.i++
		}
		return l.lexAndSkipWSs()
	case '<':
		return l.lexRuleName()
	case '\'':
		return l.lexTerminal()
	case '"':
		l.i++
		return nil, &verr.SpecError{
			Cause: synErrRegexReserved,
			Row:   l.row,
		}
	case ':':
		if l.i+3 <= len(l.src) && l.src[l.i+1] == ':' && l.src[l.i+2] == '=' {
			l.i += 3
			return newSymbolToken(tokenKindEquiv, newPosition(l.row)), nil
		}
		l.i++
		return newInvalidToken(":", newPosition(l.row)), nil
	case '|':
		l.i++
		return newSymbolToken(tokenKindOr, newPosition(l.row)), nil
	default:
		l.i++
		return newInvalidToken(string(b), newPosition(l.row)), nil
	}
}

func (l *lexer) lexRuleName() (*token, error) {
	l.i++
	start := l.i
	for {
		if l.i >= len(l.src) || l.src[l.i] == '\n' {
			return nil, &verr.SpecError{
				Cause: synErrUnclosedRuleName,
				Row:   l.row,
			}
		}
		b := l.src[l.i]
		if b == '>' {
			break
		}
		if isSpace(b) {
			return nil, &verr.SpecError{
				Cause: synErrSpaceInRuleName,
				Row:   l.row,
			}
		}
		l.i++
		if l.i-start > maxTermLen {
			return nil, &verr.SpecError{
				Cause: synErrTermTooLong,
				Row:   l.row,
			}
		}
	}
	name := l.src[start:l.i]
	l.i++
	if len(name) == 0 {
		return nil, &verr.SpecError{
			Cause: synErrEmptyRuleName,
			Row:   l.row,
		}
	}
	return newRuleNameToken(string(name), newPosition(l.row)), nil
}

func (l *lexer) lexTerminal() (*token, error) {
	l.i++
	start := l.i
	for {
		if l.i >= len(l.src) || l.src[l.i] == '\n' {
			return nil, &verr.SpecError{
				Cause: synErrUnclosedTerminal,
				Row:   l.row,
			}
		}
		if l.src[l.i] == '\'' {
			break
		}
		l.i++
		if l.i-start > maxTermLen {
			return nil, &verr.SpecError{
				Cause: synErrTermTooLong,
				Row:   l.row,
			}
		}
	}
	text := l.src[start:l.i]
	l.i++
	return newTerminalToken(string(text), newPosition(l.row)), nil
}
