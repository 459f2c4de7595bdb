// Package bootstrap implements the Bootstrap Grammar Loader (C16): a
// hand-written recursive-descent reader for the surface grammar syntax of
// spec.md §6, producing a grammar.GrammarFile. It cannot be built on pkg/peg
// because pkg/peg needs a GrammarFile to drive — this is how that first
// GrammarFile comes into existence.
//
// Grounded on ast/parser.go's hand-written lexical helpers
// (ifaceSliceToByteSlice and the escape-decoding arms of its generated
// Literal/char-class productions): this package re-expresses that same
// "scan runes, accumulate a buffer, special-case backslash" shape as an
// ordinary hand-rolled lexer instead of pigeon-generated table dispatch.
package bootstrap

import (
	"fmt"
	"unicode/utf8"

	"github.com/prism-lang/prismc/pkg/source"
)

// tokKind tags one lexical token of the surface syntax.
type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokString
	tokChar
	tokSymbol // punctuation: any single rune that starts no other token, e.g. { } ( ) [ ] - | ^ , ; : @ .
	tokArrow  // "<-"
)

type token struct {
	kind tokKind
	text string
	pos  source.Position
}

// lexer scans the surface grammar syntax rune by rune, skipping whitespace
// and line comments ("//...") between tokens the way ast/parser.go's
// generated scanner skips its own __ (layout) rule between productions.
type lexer struct {
	files *source.Table
	file  source.FileID
	data  []byte
	pos   int
}

func newLexer(files *source.Table, file source.FileID) *lexer {
	return &lexer{files: files, file: file, data: files.Bytes(file)}
}

func (l *lexer) position() source.Position {
	return source.Position{File: l.file, Offset: l.pos}
}

func (l *lexer) peekByte() (byte, bool) {
	if l.pos >= len(l.data) {
		return 0, false
	}
	return l.data[l.pos], true
}

func (l *lexer) skipLayout() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.pos++
		case c == '/' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '/':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '#' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9') || r == '-'
}

// decodeEscape interprets the four escapes spec.md §6 names: \n \r \" \'.
// Also accepts \\ for a literal backslash, following the generated
// parser's Literal production which escapes its own quote character plus
// backslash itself.
func decodeEscape(l *lexer) (rune, error) {
	// l.pos is positioned just after the backslash.
	if l.pos >= len(l.data) {
		return 0, fmt.Errorf("bootstrap: unterminated escape at %s", l.position())
	}
	c := l.data[l.pos]
	l.pos++
	switch c {
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case '"':
		return '"', nil
	case '\'':
		return '\'', nil
	case '\\':
		return '\\', nil
	default:
		return 0, fmt.Errorf("bootstrap: unknown escape \\%c at %s", c, l.position())
	}
}

// next scans and returns the next token, skipping layout first.
func (l *lexer) next() (token, error) {
	l.skipLayout()
	start := l.position()
	c, ok := l.peekByte()
	if !ok {
		return token{kind: tokEOF, pos: start}, nil
	}

	switch {
	case c == '"':
		return l.scanString(start)
	case c == '\'':
		return l.scanChar(start)
	case c == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '-':
		l.pos += 2
		return token{kind: tokArrow, text: "<-", pos: start}, nil
	case isIdentStartByte(c):
		return l.scanIdent(start)
	default:
		r, size := utf8.DecodeRune(l.data[l.pos:])
		l.pos += size
		return token{kind: tokSymbol, text: string(r), pos: start}, nil
	}
}

func isIdentStartByte(c byte) bool {
	return isIdentStart(rune(c))
}

func (l *lexer) scanIdent(start source.Position) (token, error) {
	begin := l.pos
	for l.pos < len(l.data) {
		r, size := utf8.DecodeRune(l.data[l.pos:])
		if !isIdentCont(r) {
			break
		}
		l.pos += size
	}
	return token{kind: tokIdent, text: string(l.data[begin:l.pos]), pos: start}, nil
}

func (l *lexer) scanString(start source.Position) (token, error) {
	l.pos++ // opening quote
	var buf []byte
	for {
		if l.pos >= len(l.data) {
			return token{}, fmt.Errorf("bootstrap: unterminated string starting at %s", start)
		}
		c := l.data[l.pos]
		if c == '"' {
			l.pos++
			return token{kind: tokString, text: string(buf), pos: start}, nil
		}
		if c == '\\' {
			l.pos++
			r, err := decodeEscape(l)
			if err != nil {
				return token{}, err
			}
			buf = utf8.AppendRune(buf, r)
			continue
		}
		r, size := utf8.DecodeRune(l.data[l.pos:])
		buf = utf8.AppendRune(buf, r)
		l.pos += size
	}
}

func (l *lexer) scanChar(start source.Position) (token, error) {
	l.pos++ // opening quote
	if l.pos >= len(l.data) {
		return token{}, fmt.Errorf("bootstrap: unterminated char literal at %s", start)
	}
	var r rune
	if l.data[l.pos] == '\\' {
		l.pos++
		var err error
		r, err = decodeEscape(l)
		if err != nil {
			return token{}, err
		}
	} else {
		var size int
		r, size = utf8.DecodeRune(l.data[l.pos:])
		l.pos += size
	}
	if l.pos >= len(l.data) || l.data[l.pos] != '\'' {
		return token{}, fmt.Errorf("bootstrap: unterminated char literal at %s", start)
	}
	l.pos++
	return token{kind: tokChar, text: string(r), pos: start}, nil
}
