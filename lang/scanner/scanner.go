// Package scanner tokenizes JH source files for the parser to consume.
//
// It is grounded on the teacher's lang/scanner package shape (an Init/Scan
// pair that writes into a reported token kind and value, driven by an
// injected error handler) but scaled down to JH's much smaller lexical
// grammar: no strings, floats, escapes or raw-string variants exist in the
// surface language.
package scanner

import (
	"fmt"
	"go/scanner"
	"unicode"
	"unicode/utf8"

	"github.com/jh-lang/jh/lang/token"
)

// Error and ErrorList are re-exported from the standard library's go/scanner
// package, the same shortcut the teacher's scanner takes, so that error
// accumulation/sorting/formatting does not need to be reimplemented.
type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

// Scanner tokenizes a single source file.
type Scanner struct {
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	cur  rune // current character
	off  int  // byte offset of cur
	roff int  // offset just past cur

	tokPos token.Pos // start position of the token last returned by Scan
}

// Init prepares s to scan src, which must be exactly file.Size() bytes long.
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	if file.Size() != len(src) {
		panic(fmt.Sprintf("file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}
	s.file = file
	s.src = src
	s.err = errHandler
	s.off = 0
	s.roff = 0
	s.cur = ' '
	s.advance()
}

// IntValue is the decoded value of the most recently scanned INT token.
type IntValue struct {
	Value int64
}

// Scan returns the next token and, for IDENT and INT tokens, stores the
// token's text/value in *val.
func (s *Scanner) Scan(val *string) token.Token {
	s.skipSpaceAndComments()

	pos := s.file.Pos(s.off)
	s.tokPos = pos
	switch {
	case s.cur < 0:
		return token.EOF
	case isIdentStart(s.cur):
		lit := s.scanIdent()
		*val = lit
		return token.Lookup(lit)
	case isDigit(s.cur):
		lit := s.scanNumber()
		*val = lit
		return token.INT
	}

	ch := s.cur
	s.advance()
	switch ch {
	case '+':
		return token.PLUS
	case '-':
		return token.MINUS
	case '=':
		if s.cur == '=' {
			s.advance()
			return token.EQL
		}
		return token.EQ
	case '!':
		if s.cur == '=' {
			s.advance()
			return token.NEQ
		}
		s.error(pos, "illegal character '!' (expected '!=')")
		return token.ILLEGAL
	case '<':
		return token.LT
	case '.':
		return token.DOT
	case ',':
		return token.COMMA
	case ';':
		return token.SEMI
	case '(':
		return token.LPAREN
	case ')':
		return token.RPAREN
	case '{':
		return token.LBRACE
	case '}':
		return token.RBRACE
	default:
		s.error(pos, fmt.Sprintf("illegal character %#U", ch))
		return token.ILLEGAL
	}
}

// TokPos returns the start position of the token most recently returned by
// Scan. It must be read after calling Scan, not before -- unlike the
// lookahead character, the token's start position is only known once
// leading whitespace and comments have been skipped.
func (s *Scanner) TokPos() token.Pos { return s.tokPos }

func (s *Scanner) error(pos token.Pos, msg string) {
	if s.err != nil {
		s.err(s.file.Position(pos), msg)
	}
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = -1
		return
	}
	s.off = s.roff
	r, w := rune(s.src[s.roff]), 1
	switch {
	case r == '\n':
		s.file.AddLine(s.roff + 1)
	case r >= utf8.RuneSelf:
		r, w = utf8.DecodeRune(s.src[s.roff:])
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) skipSpaceAndComments() {
	for {
		for s.cur == ' ' || s.cur == '\t' || s.cur == '\n' || s.cur == '\r' {
			s.advance()
		}
		if s.cur == '#' {
			for s.cur != '\n' && s.cur >= 0 {
				s.advance()
			}
			continue
		}
		return
	}
}

func (s *Scanner) scanIdent() string {
	start := s.off
	for isIdentStart(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func (s *Scanner) scanNumber() string {
	start := s.off
	for isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isDigit(r rune) bool      { return r >= '0' && r <= '9' }
