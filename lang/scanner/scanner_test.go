package scanner_test

import (
	"testing"

	"github.com/jh-lang/jh/lang/scanner"
	"github.com/jh-lang/jh/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) ([]token.Token, []string) {
	t.Helper()

	fset := token.NewFileSet()
	file := fset.AddFile("test.jh", -1, len(src))

	var errs scanner.ErrorList
	var s scanner.Scanner
	s.Init(file, []byte(src), errs.Add)

	var toks []token.Token
	var vals []string
	var val string
	for {
		tok := s.Scan(&val)
		toks = append(toks, tok)
		vals = append(vals, val)
		val = ""
		if tok == token.EOF {
			break
		}
	}
	require.NoError(t, errs.Err())
	return toks, vals
}

func TestScanBasic(t *testing.T) {
	toks, vals := scanAll(t, `fn main(){ return hello(5) }`)
	want := []token.Token{
		token.FN, token.IDENT, token.LPAREN, token.RPAREN, token.LBRACE,
		token.RETURN, token.IDENT, token.LPAREN, token.INT, token.RPAREN,
		token.RBRACE, token.EOF,
	}
	require.Equal(t, want, toks)
	require.Equal(t, "main", vals[1])
	require.Equal(t, "hello", vals[6])
	require.Equal(t, "5", vals[8])
}

func TestScanOperatorsAndComments(t *testing.T) {
	toks, _ := scanAll(t, "x = y == z; # a comment\nw != 1; i<2")
	want := []token.Token{
		token.IDENT, token.EQ, token.IDENT, token.EQL, token.IDENT, token.SEMI,
		token.IDENT, token.NEQ, token.INT, token.SEMI,
		token.IDENT, token.LT, token.INT, token.EOF,
	}
	require.Equal(t, want, toks)
}

func TestScanFieldAccess(t *testing.T) {
	toks, vals := scanAll(t, `x.hello = object()`)
	want := []token.Token{
		token.IDENT, token.DOT, token.IDENT, token.EQ, token.OBJECT,
		token.LPAREN, token.RPAREN, token.EOF,
	}
	require.Equal(t, want, toks)
	require.Equal(t, "hello", vals[2])
}

func TestScanIllegalChar(t *testing.T) {
	fset := token.NewFileSet()
	src := "x @ y"
	file := fset.AddFile("test.jh", -1, len(src))

	var errs scanner.ErrorList
	var s scanner.Scanner
	s.Init(file, []byte(src), errs.Add)

	var val string
	for tok := s.Scan(&val); tok != token.EOF; tok = s.Scan(&val) {
		val = ""
	}
	require.Error(t, errs.Err())
	require.Contains(t, errs.Err().Error(), "illegal character")
}
