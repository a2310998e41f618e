// Package parser implements a recursive-descent parser that turns JH source
// into the lang/ast tree. Grounded on the teacher's lang/parser package
// shape (a parser struct carrying the scanner, current token and an error
// list) and cross-checked against original_source/jhvm/parser.py for the
// exact surface grammar.
package parser

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jh-lang/jh/lang/ast"
	"github.com/jh-lang/jh/lang/scanner"
	"github.com/jh-lang/jh/lang/token"
)

// ParseFile reads and parses filename, returning the resulting Program. The
// error, if non-nil, is either the error from reading the file or a
// scanner.ErrorList.
func ParseFile(filename string) (*ast.Program, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseBytes(filename, src)
}

// ParseBytes parses src (already loaded from filename, used only for
// position reporting) and returns the resulting Program.
func ParseBytes(filename string, src []byte) (*ast.Program, error) {
	fset := token.NewFileSet()
	file := fset.AddFile(filename, -1, len(src))

	var p parser
	p.init(file, src)
	prog := p.parseProgram()
	p.errors.Sort()
	return prog, p.errors.Err()
}

type parser struct {
	scanner scanner.Scanner
	errors  scanner.ErrorList
	file    *token.File

	tok token.Token
	val string
	pos token.Pos
}

func (p *parser) init(file *token.File, src []byte) {
	p.file = file
	p.scanner.Init(file, src, p.errors.Add)
	p.next()
}

func (p *parser) next() {
	p.tok = p.scanner.Scan(&p.val)
	p.pos = p.scanner.TokPos()
}

func (p *parser) errorf(pos token.Pos, format string, args ...interface{}) {
	p.errors.Add(p.file.Position(pos), fmt.Sprintf(format, args...))
}

// expect consumes the current token if it matches tok, else records an error
// naming the offending token and its source position.
func (p *parser) expect(tok token.Token) token.Pos {
	pos := p.pos
	if p.tok != tok {
		p.errorf(p.pos, "expected %s, got %s %q", tok.GoString(), p.tok.GoString(), p.val)
		return pos
	}
	p.next()
	return pos
}

func (p *parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for p.tok == token.FN {
		prog.Functions = append(prog.Functions, p.parseFunction())
	}
	if p.tok != token.EOF {
		p.errorf(p.pos, "unexpected token %s %q at top level", p.tok.GoString(), p.val)
	}
	return prog
}

func (p *parser) parseFunction() *ast.Function {
	p.expect(token.FN)
	namePos := p.pos
	name := p.val
	p.expect(token.IDENT)

	fn := &ast.Function{NamePos: namePos, Name: name}

	p.expect(token.LPAREN)
	if p.tok != token.RPAREN {
		fn.Params = append(fn.Params, p.val)
		p.expect(token.IDENT)
		for p.tok == token.COMMA {
			p.next()
			fn.Params = append(fn.Params, p.val)
			p.expect(token.IDENT)
		}
	}
	p.expect(token.RPAREN)

	p.expect(token.LBRACE)
	fn.Body = p.parseBlock()
	p.expect(token.RBRACE)
	return fn
}

// parseBlock parses ";"-separated statements until a closing "}", the end
// of the file, or a statement that is not followed by ";".
func (p *parser) parseBlock() []ast.Stmt {
	var stmts []ast.Stmt
	for p.tok != token.RBRACE && p.tok != token.EOF {
		stmts = append(stmts, p.parseStmt())
		if p.tok == token.SEMI {
			p.next()
		} else {
			break
		}
	}
	return stmts
}

func (p *parser) parseStmt() ast.Stmt {
	switch p.tok {
	case token.RETURN:
		pos := p.pos
		p.next()
		return &ast.Return{ReturnPos: pos, X: p.parseExpr()}
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	default:
		return &ast.ExprStmt{X: p.parseExpr()}
	}
}

func (p *parser) parseIf() ast.Stmt {
	pos := p.pos
	p.expect(token.IF)
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)
	then := p.parseBlock()
	p.expect(token.RBRACE)

	if p.tok != token.ELSE {
		return &ast.If{IfPos: pos, Cond: cond, Then: then}
	}
	p.next()
	p.expect(token.LBRACE)
	els := p.parseBlock()
	p.expect(token.RBRACE)
	return &ast.IfElse{IfPos: pos, Cond: cond, Then: then, Else: els}
}

func (p *parser) parseFor() ast.Stmt {
	pos := p.pos
	p.expect(token.FOR)
	p.expect(token.LPAREN)
	init := p.parseExpr()
	p.expect(token.SEMI)
	cond := p.parseExpr()
	p.expect(token.SEMI)
	step := p.parseExpr()
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)
	body := p.parseBlock()
	p.expect(token.RBRACE)
	return &ast.For{ForPos: pos, Init: init, Cond: cond, Step: step, Body: body}
}

// parseExpr parses an assignment-or-lower expression:
//
//	name = expr | name.field = expr | Compare
func (p *parser) parseExpr() ast.Expr {
	left := p.parseCompare()

	switch v := left.(type) {
	case *ast.Var:
		if p.tok == token.EQ {
			p.next()
			return &ast.Assign{NamePos: v.NamePos, Name: v.Name, X: p.parseExpr()}
		}
	case *ast.FieldAccessor:
		if p.tok == token.EQ {
			p.next()
			return &ast.FieldSetter{Obj: v.Obj, Field: v.Field, X: p.parseExpr()}
		}
	}
	return left
}

func (p *parser) parseCompare() ast.Expr {
	x := p.parseAdditive()
	for p.tok == token.EQL || p.tok == token.NEQ || p.tok == token.LT {
		op, opPos := binOpFor(p.tok), p.pos
		p.next()
		y := p.parseAdditive()
		x = &ast.BinExpr{OpPos: opPos, Op: op, X: x, Y: y}
	}
	return x
}

func (p *parser) parseAdditive() ast.Expr {
	x := p.parsePrimary()
	for p.tok == token.PLUS || p.tok == token.MINUS {
		op, opPos := binOpFor(p.tok), p.pos
		p.next()
		y := p.parsePrimary()
		x = &ast.BinExpr{OpPos: opPos, Op: op, X: x, Y: y}
	}
	return x
}

func binOpFor(tok token.Token) ast.BinOp {
	switch tok {
	case token.PLUS:
		return ast.OpAdd
	case token.MINUS:
		return ast.OpSub
	case token.EQL:
		return ast.OpEq
	case token.NEQ:
		return ast.OpNeq
	case token.LT:
		return ast.OpLt
	}
	panic("unreachable")
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.tok {
	case token.INT:
		pos, lit := p.pos, p.val
		p.next()
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			p.errorf(pos, "invalid integer literal %q: %s", lit, err)
		}
		return &ast.Number{NumPos: pos, Value: n}

	case token.LPAREN:
		p.next()
		x := p.parseExpr()
		p.expect(token.RPAREN)
		return x

	case token.OBJECT:
		pos := p.pos
		p.next()
		p.expect(token.LPAREN)
		p.expect(token.RPAREN)
		return &ast.Obj{ObjPos: pos}

	case token.IDENT:
		pos, name := p.pos, p.val
		p.next()

		switch p.tok {
		case token.LPAREN:
			p.next()
			var args []ast.Expr
			if p.tok != token.RPAREN {
				args = append(args, p.parseExpr())
				for p.tok == token.COMMA {
					p.next()
					args = append(args, p.parseExpr())
				}
			}
			p.expect(token.RPAREN)
			return &ast.Call{NamePos: pos, Name: name, Args: args}

		case token.DOT:
			p.next()
			field := p.val
			p.expect(token.IDENT)
			return &ast.FieldAccessor{Obj: &ast.Var{NamePos: pos, Name: name}, Field: field}

		default:
			return &ast.Var{NamePos: pos, Name: name}
		}

	default:
		pos := p.pos
		p.errorf(pos, "unexpected token %s %q in expression", p.tok.GoString(), p.val)
		p.next()
		return &ast.Number{NumPos: pos, Value: 0}
	}
}
