package compiler

import (
	"fmt"

	"github.com/jh-lang/jh/lang/ast"
)

// localTable assigns dense, insertion-ordered slot numbers to identifiers
// within a single function: on miss it appends and the new slot number is
// returned. Grounded on the same insertion-order scope technique the
// teacher's resolver package uses, collapsed to a single Local kind since JH
// has no closures or globals.
type localTable struct {
	order []string
	index map[string]int
}

func newLocalTable() *localTable {
	return &localTable{index: make(map[string]int)}
}

func (t *localTable) slot(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	i := len(t.order)
	t.order = append(t.order, name)
	t.index[name] = i
	return i
}

func (t *localTable) size() int { return len(t.order) }

// generator accumulates the resolved instruction stream for an entire
// program. Labels are emitted as positions recorded at the time of
// definition (they occupy no slot in code); jump/call sites record a pending
// (index, label) pair patched in a single resolution pass, the same
// two-pass strategy as original_source/jhvm/genast.py's
// GeneratorContext.emit_label / _replace_labels.
type generator struct {
	code     []Instr
	labelPos map[string]int
	pending  []pendingJump
	labelSeq int
}

type pendingJump struct {
	index int
	label string
}

func newGenerator() *generator {
	return &generator{labelPos: make(map[string]int)}
}

func (g *generator) newLabel(prefix string) string {
	g.labelSeq++
	return fmt.Sprintf("%s$%d", prefix, g.labelSeq)
}

func (g *generator) defineLabel(name string) {
	g.labelPos[name] = len(g.code)
}

func (g *generator) emit(in Instr) int {
	g.code = append(g.code, in)
	return len(g.code) - 1
}

func (g *generator) emitOp(op Opcode) {
	g.emit(Instr{Op: op})
}

func (g *generator) emitInt(op Opcode, n int64) {
	g.emit(Instr{Op: op, IntArg: n})
}

func (g *generator) emitStr(op Opcode, s string) {
	g.emit(Instr{Op: op, StrArg: s})
}

// emitJumpTo emits a jump/call instruction whose integer operand targets a
// not-yet-resolved label, recording it for the resolution pass.
func (g *generator) emitJumpTo(op Opcode, label string) {
	idx := g.emit(Instr{Op: op})
	g.pending = append(g.pending, pendingJump{index: idx, label: label})
}

func (g *generator) resolve() error {
	for _, pj := range g.pending {
		pos, ok := g.labelPos[pj.label]
		if !ok {
			return fmt.Errorf("compiler: internal error: unresolved label %q", pj.label)
		}
		g.code[pj.index].IntArg = int64(pos)
	}
	return nil
}

// funcLabel names the entry label of the function called name: a Call lowers
// to CALL name, where name is a label resolved to the callee's entry index.
func funcLabel(name string) string { return "fn$" + name }

// Compile lowers prog into a resolved Program. main is compiled first so
// its entry lands at instruction index 0.
func Compile(prog *ast.Program) (*Program, error) {
	byName := make(map[string]*ast.Function, len(prog.Functions))
	var order []*ast.Function
	var main *ast.Function
	for _, fn := range prog.Functions {
		if _, dup := byName[fn.Name]; dup {
			return nil, fmt.Errorf("compiler: duplicate function %q", fn.Name)
		}
		byName[fn.Name] = fn
		if fn.Name == "main" {
			main = fn
			continue
		}
		order = append(order, fn)
	}
	if main == nil {
		return nil, fmt.Errorf("compiler: no function named \"main\"")
	}
	order = append([]*ast.Function{main}, order...)

	g := newGenerator()
	c := &funcCompiler{g: g, funcs: byName}

	var table []FuncEntry
	for _, fn := range order {
		entry, nlocals, err := c.compileFunction(fn)
		if err != nil {
			return nil, err
		}
		table = append(table, FuncEntry{Name: fn.Name, Entry: entry, NumLocals: nlocals})
	}

	// Defensive halt past the last function's code: the compiler never
	// lowers an AST node to EXIT, so this is the only EXIT in a compiled
	// program.
	g.emitOp(EXIT)

	if err := g.resolve(); err != nil {
		return nil, err
	}
	return &Program{Code: g.code, Functions: table}, nil
}

type funcCompiler struct {
	g      *generator
	funcs  map[string]*ast.Function
	locals *localTable
}

func (c *funcCompiler) compileFunction(fn *ast.Function) (entry int, nlocals int, err error) {
	c.locals = newLocalTable()
	for _, p := range fn.Params {
		c.locals.slot(p)
	}
	c.g.defineLabel(funcLabel(fn.Name))
	entry = len(c.g.code)
	for _, stmt := range fn.Body {
		if err := c.compileStmt(stmt); err != nil {
			return 0, 0, err
		}
	}
	return entry, c.locals.size(), nil
}

func (c *funcCompiler) compileStmt(s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.ExprStmt:
		return c.compileExpr(s.X)
	case *ast.Return:
		if err := c.compileExpr(s.X); err != nil {
			return err
		}
		c.g.emitOp(RET)
		return nil
	case *ast.If:
		return c.compileIf(s.Cond, s.Then, nil)
	case *ast.IfElse:
		return c.compileIf(s.Cond, s.Then, s.Else)
	case *ast.For:
		return c.compileFor(s)
	default:
		return fmt.Errorf("compiler: unhandled statement type %T", s)
	}
}

func (c *funcCompiler) compileIf(cond ast.Expr, then, els []ast.Stmt) error {
	if err := c.compileExpr(cond); err != nil {
		return err
	}
	if els == nil {
		lexit := c.g.newLabel("Lexit")
		c.g.emitJumpTo(JUMP_IF_FALSE, lexit)
		if err := c.compileBlock(then); err != nil {
			return err
		}
		c.g.defineLabel(lexit)
		return nil
	}

	lelse := c.g.newLabel("Lelse")
	lexit := c.g.newLabel("Lexit")
	c.g.emitJumpTo(JUMP_IF_FALSE, lelse)
	if err := c.compileBlock(then); err != nil {
		return err
	}
	c.g.emitJumpTo(JUMP, lexit)
	c.g.defineLabel(lelse)
	if err := c.compileBlock(els); err != nil {
		return err
	}
	c.g.defineLabel(lexit)
	return nil
}

// compileFor lowers `for (init; cond; step) { body }`. Init's pushed value
// is deliberately left on the stack -- chosen over inserting a corrective
// POP after init, since it matches the reference evaluator's own behavior
// rather than tidying up after it; this is intentional, not a bug.
func (c *funcCompiler) compileFor(s *ast.For) error {
	if err := c.compileExpr(s.Init); err != nil {
		return err
	}
	lhead := c.g.newLabel("Lhead")
	lexit := c.g.newLabel("Lexit")
	c.g.defineLabel(lhead)
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	c.g.emitJumpTo(JUMP_IF_FALSE, lexit)
	if err := c.compileBlock(s.Body); err != nil {
		return err
	}
	if err := c.compileExpr(s.Step); err != nil {
		return err
	}
	c.g.emitJumpTo(JUMP, lhead)
	c.g.defineLabel(lexit)
	return nil
}

func (c *funcCompiler) compileBlock(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *funcCompiler) compileExpr(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.Number:
		c.g.emitInt(CONST_INT, e.Value)
		return nil

	case *ast.Var:
		c.g.emitInt(VAR, int64(c.locals.slot(e.Name)))
		return nil

	case *ast.Assign:
		// Slot pushed first, then the value, so ASSIGN pops value-then-slot.
		c.g.emitInt(CONST_INT, int64(c.locals.slot(e.Name)))
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		if inner, ok := e.X.(*ast.Assign); ok {
			// ASSIGN leaves nothing on the stack, so in a chain such as
			// "x = y = z+10" the inner target is reloaded as this value.
			c.g.emitInt(VAR, int64(c.locals.slot(inner.Name)))
		}
		c.g.emitOp(ASSIGN)
		return nil

	case *ast.BinExpr:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		if err := c.compileExpr(e.Y); err != nil {
			return err
		}
		c.g.emitOp(binOpcode(e.Op))
		return nil

	case *ast.FieldAccessor:
		if err := c.compileExpr(e.Obj); err != nil {
			return err
		}
		c.g.emitStr(GET_FIELD, e.Field)
		return nil

	case *ast.FieldSetter:
		if err := c.compileExpr(e.Obj); err != nil {
			return err
		}
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.g.emitStr(SET_FIELD, e.Field)
		return nil

	case *ast.Obj:
		c.g.emitOp(NEW)
		return nil

	case *ast.Call:
		if _, ok := c.funcs[e.Name]; !ok {
			return fmt.Errorf("compiler: call to undefined function %q", e.Name)
		}
		for i := len(e.Args) - 1; i >= 0; i-- {
			if err := c.compileExpr(e.Args[i]); err != nil {
				return err
			}
		}
		c.g.emitInt(CONST_INT, int64(len(e.Args)))
		c.g.emitJumpTo(CALL, funcLabel(e.Name))
		return nil

	default:
		return fmt.Errorf("compiler: unhandled expression type %T", e)
	}
}

func binOpcode(op ast.BinOp) Opcode {
	switch op {
	case ast.OpAdd:
		return ADD
	case ast.OpSub:
		return SUB
	case ast.OpEq:
		return EQ
	case ast.OpNeq:
		return NEQ
	case ast.OpLt:
		return LT
	}
	panic("unreachable")
}
