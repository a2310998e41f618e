package compiler_test

import (
	"bytes"
	"testing"

	"github.com/jh-lang/jh/lang/compiler"
	"github.com/jh-lang/jh/lang/parser"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, src string) *compiler.Program {
	t.Helper()
	prog, err := parser.ParseBytes("t.jh", []byte(src))
	require.NoError(t, err)
	p, err := compiler.Compile(prog)
	require.NoError(t, err)
	return p
}

func TestCompileMainIsEntryZero(t *testing.T) {
	p := mustCompile(t, `fn hello(var){ return 50 + var } fn main(){ return hello(5) }`)
	fe, ok := p.FuncAt(0)
	require.True(t, ok)
	require.Equal(t, 0, fe.Entry)
}

func TestCompileSlotDensity(t *testing.T) {
	// The highest slot referenced by VAR in a function is strictly less than
	// its function-table local count.
	p := mustCompile(t, `fn main(){ y=5; z=20; x = y = z+10; x = x+y; return x }`)
	fe, ok := p.FuncAt(0)
	require.True(t, ok)

	maxSlot := -1
	for _, in := range p.Code[fe.Entry:] {
		if in.Op == compiler.VAR && int(in.IntArg) > maxSlot {
			maxSlot = int(in.IntArg)
		}
		if in.Op == compiler.RET {
			break
		}
	}
	require.Less(t, maxSlot, fe.NumLocals)
	require.Equal(t, 3, fe.NumLocals) // y, z, x
}

func TestCompileLabelClosure(t *testing.T) {
	// After resolution every jump/call operand is a valid instruction index.
	p := mustCompile(t, `fn main(){ x=10; for(i=0; i<100; i=i+1){ x=x+1 }; return x }`)
	for _, in := range p.Code {
		if compiler.IsJump(in.Op) {
			require.GreaterOrEqual(t, in.IntArg, int64(0))
			require.Less(t, in.IntArg, int64(len(p.Code)))
		}
	}
}

func TestCompileCallArgcAndReverseArgs(t *testing.T) {
	p := mustCompile(t, `fn main(){ return b(1,2) } fn b(x,y){ return 0 }`)
	fe, ok := p.FuncAt(0)
	require.True(t, ok)

	code := p.Code[fe.Entry:]
	var sawArgcThenCall bool
	for i, in := range code {
		if in.Op == compiler.CALL && i > 0 {
			prev := code[i-1]
			require.Equal(t, compiler.CONST_INT, prev.Op)
			require.Equal(t, int64(2), prev.IntArg)
			// b(1,2) pushes its arguments in reverse source order: 2, then 1.
			require.GreaterOrEqual(t, i, 3)
			require.Equal(t, compiler.Instr{Op: compiler.CONST_INT, IntArg: 2}, code[i-3])
			require.Equal(t, compiler.Instr{Op: compiler.CONST_INT, IntArg: 1}, code[i-2])
			sawArgcThenCall = true
		}
	}
	require.True(t, sawArgcThenCall)
}

func TestCompileUndefinedFunction(t *testing.T) {
	prog, err := parser.ParseBytes("t.jh", []byte(`fn main(){ return nope() }`))
	require.NoError(t, err)
	_, err = compiler.Compile(prog)
	require.Error(t, err)
}

func TestCompileMissingMain(t *testing.T) {
	prog, err := parser.ParseBytes("t.jh", []byte(`fn helper(){ return 1 }`))
	require.NoError(t, err)
	_, err = compiler.Compile(prog)
	require.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := mustCompile(t, `fn main(){ x=object(); x.hello=5; return x.hello }`)

	var buf bytes.Buffer
	require.NoError(t, compiler.Encode(&buf, p))

	decoded, err := compiler.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, p.Code, decoded.Code)

	// Decode does not reconstruct FuncEntry.Name (it is a debug-only field,
	// not part of the wire format); compare the rest.
	require.Len(t, decoded.Functions, len(p.Functions))
	for _, fe := range p.Functions {
		got, ok := decoded.FuncAt(fe.Entry)
		require.True(t, ok)
		require.Equal(t, fe.NumLocals, got.NumLocals)
	}
}

func TestDisassembleDoesNotError(t *testing.T) {
	p := mustCompile(t, `fn main(){ if(1==2){x=1} else {x=2}; return x }`)
	var buf bytes.Buffer
	require.NoError(t, compiler.Disassemble(&buf, p))
	require.Contains(t, buf.String(), "main:")
	require.Contains(t, buf.String(), "RET")
}
