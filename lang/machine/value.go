// Package machine implements the stack-based interpreter for compiled JH
// programs: the value model, object/hidden-class map, call frames, and the
// fetch-decode-dispatch loop. Grounded on the teacher's lang/machine package
// (Thread, Frame, Map), generalized to a much smaller closed value set: a
// plain sum type with a dispatch over variants instead of a class hierarchy.
package machine

import "fmt"

// Value is the runtime representation of every quantity the VM manipulates.
// The set is closed: Int, Bool, Ref, an internal string literal used only by
// CONST_STR, and an internal frame marker used only by CALL/RET bookkeeping.
// User programs never observe the last two.
type Value interface {
	fmt.Stringer
	valueKind() string
}

// Int is a signed machine-width integer.
type Int int64

func (v Int) String() string   { return fmt.Sprintf("%d", int64(v)) }
func (Int) valueKind() string  { return "int" }

// Bool is true/false, produced by EQ/NEQ/LT.
type Bool bool

func (v Bool) String() string  { return fmt.Sprintf("%t", bool(v)) }
func (Bool) valueKind() string { return "bool" }

// Ref is an index into the Machine's heap.
type Ref int

func (v Ref) String() string  { return fmt.Sprintf("ref(%d)", int(v)) }
func (Ref) valueKind() string { return "ref" }

// strLit is the value produced by CONST_STR, an interned field-name token
// never observable to user code. No compiled JH program emits CONST_STR
// today, but the opcode and its value variant are part of the closed set, so
// the interpreter implements it.
type strLit string

func (v strLit) String() string  { return string(v) }
func (strLit) valueKind() string { return "strlit" }

// frameMarker is pushed onto the caller's operand stack by CALL, occupying
// the slot that held the args/argc until the callee's RET replaces it with
// the returned value. It carries no payload -- nothing ever reads it back,
// its sole purpose is to balance the stack-effect accounting while the
// callee runs.
type frameMarker struct{}

var theFrameMarker = frameMarker{}

func (frameMarker) String() string    { return "<frame>" }
func (frameMarker) valueKind() string { return "frame" }

func typeName(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.valueKind()
}
