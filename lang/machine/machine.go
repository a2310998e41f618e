package machine

import (
	"context"

	"github.com/jh-lang/jh/lang/compiler"
)

// Machine holds everything one execution of a compiled program needs: the
// bytecode, the monotonically-growing heap, and the active frame chain. It
// plays the role of the teacher's Thread, scaled to JH's much smaller
// surface (no modules, no predeclared globals, no builtins).
type Machine struct {
	// MaxSteps bounds the number of instructions executed before Run gives
	// up with a StepLimitError. Zero means unlimited. It never changes the
	// result of any program that terminates.
	MaxSteps int

	// MaxCallDepth bounds the depth of the Caller chain before Run gives up
	// with a CallDepthError. Zero means unlimited.
	MaxCallDepth int

	prog *compiler.Program
	heap []*object
}

// New returns a Machine ready to run prog.
func New(prog *compiler.Program) *Machine {
	return &Machine{prog: prog}
}

// Run executes the program starting at main (function table entry 0,
// guaranteed by the code generator) and returns its return value. ctx is
// checked periodically so a caller can cancel a runaway or
// misbehaving program (mirroring the teacher's Thread.ctx/cancelled check).
func (m *Machine) Run(ctx context.Context) (result Value, err error) {
	defer func() {
		// Defensive backstop only: every opcode handler below returns a typed
		// error rather than panicking, matching the teacher's impl.go
		// convention. This recover exists solely to turn a programmer bug
		// into an error instead of crashing an embedding caller.
		if r := recover(); r != nil {
			err = &TypeError{Op: "panic", PC: -1, Got: formatRecover(r)}
		}
	}()

	mainEntry, ok := m.prog.FuncAt(0)
	if !ok {
		return nil, &SlotError{PC: 0, Slot: 0, N: 0}
	}

	frame := newFrame(mainEntry.NumLocals, -1, nil)
	pc := mainEntry.Entry
	depth := 1
	steps := 0

	code := m.prog.Code
	for {
		if ctx.Err() != nil {
			return nil, &HaltError{Err: ctx.Err()}
		}
		if m.MaxSteps > 0 && steps >= m.MaxSteps {
			return nil, &StepLimitError{Steps: steps}
		}
		steps++

		if pc < 0 || pc >= len(code) {
			return nil, &OpcodeError{PC: pc, Op: 0xff}
		}
		in := code[pc]

		switch in.Op {
		case compiler.CONST_INT:
			if err := frame.push(Int(in.IntArg)); err != nil {
				return nil, err
			}
			pc++

		case compiler.CONST_STR:
			if err := frame.push(strLit(in.StrArg)); err != nil {
				return nil, err
			}
			pc++

		case compiler.POP:
			if _, err := frame.pop(); err != nil {
				return nil, err
			}
			pc++

		case compiler.DUP:
			v, err := frame.pop()
			if err != nil {
				return nil, err
			}
			if err := frame.push(v); err != nil {
				return nil, err
			}
			if err := frame.push(v); err != nil {
				return nil, err
			}
			pc++

		case compiler.SWAP:
			b, err := frame.pop()
			if err != nil {
				return nil, err
			}
			a, err := frame.pop()
			if err != nil {
				return nil, err
			}
			if err := frame.push(b); err != nil {
				return nil, err
			}
			if err := frame.push(a); err != nil {
				return nil, err
			}
			pc++

		case compiler.ADD, compiler.SUB, compiler.EQ, compiler.NEQ, compiler.LT:
			v, err := m.binOp(in.Op, frame, pc)
			if err != nil {
				return nil, err
			}
			if err := frame.push(v); err != nil {
				return nil, err
			}
			pc++

		case compiler.JUMP:
			pc = int(in.IntArg)

		case compiler.JUMP_IF_TRUE, compiler.JUMP_IF_FALSE:
			v, err := frame.pop()
			if err != nil {
				return nil, err
			}
			b, ok := v.(Bool)
			if !ok {
				return nil, &TypeError{Op: in.Op.String(), PC: pc, Got: typeName(v)}
			}
			want := in.Op == compiler.JUMP_IF_TRUE
			if bool(b) == want {
				pc = int(in.IntArg)
			} else {
				pc++
			}

		case compiler.NEW:
			ref := Ref(len(m.heap))
			m.heap = append(m.heap, newObject())
			if err := frame.push(ref); err != nil {
				return nil, err
			}
			pc++

		case compiler.GET_FIELD:
			v, err := frame.pop()
			if err != nil {
				return nil, err
			}
			obj, err := m.deref(v, in.Op.String(), pc)
			if err != nil {
				return nil, err
			}
			fv, ok := obj.get(in.StrArg)
			if !ok {
				return nil, &FieldError{PC: pc, Field: in.StrArg}
			}
			if err := frame.push(fv); err != nil {
				return nil, err
			}
			pc++

		case compiler.SET_FIELD:
			val, err := frame.pop()
			if err != nil {
				return nil, err
			}
			ref, err := frame.pop()
			if err != nil {
				return nil, err
			}
			obj, err := m.deref(ref, in.Op.String(), pc)
			if err != nil {
				return nil, err
			}
			obj.set(in.StrArg, val)
			pc++

		case compiler.VAR:
			slot := int(in.IntArg)
			if slot < 0 || slot >= len(frame.Locals) {
				return nil, &SlotError{PC: pc, Slot: slot, N: len(frame.Locals)}
			}
			if err := frame.push(frame.Locals[slot]); err != nil {
				return nil, err
			}
			pc++

		case compiler.ASSIGN:
			val, err := frame.pop()
			if err != nil {
				return nil, err
			}
			slotVal, err := frame.pop()
			if err != nil {
				return nil, err
			}
			slotInt, ok := slotVal.(Int)
			if !ok {
				return nil, &TypeError{Op: "ASSIGN", PC: pc, Got: typeName(slotVal)}
			}
			slot := int(slotInt)
			if slot < 0 || slot >= len(frame.Locals) {
				return nil, &SlotError{PC: pc, Slot: slot, N: len(frame.Locals)}
			}
			frame.Locals[slot] = val
			pc++

		case compiler.CALL:
			newFrame, targetPC, err := m.call(frame, in, pc)
			if err != nil {
				return nil, err
			}
			depth++
			if m.MaxCallDepth > 0 && depth > m.MaxCallDepth {
				return nil, &CallDepthError{Depth: depth}
			}
			frame = newFrame
			pc = targetPC

		case compiler.RET:
			retVal, err := frame.pop()
			if err != nil {
				return nil, err
			}
			caller := frame.Caller
			if caller == nil {
				return retVal, nil
			}
			if err := caller.setTop(retVal); err != nil {
				return nil, err
			}
			pc = frame.ReturnAddress
			frame = caller
			depth--

		case compiler.EXIT:
			if frame.sp > 0 {
				return frame.stack[frame.sp-1], nil
			}
			return Int(0), nil

		default:
			return nil, &OpcodeError{PC: pc, Op: byte(in.Op)}
		}
	}
}

// call implements CALL's semantics against the current frame, returning the
// newly created callee frame and the instruction index
// execution should resume at -- the callee's entry point, not a return
// address (the callee's own ReturnAddress field carries that).
func (m *Machine) call(frame *Frame, in compiler.Instr, pc int) (*Frame, int, error) {
	argcVal, err := frame.pop()
	if err != nil {
		return nil, 0, err
	}
	argcInt, ok := argcVal.(Int)
	if !ok {
		return nil, 0, &TypeError{Op: "CALL", PC: pc, Got: typeName(argcVal)}
	}
	argc := int(argcInt)

	target := int(in.IntArg)
	fe, ok := m.prog.FuncAt(target)
	if !ok {
		return nil, 0, &SlotError{PC: pc, Slot: target, N: len(m.prog.Code)}
	}

	args := make([]Value, argc)
	for i := 0; i < argc; i++ {
		v, err := frame.pop()
		if err != nil {
			return nil, 0, err
		}
		args[i] = v
	}

	newFrame := newFrame(fe.NumLocals, pc+1, frame)
	copy(newFrame.Locals, args)

	if err := frame.push(theFrameMarker); err != nil {
		return nil, 0, err
	}
	return newFrame, fe.Entry, nil
}

func (m *Machine) binOp(op compiler.Opcode, frame *Frame, pc int) (Value, error) {
	yv, err := frame.pop()
	if err != nil {
		return nil, err
	}
	xv, err := frame.pop()
	if err != nil {
		return nil, err
	}
	x, xok := xv.(Int)
	y, yok := yv.(Int)
	if !xok || !yok {
		bad := typeName(xv)
		if xok {
			bad = typeName(yv)
		}
		return nil, &TypeError{Op: op.String(), PC: pc, Got: bad}
	}
	switch op {
	case compiler.ADD:
		return x + y, nil
	case compiler.SUB:
		return x - y, nil
	case compiler.EQ:
		return Bool(x == y), nil
	case compiler.NEQ:
		return Bool(x != y), nil
	case compiler.LT:
		return Bool(x < y), nil
	default:
		return nil, &OpcodeError{PC: pc, Op: byte(op)}
	}
}

func (m *Machine) deref(v Value, op string, pc int) (*object, error) {
	ref, ok := v.(Ref)
	if !ok {
		return nil, &TypeError{Op: op, PC: pc, Got: typeName(v)}
	}
	if int(ref) < 0 || int(ref) >= len(m.heap) {
		return nil, &TypeError{Op: op, PC: pc, Got: "out-of-range ref"}
	}
	return m.heap[ref], nil
}

func formatRecover(r interface{}) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return "panic"
}
