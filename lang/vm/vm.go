// Package vm implements the stack-machine virtual machine described in
// §4.8: a fetch-decode-execute loop over a bytecode.Module's opcode
// buffer, a fixed-capacity value stack, and the CALL/RET frame protocol
// built on the slot-0-holds-CallState convention.
//
// The function-frame prologue is two catalogued opcodes, bytecode.PROC
// (argument count) and bytecode.RSV (stack-growth reservation), rather
// than raw unclassified bytes — see lang/bytecode's doc comment on those
// two opcodes. A CALL or an entry-point dispatch always lands on a PROC
// instruction and reads both halves through readPrologue; PROC and RSV
// never appear in the main dispatch switch because ordinary sequential
// execution never steps onto a prologue from inside a function body.
package vm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arcbyte/let/lang/bytecode"
)

// VM holds the mutable execution state for one run of a linked module.
type VM struct {
	Module *bytecode.Module
	cfg    RunConfig

	stack  []Value
	sp     int
	locals uint64
	pc     uint64
	steps  uint64
}

// New returns a VM ready to Run module under cfg.
func New(module *bytecode.Module, cfg RunConfig) *VM {
	return &VM{Module: module, cfg: cfg}
}

// Run executes module starting at the entry label (conventionally
// "__ctor__") and returns the value left on top of the stack when the
// outermost frame's RET halts the machine.
func (vm *VM) Run(entry string) (Value, error) {
	addr, ok := vm.Module.Labels[entry]
	if !ok {
		return nil, &UndefinedSymbolError{Name: entry}
	}

	vm.stack = make([]Value, vm.cfg.StackCapacity)
	// Slot 0 is reserved for a halt sentinel so the RET "locals == 0 means
	// halt" check never collides with a genuine call-frame cell 0 reusing
	// the same address — a real nested call's cell can legitimately fall
	// at absolute index 0 if the reservation below didn't occupy it first.
	vm.stack[0] = CallState{}
	vm.sp = 1
	vm.locals = 0

	newPC, reserve, err := vm.readPrologue(addr, 0)
	if err != nil {
		return nil, err
	}
	if err := vm.growStack(int(reserve)); err != nil {
		return nil, err
	}
	vm.pc = newPC
	return vm.loop()
}

func (vm *VM) code() []byte { return vm.Module.Opcodes }

func (vm *VM) push(v Value) error {
	if vm.sp >= len(vm.stack) {
		return &StackOverflow{PC: vm.pc, Capacity: len(vm.stack)}
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop(opName string, n int) (Value, error) {
	if vm.sp < n {
		return nil, &StackUnderflow{PC: vm.pc, Op: opName, Needed: n, Have: vm.sp}
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}

func (vm *VM) growStack(n int) error {
	if vm.sp+n > len(vm.stack) {
		return &StackOverflow{PC: vm.pc, Capacity: len(vm.stack)}
	}
	vm.sp += n
	return nil
}

// fetchOperand reads a big-endian operand of the given width (1, 3 or 8)
// starting at pc, bounds-checked against the opcode buffer.
func (vm *VM) fetchOperand(pc uint64, width int) (uint64, error) {
	code := vm.code()
	if pc+uint64(width) > uint64(len(code)) {
		return 0, &FetchOpcodeError{PC: pc, Len: len(code)}
	}
	switch width {
	case 0:
		return 0, nil
	case 1:
		return uint64(code[pc]), nil
	case 3:
		return uint64(code[pc])<<16 | uint64(code[pc+1])<<8 | uint64(code[pc+2]), nil
	case 8:
		return binary.BigEndian.Uint64(code[pc : pc+8]), nil
	default:
		return 0, fmt.Errorf("vm: unsupported operand width %d", width)
	}
}

// readPrologue reads the PROC/RSV pair at pc (the address a CALL jumped
// to, or the entry label), verifies the declared argument count matches
// wantArgc, and returns the address of the first instruction of the
// function body plus the local-slot reservation to grow the stack by.
func (vm *VM) readPrologue(pc uint64, wantArgc int) (newPC uint64, reserve uint32, err error) {
	code := vm.code()
	if pc+2 > uint64(len(code)) {
		return 0, 0, &FetchOpcodeError{PC: pc, Len: len(code)}
	}
	if bytecode.Opcode(code[pc]) != bytecode.PROC {
		return 0, 0, fmt.Errorf("vm: expected PROC prologue at pc=%d, found %s", pc, bytecode.Opcode(code[pc]))
	}
	argc := int(code[pc+1])
	if argc != wantArgc {
		return 0, 0, &ArityError{PC: pc, Target: pc, Want: wantArgc, Got: argc}
	}

	rsvPC := pc + 2
	if rsvPC+4 > uint64(len(code)) {
		return 0, 0, &FetchOpcodeError{PC: rsvPC, Len: len(code)}
	}
	if bytecode.Opcode(code[rsvPC]) != bytecode.RSV {
		return 0, 0, fmt.Errorf("vm: expected RSV after PROC at pc=%d, found %s", rsvPC, bytecode.Opcode(code[rsvPC]))
	}
	reserve = uint32(code[rsvPC+1])<<16 | uint32(code[rsvPC+2])<<8 | uint32(code[rsvPC+3])
	return rsvPC + 4, reserve, nil
}

// loop is the fetch-decode-execute dispatch described in §4.8: each case
// verifies its own stack pre-condition, performs the operation, and
// advances pc by its own instruction width.
func (vm *VM) loop() (Value, error) {
	for {
		if vm.cfg.MaxSteps > 0 && vm.steps >= vm.cfg.MaxSteps {
			return nil, &StepLimitError{Limit: vm.cfg.MaxSteps}
		}
		vm.steps++

		code := vm.code()
		if vm.pc >= uint64(len(code)) {
			return nil, &FetchOpcodeError{PC: vm.pc, Len: len(code)}
		}
		op := bytecode.Opcode(code[vm.pc])

		switch op {
		case bytecode.RET:
			v, err := vm.execRet()
			if err != nil {
				return nil, err
			}
			if v != nil {
				return v, nil
			}

		case bytecode.DROP:
			if _, err := vm.pop("DROP", 1); err != nil {
				return nil, err
			}
			vm.pc++

		case bytecode.VOID:
			if err := vm.push(Void{}); err != nil {
				return nil, err
			}
			vm.pc++

		case bytecode.LIST:
			if err := vm.push(NewList()); err != nil {
				return nil, err
			}
			vm.pc++

		case bytecode.LS, bytecode.GR, bytecode.EQ, bytecode.LE:
			if err := vm.execCompare(op); err != nil {
				return nil, err
			}
			vm.pc++

		case bytecode.ADD, bytecode.SUB, bytecode.MUL:
			if err := vm.execArithmetic(op); err != nil {
				return nil, err
			}
			vm.pc++

		case bytecode.LD1, bytecode.LD3, bytecode.LD8:
			if err := vm.execLoad(op); err != nil {
				return nil, err
			}

		case bytecode.STO1, bytecode.STO3, bytecode.STO8:
			if err := vm.execStore(op); err != nil {
				return nil, err
			}

		case bytecode.INT1, bytecode.INT3, bytecode.INT8:
			v, err := vm.fetchOperand(vm.pc+1, op.OperandWidth())
			if err != nil {
				return nil, err
			}
			if err := vm.push(Integer(int64(v))); err != nil {
				return nil, err
			}
			vm.pc += uint64(op.EncodedSize())

		case bytecode.REAL:
			v, err := vm.fetchOperand(vm.pc+1, 8)
			if err != nil {
				return nil, err
			}
			if err := vm.push(Real(math.Float64frombits(v))); err != nil {
				return nil, err
			}
			vm.pc += uint64(op.EncodedSize())

		case bytecode.PTR:
			addr, err := vm.fetchOperand(vm.pc+1, 8)
			if err != nil {
				return nil, err
			}
			if err := vm.push(Address(addr)); err != nil {
				return nil, err
			}
			vm.pc += uint64(op.EncodedSize())

		case bytecode.JP:
			addr, err := vm.fetchOperand(vm.pc+1, 8)
			if err != nil {
				return nil, err
			}
			vm.pc = addr

		case bytecode.JPF:
			cond, err := vm.pop("JPF", 1)
			if err != nil {
				return nil, err
			}
			b, ok := cond.(Boolean)
			if !ok {
				return nil, &TypeError{PC: vm.pc, Msg: fmt.Sprintf("JPF requires a boolean, got %s", cond.Type())}
			}
			if !b {
				addr, err := vm.fetchOperand(vm.pc+1, 8)
				if err != nil {
					return nil, err
				}
				vm.pc = addr
			} else {
				vm.pc += uint64(op.EncodedSize())
			}

		case bytecode.CALL:
			if err := vm.execCall(); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("vm: illegal opcode 0x%02X at pc=%d", byte(op), vm.pc)
		}
	}
}

// execRet returns a non-nil Value when the outermost frame halts, and nil
// (with a nil error) when it has merely unwound one call frame and the
// loop should keep running.
func (vm *VM) execRet() (Value, error) {
	if vm.locals == 0 {
		if vm.sp < 1 {
			return nil, &StackUnderflow{PC: vm.pc, Op: "RET", Needed: 1, Have: vm.sp}
		}
		return vm.stack[vm.sp-1], nil
	}

	result, err := vm.pop("RET", 1)
	if err != nil {
		return nil, err
	}
	cs, ok := vm.stack[vm.locals].(CallState)
	if !ok {
		return nil, &TypeError{PC: vm.pc, Msg: "return frame's slot 0 does not hold a call state"}
	}
	vm.sp = int(vm.locals)
	if err := vm.push(result); err != nil {
		return nil, err
	}
	vm.pc = cs.ReturnPC
	vm.locals = cs.SavedLocals
	return nil, nil
}

func (vm *VM) execCall() error {
	n, err := vm.fetchOperand(vm.pc+1, 1)
	if err != nil {
		return err
	}
	numArgs := int(n)
	returnPC := vm.pc + 2

	cell := vm.sp - numArgs - 1
	if cell < 0 {
		return &StackUnderflow{PC: vm.pc, Op: "CALL", Needed: numArgs + 1, Have: vm.sp}
	}
	target, ok := vm.stack[cell].(Address)
	if !ok {
		return &TypeError{PC: vm.pc, Msg: fmt.Sprintf("call target is not an address (got %s)", vm.stack[cell].Type())}
	}

	vm.stack[cell] = CallState{ReturnPC: returnPC, SavedLocals: vm.locals}
	vm.locals = uint64(cell)

	newPC, reserve, err := vm.readPrologue(uint64(target), numArgs)
	if err != nil {
		return err
	}
	if err := vm.growStack(int(reserve)); err != nil {
		return err
	}
	vm.pc = newPC
	return nil
}

func (vm *VM) execLoad(op bytecode.Opcode) error {
	slot, err := vm.fetchOperand(vm.pc+1, op.OperandWidth())
	if err != nil {
		return err
	}
	idx := vm.locals + slot
	if idx >= uint64(len(vm.stack)) {
		return &StackOverflow{PC: vm.pc, Capacity: len(vm.stack)}
	}
	if err := vm.push(vm.stack[idx]); err != nil {
		return err
	}
	vm.pc += uint64(op.EncodedSize())
	return nil
}

func (vm *VM) execStore(op bytecode.Opcode) error {
	slot, err := vm.fetchOperand(vm.pc+1, op.OperandWidth())
	if err != nil {
		return err
	}
	if vm.sp < 1 {
		return &StackUnderflow{PC: vm.pc, Op: "STO", Needed: 1, Have: vm.sp}
	}
	idx := vm.locals + slot
	if idx >= uint64(len(vm.stack)) {
		return &StackOverflow{PC: vm.pc, Capacity: len(vm.stack)}
	}
	vm.stack[idx] = vm.stack[vm.sp-1] // peek, not pop: let is an expression
	vm.pc += uint64(op.EncodedSize())
	return nil
}

func (vm *VM) execCompare(op bytecode.Opcode) error {
	y, err := vm.pop(op.String(), 2)
	if err != nil {
		return err
	}
	x, err := vm.pop(op.String(), 2)
	if err != nil {
		return err
	}
	var result bool
	switch xv := x.(type) {
	case Integer:
		yv, ok := y.(Integer)
		if !ok {
			return vm.compareTypeError(op, x, y)
		}
		result = compareOrdered(op, int64(xv), int64(yv))
	case Real:
		yv, ok := y.(Real)
		if !ok {
			return vm.compareTypeError(op, x, y)
		}
		result = compareOrdered(op, float64(xv), float64(yv))
	default:
		return vm.compareTypeError(op, x, y)
	}
	return vm.push(Boolean(result))
}

func (vm *VM) compareTypeError(op bytecode.Opcode, x, y Value) error {
	return &TypeError{PC: vm.pc, Msg: fmt.Sprintf("cannot compare %s and %s with %s", x.Type(), y.Type(), op)}
}

type ordered interface{ ~int64 | ~float64 }

func compareOrdered[T ordered](op bytecode.Opcode, x, y T) bool {
	switch op {
	case bytecode.LS:
		return x < y
	case bytecode.GR:
		return x > y
	case bytecode.EQ:
		return x == y
	case bytecode.LE:
		return x <= y
	default:
		return false
	}
}

func (vm *VM) execArithmetic(op bytecode.Opcode) error {
	y, err := vm.pop(op.String(), 2)
	if err != nil {
		return err
	}
	x, err := vm.pop(op.String(), 2)
	if err != nil {
		return err
	}

	if xl, ok := x.(*List); ok && op == bytecode.ADD {
		xl.Append(y)
		return vm.push(xl)
	}

	switch xv := x.(type) {
	case Integer:
		yv, ok := y.(Integer)
		if !ok {
			return vm.arithTypeError(op, x, y)
		}
		return vm.push(integerArith(op, xv, yv))
	case Real:
		yv, ok := y.(Real)
		if !ok {
			return vm.arithTypeError(op, x, y)
		}
		return vm.push(realArith(op, xv, yv))
	default:
		return vm.arithTypeError(op, x, y)
	}
}

func (vm *VM) arithTypeError(op bytecode.Opcode, x, y Value) error {
	return &TypeError{PC: vm.pc, Msg: fmt.Sprintf("cannot apply %s to %s and %s", op, x.Type(), y.Type())}
}

func integerArith(op bytecode.Opcode, x, y Integer) Integer {
	switch op {
	case bytecode.ADD:
		return x + y // wraps, per §4.8
	case bytecode.SUB:
		return x - y
	case bytecode.MUL:
		return x * y
	default:
		return 0
	}
}

func realArith(op bytecode.Opcode, x, y Real) Real {
	switch op {
	case bytecode.ADD:
		return x + y
	case bytecode.SUB:
		return x - y
	case bytecode.MUL:
		return x * y
	default:
		return 0
	}
}
