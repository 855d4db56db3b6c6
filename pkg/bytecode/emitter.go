package bytecode

import (
	"fmt"
	"math"

	"github.com/daimatz/jweave/pkg/classfile"
)

// Wrapper describes the box class of a primitive type.
type Wrapper struct {
	Class  string // internal name, e.g. java/lang/Integer
	Unwrap string // accessor, e.g. intValue
}

var wrappers = map[string]Wrapper{
	"Z": {"java/lang/Boolean", "booleanValue"},
	"B": {"java/lang/Byte", "byteValue"},
	"C": {"java/lang/Character", "charValue"},
	"S": {"java/lang/Short", "shortValue"},
	"I": {"java/lang/Integer", "intValue"},
	"J": {"java/lang/Long", "longValue"},
	"F": {"java/lang/Float", "floatValue"},
	"D": {"java/lang/Double", "doubleValue"},
}

// WrapperOf returns the box class of a primitive field type.
func WrapperOf(fieldType string) (Wrapper, bool) {
	w, ok := wrappers[fieldType]
	return w, ok
}

// Emitter appends instructions to a body, interning constants in pool and
// tracking the operand stack depth and local slots it uses.
type Emitter struct {
	body  *Body
	pool  *classfile.Pool
	depth int
	max   int
	err   error
}

// NewEmitter returns an emitter that appends to body.
func NewEmitter(body *Body, pool *classfile.Pool) *Emitter {
	return &Emitter{body: body, pool: pool}
}

// Body returns the body being emitted into.
func (e *Emitter) Body() *Body { return e.body }

// Depth returns the current operand stack depth.
func (e *Emitter) Depth() int { return e.depth }

// Enter starts a block reached with depth operands on the stack, such as an
// exception handler, which is entered with the thrown object.
func (e *Emitter) Enter(depth int) {
	e.depth = depth
	if e.depth > e.max {
		e.max = e.depth
	}
}

func (e *Emitter) emit(ins *Instruction, pop, push int) *Instruction {
	e.depth -= pop
	if e.depth < 0 && e.err == nil {
		e.err = fmt.Errorf("%s pops from an empty stack", Mnemonic(ins.Opcode))
	}
	e.depth += push
	if e.depth > e.max {
		e.max = e.depth
	}
	e.body.Append(ins)
	return ins
}

func (e *Emitter) useLocal(slot uint16, size int) {
	if n := int(slot) + size; n > int(e.body.MaxLocals) {
		e.body.MaxLocals = uint16(n)
	}
}

// Op emits an operand-less instruction with the given stack effect.
func (e *Emitter) Op(op byte, pop, push int) *Instruction {
	return e.emit(NewInstruction(op), pop, push)
}

// Load pushes the local at slot, choosing the opcode from the field type.
func (e *Emitter) Load(fieldType string, slot uint16) *Instruction {
	size := classfile.SlotSize(fieldType)
	e.useLocal(slot, size)
	return e.emit(localInstruction(loadBase(fieldType), slot), 0, size)
}

// Store pops into the local at slot.
func (e *Emitter) Store(fieldType string, slot uint16) *Instruction {
	size := classfile.SlotSize(fieldType)
	e.useLocal(slot, size)
	return e.emit(localInstruction(loadBase(fieldType)+OpIstore-OpIload, slot), size, 0)
}

// This pushes the receiver.
func (e *Emitter) This() *Instruction {
	return e.Load("Ljava/lang/Object;", 0)
}

func loadBase(fieldType string) byte {
	switch fieldType {
	case "J":
		return OpLload
	case "F":
		return OpFload
	case "D":
		return OpDload
	}
	if classfile.IsReference(fieldType) {
		return OpAload
	}
	return OpIload
}

func localInstruction(base byte, slot uint16) *Instruction {
	if slot <= 3 {
		// xload_<n> and xstore_<n> follow their base opcodes in the same type order.
		if base >= OpIstore {
			return NewInstruction(OpIstore0 + (base-OpIstore)*4 + byte(slot))
		}
		return NewInstruction(OpIload0 + (base-OpIload)*4 + byte(slot))
	}
	return &Instruction{Opcode: base, Index: slot, Wide: slot > math.MaxUint8}
}

// Int pushes an int constant using the shortest encoding.
func (e *Emitter) Int(v int32) *Instruction {
	switch {
	case v >= -1 && v <= 5:
		return e.emit(NewInstruction(byte(int32(OpIconst0)+v)), 0, 1)
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return e.emit(&Instruction{Opcode: OpBipush, Value: v}, 0, 1)
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return e.emit(&Instruction{Opcode: OpSipush, Value: v}, 0, 1)
	}
	return e.ldc(e.pool.AddInteger(v))
}

// String pushes a string constant.
func (e *Emitter) String(s string) *Instruction {
	return e.ldc(e.pool.AddString(s))
}

func (e *Emitter) ldc(index uint16) *Instruction {
	if index <= math.MaxUint8 {
		return e.emit(&Instruction{Opcode: OpLdc, Index: index}, 0, 1)
	}
	return e.emit(&Instruction{Opcode: OpLdcW, Index: index}, 0, 1)
}

// Null pushes null.
func (e *Emitter) Null() *Instruction {
	return e.emit(NewInstruction(OpAconstNull), 0, 1)
}

// DefaultValue pushes the zero value of a field type; nothing for V.
func (e *Emitter) DefaultValue(fieldType string) *Instruction {
	switch fieldType {
	case "V":
		return nil
	case "J":
		return e.emit(NewInstruction(OpLconst0), 0, 2)
	case "F":
		return e.emit(NewInstruction(OpFconst0), 0, 1)
	case "D":
		return e.emit(NewInstruction(OpDconst0), 0, 2)
	}
	if classfile.IsReference(fieldType) {
		return e.Null()
	}
	return e.emit(NewInstruction(OpIconst0), 0, 1)
}

// New allocates an instance of class.
func (e *Emitter) New(class string) *Instruction {
	return e.emit(&Instruction{Opcode: OpNew, Index: e.pool.AddClass(class)}, 0, 1)
}

// Dup duplicates the top single-slot value.
func (e *Emitter) Dup() *Instruction {
	return e.emit(NewInstruction(OpDup), 1, 2)
}

// Pop discards a value of the given field type.
func (e *Emitter) Pop(fieldType string) *Instruction {
	switch classfile.SlotSize(fieldType) {
	case 0:
		return nil
	case 2:
		return e.emit(NewInstruction(OpPop2), 2, 0)
	}
	return e.emit(NewInstruction(OpPop), 1, 0)
}

// ANewArray pops a length and pushes a new reference array.
func (e *Emitter) ANewArray(class string) *Instruction {
	return e.emit(&Instruction{Opcode: OpAnewarray, Index: e.pool.AddClass(class)}, 1, 1)
}

// ArrayStore emits aastore.
func (e *Emitter) ArrayStore() *Instruction {
	return e.emit(NewInstruction(OpAastore), 3, 0)
}

// ArrayLoad emits aaload.
func (e *Emitter) ArrayLoad() *Instruction {
	return e.emit(NewInstruction(OpAaload), 2, 1)
}

// CheckCast emits checkcast for a class or array type. Casts to
// java/lang/Object are omitted.
func (e *Emitter) CheckCast(class string) *Instruction {
	if class == "java/lang/Object" {
		return nil
	}
	return e.emit(&Instruction{Opcode: OpCheckcast, Index: e.pool.AddClass(class)}, 1, 1)
}

// Invoke emits invokevirtual, invokespecial, invokestatic or
// invokeinterface on owner.name:descriptor.
func (e *Emitter) Invoke(op byte, owner, name, descriptor string) *Instruction {
	md, err := classfile.ParseMethodDescriptor(descriptor)
	if err != nil {
		if e.err == nil {
			e.err = err
		}
		return nil
	}
	pop := md.ArgSlots()
	if op != OpInvokestatic {
		pop++
	}
	push := classfile.SlotSize(md.Return)

	ins := &Instruction{Opcode: op}
	switch op {
	case OpInvokeinterface:
		ins.Index = e.pool.AddInterfaceMethodref(owner, name, descriptor)
		ins.Value = int32(pop)
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic:
		ins.Index = e.pool.AddMethodref(owner, name, descriptor)
	default:
		if e.err == nil {
			e.err = fmt.Errorf("%s is not an invoke instruction", Mnemonic(op))
		}
		return nil
	}
	return e.emit(ins, pop, push)
}

// GetField emits getfield.
func (e *Emitter) GetField(owner, name, descriptor string) *Instruction {
	idx := e.pool.AddFieldref(owner, name, descriptor)
	return e.emit(&Instruction{Opcode: OpGetfield, Index: idx}, 1, classfile.SlotSize(descriptor))
}

// PutField emits putfield.
func (e *Emitter) PutField(owner, name, descriptor string) *Instruction {
	idx := e.pool.AddFieldref(owner, name, descriptor)
	return e.emit(&Instruction{Opcode: OpPutfield, Index: idx}, 1+classfile.SlotSize(descriptor), 0)
}

// GetStatic emits getstatic.
func (e *Emitter) GetStatic(owner, name, descriptor string) *Instruction {
	idx := e.pool.AddFieldref(owner, name, descriptor)
	return e.emit(&Instruction{Opcode: OpGetstatic, Index: idx}, 0, classfile.SlotSize(descriptor))
}

// PutStatic emits putstatic.
func (e *Emitter) PutStatic(owner, name, descriptor string) *Instruction {
	idx := e.pool.AddFieldref(owner, name, descriptor)
	return e.emit(&Instruction{Opcode: OpPutstatic, Index: idx}, classfile.SlotSize(descriptor), 0)
}

// Box converts the primitive on top of the stack to its wrapper object.
// References are left untouched.
func (e *Emitter) Box(fieldType string) *Instruction {
	w, ok := wrappers[fieldType]
	if !ok {
		return nil
	}
	return e.Invoke(OpInvokestatic, w.Class, "valueOf", "("+fieldType+")"+classfile.ObjectType(w.Class))
}

// Unbox converts the object on top of the stack to fieldType: primitives
// are cast to their wrapper and unwrapped, references are cast.
func (e *Emitter) Unbox(fieldType string) *Instruction {
	if w, ok := wrappers[fieldType]; ok {
		e.CheckCast(w.Class)
		return e.Invoke(OpInvokevirtual, w.Class, w.Unwrap, "()"+fieldType)
	}
	if len(fieldType) > 2 && fieldType[0] == 'L' {
		return e.CheckCast(fieldType[1 : len(fieldType)-1])
	}
	return e.CheckCast(fieldType)
}

// Return emits the return instruction for a method returning fieldType.
func (e *Emitter) Return(fieldType string) *Instruction {
	switch fieldType {
	case "V":
		return e.emit(NewInstruction(OpReturn), 0, 0)
	case "J":
		return e.emit(NewInstruction(OpLreturn), 2, 0)
	case "F":
		return e.emit(NewInstruction(OpFreturn), 1, 0)
	case "D":
		return e.emit(NewInstruction(OpDreturn), 2, 0)
	}
	if classfile.IsReference(fieldType) {
		return e.emit(NewInstruction(OpAreturn), 1, 0)
	}
	return e.emit(NewInstruction(OpIreturn), 1, 0)
}

// Finish records the maximum stack depth in the body and reports the first
// error encountered while emitting.
func (e *Emitter) Finish() error {
	if e.err != nil {
		return e.err
	}
	if e.max > math.MaxUint16 {
		return fmt.Errorf("operand stack depth %d overflows", e.max)
	}
	if uint16(e.max) > e.body.MaxStack {
		e.body.MaxStack = uint16(e.max)
	}
	return nil
}
