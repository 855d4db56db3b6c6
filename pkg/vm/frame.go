package vm

import (
	"fmt"
	"math"
)

// ValueType represents the type of a Value on the stack or in local variables.
type ValueType int

const (
	TypeInt ValueType = iota
	TypeLong
	TypeFloat
	TypeDouble
	TypeRef
	TypeNull
)

// Value represents a value on the operand stack or in local variables.
// Long and double values occupy a single stack entry and two local slots.
type Value struct {
	Type   ValueType
	Int    int32
	Long   int64
	Float  float32
	Double float64
	Ref    any
}

// IntValue creates an integer Value.
func IntValue(v int32) Value {
	return Value{Type: TypeInt, Int: v}
}

// LongValue creates a long Value.
func LongValue(v int64) Value {
	return Value{Type: TypeLong, Long: v}
}

// FloatValue creates a float Value.
func FloatValue(v float32) Value {
	return Value{Type: TypeFloat, Float: v}
}

// DoubleValue creates a double Value.
func DoubleValue(v float64) Value {
	return Value{Type: TypeDouble, Double: v}
}

// RefValue creates a reference Value. A nil ref is the null reference.
func RefValue(ref any) Value {
	if ref == nil {
		return NullValue()
	}
	return Value{Type: TypeRef, Ref: ref}
}

// NullValue creates a null reference Value.
func NullValue() Value {
	return Value{Type: TypeNull}
}

// IsNull reports whether v is the null reference.
func (v Value) IsNull() bool {
	return v.Type == TypeNull || (v.Type == TypeRef && v.Ref == nil)
}

// Wide reports whether v is a long or a double.
func (v Value) Wide() bool {
	return v.Type == TypeLong || v.Type == TypeDouble
}

func (v Value) String() string {
	switch v.Type {
	case TypeInt:
		return fmt.Sprint(v.Int)
	case TypeLong:
		return fmt.Sprint(v.Long)
	case TypeFloat:
		return fmt.Sprint(v.Float)
	case TypeDouble:
		return fmt.Sprint(v.Double)
	case TypeNull:
		return "null"
	}
	return fmt.Sprint(v.Ref)
}

// ZeroValue returns the default value of a field of the given type.
func ZeroValue(fieldType string) Value {
	switch fieldType[0] {
	case 'J':
		return LongValue(0)
	case 'F':
		return FloatValue(0)
	case 'D':
		return DoubleValue(0)
	case 'L', '[':
		return NullValue()
	}
	return IntValue(0)
}

// Frame represents a stack frame for method execution.
type Frame struct {
	LocalVars    []Value
	OperandStack []Value
	SP           int
	Code         []byte
	PC           int
	// Start is the offset of the instruction being executed.
	Start  int
	Class  *Class
	Method *Method
}

// NewFrame creates a new Frame with the given parameters.
func NewFrame(maxLocals, maxStack uint16, code []byte, class *Class) *Frame {
	return &Frame{
		LocalVars:    make([]Value, maxLocals),
		OperandStack: make([]Value, maxStack),
		Code:         code,
		Class:        class,
	}
}

// Push pushes a value onto the operand stack.
func (f *Frame) Push(v Value) {
	if f.SP >= len(f.OperandStack) {
		panic(fmt.Sprintf("operand stack overflow: SP=%d, max=%d", f.SP, len(f.OperandStack)))
	}
	f.OperandStack[f.SP] = v
	f.SP++
}

// Pop pops a value from the operand stack.
func (f *Frame) Pop() Value {
	if f.SP <= 0 {
		panic("operand stack underflow: SP=0")
	}
	f.SP--
	return f.OperandStack[f.SP]
}

// Peek returns the top of the operand stack without removing it.
func (f *Frame) Peek() Value {
	if f.SP <= 0 {
		panic("operand stack underflow: SP=0")
	}
	return f.OperandStack[f.SP-1]
}

// Clear empties the operand stack.
func (f *Frame) Clear() {
	f.SP = 0
}

// GetLocal returns the value at the given local variable index.
func (f *Frame) GetLocal(index int) Value {
	if index < 0 || index >= len(f.LocalVars) {
		panic(fmt.Sprintf("local variable index out of range: index=%d, max=%d", index, len(f.LocalVars)))
	}
	return f.LocalVars[index]
}

// SetLocal sets the value at the given local variable index.
func (f *Frame) SetLocal(index int, v Value) {
	if index < 0 || index >= len(f.LocalVars) {
		panic(fmt.Sprintf("local variable index out of range: index=%d, max=%d", index, len(f.LocalVars)))
	}
	f.LocalVars[index] = v
}

// ReadU8 reads a uint8 operand and advances PC.
func (f *Frame) ReadU8() uint8 {
	val := f.Code[f.PC]
	f.PC++
	return val
}

// ReadI8 reads an int8 operand and advances PC.
func (f *Frame) ReadI8() int8 {
	val := int8(f.Code[f.PC])
	f.PC++
	return val
}

// ReadU16 reads a uint16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadU16() uint16 {
	val := uint16(f.Code[f.PC])<<8 | uint16(f.Code[f.PC+1])
	f.PC += 2
	return val
}

// ReadI16 reads an int16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadI16() int16 {
	return int16(f.ReadU16())
}

// ReadI32 reads an int32 operand (big-endian) and advances PC by 4.
func (f *Frame) ReadI32() int32 {
	hi := uint32(f.ReadU16())
	lo := uint32(f.ReadU16())
	return int32(hi<<16 | lo)
}

// ReadIndex reads a local variable index, which is 16 bits wide after a
// wide prefix.
func (f *Frame) ReadIndex(wide bool) int {
	if wide {
		return int(f.ReadU16())
	}
	return int(f.ReadU8())
}

// Branch jumps relative to the current instruction.
func (f *Frame) Branch(offset int) {
	f.PC = f.Start + offset
}

// loadSlot returns the local slot encoded in a short-form load or store
// opcode such as iload_2.
func loadSlot(op, base byte) int {
	return int(op-base) % 4
}

func fcmp(a, b float64, nan int32) int32 {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return nan
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}
