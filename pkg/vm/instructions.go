package vm

import (
	"fmt"
	"math"

	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/native"
)

// executeInstruction executes a single bytecode instruction.
// Returns (returnValue, hasReturn, error).
func (vm *VM) executeInstruction(frame *Frame, opcode byte) (Value, bool, error) {
	switch {
	case opcode >= bytecode.OpIload0 && opcode <= bytecode.OpAload3:
		frame.Push(frame.GetLocal(loadSlot(opcode, bytecode.OpIload0)))
		return Value{}, false, nil
	case opcode >= bytecode.OpIstore0 && opcode <= bytecode.OpAstore3:
		frame.SetLocal(loadSlot(opcode, bytecode.OpIstore0), frame.Pop())
		return Value{}, false, nil
	case opcode >= bytecode.OpIadd && opcode <= bytecode.OpLxor:
		return Value{}, false, vm.executeArithmetic(frame, opcode)
	case opcode >= bytecode.OpI2l && opcode <= bytecode.OpI2s:
		frame.Push(convert(opcode, frame.Pop()))
		return Value{}, false, nil
	case opcode >= bytecode.OpIfeq && opcode <= bytecode.OpIfAcmpne,
		opcode == bytecode.OpIfnull, opcode == bytecode.OpIfnonnull:
		executeBranch(frame, opcode)
		return Value{}, false, nil
	}

	switch opcode {
	case bytecode.OpNop:
		// do nothing

	// --- Constant load instructions ---
	case bytecode.OpAconstNull:
		frame.Push(NullValue())
	case bytecode.OpIconstM1, bytecode.OpIconst0, bytecode.OpIconst1, bytecode.OpIconst2,
		bytecode.OpIconst3, bytecode.OpIconst4, bytecode.OpIconst5:
		frame.Push(IntValue(int32(opcode) - bytecode.OpIconst0))
	case bytecode.OpLconst0, bytecode.OpLconst1:
		frame.Push(LongValue(int64(opcode - bytecode.OpLconst0)))
	case bytecode.OpFconst0, bytecode.OpFconst1, bytecode.OpFconst2:
		frame.Push(FloatValue(float32(opcode - bytecode.OpFconst0)))
	case bytecode.OpDconst0, bytecode.OpDconst1:
		frame.Push(DoubleValue(float64(opcode - bytecode.OpDconst0)))
	case bytecode.OpBipush:
		frame.Push(IntValue(int32(frame.ReadI8())))
	case bytecode.OpSipush:
		frame.Push(IntValue(int32(frame.ReadI16())))
	case bytecode.OpLdc:
		return Value{}, false, vm.executeLdc(frame, uint16(frame.ReadU8()))
	case bytecode.OpLdcW, bytecode.OpLdc2W:
		return Value{}, false, vm.executeLdc(frame, frame.ReadU16())

	// --- Local variables ---
	case bytecode.OpIload, bytecode.OpLload, bytecode.OpFload, bytecode.OpDload, bytecode.OpAload:
		frame.Push(frame.GetLocal(frame.ReadIndex(false)))
	case bytecode.OpIstore, bytecode.OpLstore, bytecode.OpFstore, bytecode.OpDstore, bytecode.OpAstore:
		frame.SetLocal(frame.ReadIndex(false), frame.Pop())
	case bytecode.OpIinc:
		index := frame.ReadIndex(false)
		inc := int32(frame.ReadI8())
		frame.SetLocal(index, IntValue(frame.GetLocal(index).Int+inc))
	case bytecode.OpWide:
		executeWide(frame)

	// --- Arrays ---
	case bytecode.OpIaload, bytecode.OpLaload, bytecode.OpFaload, bytecode.OpDaload,
		bytecode.OpAaload, bytecode.OpBaload, bytecode.OpCaload, bytecode.OpSaload:
		index := frame.Pop().Int
		arr, err := vm.arrayRef(frame.Pop(), index)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(arr.Elements[index])
	case bytecode.OpIastore, bytecode.OpLastore, bytecode.OpFastore, bytecode.OpDastore,
		bytecode.OpAastore, bytecode.OpBastore, bytecode.OpCastore, bytecode.OpSastore:
		value := frame.Pop()
		index := frame.Pop().Int
		arr, err := vm.arrayRef(frame.Pop(), index)
		if err != nil {
			return Value{}, false, err
		}
		arr.Elements[index] = narrow(arr.Type, value)
	case bytecode.OpNewarray:
		atype := frame.ReadU8()
		desc, ok := primitiveArrayTypes[atype]
		if !ok {
			return Value{}, false, fmt.Errorf("newarray: invalid type %d", atype)
		}
		count := frame.Pop().Int
		if count < 0 {
			return Value{}, false, vm.NewJavaException("java/lang/NegativeArraySizeException", "%d", count)
		}
		frame.Push(RefValue(NewArray(desc, int(count))))
	case bytecode.OpAnewarray:
		className, err := classfile.GetClassName(frame.Class.File.ConstantPool, frame.ReadU16())
		if err != nil {
			return Value{}, false, fmt.Errorf("anewarray: %w", err)
		}
		count := frame.Pop().Int
		if count < 0 {
			return Value{}, false, vm.NewJavaException("java/lang/NegativeArraySizeException", "%d", count)
		}
		frame.Push(RefValue(NewArray("["+classDescriptor(className), int(count))))
	case bytecode.OpMultianewarray:
		className, err := classfile.GetClassName(frame.Class.File.ConstantPool, frame.ReadU16())
		if err != nil {
			return Value{}, false, fmt.Errorf("multianewarray: %w", err)
		}
		dims := make([]int32, frame.ReadU8())
		for i := len(dims) - 1; i >= 0; i-- {
			dims[i] = frame.Pop().Int
			if dims[i] < 0 {
				return Value{}, false, vm.NewJavaException("java/lang/NegativeArraySizeException", "%d", dims[i])
			}
		}
		frame.Push(RefValue(newMultiArray(className, dims)))
	case bytecode.OpArraylength:
		arrRef := frame.Pop()
		if arrRef.IsNull() {
			return Value{}, false, vm.NewJavaException("java/lang/NullPointerException", "arraylength of null")
		}
		arr, ok := arrRef.Ref.(*JArray)
		if !ok {
			return Value{}, false, fmt.Errorf("arraylength: reference is not an array")
		}
		frame.Push(IntValue(int32(len(arr.Elements))))

	// --- Stack manipulation ---
	case bytecode.OpPop:
		frame.Pop()
	case bytecode.OpPop2:
		if v := frame.Pop(); !v.Wide() {
			frame.Pop()
		}
	case bytecode.OpDup:
		frame.Push(frame.Peek())
	case bytecode.OpDupX1:
		v1 := frame.Pop()
		v2 := frame.Pop()
		pushAll(frame, v1, v2, v1)
	case bytecode.OpDupX2:
		v1 := frame.Pop()
		v2 := frame.Pop()
		if v2.Wide() {
			pushAll(frame, v1, v2, v1)
		} else {
			v3 := frame.Pop()
			pushAll(frame, v1, v3, v2, v1)
		}
	case bytecode.OpDup2:
		v1 := frame.Pop()
		if v1.Wide() {
			pushAll(frame, v1, v1)
		} else {
			v2 := frame.Pop()
			pushAll(frame, v2, v1, v2, v1)
		}
	case bytecode.OpDup2X1:
		v1 := frame.Pop()
		v2 := frame.Pop()
		if v1.Wide() {
			pushAll(frame, v1, v2, v1)
		} else {
			v3 := frame.Pop()
			pushAll(frame, v2, v1, v3, v2, v1)
		}
	case bytecode.OpDup2X2:
		executeDup2X2(frame)
	case bytecode.OpSwap:
		v2 := frame.Pop()
		v1 := frame.Pop()
		pushAll(frame, v2, v1)

	// --- Comparisons ---
	case bytecode.OpLcmp:
		v2 := frame.Pop()
		v1 := frame.Pop()
		switch {
		case v1.Long > v2.Long:
			frame.Push(IntValue(1))
		case v1.Long < v2.Long:
			frame.Push(IntValue(-1))
		default:
			frame.Push(IntValue(0))
		}
	case bytecode.OpFcmpl, bytecode.OpFcmpg:
		v2 := frame.Pop()
		v1 := frame.Pop()
		nan := int32(-1)
		if opcode == bytecode.OpFcmpg {
			nan = 1
		}
		frame.Push(IntValue(fcmp(float64(v1.Float), float64(v2.Float), nan)))
	case bytecode.OpDcmpl, bytecode.OpDcmpg:
		v2 := frame.Pop()
		v1 := frame.Pop()
		nan := int32(-1)
		if opcode == bytecode.OpDcmpg {
			nan = 1
		}
		frame.Push(IntValue(fcmp(v1.Double, v2.Double, nan)))

	// --- Control transfer ---
	case bytecode.OpGoto:
		frame.Branch(int(frame.ReadI16()))
	case bytecode.OpGotoW:
		frame.Branch(int(frame.ReadI32()))
	case bytecode.OpTableswitch:
		// Padding to align to 4-byte boundary
		for frame.PC%4 != 0 {
			frame.PC++
		}
		defaultOffset := frame.ReadI32()
		low := frame.ReadI32()
		high := frame.ReadI32()
		offsets := make([]int32, int(high-low+1))
		for i := range offsets {
			offsets[i] = frame.ReadI32()
		}
		index := frame.Pop().Int
		if index >= low && index <= high {
			frame.Branch(int(offsets[index-low]))
		} else {
			frame.Branch(int(defaultOffset))
		}
	case bytecode.OpLookupswitch:
		for frame.PC%4 != 0 {
			frame.PC++
		}
		target := frame.ReadI32()
		npairs := frame.ReadI32()
		key := frame.Pop().Int
		for i := int32(0); i < npairs; i++ {
			match := frame.ReadI32()
			offset := frame.ReadI32()
			if key == match {
				target = offset
			}
		}
		frame.Branch(int(target))

	// --- Return ---
	case bytecode.OpIreturn, bytecode.OpLreturn, bytecode.OpFreturn, bytecode.OpDreturn, bytecode.OpAreturn:
		return frame.Pop(), true, nil
	case bytecode.OpReturn:
		return Value{}, true, nil

	// --- Fields ---
	case bytecode.OpGetstatic, bytecode.OpPutstatic:
		return Value{}, false, vm.executeStaticField(frame, opcode)
	case bytecode.OpGetfield, bytecode.OpPutfield:
		return Value{}, false, vm.executeField(frame, opcode)

	// --- Method invocation ---
	case bytecode.OpInvokevirtual, bytecode.OpInvokespecial, bytecode.OpInvokestatic,
		bytecode.OpInvokeinterface, bytecode.OpInvokedynamic:
		return Value{}, false, vm.executeInvoke(frame, opcode)

	// --- Objects ---
	case bytecode.OpNew:
		className, err := classfile.GetClassName(frame.Class.File.ConstantPool, frame.ReadU16())
		if err != nil {
			return Value{}, false, fmt.Errorf("new: %w", err)
		}
		obj, err := vm.newObject(className)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(obj)
	case bytecode.OpAthrow:
		excRef := frame.Pop()
		if excRef.IsNull() {
			return Value{}, false, vm.NewJavaException("java/lang/NullPointerException", "throw null")
		}
		obj, ok := excRef.Ref.(*JObject)
		if !ok || !obj.Class.IsSubclassOf("java/lang/Throwable") {
			return Value{}, false, fmt.Errorf("athrow: %v is not a Throwable", excRef)
		}
		return Value{}, false, &JavaException{Object: obj}
	case bytecode.OpCheckcast:
		className, err := classfile.GetClassName(frame.Class.File.ConstantPool, frame.ReadU16())
		if err != nil {
			return Value{}, false, fmt.Errorf("checkcast: %w", err)
		}
		if val := frame.Peek(); !val.IsNull() && !vm.isInstance(val, className) {
			return Value{}, false, vm.NewJavaException("java/lang/ClassCastException",
				"%s cannot be cast to %s", vm.classOf(val).Name, className)
		}
	case bytecode.OpInstanceof:
		className, err := classfile.GetClassName(frame.Class.File.ConstantPool, frame.ReadU16())
		if err != nil {
			return Value{}, false, fmt.Errorf("instanceof: %w", err)
		}
		ref := frame.Pop()
		frame.Push(boolValue(!ref.IsNull() && vm.isInstance(ref, className)))
	case bytecode.OpMonitorenter, bytecode.OpMonitorexit:
		if frame.Pop().IsNull() {
			return Value{}, false, vm.NewJavaException("java/lang/NullPointerException", "monitor on null")
		}

	default:
		return Value{}, false, fmt.Errorf("unknown opcode: 0x%02X (%s) at PC=%d", opcode, bytecode.Mnemonic(opcode), frame.Start)
	}

	return Value{}, false, nil
}

func pushAll(frame *Frame, values ...Value) {
	for _, v := range values {
		frame.Push(v)
	}
}

func executeDup2X2(frame *Frame) {
	v1 := frame.Pop()
	v2 := frame.Pop()
	switch {
	case v1.Wide() && v2.Wide():
		pushAll(frame, v1, v2, v1)
	case v1.Wide():
		v3 := frame.Pop()
		pushAll(frame, v1, v3, v2, v1)
	default:
		v3 := frame.Pop()
		if v3.Wide() {
			pushAll(frame, v2, v1, v3, v2, v1)
			return
		}
		v4 := frame.Pop()
		pushAll(frame, v2, v1, v4, v3, v2, v1)
	}
}

// executeWide handles the instruction following a wide prefix.
func executeWide(frame *Frame) {
	opcode := frame.ReadU8()
	index := frame.ReadIndex(true)
	switch opcode {
	case bytecode.OpIinc:
		inc := int32(frame.ReadI16())
		frame.SetLocal(index, IntValue(frame.GetLocal(index).Int+inc))
	case bytecode.OpIstore, bytecode.OpLstore, bytecode.OpFstore, bytecode.OpDstore, bytecode.OpAstore:
		frame.SetLocal(index, frame.Pop())
	default:
		frame.Push(frame.GetLocal(index))
	}
}

// executeLdc handles the ldc family of instructions.
func (vm *VM) executeLdc(frame *Frame, index uint16) error {
	v, err := constantAt(frame.Class.File.ConstantPool, index)
	if err != nil {
		return fmt.Errorf("ldc: %w", err)
	}
	frame.Push(v)
	return nil
}

func executeBranch(frame *Frame, opcode byte) {
	offset := int(frame.ReadI16())
	var taken bool
	switch {
	case opcode <= bytecode.OpIfle:
		v := frame.Pop().Int
		switch opcode {
		case bytecode.OpIfeq:
			taken = v == 0
		case bytecode.OpIfne:
			taken = v != 0
		case bytecode.OpIflt:
			taken = v < 0
		case bytecode.OpIfge:
			taken = v >= 0
		case bytecode.OpIfgt:
			taken = v > 0
		case bytecode.OpIfle:
			taken = v <= 0
		}
	case opcode <= bytecode.OpIfIcmple:
		v2 := frame.Pop().Int
		v1 := frame.Pop().Int
		switch opcode {
		case bytecode.OpIfIcmpeq:
			taken = v1 == v2
		case bytecode.OpIfIcmpne:
			taken = v1 != v2
		case bytecode.OpIfIcmplt:
			taken = v1 < v2
		case bytecode.OpIfIcmpge:
			taken = v1 >= v2
		case bytecode.OpIfIcmpgt:
			taken = v1 > v2
		case bytecode.OpIfIcmple:
			taken = v1 <= v2
		}
	case opcode == bytecode.OpIfAcmpeq || opcode == bytecode.OpIfAcmpne:
		v2 := frame.Pop()
		v1 := frame.Pop()
		eq := (v1.IsNull() && v2.IsNull()) || (v1.Type == v2.Type && v1.Ref == v2.Ref)
		taken = eq == (opcode == bytecode.OpIfAcmpeq)
	default:
		isNull := frame.Pop().IsNull()
		taken = isNull == (opcode == bytecode.OpIfnull)
	}
	if taken {
		frame.Branch(offset)
	}
}

// executeArithmetic handles the binary and unary operators from iadd to lxor.
func (vm *VM) executeArithmetic(frame *Frame, opcode byte) error {
	if opcode >= bytecode.OpIneg && opcode <= bytecode.OpDneg {
		v := frame.Pop()
		switch opcode {
		case bytecode.OpIneg:
			frame.Push(IntValue(-v.Int))
		case bytecode.OpLneg:
			frame.Push(LongValue(-v.Long))
		case bytecode.OpFneg:
			frame.Push(FloatValue(-v.Float))
		case bytecode.OpDneg:
			frame.Push(DoubleValue(-v.Double))
		}
		return nil
	}

	v2 := frame.Pop()
	v1 := frame.Pop()
	switch opcode {
	case bytecode.OpIadd:
		frame.Push(IntValue(v1.Int + v2.Int))
	case bytecode.OpLadd:
		frame.Push(LongValue(v1.Long + v2.Long))
	case bytecode.OpFadd:
		frame.Push(FloatValue(v1.Float + v2.Float))
	case bytecode.OpDadd:
		frame.Push(DoubleValue(v1.Double + v2.Double))
	case bytecode.OpIsub:
		frame.Push(IntValue(v1.Int - v2.Int))
	case bytecode.OpLsub:
		frame.Push(LongValue(v1.Long - v2.Long))
	case bytecode.OpFsub:
		frame.Push(FloatValue(v1.Float - v2.Float))
	case bytecode.OpDsub:
		frame.Push(DoubleValue(v1.Double - v2.Double))
	case bytecode.OpImul:
		frame.Push(IntValue(v1.Int * v2.Int))
	case bytecode.OpLmul:
		frame.Push(LongValue(v1.Long * v2.Long))
	case bytecode.OpFmul:
		frame.Push(FloatValue(v1.Float * v2.Float))
	case bytecode.OpDmul:
		frame.Push(DoubleValue(v1.Double * v2.Double))
	case bytecode.OpIdiv, bytecode.OpIrem:
		if v2.Int == 0 {
			return vm.NewJavaException("java/lang/ArithmeticException", "/ by zero")
		}
		if opcode == bytecode.OpIdiv {
			frame.Push(IntValue(v1.Int / v2.Int))
		} else {
			frame.Push(IntValue(v1.Int % v2.Int))
		}
	case bytecode.OpLdiv, bytecode.OpLrem:
		if v2.Long == 0 {
			return vm.NewJavaException("java/lang/ArithmeticException", "/ by zero")
		}
		if opcode == bytecode.OpLdiv {
			frame.Push(LongValue(v1.Long / v2.Long))
		} else {
			frame.Push(LongValue(v1.Long % v2.Long))
		}
	case bytecode.OpFdiv:
		frame.Push(FloatValue(v1.Float / v2.Float))
	case bytecode.OpDdiv:
		frame.Push(DoubleValue(v1.Double / v2.Double))
	case bytecode.OpFrem:
		frame.Push(FloatValue(float32(math.Mod(float64(v1.Float), float64(v2.Float)))))
	case bytecode.OpDrem:
		frame.Push(DoubleValue(math.Mod(v1.Double, v2.Double)))

	// --- Bit operations ---
	case bytecode.OpIshl:
		frame.Push(IntValue(v1.Int << (uint(v2.Int) & 0x1f)))
	case bytecode.OpLshl:
		frame.Push(LongValue(v1.Long << (uint(v2.Int) & 0x3f)))
	case bytecode.OpIshr:
		frame.Push(IntValue(v1.Int >> (uint(v2.Int) & 0x1f)))
	case bytecode.OpLshr:
		frame.Push(LongValue(v1.Long >> (uint(v2.Int) & 0x3f)))
	case bytecode.OpIushr:
		frame.Push(IntValue(int32(uint32(v1.Int) >> (uint(v2.Int) & 0x1f))))
	case bytecode.OpLushr:
		frame.Push(LongValue(int64(uint64(v1.Long) >> (uint(v2.Int) & 0x3f))))
	case bytecode.OpIand:
		frame.Push(IntValue(v1.Int & v2.Int))
	case bytecode.OpLand:
		frame.Push(LongValue(v1.Long & v2.Long))
	case bytecode.OpIor:
		frame.Push(IntValue(v1.Int | v2.Int))
	case bytecode.OpLor:
		frame.Push(LongValue(v1.Long | v2.Long))
	case bytecode.OpIxor:
		frame.Push(IntValue(v1.Int ^ v2.Int))
	case bytecode.OpLxor:
		frame.Push(LongValue(v1.Long ^ v2.Long))
	}
	return nil
}

// convert handles the primitive conversions from i2l to i2s.
func convert(opcode byte, v Value) Value {
	switch opcode {
	case bytecode.OpI2l:
		return LongValue(int64(v.Int))
	case bytecode.OpI2f:
		return FloatValue(float32(v.Int))
	case bytecode.OpI2d:
		return DoubleValue(float64(v.Int))
	case bytecode.OpL2i:
		return IntValue(int32(v.Long))
	case bytecode.OpL2f:
		return FloatValue(float32(v.Long))
	case bytecode.OpL2d:
		return DoubleValue(float64(v.Long))
	case bytecode.OpF2i:
		return IntValue(int32(saturate(float64(v.Float), math.MinInt32, math.MaxInt32)))
	case bytecode.OpF2l:
		return LongValue(saturate(float64(v.Float), math.MinInt64, math.MaxInt64))
	case bytecode.OpF2d:
		return DoubleValue(float64(v.Float))
	case bytecode.OpD2i:
		return IntValue(int32(saturate(v.Double, math.MinInt32, math.MaxInt32)))
	case bytecode.OpD2l:
		return LongValue(saturate(v.Double, math.MinInt64, math.MaxInt64))
	case bytecode.OpD2f:
		return FloatValue(float32(v.Double))
	case bytecode.OpI2b:
		return IntValue(int32(int8(v.Int)))
	case bytecode.OpI2c:
		return IntValue(int32(uint16(v.Int)))
	}
	return IntValue(int32(int16(v.Int))) // i2s
}

// saturate converts a floating point value to an integer the way the JVM
// does: NaN is 0 and out-of-range values clamp.
func saturate(f float64, lo, hi int64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f <= float64(lo):
		return lo
	case f >= float64(hi):
		return hi
	}
	return int64(f)
}

// narrow truncates a value stored into a byte, char, short or boolean array.
func narrow(arrayType string, v Value) Value {
	switch arrayType {
	case "[B":
		return IntValue(int32(int8(v.Int)))
	case "[Z":
		return IntValue(v.Int & 1)
	case "[C":
		return IntValue(int32(uint16(v.Int)))
	case "[S":
		return IntValue(int32(int16(v.Int)))
	}
	return v
}

func (vm *VM) arrayRef(ref Value, index int32) (*JArray, error) {
	if ref.IsNull() {
		return nil, vm.NewJavaException("java/lang/NullPointerException", "array access on null")
	}
	arr, ok := ref.Ref.(*JArray)
	if !ok {
		return nil, fmt.Errorf("array access: reference is not an array")
	}
	if index < 0 || int(index) >= len(arr.Elements) {
		return nil, vm.NewJavaException("java/lang/ArrayIndexOutOfBoundsException",
			"Index %d out of bounds for length %d", index, len(arr.Elements))
	}
	return arr, nil
}

// classDescriptor returns the field descriptor of a class or array class.
func classDescriptor(className string) string {
	if className[0] == '[' {
		return className
	}
	return classfile.ObjectType(className)
}

func newMultiArray(descriptor string, dims []int32) *JArray {
	arr := NewArray(descriptor, int(dims[0]))
	if len(dims) > 1 {
		for i := range arr.Elements {
			arr.Elements[i] = RefValue(newMultiArray(descriptor[1:], dims[1:]))
		}
	}
	return arr
}

// executeStaticField handles getstatic and putstatic.
func (vm *VM) executeStaticField(frame *Frame, opcode byte) error {
	mnemonic := bytecode.Mnemonic(opcode)
	ref, err := classfile.ResolveFieldref(frame.Class.File.ConstantPool, frame.ReadU16())
	if err != nil {
		return fmt.Errorf("%s: %w", mnemonic, err)
	}

	// Handle java/lang/System.out and err
	if ref.ClassName == "java/lang/System" && opcode == bytecode.OpGetstatic {
		switch ref.FieldName {
		case "out", "err":
			if vm.out == nil {
				vm.out = &native.PrintStream{Writer: vm.Stdout}
			}
			frame.Push(RefValue(vm.out))
			return nil
		}
	}

	c, err := vm.initializedClass(ref.ClassName)
	if err != nil {
		return err
	}
	owner := staticOwner(c, ref.FieldName)
	if owner == nil {
		return vm.NewJavaException("java/lang/NoSuchFieldError", "%s.%s", ref.ClassName, ref.FieldName)
	}
	if err := vm.initClass(owner); err != nil {
		return err
	}
	if opcode == bytecode.OpGetstatic {
		frame.Push(owner.Statics[ref.FieldName])
	} else {
		owner.Statics[ref.FieldName] = frame.Pop()
	}
	return nil
}

// executeField handles getfield and putfield.
func (vm *VM) executeField(frame *Frame, opcode byte) error {
	mnemonic := bytecode.Mnemonic(opcode)
	ref, err := classfile.ResolveFieldref(frame.Class.File.ConstantPool, frame.ReadU16())
	if err != nil {
		return fmt.Errorf("%s: %w", mnemonic, err)
	}

	var value Value
	if opcode == bytecode.OpPutfield {
		value = frame.Pop()
	}
	objectRef := frame.Pop()
	if objectRef.IsNull() {
		return vm.NewJavaException("java/lang/NullPointerException", "%s %s on null", mnemonic, ref.FieldName)
	}
	obj, ok := objectRef.Ref.(*JObject)
	if !ok {
		return fmt.Errorf("%s: receiver is not a JObject", mnemonic)
	}

	if opcode == bytecode.OpPutfield {
		obj.Fields[ref.FieldName] = value
		return nil
	}
	val, exists := obj.Fields[ref.FieldName]
	if !exists {
		val = ZeroValue(ref.Descriptor)
	}
	frame.Push(val)
	return nil
}
