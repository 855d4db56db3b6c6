package vm

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/google/go-cmp/cmp"
)

// execute runs code in a frame without a class, with locals set from index
// 0, and returns the value it returns. Wide locals take two slots.
func execute(t *testing.T, code []byte, locals ...Value) (Value, error) {
	t.Helper()

	frame := NewFrame(8, 16, code, nil)
	slot := 0
	for _, v := range locals {
		frame.SetLocal(slot, v)
		slot++
		if v.Wide() {
			slot++
		}
	}

	vm := NewVM(nil)
	for frame.PC < len(frame.Code) {
		frame.Start = frame.PC
		opcode := frame.ReadU8()
		ret, done, err := vm.executeInstruction(frame, opcode)
		if err != nil {
			return Value{}, err
		}
		if done {
			return ret, nil
		}
	}
	t.Fatal("code did not return")
	return Value{}, nil
}

func mustExecute(t *testing.T, code []byte, locals ...Value) Value {
	t.Helper()
	v, err := execute(t, code, locals...)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return v
}

func wantException(t *testing.T, err error, class string) {
	t.Helper()
	var jex *JavaException
	if !errors.As(err, &jex) {
		t.Fatalf("got error %v, want %s", err, class)
	}
	if jex.ClassName() != class {
		t.Errorf("got %s, want %s", jex.ClassName(), class)
	}
}

func appendI32(code []byte, values ...int32) []byte {
	for _, v := range values {
		code = binary.BigEndian.AppendUint32(code, uint32(v))
	}
	return code
}

func TestConstants(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want Value
	}{
		{"iconst_m1", []byte{bytecode.OpIconstM1, bytecode.OpIreturn}, IntValue(-1)},
		{"iconst_5", []byte{bytecode.OpIconst5, bytecode.OpIreturn}, IntValue(5)},
		{"bipush", []byte{bytecode.OpBipush, 0x80, bytecode.OpIreturn}, IntValue(-128)},
		{"sipush", []byte{bytecode.OpSipush, 0x03, 0xE8, bytecode.OpIreturn}, IntValue(1000)},
		{"lconst_1", []byte{bytecode.OpLconst1, bytecode.OpLreturn}, LongValue(1)},
		{"fconst_2", []byte{bytecode.OpFconst2, bytecode.OpFreturn}, FloatValue(2)},
		{"dconst_1", []byte{bytecode.OpDconst1, bytecode.OpDreturn}, DoubleValue(1)},
		{"aconst_null", []byte{bytecode.OpAconstNull, bytecode.OpAreturn}, NullValue()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, mustExecute(t, tt.code)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestIntArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   byte
		a, b int32
		want int32
	}{
		{"iadd", bytecode.OpIadd, 3, 4, 7},
		{"iadd overflow", bytecode.OpIadd, math.MaxInt32, 1, math.MinInt32},
		{"isub", bytecode.OpIsub, 3, 10, -7},
		{"imul", bytecode.OpImul, -6, 7, -42},
		{"idiv truncates", bytecode.OpIdiv, -7, 2, -3},
		{"idiv min by -1", bytecode.OpIdiv, math.MinInt32, -1, math.MinInt32},
		{"irem sign of dividend", bytecode.OpIrem, -7, 2, -1},
		{"irem min by -1", bytecode.OpIrem, math.MinInt32, -1, 0},
		{"ishl masks count", bytecode.OpIshl, 1, 33, 2},
		{"ishr", bytecode.OpIshr, -16, 2, -4},
		{"iushr", bytecode.OpIushr, -1, 28, 15},
		{"iand", bytecode.OpIand, 0b1100, 0b1010, 0b1000},
		{"ior", bytecode.OpIor, 0b1100, 0b1010, 0b1110},
		{"ixor", bytecode.OpIxor, 0b1100, 0b1010, 0b0110},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := []byte{bytecode.OpIload0, bytecode.OpIload1, tt.op, bytecode.OpIreturn}
			got := mustExecute(t, code, IntValue(tt.a), IntValue(tt.b))
			if got.Int != tt.want {
				t.Errorf("%d %s %d: got %d, want %d", tt.a, tt.name, tt.b, got.Int, tt.want)
			}
		})
	}

	if got := mustExecute(t, []byte{bytecode.OpIload0, bytecode.OpIneg, bytecode.OpIreturn}, IntValue(9)); got.Int != -9 {
		t.Errorf("ineg: got %d", got.Int)
	}
}

func TestLongArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   byte
		a, b int64
		want int64
	}{
		{"ladd", bytecode.OpLadd, 1 << 40, 1, 1<<40 + 1},
		{"lsub", bytecode.OpLsub, 0, math.MaxInt64, -math.MaxInt64},
		{"lmul", bytecode.OpLmul, 1 << 20, 1 << 30, 1 << 50},
		{"ldiv", bytecode.OpLdiv, -9, 4, -2},
		{"lrem", bytecode.OpLrem, -9, 4, -1},
		{"land", bytecode.OpLand, 0xFF00, 0x0FF0, 0x0F00},
		{"lxor", bytecode.OpLxor, -1, 1, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := []byte{bytecode.OpLload0, bytecode.OpLload2, tt.op, bytecode.OpLreturn}
			got := mustExecute(t, code, LongValue(tt.a), LongValue(tt.b))
			if got.Long != tt.want {
				t.Errorf("got %d, want %d", got.Long, tt.want)
			}
		})
	}

	t.Run("lshl takes an int count", func(t *testing.T) {
		code := []byte{bytecode.OpLload0, bytecode.OpIload2, bytecode.OpLshl, bytecode.OpLreturn}
		got := mustExecute(t, code, LongValue(3), IntValue(65))
		if got.Long != 6 {
			t.Errorf("got %d, want 6", got.Long)
		}
	})
}

func TestFloatingArithmetic(t *testing.T) {
	got := mustExecute(t, []byte{bytecode.OpDload0, bytecode.OpDload2, bytecode.OpDdiv, bytecode.OpDreturn},
		DoubleValue(1), DoubleValue(0))
	if !math.IsInf(got.Double, 1) {
		t.Errorf("1.0/0.0: got %v, want +Inf", got.Double)
	}

	got = mustExecute(t, []byte{bytecode.OpDload0, bytecode.OpDload2, bytecode.OpDrem, bytecode.OpDreturn},
		DoubleValue(-7.5), DoubleValue(2))
	if got.Double != -1.5 {
		t.Errorf("drem: got %v, want -1.5", got.Double)
	}

	got = mustExecute(t, []byte{bytecode.OpFload0, bytecode.OpFload1, bytecode.OpFmul, bytecode.OpFreturn},
		FloatValue(1.5), FloatValue(4))
	if got.Float != 6 {
		t.Errorf("fmul: got %v, want 6", got.Float)
	}
}

func TestDivisionByZero(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		args []Value
	}{
		{"idiv", []byte{bytecode.OpIload0, bytecode.OpIload1, bytecode.OpIdiv, bytecode.OpIreturn}, []Value{IntValue(1), IntValue(0)}},
		{"irem", []byte{bytecode.OpIload0, bytecode.OpIload1, bytecode.OpIrem, bytecode.OpIreturn}, []Value{IntValue(1), IntValue(0)}},
		{"ldiv", []byte{bytecode.OpLload0, bytecode.OpLload2, bytecode.OpLdiv, bytecode.OpLreturn}, []Value{LongValue(1), LongValue(0)}},
		{"lrem", []byte{bytecode.OpLload0, bytecode.OpLload2, bytecode.OpLrem, bytecode.OpLreturn}, []Value{LongValue(1), LongValue(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.code, tt.args...)
			wantException(t, err, "java/lang/ArithmeticException")
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		op   byte
		in   Value
		want Value
	}{
		{"i2l", bytecode.OpI2l, IntValue(-3), LongValue(-3)},
		{"i2d", bytecode.OpI2d, IntValue(7), DoubleValue(7)},
		{"l2i truncates", bytecode.OpL2i, LongValue(1<<32 + 5), IntValue(5)},
		{"f2d", bytecode.OpF2d, FloatValue(0.5), DoubleValue(0.5)},
		{"d2i NaN", bytecode.OpD2i, DoubleValue(math.NaN()), IntValue(0)},
		{"d2i saturates", bytecode.OpD2i, DoubleValue(1e20), IntValue(math.MaxInt32)},
		{"d2i truncates", bytecode.OpD2i, DoubleValue(-2.9), IntValue(-2)},
		{"f2l -Inf", bytecode.OpF2l, FloatValue(float32(math.Inf(-1))), LongValue(math.MinInt64)},
		{"i2b", bytecode.OpI2b, IntValue(200), IntValue(-56)},
		{"i2c", bytecode.OpI2c, IntValue(-1), IntValue(65535)},
		{"i2s", bytecode.OpI2s, IntValue(40000), IntValue(-25536)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, convert(tt.op, tt.in)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		code []byte
		args []Value
		want int32
	}{
		{"lcmp less", []byte{bytecode.OpLload0, bytecode.OpLload2, bytecode.OpLcmp, bytecode.OpIreturn}, []Value{LongValue(1), LongValue(2)}, -1},
		{"lcmp equal", []byte{bytecode.OpLload0, bytecode.OpLload2, bytecode.OpLcmp, bytecode.OpIreturn}, []Value{LongValue(2), LongValue(2)}, 0},
		{"fcmpl NaN", []byte{bytecode.OpFload0, bytecode.OpFload1, bytecode.OpFcmpl, bytecode.OpIreturn}, []Value{FloatValue(float32(nan)), FloatValue(1)}, -1},
		{"fcmpg NaN", []byte{bytecode.OpFload0, bytecode.OpFload1, bytecode.OpFcmpg, bytecode.OpIreturn}, []Value{FloatValue(float32(nan)), FloatValue(1)}, 1},
		{"dcmpl greater", []byte{bytecode.OpDload0, bytecode.OpDload2, bytecode.OpDcmpl, bytecode.OpIreturn}, []Value{DoubleValue(3), DoubleValue(1)}, 1},
		{"dcmpg NaN", []byte{bytecode.OpDload0, bytecode.OpDload2, bytecode.OpDcmpg, bytecode.OpIreturn}, []Value{DoubleValue(1), DoubleValue(nan)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustExecute(t, tt.code, tt.args...); got.Int != tt.want {
				t.Errorf("got %d, want %d", got.Int, tt.want)
			}
		})
	}
}

func TestBranches(t *testing.T) {
	// Each program returns 1 when the branch is taken and 0 otherwise.
	unary := func(op byte) []byte {
		return []byte{bytecode.OpIload0, op, 0x00, 0x05,
			bytecode.OpIconst0, bytecode.OpIreturn,
			bytecode.OpIconst1, bytecode.OpIreturn}
	}
	compare := func(op byte) []byte {
		return []byte{bytecode.OpIload0, bytecode.OpIload1, op, 0x00, 0x05,
			bytecode.OpIconst0, bytecode.OpIreturn,
			bytecode.OpIconst1, bytecode.OpIreturn}
	}
	objA, objB := RefValue(&JObject{}), RefValue(&JObject{})

	tests := []struct {
		name string
		code []byte
		args []Value
		want int32
	}{
		{"ifeq taken", unary(bytecode.OpIfeq), []Value{IntValue(0)}, 1},
		{"ifeq not taken", unary(bytecode.OpIfeq), []Value{IntValue(3)}, 0},
		{"ifne", unary(bytecode.OpIfne), []Value{IntValue(3)}, 1},
		{"iflt", unary(bytecode.OpIflt), []Value{IntValue(-1)}, 1},
		{"ifge", unary(bytecode.OpIfge), []Value{IntValue(0)}, 1},
		{"ifgt", unary(bytecode.OpIfgt), []Value{IntValue(0)}, 0},
		{"ifle", unary(bytecode.OpIfle), []Value{IntValue(0)}, 1},
		{"if_icmpeq", compare(bytecode.OpIfIcmpeq), []Value{IntValue(4), IntValue(4)}, 1},
		{"if_icmpne", compare(bytecode.OpIfIcmpne), []Value{IntValue(4), IntValue(4)}, 0},
		{"if_icmplt", compare(bytecode.OpIfIcmplt), []Value{IntValue(3), IntValue(4)}, 1},
		{"if_icmpge", compare(bytecode.OpIfIcmpge), []Value{IntValue(3), IntValue(4)}, 0},
		{"if_icmpgt", compare(bytecode.OpIfIcmpgt), []Value{IntValue(5), IntValue(4)}, 1},
		{"if_icmple", compare(bytecode.OpIfIcmple), []Value{IntValue(4), IntValue(4)}, 1},
		{"if_acmpeq same", []byte{bytecode.OpAload0, bytecode.OpAload1, bytecode.OpIfAcmpeq, 0x00, 0x05,
			bytecode.OpIconst0, bytecode.OpIreturn, bytecode.OpIconst1, bytecode.OpIreturn}, []Value{objA, objA}, 1},
		{"if_acmpne distinct", []byte{bytecode.OpAload0, bytecode.OpAload1, bytecode.OpIfAcmpne, 0x00, 0x05,
			bytecode.OpIconst0, bytecode.OpIreturn, bytecode.OpIconst1, bytecode.OpIreturn}, []Value{objA, objB}, 1},
		{"if_acmpeq both null", []byte{bytecode.OpAload0, bytecode.OpAload1, bytecode.OpIfAcmpeq, 0x00, 0x05,
			bytecode.OpIconst0, bytecode.OpIreturn, bytecode.OpIconst1, bytecode.OpIreturn}, []Value{NullValue(), RefValue(nil)}, 1},
		{"ifnull", []byte{bytecode.OpAload0, bytecode.OpIfnull, 0x00, 0x05,
			bytecode.OpIconst0, bytecode.OpIreturn, bytecode.OpIconst1, bytecode.OpIreturn}, []Value{NullValue()}, 1},
		{"ifnonnull", []byte{bytecode.OpAload0, bytecode.OpIfnonnull, 0x00, 0x05,
			bytecode.OpIconst0, bytecode.OpIreturn, bytecode.OpIconst1, bytecode.OpIreturn}, []Value{objA}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustExecute(t, tt.code, tt.args...); got.Int != tt.want {
				t.Errorf("got %d, want %d", got.Int, tt.want)
			}
		})
	}
}

func TestLoop(t *testing.T) {
	// int sum = 0; while (n > 0) { sum += n; n--; } return sum;
	code := []byte{
		bytecode.OpIconst0,          // 0
		bytecode.OpIstore1,          // 1
		bytecode.OpIload0,           // 2
		bytecode.OpIfle, 0x00, 0x0D, // 3 -> 16
		bytecode.OpIload1,           // 6
		bytecode.OpIload0,           // 7
		bytecode.OpIadd,             // 8
		bytecode.OpIstore1,          // 9
		bytecode.OpIinc, 0x00, 0xFF, // 10
		bytecode.OpGoto, 0xFF, 0xF5, // 13 -> 2
		bytecode.OpIload1,           // 16
		bytecode.OpIreturn,          // 17
	}
	if got := mustExecute(t, code, IntValue(10)); got.Int != 55 {
		t.Errorf("got %d, want 55", got.Int)
	}
}

func TestTableswitch(t *testing.T) {
	code := []byte{bytecode.OpIload0, bytecode.OpTableswitch, 0, 0}
	code = appendI32(code, 36, 0, 2, 27, 30, 33)
	code = append(code,
		bytecode.OpBipush, 10, bytecode.OpIreturn, // 28
		bytecode.OpBipush, 20, bytecode.OpIreturn, // 31
		bytecode.OpBipush, 30, bytecode.OpIreturn, // 34
		bytecode.OpIconstM1, bytecode.OpIreturn,   // 37
	)
	for key, want := range map[int32]int32{0: 10, 1: 20, 2: 30, 3: -1, -1: -1} {
		if got := mustExecute(t, code, IntValue(key)); got.Int != want {
			t.Errorf("switch(%d): got %d, want %d", key, got.Int, want)
		}
	}
}

func TestLookupswitch(t *testing.T) {
	code := []byte{bytecode.OpIload0, bytecode.OpLookupswitch, 0, 0}
	code = appendI32(code, 33, 2, -5, 27, 100, 30)
	code = append(code,
		bytecode.OpBipush, 10, bytecode.OpIreturn, // 28
		bytecode.OpBipush, 20, bytecode.OpIreturn, // 31
		bytecode.OpIconstM1, bytecode.OpIreturn,   // 34
	)
	for key, want := range map[int32]int32{-5: 10, 100: 20, 0: -1} {
		if got := mustExecute(t, code, IntValue(key)); got.Int != want {
			t.Errorf("switch(%d): got %d, want %d", key, got.Int, want)
		}
	}
}

func TestStackManipulation(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want Value
	}{
		{"swap", []byte{bytecode.OpIconst1, bytecode.OpIconst2, bytecode.OpSwap, bytecode.OpIsub, bytecode.OpIreturn}, IntValue(1)},
		{"dup_x1", []byte{bytecode.OpIconst1, bytecode.OpIconst2, bytecode.OpDupX1,
			bytecode.OpIsub, bytecode.OpIsub, bytecode.OpIreturn}, IntValue(3)},
		{"dup_x2", []byte{bytecode.OpIconst1, bytecode.OpIconst2, bytecode.OpIconst3, bytecode.OpDupX2,
			bytecode.OpIsub, bytecode.OpIsub, bytecode.OpIsub, bytecode.OpIreturn}, IntValue(1)},
		{"pop2 of two ints", []byte{bytecode.OpIconst1, bytecode.OpIconst2, bytecode.OpIconst3, bytecode.OpPop2, bytecode.OpIreturn}, IntValue(1)},
		{"pop2 of a long", []byte{bytecode.OpIconst4, bytecode.OpLconst1, bytecode.OpPop2, bytecode.OpIreturn}, IntValue(4)},
		{"dup2 of a long", []byte{bytecode.OpLconst1, bytecode.OpDup2, bytecode.OpLadd, bytecode.OpLreturn}, LongValue(2)},
		{"dup2 of two ints", []byte{bytecode.OpIconst2, bytecode.OpIconst5, bytecode.OpDup2,
			bytecode.OpIadd, bytecode.OpIadd, bytecode.OpIadd, bytecode.OpIreturn}, IntValue(14)},
		{"dup2_x1 of a long", []byte{bytecode.OpIconst5, bytecode.OpLconst1, bytecode.OpDup2X1,
			bytecode.OpPop2, bytecode.OpPop, bytecode.OpLreturn}, LongValue(1)},
		{"dup2_x2 of longs", []byte{bytecode.OpLconst0, bytecode.OpLconst1, bytecode.OpDup2X2,
			bytecode.OpPop2, bytecode.OpPop2, bytecode.OpLreturn}, LongValue(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, mustExecute(t, tt.code)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestLocals(t *testing.T) {
	t.Run("istore and iload with index", func(t *testing.T) {
		code := []byte{bytecode.OpBipush, 42, bytecode.OpIstore, 5, bytecode.OpIload, 5, bytecode.OpIreturn}
		if got := mustExecute(t, code); got.Int != 42 {
			t.Errorf("got %d, want 42", got.Int)
		}
	})

	t.Run("wide iinc", func(t *testing.T) {
		code := []byte{bytecode.OpWide, bytecode.OpIinc, 0x00, 0x00, 0x01, 0x00, bytecode.OpIload0, bytecode.OpIreturn}
		if got := mustExecute(t, code, IntValue(5)); got.Int != 261 {
			t.Errorf("got %d, want 261", got.Int)
		}
	})

	t.Run("wide load and store", func(t *testing.T) {
		code := []byte{
			bytecode.OpLconst1, bytecode.OpWide, bytecode.OpLstore, 0x00, 0x04,
			bytecode.OpWide, bytecode.OpLload, 0x00, 0x04, bytecode.OpLreturn,
		}
		if got := mustExecute(t, code); got.Long != 1 {
			t.Errorf("got %d, want 1", got.Long)
		}
	})

	t.Run("long locals take two slots", func(t *testing.T) {
		code := []byte{bytecode.OpIload2, bytecode.OpIreturn}
		if got := mustExecute(t, code, LongValue(10), IntValue(7)); got.Int != 7 {
			t.Errorf("got %d, want 7", got.Int)
		}
	})
}

func TestArrays(t *testing.T) {
	t.Run("int array store and load", func(t *testing.T) {
		code := []byte{
			bytecode.OpIconst3, bytecode.OpNewarray, 10, bytecode.OpAstore0,
			bytecode.OpAload0, bytecode.OpIconst1, bytecode.OpBipush, 42, bytecode.OpIastore,
			bytecode.OpAload0, bytecode.OpIconst1, bytecode.OpIaload,
			bytecode.OpAload0, bytecode.OpArraylength, bytecode.OpIadd,
			bytecode.OpIreturn,
		}
		if got := mustExecute(t, code); got.Int != 45 {
			t.Errorf("got %d, want 45", got.Int)
		}
	})

	t.Run("byte array truncates", func(t *testing.T) {
		code := []byte{
			bytecode.OpIconst1, bytecode.OpNewarray, 8, bytecode.OpAstore0,
			bytecode.OpAload0, bytecode.OpIconst0, bytecode.OpSipush, 0x01, 0x2C, bytecode.OpBastore,
			bytecode.OpAload0, bytecode.OpIconst0, bytecode.OpBaload, bytecode.OpIreturn,
		}
		if got := mustExecute(t, code); got.Int != 44 {
			t.Errorf("got %d, want 44", got.Int)
		}
	})

	t.Run("long array default", func(t *testing.T) {
		code := []byte{bytecode.OpIconst2, bytecode.OpNewarray, 11, bytecode.OpIconst1, bytecode.OpLaload, bytecode.OpLreturn}
		if diff := cmp.Diff(LongValue(0), mustExecute(t, code)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	exceptions := []struct {
		name  string
		code  []byte
		class string
	}{
		{"index out of bounds", []byte{bytecode.OpIconst2, bytecode.OpNewarray, 10, bytecode.OpIconst2, bytecode.OpIaload, bytecode.OpIreturn},
			"java/lang/ArrayIndexOutOfBoundsException"},
		{"negative index", []byte{bytecode.OpIconst2, bytecode.OpNewarray, 10, bytecode.OpIconstM1, bytecode.OpIaload, bytecode.OpIreturn},
			"java/lang/ArrayIndexOutOfBoundsException"},
		{"negative size", []byte{bytecode.OpIconstM1, bytecode.OpNewarray, 10, bytecode.OpAreturn},
			"java/lang/NegativeArraySizeException"},
		{"null array load", []byte{bytecode.OpAconstNull, bytecode.OpIconst0, bytecode.OpIaload, bytecode.OpIreturn},
			"java/lang/NullPointerException"},
		{"null arraylength", []byte{bytecode.OpAconstNull, bytecode.OpArraylength, bytecode.OpIreturn},
			"java/lang/NullPointerException"},
	}
	for _, tt := range exceptions {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.code)
			wantException(t, err, tt.class)
		})
	}
}

func TestNullReceivers(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"athrow null", []byte{bytecode.OpAconstNull, bytecode.OpAthrow}},
		{"monitorenter null", []byte{bytecode.OpAconstNull, bytecode.OpMonitorenter, bytecode.OpReturn}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.code)
			wantException(t, err, "java/lang/NullPointerException")
		})
	}
}

func TestUnknownOpcode(t *testing.T) {
	if _, err := execute(t, []byte{0xCB}); err == nil {
		t.Error("expected an error for an undefined opcode")
	}
}
