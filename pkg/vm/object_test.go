package vm

import (
	"errors"
	"strings"
	"testing"

	"github.com/daimatz/jweave/pkg/native"
)

func TestNewArray(t *testing.T) {
	tests := []struct {
		descriptor string
		want       ValueType
	}{
		{"[I", TypeInt},
		{"[J", TypeLong},
		{"[D", TypeDouble},
		{"[Ljava/lang/Object;", TypeNull},
		{"[[I", TypeNull},
	}
	for _, tt := range tests {
		arr := NewArray(tt.descriptor, 3)
		if len(arr.Elements) != 3 {
			t.Fatalf("%s: got %d elements", tt.descriptor, len(arr.Elements))
		}
		for i, e := range arr.Elements {
			if e.Type != tt.want {
				t.Errorf("%s[%d]: got type %v, want %v", tt.descriptor, i, e.Type, tt.want)
			}
		}
	}
}

func TestNewMultiArray(t *testing.T) {
	arr := newMultiArray("[[J", []int32{2, 3})
	if len(arr.Elements) != 2 {
		t.Fatalf("outer length: got %d", len(arr.Elements))
	}
	inner, ok := arr.Elements[1].Ref.(*JArray)
	if !ok || inner.Type != "[J" || len(inner.Elements) != 3 {
		t.Fatalf("inner: got %+v", arr.Elements[1])
	}
	if inner.Elements[2].Type != TypeLong {
		t.Errorf("inner element: got %v", inner.Elements[2])
	}
}

func TestJavaException(t *testing.T) {
	vm := NewVM(nil)
	err := error(vm.NewJavaException("java/lang/ArithmeticException", "/ by zero"))

	var jex *JavaException
	if !errors.As(err, &jex) {
		t.Fatal("errors.As failed")
	}
	if !jex.Object.Class.IsSubclassOf("java/lang/RuntimeException") {
		t.Error("ArithmeticException should extend RuntimeException")
	}
	if jex.Object.Class.IsSubclassOf("java/lang/Error") {
		t.Error("ArithmeticException should not extend Error")
	}
	if !strings.Contains(err.Error(), "/ by zero") {
		t.Errorf("Error(): got %q", err.Error())
	}

	bare := vm.NewJavaException("java/lang/StackOverflowError", "")
	if _, ok := bare.Object.Fields[messageField]; ok {
		t.Error("an empty format should leave the message unset")
	}
}

func TestClassOf(t *testing.T) {
	vm := NewVM(nil)
	tests := []struct {
		v    Value
		want string
	}{
		{RefValue("s"), "java/lang/String"},
		{RefValue(native.IntegerValueOf(3)), "java/lang/Integer"},
		{RefValue(NewArray("[I", 1)), "[I"},
		{RefValue(native.NewHashMap()), "java/util/HashMap"},
		{RefValue(&Invocation{vm: vm}), DefaultInvocationClass},
	}
	for _, tt := range tests {
		if got := vm.classOf(tt.v).Name; got != tt.want {
			t.Errorf("classOf(%v): got %s, want %s", tt.v, got, tt.want)
		}
	}

	h := vm.Handler(InvocationHandlerFunc(func(*Invocation) (Value, error) { return NullValue(), nil }))
	if !vm.isInstance(h, DefaultHandlerClass) {
		t.Error("Go handlers should be instances of the handler interface")
	}
	if !vm.isInstance(RefValue(native.IntegerValueOf(1)), "java/lang/Number") {
		t.Error("Integer should be a Number")
	}
}
