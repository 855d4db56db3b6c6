package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/daimatz/jweave/pkg/native"
)

type nativeMethod func(vm *VM, args []Value) (Value, error)

// natives holds JDK methods implemented in Go, keyed by
// class.name:descriptor. Lookups walk the receiver's superclasses, so a
// method registered on java/lang/Object or java/lang/Number serves every
// subclass.
var natives = map[string]nativeMethod{}

func registerNative(class, name, descriptor string, fn nativeMethod) {
	natives[class+"."+methodKey(name, descriptor)] = fn
}

func (vm *VM) findNative(c *Class, name, descriptor string) nativeMethod {
	key := methodKey(name, descriptor)
	for k := c; k != nil; k = k.Super {
		if fn, ok := natives[k.Name+"."+key]; ok {
			return fn
		}
	}
	return nil
}

// BoxValue boxes a primitive of the given field type. References are
// returned unchanged.
func BoxValue(fieldType string, v Value) Value {
	switch k := fieldType[0]; k {
	case 'Z', 'B', 'C', 'S', 'I':
		return RefValue(native.BoxInt(k, int64(v.Int)))
	case 'J':
		return RefValue(native.BoxInt(k, v.Long))
	case 'F':
		return RefValue(native.BoxFloat(k, float64(v.Float)))
	case 'D':
		return RefValue(native.BoxFloat(k, v.Double))
	}
	return v
}

// UnboxValue returns the primitive held by a boxed value. Other values are
// returned unchanged.
func UnboxValue(v Value) Value {
	b, ok := v.Ref.(*native.Boxed)
	if !ok {
		return v
	}
	return primitive(b.Kind, b)
}

// primitive converts b to the primitive kind, as the Number accessors do.
func primitive(kind byte, b *native.Boxed) Value {
	i, f := b.Int, float64(b.Int)
	if b.IsFloat() {
		i, f = int64(b.Float), b.Float
	}
	switch kind {
	case 'J':
		return LongValue(i)
	case 'F':
		return FloatValue(float32(f))
	case 'D':
		return DoubleValue(f)
	case 'B':
		return IntValue(int32(int8(i)))
	case 'S':
		return IntValue(int32(int16(i)))
	case 'C':
		return IntValue(int32(uint16(i)))
	}
	return IntValue(int32(i))
}

func formatPrimitive(kind byte, v Value) string {
	return BoxValue(string(kind), v).Ref.(*native.Boxed).String()
}

// stringOf converts a value the way String.valueOf(Object) does.
func (vm *VM) stringOf(v Value) (string, error) {
	if v.IsNull() {
		return "null", nil
	}
	switch r := v.Ref.(type) {
	case string:
		return r, nil
	case *native.Boxed:
		return r.String(), nil
	case *JObject:
		s, err := vm.dispatch(r.Class, "toString", "()Ljava/lang/String;", []Value{v}, true)
		if err != nil {
			return "", err
		}
		str, _ := s.Ref.(string)
		return str, nil
	}
	return vm.objectString(v), nil
}

func (vm *VM) objectString(v Value) string {
	name := strings.ReplaceAll(vm.classOf(v).Name, "/", ".")
	return fmt.Sprintf("%s@%x", name, vm.identityHash(v))
}

func (vm *VM) identityHash(v Value) int32 {
	if vm.hashes == nil {
		vm.hashes = make(map[any]int32)
	}
	h, ok := vm.hashes[v.Ref]
	if !ok {
		h = int32(len(vm.hashes)+1) * 0x61c88647
		vm.hashes[v.Ref] = h
	}
	return h
}

func javaStringHash(s string) int32 {
	var h int32
	for _, r := range s {
		h = 31*h + int32(r)
	}
	return h
}

func boolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

func init() {
	registerNative("java/lang/Object", "<init>", "()V", func(vm *VM, args []Value) (Value, error) {
		return Value{}, nil
	})
	registerNative("java/lang/Object", "hashCode", "()I", func(vm *VM, args []Value) (Value, error) {
		return IntValue(vm.identityHash(args[0])), nil
	})
	registerNative("java/lang/Object", "equals", "(Ljava/lang/Object;)Z", func(vm *VM, args []Value) (Value, error) {
		return boolValue(!args[1].IsNull() && args[0].Ref == args[1].Ref), nil
	})
	registerNative("java/lang/Object", "toString", "()Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
		return RefValue(vm.objectString(args[0])), nil
	})

	registerNative("java/lang/Throwable", "<init>", "(Ljava/lang/String;)V", func(vm *VM, args []Value) (Value, error) {
		if obj, ok := args[0].Ref.(*JObject); ok {
			obj.Fields[messageField] = args[1]
		}
		return Value{}, nil
	})
	registerNative("java/lang/Throwable", "getMessage", "()Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
		if obj, ok := args[0].Ref.(*JObject); ok {
			if msg, ok := obj.Fields[messageField]; ok {
				return msg, nil
			}
		}
		return NullValue(), nil
	})

	registerStringNatives()
	registerWrapperNatives()
	registerPrintStreamNatives()
	registerHashMapNatives()
}

func registerStringNatives() {
	const class = "java/lang/String"
	registerNative(class, "length", "()I", func(vm *VM, args []Value) (Value, error) {
		return IntValue(int32(len([]rune(args[0].Ref.(string))))), nil
	})
	registerNative(class, "isEmpty", "()Z", func(vm *VM, args []Value) (Value, error) {
		return boolValue(args[0].Ref.(string) == ""), nil
	})
	registerNative(class, "equals", "(Ljava/lang/Object;)Z", func(vm *VM, args []Value) (Value, error) {
		s, ok := args[1].Ref.(string)
		return boolValue(ok && s == args[0].Ref.(string)), nil
	})
	registerNative(class, "hashCode", "()I", func(vm *VM, args []Value) (Value, error) {
		return IntValue(javaStringHash(args[0].Ref.(string))), nil
	})
	registerNative(class, "toString", "()Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
		return args[0], nil
	})
	registerNative(class, "concat", "(Ljava/lang/String;)Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
		if args[1].IsNull() {
			return Value{}, vm.NewJavaException("java/lang/NullPointerException", "concat with null")
		}
		return RefValue(args[0].Ref.(string) + args[1].Ref.(string)), nil
	})
	registerNative(class, "valueOf", "(Ljava/lang/Object;)Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
		s, err := vm.stringOf(args[0])
		return RefValue(s), err
	})
	for _, kind := range []byte("ZCIJFD") {
		registerNative(class, "valueOf", "("+string(kind)+")Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
			return RefValue(formatPrimitive(kind, args[0])), nil
		})
	}
	registerNative("java/lang/Integer", "parseInt", "(Ljava/lang/String;)I", func(vm *VM, args []Value) (Value, error) {
		s, _ := args[0].Ref.(string)
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, vm.NewJavaException("java/lang/NumberFormatException", "For input string: %q", s)
		}
		return IntValue(int32(n)), nil
	})
}

// accessors of the wrapper classes, by primitive kind.
var unwrapNames = map[byte]string{
	'Z': "booleanValue",
	'B': "byteValue",
	'C': "charValue",
	'S': "shortValue",
	'I': "intValue",
	'J': "longValue",
	'F': "floatValue",
	'D': "doubleValue",
}

func registerWrapperNatives() {
	for kind, accessor := range unwrapNames {
		class, _ := native.WrapperClass(kind)
		registerNative(class, "valueOf", "("+string(kind)+")L"+class+";", func(vm *VM, args []Value) (Value, error) {
			return BoxValue(string(kind), args[0]), nil
		})
		owner := class
		if kind != 'Z' && kind != 'C' {
			owner = "java/lang/Number"
		}
		registerNative(owner, accessor, "()"+string(kind), func(vm *VM, args []Value) (Value, error) {
			return primitive(kind, args[0].Ref.(*native.Boxed)), nil
		})
		registerNative(class, "toString", "()Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
			return RefValue(args[0].Ref.(*native.Boxed).String()), nil
		})
		registerNative(class, "hashCode", "()I", func(vm *VM, args []Value) (Value, error) {
			b := args[0].Ref.(*native.Boxed)
			if b.IsFloat() {
				return IntValue(javaStringHash(b.String())), nil
			}
			return IntValue(int32(b.Int ^ b.Int>>32)), nil
		})
		registerNative(class, "equals", "(Ljava/lang/Object;)Z", func(vm *VM, args []Value) (Value, error) {
			other, ok := args[1].Ref.(*native.Boxed)
			return boolValue(ok && other.Key() == args[0].Ref.(*native.Boxed).Key()), nil
		})
	}
}

func registerPrintStreamNatives() {
	const class = "java/io/PrintStream"
	printer := func(newline bool, format func(vm *VM, v Value) (string, error)) nativeMethod {
		return func(vm *VM, args []Value) (Value, error) {
			ps, ok := args[0].Ref.(*native.PrintStream)
			if !ok {
				return Value{}, fmt.Errorf("println receiver is not a PrintStream")
			}
			if len(args) == 1 {
				ps.Println()
				return Value{}, nil
			}
			s, err := format(vm, args[1])
			if err != nil {
				return Value{}, err
			}
			if newline {
				ps.Println(s)
			} else {
				ps.Print(s)
			}
			return Value{}, nil
		}
	}
	object := func(vm *VM, v Value) (string, error) { return vm.stringOf(v) }

	registerNative(class, "println", "()V", printer(true, nil))
	for _, newline := range []bool{true, false} {
		name := "print"
		if newline {
			name = "println"
		}
		registerNative(class, name, "(Ljava/lang/String;)V", printer(newline, object))
		registerNative(class, name, "(Ljava/lang/Object;)V", printer(newline, object))
		for _, kind := range []byte("ZCIJFD") {
			registerNative(class, name, "("+string(kind)+")V", printer(newline, func(vm *VM, v Value) (string, error) {
				return formatPrimitive(kind, v), nil
			}))
		}
	}
}

func registerHashMapNatives() {
	const class = "java/util/HashMap"
	hashMap := func(v Value) *native.HashMap { return v.Ref.(*native.HashMap) }
	toValue := func(v any) Value {
		if ref, ok := v.(Value); ok {
			return ref
		}
		return NullValue()
	}
	key := func(v Value) any {
		if v.IsNull() {
			return nil
		}
		return v.Ref
	}

	registerNative(class, "<init>", "()V", func(vm *VM, args []Value) (Value, error) {
		return Value{}, nil
	})
	registerNative(class, "get", "(Ljava/lang/Object;)Ljava/lang/Object;", func(vm *VM, args []Value) (Value, error) {
		return toValue(hashMap(args[0]).Get(key(args[1]))), nil
	})
	registerNative(class, "put", "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;", func(vm *VM, args []Value) (Value, error) {
		return toValue(hashMap(args[0]).Put(key(args[1]), args[2])), nil
	})
	registerNative(class, "size", "()I", func(vm *VM, args []Value) (Value, error) {
		return IntValue(int32(hashMap(args[0]).Size())), nil
	})
}
