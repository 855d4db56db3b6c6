package vm

import (
	"fmt"

	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/native"
)

// executeInvoke handles the four invoke instructions.
func (vm *VM) executeInvoke(frame *Frame, opcode byte) error {
	index := frame.ReadU16()
	if opcode == bytecode.OpInvokeinterface {
		frame.ReadU8() // count
		frame.ReadU8() // zero
	}
	if opcode == bytecode.OpInvokedynamic {
		return fmt.Errorf("invokedynamic is not supported")
	}
	mnemonic := bytecode.Mnemonic(opcode)

	ref, err := classfile.ResolveAnyMethodref(frame.Class.File.ConstantPool, index)
	if err != nil {
		return fmt.Errorf("%s: %w", mnemonic, err)
	}
	desc, err := classfile.ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return fmt.Errorf("%s: %w", mnemonic, err)
	}

	n := len(desc.Params)
	if opcode != bytecode.OpInvokestatic {
		n++
	}
	args := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = frame.Pop()
	}

	var ret Value
	switch opcode {
	case bytecode.OpInvokestatic:
		var c *Class
		if c, err = vm.initializedClass(ref.ClassName); err == nil {
			ret, err = vm.dispatch(c, ref.MethodName, ref.Descriptor, args, false)
		}
	case bytecode.OpInvokespecial:
		ret, err = vm.invokeSpecial(ref.ClassName, ref.MethodName, ref.Descriptor, args)
	default:
		ret, err = vm.invokeVirtual(ref.ClassName, ref.MethodName, ref.Descriptor, args)
	}
	if err != nil {
		return err
	}
	if !desc.IsVoid() {
		frame.Push(ret)
	}
	return nil
}

// invokeSpecial calls a constructor, a private method or a superclass
// method without virtual dispatch.
func (vm *VM) invokeSpecial(owner, name, descriptor string, args []Value) (Value, error) {
	if args[0].IsNull() {
		return Value{}, vm.NewJavaException("java/lang/NullPointerException", "invoking %s on null", name)
	}
	c, err := vm.LoadClass(owner)
	if err != nil {
		return Value{}, err
	}
	if _, ok := args[0].Ref.(*JObject); !ok {
		return vm.invokeNativeReceiver(c, name, descriptor, args)
	}
	return vm.dispatch(c, name, descriptor, args, false)
}

// invokeVirtual selects the method on the receiver's runtime class. A
// private resolved method is called directly.
func (vm *VM) invokeVirtual(owner, name, descriptor string, args []Value) (Value, error) {
	recv := args[0]
	if recv.IsNull() {
		return Value{}, vm.NewJavaException("java/lang/NullPointerException", "invoking %s.%s on null", owner, name)
	}
	obj, ok := recv.Ref.(*JObject)
	if !ok {
		return vm.invokeNativeReceiver(vm.classOf(recv), name, descriptor, args)
	}

	resolved, err := vm.LoadClass(owner)
	if err != nil {
		return Value{}, err
	}
	if m := resolved.FindMethod(name, descriptor); m != nil && m.IsPrivate() {
		return vm.executeMethod(m, args)
	}
	return vm.dispatch(obj.Class, name, descriptor, args, true)
}

// dispatch runs name:descriptor found from c, falling back to the natives of
// the system classes in c's hierarchy.
func (vm *VM) dispatch(c *Class, name, descriptor string, args []Value, virtual bool) (Value, error) {
	var m *Method
	if virtual {
		m = c.findVirtual(name, descriptor)
	} else {
		m = c.FindMethod(name, descriptor)
	}
	if m != nil {
		return vm.executeMethod(m, args)
	}
	if fn := vm.findNative(c, name, descriptor); fn != nil {
		return fn(vm, args)
	}
	return Value{}, vm.NewJavaException("java/lang/NoSuchMethodError", "%s.%s:%s", c.Name, name, descriptor)
}

// invokeNativeReceiver calls a method on a value implemented in Go.
func (vm *VM) invokeNativeReceiver(c *Class, name, descriptor string, args []Value) (Value, error) {
	switch r := args[0].Ref.(type) {
	case *handlerObject:
		if name == "invoke" && len(args) == 2 {
			inv, ok := args[1].Ref.(*Invocation)
			if !ok {
				return Value{}, fmt.Errorf("invoke: argument is not an invocation")
			}
			return r.handler.Invoke(inv)
		}
	case *Invocation:
		if v, ok, err := r.call(name, descriptor, args[1:]); ok {
			return v, err
		}
	}
	if fn := vm.findNative(c, name, descriptor); fn != nil {
		return fn(vm, args)
	}
	return Value{}, vm.NewJavaException("java/lang/NoSuchMethodError", "%s.%s:%s", c.Name, name, descriptor)
}

// classOf returns the runtime class of a non-null reference.
func (vm *VM) classOf(v Value) *Class {
	switch r := v.Ref.(type) {
	case *JObject:
		return r.Class
	case *JArray:
		return vm.systemClass(r.Type)
	case string:
		return vm.systemClass("java/lang/String")
	case *native.Boxed:
		return vm.systemClass(r.ClassName())
	case *native.PrintStream:
		return vm.systemClass("java/io/PrintStream")
	case *native.HashMap:
		return vm.systemClass("java/util/HashMap")
	case *Invocation:
		return vm.systemClass(vm.InvocationClass)
	case *handlerObject:
		c := vm.systemClass(handlerObjectClass)
		if len(c.Interfaces) == 0 {
			c.Interfaces = []*Class{vm.systemClass(vm.HandlerClass)}
		}
		return c
	}
	return vm.systemClass("java/lang/Object")
}

// isInstance reports whether a non-null reference is an instance of class.
func (vm *VM) isInstance(v Value, class string) bool {
	return vm.classOf(v).IsSubclassOf(class)
}
