package vm

import (
	"fmt"
	"strings"
)

// proceedDescriptor is the descriptor of the proceed stubs woven into a proxy.
const proceedDescriptor = "([Ljava/lang/Object;)Ljava/lang/Object;"

// handlerObjectClass is the runtime class reported for Go handlers.
const handlerObjectClass = "jweave/GoInvocationHandler"

// InvocationHandler receives the calls intercepted on a woven proxy. The
// returned value is the boxed result, or null for void methods.
type InvocationHandler interface {
	Invoke(inv *Invocation) (Value, error)
}

// InvocationHandlerFunc adapts a function to InvocationHandler.
type InvocationHandlerFunc func(inv *Invocation) (Value, error)

func (f InvocationHandlerFunc) Invoke(inv *Invocation) (Value, error) { return f(inv) }

type handlerObject struct {
	handler InvocationHandler
}

// Handler wraps h as a reference that woven code can store and call.
func (vm *VM) Handler(h InvocationHandler) Value {
	return RefValue(&handlerObject{handler: h})
}

// Invocation is one intercepted call: an instance of the runtime
// Invocation class built by the woven entry point.
type Invocation struct {
	vm      *VM
	proxy   Value
	method  string
	proceed string
	args    *JArray
}

// Proxy returns the object the call was made on.
func (inv *Invocation) Proxy() Value { return inv.proxy }

// Method returns the intercepted method's name followed by its descriptor.
func (inv *Invocation) Method() string { return inv.method }

// Name returns the intercepted method's name.
func (inv *Invocation) Name() string {
	name, _, _ := strings.Cut(inv.method, "(")
	return name
}

// Descriptor returns the intercepted method's descriptor.
func (inv *Invocation) Descriptor() string {
	return strings.TrimPrefix(inv.method, inv.Name())
}

// ProceedName is the name of the stub that runs the original logic.
func (inv *Invocation) ProceedName() string { return inv.proceed }

// Arguments returns the boxed arguments of the call.
func (inv *Invocation) Arguments() []Value {
	if inv.args == nil {
		return nil
	}
	return inv.args.Elements
}

// Proceed runs the original logic with the call's own arguments.
func (inv *Invocation) Proceed() (Value, error) {
	return inv.proceedWith(inv.args)
}

// ProceedWith runs the original logic with replacement boxed arguments.
func (inv *Invocation) ProceedWith(args ...Value) (Value, error) {
	arr := &JArray{Type: "[Ljava/lang/Object;", Elements: args}
	return inv.proceedWith(arr)
}

func (inv *Invocation) proceedWith(args *JArray) (Value, error) {
	obj, ok := inv.proxy.Ref.(*JObject)
	if !ok {
		return Value{}, fmt.Errorf("proceed: proxy is not an object")
	}
	for c := obj.Class; c != nil; c = c.Super {
		if m := c.DeclaredMethod(inv.proceed, proceedDescriptor); m != nil {
			return inv.vm.executeMethod(m, []Value{inv.proxy, RefValue(args)})
		}
	}
	return Value{}, inv.vm.NewJavaException("java/lang/NoSuchMethodError", "%s.%s", obj.Class.Name, inv.proceed)
}

// call implements the methods of the runtime Invocation class. ok is false
// for methods it does not know.
func (inv *Invocation) call(name, descriptor string, args []Value) (v Value, ok bool, err error) {
	switch methodKey(name, descriptor) {
	case "<init>:(Ljava/lang/Object;Ljava/lang/String;Ljava/lang/String;[Ljava/lang/Object;)V":
		inv.proxy = args[0]
		inv.method, _ = args[1].Ref.(string)
		inv.proceed, _ = args[2].Ref.(string)
		inv.args, _ = args[3].Ref.(*JArray)
		return Value{}, true, nil
	case "getProxy:()Ljava/lang/Object;":
		return inv.proxy, true, nil
	case "getMethod:()Ljava/lang/String;":
		return RefValue(inv.method), true, nil
	case "getArguments:()[Ljava/lang/Object;":
		if inv.args == nil {
			return NullValue(), true, nil
		}
		return RefValue(inv.args), true, nil
	case "proceed:()Ljava/lang/Object;":
		v, err := inv.Proceed()
		return v, true, err
	case "proceed:([Ljava/lang/Object;)Ljava/lang/Object;":
		arr, _ := args[0].Ref.(*JArray)
		if arr == nil {
			return Value{}, true, inv.vm.NewJavaException("java/lang/NullPointerException", "proceed with null arguments")
		}
		v, err := inv.proceedWith(arr)
		return v, true, err
	}
	return Value{}, false, nil
}
