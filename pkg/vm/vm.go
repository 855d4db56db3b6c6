package vm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/native"
)

// maxFrameDepth is the maximum number of nested method calls.
const maxFrameDepth = 1024

// Default names of the interception runtime types.
const (
	DefaultInvocationClass = "jweave/Invocation"
	DefaultHandlerClass    = "jweave/InvocationHandler"
)

// VM is the virtual machine that executes Java bytecode. Classes outside the
// JDK and jweave packages are loaded through Loader and interpreted; the
// rest are provided natively.
type VM struct {
	Loader ClassLoader
	Stdout io.Writer

	// InvocationClass and HandlerClass name the runtime types woven code
	// links against.
	InvocationClass string
	HandlerClass    string

	classes    map[string]*Class
	frameDepth int
	out        *native.PrintStream
	hashes     map[any]int32
}

// NewVM creates a new VM loading classes from loader.
func NewVM(loader ClassLoader) *VM {
	return &VM{
		Loader:          loader,
		Stdout:          os.Stdout,
		InvocationClass: DefaultInvocationClass,
		HandlerClass:    DefaultHandlerClass,
		classes:         make(map[string]*Class),
	}
}

// LoadClass returns the loaded class name, loading it and its supertypes on
// first use. It does not initialise the class.
func (vm *VM) LoadClass(name string) (*Class, error) {
	if c, ok := vm.classes[name]; ok {
		return c, nil
	}
	if isSystemClass(name) {
		return vm.systemClass(name), nil
	}
	if vm.Loader == nil {
		return nil, fmt.Errorf("loading %s: no class loader", name)
	}
	cf, err := vm.Loader.LoadClass(name)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	c, err := newClass(name, cf)
	if err != nil {
		return nil, err
	}
	vm.classes[name] = c

	if super := cf.SuperClassName(); super != "" {
		if c.Super, err = vm.LoadClass(super); err != nil {
			delete(vm.classes, name)
			return nil, fmt.Errorf("loading superclass of %s: %w", name, err)
		}
	}
	ifaces, err := cf.InterfaceNames()
	if err != nil {
		delete(vm.classes, name)
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	for _, iname := range ifaces {
		i, err := vm.LoadClass(iname)
		if err != nil {
			delete(vm.classes, name)
			return nil, fmt.Errorf("loading interface of %s: %w", name, err)
		}
		c.Interfaces = append(c.Interfaces, i)
	}
	return c, nil
}

// systemClass returns a class whose methods are native. Its hierarchy comes
// from Loader when it can describe the class, and from systemSupers
// otherwise.
func (vm *VM) systemClass(name string) *Class {
	if c, ok := vm.classes[name]; ok {
		return c
	}
	c, _ := newClass(name, nil)
	c.System = true
	c.state = classInitialized
	vm.classes[name] = c
	if name == "java/lang/Object" {
		return c
	}

	super, ok := systemSupers[name]
	if !ok {
		super = "java/lang/Object"
	}
	if vm.Loader != nil && name[0] != '[' {
		if cf, err := vm.Loader.LoadClass(name); err == nil {
			c.File = cf
			super = cf.SuperClassName()
			ifaces, _ := cf.InterfaceNames()
			for _, i := range ifaces {
				c.Interfaces = append(c.Interfaces, vm.systemClass(i))
			}
		}
	}
	if super != "" {
		c.Super = vm.systemClass(super)
	}
	return c
}

// initClass runs the static initializer of c once, after its superclass's.
func (vm *VM) initClass(c *Class) error {
	if c.System || c.state != classLoaded {
		return nil
	}
	c.state = classInitializing
	if c.Super != nil {
		if err := vm.initClass(c.Super); err != nil {
			return err
		}
	}
	if m := c.DeclaredMethod("<clinit>", "()V"); m != nil {
		if _, err := vm.executeMethod(m, nil); err != nil {
			return err
		}
	}
	c.state = classInitialized
	return nil
}

func (vm *VM) initializedClass(name string) (*Class, error) {
	c, err := vm.LoadClass(name)
	if err != nil {
		return nil, err
	}
	if err := vm.initClass(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Execute finds and executes the main method of the class.
func (vm *VM) Execute(className string) (err error) {
	defer recoverPanic(&err)

	c, err := vm.initializedClass(className)
	if err != nil {
		return err
	}
	method := c.DeclaredMethod("main", "([Ljava/lang/String;)V")
	if method == nil || !method.IsStatic() {
		return fmt.Errorf("main method not found in %s", className)
	}
	_, err = vm.executeMethod(method, []Value{RefValue(NewArray("[Ljava/lang/String;", 0))})
	return err
}

// New instantiates className and runs the constructor with descriptor
// ctorDesc.
func (vm *VM) New(className, ctorDesc string, args ...Value) (obj Value, err error) {
	defer recoverPanic(&err)

	v, err := vm.newObject(className)
	if err != nil {
		return Value{}, err
	}
	if _, err := vm.invokeSpecial(className, "<init>", ctorDesc, append([]Value{v}, args...)); err != nil {
		return Value{}, err
	}
	return v, nil
}

// Invoke calls an instance method on receiver with virtual dispatch.
func (vm *VM) Invoke(receiver Value, name, descriptor string, args ...Value) (ret Value, err error) {
	defer recoverPanic(&err)

	if receiver.IsNull() {
		return Value{}, vm.NewJavaException("java/lang/NullPointerException", "invoking %s on null", name)
	}
	all := append([]Value{receiver}, args...)
	if obj, ok := receiver.Ref.(*JObject); ok {
		return vm.dispatch(obj.Class, name, descriptor, all, true)
	}
	return vm.invokeNativeReceiver(vm.classOf(receiver), name, descriptor, all)
}

// InvokeSpecial calls the instance method declared by className, or
// inherited by it, without virtual selection. Private methods are reachable.
func (vm *VM) InvokeSpecial(receiver Value, className, name, descriptor string, args ...Value) (ret Value, err error) {
	defer recoverPanic(&err)

	return vm.invokeSpecial(className, name, descriptor, append([]Value{receiver}, args...))
}

// InvokeStatic calls a static method.
func (vm *VM) InvokeStatic(className, name, descriptor string, args ...Value) (ret Value, err error) {
	defer recoverPanic(&err)

	c, err := vm.initializedClass(className)
	if err != nil {
		return Value{}, err
	}
	return vm.dispatch(c, name, descriptor, args, false)
}

// GetStatic returns the value of a static field, initialising its class.
func (vm *VM) GetStatic(className, field string) (Value, error) {
	c, err := vm.initializedClass(className)
	if err != nil {
		return Value{}, err
	}
	owner := staticOwner(c, field)
	if owner == nil {
		return Value{}, fmt.Errorf("static field %s.%s not found", className, field)
	}
	return owner.Statics[field], nil
}

func recoverPanic(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("vm: %v", r)
	}
}

// staticOwner returns the class in c's hierarchy that declares the static
// field name.
func staticOwner(c *Class, name string) *Class {
	for k := c; k != nil; k = k.Super {
		if _, ok := k.Statics[name]; ok {
			return k
		}
		for _, i := range k.Interfaces {
			if o := staticOwner(i, name); o != nil {
				return o
			}
		}
	}
	return nil
}

// newObject allocates an instance with every field at its default value.
func (vm *VM) newObject(className string) (Value, error) {
	switch className {
	case vm.InvocationClass:
		return RefValue(&Invocation{vm: vm}), nil
	case "java/util/HashMap":
		return RefValue(native.NewHashMap()), nil
	}

	c, err := vm.initializedClass(className)
	if err != nil {
		return Value{}, err
	}
	if c.File != nil && c.File.AccessFlags&(classfile.AccAbstract|classfile.AccInterface) != 0 {
		return Value{}, vm.NewJavaException("java/lang/InstantiationError", "%s", className)
	}
	obj := &JObject{Class: c, Fields: make(map[string]Value)}
	if !c.System {
		for _, f := range c.instanceFields() {
			obj.Fields[f.Name] = ZeroValue(f.Descriptor)
		}
	}
	return RefValue(obj), nil
}

// executeMethod executes a method with the given arguments and returns its
// return value. args holds one Value per parameter, receiver first.
func (vm *VM) executeMethod(method *Method, args []Value) (Value, error) {
	if method.IsAbstract() {
		return Value{}, vm.NewJavaException("java/lang/AbstractMethodError", "%s", method)
	}
	if method.Code == nil {
		if fn := vm.findNative(method.Class, method.Name, method.Descriptor); fn != nil {
			return fn(vm, args)
		}
		return Value{}, fmt.Errorf("method %s has no Code attribute", method)
	}

	vm.frameDepth++
	defer func() { vm.frameDepth-- }()
	if vm.frameDepth > maxFrameDepth {
		return Value{}, vm.NewJavaException("java/lang/StackOverflowError", "frame depth exceeded %d", maxFrameDepth)
	}

	code := method.Code
	frame := NewFrame(code.MaxLocals, code.MaxStack, code.Code, method.Class)
	frame.Method = method

	// Set arguments into local variables
	slot := 0
	for _, arg := range args {
		frame.SetLocal(slot, arg)
		slot++
		if arg.Wide() {
			slot++
		}
	}

	// Execution loop
	for frame.PC < len(frame.Code) {
		frame.Start = frame.PC
		opcode := frame.ReadU8()

		retVal, hasReturn, err := vm.executeInstruction(frame, opcode)
		if err != nil {
			var jex *JavaException
			if errors.As(err, &jex) {
				if handler, ok := vm.findHandler(frame, jex); ok {
					frame.Clear()
					frame.Push(RefValue(jex.Object))
					frame.PC = handler
					continue
				}
			}
			return Value{}, err
		}
		if hasReturn {
			return retVal, nil
		}
	}

	return Value{}, fmt.Errorf("%s: fell off the end of the code", method)
}

// findHandler returns the exception handler covering the current
// instruction that catches jex.
func (vm *VM) findHandler(frame *Frame, jex *JavaException) (int, bool) {
	pool := frame.Class.File.ConstantPool
	for _, h := range frame.Method.Code.ExceptionHandlers {
		if frame.Start < int(h.StartPC) || frame.Start >= int(h.EndPC) {
			continue
		}
		if h.CatchType == 0 {
			return int(h.HandlerPC), true
		}
		name, err := classfile.GetClassName(pool, h.CatchType)
		if err == nil && jex.Object.Class.IsSubclassOf(name) {
			return int(h.HandlerPC), true
		}
	}
	return 0, false
}
