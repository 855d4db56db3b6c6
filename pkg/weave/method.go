package weave

import (
	"strconv"

	"github.com/apex/log"
	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/typedef"
	"github.com/pkg/errors"
)

// Hooks are the strategy-specific steps of weaving one method.
type Hooks interface {
	// EmitInvocationHandler pushes the handler that receives the call.
	EmitInvocationHandler(e *bytecode.Emitter)
	// ProceedCallOpcode is the invoke instruction that reaches the proceed target.
	ProceedCallOpcode() byte
	// EmitProceedTarget pushes the receiver of the proceed call.
	EmitProceedTarget(e *bytecode.Emitter)
	// ProceedMethodTarget resolves what proceeding runs. A nil method means
	// there is no original logic and the default implementation applies.
	ProceedMethodTarget() (*typedef.Method, error)
	// ProxyMethod installs the entry point. build emits the interception
	// sequence into the body it is given.
	ProxyMethod(target *typedef.Method, build func(*bytecode.Body) error) error
	// ImplementProceed emits the body of the proceed stub.
	ImplementProceed(e *bytecode.Emitter, target *typedef.Method) error
}

// MethodWeaver weaves one method. The interception sequence it emits is
//
//	handler.invoke(new Invocation(this, <sig>$Method, "<sig>$Proceed", new Object[]{args...}))
//
// followed by unboxing the result. The handler proceeds by calling the
// private <sig>$Proceed(Object[]) stub, which unpacks the arguments and
// calls the proceed target.
type MethodWeaver struct {
	Config    Config
	Source    *typedef.Type
	Proxy     *typedef.Type
	Method    *typedef.Method
	Signature string

	hooks  Hooks
	clinit func() (*StaticInitializer, error)
	log    log.Interface

	// Woven is set once the entry point has been replaced.
	Woven bool
}

func newMethodWeaver(cfg Config, source, proxy *typedef.Type, m *typedef.Method, clinit func() (*StaticInitializer, error), l log.Interface) *MethodWeaver {
	return &MethodWeaver{
		Config:    cfg,
		Source:    source,
		Proxy:     proxy,
		Method:    m,
		Signature: m.GenerateSignature(),
		clinit:    clinit,
		log:       l,
	}
}

// Weave resolves the proceed target and installs the entry point.
func (w *MethodWeaver) Weave() error {
	target, err := w.hooks.ProceedMethodTarget()
	if err != nil {
		return errors.Wrapf(err, "resolving proceed target of %s", w.Method)
	}
	return w.hooks.ProxyMethod(target, func(body *bytecode.Body) error {
		key, err := w.defineMethodKey()
		if err != nil {
			return err
		}
		proceed, err := w.defineProceed(target)
		if err != nil {
			return err
		}
		if err := w.ImplementBody(body, key, proceed); err != nil {
			return err
		}
		w.Woven = true
		w.log.WithFields(log.Fields{
			"class":   w.Proxy.Name,
			"method":  w.Signature,
			"proceed": proceedName(target),
		}).Debug("woven")
		return nil
	})
}

func proceedName(target *typedef.Method) string {
	if target == nil {
		return "default"
	}
	return target.Name
}

// memberName returns the name of a generated member for the method.
// Overloads whose parameter types share simple names generate the same
// signature, so a taken name gets an ordinal before the suffix.
func (w *MethodWeaver) memberName(suffix string, taken func(string) bool) string {
	name := w.Signature + suffix
	for n := 2; taken(name); n++ {
		name = w.Signature + "$" + strconv.Itoa(n) + suffix
	}
	return name
}

// defineMethodKey adds a static field holding the method's name and
// descriptor, initialised in the static initializer.
func (w *MethodWeaver) defineMethodKey() (string, error) {
	name := w.memberName(MethodSuffix, func(n string) bool { return w.Proxy.Field(n) != nil })
	w.Proxy.AddField(classfile.AccPrivate|classfile.AccStatic|classfile.AccFinal|classfile.AccSynthetic, name, stringType)

	clinit, err := w.clinit()
	if err != nil {
		return "", err
	}
	e := clinit.Emitter()
	e.String(w.Method.Name + w.Method.Descriptor())
	e.PutStatic(w.Proxy.Name, name, stringType)
	return name, nil
}

// defineProceed adds the proceed stub to the proxy type.
func (w *MethodWeaver) defineProceed(target *typedef.Method) (*typedef.Method, error) {
	name := w.memberName(ProceedSuffix, func(n string) bool { return w.Proxy.Method(n, ProceedDesc) != nil })
	stub, err := typedef.NewMethod(classfile.AccPrivate|classfile.AccSynthetic, name, ProceedDesc)
	if err != nil {
		return nil, err
	}
	stub.Body = bytecode.NewBody()
	stub.Body.MaxLocals = 2
	e := bytecode.NewEmitter(stub.Body, &w.Proxy.Pool)
	if err := w.hooks.ImplementProceed(e, target); err != nil {
		return nil, err
	}
	if err := e.Finish(); err != nil {
		return nil, errors.Wrapf(err, "emitting %s", name)
	}
	return w.Proxy.AddMethod(stub), nil
}

// ImplementBody emits the interception sequence into body.
func (w *MethodWeaver) ImplementBody(body *bytecode.Body, key string, proceed *typedef.Method) error {
	m := w.Method
	body.MaxLocals = uint16(1 + m.ArgSlots())
	e := bytecode.NewEmitter(body, &w.Proxy.Pool)

	w.hooks.EmitInvocationHandler(e)

	e.New(w.Config.InvocationType)
	e.Dup()
	e.This()
	e.GetStatic(w.Proxy.Name, key, stringType)
	e.String(proceed.Name)
	e.Int(int32(len(m.Parameters)))
	e.ANewArray(objectArrayClass)
	for i, p := range m.Parameters {
		e.Dup()
		e.Int(int32(i))
		e.Load(p.Type, m.ParameterSlot(i))
		e.Box(p.Type)
		e.ArrayStore()
	}
	e.Invoke(bytecode.OpInvokespecial, w.Config.InvocationType, typedef.ConstructorName, InvocationInit)
	e.Invoke(bytecode.OpInvokeinterface, w.Config.HandlerType, InvokeMethod, w.Config.invokeDesc())

	if m.ReturnType == "V" {
		e.Pop(objectType)
	} else {
		e.Unbox(m.ReturnType)
	}
	e.Return(m.ReturnType)
	return errors.Wrapf(e.Finish(), "emitting %s", m)
}

// ImplementProceed is the proceed stub for a method with original logic:
// unpack the argument array, call target on the proceed target and box the
// result.
func (w *MethodWeaver) ImplementProceed(e *bytecode.Emitter, target *typedef.Method) error {
	w.hooks.EmitProceedTarget(e)
	for i, p := range target.Parameters {
		e.Load("[Ljava/lang/Object;", 1)
		e.Int(int32(i))
		e.ArrayLoad()
		e.Unbox(p.Type)
	}
	e.Invoke(w.hooks.ProceedCallOpcode(), target.Owner.Name, target.Name, target.Descriptor())
	boxResult(e, target.ReturnType)
	return nil
}

// ImplementDefault is the proceed stub for a method without original logic:
// return the boxed default value of the return type, or null.
func (w *MethodWeaver) ImplementDefault(e *bytecode.Emitter) error {
	e.DefaultValue(w.Method.ReturnType)
	boxResult(e, w.Method.ReturnType)
	return nil
}

func boxResult(e *bytecode.Emitter, returnType string) {
	if returnType == "V" {
		e.Null()
	} else {
		e.Box(returnType)
	}
	e.Return(objectType)
}
