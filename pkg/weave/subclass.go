package weave

import (
	"slices"

	"github.com/apex/log"
	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/typedef"
	"github.com/pkg/errors"
)

// ProxySuffix is appended to the source class name to name its proxy subclass.
const ProxySuffix = "$Proxy"

// SubclassWeaver leaves the source class untouched and generates a proxy
// subclass <Name>$Proxy whose overrides reach the original methods with
// invokespecial.
type SubclassWeaver struct {
	cfg    Config
	source *typedef.Type
	proxy  *typedef.Type
	log    log.Interface
	clinit *StaticInitializer
}

var _ ClassWeaver = (*SubclassWeaver)(nil)

// NewSubclassWeaver creates the proxy type for source, with handler
// accessors and one forwarding constructor per accessible source constructor.
func NewSubclassWeaver(cfg Config, source *typedef.Type, l log.Interface) (*SubclassWeaver, error) {
	cfg = cfg.withDefaults()
	if source.IsInterface() {
		return nil, errors.Errorf("%s is an interface", source.Name)
	}
	if source.AccessFlags&classfile.AccFinal != 0 {
		return nil, errors.Wrapf(ErrFinalType, "%s", source.Name)
	}

	proxy := typedef.NewType(source.Name+ProxySuffix, source.Name)
	proxy.AccessFlags = classfile.AccPublic | classfile.AccSuper | classfile.AccSynthetic
	if source.MajorVersion > proxy.MajorVersion {
		proxy.MajorVersion = source.MajorVersion
	}

	if _, err := ensureHandlerAccessors(cfg, proxy); err != nil {
		return nil, err
	}

	for _, ctor := range source.Constructors() {
		if ctor.IsPrivate() {
			continue
		}
		if err := forwardConstructor(proxy, ctor); err != nil {
			return nil, err
		}
	}
	if len(proxy.Constructors()) == 0 {
		return nil, errors.Wrapf(ErrNoConstructor, "%s has no accessible constructor", source.Name)
	}
	return &SubclassWeaver{cfg: cfg, source: source, proxy: proxy, log: l}, nil
}

func forwardConstructor(proxy *typedef.Type, ctor *typedef.Method) error {
	m := &typedef.Method{
		AccessFlags: classfile.AccPublic | ctor.AccessFlags&classfile.AccVarargs,
		Name:        typedef.ConstructorName,
		Parameters:  slices.Clone(ctor.Parameters),
		ReturnType:  "V",
		Body:        bytecode.NewBody(),
	}
	e := bytecode.NewEmitter(m.Body, &proxy.Pool)
	e.This()
	for i, p := range m.Parameters {
		e.Load(p.Type, m.ParameterSlot(i))
	}
	e.Invoke(bytecode.OpInvokespecial, proxy.SuperName, typedef.ConstructorName, m.Descriptor())
	e.Return("V")
	if err := e.Finish(); err != nil {
		return errors.Wrapf(err, "forwarding %s", ctor)
	}
	proxy.AddMethod(m)
	return nil
}

// ProxyType returns the generated subclass.
func (w *SubclassWeaver) ProxyType() *typedef.Type { return w.proxy }

// StaticInitializer returns the proxy's class initializer.
func (w *SubclassWeaver) StaticInitializer() (*StaticInitializer, error) {
	if w.clinit == nil {
		s, err := openStaticInitializer(w.proxy)
		if err != nil {
			return nil, err
		}
		w.clinit = s
	}
	return w.clinit, nil
}

// MethodWeaver returns the weaver for a method of the source class.
func (w *SubclassWeaver) MethodWeaver(m *typedef.Method) (*MethodWeaver, error) {
	if m.Owner != w.source {
		return nil, errors.Errorf("%s does not belong to %s", m, w.source.Name)
	}
	if m.IsFinal() {
		return nil, errors.Wrapf(ErrFinalMethod, "%s", m)
	}
	base := newMethodWeaver(w.cfg, w.source, w.proxy, m, w.StaticInitializer, w.log)
	base.hooks = &subclassMethod{MethodWeaver: base}
	return base, nil
}

// Finish closes the proxy's static initializer.
func (w *SubclassWeaver) Finish() error {
	clinit, err := w.StaticInitializer()
	if err != nil {
		return err
	}
	return errors.Wrapf(clinit.Close(), "closing static initializer of %s", w.proxy.Name)
}

type subclassMethod struct {
	*MethodWeaver
}

func (h *subclassMethod) EmitInvocationHandler(e *bytecode.Emitter) {
	e.This()
	e.GetField(h.Proxy.Name, HandlerField, h.Config.handlerDesc())
}

// ProceedCallOpcode is invokespecial: the proxy's own override must be bypassed.
func (h *subclassMethod) ProceedCallOpcode() byte { return bytecode.OpInvokespecial }

func (h *subclassMethod) EmitProceedTarget(e *bytecode.Emitter) { e.This() }

func (h *subclassMethod) ProceedMethodTarget() (*typedef.Method, error) {
	if h.Method.IsAbstract() {
		return nil, nil
	}
	return h.Method, nil
}

func (h *subclassMethod) ProxyMethod(target *typedef.Method, build func(*bytecode.Body) error) error {
	if h.Config.IsHandlerAccessor(h.Method) {
		return nil
	}
	src := h.Method
	override := &typedef.Method{
		AccessFlags:   src.AccessFlags &^ (classfile.AccAbstract | classfile.AccNative | classfile.AccSynchronized),
		Name:          src.Name,
		Parameters:    slices.Clone(src.Parameters),
		ReturnType:    src.ReturnType,
		SignatureTail: src.SignatureTail,
		Body:          bytecode.NewBody(),

		GenericParameters: cloneGenerics(src.GenericParameters),
	}
	if err := build(override.Body); err != nil {
		return err
	}
	h.Proxy.AddMethod(override)
	return nil
}

func (h *subclassMethod) ImplementProceed(e *bytecode.Emitter, target *typedef.Method) error {
	if target == nil {
		return h.ImplementDefault(e)
	}
	return h.MethodWeaver.ImplementProceed(e, target)
}
