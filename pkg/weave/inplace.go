package weave

import (
	"github.com/apex/log"
	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/typedef"
	"github.com/pkg/errors"
)

// Class file versions: methods are reached through invokevirtual on private
// members, which needs nestmate semantics.
const (
	minWeaveVersion = 51
	nestmateVersion = 55
)

// InPlaceClassWeaver makes a class its own proxy. Concrete method bodies
// move to private <sig>$Original methods and the methods themselves become
// interception entry points.
type InPlaceClassWeaver struct {
	cfg    Config
	typ    *typedef.Type
	log    log.Interface
	clinit *StaticInitializer
}

var _ ClassWeaver = (*InPlaceClassWeaver)(nil)

// NewInPlaceClassWeaver prepares t for in-place weaving, adding handler
// accessors when it lacks them.
func NewInPlaceClassWeaver(cfg Config, t *typedef.Type, l log.Interface) (*InPlaceClassWeaver, error) {
	cfg = cfg.withDefaults()
	if t.IsInterface() {
		return nil, errors.Errorf("%s is an interface", t.Name)
	}
	if t.MajorVersion < minWeaveVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "%s has version %d", t.Name, t.MajorVersion)
	}
	if t.MajorVersion < nestmateVersion {
		t.MajorVersion = nestmateVersion
		t.MinorVersion = 0
	}

	added, err := ensureHandlerAccessors(cfg, t)
	if err != nil {
		return nil, err
	}
	if len(added) > 0 {
		l.WithFields(log.Fields{"class": t.Name, "members": added}).Debug("added handler accessors")
	}
	return &InPlaceClassWeaver{cfg: cfg, typ: t, log: l}, nil
}

// ProxyType returns the class itself.
func (w *InPlaceClassWeaver) ProxyType() *typedef.Type { return w.typ }

// StaticInitializer returns the class initializer with its trailing return
// stripped, creating it on first use.
func (w *InPlaceClassWeaver) StaticInitializer() (*StaticInitializer, error) {
	if w.clinit == nil {
		s, err := openStaticInitializer(w.typ)
		if err != nil {
			return nil, err
		}
		w.clinit = s
	}
	return w.clinit, nil
}

// MethodWeaver returns the in-place weaver for m.
func (w *InPlaceClassWeaver) MethodWeaver(m *typedef.Method) (*MethodWeaver, error) {
	if m.Owner != w.typ {
		return nil, errors.Errorf("%s does not belong to %s", m, w.typ.Name)
	}
	base := newMethodWeaver(w.cfg, w.typ, w.typ, m, w.StaticInitializer, w.log)
	base.hooks = &inPlaceMethod{MethodWeaver: base}
	return base, nil
}

// Finish makes the class concrete and its constructor public, and closes the
// static initializer.
func (w *InPlaceClassWeaver) Finish() error {
	clinit, err := w.StaticInitializer()
	if err != nil {
		return err
	}
	if err := clinit.Close(); err != nil {
		return errors.Wrapf(err, "closing static initializer of %s", w.typ.Name)
	}

	w.typ.AccessFlags &^= classfile.AccAbstract

	ctors := w.typ.Constructors()
	switch len(ctors) {
	case 0:
		return errors.Wrapf(ErrNoConstructor, "%s", w.typ.Name)
	case 1:
		ctors[0].SetAccess(classfile.AccPublic)
	default:
		return errors.Wrapf(ErrAmbiguousConstructor, "%s has %d", w.typ.Name, len(ctors))
	}
	return nil
}

type inPlaceMethod struct {
	*MethodWeaver
}

func (h *inPlaceMethod) EmitInvocationHandler(e *bytecode.Emitter) {
	e.This()
	e.Invoke(bytecode.OpInvokevirtual, h.Proxy.Name, h.Config.Getter, h.Config.getterDesc())
}

// ProceedCallOpcode is invokevirtual so that subclasses of the woven class
// still dispatch correctly.
func (h *inPlaceMethod) ProceedCallOpcode() byte { return bytecode.OpInvokevirtual }

func (h *inPlaceMethod) EmitProceedTarget(e *bytecode.Emitter) { e.This() }

func (h *inPlaceMethod) ProceedMethodTarget() (*typedef.Method, error) {
	if h.Method.IsAbstract() || h.Config.IsHandlerAccessor(h.Method) {
		return nil, nil
	}
	return transplant(h.Proxy, h.Method, h.Signature)
}

func (h *inPlaceMethod) ProxyMethod(target *typedef.Method, build func(*bytecode.Body) error) error {
	if h.Config.IsHandlerAccessor(h.Method) {
		h.log.WithFields(log.Fields{"class": h.Proxy.Name, "method": h.Signature}).Debug("skipping handler accessor")
		return nil
	}

	h.Method.Body = bytecode.NewBody()
	if err := build(h.Method.Body); err != nil {
		return err
	}
	h.Method.AccessFlags &^= classfile.AccAbstract
	return nil
}

func (h *inPlaceMethod) ImplementProceed(e *bytecode.Emitter, target *typedef.Method) error {
	if h.Method.IsAbstract() {
		return h.ImplementDefault(e)
	}
	return h.MethodWeaver.ImplementProceed(e, target)
}
