package weave

import (
	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/typedef"
	"github.com/pkg/errors"
)

// ensureHandlerAccessors gives t a concrete invocation handler getter and
// setter backed by a private field, unless it already declares both. It
// returns the names of the members it added or implemented.
func ensureHandlerAccessors(cfg Config, t *typedef.Type) ([]string, error) {
	var getter, setter *typedef.Method
	for _, m := range t.Methods {
		switch {
		case cfg.IsHandlerGetter(m):
			getter = m
		case cfg.IsHandlerSetter(m):
			setter = m
		}
	}
	concrete := func(m *typedef.Method) bool { return m != nil && !m.IsAbstract() }
	if concrete(getter) != concrete(setter) {
		return nil, errors.Errorf("%s: declares only one of %s and %s", t.Name, cfg.Getter, cfg.Setter)
	}

	var changed []string
	if !concrete(getter) {
		if t.Field(HandlerField) == nil {
			t.AddField(classfile.AccPrivate|classfile.AccSynthetic, HandlerField, cfg.handlerDesc())
			changed = append(changed, HandlerField)
		}

		var err error
		if getter, err = implementAccessor(t, getter, cfg.Getter, cfg.getterDesc()); err != nil {
			return nil, err
		}
		e := bytecode.NewEmitter(getter.Body, &t.Pool)
		e.This()
		e.GetField(t.Name, HandlerField, cfg.handlerDesc())
		e.Return(cfg.handlerDesc())
		if err := e.Finish(); err != nil {
			return nil, err
		}

		if setter, err = implementAccessor(t, setter, cfg.Setter, cfg.setterDesc()); err != nil {
			return nil, err
		}
		e = bytecode.NewEmitter(setter.Body, &t.Pool)
		e.This()
		e.Load(cfg.handlerDesc(), 1)
		e.PutField(t.Name, HandlerField, cfg.handlerDesc())
		e.Return("V")
		if err := e.Finish(); err != nil {
			return nil, err
		}
		changed = append(changed, cfg.Getter, cfg.Setter)
	}

	if cfg.ProxyInterface != "" && !t.Implements(cfg.ProxyInterface) && !t.IsInterface() {
		t.Interfaces = append(t.Interfaces, cfg.ProxyInterface)
		changed = append(changed, cfg.ProxyInterface)
	}
	return changed, nil
}

// implementAccessor returns m with a fresh empty body, adding a public
// method when m is nil.
func implementAccessor(t *typedef.Type, m *typedef.Method, name, desc string) (*typedef.Method, error) {
	if m == nil {
		var err error
		if m, err = typedef.NewMethod(classfile.AccPublic, name, desc); err != nil {
			return nil, err
		}
		t.AddMethod(m)
	}
	m.AccessFlags &^= classfile.AccAbstract
	m.Body = bytecode.NewBody()
	return m, nil
}
