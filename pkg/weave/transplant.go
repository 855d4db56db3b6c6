package weave

import (
	"slices"

	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/typedef"
	"github.com/pkg/errors"
)

// transplant copies the body of m into a new private method named
// <signature>$Original on t and returns it. The instructions themselves are
// shared, not re-encoded; m is left untouched.
func transplant(t *typedef.Type, m *typedef.Method, signature string) (*typedef.Method, error) {
	if m.IsAbstract() || m.Body == nil {
		return nil, errors.Errorf("%s has no body to transplant", m)
	}
	name := signature + OriginalSuffix
	if t.Method(name, m.Descriptor()) != nil {
		return nil, errors.Wrapf(ErrAlreadyWoven, "%s already has %s", t.Name, name)
	}

	original := &typedef.Method{
		AccessFlags:   classfile.AccPrivate,
		Name:          name,
		Parameters:    slices.Clone(m.Parameters),
		ReturnType:    m.ReturnType,
		SignatureTail: m.SignatureTail,

		GenericParameters: cloneGenerics(m.GenericParameters),
	}

	src := m.Body
	original.Body = &bytecode.Body{
		Instructions: slices.Clone(src.Instructions),
		MaxStack:     src.MaxStack,
		MaxLocals:    src.MaxLocals,
		Handlers:     slices.Clone(src.Handlers),
		Variables:    slices.Clone(src.Variables),
		Lines:        slices.Clone(src.Lines),
		Attributes:   slices.Clone(src.Attributes),
	}
	return t.AddMethod(original), nil
}

func cloneGenerics(params []typedef.GenericParameter) []typedef.GenericParameter {
	var out []typedef.GenericParameter
	for _, g := range params {
		out = append(out, typedef.GenericParameter{
			Name:            g.Name,
			ClassBound:      g.ClassBound,
			InterfaceBounds: slices.Clone(g.InterfaceBounds),
		})
	}
	return out
}
