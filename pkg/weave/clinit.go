package weave

import (
	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/typedef"
	"github.com/pkg/errors"
)

// StaticInitializer is a class initializer opened for appending. Its
// trailing return has been removed; Close puts a single one back.
type StaticInitializer struct {
	Method *typedef.Method

	emitter  *bytecode.Emitter
	stripped *bytecode.Instruction
	start    int
	closed   bool
}

// openStaticInitializer finds the static initializer of t, or adds an
// empty one, and strips its trailing return.
func openStaticInitializer(t *typedef.Type) (*StaticInitializer, error) {
	m := t.StaticInitializer()
	if m == nil {
		var err error
		m, err = typedef.NewMethod(classfile.AccStatic, typedef.StaticInitializerName, "()V")
		if err != nil {
			return nil, err
		}
		m.Body = bytecode.NewBody()
		t.AddMethod(m)
		return &StaticInitializer{Method: m, emitter: bytecode.NewEmitter(m.Body, &t.Pool)}, nil
	}

	if m.Body == nil {
		return nil, errors.Errorf("%s: static initializer has no code", t.Name)
	}
	body := m.Body
	last := body.Last()
	if last == nil || last.Opcode != bytecode.OpReturn {
		return nil, errors.Wrapf(ErrMissingReturn, "%s", t.Name)
	}
	for _, ins := range body.Instructions[:len(body.Instructions)-1] {
		if ins.Opcode == bytecode.OpReturn {
			return nil, errors.Wrapf(ErrEarlyReturn, "%s", t.Name)
		}
	}
	s := &StaticInitializer{
		Method:   m,
		emitter:  bytecode.NewEmitter(body, &t.Pool),
		stripped: body.RemoveLast(),
	}
	s.start = len(body.Instructions)
	return s, nil
}

// Emitter appends to the initializer, before its final return.
func (s *StaticInitializer) Emitter() *bytecode.Emitter {
	return s.emitter
}

// Close re-appends the return and moves every reference to the stripped
// return onto the first appended instruction. It is a no-op when called again.
func (s *StaticInitializer) Close() error {
	if s.closed {
		return nil
	}
	s.emitter.Return("V")
	if s.stripped != nil {
		body := s.Method.Body
		body.Retarget(s.stripped, body.Instructions[s.start])
	}
	s.closed = true
	return s.emitter.Finish()
}
