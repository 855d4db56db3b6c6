package typedef

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/classfile"
)

// Special method names.
const (
	ConstructorName       = "<init>"
	StaticInitializerName = "<clinit>"
)

// Parameter is a formal parameter. Name and AccessFlags come from the
// MethodParameters attribute and are empty when the class has none.
type Parameter struct {
	Name        string
	Type        string
	AccessFlags uint16
}

// Method is a mutable method description.
type Method struct {
	Owner       *Type
	AccessFlags uint16
	Name        string
	Parameters  []Parameter
	ReturnType  string

	GenericParameters []GenericParameter
	// SignatureTail is the Signature attribute after the type parameters,
	// "" when the method has no generic signature.
	SignatureTail string

	// Body is nil for abstract and native methods.
	Body *bytecode.Body

	// Attributes excludes Code, Signature and MethodParameters.
	Attributes []classfile.AttributeInfo
}

// NewMethod returns a method with parameters taken from descriptor.
func NewMethod(access uint16, name, descriptor string) (*Method, error) {
	md, err := classfile.ParseMethodDescriptor(descriptor)
	if err != nil {
		return nil, err
	}
	m := &Method{AccessFlags: access, Name: name, ReturnType: md.Return}
	for _, p := range md.Params {
		m.Parameters = append(m.Parameters, Parameter{Type: p})
	}
	return m, nil
}

// Descriptor renders the method descriptor from the parameter and return types.
func (m *Method) Descriptor() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range m.Parameters {
		sb.WriteString(p.Type)
	}
	sb.WriteByte(')')
	sb.WriteString(m.ReturnType)
	return sb.String()
}

// ParameterTypes returns the parameter field types in order.
func (m *Method) ParameterTypes() []string {
	types := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		types[i] = p.Type
	}
	return types
}

// ArgSlots returns the local slots used by the parameters, excluding the receiver.
func (m *Method) ArgSlots() int {
	n := 0
	for _, p := range m.Parameters {
		n += classfile.SlotSize(p.Type)
	}
	return n
}

// ParameterSlot returns the local slot of parameter i.
func (m *Method) ParameterSlot(i int) uint16 {
	slot := 0
	if !m.IsStatic() {
		slot = 1
	}
	for _, p := range m.Parameters[:i] {
		slot += classfile.SlotSize(p.Type)
	}
	return uint16(slot)
}

// GenerateSignature returns the method's human-readable signature, e.g.
// add(int,int) or join(StringArray,String). The result is a legal
// unqualified JVM name.
func (m *Method) GenerateSignature() string {
	names := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		names[i] = classfile.SimpleTypeName(p.Type)
	}
	return m.Name + "(" + strings.Join(names, ",") + ")"
}

func (m *Method) String() string {
	owner := "?"
	if m.Owner != nil {
		owner = m.Owner.Name
	}
	return owner + "." + m.Name + m.Descriptor()
}

func (m *Method) IsStatic() bool    { return m.AccessFlags&classfile.AccStatic != 0 }
func (m *Method) IsAbstract() bool  { return m.AccessFlags&classfile.AccAbstract != 0 }
func (m *Method) IsPrivate() bool   { return m.AccessFlags&classfile.AccPrivate != 0 }
func (m *Method) IsSynthetic() bool { return m.AccessFlags&classfile.AccSynthetic != 0 }
func (m *Method) IsFinal() bool     { return m.AccessFlags&classfile.AccFinal != 0 }

// IsConstructor reports whether m is an instance constructor.
func (m *Method) IsConstructor() bool {
	return m.Name == ConstructorName && !m.IsStatic()
}

// IsStaticInitializer reports whether m is the class initializer.
func (m *Method) IsStaticInitializer() bool {
	return m.Name == StaticInitializerName && m.IsStatic()
}

// SetAccess replaces the visibility bits with one of AccPublic,
// AccProtected, AccPrivate or 0 (package-private).
func (m *Method) SetAccess(visibility uint16) {
	const mask = classfile.AccPublic | classfile.AccProtected | classfile.AccPrivate
	m.AccessFlags = m.AccessFlags&^mask | visibility
}

func methodFromInfo(owner *Type, info *classfile.MethodInfo) (*Method, error) {
	m, err := NewMethod(info.AccessFlags, info.Name, info.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", info.Name, err)
	}
	m.Owner = owner

	for _, attr := range info.Attributes {
		switch attr.Name {
		case "Signature":
			if len(attr.Data) != 2 {
				return nil, fmt.Errorf("method %s: malformed Signature attribute", m.Name)
			}
			sig, err := classfile.GetUtf8(owner.Pool, binary.BigEndian.Uint16(attr.Data))
			if err != nil {
				return nil, fmt.Errorf("method %s: %w", m.Name, err)
			}
			if m.GenericParameters, m.SignatureTail, err = parseSignature(sig); err != nil {
				return nil, fmt.Errorf("method %s: %w", m.Name, err)
			}
		case "MethodParameters":
			if err := m.decodeParameters(owner.Pool, attr.Data); err != nil {
				return nil, fmt.Errorf("method %s: %w", m.Name, err)
			}
		default:
			m.Attributes = append(m.Attributes, attr)
		}
	}

	if info.Code != nil {
		if m.Body, err = bytecode.DecodeBody(info.Code, owner.Pool); err != nil {
			return nil, fmt.Errorf("method %s%s: %w", m.Name, info.Descriptor, err)
		}
	}
	return m, nil
}

func (m *Method) decodeParameters(pool classfile.Pool, data []byte) error {
	if len(data) < 1 || len(data) != 1+4*int(data[0]) {
		return fmt.Errorf("malformed MethodParameters attribute")
	}
	if int(data[0]) != len(m.Parameters) {
		return fmt.Errorf("MethodParameters lists %d parameters, descriptor has %d", data[0], len(m.Parameters))
	}
	for i := range m.Parameters {
		p := data[1+4*i:]
		if idx := binary.BigEndian.Uint16(p); idx != 0 {
			name, err := classfile.GetUtf8(pool, idx)
			if err != nil {
				return err
			}
			m.Parameters[i].Name = name
		}
		m.Parameters[i].AccessFlags = binary.BigEndian.Uint16(p[2:])
	}
	return nil
}

// info lowers the method, adding constants to pool.
func (m *Method) info(pool *classfile.Pool) (classfile.MethodInfo, error) {
	info := classfile.MethodInfo{
		AccessFlags: m.AccessFlags,
		Name:        m.Name,
		Descriptor:  m.Descriptor(),
	}
	info.Attributes = append(info.Attributes, m.Attributes...)

	if len(m.GenericParameters) > 0 || m.SignatureTail != "" {
		tail := m.SignatureTail
		if tail == "" {
			tail = info.Descriptor
		}
		sig := renderSignature(m.GenericParameters, tail)
		info.Attributes = append(info.Attributes, classfile.AttributeInfo{
			Name: "Signature",
			Data: binary.BigEndian.AppendUint16(nil, pool.AddUtf8(sig)),
		})
	}

	named := false
	for _, p := range m.Parameters {
		if p.Name != "" || p.AccessFlags != 0 {
			named = true
			break
		}
	}
	if named {
		data := []byte{byte(len(m.Parameters))}
		for _, p := range m.Parameters {
			var idx uint16
			if p.Name != "" {
				idx = pool.AddUtf8(p.Name)
			}
			data = binary.BigEndian.AppendUint16(data, idx)
			data = binary.BigEndian.AppendUint16(data, p.AccessFlags)
		}
		info.Attributes = append(info.Attributes, classfile.AttributeInfo{Name: "MethodParameters", Data: data})
	}

	if m.Body != nil {
		code, err := m.Body.Encode(pool)
		if err != nil {
			return info, fmt.Errorf("method %s%s: %w", m.Name, info.Descriptor, err)
		}
		info.Code = code
	}
	return info, nil
}
