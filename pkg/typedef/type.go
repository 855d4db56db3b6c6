// Package typedef is a mutable model of a class: its members, their
// bodies as instruction lists, and the attributes the weaver rewrites.
// Types are built from parsed class files and lowered back to them.
package typedef

import (
	"fmt"
	"slices"

	"github.com/daimatz/jweave/pkg/classfile"
)

// DefaultMajorVersion is the class file version of types built with NewType
// (Java 11, the first with nestmates).
const DefaultMajorVersion = 55

// Field is a mutable field description.
type Field struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []classfile.AttributeInfo
}

// IsStatic reports whether the field is static.
func (f *Field) IsStatic() bool { return f.AccessFlags&classfile.AccStatic != 0 }

// Type is a mutable class description. Bodies refer to constants by index
// into Pool, which only ever grows.
type Type struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	Name         string
	SuperName    string // "" for java/lang/Object
	Interfaces   []string
	Fields       []*Field
	Methods      []*Method
	Attributes   []classfile.AttributeInfo
	Pool         classfile.Pool
}

// NewType returns an empty public class.
func NewType(name, superName string) *Type {
	return &Type{
		MajorVersion: DefaultMajorVersion,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		Name:         name,
		SuperName:    superName,
		Pool:         classfile.NewPool(),
	}
}

// FromClassFile builds a Type from a parsed class file. The class file's
// constant pool is taken over by the type.
func FromClassFile(cf *classfile.ClassFile) (*Type, error) {
	name, err := cf.ClassName()
	if err != nil {
		return nil, fmt.Errorf("resolving this_class: %w", err)
	}
	ifaces, err := cf.InterfaceNames()
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", name, err)
	}
	t := &Type{
		MinorVersion: cf.MinorVersion,
		MajorVersion: cf.MajorVersion,
		AccessFlags:  cf.AccessFlags,
		Name:         name,
		SuperName:    cf.SuperClassName(),
		Interfaces:   ifaces,
		Attributes:   cf.Attributes,
		Pool:         cf.ConstantPool,
	}
	if len(t.Pool) == 0 {
		t.Pool = classfile.NewPool()
	}
	for i := range cf.Fields {
		f := &cf.Fields[i]
		t.Fields = append(t.Fields, &Field{
			AccessFlags: f.AccessFlags,
			Name:        f.Name,
			Descriptor:  f.Descriptor,
			Attributes:  f.Attributes,
		})
	}
	for i := range cf.Methods {
		m, err := methodFromInfo(t, &cf.Methods[i])
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", name, err)
		}
		t.Methods = append(t.Methods, m)
	}
	return t, nil
}

// Parse decodes class file bytes into a Type.
func Parse(data []byte) (*Type, error) {
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	return FromClassFile(cf)
}

// ClassFile lowers the type. Method bodies are re-encoded and the
// attributes derived from the model are regenerated.
func (t *Type) ClassFile() (*classfile.ClassFile, error) {
	if len(t.Pool) == 0 {
		t.Pool = classfile.NewPool()
	}
	cf := &classfile.ClassFile{
		MinorVersion: t.MinorVersion,
		MajorVersion: t.MajorVersion,
		AccessFlags:  t.AccessFlags,
		ThisClass:    t.Pool.AddClass(t.Name),
		Attributes:   t.Attributes,
	}
	if t.SuperName != "" {
		cf.SuperClass = t.Pool.AddClass(t.SuperName)
	}
	for _, iface := range t.Interfaces {
		cf.Interfaces = append(cf.Interfaces, t.Pool.AddClass(iface))
	}
	for _, f := range t.Fields {
		cf.Fields = append(cf.Fields, classfile.FieldInfo{
			AccessFlags: f.AccessFlags,
			Name:        f.Name,
			Descriptor:  f.Descriptor,
			Attributes:  f.Attributes,
		})
	}
	for _, m := range t.Methods {
		if m.IsAbstract() && m.Body != nil {
			return nil, fmt.Errorf("class %s: abstract method %s has a body", t.Name, m.Name)
		}
		info, err := m.info(&t.Pool)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", t.Name, err)
		}
		cf.Methods = append(cf.Methods, info)
	}
	cf.ConstantPool = slices.Clone(t.Pool)
	return cf, nil
}

// Bytes lowers and encodes the type.
func (t *Type) Bytes() ([]byte, error) {
	cf, err := t.ClassFile()
	if err != nil {
		return nil, err
	}
	return cf.Bytes()
}

// Method returns the method with the given name and descriptor, or nil.
func (t *Type) Method(name, descriptor string) *Method {
	for _, m := range t.Methods {
		if m.Name == name && m.Descriptor() == descriptor {
			return m
		}
	}
	return nil
}

// Constructors returns the instance constructors.
func (t *Type) Constructors() []*Method {
	var ctors []*Method
	for _, m := range t.Methods {
		if m.IsConstructor() {
			ctors = append(ctors, m)
		}
	}
	return ctors
}

// StaticInitializer returns the class initializer, or nil.
func (t *Type) StaticInitializer() *Method {
	for _, m := range t.Methods {
		if m.IsStaticInitializer() {
			return m
		}
	}
	return nil
}

// Field returns the field with the given name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Implements reports whether the type directly implements iface.
func (t *Type) Implements(iface string) bool {
	return slices.Contains(t.Interfaces, iface)
}

// AddMethod appends m to the type and makes the type its owner.
func (t *Type) AddMethod(m *Method) *Method {
	m.Owner = t
	t.Methods = append(t.Methods, m)
	return m
}

// AddField appends a field.
func (t *Type) AddField(access uint16, name, descriptor string) *Field {
	f := &Field{AccessFlags: access, Name: name, Descriptor: descriptor}
	t.Fields = append(t.Fields, f)
	return f
}

// IsAbstract reports whether the class is abstract.
func (t *Type) IsAbstract() bool { return t.AccessFlags&classfile.AccAbstract != 0 }

// IsInterface reports whether the type is an interface.
func (t *Type) IsInterface() bool { return t.AccessFlags&classfile.AccInterface != 0 }
