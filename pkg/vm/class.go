package vm

import (
	"fmt"
	"strings"

	"github.com/daimatz/jweave/pkg/classfile"
)

// Class is a loaded class. System classes have no interpreted code: their
// methods are provided natively and File, when present, only describes the
// hierarchy.
type Class struct {
	Name       string
	File       *classfile.ClassFile
	Super      *Class
	Interfaces []*Class
	System     bool
	Statics    map[string]Value

	methods map[string]*Method
	fields  []classfile.FieldInfo
	state   classState
}

type classState int

const (
	classLoaded classState = iota
	classInitializing
	classInitialized
)

// Method is a method of a loaded class.
type Method struct {
	Class       *Class
	Name        string
	Descriptor  string
	AccessFlags uint16
	Code        *classfile.CodeAttribute
	Desc        *classfile.MethodDescriptor
}

func (m *Method) IsStatic() bool   { return m.AccessFlags&classfile.AccStatic != 0 }
func (m *Method) IsPrivate() bool  { return m.AccessFlags&classfile.AccPrivate != 0 }
func (m *Method) IsAbstract() bool { return m.AccessFlags&classfile.AccAbstract != 0 }
func (m *Method) IsNative() bool   { return m.AccessFlags&classfile.AccNative != 0 }

func (m *Method) String() string {
	return m.Class.Name + "." + m.Name + ":" + m.Descriptor
}

func methodKey(name, descriptor string) string {
	return name + ":" + descriptor
}

func newClass(name string, cf *classfile.ClassFile) (*Class, error) {
	c := &Class{
		Name:    name,
		File:    cf,
		Statics: make(map[string]Value),
		methods: make(map[string]*Method),
	}
	if cf == nil {
		return c, nil
	}
	for i := range cf.Methods {
		info := &cf.Methods[i]
		desc, err := classfile.ParseMethodDescriptor(info.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", name, err)
		}
		c.methods[methodKey(info.Name, info.Descriptor)] = &Method{
			Class:       c,
			Name:        info.Name,
			Descriptor:  info.Descriptor,
			AccessFlags: info.AccessFlags,
			Code:        info.Code,
			Desc:        desc,
		}
	}
	c.fields = cf.Fields
	for _, f := range cf.Fields {
		if f.AccessFlags&classfile.AccStatic == 0 {
			continue
		}
		v, err := constantValue(cf.ConstantPool, f)
		if err != nil {
			return nil, fmt.Errorf("class %s: field %s: %w", name, f.Name, err)
		}
		c.Statics[f.Name] = v
	}
	return c, nil
}

// constantValue returns the initial value of a static field, honouring its
// ConstantValue attribute.
func constantValue(pool classfile.Pool, f classfile.FieldInfo) (Value, error) {
	attr := classfile.FindAttribute(f.Attributes, "ConstantValue")
	if attr == nil || len(attr.Data) != 2 {
		return ZeroValue(f.Descriptor), nil
	}
	index := uint16(attr.Data[0])<<8 | uint16(attr.Data[1])
	return constantAt(pool, index)
}

func constantAt(pool classfile.Pool, index uint16) (Value, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return Value{}, fmt.Errorf("invalid constant pool index %d", index)
	}
	switch c := pool[index].(type) {
	case *classfile.ConstantInteger:
		return IntValue(c.Value), nil
	case *classfile.ConstantLong:
		return LongValue(c.Value), nil
	case *classfile.ConstantFloat:
		return FloatValue(c.Value), nil
	case *classfile.ConstantDouble:
		return DoubleValue(c.Value), nil
	case *classfile.ConstantString:
		s, err := classfile.GetUtf8(pool, c.StringIndex)
		if err != nil {
			return Value{}, err
		}
		return RefValue(s), nil
	}
	return Value{}, fmt.Errorf("unsupported constant at index %d (tag=%d)", index, pool[index].Tag())
}

// DeclaredMethod returns the method declared by c itself.
func (c *Class) DeclaredMethod(name, descriptor string) *Method {
	return c.methods[methodKey(name, descriptor)]
}

// FindMethod resolves a method in c, its superclasses and then its
// superinterfaces.
func (c *Class) FindMethod(name, descriptor string) *Method {
	for k := c; k != nil; k = k.Super {
		if m := k.DeclaredMethod(name, descriptor); m != nil {
			return m
		}
	}
	for k := c; k != nil; k = k.Super {
		for _, i := range k.Interfaces {
			if m := i.FindMethod(name, descriptor); m != nil && !m.IsAbstract() {
				return m
			}
		}
	}
	return nil
}

// findVirtual selects the implementation of an overridable method for a
// receiver of class c. Private and static methods never override.
func (c *Class) findVirtual(name, descriptor string) *Method {
	for k := c; k != nil; k = k.Super {
		if m := k.DeclaredMethod(name, descriptor); m != nil && !m.IsPrivate() && !m.IsStatic() {
			return m
		}
	}
	for k := c; k != nil; k = k.Super {
		for _, i := range k.Interfaces {
			if m := i.findVirtual(name, descriptor); m != nil && !m.IsAbstract() {
				return m
			}
		}
	}
	return nil
}

// IsSubclassOf reports whether c is name or extends or implements it.
func (c *Class) IsSubclassOf(name string) bool {
	if c == nil {
		return false
	}
	if c.Name == name || name == "java/lang/Object" {
		return true
	}
	for _, i := range c.Interfaces {
		if i.IsSubclassOf(name) {
			return true
		}
	}
	return c.Super.IsSubclassOf(name)
}

// instanceFields returns the declared instance fields of c and its
// superclasses.
func (c *Class) instanceFields() []classfile.FieldInfo {
	var fields []classfile.FieldInfo
	for k := c; k != nil; k = k.Super {
		for _, f := range k.fields {
			if f.AccessFlags&classfile.AccStatic == 0 {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// systemPrefixes are the packages whose classes are never interpreted.
var systemPrefixes = []string{"java/", "javax/", "jdk/", "sun/", "jweave/"}

func isSystemClass(name string) bool {
	if strings.HasPrefix(name, "[") {
		return true
	}
	for _, p := range systemPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// systemSupers describes the part of the JDK hierarchy the harness relies on
// when no bootstrap class loader can describe it.
var systemSupers = map[string]string{
	"java/lang/Throwable":                      "java/lang/Object",
	"java/lang/Exception":                      "java/lang/Throwable",
	"java/lang/Error":                          "java/lang/Throwable",
	"java/lang/RuntimeException":               "java/lang/Exception",
	"java/lang/NullPointerException":           "java/lang/RuntimeException",
	"java/lang/ArithmeticException":            "java/lang/RuntimeException",
	"java/lang/ClassCastException":             "java/lang/RuntimeException",
	"java/lang/IllegalArgumentException":       "java/lang/RuntimeException",
	"java/lang/IllegalStateException":          "java/lang/RuntimeException",
	"java/lang/NumberFormatException":          "java/lang/IllegalArgumentException",
	"java/lang/UnsupportedOperationException":  "java/lang/RuntimeException",
	"java/lang/IndexOutOfBoundsException":      "java/lang/RuntimeException",
	"java/lang/ArrayIndexOutOfBoundsException": "java/lang/IndexOutOfBoundsException",
	"java/lang/NegativeArraySizeException":     "java/lang/RuntimeException",
	"java/lang/LinkageError":                   "java/lang/Error",
	"java/lang/IncompatibleClassChangeError":   "java/lang/LinkageError",
	"java/lang/AbstractMethodError":            "java/lang/IncompatibleClassChangeError",
	"java/lang/NoSuchMethodError":              "java/lang/IncompatibleClassChangeError",
	"java/lang/NoSuchFieldError":               "java/lang/IncompatibleClassChangeError",
	"java/lang/InstantiationError":             "java/lang/IncompatibleClassChangeError",
	"java/lang/StackOverflowError":             "java/lang/Error",
	"java/lang/Number":                         "java/lang/Object",
	"java/lang/Integer":                        "java/lang/Number",
	"java/lang/Long":                           "java/lang/Number",
	"java/lang/Float":                          "java/lang/Number",
	"java/lang/Double":                         "java/lang/Number",
	"java/lang/Short":                          "java/lang/Number",
	"java/lang/Byte":                           "java/lang/Number",
}
