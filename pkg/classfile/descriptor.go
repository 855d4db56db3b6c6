package classfile

import (
	"fmt"
	"strings"
)

// MethodDescriptor is a parsed method descriptor such as (ILjava/lang/String;)V.
type MethodDescriptor struct {
	Params []string // field descriptors, one per parameter
	Return string   // field descriptor or "V"
}

// ParseMethodDescriptor splits a method descriptor into its parameter and
// return field descriptors.
func ParseMethodDescriptor(descriptor string) (*MethodDescriptor, error) {
	if !strings.HasPrefix(descriptor, "(") {
		return nil, fmt.Errorf("invalid method descriptor: %s", descriptor)
	}
	end := strings.Index(descriptor, ")")
	if end == -1 {
		return nil, fmt.Errorf("invalid method descriptor: %s", descriptor)
	}

	d := &MethodDescriptor{}
	params := descriptor[1:end]
	for i := 0; i < len(params); {
		n, err := fieldTypeLen(params[i:])
		if err != nil {
			return nil, fmt.Errorf("%w in %s", err, descriptor)
		}
		d.Params = append(d.Params, params[i:i+n])
		i += n
	}

	ret := descriptor[end+1:]
	if ret != "V" {
		n, err := fieldTypeLen(ret)
		if err != nil || n != len(ret) {
			return nil, fmt.Errorf("invalid return type in %s", descriptor)
		}
	}
	d.Return = ret
	return d, nil
}

// String renders the descriptor back to its class-file form.
func (d *MethodDescriptor) String() string {
	return "(" + strings.Join(d.Params, "") + ")" + d.Return
}

// ArgSlots returns the number of local variable slots the parameters occupy,
// not counting the receiver.
func (d *MethodDescriptor) ArgSlots() int {
	n := 0
	for _, p := range d.Params {
		n += SlotSize(p)
	}
	return n
}

// IsVoid reports whether the method returns void.
func (d *MethodDescriptor) IsVoid() bool {
	return d.Return == "V"
}

// fieldTypeLen returns the length of the field descriptor at the start of s.
func fieldTypeLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, fmt.Errorf("truncated array type")
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		semi := strings.IndexByte(s[i:], ';')
		if semi == -1 {
			return 0, fmt.Errorf("unterminated class type")
		}
		return i + semi + 1, nil
	default:
		return 0, fmt.Errorf("invalid type descriptor char '%c'", s[i])
	}
}

// SlotSize returns the number of local variable / operand stack slots a
// value of the given field type occupies.
func SlotSize(fieldType string) int {
	switch fieldType {
	case "J", "D":
		return 2
	case "V":
		return 0
	}
	return 1
}

// IsReference reports whether the field type is a class or array type.
func IsReference(fieldType string) bool {
	return strings.HasPrefix(fieldType, "L") || strings.HasPrefix(fieldType, "[")
}

var primitiveNames = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

// SimpleTypeName renders a field type the way it appears in a generated
// signature string: primitives by keyword, classes by simple name (nested
// class separators kept) and one "Array" suffix per dimension, so the result
// is a legal unqualified JVM name.
func SimpleTypeName(fieldType string) string {
	dims := 0
	for dims < len(fieldType) && fieldType[dims] == '[' {
		dims++
	}
	elem := fieldType[dims:]
	var name string
	if strings.HasPrefix(elem, "L") && strings.HasSuffix(elem, ";") {
		name = elem[1 : len(elem)-1]
		if slash := strings.LastIndexByte(name, '/'); slash != -1 {
			name = name[slash+1:]
		}
	} else if len(elem) == 1 {
		name = primitiveNames[elem[0]]
	}
	if name == "" {
		name = elem
	}
	return name + strings.Repeat("Array", dims)
}

// ObjectType returns the field descriptor for an internal class name.
func ObjectType(internalName string) string {
	return "L" + internalName + ";"
}
