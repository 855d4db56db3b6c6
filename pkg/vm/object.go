package vm

import "fmt"

// JObject represents a JVM object instance.
type JObject struct {
	Class  *Class
	Fields map[string]Value
}

// ClassName returns the internal name of the object's class.
func (o *JObject) ClassName() string {
	return o.Class.Name
}

func (o *JObject) String() string {
	return fmt.Sprintf("%s@%p", o.Class.Name, o)
}

// JArray represents a JVM array.
type JArray struct {
	// Type is the array descriptor, such as [I or [Ljava/lang/Object;.
	Type     string
	Elements []Value
}

// NewArray returns an array of n default elements.
func NewArray(descriptor string, n int) *JArray {
	elements := make([]Value, n)
	zero := ZeroValue(descriptor[1:])
	for i := range elements {
		elements[i] = zero
	}
	return &JArray{Type: descriptor, Elements: elements}
}

// newarray atype operand values.
var primitiveArrayTypes = map[uint8]string{
	4:  "[Z",
	5:  "[C",
	6:  "[F",
	7:  "[D",
	8:  "[B",
	9:  "[S",
	10: "[I",
	11: "[J",
}
