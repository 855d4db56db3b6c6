package vm

import "fmt"

// JavaException represents a JVM exception being thrown.
type JavaException struct {
	Object *JObject
}

// messageField holds the detail message of a Throwable.
const messageField = "detailMessage"

func (e *JavaException) Error() string {
	if msg, ok := e.Object.Fields[messageField]; ok && !msg.IsNull() {
		return fmt.Sprintf("JavaException: %s: %v", e.Object.ClassName(), msg.Ref)
	}
	return fmt.Sprintf("JavaException: %s", e.Object.ClassName())
}

// ClassName returns the internal name of the thrown class.
func (e *JavaException) ClassName() string {
	return e.Object.ClassName()
}

// NewJavaException creates an exception of the given system class.
func (vm *VM) NewJavaException(className string, format string, args ...any) *JavaException {
	obj := &JObject{Class: vm.systemClass(className), Fields: make(map[string]Value)}
	if format != "" {
		obj.Fields[messageField] = RefValue(fmt.Sprintf(format, args...))
	}
	return &JavaException{Object: obj}
}
