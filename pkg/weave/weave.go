// Package weave rewrites classes so that their methods are routed through
// an invocation handler.
//
// Two strategies implement ClassWeaver: InPlaceClassWeaver turns the class
// into its own proxy, SubclassWeaver generates a proxy subclass. Both drive
// the same MethodWeaver, which differs only in the Hooks it is given.
package weave

import (
	"strings"

	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/typedef"
	"github.com/pkg/errors"
)

// Name suffixes of generated members.
const (
	OriginalSuffix = "$Original"
	ProceedSuffix  = "$Proceed"
	MethodSuffix   = "$Method"

	// HandlerField is the field synthesised to hold the invocation handler.
	HandlerField = "$invocationHandler"
)

// Descriptors of the runtime protocol.
const (
	InvokeMethod     = "invoke"
	ProceedDesc      = "([Ljava/lang/Object;)Ljava/lang/Object;"
	InvocationInit   = "(Ljava/lang/Object;Ljava/lang/String;Ljava/lang/String;[Ljava/lang/Object;)V"
	objectType       = "Ljava/lang/Object;"
	stringType       = "Ljava/lang/String;"
	objectArrayClass = "java/lang/Object"
)

var (
	ErrNoConstructor        = errors.New("no instance constructor")
	ErrAmbiguousConstructor = errors.New("more than one instance constructor")
	ErrMissingReturn        = errors.New("static initializer does not end with return")
	ErrEarlyReturn          = errors.New("static initializer returns before its last instruction")
	ErrUnsupportedVersion   = errors.New("class file version too old to weave")
	ErrFinalType            = errors.New("final class cannot be subclassed")
	ErrFinalMethod          = errors.New("final method cannot be overridden")
	ErrAlreadyWoven         = errors.New("class is already woven")
)

// Config names the runtime types and accessors the woven code links against.
type Config struct {
	// HandlerType is the internal name of the invocation handler interface.
	HandlerType string
	// InvocationType is the internal name of the class describing one call.
	InvocationType string
	// ProxyInterface is the internal name of the interface exposing the
	// handler accessors.
	ProxyInterface string
	Getter         string
	Setter         string
}

// DefaultConfig returns the runtime names used by the jweave runtime.
func DefaultConfig() Config {
	return Config{
		HandlerType:    "jweave/InvocationHandler",
		InvocationType: "jweave/Invocation",
		ProxyInterface: "jweave/Proxy",
		Getter:         "getInvocationHandler",
		Setter:         "setInvocationHandler",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HandlerType == "" {
		c.HandlerType = d.HandlerType
	}
	if c.InvocationType == "" {
		c.InvocationType = d.InvocationType
	}
	if c.ProxyInterface == "" {
		c.ProxyInterface = d.ProxyInterface
	}
	if c.Getter == "" {
		c.Getter = d.Getter
	}
	if c.Setter == "" {
		c.Setter = d.Setter
	}
	return c
}

func (c Config) handlerDesc() string { return classfile.ObjectType(c.HandlerType) }

func (c Config) getterDesc() string { return "()" + c.handlerDesc() }

func (c Config) setterDesc() string { return "(" + c.handlerDesc() + ")V" }

func (c Config) invokeDesc() string {
	return "(" + classfile.ObjectType(c.InvocationType) + ")" + objectType
}

// IsHandlerGetter reports whether m is the invocation handler getter: the
// configured name with no parameters returning exactly the handler type.
func (c Config) IsHandlerGetter(m *typedef.Method) bool {
	return m.Name == c.Getter && m.Descriptor() == c.getterDesc() && !m.IsStatic()
}

// IsHandlerSetter reports whether m is the invocation handler setter: the
// configured name with a single parameter of exactly the handler type.
func (c Config) IsHandlerSetter(m *typedef.Method) bool {
	return m.Name == c.Setter && m.Descriptor() == c.setterDesc() && !m.IsStatic()
}

// IsHandlerAccessor reports whether m is either handler accessor.
func (c Config) IsHandlerAccessor(m *typedef.Method) bool {
	return c.IsHandlerGetter(m) || c.IsHandlerSetter(m)
}

// ClassWeaver is one weaving strategy applied to one class.
type ClassWeaver interface {
	// ProxyType is the type that receives the interception entry points.
	ProxyType() *typedef.Type
	// StaticInitializer returns the proxy type's static initializer, ready
	// for appending. Repeated calls return the same initializer.
	StaticInitializer() (*StaticInitializer, error)
	// MethodWeaver returns the weaver for one method of the source type.
	MethodWeaver(m *typedef.Method) (*MethodWeaver, error)
	// Finish completes the proxy type once every method is woven.
	Finish() error
}

// Woven reports whether t already carries members generated by a weaver.
func Woven(t *typedef.Type) bool {
	if t.Field(HandlerField) != nil {
		return true
	}
	for _, m := range t.Methods {
		if strings.HasSuffix(m.Name, ProceedSuffix) || strings.HasSuffix(m.Name, OriginalSuffix) {
			return true
		}
	}
	return false
}
