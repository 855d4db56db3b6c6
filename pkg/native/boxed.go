package native

import (
	"math"
	"strconv"
	"strings"
)

// Boxed is an instance of a primitive wrapper class such as
// java/lang/Integer. Integral kinds keep their value in Int, floating point
// kinds in Float.
type Boxed struct {
	Kind  byte // primitive descriptor: Z B C S I J F D
	Int   int64
	Float float64
}

var wrapperClasses = map[byte]string{
	'Z': "java/lang/Boolean",
	'B': "java/lang/Byte",
	'C': "java/lang/Character",
	'S': "java/lang/Short",
	'I': "java/lang/Integer",
	'J': "java/lang/Long",
	'F': "java/lang/Float",
	'D': "java/lang/Double",
}

// WrapperClass returns the wrapper class of a primitive descriptor.
func WrapperClass(kind byte) (string, bool) {
	c, ok := wrapperClasses[kind]
	return c, ok
}

// PrimitiveOf returns the primitive descriptor wrapped by class.
func PrimitiveOf(class string) (byte, bool) {
	for k, c := range wrapperClasses {
		if c == class {
			return k, true
		}
	}
	return 0, false
}

// BoxInt boxes an integral primitive.
func BoxInt(kind byte, v int64) *Boxed {
	return &Boxed{Kind: kind, Int: v}
}

// BoxFloat boxes a float or double.
func BoxFloat(kind byte, v float64) *Boxed {
	return &Boxed{Kind: kind, Float: v}
}

// IntegerValueOf boxes an int.
func IntegerValueOf(v int32) *Boxed {
	return BoxInt('I', int64(v))
}

// ClassName returns the wrapper class of b.
func (b *Boxed) ClassName() string {
	return wrapperClasses[b.Kind]
}

// IsFloat reports whether b wraps a float or double.
func (b *Boxed) IsFloat() bool {
	return b.Kind == 'F' || b.Kind == 'D'
}

// Key returns a comparable value identifying b's contents.
func (b *Boxed) Key() Boxed {
	return *b
}

// String formats b the way the wrapper's toString does.
func (b *Boxed) String() string {
	switch b.Kind {
	case 'Z':
		return strconv.FormatBool(b.Int != 0)
	case 'C':
		return string(rune(b.Int))
	case 'F':
		return formatFloat(b.Float, 32)
	case 'D':
		return formatFloat(b.Float, 64)
	}
	return strconv.FormatInt(b.Int, 10)
}

func formatFloat(v float64, bits int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	if abs := math.Abs(v); v == 0 || (abs >= 1e-3 && abs < 1e7) {
		s := strconv.FormatFloat(v, 'f', -1, bits)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(v, 'E', -1, bits), "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	return mant + "E" + strings.TrimPrefix(exp, "+")
}
