package native

import (
	"fmt"
	"io"
)

// PrintStream represents a java.io.PrintStream.
type PrintStream struct {
	Writer io.Writer
}

// Println prints a value followed by a newline.
func (ps *PrintStream) Println(args ...any) {
	if len(args) == 0 {
		fmt.Fprintln(ps.Writer)
		return
	}
	fmt.Fprintln(ps.Writer, args[0])
}

// Print prints a value without a newline.
func (ps *PrintStream) Print(arg any) {
	fmt.Fprint(ps.Writer, arg)
}
