package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/daimatz/jweave/pkg/classfile"
)

// Handler is an exception table entry. End is exclusive; a nil End means
// the range extends to the end of the code.
type Handler struct {
	Start     *Instruction
	End       *Instruction
	Handler   *Instruction
	CatchType string // internal class name, "" for any
}

// Variable is a LocalVariableTable entry. A nil End means the variable is
// live to the end of the code.
type Variable struct {
	Name       string
	Descriptor string
	Index      uint16
	Start      *Instruction
	End        *Instruction
}

// Line is a LineNumberTable entry.
type Line struct {
	Start *Instruction
	Line  uint16
}

// Body is a decoded method body.
type Body struct {
	Instructions []*Instruction
	MaxStack     uint16
	MaxLocals    uint16
	Handlers     []Handler
	Variables    []Variable
	Lines        []Line

	// Attributes holds the code attributes other than LineNumberTable and
	// LocalVariableTable, undecoded.
	Attributes []classfile.AttributeInfo
}

// NewBody returns an empty body.
func NewBody() *Body {
	return &Body{}
}

// DecodeBody decodes a Code attribute.
func DecodeBody(code *classfile.CodeAttribute, pool classfile.Pool) (*Body, error) {
	instrs, err := Decode(code.Code)
	if err != nil {
		return nil, err
	}
	b := &Body{
		Instructions: instrs,
		MaxStack:     code.MaxStack,
		MaxLocals:    code.MaxLocals,
	}

	at := make(map[int]*Instruction, len(instrs))
	for _, ins := range instrs {
		at[ins.Offset] = ins
	}
	length := len(code.Code)
	lookup := func(pc int, endOK bool) (*Instruction, error) {
		if endOK && pc == length {
			return nil, nil
		}
		ins, ok := at[pc]
		if !ok {
			return nil, fmt.Errorf("offset %d is not an instruction boundary", pc)
		}
		return ins, nil
	}

	for _, h := range code.ExceptionHandlers {
		var handler Handler
		if handler.Start, err = lookup(int(h.StartPC), false); err != nil {
			return nil, fmt.Errorf("exception table: %w", err)
		}
		if handler.End, err = lookup(int(h.EndPC), true); err != nil {
			return nil, fmt.Errorf("exception table: %w", err)
		}
		if handler.Handler, err = lookup(int(h.HandlerPC), false); err != nil {
			return nil, fmt.Errorf("exception table: %w", err)
		}
		if h.CatchType != 0 {
			if handler.CatchType, err = classfile.GetClassName(pool, h.CatchType); err != nil {
				return nil, fmt.Errorf("exception table: %w", err)
			}
		}
		b.Handlers = append(b.Handlers, handler)
	}

	for _, attr := range code.Attributes {
		switch attr.Name {
		case "LineNumberTable":
			data := attr.Data
			if len(data) < 2 || len(data) != 2+4*int(binary.BigEndian.Uint16(data)) {
				return nil, fmt.Errorf("malformed LineNumberTable")
			}
			for p := 2; p < len(data); p += 4 {
				start, err := lookup(int(binary.BigEndian.Uint16(data[p:])), false)
				if err != nil {
					return nil, fmt.Errorf("LineNumberTable: %w", err)
				}
				b.Lines = append(b.Lines, Line{Start: start, Line: binary.BigEndian.Uint16(data[p+2:])})
			}
		case "LocalVariableTable":
			data := attr.Data
			if len(data) < 2 || len(data) != 2+10*int(binary.BigEndian.Uint16(data)) {
				return nil, fmt.Errorf("malformed LocalVariableTable")
			}
			for p := 2; p < len(data); p += 10 {
				startPC := int(binary.BigEndian.Uint16(data[p:]))
				v := Variable{Index: binary.BigEndian.Uint16(data[p+8:])}
				if v.Start, err = lookup(startPC, false); err != nil {
					return nil, fmt.Errorf("LocalVariableTable: %w", err)
				}
				if v.End, err = lookup(startPC+int(binary.BigEndian.Uint16(data[p+2:])), true); err != nil {
					return nil, fmt.Errorf("LocalVariableTable: %w", err)
				}
				if v.Name, err = classfile.GetUtf8(pool, binary.BigEndian.Uint16(data[p+4:])); err != nil {
					return nil, fmt.Errorf("LocalVariableTable: %w", err)
				}
				if v.Descriptor, err = classfile.GetUtf8(pool, binary.BigEndian.Uint16(data[p+6:])); err != nil {
					return nil, fmt.Errorf("LocalVariableTable: %w", err)
				}
				b.Variables = append(b.Variables, v)
			}
		default:
			b.Attributes = append(b.Attributes, attr)
		}
	}
	return b, nil
}

// Encode lowers the body to a Code attribute, adding any constants it needs
// to pool.
func (b *Body) Encode(pool *classfile.Pool) (*classfile.CodeAttribute, error) {
	code, err := Encode(b.Instructions)
	if err != nil {
		return nil, err
	}
	length := len(code)
	offset := func(ins *Instruction) (uint16, error) {
		if ins == nil {
			return uint16(length), nil
		}
		if !b.contains(ins) {
			return 0, fmt.Errorf("%s refers to an instruction outside the body", Mnemonic(ins.Opcode))
		}
		return uint16(ins.Offset), nil
	}

	ca := &classfile.CodeAttribute{
		MaxStack:  b.MaxStack,
		MaxLocals: b.MaxLocals,
		Code:      code,
	}
	for _, h := range b.Handlers {
		var eh classfile.ExceptionHandler
		if h.Start == nil || h.Handler == nil {
			return nil, fmt.Errorf("exception handler without start or handler instruction")
		}
		if eh.StartPC, err = offset(h.Start); err != nil {
			return nil, err
		}
		if eh.EndPC, err = offset(h.End); err != nil {
			return nil, err
		}
		if eh.HandlerPC, err = offset(h.Handler); err != nil {
			return nil, err
		}
		if h.CatchType != "" {
			eh.CatchType = pool.AddClass(h.CatchType)
		}
		ca.ExceptionHandlers = append(ca.ExceptionHandlers, eh)
	}

	if len(b.Lines) > 0 {
		data := binary.BigEndian.AppendUint16(nil, uint16(len(b.Lines)))
		for _, l := range b.Lines {
			pc, err := offset(l.Start)
			if err != nil {
				return nil, err
			}
			data = binary.BigEndian.AppendUint16(data, pc)
			data = binary.BigEndian.AppendUint16(data, l.Line)
		}
		ca.Attributes = append(ca.Attributes, classfile.AttributeInfo{Name: "LineNumberTable", Data: data})
	}
	if len(b.Variables) > 0 {
		data := binary.BigEndian.AppendUint16(nil, uint16(len(b.Variables)))
		for _, v := range b.Variables {
			start, err := offset(v.Start)
			if err != nil {
				return nil, err
			}
			end, err := offset(v.End)
			if err != nil {
				return nil, err
			}
			data = binary.BigEndian.AppendUint16(data, start)
			data = binary.BigEndian.AppendUint16(data, end-start)
			data = binary.BigEndian.AppendUint16(data, pool.AddUtf8(v.Name))
			data = binary.BigEndian.AppendUint16(data, pool.AddUtf8(v.Descriptor))
			data = binary.BigEndian.AppendUint16(data, v.Index)
		}
		ca.Attributes = append(ca.Attributes, classfile.AttributeInfo{Name: "LocalVariableTable", Data: data})
	}
	ca.Attributes = append(ca.Attributes, b.Attributes...)
	return ca, nil
}

func (b *Body) contains(ins *Instruction) bool {
	for _, i := range b.Instructions {
		if i == ins {
			return true
		}
	}
	return false
}

// Append adds instructions to the end of the body.
func (b *Body) Append(instrs ...*Instruction) {
	b.Instructions = append(b.Instructions, instrs...)
}

// Last returns the final instruction, or nil for an empty body.
func (b *Body) Last() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[len(b.Instructions)-1]
}

// RemoveLast removes and returns the final instruction. References to it
// from branches, handlers, variables and lines are left in place; use
// Retarget to move them.
func (b *Body) RemoveLast() *Instruction {
	last := b.Last()
	if last != nil {
		b.Instructions = b.Instructions[:len(b.Instructions)-1]
	}
	return last
}

// Retarget rewrites every reference to old so that it refers to new.
func (b *Body) Retarget(old, new *Instruction) {
	swap := func(p **Instruction) {
		if *p == old {
			*p = new
		}
	}
	for _, ins := range b.Instructions {
		swap(&ins.Target)
		swap(&ins.Default)
		for i := range ins.Targets {
			swap(&ins.Targets[i])
		}
	}
	for i := range b.Handlers {
		swap(&b.Handlers[i].Start)
		swap(&b.Handlers[i].End)
		swap(&b.Handlers[i].Handler)
	}
	for i := range b.Variables {
		swap(&b.Variables[i].Start)
		swap(&b.Variables[i].End)
	}
	for i := range b.Lines {
		swap(&b.Lines[i].Start)
	}
}

// Branches reports whether any instruction in the body branches to ins.
func (b *Body) Branches(ins *Instruction) bool {
	for _, i := range b.Instructions {
		if i.Target == ins || i.Default == ins {
			return true
		}
		for _, t := range i.Targets {
			if t == ins {
				return true
			}
		}
	}
	for _, h := range b.Handlers {
		if h.Handler == ins {
			return true
		}
	}
	return false
}
