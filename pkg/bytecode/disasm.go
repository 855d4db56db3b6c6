package bytecode

import (
	"fmt"
	"strings"

	"github.com/daimatz/jweave/pkg/classfile"
)

// Disassemble renders a javap-style listing of the body. Constant operands
// are resolved against pool where possible.
func Disassemble(b *Body, pool classfile.Pool) string {
	var sb strings.Builder
	Layout(b.Instructions)
	fmt.Fprintf(&sb, "stack=%d, locals=%d\n", b.MaxStack, b.MaxLocals)
	for _, ins := range b.Instructions {
		fmt.Fprintf(&sb, "%6d: %s\n", ins.Offset, FormatInstruction(ins, pool))
	}
	if len(b.Handlers) > 0 {
		sb.WriteString("Exception table:\n")
		for _, h := range b.Handlers {
			catch := h.CatchType
			if catch == "" {
				catch = "any"
			}
			fmt.Fprintf(&sb, "  %5d %5d %5d   %s\n", offsetOf(h.Start), endOffset(b, h.End), offsetOf(h.Handler), catch)
		}
	}
	if len(b.Variables) > 0 {
		sb.WriteString("LocalVariableTable:\n")
		for _, v := range b.Variables {
			start := offsetOf(v.Start)
			fmt.Fprintf(&sb, "  %5d %5d %5d %s %s\n", start, endOffset(b, v.End)-start, v.Index, v.Name, v.Descriptor)
		}
	}
	return sb.String()
}

func offsetOf(ins *Instruction) int {
	if ins == nil {
		return -1
	}
	return ins.Offset
}

func endOffset(b *Body, ins *Instruction) int {
	if ins != nil {
		return ins.Offset
	}
	last := b.Last()
	if last == nil {
		return 0
	}
	return last.Offset + last.size(last.Offset)
}

// FormatInstruction renders one instruction with its operands.
func FormatInstruction(ins *Instruction, pool classfile.Pool) string {
	name := Mnemonic(ins.Opcode)
	if ins.Wide {
		name = "wide " + name
	}
	switch Kind(ins.Opcode) {
	case KindByte, KindShort:
		return fmt.Sprintf("%s %d", name, ins.Value)
	case KindLocal:
		return fmt.Sprintf("%s %d", name, ins.Index)
	case KindIinc:
		return fmt.Sprintf("%s %d, %d", name, ins.Index, ins.Value)
	case KindConst8, KindConst, KindInvokeDynamic:
		return fmt.Sprintf("%s #%d%s", name, ins.Index, describeConstant(pool, ins.Index))
	case KindInvokeInterface:
		return fmt.Sprintf("%s #%d, %d%s", name, ins.Index, ins.Value, describeConstant(pool, ins.Index))
	case KindMultiANewArray:
		return fmt.Sprintf("%s #%d, %d%s", name, ins.Index, ins.Value, describeConstant(pool, ins.Index))
	case KindBranch, KindBranchWide:
		return fmt.Sprintf("%s %d", name, offsetOf(ins.Target))
	case KindTableSwitch:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s {", name)
		for i, t := range ins.Targets {
			fmt.Fprintf(&sb, " %d: %d;", ins.Low+int32(i), offsetOf(t))
		}
		fmt.Fprintf(&sb, " default: %d }", offsetOf(ins.Default))
		return sb.String()
	case KindLookupSwitch:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s {", name)
		for i, t := range ins.Targets {
			fmt.Fprintf(&sb, " %d: %d;", ins.Keys[i], offsetOf(t))
		}
		fmt.Fprintf(&sb, " default: %d }", offsetOf(ins.Default))
		return sb.String()
	}
	return name
}

func describeConstant(pool classfile.Pool, index uint16) string {
	if int(index) >= len(pool) || pool[index] == nil {
		return ""
	}
	switch c := pool[index].(type) {
	case *classfile.ConstantInteger:
		return fmt.Sprintf(" // int %d", c.Value)
	case *classfile.ConstantLong:
		return fmt.Sprintf(" // long %dl", c.Value)
	case *classfile.ConstantFloat:
		return fmt.Sprintf(" // float %gf", c.Value)
	case *classfile.ConstantDouble:
		return fmt.Sprintf(" // double %gd", c.Value)
	case *classfile.ConstantString:
		s, err := classfile.GetUtf8(pool, c.StringIndex)
		if err != nil {
			return ""
		}
		return fmt.Sprintf(" // String %q", s)
	case *classfile.ConstantClass:
		name, err := classfile.GetClassName(pool, index)
		if err != nil {
			return ""
		}
		return " // class " + name
	case *classfile.ConstantFieldref:
		ref, err := classfile.ResolveFieldref(pool, index)
		if err != nil {
			return ""
		}
		return fmt.Sprintf(" // Field %s.%s:%s", ref.ClassName, ref.FieldName, ref.Descriptor)
	case *classfile.ConstantMethodref, *classfile.ConstantInterfaceMethodref:
		ref, err := classfile.ResolveAnyMethodref(pool, index)
		if err != nil {
			return ""
		}
		kind := "Method"
		if _, ok := c.(*classfile.ConstantInterfaceMethodref); ok {
			kind = "InterfaceMethod"
		}
		return fmt.Sprintf(" // %s %s.%s:%s", kind, ref.ClassName, ref.MethodName, ref.Descriptor)
	}
	return ""
}
