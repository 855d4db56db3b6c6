package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Instruction is one decoded JVM instruction. Branch and switch operands
// refer to other instructions by pointer, so instructions can be moved
// between bodies or surrounded by new code without fixing up offsets.
type Instruction struct {
	Opcode byte

	// Index is the constant pool index (KindConst, KindConst8,
	// KindInvokeInterface, KindInvokeDynamic, KindMultiANewArray) or the
	// local variable slot (KindLocal, KindIinc).
	Index uint16

	// Value is the signed immediate of bipush/sipush, the increment of iinc,
	// the array type of newarray, the count of invokeinterface or the
	// dimensions of multianewarray.
	Value int32

	// Wide marks a local-variable or iinc instruction prefixed by wide.
	Wide bool

	// Target is the branch destination of KindBranch/KindBranchWide.
	Target *Instruction

	// Switch operands. Low is the first tableswitch key; Keys are the
	// lookupswitch match values, in order, parallel to Targets.
	Default *Instruction
	Low     int32
	Keys    []int32
	Targets []*Instruction

	// Offset is the byte offset assigned by the most recent Decode or Layout.
	Offset int
}

// NewInstruction returns an instruction without operands.
func NewInstruction(op byte) *Instruction {
	return &Instruction{Opcode: op}
}

// size returns the encoded length of ins when placed at offset.
func (ins *Instruction) size(offset int) int {
	switch Kind(ins.Opcode) {
	case KindNone:
		return 1
	case KindByte, KindConst8:
		return 2
	case KindShort, KindConst, KindBranch:
		return 3
	case KindLocal:
		if ins.Wide {
			return 4
		}
		return 2
	case KindIinc:
		if ins.Wide {
			return 6
		}
		return 3
	case KindBranchWide:
		return 5
	case KindMultiANewArray:
		return 4
	case KindInvokeInterface, KindInvokeDynamic:
		return 5
	case KindTableSwitch:
		return 1 + padding(offset) + 12 + 4*len(ins.Targets)
	case KindLookupSwitch:
		return 1 + padding(offset) + 8 + 8*len(ins.Targets)
	}
	return 1
}

func padding(offset int) int {
	return (4 - (offset+1)%4) % 4
}

// Decode decodes a method's code array into instructions.
func Decode(code []byte) ([]*Instruction, error) {
	var instrs []*Instruction
	byOffset := make(map[int]*Instruction)
	type pending struct {
		ins     *Instruction
		target  int
		targets []int
		def     int
	}
	var branches []pending

	pc := 0
	for pc < len(code) {
		start := pc
		op := code[pc]
		if !Valid(op) {
			return nil, fmt.Errorf("unknown opcode: 0x%02X at PC=%d", op, pc)
		}
		ins := &Instruction{Opcode: op, Offset: start}
		pc++

		need := func(n int) error {
			if pc+n > len(code) {
				return fmt.Errorf("truncated %s at PC=%d", Mnemonic(op), start)
			}
			return nil
		}

		switch Kind(op) {
		case KindNone:
		case KindByte:
			if err := need(1); err != nil {
				return nil, err
			}
			if op == OpNewarray {
				ins.Value = int32(code[pc])
			} else {
				ins.Value = int32(int8(code[pc]))
			}
			pc++
		case KindShort:
			if err := need(2); err != nil {
				return nil, err
			}
			ins.Value = int32(int16(binary.BigEndian.Uint16(code[pc:])))
			pc += 2
		case KindConst8, KindLocal:
			if err := need(1); err != nil {
				return nil, err
			}
			ins.Index = uint16(code[pc])
			pc++
		case KindConst:
			if err := need(2); err != nil {
				return nil, err
			}
			ins.Index = binary.BigEndian.Uint16(code[pc:])
			pc += 2
		case KindIinc:
			if err := need(2); err != nil {
				return nil, err
			}
			ins.Index = uint16(code[pc])
			ins.Value = int32(int8(code[pc+1]))
			pc += 2
		case KindBranch:
			if err := need(2); err != nil {
				return nil, err
			}
			off := int(int16(binary.BigEndian.Uint16(code[pc:])))
			branches = append(branches, pending{ins: ins, target: start + off})
			pc += 2
		case KindBranchWide:
			if err := need(4); err != nil {
				return nil, err
			}
			off := int(int32(binary.BigEndian.Uint32(code[pc:])))
			branches = append(branches, pending{ins: ins, target: start + off})
			pc += 4
		case KindInvokeInterface:
			if err := need(4); err != nil {
				return nil, err
			}
			ins.Index = binary.BigEndian.Uint16(code[pc:])
			ins.Value = int32(code[pc+2])
			pc += 4
		case KindInvokeDynamic:
			if err := need(4); err != nil {
				return nil, err
			}
			ins.Index = binary.BigEndian.Uint16(code[pc:])
			pc += 4
		case KindMultiANewArray:
			if err := need(3); err != nil {
				return nil, err
			}
			ins.Index = binary.BigEndian.Uint16(code[pc:])
			ins.Value = int32(code[pc+2])
			pc += 3
		case KindWide:
			if err := need(3); err != nil {
				return nil, err
			}
			ins.Opcode = code[pc]
			ins.Wide = true
			switch Kind(ins.Opcode) {
			case KindLocal:
				ins.Index = binary.BigEndian.Uint16(code[pc+1:])
				pc += 3
			case KindIinc:
				if err := need(5); err != nil {
					return nil, err
				}
				ins.Index = binary.BigEndian.Uint16(code[pc+1:])
				ins.Value = int32(int16(binary.BigEndian.Uint16(code[pc+3:])))
				pc += 5
			default:
				return nil, fmt.Errorf("wide applied to %s at PC=%d", Mnemonic(ins.Opcode), start)
			}
		case KindTableSwitch, KindLookupSwitch:
			pc += padding(start)
			if err := need(8); err != nil {
				return nil, err
			}
			p := pending{ins: ins, def: start + int(int32(binary.BigEndian.Uint32(code[pc:])))}
			if Kind(op) == KindTableSwitch {
				if err := need(12); err != nil {
					return nil, err
				}
				low := int32(binary.BigEndian.Uint32(code[pc+4:]))
				high := int32(binary.BigEndian.Uint32(code[pc+8:]))
				pc += 12
				if high < low {
					return nil, fmt.Errorf("tableswitch high < low at PC=%d", start)
				}
				n := int(int64(high) - int64(low) + 1)
				if err := need(4 * n); err != nil {
					return nil, err
				}
				ins.Low = low
				for i := 0; i < n; i++ {
					p.targets = append(p.targets, start+int(int32(binary.BigEndian.Uint32(code[pc:]))))
					pc += 4
				}
			} else {
				n := int(int32(binary.BigEndian.Uint32(code[pc+4:])))
				pc += 8
				if n < 0 {
					return nil, fmt.Errorf("lookupswitch negative npairs at PC=%d", start)
				}
				if err := need(8 * n); err != nil {
					return nil, err
				}
				for i := 0; i < n; i++ {
					ins.Keys = append(ins.Keys, int32(binary.BigEndian.Uint32(code[pc:])))
					p.targets = append(p.targets, start+int(int32(binary.BigEndian.Uint32(code[pc+4:]))))
					pc += 8
				}
			}
			branches = append(branches, p)
		}

		instrs = append(instrs, ins)
		byOffset[start] = ins
	}

	resolve := func(off int, from *Instruction) (*Instruction, error) {
		t, ok := byOffset[off]
		if !ok {
			return nil, fmt.Errorf("%s at PC=%d branches to %d, which is not an instruction boundary", Mnemonic(from.Opcode), from.Offset, off)
		}
		return t, nil
	}
	for _, b := range branches {
		var err error
		switch Kind(b.ins.Opcode) {
		case KindTableSwitch, KindLookupSwitch:
			if b.ins.Default, err = resolve(b.def, b.ins); err != nil {
				return nil, err
			}
			b.ins.Targets = make([]*Instruction, len(b.targets))
			for i, off := range b.targets {
				if b.ins.Targets[i], err = resolve(off, b.ins); err != nil {
					return nil, err
				}
			}
		default:
			if b.ins.Target, err = resolve(b.target, b.ins); err != nil {
				return nil, err
			}
		}
	}
	return instrs, nil
}

// Layout assigns byte offsets to instructions and returns the total code length.
func Layout(instrs []*Instruction) int {
	pc := 0
	for _, ins := range instrs {
		ins.Offset = pc
		pc += ins.size(pc)
	}
	return pc
}

// Encode lays out and encodes instructions into a code array. Every branch
// target must be part of instrs.
func Encode(instrs []*Instruction) ([]byte, error) {
	length := Layout(instrs)
	present := make(map[*Instruction]bool, len(instrs))
	for _, ins := range instrs {
		present[ins] = true
	}

	code := make([]byte, 0, length)
	u16 := func(v uint16) { code = binary.BigEndian.AppendUint16(code, v) }
	u32 := func(v uint32) { code = binary.BigEndian.AppendUint32(code, v) }
	rel := func(from, to *Instruction) (int, error) {
		if to == nil || !present[to] {
			return 0, fmt.Errorf("%s at PC=%d has a target outside the body", Mnemonic(from.Opcode), from.Offset)
		}
		return to.Offset - from.Offset, nil
	}

	for _, ins := range instrs {
		if ins.Wide {
			code = append(code, OpWide)
		}
		code = append(code, ins.Opcode)

		switch Kind(ins.Opcode) {
		case KindNone:
		case KindByte:
			code = append(code, byte(ins.Value))
		case KindShort:
			u16(uint16(int16(ins.Value)))
		case KindConst8:
			if ins.Index > math.MaxUint8 {
				return nil, fmt.Errorf("ldc index %d does not fit in one byte", ins.Index)
			}
			code = append(code, byte(ins.Index))
		case KindConst:
			u16(ins.Index)
		case KindLocal:
			if ins.Wide {
				u16(ins.Index)
			} else {
				if ins.Index > math.MaxUint8 {
					return nil, fmt.Errorf("%s slot %d needs wide", Mnemonic(ins.Opcode), ins.Index)
				}
				code = append(code, byte(ins.Index))
			}
		case KindIinc:
			if ins.Wide {
				u16(ins.Index)
				u16(uint16(int16(ins.Value)))
			} else {
				code = append(code, byte(ins.Index), byte(int8(ins.Value)))
			}
		case KindBranch:
			off, err := rel(ins, ins.Target)
			if err != nil {
				return nil, err
			}
			if off < math.MinInt16 || off > math.MaxInt16 {
				return nil, fmt.Errorf("%s at PC=%d: branch offset %d overflows 16 bits", Mnemonic(ins.Opcode), ins.Offset, off)
			}
			u16(uint16(int16(off)))
		case KindBranchWide:
			off, err := rel(ins, ins.Target)
			if err != nil {
				return nil, err
			}
			u32(uint32(int32(off)))
		case KindInvokeInterface:
			u16(ins.Index)
			code = append(code, byte(ins.Value), 0)
		case KindInvokeDynamic:
			u16(ins.Index)
			u16(0)
		case KindMultiANewArray:
			u16(ins.Index)
			code = append(code, byte(ins.Value))
		case KindTableSwitch, KindLookupSwitch:
			for i := 0; i < padding(ins.Offset); i++ {
				code = append(code, 0)
			}
			def, err := rel(ins, ins.Default)
			if err != nil {
				return nil, err
			}
			u32(uint32(int32(def)))
			if Kind(ins.Opcode) == KindTableSwitch {
				u32(uint32(ins.Low))
				u32(uint32(ins.Low + int32(len(ins.Targets)) - 1))
				for _, t := range ins.Targets {
					off, err := rel(ins, t)
					if err != nil {
						return nil, err
					}
					u32(uint32(int32(off)))
				}
			} else {
				if len(ins.Keys) != len(ins.Targets) {
					return nil, fmt.Errorf("lookupswitch at PC=%d has %d keys for %d targets", ins.Offset, len(ins.Keys), len(ins.Targets))
				}
				u32(uint32(len(ins.Targets)))
				for i, t := range ins.Targets {
					off, err := rel(ins, t)
					if err != nil {
						return nil, err
					}
					u32(uint32(ins.Keys[i]))
					u32(uint32(int32(off)))
				}
			}
		default:
			return nil, fmt.Errorf("cannot encode %s", Mnemonic(ins.Opcode))
		}
	}
	return code, nil
}
