package bytecode

import (
	"bytes"
	"testing"
)

func TestDecodeEncodeIdentity(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{
			name: "straight line",
			code: []byte{OpIload1, OpIload2, OpIadd, OpIreturn},
		},
		{
			name: "loop with backward branch",
			// 0: iconst_0; 1: istore_1; 2: iinc 1,1; 5: iload_1; 6: bipush 10; 8: if_icmplt -6; 11: return
			code: []byte{OpIconst0, OpIstore1, OpIinc, 1, 1, OpIload1, OpBipush, 10, OpIfIcmplt, 0xFF, 0xFA, OpReturn},
		},
		{
			name: "wide locals",
			code: []byte{OpWide, OpIload, 0x01, 0x00, OpWide, OpIinc, 0x01, 0x00, 0x01, 0x00, OpReturn},
		},
		{
			name: "tableswitch with padding",
			// 0: iload_1; 1: tableswitch (2 bytes padding) default->28, 0->26, 1->27; 26..28: nop nop return
			code: []byte{
				OpIload1, OpTableswitch, 0, 0,
				0, 0, 0, 27, // default
				0, 0, 0, 0, // low
				0, 0, 0, 1, // high
				0, 0, 0, 25,
				0, 0, 0, 26,
				OpNop, OpNop, OpNop, OpNop, OpReturn,
			},
		},
		{
			name: "lookupswitch",
			code: []byte{
				OpIload1, OpLookupswitch, 0, 0,
				0, 0, 0, 19, // default
				0, 0, 0, 1, // npairs
				0, 0, 0, 7, 0, 0, 0, 20,
				OpReturn, OpReturn,
			},
		},
		{
			name: "invokeinterface and ldc",
			code: []byte{OpAload0, OpLdc, 3, OpInvokeinterface, 0, 5, 2, 0, OpAreturn},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instrs, err := Decode(tt.code)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			got, err := Encode(instrs)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if !bytes.Equal(got, tt.code) {
				t.Errorf("Encode(Decode(code)):\n got %v\nwant %v", got, tt.code)
			}
		})
	}
}

func TestDecodeResolvesTargets(t *testing.T) {
	code := []byte{OpIconst0, OpIfeq, 0, 4, OpNop, OpReturn}
	instrs, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(instrs) != 4 {
		t.Fatalf("got %d instructions, want 4", len(instrs))
	}
	if instrs[1].Target != instrs[3] {
		t.Errorf("ifeq target: got %+v, want the return instruction", instrs[1].Target)
	}
}

func TestEncodeAfterInsertion(t *testing.T) {
	code := []byte{OpIconst0, OpIfeq, 0, 4, OpNop, OpReturn}
	instrs, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// Insert two instructions between the branch and its target.
	grown := append([]*Instruction{}, instrs[:2]...)
	grown = append(grown, NewInstruction(OpNop), NewInstruction(OpNop))
	grown = append(grown, instrs[2:]...)

	got, err := Encode(grown)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{OpIconst0, OpIfeq, 0, 6, OpNop, OpNop, OpNop, OpReturn}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSwitchPaddingMovesWithLayout(t *testing.T) {
	code := []byte{
		OpIload1, OpLookupswitch, 0, 0,
		0, 0, 0, 11, // default
		0, 0, 0, 0, // npairs
		OpReturn,
	}
	instrs, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	shifted := append([]*Instruction{NewInstruction(OpNop)}, instrs...)
	got, err := Encode(shifted)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{
		OpNop, OpIload1, OpLookupswitch, 0,
		0, 0, 0, 10,
		0, 0, 0, 0,
		OpReturn,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"unknown opcode", []byte{0xCB}},
		{"truncated operand", []byte{OpSipush, 0x01}},
		{"branch into operand", []byte{OpGoto, 0, 1, OpReturn}},
		{"wide on non-local", []byte{OpWide, OpIadd, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.code); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestEncodeBranchOverflow(t *testing.T) {
	target := NewInstruction(OpReturn)
	instrs := []*Instruction{{Opcode: OpGoto, Target: target}}
	for i := 0; i < 40000; i++ {
		instrs = append(instrs, NewInstruction(OpNop))
	}
	instrs = append(instrs, target)
	if _, err := Encode(instrs); err == nil {
		t.Error("expected overflow error, got nil")
	}

	instrs[0].Opcode = OpGotoW
	if _, err := Encode(instrs); err != nil {
		t.Errorf("goto_w: unexpected error %v", err)
	}
}

func TestEncodeForeignTarget(t *testing.T) {
	instrs := []*Instruction{{Opcode: OpGoto, Target: NewInstruction(OpReturn)}}
	if _, err := Encode(instrs); err == nil {
		t.Error("expected error for target outside the body")
	}
}
