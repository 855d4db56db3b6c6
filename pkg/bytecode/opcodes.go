package bytecode

import "fmt"

// Opcodes
const (
	OpNop             = 0x00
	OpAconstNull      = 0x01
	OpIconstM1        = 0x02
	OpIconst0         = 0x03
	OpIconst1         = 0x04
	OpIconst2         = 0x05
	OpIconst3         = 0x06
	OpIconst4         = 0x07
	OpIconst5         = 0x08
	OpLconst0         = 0x09
	OpLconst1         = 0x0A
	OpFconst0         = 0x0B
	OpFconst1         = 0x0C
	OpFconst2         = 0x0D
	OpDconst0         = 0x0E
	OpDconst1         = 0x0F
	OpBipush          = 0x10
	OpSipush          = 0x11
	OpLdc             = 0x12
	OpLdcW            = 0x13
	OpLdc2W           = 0x14
	OpIload           = 0x15
	OpLload           = 0x16
	OpFload           = 0x17
	OpDload           = 0x18
	OpAload           = 0x19
	OpIload0          = 0x1A
	OpIload1          = 0x1B
	OpIload2          = 0x1C
	OpIload3          = 0x1D
	OpLload0          = 0x1E
	OpLload1          = 0x1F
	OpLload2          = 0x20
	OpLload3          = 0x21
	OpFload0          = 0x22
	OpFload1          = 0x23
	OpFload2          = 0x24
	OpFload3          = 0x25
	OpDload0          = 0x26
	OpDload1          = 0x27
	OpDload2          = 0x28
	OpDload3          = 0x29
	OpAload0          = 0x2A
	OpAload1          = 0x2B
	OpAload2          = 0x2C
	OpAload3          = 0x2D
	OpIaload          = 0x2E
	OpLaload          = 0x2F
	OpFaload          = 0x30
	OpDaload          = 0x31
	OpAaload          = 0x32
	OpBaload          = 0x33
	OpCaload          = 0x34
	OpSaload          = 0x35
	OpIstore          = 0x36
	OpLstore          = 0x37
	OpFstore          = 0x38
	OpDstore          = 0x39
	OpAstore          = 0x3A
	OpIstore0         = 0x3B
	OpIstore1         = 0x3C
	OpIstore2         = 0x3D
	OpIstore3         = 0x3E
	OpLstore0         = 0x3F
	OpLstore1         = 0x40
	OpLstore2         = 0x41
	OpLstore3         = 0x42
	OpFstore0         = 0x43
	OpFstore1         = 0x44
	OpFstore2         = 0x45
	OpFstore3         = 0x46
	OpDstore0         = 0x47
	OpDstore1         = 0x48
	OpDstore2         = 0x49
	OpDstore3         = 0x4A
	OpAstore0         = 0x4B
	OpAstore1         = 0x4C
	OpAstore2         = 0x4D
	OpAstore3         = 0x4E
	OpIastore         = 0x4F
	OpLastore         = 0x50
	OpFastore         = 0x51
	OpDastore         = 0x52
	OpAastore         = 0x53
	OpBastore         = 0x54
	OpCastore         = 0x55
	OpSastore         = 0x56
	OpPop             = 0x57
	OpPop2            = 0x58
	OpDup             = 0x59
	OpDupX1           = 0x5A
	OpDupX2           = 0x5B
	OpDup2            = 0x5C
	OpDup2X1          = 0x5D
	OpDup2X2          = 0x5E
	OpSwap            = 0x5F
	OpIadd            = 0x60
	OpLadd            = 0x61
	OpFadd            = 0x62
	OpDadd            = 0x63
	OpIsub            = 0x64
	OpLsub            = 0x65
	OpFsub            = 0x66
	OpDsub            = 0x67
	OpImul            = 0x68
	OpLmul            = 0x69
	OpFmul            = 0x6A
	OpDmul            = 0x6B
	OpIdiv            = 0x6C
	OpLdiv            = 0x6D
	OpFdiv            = 0x6E
	OpDdiv            = 0x6F
	OpIrem            = 0x70
	OpLrem            = 0x71
	OpFrem            = 0x72
	OpDrem            = 0x73
	OpIneg            = 0x74
	OpLneg            = 0x75
	OpFneg            = 0x76
	OpDneg            = 0x77
	OpIshl            = 0x78
	OpLshl            = 0x79
	OpIshr            = 0x7A
	OpLshr            = 0x7B
	OpIushr           = 0x7C
	OpLushr           = 0x7D
	OpIand            = 0x7E
	OpLand            = 0x7F
	OpIor             = 0x80
	OpLor             = 0x81
	OpIxor            = 0x82
	OpLxor            = 0x83
	OpIinc            = 0x84
	OpI2l             = 0x85
	OpI2f             = 0x86
	OpI2d             = 0x87
	OpL2i             = 0x88
	OpL2f             = 0x89
	OpL2d             = 0x8A
	OpF2i             = 0x8B
	OpF2l             = 0x8C
	OpF2d             = 0x8D
	OpD2i             = 0x8E
	OpD2l             = 0x8F
	OpD2f             = 0x90
	OpI2b             = 0x91
	OpI2c             = 0x92
	OpI2s             = 0x93
	OpLcmp            = 0x94
	OpFcmpl           = 0x95
	OpFcmpg           = 0x96
	OpDcmpl           = 0x97
	OpDcmpg           = 0x98
	OpIfeq            = 0x99
	OpIfne            = 0x9A
	OpIflt            = 0x9B
	OpIfge            = 0x9C
	OpIfgt            = 0x9D
	OpIfle            = 0x9E
	OpIfIcmpeq        = 0x9F
	OpIfIcmpne        = 0xA0
	OpIfIcmplt        = 0xA1
	OpIfIcmpge        = 0xA2
	OpIfIcmpgt        = 0xA3
	OpIfIcmple        = 0xA4
	OpIfAcmpeq        = 0xA5
	OpIfAcmpne        = 0xA6
	OpGoto            = 0xA7
	OpJsr             = 0xA8
	OpRet             = 0xA9
	OpTableswitch     = 0xAA
	OpLookupswitch    = 0xAB
	OpIreturn         = 0xAC
	OpLreturn         = 0xAD
	OpFreturn         = 0xAE
	OpDreturn         = 0xAF
	OpAreturn         = 0xB0
	OpReturn          = 0xB1
	OpGetstatic       = 0xB2
	OpPutstatic       = 0xB3
	OpGetfield        = 0xB4
	OpPutfield        = 0xB5
	OpInvokevirtual   = 0xB6
	OpInvokespecial   = 0xB7
	OpInvokestatic    = 0xB8
	OpInvokeinterface = 0xB9
	OpInvokedynamic   = 0xBA
	OpNew             = 0xBB
	OpNewarray        = 0xBC
	OpAnewarray       = 0xBD
	OpArraylength     = 0xBE
	OpAthrow          = 0xBF
	OpCheckcast       = 0xC0
	OpInstanceof      = 0xC1
	OpMonitorenter    = 0xC2
	OpMonitorexit     = 0xC3
	OpWide            = 0xC4
	OpMultianewarray  = 0xC5
	OpIfnull          = 0xC6
	OpIfnonnull       = 0xC7
	OpGotoW           = 0xC8
	OpJsrW            = 0xC9
)

// OperandKind describes how an opcode's operands are encoded.
type OperandKind uint8

const (
	KindNone            OperandKind = iota
	KindByte                        // signed u1 (bipush) or u1 type code (newarray)
	KindShort                       // signed u2 (sipush)
	KindConst8                      // u1 constant pool index (ldc)
	KindConst                       // u2 constant pool index
	KindLocal                       // u1 local slot, u2 when wide
	KindIinc                        // local slot + signed increment
	KindBranch                      // s2 branch offset
	KindBranchWide                  // s4 branch offset
	KindTableSwitch                 // padded tableswitch
	KindLookupSwitch                // padded lookupswitch
	KindInvokeInterface             // u2 index, u1 count, u1 zero
	KindInvokeDynamic               // u2 index, u2 zero
	KindWide                        // prefix, folded into the following instruction
	KindMultiANewArray              // u2 index, u1 dimensions
)

type opInfo struct {
	name string
	kind OperandKind
}

var opTable = [256]*opInfo{
	0x00: {"nop", KindNone},
	0x01: {"aconst_null", KindNone},
	0x02: {"iconst_m1", KindNone},
	0x03: {"iconst_0", KindNone},
	0x04: {"iconst_1", KindNone},
	0x05: {"iconst_2", KindNone},
	0x06: {"iconst_3", KindNone},
	0x07: {"iconst_4", KindNone},
	0x08: {"iconst_5", KindNone},
	0x09: {"lconst_0", KindNone},
	0x0A: {"lconst_1", KindNone},
	0x0B: {"fconst_0", KindNone},
	0x0C: {"fconst_1", KindNone},
	0x0D: {"fconst_2", KindNone},
	0x0E: {"dconst_0", KindNone},
	0x0F: {"dconst_1", KindNone},
	0x10: {"bipush", KindByte},
	0x11: {"sipush", KindShort},
	0x12: {"ldc", KindConst8},
	0x13: {"ldc_w", KindConst},
	0x14: {"ldc2_w", KindConst},
	0x15: {"iload", KindLocal},
	0x16: {"lload", KindLocal},
	0x17: {"fload", KindLocal},
	0x18: {"dload", KindLocal},
	0x19: {"aload", KindLocal},
	0x1A: {"iload_0", KindNone},
	0x1B: {"iload_1", KindNone},
	0x1C: {"iload_2", KindNone},
	0x1D: {"iload_3", KindNone},
	0x1E: {"lload_0", KindNone},
	0x1F: {"lload_1", KindNone},
	0x20: {"lload_2", KindNone},
	0x21: {"lload_3", KindNone},
	0x22: {"fload_0", KindNone},
	0x23: {"fload_1", KindNone},
	0x24: {"fload_2", KindNone},
	0x25: {"fload_3", KindNone},
	0x26: {"dload_0", KindNone},
	0x27: {"dload_1", KindNone},
	0x28: {"dload_2", KindNone},
	0x29: {"dload_3", KindNone},
	0x2A: {"aload_0", KindNone},
	0x2B: {"aload_1", KindNone},
	0x2C: {"aload_2", KindNone},
	0x2D: {"aload_3", KindNone},
	0x2E: {"iaload", KindNone},
	0x2F: {"laload", KindNone},
	0x30: {"faload", KindNone},
	0x31: {"daload", KindNone},
	0x32: {"aaload", KindNone},
	0x33: {"baload", KindNone},
	0x34: {"caload", KindNone},
	0x35: {"saload", KindNone},
	0x36: {"istore", KindLocal},
	0x37: {"lstore", KindLocal},
	0x38: {"fstore", KindLocal},
	0x39: {"dstore", KindLocal},
	0x3A: {"astore", KindLocal},
	0x3B: {"istore_0", KindNone},
	0x3C: {"istore_1", KindNone},
	0x3D: {"istore_2", KindNone},
	0x3E: {"istore_3", KindNone},
	0x3F: {"lstore_0", KindNone},
	0x40: {"lstore_1", KindNone},
	0x41: {"lstore_2", KindNone},
	0x42: {"lstore_3", KindNone},
	0x43: {"fstore_0", KindNone},
	0x44: {"fstore_1", KindNone},
	0x45: {"fstore_2", KindNone},
	0x46: {"fstore_3", KindNone},
	0x47: {"dstore_0", KindNone},
	0x48: {"dstore_1", KindNone},
	0x49: {"dstore_2", KindNone},
	0x4A: {"dstore_3", KindNone},
	0x4B: {"astore_0", KindNone},
	0x4C: {"astore_1", KindNone},
	0x4D: {"astore_2", KindNone},
	0x4E: {"astore_3", KindNone},
	0x4F: {"iastore", KindNone},
	0x50: {"lastore", KindNone},
	0x51: {"fastore", KindNone},
	0x52: {"dastore", KindNone},
	0x53: {"aastore", KindNone},
	0x54: {"bastore", KindNone},
	0x55: {"castore", KindNone},
	0x56: {"sastore", KindNone},
	0x57: {"pop", KindNone},
	0x58: {"pop2", KindNone},
	0x59: {"dup", KindNone},
	0x5A: {"dup_x1", KindNone},
	0x5B: {"dup_x2", KindNone},
	0x5C: {"dup2", KindNone},
	0x5D: {"dup2_x1", KindNone},
	0x5E: {"dup2_x2", KindNone},
	0x5F: {"swap", KindNone},
	0x60: {"iadd", KindNone},
	0x61: {"ladd", KindNone},
	0x62: {"fadd", KindNone},
	0x63: {"dadd", KindNone},
	0x64: {"isub", KindNone},
	0x65: {"lsub", KindNone},
	0x66: {"fsub", KindNone},
	0x67: {"dsub", KindNone},
	0x68: {"imul", KindNone},
	0x69: {"lmul", KindNone},
	0x6A: {"fmul", KindNone},
	0x6B: {"dmul", KindNone},
	0x6C: {"idiv", KindNone},
	0x6D: {"ldiv", KindNone},
	0x6E: {"fdiv", KindNone},
	0x6F: {"ddiv", KindNone},
	0x70: {"irem", KindNone},
	0x71: {"lrem", KindNone},
	0x72: {"frem", KindNone},
	0x73: {"drem", KindNone},
	0x74: {"ineg", KindNone},
	0x75: {"lneg", KindNone},
	0x76: {"fneg", KindNone},
	0x77: {"dneg", KindNone},
	0x78: {"ishl", KindNone},
	0x79: {"lshl", KindNone},
	0x7A: {"ishr", KindNone},
	0x7B: {"lshr", KindNone},
	0x7C: {"iushr", KindNone},
	0x7D: {"lushr", KindNone},
	0x7E: {"iand", KindNone},
	0x7F: {"land", KindNone},
	0x80: {"ior", KindNone},
	0x81: {"lor", KindNone},
	0x82: {"ixor", KindNone},
	0x83: {"lxor", KindNone},
	0x84: {"iinc", KindIinc},
	0x85: {"i2l", KindNone},
	0x86: {"i2f", KindNone},
	0x87: {"i2d", KindNone},
	0x88: {"l2i", KindNone},
	0x89: {"l2f", KindNone},
	0x8A: {"l2d", KindNone},
	0x8B: {"f2i", KindNone},
	0x8C: {"f2l", KindNone},
	0x8D: {"f2d", KindNone},
	0x8E: {"d2i", KindNone},
	0x8F: {"d2l", KindNone},
	0x90: {"d2f", KindNone},
	0x91: {"i2b", KindNone},
	0x92: {"i2c", KindNone},
	0x93: {"i2s", KindNone},
	0x94: {"lcmp", KindNone},
	0x95: {"fcmpl", KindNone},
	0x96: {"fcmpg", KindNone},
	0x97: {"dcmpl", KindNone},
	0x98: {"dcmpg", KindNone},
	0x99: {"ifeq", KindBranch},
	0x9A: {"ifne", KindBranch},
	0x9B: {"iflt", KindBranch},
	0x9C: {"ifge", KindBranch},
	0x9D: {"ifgt", KindBranch},
	0x9E: {"ifle", KindBranch},
	0x9F: {"if_icmpeq", KindBranch},
	0xA0: {"if_icmpne", KindBranch},
	0xA1: {"if_icmplt", KindBranch},
	0xA2: {"if_icmpge", KindBranch},
	0xA3: {"if_icmpgt", KindBranch},
	0xA4: {"if_icmple", KindBranch},
	0xA5: {"if_acmpeq", KindBranch},
	0xA6: {"if_acmpne", KindBranch},
	0xA7: {"goto", KindBranch},
	0xA8: {"jsr", KindBranch},
	0xA9: {"ret", KindLocal},
	0xAA: {"tableswitch", KindTableSwitch},
	0xAB: {"lookupswitch", KindLookupSwitch},
	0xAC: {"ireturn", KindNone},
	0xAD: {"lreturn", KindNone},
	0xAE: {"freturn", KindNone},
	0xAF: {"dreturn", KindNone},
	0xB0: {"areturn", KindNone},
	0xB1: {"return", KindNone},
	0xB2: {"getstatic", KindConst},
	0xB3: {"putstatic", KindConst},
	0xB4: {"getfield", KindConst},
	0xB5: {"putfield", KindConst},
	0xB6: {"invokevirtual", KindConst},
	0xB7: {"invokespecial", KindConst},
	0xB8: {"invokestatic", KindConst},
	0xB9: {"invokeinterface", KindInvokeInterface},
	0xBA: {"invokedynamic", KindInvokeDynamic},
	0xBB: {"new", KindConst},
	0xBC: {"newarray", KindByte},
	0xBD: {"anewarray", KindConst},
	0xBE: {"arraylength", KindNone},
	0xBF: {"athrow", KindNone},
	0xC0: {"checkcast", KindConst},
	0xC1: {"instanceof", KindConst},
	0xC2: {"monitorenter", KindNone},
	0xC3: {"monitorexit", KindNone},
	0xC4: {"wide", KindWide},
	0xC5: {"multianewarray", KindMultiANewArray},
	0xC6: {"ifnull", KindBranch},
	0xC7: {"ifnonnull", KindBranch},
	0xC8: {"goto_w", KindBranchWide},
	0xC9: {"jsr_w", KindBranchWide},
}

// Mnemonic returns the javap mnemonic of op.
func Mnemonic(op byte) string {
	if info := opTable[op]; info != nil {
		return info.name
	}
	return fmt.Sprintf("op_0x%02x", op)
}

// Kind returns the operand layout of op.
func Kind(op byte) OperandKind {
	if info := opTable[op]; info != nil {
		return info.kind
	}
	return KindNone
}

// Valid reports whether op is a defined JVM opcode.
func Valid(op byte) bool {
	return opTable[op] != nil
}

// IsReturn reports whether op returns from the method.
func IsReturn(op byte) bool {
	return op >= OpIreturn && op <= OpReturn
}
