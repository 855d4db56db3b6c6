package bytecode

import (
	"testing"

	"github.com/daimatz/jweave/pkg/classfile"
)

func opcodes(b *Body) []string {
	var names []string
	for _, ins := range b.Instructions {
		names = append(names, Mnemonic(ins.Opcode))
	}
	return names
}

func TestEmitterLoadStore(t *testing.T) {
	tests := []struct {
		fieldType string
		slot      uint16
		load      string
		store     string
	}{
		{"I", 1, "iload_1", "istore_1"},
		{"Z", 3, "iload_3", "istore_3"},
		{"J", 2, "lload_2", "lstore_2"},
		{"F", 0, "fload_0", "fstore_0"},
		{"D", 7, "dload", "dstore"},
		{"Ljava/lang/String;", 2, "aload_2", "astore_2"},
		{"[I", 4, "aload", "astore"},
	}
	for _, tt := range tests {
		t.Run(tt.fieldType, func(t *testing.T) {
			pool := classfile.NewPool()
			e := NewEmitter(NewBody(), &pool)
			if got := Mnemonic(e.Load(tt.fieldType, tt.slot).Opcode); got != tt.load {
				t.Errorf("Load: got %s, want %s", got, tt.load)
			}
			if got := Mnemonic(e.Store(tt.fieldType, tt.slot).Opcode); got != tt.store {
				t.Errorf("Store: got %s, want %s", got, tt.store)
			}
			want := tt.slot + uint16(classfile.SlotSize(tt.fieldType))
			if e.Body().MaxLocals != want {
				t.Errorf("MaxLocals: got %d, want %d", e.Body().MaxLocals, want)
			}
		})
	}
}

func TestEmitterInt(t *testing.T) {
	tests := []struct {
		v    int32
		want string
	}{
		{-1, "iconst_m1"},
		{0, "iconst_0"},
		{5, "iconst_5"},
		{6, "bipush"},
		{-128, "bipush"},
		{300, "sipush"},
		{70000, "ldc"},
	}
	for _, tt := range tests {
		pool := classfile.NewPool()
		e := NewEmitter(NewBody(), &pool)
		ins := e.Int(tt.v)
		if got := Mnemonic(ins.Opcode); got != tt.want {
			t.Errorf("Int(%d): got %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestEmitterStackDepth(t *testing.T) {
	pool := classfile.NewPool()
	body := NewBody()
	e := NewEmitter(body, &pool)

	// Object[] args = { Long.valueOf(l) }; return args;
	e.Int(1)
	e.ANewArray("java/lang/Object")
	e.Dup()
	e.Int(0)
	e.Load("J", 1)
	e.Box("J")
	e.ArrayStore()
	e.Return("[Ljava/lang/Object;")
	if err := e.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// array, array, index, long(2)
	if body.MaxStack != 5 {
		t.Errorf("MaxStack: got %d, want 5", body.MaxStack)
	}
	if body.MaxLocals != 3 {
		t.Errorf("MaxLocals: got %d, want 3", body.MaxLocals)
	}
	if e.Depth() != 0 {
		t.Errorf("Depth after return: got %d, want 0", e.Depth())
	}
}

func TestEmitterUnderflow(t *testing.T) {
	pool := classfile.NewPool()
	e := NewEmitter(NewBody(), &pool)
	e.Return("I")
	if err := e.Finish(); err == nil {
		t.Error("expected stack underflow error")
	}
}

func TestEmitterEnterHandler(t *testing.T) {
	pool := classfile.NewPool()
	body := NewBody()
	e := NewEmitter(body, &pool)
	e.Null()
	e.Return("Ljava/lang/Object;")
	e.Enter(1)
	e.Store("Ljava/lang/Object;", 0)
	e.Null()
	e.Return("Ljava/lang/Object;")
	if err := e.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if body.MaxStack != 1 {
		t.Errorf("MaxStack: got %d, want 1", body.MaxStack)
	}
}

func TestEmitterBoxing(t *testing.T) {
	pool := classfile.NewPool()
	body := NewBody()
	e := NewEmitter(body, &pool)
	e.Null()
	e.Unbox("I")
	e.Box("I")
	e.Unbox("Ljava/lang/String;")
	e.Unbox("Ljava/lang/Object;")
	e.Unbox("[J")
	if err := e.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	want := []string{"aconst_null", "checkcast", "invokevirtual", "invokestatic", "checkcast", "checkcast"}
	got := opcodes(body)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d: got %s, want %s", i, got[i], want[i])
		}
	}

	ref, err := classfile.ResolveMethodref(pool, body.Instructions[2].Index)
	if err != nil {
		t.Fatalf("ResolveMethodref: %v", err)
	}
	if ref.ClassName != "java/lang/Integer" || ref.MethodName != "intValue" || ref.Descriptor != "()I" {
		t.Errorf("unbox call: got %+v", ref)
	}
	arr, err := classfile.GetClassName(pool, body.Instructions[5].Index)
	if err != nil || arr != "[J" {
		t.Errorf("array cast: got %q, %v", arr, err)
	}
}

func TestEmitterDefaultValue(t *testing.T) {
	tests := []struct {
		fieldType string
		want      string
	}{
		{"I", "iconst_0"},
		{"Z", "iconst_0"},
		{"J", "lconst_0"},
		{"F", "fconst_0"},
		{"D", "dconst_0"},
		{"Ljava/lang/Object;", "aconst_null"},
		{"[I", "aconst_null"},
	}
	for _, tt := range tests {
		pool := classfile.NewPool()
		e := NewEmitter(NewBody(), &pool)
		if got := Mnemonic(e.DefaultValue(tt.fieldType).Opcode); got != tt.want {
			t.Errorf("DefaultValue(%s): got %s, want %s", tt.fieldType, got, tt.want)
		}
	}

	pool := classfile.NewPool()
	e := NewEmitter(NewBody(), &pool)
	if ins := e.DefaultValue("V"); ins != nil {
		t.Errorf("DefaultValue(V): got %s, want nothing", Mnemonic(ins.Opcode))
	}
}

func TestEmitterInvokeInterfaceCount(t *testing.T) {
	pool := classfile.NewPool()
	e := NewEmitter(NewBody(), &pool)
	e.Null()
	e.Null()
	ins := e.Invoke(OpInvokeinterface, "jweave/InvocationHandler", "invoke", "(Ljweave/Invocation;)Ljava/lang/Object;")
	if ins.Value != 2 {
		t.Errorf("invokeinterface count: got %d, want 2", ins.Value)
	}
	if e.Depth() != 1 {
		t.Errorf("Depth: got %d, want 1", e.Depth())
	}
	if _, err := classfile.ResolveInterfaceMethodref(pool, ins.Index); err != nil {
		t.Errorf("invokeinterface should reference an InterfaceMethodref: %v", err)
	}
}
