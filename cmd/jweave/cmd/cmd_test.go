package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/typedef"
	"github.com/daimatz/jweave/pkg/weave"
	"github.com/fatih/color"
)

func helloClass(t *testing.T) []byte {
	t.Helper()
	typ := typedef.NewType("app/Hello", "java/lang/Object")
	m, err := typedef.NewMethod(classfile.AccPublic, "greet", "()I")
	if err != nil {
		t.Fatal(err)
	}
	m.Body = bytecode.NewBody()
	m.Body.MaxLocals = 1
	e := bytecode.NewEmitter(m.Body, &typ.Pool)
	e.Int(3)
	e.Return("I")
	if err := e.Finish(); err != nil {
		t.Fatal(err)
	}
	typ.AddMethod(m)

	ctor, _ := typedef.NewMethod(classfile.AccPublic, typedef.ConstructorName, "()V")
	ctor.Body = bytecode.NewBody()
	ctor.Body.MaxLocals = 1
	e = bytecode.NewEmitter(ctor.Body, &typ.Pool)
	e.This()
	e.Invoke(bytecode.OpInvokespecial, "java/lang/Object", typedef.ConstructorName, "()V")
	e.Return("V")
	if err := e.Finish(); err != nil {
		t.Fatal(err)
	}
	typ.AddMethod(ctor)

	data, err := typ.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDisassemble(t *testing.T) {
	plain := func(a ...any) string { return a[0].(string) }
	out, err := disassemble(helloClass(t), plain)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"class app/Hello extends java/lang/Object", "greet()I", "iconst_3", "ireturn"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if _, err := disassemble([]byte{0xCA, 0xFE}, plain); err == nil {
		t.Error("expected an error for a truncated class")
	}
}

func TestWeaveClassFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "Hello.class")
	if err := os.WriteFile(in, helloClass(t), 0o644); err != nil {
		t.Fatal(err)
	}
	engine, err := weave.New(weave.Options{Strategy: weave.StrategySubclass, Classes: []string{"app/*"}})
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "out", "Hello.class")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}
	report, err := weaveClassFile(engine, in, out, false)
	if err != nil {
		t.Fatalf("weaveClassFile: %v", err)
	}
	if len(report.Woven()) != 1 || report.OutputSize <= report.InputSize {
		t.Errorf("report: %+v", report)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "Hello$Proxy.class")); err != nil {
		t.Errorf("generated class not written: %v", err)
	}
}

func TestColorizeDiff(t *testing.T) {
	diff := "--- a\n+++ b\n@@ -1 +1 @@\n-old\n+new\n same\n"

	color.NoColor = true
	if got := colorizeDiff(diff); got != diff {
		t.Errorf("without color the diff should be unchanged, got %q", got)
	}

	color.NoColor = false
	defer func() { color.NoColor = true }()
	got := colorizeDiff(diff)
	if got == diff || !strings.Contains(got, "new") || !strings.HasSuffix(got, " same\n") {
		t.Errorf("colorized: %q", got)
	}
}

func TestClassRoot(t *testing.T) {
	dir := t.TempDir()
	pkgDir := filepath.Join(dir, "com", "acme")
	got, err := classRoot(filepath.Join(pkgDir, "Main.class"), "com/acme/Main")
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("classRoot = %q, want %q", got, dir)
	}

	if got, err := classRoot(filepath.Join(dir, "Main.class"), "Main"); err != nil || got != dir {
		t.Errorf("default package: %q, %v", got, err)
	}
	if _, err := classRoot(filepath.Join(dir, "Main.class"), "com/acme/Main"); err == nil {
		t.Error("expected an error for a misplaced class")
	}
}
