package jar

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/apex/log/handlers/memory"
	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/typedef"
	"github.com/daimatz/jweave/pkg/vm"
	"github.com/daimatz/jweave/pkg/weave"
	"github.com/google/go-cmp/cmp"
)

// classBytes returns a class with a no-arg constructor and int twice(int).
func classBytes(t *testing.T, name string) []byte {
	t.Helper()
	typ := typedef.NewType(name, "java/lang/Object")
	add := func(name, desc string, build func(e *bytecode.Emitter)) {
		m, err := typedef.NewMethod(classfile.AccPublic, name, desc)
		if err != nil {
			t.Fatal(err)
		}
		m.Body = bytecode.NewBody()
		m.Body.MaxLocals = uint16(1 + m.ArgSlots())
		e := bytecode.NewEmitter(m.Body, &typ.Pool)
		build(e)
		if err := e.Finish(); err != nil {
			t.Fatal(err)
		}
		typ.AddMethod(m)
	}
	add(typedef.ConstructorName, "()V", func(e *bytecode.Emitter) {
		e.This()
		e.Invoke(bytecode.OpInvokespecial, "java/lang/Object", typedef.ConstructorName, "()V")
		e.Return("V")
	})
	add("twice", "(I)I", func(e *bytecode.Emitter) {
		e.Load("I", 1)
		e.Dup()
		e.Op(bytecode.OpIadd, 2, 1)
		e.Return("I")
	})
	data, err := typ.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

type entry struct {
	name string
	data []byte
}

func buildJar(t *testing.T, entries []entry) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write(e.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func readJar(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = b
	}
	return out
}

func entryNames(t *testing.T, data []byte) []string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func newEngine(t *testing.T, opts weave.Options) *weave.Engine {
	t.Helper()
	opts.Logger = &log.Logger{Handler: discard.Default, Level: log.DebugLevel}
	e, err := weave.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestIsClass(t *testing.T) {
	tests := map[string]bool{
		"app/Main.class":          true,
		"Main.class":              true,
		"module-info.class":       false,
		"app/package-info.class":  false,
		"META-INF/MANIFEST.MF":    false,
		"app/resources/class.txt": false,
	}
	for name, want := range tests {
		if got := IsClass(name); got != want {
			t.Errorf("IsClass(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWeave(t *testing.T) {
	manifest := []byte("Manifest-Version: 1.0\n")
	plain := classBytes(t, "lib/Plain")
	r := buildJar(t, []entry{
		{"META-INF/MANIFEST.MF", manifest},
		{"app/A.class", classBytes(t, "app/A")},
		{"lib/Plain.class", plain},
		{"app/B.class", classBytes(t, "app/B")},
	})

	var out bytes.Buffer
	e := newEngine(t, weave.Options{Classes: []string{"app/*"}})
	report, err := Weave(context.Background(), r, &out, e, 2)
	if err != nil {
		t.Fatalf("Weave: %v", err)
	}

	want := []string{"META-INF/MANIFEST.MF", "app/A.class", "lib/Plain.class", "app/B.class"}
	if diff := cmp.Diff(want, entryNames(t, out.Bytes())); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
	if len(report.Results) != 3 || len(report.Woven()) != 2 {
		t.Errorf("results: %d, woven: %d", len(report.Results), len(report.Woven()))
	}
	if report.InputSize == 0 || report.OutputSize <= report.InputSize {
		t.Errorf("sizes: in %d, out %d", report.InputSize, report.OutputSize)
	}

	files := readJar(t, out.Bytes())
	if !bytes.Equal(files["META-INF/MANIFEST.MF"], manifest) || !bytes.Equal(files["lib/Plain.class"], plain) {
		t.Error("untouched entries should be copied verbatim")
	}

	machine := vm.NewVM(vm.MapClassLoader{"app/A": files["app/A.class"]})
	obj, err := machine.New("app/A", "()V")
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	handler := machine.Handler(vm.InvocationHandlerFunc(func(inv *vm.Invocation) (vm.Value, error) {
		calls++
		return inv.Proceed()
	}))
	if _, err := machine.Invoke(obj, "setInvocationHandler", "(Ljweave/InvocationHandler;)V", handler); err != nil {
		t.Fatal(err)
	}
	got, err := machine.Invoke(obj, "twice", "(I)I", vm.IntValue(21))
	if err != nil {
		t.Fatal(err)
	}
	if got.Int != 42 || calls != 1 {
		t.Errorf("twice(21) = %d after %d handler calls", got.Int, calls)
	}
}

func TestWeaveLogsThroughEngine(t *testing.T) {
	r := buildJar(t, []entry{{"app/A.class", classBytes(t, "app/A")}})
	h := memory.New()
	e, err := weave.New(weave.Options{
		Classes: []string{"app/*"},
		Logger:  &log.Logger{Handler: h, Level: log.DebugLevel},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Weave(context.Background(), r, io.Discard, e, 1); err != nil {
		t.Fatalf("Weave: %v", err)
	}
	for _, entry := range h.Entries {
		if entry.Message == "rewrote entry" && entry.Fields["entry"] == "app/A.class" {
			return
		}
	}
	t.Error("expected the rewrite to be logged to the engine's logger")
}

func TestWeaveAppendsGenerated(t *testing.T) {
	r := buildJar(t, []entry{
		{"app/A.class", classBytes(t, "app/A")},
		{"app/B.class", classBytes(t, "app/B")},
	})
	var out bytes.Buffer
	e := newEngine(t, weave.Options{Strategy: weave.StrategySubclass, Classes: []string{"app/*"}})
	if _, err := Weave(context.Background(), r, &out, e, 1); err != nil {
		t.Fatalf("Weave: %v", err)
	}
	want := []string{"app/A.class", "app/A$Proxy.class", "app/B.class", "app/B$Proxy.class"}
	if diff := cmp.Diff(want, entryNames(t, out.Bytes())); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
}

func TestWeaveFailsWholeArchive(t *testing.T) {
	r := buildJar(t, []entry{
		{"app/A.class", classBytes(t, "app/A")},
		{"app/Broken.class", []byte{0xCA, 0xFE, 0xBA, 0xBE}},
	})
	var out bytes.Buffer
	e := newEngine(t, weave.Options{Classes: []string{"app/*"}})
	if _, err := Weave(context.Background(), r, &out, e, 4); err == nil {
		t.Error("expected an error for a truncated class")
	}

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r := buildJar(t, []entry{{"app/A.class", classBytes(t, "app/A")}})
		if _, err := Weave(ctx, r, io.Discard, e, 1); err == nil {
			t.Error("expected the cancelled context to fail the archive")
		}
	})
}

func TestWeaveFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, _ := w.Create("app/A.class")
	f.Write(classBytes(t, "app/A"))
	w.Close()
	src := filepath.Join(dir, "in.jar")
	if err := os.WriteFile(src, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "out.jar")
	report, err := WeaveFile(context.Background(), src, dst, newEngine(t, weave.Options{Classes: []string{"app/*"}}), 0)
	if err != nil {
		t.Fatalf("WeaveFile: %v", err)
	}
	if len(report.Woven()) != 1 {
		t.Errorf("woven: %d", len(report.Woven()))
	}
	if _, err := os.Stat(dst); err != nil {
		t.Error(err)
	}
}

func TestWeaveDir(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	for rel, data := range map[string][]byte{
		"app/A.class":   classBytes(t, "app/A"),
		"app/notes.txt": []byte("notes"),
		"lib/Lib.class": classBytes(t, "lib/Lib"),
	} {
		p := filepath.Join(src, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	e := newEngine(t, weave.Options{Strategy: weave.StrategySubclass, Classes: []string{"app/*"}})
	report, err := WeaveDir(context.Background(), src, dst, e, 2)
	if err != nil {
		t.Fatalf("WeaveDir: %v", err)
	}
	if len(report.Results) != 2 || len(report.Woven()) != 1 {
		t.Errorf("results: %d, woven: %d", len(report.Results), len(report.Woven()))
	}
	for _, rel := range []string{"app/A.class", "app/A$Proxy.class", "app/notes.txt", "lib/Lib.class"} {
		if _, err := os.Stat(filepath.Join(dst, filepath.FromSlash(rel))); err != nil {
			t.Errorf("%s: %v", rel, err)
		}
	}
}
