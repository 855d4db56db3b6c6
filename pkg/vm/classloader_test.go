package vm

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/daimatz/jweave/pkg/typedef"
)

func sampleClass(t *testing.T, name string) []byte {
	t.Helper()
	typ := typedef.NewType(name, "java/lang/Object")
	defineConstructor(t, typ)
	return encode(t, typ)
}

func zipOf(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip Create: %v", err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatalf("zip Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	return buf.Bytes()
}

func assertLoaded(t *testing.T, cl ClassLoader, name string) {
	t.Helper()
	cf, err := cl.LoadClass(name)
	if err != nil {
		t.Fatalf("LoadClass(%s): %v", name, err)
	}
	got, err := cf.ClassName()
	if err != nil {
		t.Fatalf("ClassName: %v", err)
	}
	if got != name {
		t.Errorf("class name: got %q, want %q", got, name)
	}
}

func assertNotFound(t *testing.T, cl ClassLoader, name string) {
	t.Helper()
	if _, err := cl.LoadClass(name); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("LoadClass(%s): got %v, want ErrClassNotFound", name, err)
	}
}

func TestUserClassLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "com", "example", "Hello.class")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, sampleClass(t, "com/example/Hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	cl := NewUserClassLoader(dir, nil)
	assertLoaded(t, cl, "com/example/Hello")
	assertNotFound(t, cl, "com/example/Missing")

	first, _ := cl.LoadClass("com/example/Hello")
	second, _ := cl.LoadClass("com/example/Hello")
	if first != second {
		t.Error("expected the cached class file on the second load")
	}

	t.Run("delegates to parent first", func(t *testing.T) {
		parent := MapClassLoader{"Shared": sampleClass(t, "Shared")}
		assertLoaded(t, NewUserClassLoader(dir, parent), "Shared")
	})
}

func TestZipClassLoader(t *testing.T) {
	data := zipOf(t, map[string][]byte{
		"com/example/Hello.class": sampleClass(t, "com/example/Hello"),
		"META-INF/MANIFEST.MF":    []byte("Manifest-Version: 1.0\n"),
	})
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	cl := NewZipClassLoader(r, "")
	assertLoaded(t, cl, "com/example/Hello")
	assertNotFound(t, cl, "META-INF/MANIFEST")

	jar := filepath.Join(t.TempDir(), "app.jar")
	if err := os.WriteFile(jar, data, 0o644); err != nil {
		t.Fatal(err)
	}
	jcl, err := OpenJarClassLoader(jar)
	if err != nil {
		t.Fatalf("OpenJarClassLoader: %v", err)
	}
	assertLoaded(t, jcl, "com/example/Hello")
}

func TestJmodClassLoader(t *testing.T) {
	data := append([]byte("JM\x01\x00"), zipOf(t, map[string][]byte{
		"classes/java/lang/Sample.class": sampleClass(t, "java/lang/Sample"),
	})...)
	path := filepath.Join(t.TempDir(), "java.base.jmod")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cl := NewJmodClassLoader(path)
	assertLoaded(t, cl, "java/lang/Sample")
	assertNotFound(t, cl, "java/lang/Missing")

	t.Run("missing header", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.jmod")
		if err := os.WriteFile(bad, []byte("PK\x03\x04"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewJmodClassLoader(bad).LoadClass("java/lang/Object"); err == nil {
			t.Error("expected an error for a file without the JM header")
		}
	})
}

func TestChainClassLoader(t *testing.T) {
	chain := ChainClassLoader{
		MapClassLoader{"First": sampleClass(t, "First")},
		MapClassLoader{"Second": sampleClass(t, "Second")},
	}
	assertLoaded(t, chain, "First")
	assertLoaded(t, chain, "Second")
	assertNotFound(t, chain, "Third")

	broken := ChainClassLoader{MapClassLoader{"Bad": []byte{0xCA, 0xFE}}, MapClassLoader{"Bad": sampleClass(t, "Bad")}}
	if _, err := broken.LoadClass("Bad"); err == nil || errors.Is(err, ErrClassNotFound) {
		t.Errorf("a parse error should stop the chain, got %v", err)
	}
}
