package vm

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/daimatz/jweave/pkg/classfile"
)

// ErrClassNotFound is returned by class loaders that do not know a class.
var ErrClassNotFound = errors.New("class not found")

// ClassLoader loads .class files by class name.
type ClassLoader interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

// ZipClassLoader loads classes from a zip archive such as a jar. Entry names
// are the class name plus ".class" under Prefix.
type ZipClassLoader struct {
	Prefix string
	Cache  map[string]*classfile.ClassFile
	files  map[string]*zip.File
}

// NewZipClassLoader indexes the class entries of r.
func NewZipClassLoader(r *zip.Reader, prefix string) *ZipClassLoader {
	cl := &ZipClassLoader{
		Prefix: prefix,
		Cache:  make(map[string]*classfile.ClassFile),
		files:  make(map[string]*zip.File, len(r.File)),
	}
	for _, f := range r.File {
		cl.files[f.Name] = f
	}
	return cl
}

// OpenJarClassLoader reads a jar file into memory and indexes it.
func OpenJarClassLoader(path string) (*ZipClassLoader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jar: reading %s: %w", path, err)
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("jar: opening %s: %w", path, err)
	}
	return NewZipClassLoader(r, ""), nil
}

func (cl *ZipClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, ok := cl.Cache[name]; ok {
		return cf, nil
	}
	target := cl.Prefix + name + ".class"
	file, ok := cl.files[target]
	if !ok {
		return nil, fmt.Errorf("zip: %s: %w", name, ErrClassNotFound)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("zip: opening %s: %w", target, err)
	}
	defer rc.Close()

	cf, err := classfile.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("zip: parsing %s: %w", name, err)
	}
	cl.Cache[name] = cf
	return cf, nil
}

// JmodClassLoader loads classes from a JDK jmod file.
type JmodClassLoader struct {
	JmodPath string
	zip      *ZipClassLoader
}

// NewJmodClassLoader creates a new JmodClassLoader. The file is opened on
// first use.
func NewJmodClassLoader(jmodPath string) *JmodClassLoader {
	return &JmodClassLoader{JmodPath: jmodPath}
}

func (cl *JmodClassLoader) ensureZipReader() error {
	if cl.zip != nil {
		return nil
	}

	f, err := os.Open(cl.JmodPath)
	if err != nil {
		return fmt.Errorf("jmod: opening %s: %w", cl.JmodPath, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("jmod: reading %s: %w", cl.JmodPath, err)
	}
	if len(data) < 4 || !bytes.Equal(data[:2], []byte("JM")) {
		return fmt.Errorf("jmod: %s: missing JM header", cl.JmodPath)
	}

	zipData := data[4:] // Skip "JM\x01\x00" header
	r, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return fmt.Errorf("jmod: opening zip: %w", err)
	}
	cl.zip = NewZipClassLoader(r, "classes/")
	return nil
}

func (cl *JmodClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if err := cl.ensureZipReader(); err != nil {
		return nil, err
	}
	return cl.zip.LoadClass(name)
}

// UserClassLoader loads user classes from a directory, delegating to the
// parent first when there is one.
type UserClassLoader struct {
	ClassPath string
	Parent    ClassLoader
	Cache     map[string]*classfile.ClassFile
}

// NewUserClassLoader creates a new UserClassLoader. parent may be nil.
func NewUserClassLoader(classPath string, parent ClassLoader) *UserClassLoader {
	return &UserClassLoader{
		ClassPath: classPath,
		Parent:    parent,
		Cache:     make(map[string]*classfile.ClassFile),
	}
}

func (cl *UserClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, ok := cl.Cache[name]; ok {
		return cf, nil
	}
	if cl.Parent != nil {
		if cf, err := cl.Parent.LoadClass(name); err == nil {
			return cf, nil
		}
	}
	path := filepath.Join(cl.ClassPath, filepath.FromSlash(name)+".class")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("user: %s: %w", name, ErrClassNotFound)
	}
	cf, err := classfile.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("user: loading %s: %w", name, err)
	}
	cl.Cache[name] = cf
	return cf, nil
}

// MapClassLoader serves classes from encoded class files held in memory,
// keyed by internal name.
type MapClassLoader map[string][]byte

func (m MapClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("memory: %s: %w", name, ErrClassNotFound)
	}
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("memory: parsing %s: %w", name, err)
	}
	return cf, nil
}

// ChainClassLoader tries each loader in order.
type ChainClassLoader []ClassLoader

func (c ChainClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	for _, cl := range c {
		cf, err := cl.LoadClass(name)
		if err == nil {
			return cf, nil
		}
		if !errors.Is(err, ErrClassNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrClassNotFound)
}
