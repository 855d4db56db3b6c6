package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Write encodes the class file to w.
func (cf *ClassFile) Write(w io.Writer) error {
	data, err := cf.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile encodes the class file to path.
func (cf *ClassFile) WriteFile(path string) error {
	data, err := cf.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Bytes encodes the class file.
func (cf *ClassFile) Bytes() ([]byte, error) {
	cf.internNames()
	if len(cf.ConstantPool) > math.MaxUint16 {
		return nil, fmt.Errorf("constant pool overflow: %d entries", len(cf.ConstantPool))
	}

	var buf bytes.Buffer
	w := &encoder{buf: &buf}

	// Magic number and version
	w.u32(classMagic)
	w.u16(cf.MinorVersion)
	w.u16(cf.MajorVersion)

	// Constant pool
	count := len(cf.ConstantPool)
	w.u16(uint16(count))
	for i := 1; i < len(cf.ConstantPool); i++ {
		entry := cf.ConstantPool[i]
		if entry == nil {
			// second slot of a Long/Double
			continue
		}
		if err := w.constant(entry); err != nil {
			return nil, fmt.Errorf("writing constant pool entry %d: %w", i, err)
		}
	}

	// Access flags, this class, super class
	w.u16(cf.AccessFlags)
	w.u16(cf.ThisClass)
	w.u16(cf.SuperClass)

	// Interfaces
	w.u16(uint16(len(cf.Interfaces)))
	for _, iface := range cf.Interfaces {
		w.u16(iface)
	}

	// Fields
	w.u16(uint16(len(cf.Fields)))
	for i := range cf.Fields {
		f := &cf.Fields[i]
		w.u16(f.AccessFlags)
		w.u16(cf.ConstantPool.AddUtf8(f.Name))
		w.u16(cf.ConstantPool.AddUtf8(f.Descriptor))
		if err := w.attributes(&cf.ConstantPool, f.Attributes); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", f.Name, err)
		}
	}

	// Methods
	w.u16(uint16(len(cf.Methods)))
	for i := range cf.Methods {
		m := &cf.Methods[i]
		w.u16(m.AccessFlags)
		w.u16(cf.ConstantPool.AddUtf8(m.Name))
		w.u16(cf.ConstantPool.AddUtf8(m.Descriptor))
		attrs := m.Attributes
		if m.Code != nil {
			code, err := encodeCodeAttribute(&cf.ConstantPool, m.Code)
			if err != nil {
				return nil, fmt.Errorf("writing Code of %s%s: %w", m.Name, m.Descriptor, err)
			}
			attrs = append([]AttributeInfo{{Name: "Code", Data: code}}, attrs...)
		}
		if err := w.attributes(&cf.ConstantPool, attrs); err != nil {
			return nil, fmt.Errorf("writing method %s: %w", m.Name, err)
		}
	}

	// Attributes
	if err := w.attributes(&cf.ConstantPool, cf.Attributes); err != nil {
		return nil, fmt.Errorf("writing class attributes: %w", err)
	}

	if len(cf.ConstantPool) != count {
		return nil, fmt.Errorf("constant pool changed while writing")
	}
	return buf.Bytes(), nil
}

// internNames makes sure every name the writer refers to by index exists in
// the pool before the pool itself is written.
func (cf *ClassFile) internNames() {
	if len(cf.ConstantPool) == 0 {
		cf.ConstantPool = NewPool()
	}
	pool := &cf.ConstantPool
	internAttrs := func(attrs []AttributeInfo) {
		for _, a := range attrs {
			pool.AddUtf8(a.Name)
		}
	}
	for _, f := range cf.Fields {
		pool.AddUtf8(f.Name)
		pool.AddUtf8(f.Descriptor)
		internAttrs(f.Attributes)
	}
	for _, m := range cf.Methods {
		pool.AddUtf8(m.Name)
		pool.AddUtf8(m.Descriptor)
		internAttrs(m.Attributes)
		if m.Code != nil {
			pool.AddUtf8("Code")
			internAttrs(m.Code.Attributes)
		}
	}
	internAttrs(cf.Attributes)
}

func encodeCodeAttribute(pool *Pool, code *CodeAttribute) ([]byte, error) {
	var buf bytes.Buffer
	w := &encoder{buf: &buf}
	w.u16(code.MaxStack)
	w.u16(code.MaxLocals)
	w.u32(uint32(len(code.Code)))
	buf.Write(code.Code)
	w.u16(uint16(len(code.ExceptionHandlers)))
	for _, h := range code.ExceptionHandlers {
		w.u16(h.StartPC)
		w.u16(h.EndPC)
		w.u16(h.HandlerPC)
		w.u16(h.CatchType)
	}
	if err := w.attributes(pool, code.Attributes); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type encoder struct {
	buf *bytes.Buffer
}

func (w *encoder) u8(v uint8) { w.buf.WriteByte(v) }

func (w *encoder) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *encoder) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *encoder) attributes(pool *Pool, attrs []AttributeInfo) error {
	w.u16(uint16(len(attrs)))
	for _, a := range attrs {
		if uint64(len(a.Data)) > math.MaxUint32 {
			return fmt.Errorf("attribute %s too large", a.Name)
		}
		w.u16(pool.AddUtf8(a.Name))
		w.u32(uint32(len(a.Data)))
		w.buf.Write(a.Data)
	}
	return nil
}

func (w *encoder) constant(entry ConstantPoolEntry) error {
	w.u8(entry.Tag())
	switch c := entry.(type) {
	case *ConstantUtf8:
		if len(c.Value) > math.MaxUint16 {
			return fmt.Errorf("Utf8 constant too long: %d bytes", len(c.Value))
		}
		w.u16(uint16(len(c.Value)))
		w.buf.WriteString(c.Value)
	case *ConstantInteger:
		w.u32(uint32(c.Value))
	case *ConstantFloat:
		w.u32(math.Float32bits(c.Value))
	case *ConstantLong:
		w.u32(uint32(uint64(c.Value) >> 32))
		w.u32(uint32(c.Value))
	case *ConstantDouble:
		bits := math.Float64bits(c.Value)
		w.u32(uint32(bits >> 32))
		w.u32(uint32(bits))
	case *ConstantClass:
		w.u16(c.NameIndex)
	case *ConstantString:
		w.u16(c.StringIndex)
	case *ConstantFieldref:
		w.u16(c.ClassIndex)
		w.u16(c.NameAndTypeIndex)
	case *ConstantMethodref:
		w.u16(c.ClassIndex)
		w.u16(c.NameAndTypeIndex)
	case *ConstantInterfaceMethodref:
		w.u16(c.ClassIndex)
		w.u16(c.NameAndTypeIndex)
	case *ConstantNameAndType:
		w.u16(c.NameIndex)
		w.u16(c.DescriptorIndex)
	case *constantPlaceholder:
		w.buf.Write(c.data)
	default:
		return fmt.Errorf("unsupported constant type %T", entry)
	}
	return nil
}
