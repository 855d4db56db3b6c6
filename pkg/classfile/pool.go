package classfile

import "math"

// Pool is a 1-indexed constant pool. Index 0 and the slot following a
// Long or Double are nil.
type Pool []ConstantPoolEntry

// NewPool returns an empty pool with the unused zero slot in place.
func NewPool() Pool {
	return Pool{nil}
}

func (p *Pool) add(e ConstantPoolEntry) uint16 {
	if len(*p) == 0 {
		*p = append(*p, nil)
	}
	idx := len(*p)
	*p = append(*p, e)
	if e.Tag() == TagLong || e.Tag() == TagDouble {
		*p = append(*p, nil)
	}
	return uint16(idx)
}

// AddUtf8 returns the index of a Utf8 entry for s, appending one if needed.
func (p *Pool) AddUtf8(s string) uint16 {
	for i, e := range *p {
		if c, ok := e.(*ConstantUtf8); ok && c.Value == s {
			return uint16(i)
		}
	}
	return p.add(&ConstantUtf8{Value: s})
}

// AddInteger returns the index of an Integer entry for v.
func (p *Pool) AddInteger(v int32) uint16 {
	for i, e := range *p {
		if c, ok := e.(*ConstantInteger); ok && c.Value == v {
			return uint16(i)
		}
	}
	return p.add(&ConstantInteger{Value: v})
}

// AddLong returns the index of a Long entry for v.
func (p *Pool) AddLong(v int64) uint16 {
	for i, e := range *p {
		if c, ok := e.(*ConstantLong); ok && c.Value == v {
			return uint16(i)
		}
	}
	return p.add(&ConstantLong{Value: v})
}

// AddFloat returns the index of a Float entry for v.
func (p *Pool) AddFloat(v float32) uint16 {
	for i, e := range *p {
		if c, ok := e.(*ConstantFloat); ok && math.Float32bits(c.Value) == math.Float32bits(v) {
			return uint16(i)
		}
	}
	return p.add(&ConstantFloat{Value: v})
}

// AddDouble returns the index of a Double entry for v.
func (p *Pool) AddDouble(v float64) uint16 {
	for i, e := range *p {
		if c, ok := e.(*ConstantDouble); ok && math.Float64bits(c.Value) == math.Float64bits(v) {
			return uint16(i)
		}
	}
	return p.add(&ConstantDouble{Value: v})
}

// AddClass returns the index of a Class entry naming the internal class name.
func (p *Pool) AddClass(name string) uint16 {
	nameIdx := p.AddUtf8(name)
	for i, e := range *p {
		if c, ok := e.(*ConstantClass); ok && c.NameIndex == nameIdx {
			return uint16(i)
		}
	}
	return p.add(&ConstantClass{NameIndex: nameIdx})
}

// AddString returns the index of a String entry for s.
func (p *Pool) AddString(s string) uint16 {
	utf := p.AddUtf8(s)
	for i, e := range *p {
		if c, ok := e.(*ConstantString); ok && c.StringIndex == utf {
			return uint16(i)
		}
	}
	return p.add(&ConstantString{StringIndex: utf})
}

// AddNameAndType returns the index of a NameAndType entry.
func (p *Pool) AddNameAndType(name, descriptor string) uint16 {
	n := p.AddUtf8(name)
	d := p.AddUtf8(descriptor)
	for i, e := range *p {
		if c, ok := e.(*ConstantNameAndType); ok && c.NameIndex == n && c.DescriptorIndex == d {
			return uint16(i)
		}
	}
	return p.add(&ConstantNameAndType{NameIndex: n, DescriptorIndex: d})
}

// AddFieldref returns the index of a Fieldref entry.
func (p *Pool) AddFieldref(class, name, descriptor string) uint16 {
	c := p.AddClass(class)
	nat := p.AddNameAndType(name, descriptor)
	for i, e := range *p {
		if r, ok := e.(*ConstantFieldref); ok && r.ClassIndex == c && r.NameAndTypeIndex == nat {
			return uint16(i)
		}
	}
	return p.add(&ConstantFieldref{ClassIndex: c, NameAndTypeIndex: nat})
}

// AddMethodref returns the index of a Methodref entry.
func (p *Pool) AddMethodref(class, name, descriptor string) uint16 {
	c := p.AddClass(class)
	nat := p.AddNameAndType(name, descriptor)
	for i, e := range *p {
		if r, ok := e.(*ConstantMethodref); ok && r.ClassIndex == c && r.NameAndTypeIndex == nat {
			return uint16(i)
		}
	}
	return p.add(&ConstantMethodref{ClassIndex: c, NameAndTypeIndex: nat})
}

// AddInterfaceMethodref returns the index of an InterfaceMethodref entry.
func (p *Pool) AddInterfaceMethodref(class, name, descriptor string) uint16 {
	c := p.AddClass(class)
	nat := p.AddNameAndType(name, descriptor)
	for i, e := range *p {
		if r, ok := e.(*ConstantInterfaceMethodref); ok && r.ClassIndex == c && r.NameAndTypeIndex == nat {
			return uint16(i)
		}
	}
	return p.add(&ConstantInterfaceMethodref{ClassIndex: c, NameAndTypeIndex: nat})
}
