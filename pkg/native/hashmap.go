package native

// HashMap represents a java.util.HashMap.
type HashMap struct {
	Data map[any]any
}

// NewHashMap creates an empty HashMap.
func NewHashMap() *HashMap {
	return &HashMap{Data: make(map[any]any)}
}

// boxed keys compare by value, like equals on the wrapper classes.
func mapKey(key any) any {
	if b, ok := key.(*Boxed); ok {
		return b.Key()
	}
	return key
}

// Get returns the value for the given key.
func (m *HashMap) Get(key any) any {
	return m.Data[mapKey(key)]
}

// Put stores a key-value pair and returns the previous value.
func (m *HashMap) Put(key, value any) any {
	k := mapKey(key)
	old := m.Data[k]
	m.Data[k] = value
	return old
}

// Size returns the number of entries.
func (m *HashMap) Size() int {
	return len(m.Data)
}
