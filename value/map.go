package value

import (
	"bytes"
	"encoding/json"

	yaml "gopkg.in/yaml.v2"
)

// Map is an insertion-ordered map of string keys to values, the shape of
// every mapping in an info document.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// MapOf builds a Map from alternating key, value arguments. It is meant for
// literals in code and tests and panics on a malformed argument list.
func MapOf(kv ...interface{}) *Map {
	if len(kv)%2 != 0 {
		panic("value: MapOf needs key/value pairs")
	}
	m := NewMap()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("value: MapOf key is not a string")
		}
		v, err := FromInterface(kv[i+1])
		if err != nil {
			panic(err)
		}
		m.Set(k, v)
	}
	return m
}

func (m *Map) Kind() Kind { return KindMap }

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under k and whether the key is present. A
// present key may hold a nil (null) value.
func (m *Map) Get(k string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vals[k]
	return v, ok
}

// Has reports whether k is present.
func (m *Map) Has(k string) bool {
	_, ok := m.Get(k)
	return ok
}

// Set stores v under k. An existing key keeps its position.
func (m *Map) Set(k string, v Value) {
	if _, ok := m.vals[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

// Delete removes k.
func (m *Map) Delete(k string) {
	if _, ok := m.vals[k]; !ok {
		return
	}
	delete(m.vals, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Range calls fn for every entry in order until fn returns false.
func (m *Map) Range(fn func(k string, v Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}

// Values returns the values in key order.
func (m *Map) Values() List {
	if m == nil {
		return nil
	}
	out := make(List, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.vals[k])
	}
	return out
}

// Copy returns a shallow copy of m.
func (m *Map) Copy() *Map {
	out := NewMap()
	m.Range(func(k string, v Value) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// Update sets every entry of other on m, replacing existing keys.
func (m *Map) Update(other *Map) {
	other.Range(func(k string, v Value) bool {
		m.Set(k, v)
		return true
	})
}

// MarshalJSON encodes the map as a JSON object keeping key order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML implements the yaml.v2 Marshaler keeping key order.
func (m *Map) MarshalYAML() (interface{}, error) {
	ms := make(yaml.MapSlice, 0, m.Len())
	m.Range(func(k string, v Value) bool {
		ms = append(ms, yaml.MapItem{Key: k, Value: v})
		return true
	})
	return ms, nil
}
