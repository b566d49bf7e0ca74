package value

import (
	"fmt"
)

// Kind identifies which member of the Value union a node holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a single node of a decoded info document. It is one of Bool,
// Int, Float, String, List or *Map. A nil Value is the YAML null.
type Value interface {
	Kind() Kind
}

type (
	Bool   bool
	Int    int64
	Float  float64
	String string
	List   []Value
)

func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (List) Kind() Kind   { return KindList }

// KindOf returns the kind of v, treating nil as null.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	if m, ok := v.(*Map); ok && m == nil {
		return KindNull
	}
	return v.Kind()
}

// IsNull reports whether v is the null value.
func IsNull(v Value) bool {
	return KindOf(v) == KindNull
}

// AsString returns the string held by v.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsMap returns the map held by v.
func AsMap(v Value) (*Map, bool) {
	m, ok := v.(*Map)
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}

// AsList returns the list held by v.
func AsList(v Value) (List, bool) {
	l, ok := v.(List)
	return l, ok
}

// Truthy reports whether v counts as set. Null, false, zero numbers and
// empty strings or collections are false, everything else is true.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case Bool:
		return bool(t)
	case Int:
		return t != 0
	case Float:
		return t != 0
	case String:
		return t != ""
	case List:
		return len(t) > 0
	case *Map:
		return t != nil && t.Len() > 0
	}
	return false
}

// DeepCopy returns a copy of v sharing no lists or maps with it.
func DeepCopy(v Value) Value {
	switch t := v.(type) {
	case List:
		if t == nil {
			return List(nil)
		}
		out := make(List, len(t))
		for i, e := range t {
			out[i] = DeepCopy(e)
		}
		return out
	case *Map:
		if t == nil {
			return nil
		}
		out := NewMap()
		for _, k := range t.keys {
			out.Set(k, DeepCopy(t.vals[k]))
		}
		return out
	}
	return v
}

// Equal compares two values structurally. Map key order is not significant,
// list order is. Int and Float compare by numeric value.
func Equal(a, b Value) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka == KindInt && kb == KindFloat {
		return Float(a.(Int)) == b.(Float)
	}
	if ka == KindFloat && kb == KindInt {
		return a.(Float) == Float(b.(Int))
	}
	if ka != kb {
		return false
	}
	switch ka {
	case KindNull:
		return true
	case KindList:
		la, lb := a.(List), b.(List)
		if len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !Equal(la[i], lb[i]) {
				return false
			}
		}
		return true
	case KindMap:
		ma, mb := a.(*Map), b.(*Map)
		if ma.Len() != mb.Len() {
			return false
		}
		for _, k := range ma.keys {
			vb, ok := mb.vals[k]
			if !ok || !Equal(ma.vals[k], vb) {
				return false
			}
		}
		return true
	}
	return a == b
}
