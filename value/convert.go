package value

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, errors.Errorf("integer %d overflows int64", u)
	}
	return Int(u), nil
}

// FromInterface converts decoder output (yaml.v2, encoding/json, toml) and
// plain Go literals into a Value.
func FromInterface(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return nil, nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(t), nil
	case int8:
		return Int(t), nil
	case int16:
		return Int(t), nil
	case int32:
		return Int(t), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(t), nil
	case uint16:
		return Int(t), nil
	case uint32:
		return Int(t), nil
	case uint64:
		return fromUint(t)
	case float32:
		return Float(t), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []byte:
		return String(t), nil
	case time.Time:
		return String(t.Format(time.RFC3339)), nil
	case yaml.MapSlice:
		m := NewMap()
		for _, item := range t {
			v, err := FromInterface(item.Value)
			if err != nil {
				return nil, err
			}
			m.Set(keyString(item.Key), v)
		}
		return m, nil
	case map[string]interface{}:
		m := NewMap()
		for _, k := range sortedKeys(t) {
			v, err := FromInterface(t[k])
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil
	case map[interface{}]interface{}:
		plain := make(map[string]interface{}, len(t))
		for k, v := range t {
			plain[keyString(k)] = v
		}
		return FromInterface(plain)
	case []interface{}:
		l := make(List, 0, len(t))
		for _, e := range t {
			v, err := FromInterface(e)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	case []string:
		l := make(List, 0, len(t))
		for _, e := range t {
			l = append(l, String(e))
		}
		return l, nil
	case []map[string]interface{}:
		l := make(List, 0, len(t))
		for _, e := range t {
			v, err := FromInterface(e)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	}

	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Slice {
		l := make(List, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := FromInterface(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	}
	return nil, errors.Errorf("unsupported value type %T", x)
}

// ToInterface converts v into plain Go values: nil, bool, int64, float64,
// string, []interface{} and map[string]interface{}. Map order is lost.
func ToInterface(v Value) interface{} {
	switch t := v.(type) {
	case Bool:
		return bool(t)
	case Int:
		return int64(t)
	case Float:
		return float64(t)
	case String:
		return string(t)
	case List:
		out := make([]interface{}, 0, len(t))
		for _, e := range t {
			out = append(out, ToInterface(e))
		}
		return out
	case *Map:
		if t == nil {
			return nil
		}
		out := make(map[string]interface{}, t.Len())
		t.Range(func(k string, e Value) bool {
			out[k] = ToInterface(e)
			return true
		})
		return out
	}
	return nil
}

func keyString(k interface{}) string {
	switch t := k.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return "null"
	}
	return fmt.Sprint(k)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
