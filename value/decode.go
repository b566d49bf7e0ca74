package value

import (
	"bytes"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// DecodeYAML decodes a YAML (or JSON) document whose top level is a
// mapping. An empty document decodes to an empty Map.
func DecodeYAML(data []byte) (*Map, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewMap(), nil
	}

	var ms yaml.MapSlice
	if err := yaml.Unmarshal(data, &ms); err != nil {
		return nil, errors.Wrap(err, "decodeYAML")
	}
	v, err := FromInterface(ms)
	if err != nil {
		return nil, errors.Wrap(err, "decodeYAML")
	}
	return v.(*Map), nil
}

// DecodeTOML decodes a TOML document. Keys keep the order in which they
// appear in the document.
func DecodeTOML(data []byte) (*Map, error) {
	var raw map[string]interface{}
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, errors.Wrap(err, "decodeTOML")
	}

	order := make(map[string][]string)
	seen := make(map[string]bool)
	for _, key := range md.Keys() {
		for i := range key {
			parent := strings.Join(key[:i], ".")
			full := strings.Join(key[:i+1], ".")
			if seen[full] {
				continue
			}
			seen[full] = true
			order[parent] = append(order[parent], key[i])
		}
	}

	v, err := tomlValue(raw, "", order)
	if err != nil {
		return nil, errors.Wrap(err, "decodeTOML")
	}
	if v == nil {
		return NewMap(), nil
	}
	return v.(*Map), nil
}

func tomlValue(x interface{}, path string, order map[string][]string) (Value, error) {
	switch t := x.(type) {
	case map[string]interface{}:
		m := NewMap()
		for _, k := range orderedKeys(t, order[path]) {
			child := k
			if path != "" {
				child = path + "." + k
			}
			v, err := tomlValue(t[k], child, order)
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil
	case []map[string]interface{}:
		l := make(List, 0, len(t))
		for _, e := range t {
			v, err := tomlValue(e, path, order)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	case []interface{}:
		l := make(List, 0, len(t))
		for _, e := range t {
			v, err := tomlValue(e, path, order)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	}
	return FromInterface(x)
}

// orderedKeys lists the keys of m following known, then the remaining keys
// sorted.
func orderedKeys(m map[string]interface{}, known []string) []string {
	keys := make([]string, 0, len(m))
	used := make(map[string]bool, len(m))
	for _, k := range known {
		if _, ok := m[k]; ok && !used[k] {
			keys = append(keys, k)
			used[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !used[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
