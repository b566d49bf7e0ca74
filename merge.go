package distroinfo

import (
	"github.com/hashicorp/distroinfo/value"
)

// Sections whose entries can be kept either as a list or as a map, with the
// entry field used as map key. Entries lacking the key field are keyed by
// the fallback field when there is one.
var keyedSections = []struct {
	section  string
	key      string
	fallback string
}{
	{"packages", "project", "name"},
	{"releases", "name", ""},
}

// Merge combines a and b recursively. Maps are united, keys present in both
// are merged; lists are concatenated; for anything else b wins unless it is
// null. Neither input is modified.
func Merge(a, b value.Value) value.Value {
	am, aok := value.AsMap(a)
	bm, bok := value.AsMap(b)
	if aok && bok {
		out := value.DeepCopy(am).(*value.Map)
		bm.Range(func(k string, bv value.Value) bool {
			av, _ := am.Get(k)
			out.Set(k, Merge(av, bv))
			return true
		})
		return out
	}

	al, aok := value.AsList(a)
	bl, bok := value.AsList(b)
	if aok && bok {
		out := make(value.List, 0, len(al)+len(bl))
		for _, e := range al {
			out = append(out, value.DeepCopy(e))
		}
		for _, e := range bl {
			out = append(out, value.DeepCopy(e))
		}
		return out
	}

	if value.IsNull(b) {
		return value.DeepCopy(a)
	}
	return value.DeepCopy(b)
}

// InfoToDicts returns a copy of doc with the `packages` list turned into a
// map keyed by project and the `releases` list into a map keyed by name.
// Entries sharing a key are merged in list order.
//
// A package whose project only comes from `package-default` is keyed by its
// name, so it is merged with other entries naming the same package without
// a project.
func InfoToDicts(doc *value.Map) (*value.Map, error) {
	out := doc.Copy()
	for _, ks := range keyedSections {
		v, ok := doc.Get(ks.section)
		if !ok {
			continue
		}
		list, ok := value.AsList(v)
		if !ok {
			continue
		}
		m, err := listToDict(list, ks.section, ks.key, ks.fallback)
		if err != nil {
			return nil, err
		}
		out.Set(ks.section, m)
	}
	return out, nil
}

func listToDict(list value.List, section, key, fallback string) (*value.Map, error) {
	out := value.NewMap()
	for _, e := range list {
		entry, ok := value.AsMap(e)
		if !ok {
			return nil, invalidFormat("%s entries must be mappings, got %s", section, value.KindOf(e))
		}
		k := entryKey(entry, key)
		if k == "" && fallback != "" {
			k = entryKey(entry, fallback)
		}
		if k == "" {
			return nil, &MissingRequiredItemError{Item: section + " entry " + key}
		}
		if prev, ok := out.Get(k); ok {
			out.Set(k, Merge(prev, entry))
			continue
		}
		out.Set(k, value.DeepCopy(entry))
	}
	return out, nil
}

func entryKey(entry *value.Map, key string) string {
	v, ok := entry.Get(key)
	if !ok {
		return ""
	}
	k, _ := value.AsString(v)
	return k
}

// InfoToLists is the inverse of InfoToDicts: keyed sections become lists of
// their values, in key order.
func InfoToLists(doc *value.Map) *value.Map {
	out := doc.Copy()
	for _, ks := range keyedSections {
		v, ok := doc.Get(ks.section)
		if !ok {
			continue
		}
		if m, ok := value.AsMap(v); ok {
			out.Set(ks.section, m.Values())
		}
	}
	return out
}

// MergeInfos folds docs into one document, later documents taking
// precedence. Documents are merged in map form; the result is turned back
// into list form unless keyed is set. A single document is returned as is
// in list form.
func MergeInfos(docs []*value.Map, keyed bool) (*value.Map, error) {
	switch len(docs) {
	case 0:
		return value.NewMap(), nil
	case 1:
		if !keyed {
			return value.DeepCopy(docs[0]).(*value.Map), nil
		}
		return InfoToDicts(docs[0])
	}

	merged, err := InfoToDicts(docs[0])
	if err != nil {
		return nil, err
	}
	for _, doc := range docs[1:] {
		next, err := InfoToDicts(doc)
		if err != nil {
			return nil, err
		}
		merged = Merge(merged, next).(*value.Map)
	}
	if keyed {
		return merged, nil
	}
	return InfoToLists(merged), nil
}
