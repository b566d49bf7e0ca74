package distroinfo

// pathSet holds the info files on the active include path. Sets are
// immutable: with returns a new set, so each branch of the recursion only
// sees its own ancestors and sibling imports never collide.
type pathSet struct {
	set  map[string]struct{}
	list []string
}

func newPathSet() pathSet {
	return pathSet{set: make(map[string]struct{})}
}

// Len(gth) or size of set
func (s pathSet) Len() int {
	return len(s.list)
}

// Has reports whether k is on the path.
func (s pathSet) Has(k string) bool {
	_, ok := s.set[k]
	return ok
}

// with returns a copy of the set extended by k.
func (s pathSet) with(k string) pathSet {
	if s.Has(k) {
		return s
	}
	out := pathSet{
		set:  make(map[string]struct{}, len(s.set)+1),
		list: make([]string, 0, len(s.list)+1),
	}
	for k := range s.set {
		out.set[k] = struct{}{}
	}
	out.set[k] = struct{}{}
	out.list = append(out.list, s.list...)
	out.list = append(out.list, k)
	return out
}

// List returns the path in the order files were entered.
func (s pathSet) List() []string {
	out := make([]string, len(s.list))
	copy(out, s.list)
	return out
}
