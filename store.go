package distroinfo

import (
	"sync"

	"github.com/hashicorp/distroinfo/value"
)

// remoteStore accumulates the `remote-info` sections of the documents
// fetched so far, keyed by remote name. A later definition replaces an
// earlier one.
type remoteStore struct {
	sync.RWMutex

	data map[string]*value.Map
}

func newRemoteStore() *remoteStore {
	return &remoteStore{
		data: make(map[string]*value.Map),
	}
}

// Save records the connection parameters of a remote.
func (s *remoteStore) Save(name string, params *value.Map) {
	s.Lock()
	defer s.Unlock()

	s.data[name] = params
}

// SaveSection records every remote of a `remote-info` section. Entries
// that are not mappings are rejected.
func (s *remoteStore) SaveSection(section value.Value) error {
	if value.IsNull(section) {
		return nil
	}
	m, ok := value.AsMap(section)
	if !ok {
		return invalidFormat("remote-info must be a mapping, got %s", value.KindOf(section))
	}
	var err error
	m.Range(func(name string, v value.Value) bool {
		params, ok := value.AsMap(v)
		if !ok {
			err = invalidFormat("remote-info entry %q must be a mapping", name)
			return false
		}
		s.Save(name, params.Copy())
		return true
	})
	return err
}

// Len is the number of remotes known.
func (s *remoteStore) Len() int {
	s.RLock()
	defer s.RUnlock()

	return len(s.data)
}

// Recall gets the connection parameters of a remote.
func (s *remoteStore) Recall(name string) (*value.Map, bool) {
	s.RLock()
	defer s.RUnlock()

	data, ok := s.data[name]
	return data, ok
}
