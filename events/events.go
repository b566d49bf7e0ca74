package events

import "time"

// EventHandler is the interface of the call back function for receiveing events.
type EventHandler func(Event)

// Event is used to type restrict the Events
type Event interface {
	isEvent()
}

// Trace is useful to see some details of what's going on
type Trace struct {
	ID      string
	Message string
	event
}

// FetchStart indicates a top level info file is being fetched.
type FetchStart struct {
	ID     string
	Source string
	event
}

// IncludeStart indicates an included info file is being fetched. Depth is
// the length of the include path leading to it.
type IncludeStart struct {
	ID    string
	Depth int
	event
}

// RemoteRef indicates a cross-source reference is being followed.
type RemoteRef struct {
	ID     string
	Remote string
	event
}

// CacheHit indicates a cached remote file was fresh enough to be used.
type CacheHit struct {
	ID  string
	Age time.Duration
	event
}

// CacheWrite indicates a remote file was downloaded and cached.
type CacheWrite struct {
	ID   string
	Path string
	event
}

// HTTPGet indicates an HTTP request completed with the given status.
type HTTPGet struct {
	ID     string
	URL    string
	Status int
	event
}

// RepoClone indicates a repository is being cloned.
type RepoClone struct {
	ID   string
	URL  string
	Path string
	event
}

// RepoFetch indicates an existing clone is being updated.
type RepoFetch struct {
	ID     string
	Path   string
	Branch string
	event
}

// RepoFresh indicates an existing clone was recent enough to skip fetching.
type RepoFresh struct {
	ID  string
	Age time.Duration
	event
}

// RepoRenew indicates a clone pointing at the wrong remote is replaced.
type RepoRenew struct {
	ID   string
	Path string
	event
}

// Event interface type fulfillment
type event struct{}

func (event) isEvent() {}
