package distroinfo

import (
	"github.com/hashicorp/distroinfo/value"
)

// Info is a validated info document. It is never modified after ParseInfo
// returns it; every container handed out is a copy.
type Info struct {
	doc      *value.Map
	keyed    bool
	releases []*Release
	packages []*Package
}

// Releases returns the releases in document order.
func (i *Info) Releases() []*Release {
	out := make([]*Release, len(i.releases))
	copy(out, i.releases)
	return out
}

// Packages returns the resolved packages in document order.
func (i *Info) Packages() []*Package {
	out := make([]*Package, len(i.packages))
	copy(out, i.packages)
	return out
}

// PackageDefault returns the `package-default` section.
func (i *Info) PackageDefault() *value.Map {
	return i.sectionMap("package-default")
}

// PackageConfigs returns the `package-configs` section.
func (i *Info) PackageConfigs() *value.Map {
	return i.sectionMap("package-configs")
}

// RemoteInfo returns the `remote-info` section, empty when absent.
func (i *Info) RemoteInfo() *value.Map {
	return i.sectionMap("remote-info")
}

func (i *Info) sectionMap(key string) *value.Map {
	v, _ := i.doc.Get(key)
	if m, ok := value.AsMap(v); ok {
		return value.DeepCopy(m).(*value.Map)
	}
	return value.NewMap()
}

// Section returns a copy of any top level section.
func (i *Info) Section(key string) (value.Value, bool) {
	v, ok := i.doc.Get(key)
	if !ok {
		return nil, false
	}
	return value.DeepCopy(v), true
}

// Keyed reports whether packages are kept in a map keyed by project rather
// than in a list.
func (i *Info) Keyed() bool {
	return i.keyed
}

// Document returns a copy of the whole validated document.
func (i *Info) Document() *value.Map {
	return value.DeepCopy(i.doc).(*value.Map)
}

// attrs is the read-only attribute mapping shared by releases, repos and
// packages.
type attrs struct {
	m *value.Map
}

// Get returns a copy of the attribute k.
func (a attrs) Get(k string) (value.Value, bool) {
	v, ok := a.m.Get(k)
	if !ok {
		return nil, false
	}
	return value.DeepCopy(v), true
}

// GetString returns the attribute k when it is a string.
func (a attrs) GetString(k string) (string, bool) {
	v, _ := a.m.Get(k)
	return value.AsString(v)
}

// Keys lists the attribute names in order.
func (a attrs) Keys() []string {
	return a.m.Keys()
}

// Attrs returns a copy of all attributes.
func (a attrs) Attrs() *value.Map {
	return value.DeepCopy(a.m).(*value.Map)
}

// text renders the attribute k as a string, empty when absent.
func (a attrs) text(k string) string {
	v, ok := a.m.Get(k)
	if !ok {
		return ""
	}
	return pyStr(v)
}

// Release is one entry of the `releases` section.
type Release struct {
	attrs
	repos []*Repo
}

// Name of the release.
func (r *Release) Name() string {
	return r.text("name")
}

// Branch is the default branch of the release's repos, empty when unset.
func (r *Release) Branch() string {
	if v, _ := r.m.Get("branch"); !value.Truthy(v) {
		return ""
	}
	return r.text("branch")
}

// Repos returns the release's repos.
func (r *Release) Repos() []*Repo {
	out := make([]*Repo, len(r.repos))
	copy(out, r.repos)
	return out
}

// Repo is a repository of a release.
type Repo struct {
	attrs
}

// Name of the repo.
func (r *Repo) Name() string {
	return r.text("name")
}

// Branch of the repo, inherited from the release when not set.
func (r *Repo) Branch() string {
	return r.text("branch")
}

// Distrepos returns a copy of the repo's `distrepos`, nil when absent.
func (r *Repo) Distrepos() value.Value {
	v, _ := r.Get("distrepos")
	return v
}

// Package is a resolved package.
type Package struct {
	attrs
}

// Name of the package.
func (p *Package) Name() string {
	return p.text("name")
}

// Project of the package.
func (p *Package) Project() string {
	return p.text("project")
}

// Maintainers returns the maintainer email addresses.
func (p *Package) Maintainers() []string {
	v, _ := p.m.Get("maintainers")
	var out []string
	switch t := v.(type) {
	case value.List:
		for _, e := range t {
			out = append(out, pyStr(e))
		}
	case *value.Map:
		out = t.Keys()
	}
	return out
}

// Equal reports whether both packages have the same attributes.
func (p *Package) Equal(other *Package) bool {
	if p == nil || other == nil {
		return p == other
	}
	return value.Equal(p.m, other.m)
}

// String is the package name.
func (p *Package) String() string {
	return p.Name()
}

// NewPackage wraps resolved package attributes. It is meant for tests and
// tools building packages by hand; m is copied.
func NewPackage(m *value.Map) *Package {
	if m == nil {
		return newPackage(value.NewMap())
	}
	return newPackage(value.DeepCopy(m).(*value.Map))
}

func newPackage(m *value.Map) *Package {
	return &Package{attrs: attrs{m: m}}
}
