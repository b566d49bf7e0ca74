package distroinfo

import (
	"fmt"
	"strings"

	"github.com/hashicorp/distroinfo/value"
)

// ParseInput is the input structure for ParseInfo.
type ParseInput struct {
	// ApplyTag selects the entry of each package's `tags` to overlay on
	// the package.
	ApplyTag string
}

// ParseInfo validates a merged info document and resolves its packages.
// doc is not modified.
//
// Every package starts from `package-default`, gets its `conf` entry of
// `package-configs`, its own attributes and the overlay of ApplyTag layered
// on top, in that order. Its string attributes are then interpolated
// against the resulting attributes.
func ParseInfo(doc *value.Map, i ParseInput) (*Info, error) {
	if doc == nil {
		doc = value.NewMap()
	}
	doc = value.DeepCopy(doc).(*value.Map)
	info := &Info{doc: doc}

	rv, ok := doc.Get("releases")
	if !ok {
		return nil, &MissingRequiredSectionError{Section: "releases"}
	}
	releases, err := parseReleases(rv)
	if err != nil {
		return nil, err
	}
	info.releases = releases

	def, err := optionalSection(doc, "package-default")
	if err != nil {
		return nil, err
	}
	confs, err := optionalSection(doc, "package-configs")
	if err != nil {
		return nil, err
	}

	pv, ok := doc.Get("packages")
	if !ok {
		return nil, &MissingRequiredSectionError{Section: "packages"}
	}
	r := &packageResolver{def: def, confs: confs, tag: i.ApplyTag}
	switch t := pv.(type) {
	case value.List:
		out := make(value.List, 0, len(t))
		seen := make(map[string]bool, len(t))
		for _, raw := range t {
			pkg, err := r.resolve(raw)
			if err != nil {
				return nil, err
			}
			project := pyStr(mustGet(pkg, "project"))
			if seen[project] {
				return nil, &DuplicatedProjectError{Project: project}
			}
			seen[project] = true
			out = append(out, pkg)
		}
		doc.Set("packages", out)
	case *value.Map:
		info.keyed = true
		out := value.NewMap()
		var err error
		t.Range(func(_ string, raw value.Value) bool {
			var pkg *value.Map
			if pkg, err = r.resolve(raw); err != nil {
				return false
			}
			project := pyStr(mustGet(pkg, "project"))
			if prev, ok := out.Get(project); ok {
				out.Set(project, Merge(prev, pkg))
				return true
			}
			out.Set(project, pkg)
			return true
		})
		if err != nil {
			return nil, err
		}
		doc.Set("packages", out)
	default:
		return nil, invalidFormat("'packages' section must be a list or a mapping, got %s",
			value.KindOf(pv))
	}

	pkgs, _ := doc.Get("packages")
	for _, p := range entries(pkgs) {
		info.packages = append(info.packages, newPackage(p.(*value.Map)))
	}
	return info, nil
}

func mustGet(m *value.Map, k string) value.Value {
	v, _ := m.Get(k)
	return v
}

// entries lists the values of a list or map section.
func entries(v value.Value) value.List {
	switch t := v.(type) {
	case value.List:
		return t
	case *value.Map:
		return t.Values()
	}
	return nil
}

// optionalSection returns the mapping section key of doc, storing an empty
// one when it is absent or null.
func optionalSection(doc *value.Map, key string) (*value.Map, error) {
	v, _ := doc.Get(key)
	if value.IsNull(v) {
		m := value.NewMap()
		doc.Set(key, m)
		return m, nil
	}
	m, ok := value.AsMap(v)
	if !ok {
		return nil, invalidFormat("'%s' section must be a mapping, got %s", key, value.KindOf(v))
	}
	return m, nil
}

func parseReleases(v value.Value) ([]*Release, error) {
	switch v.(type) {
	case value.List, *value.Map:
	default:
		return nil, invalidFormat("'releases' section must be a list or a mapping, got %s",
			value.KindOf(v))
	}

	var releases []*Release
	for _, e := range entries(v) {
		rls, ok := value.AsMap(e)
		if !ok {
			return nil, invalidFormat("release must be a mapping, got %s", value.KindOf(e))
		}
		release, err := parseRelease(rls)
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)
	}
	return releases, nil
}

// parseRelease fills the repos' missing branches in place; rls belongs to
// the private copy made by ParseInfo.
func parseRelease(rls *value.Map) (*Release, error) {
	name, ok := rls.Get("name")
	if !ok {
		return nil, &MissingRequiredItemError{Item: "release.name in " + pyRepr(rls)}
	}
	rv, ok := rls.Get("repos")
	if !ok {
		return nil, &MissingRequiredItemError{Item: "release.repos for release " + pyStr(name)}
	}
	repos, ok := value.AsList(rv)
	if !ok && !value.IsNull(rv) {
		return nil, invalidFormat("release.repos for release %s must be a list", pyStr(name))
	}

	defaultBranch, _ := rls.Get("branch")
	release := &Release{attrs: attrs{m: rls}}
	for _, e := range repos {
		repo, ok := value.AsMap(e)
		if !ok {
			return nil, invalidFormat("repo of release %s must be a mapping, got %s",
				pyStr(name), value.KindOf(e))
		}
		rname, ok := repo.Get("name")
		if !ok {
			return nil, &MissingRequiredItemError{Item: "repo.name in " + pyRepr(repo)}
		}
		if !repo.Has("branch") {
			if !value.Truthy(defaultBranch) {
				return nil, &MissingRequiredItemError{
					Item: "repo.branch for repo " + pyStr(rname),
				}
			}
			repo.Set("branch", value.DeepCopy(defaultBranch))
		}
		release.repos = append(release.repos, &Repo{attrs: attrs{m: repo}})
	}
	return release, nil
}

type packageResolver struct {
	def   *value.Map
	confs *value.Map
	tag   string
}

// resolve layers the templates under a raw package, interpolates it and
// checks the required fields.
func (r *packageResolver) resolve(raw value.Value) (*value.Map, error) {
	pkg, ok := value.AsMap(raw)
	if !ok {
		return nil, invalidFormat("package must be a mapping, got %s", value.KindOf(raw))
	}

	out := value.DeepCopy(r.def).(*value.Map)
	if confID, ok := pkg.Get("conf"); ok {
		conf, ok := r.confs.Get(pyStr(confID))
		if !ok {
			return nil, &UndefinedPackageConfigError{Conf: pyStr(confID)}
		}
		if !value.IsNull(conf) {
			cm, ok := value.AsMap(conf)
			if !ok {
				return nil, invalidFormat("package config %s must be a mapping", pyStr(confID))
			}
			out.Update(value.DeepCopy(cm).(*value.Map))
		}
	}
	out.Update(value.DeepCopy(pkg).(*value.Map))

	if r.tag != "" {
		if err := applyTag(out, r.tag); err != nil {
			return nil, err
		}
	}

	out, err := substituteAll(out)
	if err != nil {
		return nil, err
	}
	return out, checkPackage(out)
}

func applyTag(pkg *value.Map, tag string) error {
	tags, _ := pkg.Get("tags")
	if value.IsNull(tags) {
		return nil
	}
	tm, ok := value.AsMap(tags)
	if !ok {
		return invalidFormat("tags of package %s must be a mapping", pyStr(mustGet(pkg, "name")))
	}
	overlay, _ := tm.Get(tag)
	if !value.Truthy(overlay) {
		return nil
	}
	om, ok := value.AsMap(overlay)
	if !ok {
		return invalidFormat("tag %s of package %s must be a mapping", tag, pyStr(mustGet(pkg, "name")))
	}
	pkg.Update(value.DeepCopy(om).(*value.Map))
	return nil
}

func checkPackage(pkg *value.Map) error {
	name, ok := pkg.Get("name")
	if !ok {
		return &MissingRequiredItemError{Item: "package.name in " + pyRepr(pkg)}
	}
	if !pkg.Has("project") {
		return &MissingRequiredItemError{Item: fmt.Sprintf("project for '%s' package", pyStr(name))}
	}
	maints, ok := pkg.Get("maintainers")
	if !ok {
		return &MissingRequiredItemError{Item: fmt.Sprintf("maintainers for '%s' package", pyStr(name))}
	}
	if !value.Truthy(maints) {
		return &MissingRequiredItemError{
			Item: fmt.Sprintf("at least one maintainer for '%s' package", pyStr(name)),
		}
	}

	var emails value.List
	switch t := maints.(type) {
	case value.List:
		emails = t
	case *value.Map:
		for _, k := range t.Keys() {
			emails = append(emails, value.String(k))
		}
	default:
		return invalidFormat("package.maintainers must be a list of email addresses")
	}
	for _, e := range emails {
		s, ok := value.AsString(e)
		if !ok {
			return invalidFormat("package.maintainers must be a list of email addresses")
		}
		if !strings.Contains(s, "@") {
			return invalidFormat("'%s' doesn't look like maintainer's email.", s)
		}
	}
	return nil
}
