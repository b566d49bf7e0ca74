package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/distroinfo"
	"github.com/hashicorp/distroinfo/value"
	"github.com/hashicorp/go-bexpr"
)

// GetRelease returns the first release called name, nil if there is none.
func GetRelease(info *distroinfo.Info, name string) *distroinfo.Release {
	for _, rls := range info.Releases() {
		if rls.Name() == name {
			return rls
		}
	}
	return nil
}

// GetPackage returns the first package called name, nil if there is none.
func GetPackage(info *distroinfo.Info, name string) *distroinfo.Package {
	for _, pkg := range info.Packages() {
		if pkg.Name() == name {
			return pkg
		}
	}
	return nil
}

var nonWord = regexp.MustCompile(`\W`)

// FindPackage looks a package up by its name, then by project or upstream
// URL and finally, unless strict is set, by a looser substring match.
func FindPackage(info *distroinfo.Info, ref string, strict bool) *distroinfo.Package {
	if pkg := GetPackage(info, ref); pkg != nil {
		return pkg
	}

	pkgs := info.Packages()
	ps := StripProjectURL(ref)
	for _, pkg := range pkgs {
		if _, ok := pkg.Get("project"); ok && strings.ToLower(pkg.Project()) == ps {
			return pkg
		}
		if upstream, ok := pkg.GetString("upstream"); ok && StripProjectURL(upstream) == ps {
			return pkg
		}
	}
	if strict {
		return nil
	}

	psl := strings.ToLower(ps)
	if nonWord.MatchString(ps) {
		for _, pkg := range pkgs {
			if _, ok := pkg.Get("project"); ok && strings.Contains(psl, strings.ToLower(pkg.Project())) {
				return pkg
			}
		}
	}
	for _, pkg := range pkgs {
		if strings.Contains(strings.ToLower(pkg.Name()), psl) {
			return pkg
		}
	}
	return nil
}

var schemePrefix = regexp.MustCompile(`^[^:]+://`)

// StripProjectURL strips the proto:// and openstack/ prefixes and the .git
// and -distgit suffixes of a project URL.
func StripProjectURL(url string) string {
	url = schemePrefix.ReplaceAllString(url, "")
	url = strings.TrimSuffix(url, ".git")
	url = strings.TrimSuffix(url, "-distgit")
	// openstack is always special
	if strings.HasPrefix(url, "openstack/") {
		url = url[len("openstack/"):]
	}
	return url
}

// FilterPackages keeps the packages matching all filters. Filters map an
// attribute name to a regular expression searched in the attribute value,
// or in any of its elements for lists and mappings. A pattern starting
// with ~ excludes the packages it matches instead. Packages without the
// attribute never match.
func FilterPackages(pkgs []*distroinfo.Package, filters map[string]string) ([]*distroinfo.Package, error) {
	attrs := make([]string, 0, len(filters))
	for attr := range filters {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	matchers := make([]attrMatcher, 0, len(attrs))
	for _, attr := range attrs {
		pattern := filters[attr]
		m := attrMatcher{attr: attr}
		if strings.HasPrefix(pattern, "~") {
			m.negate = true
			pattern = pattern[1:]
		}
		rex, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &distroinfo.InvalidPackageFilterError{
				Why: fmt.Sprintf("invalid pattern for '%s': %s", attr, err),
			}
		}
		m.rex = rex
		matchers = append(matchers, m)
	}

	var out []*distroinfo.Package
	for _, pkg := range pkgs {
		ok, err := matchAll(matchers, pkg)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, pkg)
		}
	}
	return out, nil
}

type attrMatcher struct {
	attr   string
	rex    *regexp.Regexp
	negate bool
}

func matchAll(matchers []attrMatcher, pkg *distroinfo.Package) (bool, error) {
	for _, m := range matchers {
		v, _ := pkg.Get(m.attr)
		if value.IsNull(v) {
			return false, nil
		}
		found, err := m.match(v)
		if err != nil {
			return false, err
		}
		if found == m.negate {
			return false, nil
		}
	}
	return true, nil
}

func (m attrMatcher) match(v value.Value) (bool, error) {
	var candidates value.List
	switch t := v.(type) {
	case value.String:
		return m.rex.MatchString(string(t)), nil
	case value.List:
		candidates = t
	case *value.Map:
		for _, k := range t.Keys() {
			candidates = append(candidates, value.String(k))
		}
	default:
		return false, m.invalid(v)
	}
	for _, e := range candidates {
		s, ok := value.AsString(e)
		if !ok {
			return false, m.invalid(e)
		}
		if m.rex.MatchString(s) {
			return true, nil
		}
	}
	return false, nil
}

func (m attrMatcher) invalid(v value.Value) error {
	return &distroinfo.InvalidPackageFilterError{
		Why: fmt.Sprintf("Can only filter strings but '%s' is %s", m.attr, value.KindOf(v)),
	}
}

// SelectPackages keeps the packages for which the boolean expression expr
// holds, for example `component == "compute" and conf != "client"`.
// Selectors name package attributes.
func SelectPackages(pkgs []*distroinfo.Package, expr string) ([]*distroinfo.Package, error) {
	eval, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, &distroinfo.InvalidQueryError{Why: err.Error()}
	}

	var out []*distroinfo.Package
	for _, pkg := range pkgs {
		ok, err := eval.Evaluate(value.ToInterface(pkg.Attrs()))
		if err != nil {
			return nil, &distroinfo.InvalidQueryError{
				Why: fmt.Sprintf("package %s: %s", pkg.Name(), err),
			}
		}
		if ok {
			out = append(out, pkg)
		}
	}
	return out, nil
}

// Distrepos are the distribution repositories of one repo of a release.
type Distrepos struct {
	Release   string
	Repo      string
	Distrepos value.Value
}

// GetDistrepos returns the distrepos of release, limited to the repo named
// dist unless dist is empty.
func GetDistrepos(info *distroinfo.Info, release, dist string) ([]Distrepos, error) {
	rls := GetRelease(info, release)
	if rls == nil {
		return nil, &distroinfo.InvalidQueryError{
			Why: "release not defined in info: " + release,
		}
	}

	var out []Distrepos
	found := false
	for _, repo := range rls.Repos() {
		if dist != "" && repo.Name() != dist {
			continue
		}
		dr := repo.Distrepos()
		if !value.Truthy(dr) {
			continue
		}
		out = append(out, Distrepos{Release: release, Repo: repo.Name(), Distrepos: dr})
		if dist != "" {
			found = true
			break
		}
	}
	if dist != "" && !found {
		return nil, &distroinfo.InvalidQueryError{
			Why: fmt.Sprintf("dist not defined in info: %s/%s", release, dist),
		}
	}
	if len(out) == 0 {
		return nil, &distroinfo.InvalidQueryError{
			Why: "No distrepos information in info for " + release,
		}
	}
	return out, nil
}

// FindElement returns the first element of the top level section key
// holding, at any depth, a string that contains needle. It returns nil when
// the section is absent or nothing matches.
func FindElement(info *distroinfo.Info, needle, key string) value.Value {
	section, ok := info.Section(key)
	if !ok {
		return nil
	}
	var elems value.List
	switch t := section.(type) {
	case value.List:
		elems = t
	case *value.Map:
		elems = t.Values()
	default:
		return nil
	}
	for _, e := range elems {
		if contains(e, needle) {
			return e
		}
	}
	return nil
}

// contains searches v depth first for a string containing needle.
func contains(v value.Value, needle string) bool {
	switch t := v.(type) {
	case value.String:
		return strings.Contains(string(t), needle)
	case value.List:
		for _, e := range t {
			if contains(e, needle) {
				return true
			}
		}
	case *value.Map:
		found := false
		t.Range(func(_ string, e value.Value) bool {
			found = contains(e, needle)
			return !found
		})
		return found
	}
	return false
}
