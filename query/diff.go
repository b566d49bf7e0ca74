package query

import (
	"github.com/hashicorp/distroinfo"
	"github.com/hashicorp/distroinfo/value"
)

// AttrChange is a package whose attribute changed between two Infos.
type AttrChange struct {
	Package string
	Value   value.Value
}

// TagsChange lists the tags of a package that changed between two Infos.
type TagsChange struct {
	Package string
	Tags    []string
}

// changed returns the packages of b without an identical package in a,
// each paired with the package of the same project in a, if any.
func changed(a, b *distroinfo.Info) [][2]*distroinfo.Package {
	pkgsA := a.Packages()
	var out [][2]*distroinfo.Package
	for _, pkgB := range b.Packages() {
		same := false
		for _, pkgA := range pkgsA {
			if pkgA.Equal(pkgB) {
				same = true
				break
			}
		}
		if same {
			continue
		}
		var prev *distroinfo.Package
		for _, pkgA := range pkgsA {
			if pkgA.Project() == pkgB.Project() {
				prev = pkgA
				break
			}
		}
		out = append(out, [2]*distroinfo.Package{prev, pkgB})
	}
	return out
}

// AttrDiff reports the packages of b whose attr differs from the same
// project in a, with the new value. New packages are reported when they
// set attr. Changes to an empty value are not reported.
func AttrDiff(a, b *distroinfo.Info, attr string) []AttrChange {
	var diff []AttrChange
	for _, pair := range changed(a, b) {
		prev, pkg := pair[0], pair[1]
		v, _ := pkg.Get(attr)
		if prev != nil {
			old, _ := prev.Get(attr)
			if value.Equal(old, v) {
				continue
			}
		}
		if value.Truthy(v) {
			diff = append(diff, AttrChange{Package: pkg.Name(), Value: v})
		}
	}
	return diff
}

// TagsDiff reports the packages of b with tags, kept under the tagsName
// attribute, added or changed compared to the same project in a. All tags
// of new packages are reported.
func TagsDiff(a, b *distroinfo.Info, tagsName string) []TagsChange {
	if tagsName == "" {
		tagsName = "tags"
	}
	var diff []TagsChange
	for _, pair := range changed(a, b) {
		prev, pkg := pair[0], pair[1]
		tags := tagMap(pkg, tagsName)
		var updated []string
		if prev != nil {
			prevTags := tagMap(prev, tagsName)
			tags.Range(func(tag string, v value.Value) bool {
				old, ok := prevTags.Get(tag)
				if !ok || !value.Equal(old, v) {
					updated = append(updated, tag)
				}
				return true
			})
		} else {
			updated = tags.Keys()
		}
		if len(updated) > 0 {
			diff = append(diff, TagsChange{Package: pkg.Name(), Tags: updated})
		}
	}
	return diff
}

func tagMap(pkg *distroinfo.Package, tagsName string) *value.Map {
	v, _ := pkg.Get(tagsName)
	if m, ok := value.AsMap(v); ok {
		return m
	}
	return value.NewMap()
}
