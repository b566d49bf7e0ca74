/*
Package distroinfo aggregates package and release metadata ("info") spread
over YAML documents.

Info files are fetched from a local directory, an HTTP base URL or a git
repository. A file may `import` further files, from the same source or from
a source declared in a `remote-info` section. The fetched documents are
merged into one, validated, and every package is resolved from the
`package-default` template, its `package-configs` entry, its own attributes
and an optional tag overlay, with `%(name)s` placeholders interpolated.

A simple example of fetching the info kept in a local directory and looking
up a package.

	di, err := distroinfo.New(distroinfo.DistroInfoInput{
		InfoFiles: distroinfo.InfoFiles("info.yml"),
		Config:    distroinfo.SourceConfig{Local: "/path/to/info"},
	})
	if err != nil {
		return err
	}
	info, err := di.GetInfo(ctx, distroinfo.GetInfoInput{})
	if err != nil {
		return err
	}
	pkg := query.FindPackage(info, "openstack/nova", false)

The query package holds the lookup, filtering and diffing helpers.
*/
package distroinfo
