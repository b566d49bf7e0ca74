package distroinfo

import (
	"context"

	"github.com/hashicorp/distroinfo/value"
)

// DistroInfo fetches a set of info files from a source and turns them into
// an Info.
type DistroInfo struct {
	files   []InfoFile
	fetcher *Fetcher
}

// DistroInfoInput is the input structure for New.
type DistroInfoInput struct {
	// InfoFiles are the top level info files, fetched in order.
	InfoFiles []InfoFile
	// Source to fetch from. When nil, one is built from Config.
	Source Source
	// Config selects the source when Source is nil. Sources declared in
	// `remote-info` sections inherit its cache and TLS settings.
	Config SourceConfig
	// NoImport disables following `import` sections.
	NoImport bool

	SourceOptions
}

// New creates a DistroInfo. It fails with ErrSourceRequired when neither
// a Source nor a usable Config is given.
func New(i DistroInfoInput) (*DistroInfo, error) {
	src := i.Source
	if src == nil {
		var err error
		if src, err = NewSource(i.Config, i.SourceOptions); err != nil {
			return nil, err
		}
	}
	files := make([]InfoFile, len(i.InfoFiles))
	copy(files, i.InfoFiles)
	return &DistroInfo{
		files: files,
		fetcher: NewFetcher(FetcherInput{
			Source:        src,
			Config:        i.Config,
			NoImport:      i.NoImport,
			SourceOptions: i.SourceOptions,
		}),
	}, nil
}

// GetInfoInput is the input structure for GetInfo.
type GetInfoInput struct {
	// ApplyTag overlays the named tag on every package carrying it.
	ApplyTag string
	// Keyed keeps packages and releases in maps keyed by project and name.
	Keyed bool
}

// GetInfo fetches, merges and parses the info files.
func (d *DistroInfo) GetInfo(ctx context.Context, i GetInfoInput) (*Info, error) {
	docs, err := d.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	merged, err := MergeInfos(docs, i.Keyed)
	if err != nil {
		return nil, err
	}
	return ParseInfo(merged, ParseInput{ApplyTag: i.ApplyTag})
}

// FetchRaw returns the fetched documents, before merging.
func (d *DistroInfo) FetchRaw(ctx context.Context) ([]*value.Map, error) {
	return d.fetcher.Fetch(ctx, d.files...)
}

// Source is the source info files are fetched from.
func (d *DistroInfo) Source() Source {
	return d.fetcher.Source()
}
