package distroinfo

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/hashicorp/distroinfo/events"
	"github.com/hashicorp/distroinfo/value"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// InfoFile names an info file to fetch. With Remote set, the file is
// fetched from the source that remote describes in a previously fetched
// `remote-info` section.
type InfoFile struct {
	Remote string
	Name   string
}

func (f InfoFile) String() string {
	if f.Remote == "" {
		return f.Name
	}
	return f.Remote + ":" + f.Name
}

// InfoFiles turns plain file names into InfoFiles.
func InfoFiles(names ...string) []InfoFile {
	files := make([]InfoFile, 0, len(names))
	for _, n := range names {
		files = append(files, InfoFile{Name: n})
	}
	return files
}

// ParseInfoFile reads an `import` entry: either a file name or a mapping
// with a single remote name to file name entry.
func ParseInfoFile(v value.Value) (InfoFile, error) {
	switch t := v.(type) {
	case value.String:
		if t == "" {
			return InfoFile{}, invalidFormat("empty info file name")
		}
		return InfoFile{Name: string(t)}, nil
	case *value.Map:
		if t.Len() != 1 {
			return InfoFile{}, invalidFormat(
				"remote info reference must have exactly one entry, got %d", t.Len())
		}
		remote := t.Keys()[0]
		name, _ := t.Get(remote)
		s, ok := value.AsString(name)
		if !ok || s == "" {
			return InfoFile{}, invalidFormat("remote info reference %q needs a file name", remote)
		}
		return InfoFile{Remote: remote, Name: s}, nil
	}
	return InfoFile{}, invalidFormat("info file must be a name or a remote reference, got %s",
		value.KindOf(v))
}

// Fetcher fetches info files with their imports from a Source.
type Fetcher struct {
	source      Source
	config      SourceConfig
	allowImport bool
	opts        SourceOptions

	logger hclog.Logger
	event  events.EventHandler
}

// FetcherInput is the input structure for NewFetcher.
type FetcherInput struct {
	// Source info files are read from.
	Source Source
	// Config is what Source was built from, if anything. Sources of
	// `remote-info` references inherit its cache and TLS settings.
	Config SourceConfig
	// NoImport disables following `import` sections.
	NoImport bool

	SourceOptions
}

// NewFetcher creates a new Fetcher.
func NewFetcher(i FetcherInput) *Fetcher {
	f := &Fetcher{
		source:      i.Source,
		config:      i.Config,
		allowImport: !i.NoImport,
		opts:        i.SourceOptions,
		logger:      i.Logger,
		event:       i.EventHandler,
	}
	if f.logger == nil {
		f.logger = hclog.NewNullLogger()
		f.opts.Logger = f.logger
	}
	f.logger = f.logger.Named("fetcher")
	if f.event == nil {
		f.event = func(events.Event) {}
	}
	return f
}

// Source is the source files are fetched from.
func (f *Fetcher) Source() Source {
	return f.source
}

// Fetch returns the decoded documents of files and everything they import,
// depth first. Each file comes before the files it imports, and imports
// keep their declared order.
//
// A file importing itself through the active include path is a
// CircularInfoIncludeError, while reaching the same file along two
// separate paths is fine. Remote references are resolved against the
// `remote-info` sections fetched so far and fetched by a fresh Fetcher, so
// each remote has its own include namespace.
func (f *Fetcher) Fetch(ctx context.Context, files ...InfoFile) ([]*value.Map, error) {
	if f.source == nil {
		return nil, ErrSourceRequired
	}
	return f.fetch(ctx, files, newPathSet(), newRemoteStore())
}

func (f *Fetcher) fetch(
	ctx context.Context, files []InfoFile, path pathSet, remotes *remoteStore,
) ([]*value.Map, error) {
	var docs []*value.Map
	for _, file := range files {
		if file.Remote != "" {
			remoteDocs, err := f.fetchRemote(ctx, file, remotes)
			if err != nil {
				return nil, err
			}
			docs = append(docs, remoteDocs...)
			continue
		}

		if path.Has(file.Name) {
			return nil, &CircularInfoIncludeError{Info: file.Name, Path: path.List()}
		}
		if path.Len() == 0 {
			f.event(events.FetchStart{ID: file.Name, Source: f.source.ID()})
		} else {
			f.event(events.IncludeStart{ID: file.Name, Depth: path.Len()})
		}

		doc, err := f.load(ctx, file.Name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)

		if section, ok := doc.Get("remote-info"); ok {
			if err := remotes.SaveSection(section); err != nil {
				return nil, err
			}
		}

		imports, err := importList(doc)
		if err != nil {
			return nil, errors.Wrap(err, file.Name)
		}
		if len(imports) == 0 {
			continue
		}
		if !f.allowImport {
			f.event(events.Trace{ID: file.Name, Message: "imports ignored"})
			continue
		}
		included, err := f.fetch(ctx, imports, path.with(file.Name), remotes)
		if err != nil {
			return nil, err
		}
		docs = append(docs, included...)
	}
	return docs, nil
}

func (f *Fetcher) fetchRemote(
	ctx context.Context, file InfoFile, remotes *remoteStore,
) ([]*value.Map, error) {
	params, ok := remotes.Recall(file.Remote)
	if !ok {
		return nil, &InvalidRemoteInfoRefError{Remote: file.Remote}
	}
	cfg, err := remoteSourceConfig(params, f.config)
	if err != nil {
		return nil, errors.Wrapf(err, "remote %s", file.Remote)
	}
	src, err := NewSource(cfg, f.opts)
	if err != nil {
		return nil, errors.Wrapf(err, "remote %s", file.Remote)
	}

	f.logger.Debug("following remote reference", "remote", file.Remote, "source", src.ID(), "file", file.Name)
	f.event(events.RemoteRef{ID: file.Name, Remote: file.Remote})

	nested := NewFetcher(FetcherInput{
		Source:        src,
		Config:        cfg,
		SourceOptions: f.opts,
	})
	return nested.Fetch(ctx, InfoFile{Name: file.Name})
}

// load retrieves and decodes one file. TOML files are recognized by their
// extension, anything else is read as YAML (which covers JSON).
func (f *Fetcher) load(ctx context.Context, name string) (*value.Map, error) {
	f.logger.Debug("fetching info file", "name", name, "source", f.source.ID())
	data, err := f.source.Retrieve(ctx, name)
	if err != nil {
		return nil, err
	}

	decode := value.DecodeYAML
	if strings.EqualFold(filepath.Ext(name), ".toml") {
		decode = value.DecodeTOML
	}
	doc, err := decode(data)
	if err != nil {
		return nil, invalidFormat("%s: %s", name, err)
	}
	return doc, nil
}

func importList(doc *value.Map) ([]InfoFile, error) {
	v, ok := doc.Get("import")
	if !ok || value.IsNull(v) {
		return nil, nil
	}
	if s, ok := v.(value.String); ok {
		v = value.List{s}
	}
	list, ok := value.AsList(v)
	if !ok {
		return nil, invalidFormat("import must be a list, got %s", value.KindOf(v))
	}
	files := make([]InfoFile, 0, len(list))
	for _, e := range list {
		file, err := ParseInfoFile(e)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}
