package distroinfo

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/hashicorp/distroinfo/events"
	"github.com/hashicorp/distroinfo/value"
	"github.com/hashicorp/go-hclog"
	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Source type names accepted by SourceConfig.Type.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
	SourceGit    = "git"
)

// Source retrieves raw info files by name. It is implemented by
// LocalSource, HTTPSource and GitSource only.
type Source interface {
	// Retrieve returns the contents of the named info file.
	Retrieve(ctx context.Context, name string) ([]byte, error)
	// ID is a human readable identifier of the source.
	ID() string

	isSource()
}

// check for interface compliance
var (
	_ Source = (*LocalSource)(nil)
	_ Source = (*HTTPSource)(nil)
	_ Source = (*GitSource)(nil)
)

// SourceConfig selects and configures one of the sources. The mapstructure
// tags match the keys of `remote-info` entries.
type SourceConfig struct {
	// Type is one of SourceLocal, SourceRemote or SourceGit. When empty the
	// type follows from the first location set, checked in the order Local,
	// Remote, RemoteGit.
	Type string `mapstructure:"type"`

	// Local is the directory info files are read from.
	Local string `mapstructure:"local_info"`
	// Remote is the base URL info file names are appended to.
	Remote string `mapstructure:"remote_info"`
	// RemoteGit is the URL of the repository holding the info files.
	RemoteGit string `mapstructure:"remote_git_info"`

	// CacheTTL is the cache freshness window. Zero disables HTTP caching and
	// makes the git source fetch every time. In `remote-info` entries it is
	// given in seconds.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// CacheDir is the cache base directory, DefaultCacheDir when empty.
	CacheDir string `mapstructure:"cache_base_path"`

	// CAFile and CAPath add TLS roots for the HTTP source.
	CAFile string `mapstructure:"ca_file"`
	CAPath string `mapstructure:"ca_path"`
}

// SourceOptions carries the ambient settings shared by every source built
// from a SourceConfig.
type SourceOptions struct {
	Logger       hclog.Logger
	EventHandler events.EventHandler
	// HTTPClient replaces the pooled client of HTTP sources, mainly for
	// testing.
	HTTPClient *http.Client
}

// NewSource builds the source selected by cfg.
func NewSource(cfg SourceConfig, opts SourceOptions) (Source, error) {
	typ := cfg.Type
	if typ == "" {
		switch {
		case cfg.Local != "":
			typ = SourceLocal
		case cfg.Remote != "":
			typ = SourceRemote
		case cfg.RemoteGit != "":
			typ = SourceGit
		default:
			return nil, ErrSourceRequired
		}
	}

	switch typ {
	case SourceLocal:
		if cfg.Local == "" {
			return nil, errors.Wrap(ErrSourceRequired, "local source needs a directory")
		}
		return NewLocalSource(cfg.Local), nil
	case SourceRemote:
		if cfg.Remote == "" {
			return nil, errors.Wrap(ErrSourceRequired, "remote source needs a base URL")
		}
		return NewHTTPSource(HTTPSourceInput{
			BaseURL:      cfg.Remote,
			CacheTTL:     cfg.CacheTTL,
			CacheDir:     cfg.CacheDir,
			CAFile:       cfg.CAFile,
			CAPath:       cfg.CAPath,
			Client:       opts.HTTPClient,
			Logger:       opts.Logger,
			EventHandler: opts.EventHandler,
		})
	case SourceGit:
		if cfg.RemoteGit == "" {
			return nil, errors.Wrap(ErrSourceRequired, "git source needs a repository URL")
		}
		return NewGitSource(GitSourceInput{
			URL:          cfg.RemoteGit,
			CacheTTL:     cfg.CacheTTL,
			CacheDir:     cfg.CacheDir,
			Logger:       opts.Logger,
			EventHandler: opts.EventHandler,
		})
	}
	return nil, errors.Errorf("unknown source type %q", typ)
}

// remoteSourceConfig decodes a `remote-info` entry. Unset cache and TLS
// settings are inherited from parent; the TTL is not, it defaults to
// DefaultRemoteCacheTTL.
func remoteSourceConfig(params *value.Map, parent SourceConfig) (SourceConfig, error) {
	var cfg SourceConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		ErrorUnused: true,
		Result:      &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(value.ToInterface(params)); err != nil {
		return cfg, invalidFormat("remote-info entry: %s", err)
	}
	if !params.Has("cache_ttl") {
		cfg.CacheTTL = DefaultRemoteCacheTTL
	}

	inherited := SourceConfig{
		CacheDir: parent.CacheDir,
		CAFile:   parent.CAFile,
		CAPath:   parent.CAPath,
	}
	if err := mergo.Merge(&cfg, inherited); err != nil {
		return cfg, errors.Wrap(err, "remote-info inheritance")
	}
	return cfg, nil
}

// secondsToDurationHookFunc reads plain numbers as a number of seconds.
func secondsToDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch n := data.(type) {
		case int64:
			return time.Duration(n) * time.Second, nil
		case int:
			return time.Duration(n) * time.Second, nil
		case float64:
			return time.Duration(n * float64(time.Second)), nil
		}
		return data, nil
	}
}
