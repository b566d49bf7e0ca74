package distroinfo

import (
	"context"
	"crypto/tls"
	"fmt"
	"io/ioutil"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/distroinfo/events"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-rootcerts"
	"github.com/pkg/errors"
)

// HTTPSource fetches info files from a base URL, optionally caching them on
// disk for CacheTTL.
type HTTPSource struct {
	baseURL   string
	ttl       time.Duration
	cachePath string
	client    *http.Client

	logger hclog.Logger
	event  events.EventHandler
}

// HTTPSourceInput is the input structure for NewHTTPSource.
type HTTPSourceInput struct {
	// BaseURL is prepended verbatim to requested file names.
	BaseURL string
	// CacheTTL enables caching when positive.
	CacheTTL time.Duration
	// CacheDir is the cache base directory, DefaultCacheDir when empty.
	CacheDir string
	// CAFile and CAPath add TLS roots to the client.
	CAFile string
	CAPath string

	// optional, principally for testing
	Client *http.Client

	Logger       hclog.Logger
	EventHandler events.EventHandler
}

// NewHTTPSource creates an HTTPSource. Cached files are kept under
// CacheDir/<id>, id being a short hash of BaseURL.
func NewHTTPSource(i HTTPSourceInput) (*HTTPSource, error) {
	dir, err := cacheDir(i.CacheDir)
	if err != nil {
		return nil, err
	}

	client := i.Client
	if client == nil {
		if client, err = httpClient(i); err != nil {
			return nil, err
		}
	}

	s := &HTTPSource{
		baseURL:   i.BaseURL,
		ttl:       i.CacheTTL,
		cachePath: filepath.Join(dir, cacheID(i.BaseURL)),
		client:    client,
		logger:    i.Logger,
		event:     i.EventHandler,
	}
	if s.logger == nil {
		s.logger = hclog.NewNullLogger()
	}
	s.logger = s.logger.Named("http")
	if s.event == nil {
		s.event = func(events.Event) {}
	}
	return s, nil
}

// httpClient returns a pooled client trusting the configured CAs.
func httpClient(i HTTPSourceInput) (*http.Client, error) {
	client := cleanhttp.DefaultPooledClient()
	if i.CAFile == "" && i.CAPath == "" {
		return client, nil
	}

	tlsConfig := &tls.Config{}
	rootConfig := &rootcerts.Config{
		CAFile: i.CAFile,
		CAPath: i.CAPath,
	}
	if err := rootcerts.ConfigureTLS(tlsConfig, rootConfig); err != nil {
		return nil, errors.Wrap(err, "configuring TLS failed")
	}
	client.Transport.(*http.Transport).TLSClientConfig = tlsConfig
	return client, nil
}

// Retrieve returns the cached copy of name when it is younger than the TTL,
// otherwise GETs BaseURL+name and caches the body.
func (s *HTTPSource) Retrieve(ctx context.Context, name string) ([]byte, error) {
	path := s.CacheFile(name)
	if s.ttl > 0 {
		if !insideDir(s.cachePath, path) {
			return nil, errors.Errorf("%s: cached path escapes %s", name, s.cachePath)
		}
		if age, ok := fileAge(path); ok && age <= s.ttl {
			data, err := ioutil.ReadFile(path)
			if err == nil {
				s.logger.Info("using cached file", "name", name, "age", age.Round(time.Second))
				s.event(events.CacheHit{ID: s.ID(), Age: age})
				return data, nil
			}
			s.logger.Warn("unreadable cached file", "path", path, "error", err)
		}
	}

	data, err := s.get(ctx, name)
	if err != nil {
		return nil, err
	}

	if s.ttl > 0 {
		if err := atomicWrite(path, data); err != nil {
			return nil, errors.Wrapf(err, "caching %s", name)
		}
		s.event(events.CacheWrite{ID: s.ID(), Path: path})
	}
	return data, nil
}

func (s *HTTPSource) get(ctx context.Context, name string) ([]byte, error) {
	url := s.baseURL + name
	s.logger.Info("fetching remote file", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, s.ID())
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, s.ID())
	}
	defer resp.Body.Close()
	s.event(events.HTTPGet{ID: s.ID(), URL: url, Status: resp.StatusCode})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteFetchError{
			Code:   resp.StatusCode,
			Reason: reason(resp),
			URL:    url,
		}
	}

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", url)
	}
	return data, nil
}

// reason is the status text without the leading code.
func reason(resp *http.Response) string {
	code := fmt.Sprintf("%d ", resp.StatusCode)
	if strings.HasPrefix(resp.Status, code) {
		return resp.Status[len(code):]
	}
	return http.StatusText(resp.StatusCode)
}

// CacheFile is where name is cached.
func (s *HTTPSource) CacheFile(name string) string {
	return filepath.Join(s.cachePath, name)
}

// ID returns the human-friendly version of this source.
func (s *HTTPSource) ID() string {
	return fmt.Sprintf("remote(%s)", s.baseURL)
}

// Stringer interface reuses ID
func (s *HTTPSource) String() string {
	return s.ID()
}

func (*HTTPSource) isSource() {}
