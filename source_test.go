package distroinfo

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/distroinfo/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSource(t *testing.T) {
	cache := t.TempDir()

	t.Run("precedence", func(t *testing.T) {
		s, err := NewSource(SourceConfig{
			Local:     "/local",
			Remote:    "https://example.com/",
			RemoteGit: "https://example.com/info.git",
		}, SourceOptions{})
		require.NoError(t, err)
		assert.IsType(t, &LocalSource{}, s)

		s, err = NewSource(SourceConfig{
			Remote:    "https://example.com/",
			RemoteGit: "https://example.com/info.git",
			CacheDir:  cache,
		}, SourceOptions{})
		require.NoError(t, err)
		assert.IsType(t, &HTTPSource{}, s)

		s, err = NewSource(SourceConfig{
			RemoteGit: "https://example.com/info.git",
			CacheDir:  cache,
		}, SourceOptions{})
		require.NoError(t, err)
		assert.IsType(t, &GitSource{}, s)
	})

	t.Run("explicit_type", func(t *testing.T) {
		s, err := NewSource(SourceConfig{
			Type:     SourceRemote,
			Local:    "/local",
			Remote:   "https://example.com/",
			CacheDir: cache,
		}, SourceOptions{})
		require.NoError(t, err)
		assert.Equal(t, "remote(https://example.com/)", s.ID())
	})

	t.Run("none", func(t *testing.T) {
		_, err := NewSource(SourceConfig{}, SourceOptions{})
		assert.Equal(t, ErrSourceRequired, err)
	})

	t.Run("type_without_location", func(t *testing.T) {
		for _, typ := range []string{SourceLocal, SourceRemote, SourceGit} {
			_, err := NewSource(SourceConfig{Type: typ}, SourceOptions{})
			assert.ErrorIs(t, err, ErrSourceRequired)
		}
	})

	t.Run("unknown_type", func(t *testing.T) {
		_, err := NewSource(SourceConfig{Type: "ftp", Local: "/x"}, SourceOptions{})
		assert.Error(t, err)
	})
}

func TestLocalSource(t *testing.T) {
	dir := writeInfoFiles(t, map[string]string{"info.yml": "a: b\n"})
	s := NewLocalSource(dir)

	data, err := s.Retrieve(context.Background(), "info.yml")
	require.NoError(t, err)
	assert.Equal(t, "a: b\n", string(data))

	_, err = s.Retrieve(context.Background(), "nope.yml")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, filepath.Join(dir, "nope.yml"), nf.Path)
	assert.Equal(t, dir, s.Dir())
}

// infoServer serves files and counts the requests it gets.
func infoServer(t *testing.T, files map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		content, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, content)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestHTTPSource(t *testing.T) {
	srv, hits := infoServer(t, map[string]string{
		"/info/info.yml": "id: remote\n",
	})

	t.Run("cached", func(t *testing.T) {
		atomic.StoreInt32(hits, 0)
		var got []events.Event
		s, err := NewHTTPSource(HTTPSourceInput{
			BaseURL:      srv.URL + "/info/",
			CacheTTL:     time.Hour,
			CacheDir:     t.TempDir(),
			Client:       srv.Client(),
			EventHandler: func(e events.Event) { got = append(got, e) },
		})
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			data, err := s.Retrieve(context.Background(), "info.yml")
			require.NoError(t, err)
			assert.Equal(t, "id: remote\n", string(data))
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(hits))

		cached, err := ioutil.ReadFile(s.CacheFile("info.yml"))
		require.NoError(t, err)
		assert.Equal(t, "id: remote\n", string(cached))

		require.Len(t, got, 3)
		assert.IsType(t, events.HTTPGet{}, got[0])
		assert.IsType(t, events.CacheWrite{}, got[1])
		assert.IsType(t, events.CacheHit{}, got[2])
	})

	t.Run("stale", func(t *testing.T) {
		atomic.StoreInt32(hits, 0)
		s, err := NewHTTPSource(HTTPSourceInput{
			BaseURL:  srv.URL + "/info/",
			CacheTTL: time.Minute,
			CacheDir: t.TempDir(),
			Client:   srv.Client(),
		})
		require.NoError(t, err)

		path := s.CacheFile("info.yml")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, ioutil.WriteFile(path, []byte("id: old\n"), 0644))
		old := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(path, old, old))

		data, err := s.Retrieve(context.Background(), "info.yml")
		require.NoError(t, err)
		assert.Equal(t, "id: remote\n", string(data))
		assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	})

	t.Run("fresh_cache_wins", func(t *testing.T) {
		atomic.StoreInt32(hits, 0)
		s, err := NewHTTPSource(HTTPSourceInput{
			BaseURL:  srv.URL + "/info/",
			CacheTTL: time.Minute,
			CacheDir: t.TempDir(),
			Client:   srv.Client(),
		})
		require.NoError(t, err)

		path := s.CacheFile("info.yml")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, ioutil.WriteFile(path, []byte("id: cached\n"), 0644))

		data, err := s.Retrieve(context.Background(), "info.yml")
		require.NoError(t, err)
		assert.Equal(t, "id: cached\n", string(data))
		assert.Equal(t, int32(0), atomic.LoadInt32(hits))
	})

	t.Run("no_ttl", func(t *testing.T) {
		atomic.StoreInt32(hits, 0)
		s, err := NewHTTPSource(HTTPSourceInput{
			BaseURL:  srv.URL + "/info/",
			CacheDir: t.TempDir(),
			Client:   srv.Client(),
		})
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			_, err := s.Retrieve(context.Background(), "info.yml")
			require.NoError(t, err)
		}
		assert.Equal(t, int32(2), atomic.LoadInt32(hits))
		_, err = os.Stat(s.CacheFile("info.yml"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("not_found", func(t *testing.T) {
		s, err := NewHTTPSource(HTTPSourceInput{
			BaseURL:  srv.URL + "/info/",
			CacheTTL: time.Hour,
			CacheDir: t.TempDir(),
			Client:   srv.Client(),
		})
		require.NoError(t, err)

		_, err = s.Retrieve(context.Background(), "missing.yml")
		var rf *RemoteFetchError
		require.ErrorAs(t, err, &rf)
		assert.Equal(t, http.StatusNotFound, rf.Code)
		assert.Equal(t, "Not Found", rf.Reason)
		assert.Equal(t, srv.URL+"/info/missing.yml", rf.URL)

		_, err = os.Stat(s.CacheFile("missing.yml"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		s, err := NewHTTPSource(HTTPSourceInput{
			BaseURL:  srv.URL + "/info/",
			CacheDir: t.TempDir(),
			Client:   srv.Client(),
		})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = s.Retrieve(ctx, "info.yml")
		assert.Error(t, err)
	})
}

func TestHTTPSourceCacheLayout(t *testing.T) {
	dir := t.TempDir()
	a, err := NewHTTPSource(HTTPSourceInput{BaseURL: "https://a.example.com/", CacheDir: dir})
	require.NoError(t, err)
	b, err := NewHTTPSource(HTTPSourceInput{BaseURL: "https://b.example.com/", CacheDir: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, cacheID("https://a.example.com/"), "x.yml"), a.CacheFile("x.yml"))
	assert.NotEqual(t, a.CacheFile("x.yml"), b.CacheFile("x.yml"))
}

func TestHTTPSourceCacheEscape(t *testing.T) {
	srv, hits := infoServer(t, map[string]string{
		"/escape.yml": "id: escape\n",
	})
	dir := t.TempDir()
	s, err := NewHTTPSource(HTTPSourceInput{
		BaseURL:  srv.URL + "/info/",
		CacheTTL: time.Hour,
		CacheDir: dir,
		Client:   srv.Client(),
	})
	require.NoError(t, err)

	_, err = s.Retrieve(context.Background(), "../escape.yml")
	assert.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
	_, err = os.Stat(filepath.Join(dir, "escape.yml"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetchThroughHTTP(t *testing.T) {
	srv, _ := infoServer(t, map[string]string{
		"/info.yml": "id: main\nimport: [more.yml]\n",
		"/more.yml": "id: more\n",
	})

	s, err := NewHTTPSource(HTTPSourceInput{
		BaseURL:  srv.URL + "/",
		CacheDir: t.TempDir(),
		Client:   srv.Client(),
	})
	require.NoError(t, err)

	docs, err := NewFetcher(FetcherInput{Source: s}).Fetch(context.Background(),
		InfoFiles("info.yml")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "more"}, docIDs(docs))
}
