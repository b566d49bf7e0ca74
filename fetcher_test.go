package distroinfo

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/distroinfo/events"
	"github.com/hashicorp/distroinfo/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeInfoFiles creates the named files in a fresh directory.
func writeInfoFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func localFetcher(dir string) *Fetcher {
	return NewFetcher(FetcherInput{Source: NewLocalSource(dir)})
}

// docIDs collects the `id` key of each document.
func docIDs(docs []*value.Map) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		v, _ := d.Get("id")
		s, _ := value.AsString(v)
		ids = append(ids, s)
	}
	return ids
}

func TestFetchOrder(t *testing.T) {
	dir := writeInfoFiles(t, map[string]string{
		"main.yml":   "id: main\nimport: [a.yml, b.yml]\n",
		"a.yml":      "id: a\nimport: [common.yml]\n",
		"b.yml":      "id: b\nimport: [common.yml, leaf.yml]\n",
		"common.yml": "id: common\n",
		"leaf.yml":   "id: leaf\n",
	})

	docs, err := localFetcher(dir).Fetch(context.Background(), InfoFiles("main.yml")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "a", "common", "b", "common", "leaf"}, docIDs(docs))
}

func TestFetchSplitFixture(t *testing.T) {
	docs, err := localFetcher("testdata/info/split").Fetch(context.Background(),
		InfoFiles("main.yml")...)
	require.NoError(t, err)
	assert.Len(t, docs, 6)
}

func TestFetchCircular(t *testing.T) {
	cases := []struct {
		name string
		file string
		info string
		path []string
	}{
		{"self", "self.yml", "self.yml", []string{"self.yml"}},
		{"transitive", "circle1.yml", "circle1.yml",
			[]string{"circle1.yml", "circle2.yml", "circle3.yml"}},
		{"entered_midway", "circle2.yml", "circle2.yml",
			[]string{"circle2.yml", "circle3.yml", "circle1.yml"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := localFetcher("testdata/info/broken").Fetch(context.Background(),
				InfoFiles(tc.file)...)
			var circ *CircularInfoIncludeError
			require.ErrorAs(t, err, &circ)
			assert.Equal(t, tc.info, circ.Info)
			assert.Equal(t, tc.path, circ.Path)
			assert.ErrorIs(t, err, ErrInvalidInfoFormat)
		})
	}
}

func TestCircularInfoIncludeMessage(t *testing.T) {
	_, err := localFetcher("testdata/info/broken").Fetch(context.Background(),
		InfoFiles("circle1.yml")...)
	assert.EqualError(t, err,
		"Circular info include: circle1.yml (via circle1.yml -> circle2.yml -> circle3.yml)")
}

func TestFetchSameFileTwiceAtTopLevel(t *testing.T) {
	dir := writeInfoFiles(t, map[string]string{
		"a.yml": "id: a\n",
	})
	docs, err := localFetcher(dir).Fetch(context.Background(), InfoFiles("a.yml", "a.yml")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a"}, docIDs(docs))
}

func TestFetchMissingImport(t *testing.T) {
	_, err := localFetcher("testdata/info/broken").Fetch(context.Background(),
		InfoFiles("invalid-import.yml")...)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, filepath.Join("testdata/info/broken", "wololo.yml"), nf.Path)
	assert.True(t, os.IsNotExist(nf.Err))
}

func TestFetchNoImport(t *testing.T) {
	dir := writeInfoFiles(t, map[string]string{
		"main.yml": "id: main\nimport: [missing.yml]\n",
	})
	f := NewFetcher(FetcherInput{Source: NewLocalSource(dir), NoImport: true})
	docs, err := f.Fetch(context.Background(), InfoFiles("main.yml")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, docIDs(docs))
}

func TestFetchNoSource(t *testing.T) {
	_, err := NewFetcher(FetcherInput{}).Fetch(context.Background(), InfoFiles("x.yml")...)
	assert.Equal(t, ErrSourceRequired, err)
}

func TestFetchInvalidDocuments(t *testing.T) {
	dir := writeInfoFiles(t, map[string]string{
		"bad-yaml.yml":    "a: [b\n",
		"bad-import.yml":  "import: 5\n",
		"bad-ref.yml":     "import:\n- {a: x.yml, b: y.yml}\n",
		"bad-remotes.yml": "remote-info: [x]\n",
	})
	for _, name := range []string{"bad-yaml.yml", "bad-import.yml", "bad-ref.yml", "bad-remotes.yml"} {
		t.Run(name, func(t *testing.T) {
			_, err := localFetcher(dir).Fetch(context.Background(), InfoFiles(name)...)
			assert.ErrorIs(t, err, ErrInvalidInfoFormat)
		})
	}
}

func TestFetchTOML(t *testing.T) {
	dir := writeInfoFiles(t, map[string]string{
		"main.yml":  "id: main\nimport: [more.toml]\n",
		"more.toml": "id = \"toml\"\n",
	})
	docs, err := localFetcher(dir).Fetch(context.Background(), InfoFiles("main.yml")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "toml"}, docIDs(docs))
}

func TestFetchRemoteInfo(t *testing.T) {
	other := writeInfoFiles(t, map[string]string{
		"info.yml":  "id: other\nimport: [more.yml]\n",
		"more.yml":  "id: other-more\n",
		"loop.yml":  "id: other-loop\nimport: [main.yml]\n",
		"main.yml":  "id: other-main\n",
		"again.yml": "id: other-again\nimport: [{up: x.yml}]\n",
	})

	t.Run("import", func(t *testing.T) {
		dir := writeInfoFiles(t, map[string]string{
			"main.yml": "id: main\nremote-info:\n  up:\n    local_info: " + other +
				"\nimport:\n- up: info.yml\n- local.yml\n",
			"local.yml": "id: local\n",
		})
		docs, err := localFetcher(dir).Fetch(context.Background(), InfoFiles("main.yml")...)
		require.NoError(t, err)
		assert.Equal(t, []string{"main", "other", "other-more", "local"}, docIDs(docs))
	})

	t.Run("top_level_reference", func(t *testing.T) {
		dir := writeInfoFiles(t, map[string]string{
			"remotes.yml": "id: remotes\nremote-info:\n  up:\n    local_info: " + other + "\n",
		})
		docs, err := localFetcher(dir).Fetch(context.Background(),
			InfoFile{Name: "remotes.yml"}, InfoFile{Remote: "up", Name: "more.yml"})
		require.NoError(t, err)
		assert.Equal(t, []string{"remotes", "other-more"}, docIDs(docs))
	})

	t.Run("own_namespace", func(t *testing.T) {
		// main.yml is on the active path in both sources, each its own file.
		dir := writeInfoFiles(t, map[string]string{
			"main.yml": "id: main\nremote-info:\n  up:\n    local_info: " + other +
				"\nimport:\n- up: loop.yml\n",
		})
		docs, err := localFetcher(dir).Fetch(context.Background(), InfoFiles("main.yml")...)
		require.NoError(t, err)
		assert.Equal(t, []string{"main", "other-loop", "other-main"}, docIDs(docs))
	})

	t.Run("remotes_not_shared_with_remote", func(t *testing.T) {
		dir := writeInfoFiles(t, map[string]string{
			"main.yml": "id: main\nremote-info:\n  up:\n    local_info: " + other +
				"\nimport:\n- up: again.yml\n",
		})
		_, err := localFetcher(dir).Fetch(context.Background(), InfoFiles("main.yml")...)
		var ref *InvalidRemoteInfoRefError
		require.ErrorAs(t, err, &ref)
		assert.Equal(t, "up", ref.Remote)
	})

	t.Run("undefined", func(t *testing.T) {
		_, err := localFetcher("testdata/info/broken").Fetch(context.Background(),
			InfoFiles("bad-remote.yml")...)
		var ref *InvalidRemoteInfoRefError
		require.ErrorAs(t, err, &ref)
		assert.Equal(t, "nowhere", ref.Remote)
	})

	t.Run("defined_later", func(t *testing.T) {
		dir := writeInfoFiles(t, map[string]string{
			"main.yml": "import:\n- up: info.yml\n- remotes.yml\n",
			"remotes.yml": "remote-info:\n  up:\n    local_info: " + other + "\n",
		})
		_, err := localFetcher(dir).Fetch(context.Background(), InfoFiles("main.yml")...)
		var ref *InvalidRemoteInfoRefError
		assert.ErrorAs(t, err, &ref)
	})
}

func TestFetchEvents(t *testing.T) {
	dir := writeInfoFiles(t, map[string]string{
		"main.yml": "import: [a.yml]\n",
		"a.yml":    "id: a\n",
	})
	var got []events.Event
	f := NewFetcher(FetcherInput{
		Source: NewLocalSource(dir),
		SourceOptions: SourceOptions{
			EventHandler: func(e events.Event) { got = append(got, e) },
		},
	})
	_, err := f.Fetch(context.Background(), InfoFiles("main.yml")...)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, events.FetchStart{ID: "main.yml", Source: "local(" + dir + ")"}, got[0])
	assert.Equal(t, events.IncludeStart{ID: "a.yml", Depth: 1}, got[1])

	got = nil
	f = NewFetcher(FetcherInput{
		Source:   NewLocalSource(dir),
		NoImport: true,
		SourceOptions: SourceOptions{
			EventHandler: func(e events.Event) { got = append(got, e) },
		},
	})
	_, err = f.Fetch(context.Background(), InfoFiles("main.yml")...)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, events.Trace{ID: "main.yml", Message: "imports ignored"}, got[1])
}

func TestParseInfoFile(t *testing.T) {
	cases := []struct {
		name string
		in   value.Value
		exp  InfoFile
		err  bool
	}{
		{"plain", value.String("a.yml"), InfoFile{Name: "a.yml"}, false},
		{"remote", value.MapOf("up", "a.yml"), InfoFile{Remote: "up", Name: "a.yml"}, false},
		{"empty", value.String(""), InfoFile{}, true},
		{"two_entries", value.MapOf("a", "x", "b", "y"), InfoFile{}, true},
		{"remote_not_string", value.MapOf("a", 1), InfoFile{}, true},
		{"number", value.Int(1), InfoFile{}, true},
		{"null", nil, InfoFile{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := ParseInfoFile(tc.in)
			if tc.err {
				assert.ErrorIs(t, err, ErrInvalidInfoFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, f)
		})
	}
	assert.Equal(t, "up:a.yml", InfoFile{Remote: "up", Name: "a.yml"}.String())
}

func TestRemoteSourceConfig(t *testing.T) {
	parent := SourceConfig{
		Local:    "/parent",
		CacheTTL: time.Minute,
		CacheDir: "/cache",
		CAFile:   "/ca.pem",
	}

	t.Run("defaults_and_inheritance", func(t *testing.T) {
		cfg, err := remoteSourceConfig(value.MapOf("remote_info", "https://example.com/"), parent)
		require.NoError(t, err)
		assert.Equal(t, SourceConfig{
			Remote:   "https://example.com/",
			CacheTTL: DefaultRemoteCacheTTL,
			CacheDir: "/cache",
			CAFile:   "/ca.pem",
		}, cfg)
	})

	t.Run("explicit", func(t *testing.T) {
		cfg, err := remoteSourceConfig(value.MapOf(
			"remote_git_info", "https://example.com/info.git",
			"cache_ttl", 0,
			"cache_base_path", "/elsewhere",
		), parent)
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), cfg.CacheTTL)
		assert.Equal(t, "/elsewhere", cfg.CacheDir)
		assert.Equal(t, "https://example.com/info.git", cfg.RemoteGit)
	})

	t.Run("seconds", func(t *testing.T) {
		cfg, err := remoteSourceConfig(value.MapOf("local_info", "/x", "cache_ttl", 90), parent)
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	})

	t.Run("unknown_key", func(t *testing.T) {
		_, err := remoteSourceConfig(value.MapOf("local_info", "/x", "colour", "red"), parent)
		assert.ErrorIs(t, err, ErrInvalidInfoFormat)
	})
}
