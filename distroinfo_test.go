package distroinfo

import (
	"context"
	"testing"

	"github.com/hashicorp/distroinfo/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getInfo(t *testing.T, dir, file string, i GetInfoInput) (*Info, error) {
	t.Helper()
	di, err := New(DistroInfoInput{
		InfoFiles: InfoFiles(file),
		Config:    SourceConfig{Local: dir},
	})
	require.NoError(t, err)
	return di.GetInfo(context.Background(), i)
}

func packagesByProject(info *Info) map[string]*Package {
	out := make(map[string]*Package)
	for _, p := range info.Packages() {
		out[p.Project()] = p
	}
	return out
}

func TestGetInfoMinimal(t *testing.T) {
	info, err := getInfo(t, "testdata/info/minimal", "minimal.yml", GetInfoInput{})
	require.NoError(t, err)
	assert.False(t, info.Keyed())

	names := []string{}
	for _, p := range info.Packages() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{
		"openstack-nova", "openstack-glance", "python-oslo.config", "rdopkg",
	}, names)

	pkgs := packagesByProject(info)
	nova := pkgs["nova"]
	assert.Equal(t, []string{"nova@example.com"}, nova.Maintainers())
	up, _ := nova.GetString("upstream")
	assert.Equal(t, "https://opendev.org/openstack/nova", up)
	dg, _ := nova.GetString("distgit")
	assert.Equal(t, "https://github.com/rdo-packages/nova-distgit.git", dg)
	assert.Equal(t, []string{"jdoe@example.com"}, pkgs["glance"].Maintainers())
	up, _ = pkgs["rdopkg"].GetString("upstream")
	assert.Equal(t, "https://github.com/softwarefactory-project/rdopkg", up)

	rls := info.Releases()
	require.Len(t, rls, 2)
	assert.Equal(t, "zed", rls[0].Name())
	repos := rls[0].Repos()
	require.Len(t, repos, 2)
	assert.Equal(t, "zed-rdo", repos[0].Branch())
	assert.Equal(t, "zed-el8", repos[1].Branch())
	assert.Equal(t, "rpm-master", rls[1].Repos()[0].Branch())

	assert.Equal(t, []string{"core"}, info.PackageConfigs().Keys())
}

func TestGetInfoTags(t *testing.T) {
	cases := []struct {
		tag    string
		nova   string
		glance string
	}{
		{"", "", ""},
		{"zed", "", ""},
		{"antelope", "27.0.0", ""},
		{"wallaby", "", "stable/wallaby"},
	}
	for _, tc := range cases {
		t.Run("tag_"+tc.tag, func(t *testing.T) {
			info, err := getInfo(t, "testdata/info/minimal", "minimal.yml",
				GetInfoInput{ApplyTag: tc.tag})
			require.NoError(t, err)
			pkgs := packagesByProject(info)
			b, _ := pkgs["nova"].GetString("source-branch")
			assert.Equal(t, tc.nova, b)
			b, _ = pkgs["glance"].GetString("source-branch")
			assert.Equal(t, tc.glance, b)
		})
	}
}

func TestGetInfoRemoteInfo(t *testing.T) {
	info, err := getInfo(t, "testdata/info/minimal", "remote.yml", GetInfoInput{})
	require.NoError(t, err)

	for _, p := range info.Packages() {
		f, _ := p.GetString("extra-default-field")
		assert.Equal(t, "foo-default", f, p.Name())
	}
	dg, _ := packagesByProject(info)["nova"].GetString("distgit")
	assert.Equal(t, "wololo", dg)
	assert.Equal(t, []string{"extra"}, info.RemoteInfo().Keys())
}

func TestGetInfoSplit(t *testing.T) {
	info, err := getInfo(t, "testdata/info/split", "main.yml", GetInfoInput{})
	require.NoError(t, err)

	pkgs := packagesByProject(info)
	require.Len(t, pkgs, 2)
	nova := pkgs["nova"]
	assert.Equal(t, "openstack-nova", nova.Name())
	assert.Equal(t, []string{"nova@example.com", "second@example.com"}, nova.Maintainers())
	c, _ := nova.GetString("component")
	assert.Equal(t, "compute", c)
	assert.Equal(t, "openstack-glance", pkgs["glance"].Name())
}

func TestGetInfoKeyed(t *testing.T) {
	info, err := getInfo(t, "testdata/info/minimal", "minimal.yml", GetInfoInput{Keyed: true})
	require.NoError(t, err)
	assert.True(t, info.Keyed())

	section, _ := info.Section("packages")
	assert.Equal(t, []string{"nova", "glance", "oslo.config", "rdopkg"},
		section.(*value.Map).Keys())
	section, _ = info.Section("releases")
	assert.Equal(t, []string{"zed", "master"}, section.(*value.Map).Keys())
	assert.Len(t, info.Releases(), 2)
}

func TestGetInfoBroken(t *testing.T) {
	t.Run("circular", func(t *testing.T) {
		_, err := getInfo(t, "testdata/info/broken", "circle1.yml", GetInfoInput{})
		var circ *CircularInfoIncludeError
		assert.ErrorAs(t, err, &circ)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := getInfo(t, "testdata/info/broken", "duplicate.yml", GetInfoInput{})
		var dup *DuplicatedProjectError
		assert.ErrorAs(t, err, &dup)
	})

	t.Run("duplicate_keyed", func(t *testing.T) {
		info, err := getInfo(t, "testdata/info/broken", "duplicate.yml", GetInfoInput{Keyed: true})
		require.NoError(t, err)
		pkgs := info.Packages()
		require.Len(t, pkgs, 1)
		assert.Equal(t, "python-nova", pkgs[0].Name())
	})

	t.Run("no_releases", func(t *testing.T) {
		_, err := getInfo(t, "testdata/info/extra", "extra.yml", GetInfoInput{})
		var sec *MissingRequiredSectionError
		require.ErrorAs(t, err, &sec)
		assert.Equal(t, "releases", sec.Section)
	})
}

func TestNew(t *testing.T) {
	_, err := New(DistroInfoInput{InfoFiles: InfoFiles("info.yml")})
	assert.Equal(t, ErrSourceRequired, err)

	src := NewLocalSource("testdata/info/minimal")
	di, err := New(DistroInfoInput{InfoFiles: InfoFiles("minimal.yml"), Source: src})
	require.NoError(t, err)
	assert.Equal(t, src, di.Source())

	docs, err := di.FetchRaw(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
