package stage

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/stageid"
)

func mustNew(t *testing.T, algoname string, opts ...Option) *Stage {
	t.Helper()
	s, err := New(algoname, opts...)
	require.NoError(t, err)
	return s
}

func TestNew_RejectsEmptyAlgoname(t *testing.T) {
	for _, name := range []string{"", "   "} {
		_, err := New(name)
		require.Error(t, err)
		assert.True(t, errors.Is(err, lasrerr.ErrInvalidArgument))
	}
}

func TestNew_IdsAreUnique(t *testing.T) {
	const n = 10000
	seen := make(map[stageid.ID]struct{}, n)
	for i := 0; i < n; i++ {
		s := mustNew(t, "nothing")
		require.NotEmpty(t, s.ID())
		seen[s.ID()] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestStage_Defaults(t *testing.T) {
	s := mustNew(t, "classify_with_sor")
	assert.Equal(t, KindNone, s.Kind())
	assert.Empty(t, s.Output())
	assert.Empty(t, s.Filter())
	assert.True(t, s.OutputSpec().IsZero())
}

func TestStage_ArgsKeepInsertionOrder(t *testing.T) {
	s := mustNew(t, "classify_with_sor")
	s.SetArg("k", argval.Int(8))
	s.SetArg("m", argval.Int(6))
	s.SetArg("k", argval.Int(10))

	assert.Equal(t, []string{"k", "m"}, s.Args().Keys())
	v, ok := s.Arg("k")
	require.True(t, ok)
	assert.True(t, argval.Int(10).Equal(v))
	assert.False(t, s.HasArg("class"))
}

func TestStage_PlaceholderIsStable(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	s := mustNew(t, "hulls", WithPlaceholder(".gpkg"), WithKind(KindVector))
	first := s.Output()
	assert.Equal(t, filepath.Join(tmp, "lasr-"+s.ID().String()+".gpkg"), first)
	assert.Equal(t, first, s.Output())
	assert.NoFileExists(t, first, "resolving a placeholder must not create the file")
}

func TestStage_RecordFixedFieldsWin(t *testing.T) {
	s := mustNew(t, "write_las", WithOutput("out.las"), WithFilter("-keep_class 2"))
	s.SetArg("keep_buffer", argval.Bool(false))
	s.SetArg("uid", argval.String("hijack"))
	s.SetArg("output", argval.String("elsewhere.las"))

	rec := s.Record()
	assert.Equal(t, []string{"algoname", "output", "filter", "uid", "keep_buffer"}, rec.Keys())

	uid, _ := rec.Get("uid")
	assert.True(t, argval.String(s.ID().String()).Equal(uid))
	out, _ := rec.Get("output")
	assert.True(t, argval.String("out.las").Equal(out))
}

func TestStage_Connections(t *testing.T) {
	up := mustNew(t, "triangulate", WithKind(KindVector))
	down := mustNew(t, "transform_with")
	down.SetArg("operator", argval.String("-"))
	down.Connect(RoleConnect, up)

	conns := down.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, Connection{Role: RoleConnect, Target: up.ID()}, conns[0])

	v, _ := down.Record().Get(RoleConnect)
	s, ok := v.AsRef()
	require.True(t, ok)
	assert.Equal(t, up.ID(), s)
}

func TestStage_Describe(t *testing.T) {
	s := mustNew(t, "rasterize", WithOutput("chm.tif"), WithKind(KindRaster))
	s.SetArg("res", argval.Float(0.5))
	s.SetArg("method", argval.Strings("max"))

	d := s.Describe()
	assert.True(t, strings.HasPrefix(d, "Stage: rasterize\n"))
	assert.Contains(t, d, "uid:    "+s.ID().String())
	assert.Contains(t, d, "raster: true  vector: false  matrix: false")
	assert.Contains(t, d, "    res = 0.5\n    method = [max]\n")
	assert.Equal(t, d, s.Describe())
	assert.Equal(t, d, s.String())
}

func TestIsFixedFieldAndRole(t *testing.T) {
	assert.True(t, IsFixedField("uid"))
	assert.False(t, IsFixedField("ofile"))
	assert.True(t, IsRole("connect2"))
	assert.False(t, IsRole("connect3"))
}

func TestStage_CloneKeepsIdentity(t *testing.T) {
	s := mustNew(t, "build_catalog")
	s.SetArg("buffer", argval.Float(0))

	c := s.Clone()
	c.SetArg("buffer", argval.Float(10))

	assert.Equal(t, s.ID(), c.ID())
	v, _ := s.Arg("buffer")
	assert.True(t, argval.Float(0).Equal(v))

	single, err := c.Single()
	require.NoError(t, err)
	assert.Same(t, c, single)
}
