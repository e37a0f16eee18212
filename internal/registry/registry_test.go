package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
)

type testModule struct{}

func (testModule) Register(r *Registry) {
	r.Define(Definition{Algoname: "reader_las", Reader: true})
	r.Define(Definition{Algoname: "load_raster", Output: stage.KindRaster, PointData: Never})
	r.Define(Definition{Algoname: "triangulate", Output: stage.KindVector})
	r.Define(Definition{Algoname: "nothing", PointData: WhenArg("read")})
	r.Define(Definition{
		Algoname:  "local_maximum",
		Output:    stage.KindVector,
		PointData: UnlessConnected,
		Roles:     []Role{{Name: stage.RoleConnect, Kinds: []stage.Kind{stage.KindRaster}, Optional: true}},
	})
	r.Define(Definition{
		Algoname: "transform_with",
		Roles: []Role{{
			Name:      stage.RoleConnect,
			Kinds:     []stage.Kind{stage.KindRaster},
			Algonames: []string{"triangulate"},
		}},
	})
}

func newStage(t *testing.T, algoname string, opts ...stage.Option) *stage.Stage {
	t.Helper()
	s, err := stage.New(algoname, opts...)
	require.NoError(t, err)
	return s
}

func TestDefine_DuplicatePanics(t *testing.T) {
	r := New(testModule{})
	assert.Panics(t, func() { r.Define(Definition{Algoname: "triangulate"}) })
	assert.Panics(t, func() { r.Define(Definition{}) })
}

func TestLookupAndAlgonames(t *testing.T) {
	r := New(testModule{})
	def, ok := r.Lookup("load_raster")
	require.True(t, ok)
	assert.Equal(t, stage.KindRaster, def.Output)

	_, ok = r.Lookup("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{"load_raster", "local_maximum", "nothing", "reader_las", "transform_with", "triangulate"}, r.Algonames())
}

func TestRequiresPointData(t *testing.T) {
	r := New(testModule{})

	raster := newStage(t, "load_raster", stage.WithKind(stage.KindRaster))
	lm := newStage(t, "local_maximum")
	lm.Connect(stage.RoleConnect, raster)
	assert.False(t, r.RequiresPointData([]*stage.Stage{raster, lm}), "raster-based local maximum reads no points")

	idle := newStage(t, "nothing")
	idle.SetArg("read", argval.Bool(false))
	assert.False(t, r.RequiresPointData([]*stage.Stage{idle}))

	idle.SetArg("read", argval.Bool(true))
	assert.True(t, r.RequiresPointData([]*stage.Stage{idle}))

	assert.True(t, r.RequiresPointData([]*stage.Stage{newStage(t, "local_maximum")}))
	assert.True(t, r.RequiresPointData([]*stage.Stage{newStage(t, "mystery")}), "unknown kinds are assumed to read points")
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	r := New(testModule{})

	t.Run("accepted by algoname", func(t *testing.T) {
		tin := newStage(t, "triangulate", stage.WithKind(stage.KindVector))
		tw := newStage(t, "transform_with")
		tw.Connect(stage.RoleConnect, tin)
		assert.NoError(t, r.Validate(ctx, pipeline.New(tin, tw)))
	})

	t.Run("wrong kind", func(t *testing.T) {
		lm := newStage(t, "local_maximum", stage.WithKind(stage.KindVector))
		tw := newStage(t, "transform_with")
		tw.Connect(stage.RoleConnect, lm)

		err := r.Validate(ctx, pipeline.New(lm, tw))
		require.Error(t, err)
		assert.True(t, errors.Is(err, lasrerr.ErrTypeMismatch))
		assert.Contains(t, err.Error(), "a raster stage or a triangulate stage")
	})

	t.Run("missing required role", func(t *testing.T) {
		err := r.Validate(ctx, pipeline.New(newStage(t, "transform_with")))
		assert.ErrorIs(t, err, lasrerr.ErrInvalidArgument)
	})

	t.Run("undeclared role", func(t *testing.T) {
		raster := newStage(t, "load_raster", stage.WithKind(stage.KindRaster))
		tin := newStage(t, "triangulate", stage.WithKind(stage.KindVector))
		tin.Connect(stage.RoleConnect1, raster)
		assert.ErrorIs(t, r.Validate(ctx, pipeline.New(raster, tin)), lasrerr.ErrInvalidArgument)
	})

	t.Run("several problems are all reported", func(t *testing.T) {
		lm := newStage(t, "local_maximum", stage.WithKind(stage.KindVector))
		bad := newStage(t, "transform_with")
		bad.Connect(stage.RoleConnect, lm)
		missing := newStage(t, "transform_with")

		err := r.Validate(ctx, pipeline.New(lm, bad, missing))
		require.Error(t, err)
		assert.ErrorIs(t, err, lasrerr.ErrTypeMismatch)
		assert.ErrorIs(t, err, lasrerr.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "pipeline validation failed:")
	})

	t.Run("unresolved connection", func(t *testing.T) {
		tin := newStage(t, "triangulate", stage.WithKind(stage.KindVector))
		tw := newStage(t, "transform_with")
		tw.Connect(stage.RoleConnect, tin)
		assert.ErrorIs(t, r.Validate(ctx, pipeline.New(tw)), lasrerr.ErrUnresolvedConnection)
	})

	t.Run("unknown stages pass", func(t *testing.T) {
		assert.NoError(t, r.Validate(ctx, pipeline.New(newStage(t, "mystery"))))
	})
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	r := New(testModule{})

	tin := newStage(t, "triangulate", stage.WithKind(stage.KindVector), stage.WithFilter("-keep_class 2"))
	tin.SetArg("max_edge", argval.Float(0))
	tw := newStage(t, "transform_with")
	tw.Connect(stage.RoleConnect, tin)
	tw.SetArg("operator", argval.String("-"))

	src := pipeline.New(tin, tw)
	require.NoError(t, src.SetConcurrentFiles(3))
	require.NoError(t, src.SetBuffer(5))
	src.SetFiles([]string{"a.las", "b.las"})
	final, err := src.Finalize()
	require.NoError(t, err)
	doc, err := final.ToJSON()
	require.NoError(t, err)

	desc, err := pipeline.FromJSON(doc)
	require.NoError(t, err)
	got, err := r.Rebuild(ctx, desc)
	require.NoError(t, err)

	assert.Equal(t, []string{"reader_las", "triangulate", "transform_with"}, got.Names())
	assert.Equal(t, []string{"a.las", "b.las"}, got.Files())
	assert.Equal(t, pipeline.ConcurrentFiles, got.Strategy())
	assert.Equal(t, 5.0, got.Processing().Buffer)

	stages := got.Stages()
	assert.NotEqual(t, tin.ID(), stages[1].ID(), "ids are fresh")
	assert.Equal(t, stage.KindVector, stages[1].Kind())
	assert.Equal(t, "-keep_class 2", stages[1].Filter())

	conns := stages[2].Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, stages[1].ID(), conns[0].Target, "connection is remapped")
	assert.NoError(t, r.Validate(ctx, got))
}

func TestRebuild_ConsumerBeforeSource(t *testing.T) {
	doc := `{"pipeline": [
	  {"algoname": "transform_with", "uid": "bbbbbbbb", "connect": "aaaaaaaa"},
	  {"algoname": "triangulate", "uid": "aaaaaaaa"}
	]}`
	desc, err := pipeline.FromJSON([]byte(doc))
	require.NoError(t, err)

	got, err := New(testModule{}).Rebuild(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"transform_with", "triangulate"}, got.Names(), "document order is kept")
	assert.Equal(t, got.Stages()[1].ID(), got.Stages()[0].Connections()[0].Target)
}

func TestRebuild_Errors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		want error
	}{
		{"dangling", `{"pipeline": [{"algoname": "transform_with", "uid": "b", "connect": "zz"}]}`, lasrerr.ErrUnresolvedConnection},
		{"duplicate uid", `{"pipeline": [{"algoname": "info", "uid": "a"}, {"algoname": "info", "uid": "a"}]}`, lasrerr.ErrInvalidArgument},
		{"cycle", `{"pipeline": [{"algoname": "x", "uid": "a", "connect": "b"}, {"algoname": "y", "uid": "b", "connect": "a"}]}`, lasrerr.ErrInvalidArgument},
		{"nested without inner cores", `{"processing": {"strategy": "nested", "ncores": [2]}, "pipeline": []}`, lasrerr.ErrInvalidArgument},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			desc, err := pipeline.FromJSON([]byte(tc.doc))
			require.NoError(t, err)
			_, err = New(testModule{}).Rebuild(context.Background(), desc)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
