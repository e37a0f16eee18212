package integrationtests

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/lasrgo/internal/hclconfig"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
	"github.com/vk/lasrgo/internal/stages"
	"github.com/vk/lasrgo/internal/testutil"
)

// ignoreIdentity drops the fields that change whenever a pipeline is
// rebuilt with fresh stage ids.
var ignoreIdentity = cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
	return k == stage.FieldUID || stage.IsRole(k)
})

func dtmPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	sor, err := stages.ClassifyWithSOR(8, 6, 18)
	require.NoError(t, err)
	dtm, err := stages.DTM(1, "")
	require.NoError(t, err)
	p := pipeline.Concat(sor, dtm)
	require.NoError(t, p.SetConcurrentPoints(2))
	require.NoError(t, p.SetBuffer(5))
	return p
}

func documentOf(t *testing.T, p *pipeline.Pipeline) []byte {
	t.Helper()
	final, err := p.Finalize()
	require.NoError(t, err)
	doc, err := final.ToJSON()
	require.NoError(t, err)
	return doc
}

// assertSameStages compares the stages the builder produced with the ones
// the engine received, skipping the catalog in front and the writer the
// app appends.
func assertSameStages(t *testing.T, built, sent []map[string]any) {
	t.Helper()
	require.Len(t, sent, len(built)+2)
	got := sent[1 : len(sent)-1]
	if diff := cmp.Diff(built, got, ignoreIdentity); diff != "" {
		t.Errorf("dispatched stages mismatch (-built +sent):\n%s", diff)
	}
}

func TestJSONPipeline_RebuiltLikeTheBuilder(t *testing.T) {
	doc := documentOf(t, dtmPipeline(t))
	built := testutil.DecodeStages(t, doc)

	eng := &testutil.RecordingEngine{}
	result := testutil.RunIntegrationTest(t, map[string]string{
		"dtm.json": string(doc),
		"a.las":    "",
	}, eng, "dtm.json", "a.las")
	require.NoError(t, result.Err)

	docs := eng.ProcessDocs()
	require.Len(t, docs, 1)
	sent := testutil.DecodeStages(t, docs[0])
	assertSameStages(t, built, sent)

	// reader_las, classify_with_sor, triangulate, rasterize
	testutil.AssertConnected(t, sent, 4, "connect", 3)

	desc, err := pipeline.FromJSON(docs[0])
	require.NoError(t, err)
	assert.Equal(t, pipeline.Cores{2, 0}, desc.Processing.NCores)
	assert.Equal(t, 5.0, desc.Processing.Buffer)
}

func TestHCLWrite_RunsLikeTheBuilder(t *testing.T) {
	p := dtmPipeline(t)
	built := testutil.DecodeStages(t, documentOf(t, p))

	src, err := hclconfig.Write(p)
	require.NoError(t, err)

	eng := &testutil.RecordingEngine{}
	result := testutil.RunIntegrationTest(t, map[string]string{
		"dtm.hcl": string(src),
		"a.las":   "",
	}, eng, "dtm.hcl", "a.las")
	require.NoError(t, result.Err)

	docs := eng.ProcessDocs()
	require.Len(t, docs, 1)
	sent := testutil.DecodeStages(t, docs[0])
	assertSameStages(t, built, sent)
	testutil.AssertConnected(t, sent, 4, "connect", 3)
}
