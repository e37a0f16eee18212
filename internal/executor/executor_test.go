package executor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/lasrgo/internal/engine"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/metrics"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
	"github.com/vk/lasrgo/internal/stages"
)

// fakeEngine records the documents it is sent and answers with canned values.
type fakeEngine struct {
	mu   sync.Mutex
	docs [][]byte

	resp *engine.Response
	info *engine.Info
	err  error
}

func (f *fakeEngine) record(doc []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, append([]byte(nil), doc...))
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func (f *fakeEngine) lastDoc(t *testing.T) *pipeline.Descriptor {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.docs)
	desc, err := pipeline.FromJSON(f.docs[len(f.docs)-1])
	require.NoError(t, err)
	return desc
}

func (f *fakeEngine) Process(ctx context.Context, doc []byte) (*engine.Response, error) {
	f.record(doc)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeEngine) Info(ctx context.Context, doc []byte) (*engine.Info, error) {
	f.record(doc)
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func inputDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("LASF"), 0o644))
	}
	return dir
}

func sorPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	sor, err := stages.ClassifyWithSOR(8, 6, 18)
	require.NoError(t, err)
	out, err := stages.WriteLAS(filepath.Join(t.TempDir(), "*_denoised.las"), "", false)
	require.NoError(t, err)
	return pipeline.Concat(sor, out)
}

func newExecutor(t *testing.T, eng engine.Engine) (*Executor, *metrics.Executions) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return New(eng, WithRegistry(stages.NewRegistry()), WithMetrics(m), WithConfigDir(t.TempDir())), m
}

func outcomes(m *metrics.Executions, op string, outcome metrics.Outcome) float64 {
	return testutil.ToFloat64(m.Total.WithLabelValues(op, string(outcome)))
}

func TestExecute_Success(t *testing.T) {
	eng := &fakeEngine{resp: &engine.Response{
		Success: true,
		Data:    []map[string]any{{"write_las": []any{"/out/a_denoised.las"}}},
	}}
	exec, m := newExecutor(t, eng)
	dir := inputDir(t, "b.laz", "a.las", "notes.txt")
	p := sorPipeline(t)

	res, err := exec.Execute(context.Background(), p, dir)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Empty(t, res.Message)
	assert.NoError(t, res.Failure())
	require.Len(t, res.Data, 1)
	assert.Contains(t, res.Data[0], "write_las")

	kept, err := os.ReadFile(res.JSONConfig)
	require.NoError(t, err, "the dispatched document is kept on disk")
	assert.Equal(t, eng.docs[0], kept)

	desc := eng.lastDoc(t)
	assert.Equal(t, []string{pipeline.CatalogAlgoname, pipeline.ReaderAlgoname, "classify_with_sor", "write_las"}, desc.Names())

	assert.Empty(t, p.Files(), "the caller's pipeline is not modified")
	assert.Equal(t, 1.0, outcomes(m, metrics.OpProcess, metrics.OutcomeSuccess))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}

func TestExecute_DocumentListsResolvedFiles(t *testing.T) {
	eng := &fakeEngine{resp: &engine.Response{Success: true}}
	exec, _ := newExecutor(t, eng)
	dir := inputDir(t, "b.laz", "a.las")
	extra := filepath.Join(inputDir(t, "c.las"), "c.las")

	_, err := exec.Execute(context.Background(), sorPipeline(t), dir, extra, dir)
	require.NoError(t, err)

	var doc struct {
		Pipeline []map[string]any `json:"pipeline"`
	}
	require.NoError(t, json.Unmarshal(eng.docs[0], &doc))
	require.NotEmpty(t, doc.Pipeline)
	catalog := doc.Pipeline[0]
	assert.Equal(t, pipeline.CatalogAlgoname, catalog["algoname"])
	assert.Equal(t, []any{
		filepath.Join(dir, "a.las"),
		filepath.Join(dir, "b.laz"),
		extra,
	}, catalog["files"])
}

func TestExecute_StructuredFailure(t *testing.T) {
	eng := &fakeEngine{resp: &engine.Response{Success: false, Message: "chunk 3: cannot open file"}}
	exec, m := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), sorPipeline(t), inputDir(t, "a.las"))
	require.NoError(t, err, "an engine that answered is not an error")

	assert.False(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Equal(t, "chunk 3: cannot open file", res.Message)
	assert.ErrorIs(t, res.Failure(), lasrerr.ErrStructuredFailure)
	assert.FileExists(t, res.JSONConfig)
	assert.Equal(t, 1.0, outcomes(m, metrics.OpProcess, metrics.OutcomeFailure))

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"data":null,"message":"chunk 3: cannot open file","json_config":"`+res.JSONConfig+`"}`, string(b))
}

func TestExecute_StructuredFailureWithoutMessage(t *testing.T) {
	eng := &fakeEngine{resp: &engine.Response{Success: false}}
	exec, _ := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), sorPipeline(t), inputDir(t, "a.las"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Message)
}

func TestExecute_SuccessOmitsMessage(t *testing.T) {
	eng := &fakeEngine{resp: &engine.Response{Success: true, Data: []map[string]any{}}}
	exec, _ := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), sorPipeline(t), inputDir(t, "a.las"))
	require.NoError(t, err)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"message"`)
}

func TestExecute_TransportErrorIsEngineFailure(t *testing.T) {
	eng := &fakeEngine{err: errors.New("connection reset by peer")}
	exec, m := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), sorPipeline(t), inputDir(t, "a.las"))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, lasrerr.ErrEngineFailure)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Equal(t, 1.0, outcomes(m, metrics.OpProcess, metrics.OutcomeError))
}

func TestExecute_EmptyAnswerIsEngineFailure(t *testing.T) {
	exec, m := newExecutor(t, &fakeEngine{})

	res, err := exec.Execute(context.Background(), sorPipeline(t), inputDir(t, "a.las"))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, lasrerr.ErrEngineFailure)
	assert.Contains(t, err.Error(), "no answer")
	assert.Equal(t, 1.0, outcomes(m, metrics.OpProcess, metrics.OutcomeError))
}

func TestExecute_EngineFailureNotWrappedTwice(t *testing.T) {
	eng := &fakeEngine{err: lasrerr.EngineFailure("process", errors.New("exit status 2"))}
	exec, _ := newExecutor(t, eng)

	_, err := exec.Execute(context.Background(), sorPipeline(t), inputDir(t, "a.las"))
	require.Error(t, err)
	assert.Equal(t, eng.err, err)
}

func TestExecute_InputErrorsBeforeDispatch(t *testing.T) {
	testCases := []struct {
		name    string
		inputs  func(t *testing.T) []string
		wantErr error
	}{
		{
			name: "missing path",
			inputs: func(t *testing.T) []string {
				return []string{filepath.Join(t.TempDir(), "nope")}
			},
			wantErr: lasrerr.ErrPathNotFound,
		},
		{
			name: "directory without point clouds",
			inputs: func(t *testing.T) []string {
				return []string{inputDir(t, "readme.md")}
			},
			wantErr: lasrerr.ErrNoInputFiles,
		},
		{
			name:    "no inputs",
			inputs:  func(t *testing.T) []string { return nil },
			wantErr: lasrerr.ErrNoInputFiles,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			eng := &fakeEngine{resp: &engine.Response{Success: true}}
			exec, m := newExecutor(t, eng)

			res, err := exec.Execute(context.Background(), sorPipeline(t), tc.inputs(t)...)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Zero(t, eng.calls(), "the engine must not be called")
			assert.Equal(t, 1.0, outcomes(m, metrics.OpProcess, metrics.OutcomeRejected))
		})
	}
}

func TestExecute_RejectsInvalidPipeline(t *testing.T) {
	focal, err := stage.New("focal", stage.WithKind(stage.KindRaster))
	require.NoError(t, err)

	eng := &fakeEngine{resp: &engine.Response{Success: true}}
	exec, m := newExecutor(t, eng)

	_, err = exec.Execute(context.Background(), pipeline.New(focal), inputDir(t, "a.las"))
	require.Error(t, err)
	assert.ErrorIs(t, err, lasrerr.ErrInvalidArgument)
	assert.Contains(t, err.Error(), `requires a "connect" connection`)
	assert.Zero(t, eng.calls())
	assert.Equal(t, 1.0, outcomes(m, metrics.OpProcess, metrics.OutcomeRejected))
}

func TestExecute_WithoutRegistrySkipsValidation(t *testing.T) {
	focal, err := stage.New("focal", stage.WithKind(stage.KindRaster))
	require.NoError(t, err)

	eng := &fakeEngine{resp: &engine.Response{Success: true}}
	exec := New(eng, WithConfigDir(t.TempDir()))

	_, err = exec.Execute(context.Background(), pipeline.New(focal), inputDir(t, "a.las"))
	require.NoError(t, err)
	assert.Equal(t, 1, eng.calls())
}

func TestExecute_CancelledContext(t *testing.T) {
	eng := &fakeEngine{resp: &engine.Response{Success: true}}
	exec, m := newExecutor(t, eng)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, sorPipeline(t), inputDir(t, "a.las"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, eng.calls())
	assert.Equal(t, 1.0, outcomes(m, metrics.OpProcess, metrics.OutcomeCancelled))
}

// cancellingEngine cancels the execution while it is being dispatched.
type cancellingEngine struct {
	fakeEngine
	cancel context.CancelFunc
}

func (c *cancellingEngine) Process(ctx context.Context, doc []byte) (*engine.Response, error) {
	c.record(doc)
	c.cancel()
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExecute_CancelledDuringDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng := &cancellingEngine{cancel: cancel}
	exec, m := newExecutor(t, eng)

	_, err := exec.Execute(ctx, sorPipeline(t), inputDir(t, "a.las"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, lasrerr.ErrEngineFailure)
	assert.Equal(t, 1.0, outcomes(m, metrics.OpProcess, metrics.OutcomeCancelled))
}

func TestInfo(t *testing.T) {
	eng := &fakeEngine{info: &engine.Info{Streamable: true, ReadPoints: true, Buffer: 0}}
	exec, m := newExecutor(t, eng)

	info, err := exec.Info(context.Background(), sorPipeline(t))
	require.NoError(t, err)
	assert.True(t, info.Streamable)

	desc := eng.lastDoc(t)
	assert.Equal(t, []string{pipeline.ReaderAlgoname, "classify_with_sor", "write_las"}, desc.Names(),
		"no files means no catalog stage")
	assert.Equal(t, 1.0, outcomes(m, metrics.OpInfo, metrics.OutcomeSuccess))
}

func TestInfo_TransportError(t *testing.T) {
	eng := &fakeEngine{err: errors.New("broken pipe")}
	exec, m := newExecutor(t, eng)

	_, err := exec.Info(context.Background(), sorPipeline(t))
	assert.ErrorIs(t, err, lasrerr.ErrEngineFailure)
	assert.Equal(t, 1.0, outcomes(m, metrics.OpInfo, metrics.OutcomeError))
}

func TestInfo_EmptyAnswerIsEngineFailure(t *testing.T) {
	exec, m := newExecutor(t, &fakeEngine{})

	info, err := exec.Info(context.Background(), sorPipeline(t))
	assert.Nil(t, info)
	assert.ErrorIs(t, err, lasrerr.ErrEngineFailure)
	assert.Equal(t, 1.0, outcomes(m, metrics.OpInfo, metrics.OutcomeError))
}

func TestSubmit(t *testing.T) {
	eng := &fakeEngine{resp: &engine.Response{Success: true, Data: []map[string]any{{"info": "ok"}}}}
	exec, _ := newExecutor(t, eng)
	p := sorPipeline(t)

	ch := exec.Submit(context.Background(), p, inputDir(t, "a.las"))
	p.SetVerbose(true)

	out, ok := <-ch
	require.True(t, ok)
	require.NoError(t, out.Err)
	assert.True(t, out.Result.Success)

	_, ok = <-ch
	assert.False(t, ok, "the channel is closed after the single outcome")
}

func TestSubmit_Error(t *testing.T) {
	eng := &fakeEngine{resp: &engine.Response{Success: true}}
	exec, _ := newExecutor(t, eng)

	out := <-exec.Submit(context.Background(), sorPipeline(t), filepath.Join(t.TempDir(), "missing"))
	assert.Nil(t, out.Result)
	assert.ErrorIs(t, out.Err, lasrerr.ErrPathNotFound)
}

func TestSubmit_Concurrent(t *testing.T) {
	eng := &fakeEngine{resp: &engine.Response{Success: true}}
	exec, m := newExecutor(t, eng)
	dir := inputDir(t, "a.las")

	const n = 8
	chans := make([]<-chan Outcome, n)
	for i := range chans {
		chans[i] = exec.Submit(context.Background(), sorPipeline(t), dir)
	}
	for _, ch := range chans {
		out := <-ch
		require.NoError(t, out.Err)
	}
	assert.Equal(t, n, eng.calls())
	assert.Equal(t, float64(n), outcomes(m, metrics.OpProcess, metrics.OutcomeSuccess))
}
