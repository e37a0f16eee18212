package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/lasrgo/internal/app"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
	// Dir is the root the files were written to.
	Dir string
}

// Path returns the absolute path of a file written by the harness.
func (r *HarnessResult) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// RunIntegrationTest writes files into a temporary directory and runs the
// app on the pipeline file named by pipelineName, with inputs resolved
// relative to the same directory.
func RunIntegrationTest(t *testing.T, files map[string]string, eng *RecordingEngine, pipelineName string, inputs ...string) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, eng, pipelineName, inputs...)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller
// supplied context.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, eng *RecordingEngine, pipelineName string, inputs ...string) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	absInputs := make([]string, len(inputs))
	for i, in := range inputs {
		absInputs[i] = filepath.Join(dir, in)
	}

	cfg, err := app.NewConfig(app.Config{
		PipelinePath: filepath.Join(dir, pipelineName),
		Inputs:       absInputs,
		EngineBin:    "unused",
		OutputDir:    t.TempDir(),
		ConfigDir:    t.TempDir(),
		LogLevel:     "debug",
	})
	require.NoError(t, err)

	out, logs := &app.SafeBuffer{}, &app.SafeBuffer{}
	a := app.NewApp(out, logs, cfg, app.WithEngine(eng))
	t.Cleanup(func() { _ = a.Close() })

	runErr := a.Run(ctx)

	if os.Getenv("LASR_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}

	return &HarnessResult{
		Output:    out.String(),
		LogOutput: logs.String(),
		Err:       runErr,
		App:       a,
		Dir:       dir,
	}
}
