package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/lasrgo/internal/cli"
	"github.com/vk/lasrgo/internal/lasrerr"
)

const infoEngine = `#!/bin/sh
case "$1" in
info)
  echo '{"streamable":true,"read_points":false,"buffer":0,"parallelizable":true,"parallelized":false,"R_API":false}'
  ;;
*)
  echo '{"success":false,"message":"not supported by this engine"}'
  ;;
esac
`

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_MissingPipeline(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "missing.hcl")
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--engine-bin", "lasr-engine", missing})

	require.Error(t, err)
	assert.ErrorIs(t, err, lasrerr.ErrPathNotFound)
}

func TestRun_InvalidPipelineFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`stage "classify_with_sor" "sor" {`), 0o600))

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--engine-bin", "lasr-engine", path})
	require.Error(t, err)
	assert.ErrorIs(t, err, lasrerr.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "failed to load pipeline")
}

func TestRun_InspectWithSubprocessEngine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("the fake engine is a shell script")
	}
	t.Parallel()

	dir := t.TempDir()
	engineBin := filepath.Join(dir, "engine.sh")
	require.NoError(t, os.WriteFile(engineBin, []byte(infoEngine), 0o755))
	pipelinePath := filepath.Join(dir, "info.hcl")
	require.NoError(t, os.WriteFile(pipelinePath, []byte(`stage "info" "summary" {}`+"\n"), 0o600))

	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{
		"--engine-bin", engineBin,
		"--config-dir", dir,
		pipelinePath,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Streamable:              true")
	assert.Contains(t, out.String(), "INSPECTION MODE")
}
