package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/lasrgo/internal/ctxlog"
	"github.com/vk/lasrgo/internal/hclconfig"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
)

// LoadPipeline reads a pipeline from an engine document (.json) or a
// pipeline file (.hcl). JSON stages are rebuilt with fresh ids.
func (a *App) LoadPipeline(ctx context.Context, path string) (*pipeline.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		logger.Debug("Loading HCL pipeline.", "path", path)
		return hclconfig.LoadFile(ctx, path, a.registry)
	case ".json":
		logger.Debug("Loading JSON pipeline.", "path", path)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, lasrerr.PathNotFound(path, nil)
		}
		if err != nil {
			return nil, fmt.Errorf("read pipeline %s: %w", path, err)
		}
		desc, err := pipeline.FromJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return a.registry.Rebuild(ctx, desc)
	default:
		return nil, lasrerr.InvalidArgument("pipeline %s: unsupported extension %q, want .json or .hcl", path, ext)
	}
}
