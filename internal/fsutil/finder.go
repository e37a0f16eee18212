// Package fsutil turns the paths a user passes on the command line into the
// flat list of point-cloud files the engine reads.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vk/lasrgo/internal/lasrerr"
)

// PointCloudExtensions are the suffixes, compared case-insensitively, of the
// files a directory contributes. A .copc.laz file is a .laz file.
var PointCloudExtensions = []string{".las", ".laz"}

// IsPointCloud reports whether name has one of the PointCloudExtensions.
func IsPointCloud(name string) bool {
	return slices.Contains(PointCloudExtensions, strings.ToLower(filepath.Ext(name)))
}

// FindPointClouds lists the point-cloud files directly inside dir, sorted by
// name. Subdirectories are not searched.
func FindPointClouds(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsPointCloud(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// ResolveInputs expands paths into a deduplicated list of files, keeping the
// order in which they were first seen. A directory contributes its
// point-cloud files; a file is kept whatever its extension. A path that does
// not exist fails with lasrerr.ErrPathNotFound, and a result without any
// file fails with lasrerr.ErrNoInputFiles.
func ResolveInputs(paths ...string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		key := filepath.Clean(p)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, lasrerr.PathNotFound(p, nil)
		}
		if err != nil {
			return nil, lasrerr.PathNotFound(p, err)
		}

		if !info.IsDir() {
			add(p)
			continue
		}
		files, err := FindPointClouds(p)
		if err != nil {
			return nil, lasrerr.PathNotFound(p, err)
		}
		for _, f := range files {
			add(f)
		}
	}

	if len(out) == 0 {
		return nil, lasrerr.NoInputFiles(paths)
	}
	return out, nil
}
