// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stage

import (
	"os"
	"path/filepath"

	"github.com/vk/lasrgo/internal/stageid"
)

// Kind tags what a stage produces. A stage has exactly one kind.
type Kind int

const (
	KindNone Kind = iota
	KindRaster
	KindVector
	KindMatrix
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindRaster:
		return "raster"
	case KindVector:
		return "vector"
	case KindMatrix:
		return "matrix"
	}
	return "unknown"
}

// Output is where a stage writes. It is either empty, an explicit path, or a
// placeholder that only knows its extension.
type Output struct {
	path        string
	ext         string
	placeholder bool
}

// Path returns an explicit output.
func Path(p string) Output { return Output{path: p} }

// Placeholder returns an output that is resolved to a temporary file path
// with extension ext when the stage is serialized.
func Placeholder(ext string) Output { return Output{ext: ext, placeholder: true} }

// IsPlaceholder reports whether o still waits for a concrete path.
func (o Output) IsPlaceholder() bool { return o.placeholder }

// IsZero reports whether o names no output at all.
func (o Output) IsZero() bool { return !o.placeholder && o.path == "" }

// Resolve returns the concrete path for the stage id. A placeholder resolves
// to <tempdir>/lasr-<id><ext>; nothing is created on disk.
func (o Output) Resolve(id stageid.ID) string {
	if !o.placeholder {
		return o.path
	}
	return filepath.Join(os.TempDir(), "lasr-"+id.String()+o.ext)
}
