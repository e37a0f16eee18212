// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stages

import (
	"math"
	"slices"
	"strings"

	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
)

// Placeholder extensions for outputs that were not given a path.
const (
	VectorExt = ".gpkg"
	RasterExt = ".tif"
)

// builder accumulates one stage; the first error sticks.
type builder struct {
	s   *stage.Stage
	err error
}

func build(algoname string, opts ...stage.Option) *builder {
	s, err := stage.New(algoname, opts...)
	return &builder{s: s, err: err}
}

func (b *builder) set(key string, v argval.Value) *builder {
	if b.err == nil {
		b.s.SetArg(key, v)
	}
	return b
}

func (b *builder) connect(role string, target *stage.Stage) *builder {
	if b.err == nil {
		b.s.Connect(role, target)
	}
	return b
}

func (b *builder) pipeline() (*pipeline.Pipeline, error) {
	if b.err != nil {
		return nil, b.err
	}
	return pipeline.New(b.s), nil
}

// outputOr uses ofile when given, otherwise a placeholder with ext.
func outputOr(ofile, ext string) stage.Option {
	if ofile != "" {
		return stage.WithOutput(ofile)
	}
	return stage.WithPlaceholder(ext)
}

func check(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return lasrerr.InvalidArgument("%s must be finite, got %v", name, v)
	}
	return nil
}

func positive(name string, v float64) error {
	if err := finite(name, v); err != nil {
		return err
	}
	if v <= 0 {
		return lasrerr.InvalidArgument("%s must be positive, got %v", name, v)
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if err := finite(name, v); err != nil {
		return err
	}
	if v < 0 {
		return lasrerr.InvalidArgument("%s must be >= 0, got %v", name, v)
	}
	return nil
}

func notEmpty(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return lasrerr.InvalidArgument("%s must not be empty", name)
	}
	return nil
}

func oneOf(name, v string, choices ...string) error {
	if !slices.Contains(choices, v) {
		return lasrerr.InvalidArgument("%s must be one of %s, got %q", name, strings.Join(choices, ", "), v)
	}
	return nil
}

func classCode(name string, v int) error {
	if v < 0 || v > 255 {
		return lasrerr.InvalidArgument("%s must be a classification code in [0, 255], got %d", name, v)
	}
	return nil
}

func allFinite(name string, vs []float64) error {
	for _, v := range vs {
		if err := finite(name, v); err != nil {
			return err
		}
	}
	return nil
}

// upstream resolves src to the single stage a consumer connects to and
// checks it is one of the accepted kinds or algonames.
func upstream(param string, src stage.Source, kinds []stage.Kind, algonames ...string) (*stage.Stage, error) {
	if src == nil {
		return nil, lasrerr.InvalidArgument("%s is required", param)
	}
	s, err := src.Single()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, lasrerr.InvalidArgument("%s is required", param)
	}
	if slices.Contains(kinds, s.Kind()) || slices.Contains(algonames, s.Algoname()) {
		return s, nil
	}

	var want []string
	for _, k := range kinds {
		want = append(want, "a "+k.String())
	}
	for _, a := range algonames {
		want = append(want, "a "+a)
	}
	return nil, lasrerr.TypeMismatch("%s must be %s stage, got %s (%s)",
		param, strings.Join(want, " or "), s.Algoname(), s.Kind())
}
