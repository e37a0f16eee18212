// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stages

import (
	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
)

// ReaderCoverage reads every point of the input files.
func ReaderCoverage(filter string) (*pipeline.Pipeline, error) {
	return build(pipeline.ReaderAlgoname, stage.WithFilter(filter)).pipeline()
}

// ReaderCircles reads only the points inside the given discs. A single
// radius is applied to every disc.
func ReaderCircles(xc, yc, r []float64, filter string) (*pipeline.Pipeline, error) {
	if len(xc) == 0 {
		return nil, lasrerr.InvalidArgument("at least one circle is required")
	}
	if len(xc) != len(yc) {
		return nil, lasrerr.InvalidArgument("xc and yc length mismatch (%d != %d)", len(xc), len(yc))
	}
	switch len(r) {
	case 1:
		radius := r[0]
		r = make([]float64, len(xc))
		for i := range r {
			r[i] = radius
		}
	case len(xc):
	default:
		return nil, lasrerr.InvalidArgument("xc and r length mismatch (%d != %d); r must be a single value or one per circle", len(xc), len(r))
	}
	if err := check(allFinite("xc", xc), allFinite("yc", yc), allFinite("r", r)); err != nil {
		return nil, err
	}
	for _, v := range r {
		if err := positive("r", v); err != nil {
			return nil, err
		}
	}

	return build(pipeline.ReaderAlgoname, stage.WithFilter(filter)).
		set("xcenter", argval.Floats(xc...)).
		set("ycenter", argval.Floats(yc...)).
		set("radius", argval.Floats(r...)).
		pipeline()
}

// ReaderRectangles reads only the points inside the given rectangles.
func ReaderRectangles(xmin, ymin, xmax, ymax []float64, filter string) (*pipeline.Pipeline, error) {
	n := len(xmin)
	if len(ymin) != n || len(xmax) != n || len(ymax) != n {
		return nil, lasrerr.InvalidArgument("xmin, ymin, xmax and ymax length mismatch (%d, %d, %d, %d)",
			len(xmin), len(ymin), len(xmax), len(ymax))
	}
	if n == 0 {
		return nil, lasrerr.InvalidArgument("at least one rectangle is required")
	}
	if err := check(allFinite("xmin", xmin), allFinite("ymin", ymin), allFinite("xmax", xmax), allFinite("ymax", ymax)); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if xmin[i] > xmax[i] || ymin[i] > ymax[i] {
			return nil, lasrerr.InvalidArgument("rectangle %d has min greater than max", i)
		}
	}

	return build(pipeline.ReaderAlgoname, stage.WithFilter(filter)).
		set("xmin", argval.Floats(xmin...)).
		set("ymin", argval.Floats(ymin...)).
		set("xmax", argval.Floats(xmax...)).
		set("ymax", argval.Floats(ymax...)).
		pipeline()
}
