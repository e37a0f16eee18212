// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stages

import (
	"path/filepath"

	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
)

// RasterNoData is the value written to empty raster cells by default.
const RasterNoData = -99999

// Rasterize computes one band per operator on a grid of resolution res.
// window is the size of the moving window each pixel is computed from; zero
// uses the pixel itself.
func Rasterize(res, window float64, operators []string, filter, ofile string) (*pipeline.Pipeline, error) {
	if window == 0 {
		window = res
	}
	if err := check(positive("res", res), positive("window", window)); err != nil {
		return nil, err
	}
	if len(operators) == 0 {
		return nil, lasrerr.InvalidArgument("at least one operator is required")
	}
	for _, op := range operators {
		if err := notEmpty("operator", op); err != nil {
			return nil, err
		}
	}
	return build("rasterize", stage.WithKind(stage.KindRaster), stage.WithFilter(filter), outputOr(ofile, RasterExt)).
		set("res", argval.Float(res)).
		set("window", argval.Float(window)).
		set("method", argval.Strings(operators...)).
		set("default_value", argval.Float(RasterNoData)).
		pipeline()
}

// LoadRaster makes a band of an existing raster file available to later
// stages.
func LoadRaster(file string, band int) (*pipeline.Pipeline, error) {
	if err := notEmpty("file", file); err != nil {
		return nil, err
	}
	if band < 1 {
		return nil, lasrerr.InvalidArgument("band must be >= 1, got %d", band)
	}
	return build("load_raster", stage.WithKind(stage.KindRaster)).
		set("file", argval.String(filepath.Clean(file))).
		set("band", argval.Int(band)).
		pipeline()
}

// LoadMatrix makes a 4x4 transformation matrix, given row by row, available
// to later stages. check asks the engine to verify it is a rigid transform.
func LoadMatrix(matrix []float64, check bool) (*pipeline.Pipeline, error) {
	if len(matrix) != 16 {
		return nil, lasrerr.InvalidArgument("matrix must have 16 values (4x4), got %d", len(matrix))
	}
	if err := allFinite("matrix", matrix); err != nil {
		return nil, err
	}
	return build("load_matrix", stage.WithKind(stage.KindMatrix)).
		set("matrix", argval.Floats(matrix...)).
		set("check", argval.Bool(check)).
		pipeline()
}

// LocalMaximumParams holds the parameters of a point based local maximum search.
type LocalMaximumParams struct {
	WS               float64
	MinHeight        float64
	Filter           string
	Output           string
	UseAttribute     string
	RecordAttributes bool
}

// DefaultLocalMaximum returns the engine defaults for window size ws.
func DefaultLocalMaximum(ws float64) LocalMaximumParams {
	return LocalMaximumParams{WS: ws, MinHeight: 2, UseAttribute: "Z"}
}

// LocalMaximum finds the local maxima of the point cloud, typically tree
// tops, and writes them as a vector layer.
func LocalMaximum(p LocalMaximumParams) (*pipeline.Pipeline, error) {
	if p.UseAttribute == "" {
		p.UseAttribute = "Z"
	}
	if err := check(positive("ws", p.WS), finite("min_height", p.MinHeight)); err != nil {
		return nil, err
	}
	return build("local_maximum", stage.WithKind(stage.KindVector), stage.WithFilter(p.Filter), outputOr(p.Output, VectorExt)).
		set("ws", argval.Float(p.WS)).
		set("min_height", argval.Float(p.MinHeight)).
		set("use_attribute", argval.String(p.UseAttribute)).
		set("record_attributes", argval.Bool(p.RecordAttributes)).
		pipeline()
}

// Triangulate builds a Delaunay triangulation of the points. Edges longer
// than maxEdge are dropped when maxEdge is positive. The mesh stays in
// memory unless ofile is given.
func Triangulate(maxEdge float64, filter, ofile, useAttribute string) (*pipeline.Pipeline, error) {
	if useAttribute == "" {
		useAttribute = "Z"
	}
	if err := nonNegative("max_edge", maxEdge); err != nil {
		return nil, err
	}
	opts := []stage.Option{stage.WithKind(stage.KindVector), stage.WithFilter(filter)}
	if ofile != "" {
		opts = append(opts, stage.WithOutput(ofile))
	}
	return build("triangulate", opts...).
		set("max_edge", argval.Float(maxEdge)).
		set("use_attribute", argval.String(useAttribute)).
		pipeline()
}

// Hull computes the bounding polygon of each file.
func Hull(ofile string) (*pipeline.Pipeline, error) {
	return build("hulls", stage.WithKind(stage.KindVector), outputOr(ofile, VectorExt)).pipeline()
}

// Info reports header information of the input files.
func Info() (*pipeline.Pipeline, error) {
	return build("info").pipeline()
}

// Summarise computes point statistics and histograms with bin widths zwbin
// and iwbin for elevation and intensity.
func Summarise(zwbin, iwbin float64, metrics []string, filter string) (*pipeline.Pipeline, error) {
	if err := check(positive("zwbin", zwbin), positive("iwbin", iwbin)); err != nil {
		return nil, err
	}
	return build("summarise", stage.WithFilter(filter)).
		set("zwbin", argval.Float(zwbin)).
		set("iwbin", argval.Float(iwbin)).
		set("metrics", argval.Strings(metrics...)).
		pipeline()
}

// Nothing does nothing. It is used to test the engine and to force reading
// (read), streaming (stream) or looping over the points (loop).
func Nothing(read, stream, loop bool) (*pipeline.Pipeline, error) {
	return build("nothing").
		set("read", argval.Bool(read)).
		set("stream", argval.Bool(stream)).
		set("loop", argval.Bool(loop)).
		pipeline()
}
