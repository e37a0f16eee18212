// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stages

import (
	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
)

var (
	rasterOnly = []stage.Kind{stage.KindRaster}
	vectorOnly = []stage.Kind{stage.KindVector}
)

// FocalFunctions are the aggregations Focal accepts.
var FocalFunctions = []string{"mean", "median", "min", "max", "sum"}

// TransformOperators are the operators TransformWith accepts.
var TransformOperators = []string{"-", "+"}

// LocalMaximumRaster finds local maxima in a raster produced upstream.
func LocalMaximumRaster(raster stage.Source, ws, minHeight float64, filter, ofile string) (*pipeline.Pipeline, error) {
	src, err := upstream("raster", raster, rasterOnly)
	if err != nil {
		return nil, err
	}
	if err := check(positive("ws", ws), finite("min_height", minHeight)); err != nil {
		return nil, err
	}
	return build("local_maximum", stage.WithKind(stage.KindVector), stage.WithFilter(filter), outputOr(ofile, VectorExt)).
		connect(stage.RoleConnect, src).
		set("ws", argval.Float(ws)).
		set("min_height", argval.Float(minHeight)).
		pipeline()
}

// NeighborhoodMetrics computes metrics on the points around each local
// maximum found upstream, using the k nearest neighbours within radius r.
func NeighborhoodMetrics(maxima stage.Source, metrics []string, k int, r float64, ofile string) (*pipeline.Pipeline, error) {
	src, err := upstream("neighborhood", maxima, nil, "local_maximum")
	if err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, lasrerr.InvalidArgument("at least one metric is required")
	}
	if err := check(positive("k", float64(k)), nonNegative("r", r)); err != nil {
		return nil, err
	}
	return build("neighborhood_metrics", stage.WithKind(stage.KindVector), outputOr(ofile, VectorExt)).
		connect(stage.RoleConnect, src).
		set("k", argval.Int(k)).
		set("r", argval.Float(r)).
		set("metrics", argval.Strings(metrics...)).
		pipeline()
}

// Focal applies a moving window of width size over a raster.
func Focal(raster stage.Source, size float64, fun, ofile string) (*pipeline.Pipeline, error) {
	src, err := upstream("raster", raster, rasterOnly)
	if err != nil {
		return nil, err
	}
	if err := check(positive("size", size), oneOf("fun", fun, FocalFunctions...)); err != nil {
		return nil, err
	}
	return build("focal", stage.WithKind(stage.KindRaster), outputOr(ofile, RasterExt)).
		connect(stage.RoleConnect, src).
		set("size", argval.Float(size)).
		set("fun", argval.String(fun)).
		pipeline()
}

// PitFillParams holds the parameters of the pit filling algorithm.
type PitFillParams struct {
	LapSize   int
	ThrLap    float64
	ThrSpk    float64
	MedSize   int
	DilRadius int
	Output    string
}

// DefaultPitFill returns the engine defaults.
func DefaultPitFill() PitFillParams {
	return PitFillParams{LapSize: 3, ThrLap: 0.1, ThrSpk: -0.1, MedSize: 3}
}

// PitFill removes pits and spikes from a canopy height raster.
func PitFill(raster stage.Source, p PitFillParams) (*pipeline.Pipeline, error) {
	src, err := upstream("raster", raster, rasterOnly)
	if err != nil {
		return nil, err
	}
	err = check(
		positive("lap_size", float64(p.LapSize)),
		positive("med_size", float64(p.MedSize)),
		nonNegative("dil_radius", float64(p.DilRadius)),
		finite("thr_lap", p.ThrLap),
		finite("thr_spk", p.ThrSpk),
	)
	if err != nil {
		return nil, err
	}
	return build("pit_fill", stage.WithKind(stage.KindRaster), outputOr(p.Output, RasterExt)).
		connect(stage.RoleConnect, src).
		set("lap_size", argval.Int(p.LapSize)).
		set("thr_lap", argval.Float(p.ThrLap)).
		set("thr_spk", argval.Float(p.ThrSpk)).
		set("med_size", argval.Int(p.MedSize)).
		set("dil_radius", argval.Int(p.DilRadius)).
		pipeline()
}

// RasterizeTriangulation interpolates a triangulation onto a grid of
// resolution res.
func RasterizeTriangulation(tin stage.Source, res float64, ofile string) (*pipeline.Pipeline, error) {
	src, err := upstream("triangulation", tin, nil, "triangulate")
	if err != nil {
		return nil, err
	}
	if err := positive("res", res); err != nil {
		return nil, err
	}
	return build("rasterize", stage.WithKind(stage.KindRaster), outputOr(ofile, RasterExt)).
		connect(stage.RoleConnect, src).
		set("res", argval.Float(res)).
		set("window", argval.Float(res)).
		set("default_value", argval.Float(RasterNoData)).
		pipeline()
}

// HullTriangulation computes the contour of a triangulation.
func HullTriangulation(tin stage.Source, ofile string) (*pipeline.Pipeline, error) {
	src, err := upstream("triangulation", tin, nil, "triangulate")
	if err != nil {
		return nil, err
	}
	return build("hulls", stage.WithKind(stage.KindVector), outputOr(ofile, VectorExt)).
		connect(stage.RoleConnect, src).
		pipeline()
}

// TransformWith modifies point elevations with a triangulation or raster
// produced upstream, for example to normalise heights. The result replaces Z
// unless storeInAttribute names another attribute.
func TransformWith(src stage.Source, operator, storeInAttribute string, bilinear bool) (*pipeline.Pipeline, error) {
	up, err := upstream("stage", src, rasterOnly, "triangulate")
	if err != nil {
		return nil, err
	}
	if err := oneOf("operator", operator, TransformOperators...); err != nil {
		return nil, err
	}
	return build("transform_with").
		connect(stage.RoleConnect, up).
		set("operator", argval.String(operator)).
		set("store_in_attribute", argval.String(storeInAttribute)).
		set("bilinear", argval.Bool(bilinear)).
		pipeline()
}

// RegionGrowingParams holds the thresholds of the Dalponte region growing
// segmentation.
type RegionGrowingParams struct {
	ThTree float64
	ThSeed float64
	ThCR   float64
	MaxCR  float64
	Output string
}

// DefaultRegionGrowing returns the engine defaults.
func DefaultRegionGrowing() RegionGrowingParams {
	return RegionGrowingParams{ThTree: 2, ThSeed: 0.45, ThCR: 0.55, MaxCR: 20}
}

// RegionGrowing segments tree crowns in a raster starting from seed points.
func RegionGrowing(raster, seeds stage.Source, p RegionGrowingParams) (*pipeline.Pipeline, error) {
	rst, err := upstream("raster", raster, rasterOnly)
	if err != nil {
		return nil, err
	}
	sds, err := upstream("seeds", seeds, vectorOnly)
	if err != nil {
		return nil, err
	}
	err = check(
		finite("th_tree", p.ThTree),
		nonNegative("th_seed", p.ThSeed),
		nonNegative("th_cr", p.ThCR),
		positive("max_cr", p.MaxCR),
	)
	if err != nil {
		return nil, err
	}
	if p.ThSeed > 1 || p.ThCR > 1 {
		return nil, lasrerr.InvalidArgument("th_seed and th_cr must be in [0, 1]")
	}
	return build("region_growing", stage.WithKind(stage.KindRaster), outputOr(p.Output, RasterExt)).
		connect(stage.RoleConnect1, sds).
		connect(stage.RoleConnect2, rst).
		set("th_tree", argval.Float(p.ThTree)).
		set("th_seed", argval.Float(p.ThSeed)).
		set("th_cr", argval.Float(p.ThCR)).
		set("max_cr", argval.Float(p.MaxCR)).
		pipeline()
}
