// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stages

import (
	"math"

	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
)

// Shuffle sizes the engine uses when a sampler is not told otherwise.
const (
	DefaultShuffleSize        = math.MaxInt32
	DefaultPoissonShuffleSize = 1000
)

// DeletePoints removes the points matching filter.
func DeletePoints(filter string) (*pipeline.Pipeline, error) {
	if err := notEmpty("filter", filter); err != nil {
		return nil, err
	}
	return build("filter", stage.WithFilter(filter)).pipeline()
}

// FilterWithGrid keeps the lowest (min) or highest (max) point of every cell
// of a grid of resolution res.
func FilterWithGrid(res float64, operation, filter string) (*pipeline.Pipeline, error) {
	if err := check(positive("res", res), oneOf("operation", operation, "min", "max")); err != nil {
		return nil, err
	}
	return build("filter_grid", stage.WithFilter(filter)).
		set("res", argval.Float(res)).
		set("operator", argval.String(operation)).
		pipeline()
}

// SamplingVoxel keeps one point per voxel of size res.
func SamplingVoxel(res float64, filter string) (*pipeline.Pipeline, error) {
	if err := positive("res", res); err != nil {
		return nil, err
	}
	return build("sampling_voxel", stage.WithFilter(filter)).
		set("res", argval.Float(res)).
		set("method", argval.String("random")).
		set("shuffle_size", argval.Int(DefaultShuffleSize)).
		pipeline()
}

// SamplingPixel keeps one point per pixel of size res. useAttribute selects
// the attribute used by the min and max methods.
func SamplingPixel(res float64, filter, method, useAttribute string) (*pipeline.Pipeline, error) {
	if method == "" {
		method = "random"
	}
	if useAttribute == "" {
		useAttribute = "Z"
	}
	if err := check(positive("res", res), oneOf("method", method, "random", "min", "max")); err != nil {
		return nil, err
	}
	return build("sampling_pixel", stage.WithFilter(filter)).
		set("res", argval.Float(res)).
		set("method", argval.String(method)).
		set("use_attribute", argval.String(useAttribute)).
		set("shuffle_size", argval.Int(DefaultShuffleSize)).
		pipeline()
}

// SamplingPoisson keeps points at least distance apart.
func SamplingPoisson(distance float64, filter string) (*pipeline.Pipeline, error) {
	if err := positive("distance", distance); err != nil {
		return nil, err
	}
	return build("sampling_poisson", stage.WithFilter(filter)).
		set("distance", argval.Float(distance)).
		set("shuffle_size", argval.Int(DefaultPoissonShuffleSize)).
		pipeline()
}

// SortPoints reorders points, spatially when spatial is set.
func SortPoints(spatial bool) (*pipeline.Pipeline, error) {
	return build("sort").set("spatial", argval.Bool(spatial)).pipeline()
}

// StopIfOutside skips the rest of the pipeline for chunks that do not
// intersect the bounding box.
func StopIfOutside(xmin, ymin, xmax, ymax float64) (*pipeline.Pipeline, error) {
	err := check(finite("xmin", xmin), finite("ymin", ymin), finite("xmax", xmax), finite("ymax", ymax))
	if err != nil {
		return nil, err
	}
	if xmin > xmax || ymin > ymax {
		return nil, lasrerr.InvalidArgument("bounding box has min greater than max")
	}
	return build("stop_if").
		set("condition", argval.String("outside_bbox")).
		set("xmin", argval.Float(xmin)).
		set("ymin", argval.Float(ymin)).
		set("xmax", argval.Float(xmax)).
		set("ymax", argval.Float(ymax)).
		pipeline()
}

// StopIfChunkIDBelow skips the rest of the pipeline for chunks whose index
// is below index.
func StopIfChunkIDBelow(index int) (*pipeline.Pipeline, error) {
	if index < 0 {
		return nil, lasrerr.InvalidArgument("index must be >= 0, got %d", index)
	}
	return build("stop_if").
		set("condition", argval.String("chunk_id_below")).
		set("index", argval.Int(index)).
		pipeline()
}
