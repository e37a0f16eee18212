// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stages

import (
	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
)

// LAS classification codes used as defaults.
const (
	ClassGround = 2
	ClassNoise  = 18
)

// ClassifyWithSOR flags outliers with a statistical outlier removal: points
// whose mean distance to their k neighbours exceeds m standard deviations.
func ClassifyWithSOR(k, m, class int) (*pipeline.Pipeline, error) {
	if err := check(positive("k", float64(k)), positive("m", float64(m)), classCode("class", class)); err != nil {
		return nil, err
	}
	return build("classify_with_sor").
		set("k", argval.Int(k)).
		set("m", argval.Int(m)).
		set("class", argval.Int(class)).
		pipeline()
}

// ClassifyWithIVF flags isolated points using an isolated voxel filter of
// resolution res: voxels with at most n points around them.
func ClassifyWithIVF(res float64, n, class int) (*pipeline.Pipeline, error) {
	if err := check(positive("res", res), positive("n", float64(n)), classCode("class", class)); err != nil {
		return nil, err
	}
	return build("classify_with_ivf").
		set("res", argval.Float(res)).
		set("n", argval.Int(n)).
		set("class", argval.Int(class)).
		pipeline()
}

// CSFParams holds the cloth simulation parameters.
type CSFParams struct {
	SlopeSmooth     bool
	ClassThreshold  float64
	ClothResolution float64
	Rigidness       int
	Iterations      int
	TimeStep        float64
	Class           int
	Filter          string
}

// DefaultCSF returns the engine defaults.
func DefaultCSF() CSFParams {
	return CSFParams{
		ClassThreshold:  0.5,
		ClothResolution: 0.5,
		Rigidness:       1,
		Iterations:      500,
		TimeStep:        0.65,
		Class:           ClassGround,
	}
}

// ClassifyWithCSF classifies ground points with the cloth simulation filter.
func ClassifyWithCSF(p CSFParams) (*pipeline.Pipeline, error) {
	err := check(
		positive("class_threshold", p.ClassThreshold),
		positive("cloth_resolution", p.ClothResolution),
		positive("time_step", p.TimeStep),
		positive("iterations", float64(p.Iterations)),
		classCode("class", p.Class),
	)
	if err != nil {
		return nil, err
	}
	if p.Rigidness < 1 || p.Rigidness > 3 {
		return nil, lasrerr.InvalidArgument("rigidness must be 1, 2 or 3, got %d", p.Rigidness)
	}

	return build("classify_with_csf", stage.WithFilter(p.Filter)).
		set("slope_smooth", argval.Bool(p.SlopeSmooth)).
		set("class_threshold", argval.Float(p.ClassThreshold)).
		set("cloth_resolution", argval.Float(p.ClothResolution)).
		set("rigidness", argval.Int(p.Rigidness)).
		set("iterations", argval.Int(p.Iterations)).
		set("time_step", argval.Float(p.TimeStep)).
		set("class", argval.Int(p.Class)).
		pipeline()
}
