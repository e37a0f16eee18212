// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stages

import (
	"github.com/vk/lasrgo/internal/pipeline"
)

// GroundFilter keeps ground and water points.
const GroundFilter = "-keep_class 2 -keep_class 9"

// DTM triangulates ground points and interpolates them into a digital
// terrain model of resolution res.
func DTM(res float64, ofile string) (*pipeline.Pipeline, error) {
	tin, err := Triangulate(0, GroundFilter, "", "Z")
	if err != nil {
		return nil, err
	}
	dtm, err := RasterizeTriangulation(tin, res, ofile)
	if err != nil {
		return nil, err
	}
	return pipeline.Concat(tin, dtm), nil
}

// CHM rasterizes the highest point of every pixel into a canopy height
// model of resolution res.
func CHM(res float64, ofile string) (*pipeline.Pipeline, error) {
	return Rasterize(res, res, []string{"max"}, "", ofile)
}
