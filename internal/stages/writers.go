// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stages

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
)

// COPCDensities maps the density names of WriteCOPC to the number of points
// per octree cell.
var COPCDensities = map[string]int{
	"sparse": 64,
	"normal": 128,
	"dense":  256,
	"denser": 512,
}

// WriteLAS writes the points to ofile. A '*' in ofile is replaced by the name
// of each input file, which writes one file per input; without it every
// input is merged. An empty ofile writes one .las per input into the
// temporary directory.
func WriteLAS(ofile, filter string, keepBuffer bool) (*pipeline.Pipeline, error) {
	if ofile == "" {
		ofile = filepath.Join(os.TempDir(), "*.las")
	}
	return build("write_las", stage.WithOutput(ofile), stage.WithFilter(filter)).
		set("keep_buffer", argval.Bool(keepBuffer)).
		pipeline()
}

// WriteCOPC writes cloud optimized point clouds. maxDepth limits the octree
// depth when positive; density is one of the COPCDensities names.
func WriteCOPC(ofile, filter string, keepBuffer bool, maxDepth int, density string) (*pipeline.Pipeline, error) {
	if !strings.HasSuffix(strings.ToLower(ofile), ".copc.laz") {
		return nil, lasrerr.InvalidArgument("write_copc output must end with .copc.laz, got %q", ofile)
	}
	if density == "" {
		density = "dense"
	}
	cells, ok := COPCDensities[density]
	if !ok {
		return nil, lasrerr.InvalidArgument("density must be one of sparse, normal, dense, denser, got %q", density)
	}
	b := build("write_las", stage.WithOutput(ofile), stage.WithFilter(filter)).
		set("keep_buffer", argval.Bool(keepBuffer)).
		set("density", argval.Int(cells))
	if maxDepth > 0 {
		b.set("max_depth", argval.Int(maxDepth))
	}
	return b.pipeline()
}

// WritePCD writes the points in the PCD format, binary unless told otherwise.
func WritePCD(ofile string, binary bool) (*pipeline.Pipeline, error) {
	if err := notEmpty("ofile", ofile); err != nil {
		return nil, err
	}
	return build("write_pcd", stage.WithOutput(ofile)).
		set("binary", argval.Bool(binary)).
		pipeline()
}

// WriteVPC writes a virtual point cloud referencing the input files.
func WriteVPC(ofile string, absolutePath, useGPSTime bool) (*pipeline.Pipeline, error) {
	if err := notEmpty("ofile", ofile); err != nil {
		return nil, err
	}
	return build("write_vpc", stage.WithOutput(ofile)).
		set("absolute", argval.Bool(absolutePath)).
		set("use_gpstime", argval.Bool(useGPSTime)).
		pipeline()
}

// WriteLAX writes a spatial index next to each input file, or inside it
// when embedded is set.
func WriteLAX(embedded, overwrite bool) (*pipeline.Pipeline, error) {
	return build("write_lax").
		set("embedded", argval.Bool(embedded)).
		set("overwrite", argval.Bool(overwrite)).
		pipeline()
}
