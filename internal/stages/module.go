// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stages

import (
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/registry"
	"github.com/vk/lasrgo/internal/stage"
)

// Module registers the definition of every stage kind built by this package.
type Module struct{}

var _ registry.Module = Module{}

// NewRegistry returns a registry holding the definitions of this package.
func NewRegistry() *registry.Registry {
	return registry.New(Module{})
}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	never := registry.Never
	connectRaster := registry.Role{Name: stage.RoleConnect, Kinds: rasterOnly}
	connectTIN := registry.Role{Name: stage.RoleConnect, Algonames: []string{"triangulate"}}

	// Readers and engine plumbing.
	r.Define(registry.Definition{Algoname: pipeline.ReaderAlgoname, Reader: true, PointData: never})
	r.Define(registry.Definition{Algoname: "reader", Reader: true, PointData: never})
	r.Define(registry.Definition{Algoname: pipeline.CatalogAlgoname, PointData: never})
	r.Define(registry.Definition{Algoname: "stop_if", PointData: never})
	r.Define(registry.Definition{Algoname: "info", PointData: never})
	r.Define(registry.Definition{Algoname: "nothing", PointData: registry.WhenArg("read")})

	// Point processing.
	for _, name := range []string{
		"classify_with_sor", "classify_with_ivf", "classify_with_csf",
		"add_attribute", "add_rgb", "edit_attribute", "remove_attribute", "svd", "set_crs",
		"filter", "filter_grid", "sampling_voxel", "sampling_pixel", "sampling_poisson", "sort",
		"summarise", "write_las", "write_pcd",
	} {
		r.Define(registry.Definition{Algoname: name})
	}
	r.Define(registry.Definition{Algoname: "write_vpc", PointData: never})
	r.Define(registry.Definition{Algoname: "write_lax", PointData: never})

	// Producers of rasters, vectors and matrices.
	r.Define(registry.Definition{Algoname: "load_raster", Output: stage.KindRaster, PointData: never})
	r.Define(registry.Definition{Algoname: "load_matrix", Output: stage.KindMatrix, PointData: never})
	r.Define(registry.Definition{Algoname: "triangulate", Output: stage.KindVector})
	r.Define(registry.Definition{
		Algoname:  "rasterize",
		Output:    stage.KindRaster,
		PointData: registry.UnlessConnected,
		Roles:     []registry.Role{optional(connectTIN)},
	})
	r.Define(registry.Definition{
		Algoname:  "local_maximum",
		Output:    stage.KindVector,
		PointData: registry.UnlessConnected,
		Roles:     []registry.Role{optional(connectRaster)},
	})
	r.Define(registry.Definition{
		Algoname: "hulls",
		Output:   stage.KindVector,
		Roles:    []registry.Role{optional(connectTIN)},
	})

	// Consumers of other stages.
	r.Define(registry.Definition{
		Algoname: "neighborhood_metrics",
		Output:   stage.KindVector,
		Roles:    []registry.Role{{Name: stage.RoleConnect, Algonames: []string{"local_maximum"}}},
	})
	r.Define(registry.Definition{Algoname: "focal", Output: stage.KindRaster, PointData: never, Roles: []registry.Role{connectRaster}})
	r.Define(registry.Definition{Algoname: "pit_fill", Output: stage.KindRaster, PointData: never, Roles: []registry.Role{connectRaster}})
	r.Define(registry.Definition{
		Algoname: "transform_with",
		Roles:    []registry.Role{{Name: stage.RoleConnect, Kinds: rasterOnly, Algonames: []string{"triangulate"}}},
	})
	r.Define(registry.Definition{
		Algoname:  "region_growing",
		Output:    stage.KindRaster,
		PointData: never,
		Roles: []registry.Role{
			{Name: stage.RoleConnect1, Kinds: vectorOnly},
			{Name: stage.RoleConnect2, Kinds: rasterOnly},
		},
	})
}

func optional(r registry.Role) registry.Role {
	r.Optional = true
	return r
}
