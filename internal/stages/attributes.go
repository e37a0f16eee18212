// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stages

import (
	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
)

// DataTypes are the storage types accepted for extra attributes.
var DataTypes = []string{"uchar", "char", "ushort", "short", "uint", "int", "uint64", "int64", "float", "double"}

// AddAttribute adds an extra bytes attribute to every point.
func AddAttribute(dataType, name, description string, scale, offset float64) (*pipeline.Pipeline, error) {
	err := check(
		oneOf("data_type", dataType, DataTypes...),
		notEmpty("name", name),
		positive("scale", scale),
		finite("offset", offset),
	)
	if err != nil {
		return nil, err
	}
	return build("add_attribute").
		set("data_type", argval.String(dataType)).
		set("name", argval.String(name)).
		set("description", argval.String(description)).
		set("scale", argval.Float(scale)).
		set("offset", argval.Float(offset)).
		pipeline()
}

// AddRGB upgrades the point format so that points can carry colours.
func AddRGB() (*pipeline.Pipeline, error) {
	return build("add_rgb").pipeline()
}

// EditAttribute sets attribute to value for the points matching filter.
// Coordinates cannot be edited this way.
func EditAttribute(filter, attribute string, value float64) (*pipeline.Pipeline, error) {
	if err := check(notEmpty("attribute", attribute), finite("value", value)); err != nil {
		return nil, err
	}
	switch attribute {
	case "x", "X", "y", "Y", "z", "Z":
		return nil, lasrerr.InvalidArgument("edit_attribute cannot modify coordinates (%s)", attribute)
	}
	return build("edit_attribute", stage.WithFilter(filter)).
		set("attribute", argval.String(attribute)).
		set("value", argval.Float(value)).
		pipeline()
}

// RemoveAttribute drops an extra attribute.
func RemoveAttribute(name string) (*pipeline.Pipeline, error) {
	if err := notEmpty("name", name); err != nil {
		return nil, err
	}
	return build("remove_attribute").set("name", argval.String(name)).pipeline()
}

// GeometryFeatures computes eigenvalue based features from the k nearest
// neighbours, limited to radius r when r is positive. features selects which
// ones are stored; empty stores them all.
func GeometryFeatures(k int, r float64, features string) (*pipeline.Pipeline, error) {
	if k < 3 {
		return nil, lasrerr.InvalidArgument("k must be at least 3, got %d", k)
	}
	if err := nonNegative("r", r); err != nil {
		return nil, err
	}
	return build("svd").
		set("k", argval.Int(k)).
		set("r", argval.Float(r)).
		set("features", argval.String(features)).
		pipeline()
}

// SetCRSEPSG assigns a coordinate reference system by EPSG code.
func SetCRSEPSG(epsg int) (*pipeline.Pipeline, error) {
	if epsg <= 0 {
		return nil, lasrerr.InvalidArgument("epsg must be positive, got %d", epsg)
	}
	return build("set_crs").set("epsg", argval.Int(epsg)).pipeline()
}

// SetCRSWKT assigns a coordinate reference system from a WKT string.
func SetCRSWKT(wkt string) (*pipeline.Pipeline, error) {
	if err := notEmpty("wkt", wkt); err != nil {
		return nil, err
	}
	return build("set_crs").set("wkt", argval.String(wkt)).pipeline()
}
