// Package hclconfig reads and writes pipelines as HCL files.
//
// A file holds an optional processing block and one stage block per stage,
// labelled with its algoname and a local name. Connections are written as
// references to an earlier stage:
//
//	processing {
//	  strategy = "concurrent-files"
//	  ncores   = [4]
//	}
//
//	stage "triangulate" "tin" {
//	  filter = "-keep_class 2"
//	}
//
//	stage "transform_with" "norm" {
//	  connect  = stage.tin
//	  operator = "-"
//	}
//
// Only earlier stages can be referenced, so every file describes an acyclic
// pipeline by construction.
package hclconfig
