// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package stages holds one constructor per operation kind the engine knows.
//
// Every constructor validates its parameters, builds exactly one stage with
// the right algoname, output kind and arguments, and returns it wrapped in a
// single-stage pipeline so results compose uniformly with pipeline.Concat and
// (*pipeline.Pipeline).Append.
//
// Constructors that consume another stage's output take a stage.Source: a
// stage or a single-stage pipeline. The upstream's output kind, or its
// algoname for consumers keyed on a specific algorithm, is checked here, at
// construction, so a mismatched graph never reaches the engine.
//
// Stages that need an output file but get none receive a placeholder that is
// resolved to a temporary path only when the pipeline is encoded.
package stages
