// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package pipeline composes stages into an ordered job, configures how the
// engine should parallelise it, and encodes it into the JSON document the
// engine consumes.
//
// Why two ways to compose?
//
// Concat never touches its operands and returns a fresh pipeline, so it can be
// used freely while building reusable fragments. Append mutates the receiver
// and returns nothing, which makes the side effect visible at the call site.
// Both keep the identity of every stage they move; no stage is ever copied or
// re-identified by composition.
//
// Connections between stages are plain ids inside argument bags. Nothing
// prevents a caller from composing a consumer without its source, so the
// referential integrity of a pipeline is checked every time it is encoded.
package pipeline
