// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package stage models a single operation of a processing pipeline: its
// algoname, identity, output, filter expression, output kind and an ordered
// bag of arguments.
//
// Why separate identity from arguments?
//
// A stage is addressed by other stages through its id (a connection). The id is
// drawn once at construction and never changes, while arguments stay editable
// until the stage is serialized. Keeping the fixed fields out of the argument
// bag means a stray argument named "uid" or "output" can never rewrite the
// identity of the stage it belongs to.
package stage
