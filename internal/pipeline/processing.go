// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Strategy is the parallelism mode requested of the engine.
type Strategy string

const (
	Sequential       Strategy = "sequential"
	ConcurrentPoints Strategy = "concurrent-points"
	ConcurrentFiles  Strategy = "concurrent-files"
	Nested           Strategy = "nested"
)

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case Sequential, ConcurrentPoints, ConcurrentFiles, Nested:
		return true
	}
	return false
}

// Cores is the ncores entry of the processing block: the outer worker count
// followed by the inner one, which is zero unless the strategy is nested.
// A bare number is accepted when decoding.
type Cores []int

// UnmarshalJSON accepts either a number or a list of numbers.
func (c *Cores) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '[' {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("ncores: %w", err)
		}
		*c = Cores{n}
		return nil
	}
	var list []int
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("ncores: %w", err)
	}
	*c = list
	return nil
}

// Processing is the global options block of the engine document.
type Processing struct {
	NCores      Cores    `json:"ncores"`
	Strategy    Strategy `json:"strategy"`
	Buffer      float64  `json:"buffer"`
	Progress    bool     `json:"progress"`
	Chunk       float64  `json:"chunk"`
	Verbose     bool     `json:"verbose"`
	ProfileFile string   `json:"profile_file"`
}

// DefaultProcessing mirrors the engine defaults: one core, concurrent points.
func DefaultProcessing() Processing {
	return Processing{
		NCores:   Cores{1, 0},
		Strategy: ConcurrentPoints,
	}
}

func (p Processing) clone() Processing {
	p.NCores = append(Cores{}, p.NCores...)
	return p
}
