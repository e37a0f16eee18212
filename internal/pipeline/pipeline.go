// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/stage"
)

// Well-known algonames the pipeline itself reasons about.
const (
	ReaderAlgoname  = "reader_las"
	CatalogAlgoname = "build_catalog"
)

// IsReader reports whether algoname reads point clouds. The engine accepts
// both the short and the qualified spelling.
func IsReader(algoname string) bool {
	return algoname == ReaderAlgoname || algoname == "reader"
}

// Pipeline is an ordered sequence of stages plus the processing options the
// engine should run them with. It is not safe for concurrent mutation.
type Pipeline struct {
	stages    []*stage.Stage
	proc      Processing
	files     []string
	noProcess []bool
	// configured is set by any option setter; composition keeps the options of
	// the first configured operand.
	configured bool
}

// New returns a pipeline holding the given stages in order.
func New(stages ...*stage.Stage) *Pipeline {
	p := &Pipeline{proc: DefaultProcessing()}
	for _, s := range stages {
		if s != nil {
			p.stages = append(p.stages, s)
		}
	}
	return p
}

// Concat returns a new pipeline with the stages of a followed by those of b.
// Neither operand is modified. A nil operand behaves as an empty pipeline.
func Concat(a, b *Pipeline) *Pipeline {
	out := New()
	for _, src := range []*Pipeline{a, b} {
		if src == nil {
			continue
		}
		out.stages = append(out.stages, src.stages...)
		out.adoptOptions(src)
	}
	return out
}

// Append adds the stages of other to p in place.
func (p *Pipeline) Append(other *Pipeline) {
	if other == nil {
		return
	}
	p.stages = append(p.stages, other.stages...)
	p.adoptOptions(other)
}

// AppendStage adds s to p in place.
func (p *Pipeline) AppendStage(s *stage.Stage) {
	if s != nil {
		p.stages = append(p.stages, s)
	}
}

func (p *Pipeline) adoptOptions(src *Pipeline) {
	if p.configured || !src.configured {
		return
	}
	p.proc = src.proc.clone()
	p.files = append([]string(nil), src.files...)
	p.noProcess = append([]bool(nil), src.noProcess...)
	p.configured = true
}

// Clone returns a pipeline with the same stages and an independent copy of
// the options.
func (p *Pipeline) Clone() *Pipeline {
	return &Pipeline{
		stages:     append([]*stage.Stage(nil), p.stages...),
		proc:       p.proc.clone(),
		files:      append([]string(nil), p.files...),
		noProcess:  append([]bool(nil), p.noProcess...),
		configured: p.configured,
	}
}

// SetSequential runs the job on a single core.
func (p *Pipeline) SetSequential() {
	p.setStrategy(Sequential, 1, 0)
}

// SetConcurrentPoints processes one file at a time with n cores working on
// its points.
func (p *Pipeline) SetConcurrentPoints(n int) error {
	if n <= 0 {
		return lasrerr.InvalidArgument("ncores must be positive, got %d", n)
	}
	p.setStrategy(ConcurrentPoints, n, 0)
	return nil
}

// SetConcurrentFiles processes n files at a time.
func (p *Pipeline) SetConcurrentFiles(n int) error {
	if n <= 0 {
		return lasrerr.InvalidArgument("ncores must be positive, got %d", n)
	}
	p.setStrategy(ConcurrentFiles, n, 0)
	return nil
}

// SetNested processes outer files at a time, each with inner cores.
func (p *Pipeline) SetNested(outer, inner int) error {
	if outer <= 0 || inner <= 0 {
		return lasrerr.InvalidArgument("nested ncores must be positive, got %d and %d", outer, inner)
	}
	p.setStrategy(Nested, outer, inner)
	return nil
}

func (p *Pipeline) setStrategy(s Strategy, outer, inner int) {
	p.proc.Strategy = s
	p.proc.NCores = Cores{outer, inner}
	p.configured = true
}

// SetStrategy dispatches to the setter of s. inner is only used by Nested.
func (p *Pipeline) SetStrategy(s Strategy, outer, inner int) error {
	switch s {
	case Sequential:
		p.SetSequential()
		return nil
	case ConcurrentPoints:
		return p.SetConcurrentPoints(outer)
	case ConcurrentFiles:
		return p.SetConcurrentFiles(outer)
	case Nested:
		return p.SetNested(outer, inner)
	}
	return lasrerr.InvalidArgument("unknown strategy %q", s)
}

// SetProcessing applies a whole processing block through the individual
// setters. A missing strategy means concurrent points and missing ncores
// means one core.
func (p *Pipeline) SetProcessing(proc Processing) error {
	outer, inner := 1, 0
	if len(proc.NCores) > 0 {
		outer = proc.NCores[0]
	}
	if len(proc.NCores) > 1 {
		inner = proc.NCores[1]
	}
	strategy := proc.Strategy
	if strategy == "" {
		strategy = ConcurrentPoints
	}
	if err := p.SetStrategy(strategy, outer, inner); err != nil {
		return err
	}
	if err := p.SetBuffer(proc.Buffer); err != nil {
		return err
	}
	if err := p.SetChunk(proc.Chunk); err != nil {
		return err
	}
	p.SetVerbose(proc.Verbose)
	p.SetProgress(proc.Progress)
	p.SetProfileFile(proc.ProfileFile)
	return nil
}

// Strategy returns the active strategy.
func (p *Pipeline) Strategy() Strategy { return p.proc.Strategy }

// SetVerbose toggles engine verbosity.
func (p *Pipeline) SetVerbose(b bool) {
	p.proc.Verbose = b
	p.configured = true
}

// SetProgress toggles the engine progress bar.
func (p *Pipeline) SetProgress(b bool) {
	p.proc.Progress = b
	p.configured = true
}

// SetBuffer sets the buffer distance around each chunk.
func (p *Pipeline) SetBuffer(d float64) error {
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return lasrerr.InvalidArgument("buffer must be a finite distance >= 0, got %v", d)
	}
	p.proc.Buffer = d
	p.configured = true
	return nil
}

// SetChunk sets the chunk size; zero processes files whole.
func (p *Pipeline) SetChunk(size float64) error {
	if size < 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return lasrerr.InvalidArgument("chunk must be a finite size >= 0, got %v", size)
	}
	p.proc.Chunk = size
	p.configured = true
	return nil
}

// SetProfileFile asks the engine to write profiling data to path.
func (p *Pipeline) SetProfileFile(path string) {
	p.proc.ProfileFile = path
	p.configured = true
}

// SetFiles replaces the input files. A previous noprocess mask that no
// longer matches is dropped.
func (p *Pipeline) SetFiles(files []string) {
	p.files = append([]string(nil), files...)
	if len(p.noProcess) != len(p.files) {
		p.noProcess = nil
	}
	p.configured = true
}

// SetNoProcess flags files that are read only as buffer for their
// neighbours. The mask must match the file list.
func (p *Pipeline) SetNoProcess(mask []bool) error {
	if len(mask) > 0 && len(mask) != len(p.files) {
		return lasrerr.InvalidArgument("noprocess has %d entries but %d files are set", len(mask), len(p.files))
	}
	p.noProcess = append([]bool(nil), mask...)
	p.configured = true
	return nil
}

// Processing returns a copy of the options block.
func (p *Pipeline) Processing() Processing { return p.proc.clone() }

// Files returns a copy of the input files.
func (p *Pipeline) Files() []string { return append([]string(nil), p.files...) }

// NoProcess returns the noprocess mask, nil when none is set.
func (p *Pipeline) NoProcess() []bool { return append([]bool(nil), p.noProcess...) }

// Len returns the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Stages returns the stages in order. The slice is a copy; the stages are not.
func (p *Pipeline) Stages() []*stage.Stage {
	return append([]*stage.Stage(nil), p.stages...)
}

// Names returns the algoname of every stage in order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Algoname()
	}
	return names
}

// At returns a single-stage pipeline holding the stage at index i.
func (p *Pipeline) At(i int) (*Pipeline, error) {
	if i < 0 || i >= len(p.stages) {
		return nil, lasrerr.InvalidArgument("stage index %d out of range [0, %d)", i, len(p.stages))
	}
	return New(p.stages[i]), nil
}

// Single returns the only stage of p. It fails for empty and multi-stage
// pipelines because neither can be the target of a connection.
func (p *Pipeline) Single() (*stage.Stage, error) {
	if p == nil {
		return nil, lasrerr.InvalidArgument("a nil pipeline cannot be a connection target")
	}
	switch len(p.stages) {
	case 1:
		return p.stages[0], nil
	case 0:
		return nil, lasrerr.InvalidArgument("an empty pipeline cannot be a connection target")
	}
	return nil, lasrerr.InvalidArgument("cannot reduce a multi-stage pipeline to a single connection target (pipeline has %d stages)", len(p.stages))
}

// HasReader reports whether any stage reads point clouds.
func (p *Pipeline) HasReader() bool {
	for _, s := range p.stages {
		if IsReader(s.Algoname()) {
			return true
		}
	}
	return false
}

// HasCatalog reports whether the job spans a catalog: either a catalog stage
// is present or more than one input file is set.
func (p *Pipeline) HasCatalog() bool {
	return p.indexOf(CatalogAlgoname) >= 0 || len(p.files) > 1
}

func (p *Pipeline) indexOf(algoname string) int {
	for i, s := range p.stages {
		if s.Algoname() == algoname {
			return i
		}
	}
	return -1
}

// Describe renders every stage followed by a separator line.
func (p *Pipeline) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline: %d stage(s), strategy %s, ncores %v\n", len(p.stages), p.proc.Strategy, []int(p.proc.NCores))
	for _, s := range p.stages {
		b.WriteString(s.Describe())
	}
	b.WriteString("-----------\n")
	return b.String()
}

func (p *Pipeline) String() string { return p.Describe() }
