// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/dag"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/stage"
)

// DefaultJSONName is the file WriteJSON uses when no path is given.
const DefaultJSONName = "pipeline.json"

type document struct {
	Processing Processing    `json:"processing"`
	Pipeline   []*argval.Map `json:"pipeline"`
}

// Graph returns the connection graph of p. Every connection must point at a
// stage of p and every stage may appear only once.
func (p *Pipeline) Graph() (*dag.Graph, error) {
	g := dag.New()
	for _, s := range p.stages {
		id := s.ID().String()
		if g.Has(id) {
			return nil, lasrerr.InvalidArgument("stage %s (%s) appears more than once", id, s.Algoname())
		}
		g.AddNode(id)
	}
	for _, s := range p.stages {
		for _, c := range s.Connections() {
			err := g.AddEdge(c.Target.String(), s.ID().String())
			if errors.Is(err, dag.ErrNodeNotFound) {
				return nil, fmt.Errorf("%w: %s of stage %s (%s) points at %s, which is not in the pipeline",
					lasrerr.ErrUnresolvedConnection, c.Role, s.ID(), s.Algoname(), c.Target)
			}
			if err != nil {
				return nil, lasrerr.InvalidArgument("%v", err)
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		return nil, lasrerr.InvalidArgument("%v", err)
	}
	return g, nil
}

// Records returns the flattened record of every stage in order.
func (p *Pipeline) Records() []*argval.Map {
	recs := make([]*argval.Map, len(p.stages))
	for i, s := range p.stages {
		recs[i] = s.Record()
	}
	return recs
}

// ToJSON encodes p as the engine document: the processing block followed by
// the ordered list of stage records. The output is deterministic.
func (p *Pipeline) ToJSON() ([]byte, error) {
	if _, err := p.Graph(); err != nil {
		return nil, err
	}
	doc := document{Processing: p.proc, Pipeline: p.Records()}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, lasrerr.InvalidArgument("encode pipeline: %v", err)
	}
	return b, nil
}

// Finalize returns a copy of p ready for the engine. A reader is prepended
// when p has none, and when files are set a catalog stage describing them is
// prepended in front of it. A catalog stage that p already carries is updated
// with the current buffer and chunk instead.
func (p *Pipeline) Finalize() (*Pipeline, error) {
	out := p.Clone()

	if out.indexOf(CatalogAlgoname) >= 0 && !out.HasReader() {
		return nil, lasrerr.InvalidArgument("a pipeline cannot contain a %s stage without a reader stage", CatalogAlgoname)
	}

	if !out.HasReader() {
		reader, err := stage.New(ReaderAlgoname)
		if err != nil {
			return nil, err
		}
		out.stages = append([]*stage.Stage{reader}, out.stages...)
	}

	if len(out.files) == 0 {
		return out, nil
	}

	if i := out.indexOf(CatalogAlgoname); i >= 0 {
		catalog := out.stages[i].Clone()
		catalog.SetArg("buffer", argval.Float(out.proc.Buffer))
		catalog.SetArg("chunk", argval.Float(out.proc.Chunk))
		out.stages[i] = catalog
		return out, nil
	}

	catalog, err := stage.New(CatalogAlgoname)
	if err != nil {
		return nil, err
	}
	catalog.SetArg("files", argval.Strings(out.files...))
	catalog.SetArg("buffer", argval.Float(out.proc.Buffer))
	catalog.SetArg("chunk", argval.Float(out.proc.Chunk))
	if len(out.noProcess) > 0 {
		catalog.SetArg("noprocess", argval.Bools(out.noProcess...))
	}
	out.stages = append([]*stage.Stage{catalog}, out.stages...)
	return out, nil
}

// WriteJSON finalizes p and writes the document to path, or to
// <tempdir>/pipeline.json when path is empty. It returns the path written.
func (p *Pipeline) WriteJSON(path string) (string, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), DefaultJSONName)
	}
	final, err := p.Finalize()
	if err != nil {
		return "", err
	}
	b, err := final.ToJSON()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write pipeline %s: %w", path, err)
	}
	return path, nil
}
