package testutil

import (
	"context"
	"os"
	"sync"

	"github.com/vk/lasrgo/internal/engine"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
)

// RecordingEngine is an in-memory engine. It keeps every document it is
// sent, answers info requests with Info and "processes" a document by
// writing a stub file to the output of every writer stage.
type RecordingEngine struct {
	// Answer is returned for every info request.
	Answer engine.Info
	// Fail makes Process answer success=false with this message.
	Fail string

	mu      sync.Mutex
	info    [][]byte
	process [][]byte
}

var writers = map[string]bool{"write_las": true, "write_copc": true, "write_pcd": true}

// Info implements engine.Engine.
func (e *RecordingEngine) Info(ctx context.Context, doc []byte) (*engine.Info, error) {
	e.mu.Lock()
	e.info = append(e.info, append([]byte(nil), doc...))
	e.mu.Unlock()
	info := e.Answer
	return &info, nil
}

// Process implements engine.Engine.
func (e *RecordingEngine) Process(ctx context.Context, doc []byte) (*engine.Response, error) {
	e.mu.Lock()
	e.process = append(e.process, append([]byte(nil), doc...))
	e.mu.Unlock()

	if e.Fail != "" {
		return &engine.Response{Success: false, Message: e.Fail}, nil
	}
	desc, err := pipeline.FromJSON(doc)
	if err != nil {
		return nil, err
	}
	var data []map[string]any
	for _, rec := range desc.Stages {
		name, _ := rec.Get(stage.FieldAlgoname)
		algoname, _ := name.AsString()
		if !writers[algoname] {
			continue
		}
		out, _ := rec.Get(stage.FieldOutput)
		path, _ := out.AsString()
		if err := os.WriteFile(path, []byte("LASF"), 0o644); err != nil {
			return nil, err
		}
		data = append(data, map[string]any{algoname: []any{path}})
	}
	return &engine.Response{Success: true, Data: data}, nil
}

// ProcessDocs returns the documents sent for processing.
func (e *RecordingEngine) ProcessDocs() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]byte(nil), e.process...)
}

// InfoDocs returns the documents sent for inspection.
func (e *RecordingEngine) InfoDocs() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]byte(nil), e.info...)
}
