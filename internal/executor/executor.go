// Package executor runs pipelines on an engine: it resolves the input
// files, prepares and validates the engine document, dispatches it and
// turns the answer into a Result.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vk/lasrgo/internal/ctxlog"
	"github.com/vk/lasrgo/internal/engine"
	"github.com/vk/lasrgo/internal/fsutil"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/metrics"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/registry"
)

// Executor dispatches pipelines to an engine. It holds no per-execution
// state and is safe for concurrent use.
type Executor struct {
	engine    engine.Engine
	registry  *registry.Registry
	metrics   *metrics.Executions
	configDir string
}

// Option configures an Executor.
type Option func(*Executor)

// WithRegistry validates every pipeline against reg before dispatch.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Executor) { e.registry = reg }
}

// WithMetrics records executions in m.
func WithMetrics(m *metrics.Executions) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithConfigDir sets where engine documents are kept; the default is
// os.TempDir().
func WithConfigDir(dir string) Option {
	return func(e *Executor) { e.configDir = dir }
}

// New returns an Executor dispatching to eng.
func New(eng engine.Engine, opts ...Option) *Executor {
	e := &Executor{engine: eng}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs p over inputs, which may name files and directories.
//
// Input problems (lasrerr.ErrPathNotFound, lasrerr.ErrNoInputFiles), an
// invalid pipeline and engine transport failures (lasrerr.ErrEngineFailure)
// are returned as errors before or instead of a Result. An engine that ran
// and reported success=false is not an error: the Result carries its
// message. p itself is not modified.
func (e *Executor) Execute(ctx context.Context, p *pipeline.Pipeline, inputs ...string) (*Result, error) {
	logger := ctxlog.FromContext(ctx).With("op", metrics.OpProcess)

	files, err := fsutil.ResolveInputs(inputs...)
	if err != nil {
		e.metrics.Record(metrics.OpProcess, metrics.OutcomeRejected)
		return nil, err
	}
	e.metrics.ObserveInputs(len(files))
	logger.Debug("Resolved input files.", "inputs", len(inputs), "files", len(files))

	run := p.Clone()
	run.SetFiles(files)
	doc, err := e.prepare(ctx, run)
	if err != nil {
		e.metrics.Record(metrics.OpProcess, metrics.OutcomeRejected)
		return nil, err
	}

	configPath, err := e.keep(doc)
	if err != nil {
		e.metrics.Record(metrics.OpProcess, metrics.OutcomeRejected)
		return nil, err
	}
	logger = logger.With("json_config", configPath)

	if err := ctx.Err(); err != nil {
		e.metrics.Record(metrics.OpProcess, metrics.OutcomeCancelled)
		return nil, err
	}

	logger.Info("Dispatching pipeline to the engine.", "files", len(files), "stages", run.Len())
	start := time.Now()
	done := e.metrics.Dispatch(metrics.OpProcess)
	resp, err := e.engine.Process(ctx, doc)
	done()
	if err == nil && resp == nil {
		err = errNoAnswer
	}
	if err != nil {
		return nil, e.dispatchError(ctx, metrics.OpProcess, err)
	}

	res := newResult(resp, configPath)
	if res.Success {
		e.metrics.Record(metrics.OpProcess, metrics.OutcomeSuccess)
		logger.Info("Engine finished.", "duration", time.Since(start))
	} else {
		e.metrics.Record(metrics.OpProcess, metrics.OutcomeFailure)
		logger.Warn("Engine reported a failure.", "duration", time.Since(start), "message", res.Message)
	}
	return res, nil
}

// Info asks the engine how it would run p. Files set on p are used as is;
// none are required.
func (e *Executor) Info(ctx context.Context, p *pipeline.Pipeline) (*engine.Info, error) {
	doc, err := e.prepare(ctx, p)
	if err != nil {
		e.metrics.Record(metrics.OpInfo, metrics.OutcomeRejected)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		e.metrics.Record(metrics.OpInfo, metrics.OutcomeCancelled)
		return nil, err
	}

	done := e.metrics.Dispatch(metrics.OpInfo)
	info, err := e.engine.Info(ctx, doc)
	done()
	if err == nil && info == nil {
		err = errNoAnswer
	}
	if err != nil {
		return nil, e.dispatchError(ctx, metrics.OpInfo, err)
	}
	e.metrics.Record(metrics.OpInfo, metrics.OutcomeSuccess)
	return info, nil
}

var errNoAnswer = errors.New("engine returned no answer")

// prepare finalizes and validates p and returns its document.
func (e *Executor) prepare(ctx context.Context, p *pipeline.Pipeline) ([]byte, error) {
	final, err := p.Finalize()
	if err != nil {
		return nil, err
	}
	if e.registry != nil {
		if err := e.registry.Validate(ctx, final); err != nil {
			return nil, err
		}
	}
	return final.ToJSON()
}

// keep writes the document next to the others so a run can be reproduced.
func (e *Executor) keep(doc []byte) (string, error) {
	f, err := os.CreateTemp(e.configDir, "lasr-pipeline-*.json")
	if err != nil {
		return "", fmt.Errorf("write engine document: %w", err)
	}
	if _, err := f.Write(doc); err != nil {
		f.Close()
		return "", fmt.Errorf("write engine document: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write engine document: %w", err)
	}
	return f.Name(), nil
}

// dispatchError records a failed engine call and makes sure anything that
// is not a cancellation is reported as an engine failure.
func (e *Executor) dispatchError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		e.metrics.Record(op, metrics.OutcomeCancelled)
		return err
	}
	e.metrics.Record(op, metrics.OutcomeError)
	if errors.Is(err, lasrerr.ErrEngineFailure) {
		return err
	}
	return lasrerr.EngineFailure(op, err)
}
