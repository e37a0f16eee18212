package executor

import (
	"context"

	"github.com/vk/lasrgo/internal/pipeline"
)

// Outcome is what Submit delivers: either a Result or the error Execute
// returned.
type Outcome struct {
	Result *Result
	Err    error
}

// Submit runs Execute in the background. The returned channel receives
// exactly one Outcome and is then closed. The stage list and options of p
// are copied first, so the caller may keep composing it. Cancelling ctx
// before dispatch stops the execution with ctx.Err().
func (e *Executor) Submit(ctx context.Context, p *pipeline.Pipeline, inputs ...string) <-chan Outcome {
	snapshot := p.Clone()
	args := append([]string(nil), inputs...)

	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		res, err := e.Execute(ctx, snapshot, args...)
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}
