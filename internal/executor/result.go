package executor

import (
	"fmt"

	"github.com/vk/lasrgo/internal/engine"
	"github.com/vk/lasrgo/internal/lasrerr"
)

// Result is the outcome of an execution the engine answered.
//
// On success Data holds one entry per stage that produced a result and
// Message is empty. On failure Data is nil and Message explains what the
// engine rejected. JSONConfig is the path of the document that was sent.
type Result struct {
	Success    bool             `json:"success"`
	Data       []map[string]any `json:"data"`
	Message    string           `json:"message,omitempty"`
	JSONConfig string           `json:"json_config"`
}

func newResult(resp *engine.Response, configPath string) *Result {
	if resp.Success {
		return &Result{Success: true, Data: resp.Data, JSONConfig: configPath}
	}
	msg := resp.Message
	if msg == "" {
		msg = "the engine did not give a reason"
	}
	return &Result{Success: false, Message: msg, JSONConfig: configPath}
}

// Failure returns nil for a successful result and otherwise an error
// wrapping lasrerr.ErrStructuredFailure with the engine's message.
func (r *Result) Failure() error {
	if r == nil || r.Success {
		return nil
	}
	return fmt.Errorf("%w: %s", lasrerr.ErrStructuredFailure, r.Message)
}
