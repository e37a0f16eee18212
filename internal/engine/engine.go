package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Engine runs pipeline documents.
type Engine interface {
	// Process runs the document and returns the engine's answer. A returned
	// error means the engine could not be reached or its answer could not be
	// read; an engine that ran and failed answers with Success=false.
	Process(ctx context.Context, doc []byte) (*Response, error)

	// Info asks the engine how it would run the document without reading
	// any point.
	Info(ctx context.Context, doc []byte) (*Info, error)
}

// Response is the answer to a process request.
type Response struct {
	Success bool             `json:"success"`
	Data    []map[string]any `json:"data"`
	Message string           `json:"message,omitempty"`
}

// Info describes how the engine would execute a pipeline.
type Info struct {
	Streamable     bool    `json:"streamable"`
	ReadPoints     bool    `json:"read_points"`
	Buffer         float64 `json:"buffer"`
	Parallelizable bool    `json:"parallelizable"`
	Parallelized   bool    `json:"parallelized"`
	RAPI           bool    `json:"R_API"`
}

// DecodeResponse parses a process answer. The answer must be a JSON object
// carrying a boolean success field. A single data object is accepted in
// place of a list.
func DecodeResponse(b []byte) (*Response, error) {
	var raw struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	if err := decodeObject(b, &raw); err != nil {
		return nil, err
	}
	if raw.Success == nil {
		return nil, fmt.Errorf("answer has no success field")
	}

	resp := &Response{Success: *raw.Success, Message: raw.Message}
	data := bytes.TrimSpace(raw.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
	case data[0] == '{':
		var one map[string]any
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("answer data: %w", err)
		}
		resp.Data = []map[string]any{one}
	default:
		if err := json.Unmarshal(data, &resp.Data); err != nil {
			return nil, fmt.Errorf("answer data: %w", err)
		}
	}
	return resp, nil
}

// DecodeInfo parses an info answer.
func DecodeInfo(b []byte) (*Info, error) {
	var info Info
	if err := decodeObject(b, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func decodeObject(b []byte, v any) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return fmt.Errorf("answer is not a JSON object: %q", truncate(b, 200))
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("answer is not valid JSON: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
