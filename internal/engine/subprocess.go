package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vk/lasrgo/internal/ctxlog"
	"github.com/vk/lasrgo/internal/lasrerr"
)

// waitDelay bounds how long a cancelled engine may keep its output open.
const waitDelay = 2 * time.Second

// Subprocess runs the engine binary once per request as
//
//	<binary> process <document.json>
//	<binary> info <document.json>
//
// and reads the answer from its standard output. The document is written to
// a temporary file that is removed afterwards.
type Subprocess struct {
	Binary string
	// Dir holds the temporary documents; empty means os.TempDir().
	Dir string
	// Env is appended to the current environment of the child.
	Env []string
}

var _ Engine = (*Subprocess)(nil)

// NewSubprocess returns a Subprocess running binary.
func NewSubprocess(binary string) *Subprocess {
	return &Subprocess{Binary: binary}
}

// Process implements Engine.
func (s *Subprocess) Process(ctx context.Context, doc []byte) (*Response, error) {
	out, err := s.run(ctx, "process", doc)
	if err != nil {
		return nil, err
	}
	resp, err := decodeLast(out, DecodeResponse)
	if err != nil {
		return nil, lasrerr.EngineFailure("process", err)
	}
	return resp, nil
}

// Info implements Engine.
func (s *Subprocess) Info(ctx context.Context, doc []byte) (*Info, error) {
	out, err := s.run(ctx, "info", doc)
	if err != nil {
		return nil, err
	}
	info, err := decodeLast(out, DecodeInfo)
	if err != nil {
		return nil, lasrerr.EngineFailure("info", err)
	}
	return info, nil
}

func (s *Subprocess) run(ctx context.Context, op string, doc []byte) ([]byte, error) {
	logger := ctxlog.FromContext(ctx).With("engine", "subprocess", "op", op, "binary", s.Binary)

	if s.Binary == "" {
		return nil, lasrerr.EngineFailure(op, errors.New("no engine binary configured"))
	}

	f, err := os.CreateTemp(s.Dir, "lasr-*.json")
	if err != nil {
		return nil, lasrerr.EngineFailure(op, err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(doc); err != nil {
		f.Close()
		return nil, lasrerr.EngineFailure(op, err)
	}
	if err := f.Close(); err != nil {
		return nil, lasrerr.EngineFailure(op, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.Binary, op, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}

	start := time.Now()
	logger.Debug("Starting engine process.", "document", path)
	err = cmd.Run()
	logger.Debug("Engine process finished.", "duration", time.Since(start), "stdout_bytes", stdout.Len(), "error", err)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", op, ctxErr)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, lasrerr.EngineFailure(op, err)
	}
	return stdout.Bytes(), nil
}

// decodeLast decodes out, falling back to its last non-empty line when the
// engine printed log lines before the answer.
func decodeLast[T any](out []byte, decode func([]byte) (*T, error)) (*T, error) {
	v, err := decode(out)
	if err == nil {
		return v, nil
	}
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) < 2 {
		return nil, err
	}
	if v, lastErr := decode(lines[len(lines)-1]); lastErr == nil {
		return v, nil
	}
	return nil, err
}
