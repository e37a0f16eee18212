package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/lasrgo/internal/ctxlog"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
	"github.com/vk/lasrgo/internal/stageid"
)

// Validate checks every connection of p against the declared roles of its
// consumer: required roles must be present, undeclared roles are rejected,
// and each target must be of an accepted kind or algoname. Stages with an
// unknown algoname are passed through to the engine unchecked.
func (r *Registry) Validate(ctx context.Context, p *pipeline.Pipeline) error {
	logger := ctxlog.FromContext(ctx)

	if _, err := p.Graph(); err != nil {
		return err
	}

	byID := make(map[stageid.ID]*stage.Stage, p.Len())
	for _, s := range p.Stages() {
		byID[s.ID()] = s
	}

	var errs []error
	for _, s := range p.Stages() {
		def, ok := r.Lookup(s.Algoname())
		if !ok {
			logger.Warn("Stage has no registered definition; skipping connection checks.", "algoname", s.Algoname(), "uid", s.ID())
			continue
		}

		for _, role := range def.Roles {
			if !role.Optional && !s.HasArg(role.Name) {
				errs = append(errs, lasrerr.InvalidArgument("stage %s (%s) requires a %q connection", s.ID(), s.Algoname(), role.Name))
			}
		}

		for _, c := range s.Connections() {
			role, declared := def.Role(c.Role)
			if !declared {
				errs = append(errs, lasrerr.InvalidArgument("stage %s (%s) does not accept a %q connection", s.ID(), s.Algoname(), c.Role))
				continue
			}
			target := byID[c.Target]
			if !role.Accepts(target) {
				errs = append(errs, lasrerr.TypeMismatch("%s of stage %s (%s) must be %s, got %s (%s, %s)",
					c.Role, s.ID(), s.Algoname(), role.Expectation(), target.ID(), target.Algoname(), target.Kind()))
			}
		}
	}

	if len(errs) > 0 {
		logger.Debug("Pipeline validation failed.", "problems", len(errs))
		return joinErrors(errs)
	}
	return nil
}

// joinErrors keeps errors.Is working for every problem while printing them
// as a bulleted list.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.Error()
	}
	return &multiError{errs: errs, msg: fmt.Sprintf("pipeline validation failed:\n- %s", strings.Join(lines, "\n- "))}
}

type multiError struct {
	errs []error
	msg  string
}

func (m *multiError) Error() string   { return m.msg }
func (m *multiError) Unwrap() []error { return m.errs }
