// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package stage

import (
	"fmt"
	"strings"

	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/stageid"
)

// Connection roles. A single-input consumer uses RoleConnect, binary consumers
// use RoleConnect1 and RoleConnect2.
const (
	RoleConnect  = "connect"
	RoleConnect1 = "connect1"
	RoleConnect2 = "connect2"
)

// Fixed record fields. They always win over an argument of the same name.
const (
	FieldAlgoname = "algoname"
	FieldOutput   = "output"
	FieldFilter   = "filter"
	FieldUID      = "uid"
)

var fixedFields = []string{FieldAlgoname, FieldOutput, FieldFilter, FieldUID}

// IsFixedField reports whether key is one of the record fields owned by the
// stage itself.
func IsFixedField(key string) bool {
	for _, f := range fixedFields {
		if f == key {
			return true
		}
	}
	return false
}

// IsRole reports whether key names a connection role.
func IsRole(key string) bool {
	return key == RoleConnect || key == RoleConnect1 || key == RoleConnect2
}

// Stage is one named operation. Its id and kind are fixed at construction.
type Stage struct {
	algoname string
	id       stageid.ID
	output   Output
	filter   string
	kind     Kind
	args     *argval.Map
}

// Option customizes a Stage at construction.
type Option func(*Stage)

// WithOutput sets an explicit output path.
func WithOutput(path string) Option {
	return func(s *Stage) { s.output = Path(path) }
}

// WithPlaceholder gives the stage a temporary output with extension ext.
func WithPlaceholder(ext string) Option {
	return func(s *Stage) { s.output = Placeholder(ext) }
}

// WithFilter sets the engine point filter.
func WithFilter(expr string) Option {
	return func(s *Stage) { s.filter = expr }
}

// WithKind sets what the stage produces.
func WithKind(k Kind) Option {
	return func(s *Stage) { s.kind = k }
}

// New constructs a stage. The algoname is required.
func New(algoname string, opts ...Option) (*Stage, error) {
	if strings.TrimSpace(algoname) == "" {
		return nil, lasrerr.InvalidArgument("stage algoname must not be empty")
	}
	s := &Stage{algoname: algoname, id: stageid.New(), args: argval.NewMap()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Stage) Algoname() string   { return s.algoname }
func (s *Stage) ID() stageid.ID     { return s.id }
func (s *Stage) Filter() string     { return s.filter }
func (s *Stage) Kind() Kind         { return s.kind }
func (s *Stage) OutputSpec() Output { return s.output }

// Output returns the concrete output path, resolving a placeholder.
func (s *Stage) Output() string { return s.output.Resolve(s.id) }

// SetArg stores an argument. Overwriting keeps the original position.
func (s *Stage) SetArg(key string, v argval.Value) {
	s.args.Set(key, v)
}

// Arg returns the argument stored under key.
func (s *Stage) Arg(key string) (argval.Value, bool) { return s.args.Get(key) }

// HasArg reports whether key was set.
func (s *Stage) HasArg(key string) bool { return s.args.Has(key) }

// Args returns a copy of the argument bag.
func (s *Stage) Args() *argval.Map { return s.args.Clone() }

// Connect points role at target.
func (s *Stage) Connect(role string, target *Stage) {
	s.args.Set(role, argval.Ref(target.id))
}

// Connection is an edge from a consumer to the stage it reads from.
type Connection struct {
	Role   string
	Target stageid.ID
}

// Connections lists every reference argument in insertion order.
func (s *Stage) Connections() []Connection {
	var out []Connection
	s.args.Range(func(k string, v argval.Value) bool {
		if id, ok := v.AsRef(); ok {
			out = append(out, Connection{Role: k, Target: id})
		}
		return true
	})
	return out
}

// Record flattens the stage into the shape the engine reads: the fixed
// fields first, then the arguments. Arguments colliding with a fixed field
// are dropped.
func (s *Stage) Record() *argval.Map {
	rec := argval.NewMap()
	rec.Set(FieldAlgoname, argval.String(s.algoname))
	rec.Set(FieldOutput, argval.String(s.Output()))
	rec.Set(FieldFilter, argval.String(s.filter))
	rec.Set(FieldUID, argval.String(s.id.String()))
	s.args.Range(func(k string, v argval.Value) bool {
		if !IsFixedField(k) {
			rec.Set(k, v)
		}
		return true
	})
	return rec
}

// Describe renders the stage for humans. The output is deterministic.
func (s *Stage) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stage: %s\n", s.algoname)
	fmt.Fprintf(&b, "  uid:    %s\n", s.id)
	fmt.Fprintf(&b, "  output: %s\n", s.Output())
	fmt.Fprintf(&b, "  filter: %s\n", s.filter)
	fmt.Fprintf(&b, "  raster: %t  vector: %t  matrix: %t\n",
		s.kind == KindRaster, s.kind == KindVector, s.kind == KindMatrix)
	if s.args.Len() > 0 {
		b.WriteString("  args:\n")
		s.args.Range(func(k string, v argval.Value) bool {
			fmt.Fprintf(&b, "    %s = %s\n", k, v)
			return true
		})
	}
	return b.String()
}

func (s *Stage) String() string { return s.Describe() }

// Source is anything that stands for exactly one stage: a stage itself or a
// single-stage pipeline.
type Source interface {
	Single() (*Stage, error)
}

// Single returns s itself.
func (s *Stage) Single() (*Stage, error) { return s, nil }

// Clone returns a copy with the same identity and an independent argument
// bag. It is used when a finalized pipeline needs to adjust a stage without
// touching the caller's instance.
func (s *Stage) Clone() *Stage {
	c := *s
	c.args = s.args.Clone()
	return &c
}
