package registry

import (
	"slices"

	"github.com/vk/lasrgo/internal/stage"
)

// Role declares one connection a stage kind accepts. A target satisfies the
// role when its kind or its algoname is listed; a role listing neither
// accepts any stage.
type Role struct {
	Name      string
	Kinds     []stage.Kind
	Algonames []string
	Optional  bool
}

// Accepts reports whether target may be connected under r.
func (r Role) Accepts(target *stage.Stage) bool {
	if len(r.Kinds) == 0 && len(r.Algonames) == 0 {
		return true
	}
	return slices.Contains(r.Kinds, target.Kind()) || slices.Contains(r.Algonames, target.Algoname())
}

// Expectation renders what the role accepts, for error messages.
func (r Role) Expectation() string {
	var parts []string
	for _, k := range r.Kinds {
		parts = append(parts, "a "+k.String()+" stage")
	}
	for _, a := range r.Algonames {
		parts = append(parts, "a "+a+" stage")
	}
	switch len(parts) {
	case 0:
		return "any stage"
	case 1:
		return parts[0]
	}
	out := parts[0]
	for _, p := range parts[1 : len(parts)-1] {
		out += ", " + p
	}
	return out + " or " + parts[len(parts)-1]
}

// PointData decides whether a stage needs the engine to read point clouds.
type PointData func(s *stage.Stage) bool

// Always needs point data.
func Always(*stage.Stage) bool { return true }

// Never needs point data.
func Never(*stage.Stage) bool { return false }

// WhenArg needs point data when the boolean argument key is true.
func WhenArg(key string) PointData {
	return func(s *stage.Stage) bool {
		v, ok := s.Arg(key)
		if !ok {
			return false
		}
		b, _ := v.AsBool()
		return b
	}
}

// UnlessConnected needs point data unless the stage reads from another stage.
func UnlessConnected(s *stage.Stage) bool {
	return !s.HasArg(stage.RoleConnect)
}

// Definition holds the declared properties of one stage kind.
type Definition struct {
	Algoname string
	// Output is the kind a stage of this algoname produces.
	Output stage.Kind
	// Reader marks stages that read point clouds into the pipeline.
	Reader bool
	// PointData is nil for stages that always need point data.
	PointData PointData
	Roles     []Role
}

// NeedsPoints evaluates the point-data declaration for s.
func (d *Definition) NeedsPoints(s *stage.Stage) bool {
	if d.PointData == nil {
		return true
	}
	return d.PointData(s)
}

// Role returns the declared role named name.
func (d *Definition) Role(name string) (Role, bool) {
	for _, r := range d.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}
