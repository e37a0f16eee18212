package hclconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/ctxlog"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/registry"
	"github.com/vk/lasrgo/internal/stage"
)

// LoadFile reads and parses the pipeline file at path.
func LoadFile(ctx context.Context, path string, reg *registry.Registry) (*pipeline.Pipeline, error) {
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, lasrerr.PathNotFound(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read pipeline %s: %w", path, err)
	}
	return Load(ctx, path, src, reg)
}

// Load parses src as a pipeline file; filename only appears in diagnostics.
// Output kinds come from the definitions in reg, which may be nil.
//
// Parse and decode problems are returned as hcl.Diagnostics wrapped in
// lasrerr.ErrInvalidArgument.
func Load(ctx context.Context, filename string, src []byte, reg *registry.Registry) (*pipeline.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing HCL pipeline.", "file", filename, "bytes", len(src))

	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, invalid(diags)
	}
	content, diags := file.Body.Content(rootSchema)
	if diags.HasErrors() {
		return nil, invalid(diags)
	}

	l := &loader{
		reg:      reg,
		declared: make(map[string]*stage.Stage),
		labels:   make(map[string]*hcl.Block),
	}
	for _, block := range content.Blocks {
		if block.Type != stageBlockType {
			continue
		}
		name := block.Labels[1]
		if prev, dup := l.labels[name]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate stage name",
				Detail:   fmt.Sprintf("A stage named %q was already declared at %s.", name, prev.DefRange),
				Subject:  block.LabelRanges[1].Ptr(),
			})
			continue
		}
		l.labels[name] = block
	}
	if diags.HasErrors() {
		return nil, invalid(diags)
	}

	p := pipeline.New()
	for _, block := range content.Blocks {
		if block.Type != stageBlockType {
			continue
		}
		s, stageDiags := l.stage(block)
		diags = append(diags, stageDiags...)
		if s == nil {
			continue
		}
		l.declared[block.Labels[1]] = s
		p.AppendStage(s)
	}

	procBlock, procDiags := findUniqueBlock(content.Blocks, processingBlockType)
	diags = append(diags, procDiags...)
	if procBlock != nil {
		diags = append(diags, applyProcessing(p, procBlock)...)
	}

	if diags.HasErrors() {
		return nil, invalid(diags)
	}
	logger.Debug("Loaded HCL pipeline.", "file", filename, "stages", p.Len())
	return p, nil
}

func invalid(diags hcl.Diagnostics) error {
	return fmt.Errorf("%w: %w", lasrerr.ErrInvalidArgument, diags)
}

type loader struct {
	reg      *registry.Registry
	declared map[string]*stage.Stage
	labels   map[string]*hcl.Block
}

func (l *loader) stage(block *hcl.Block) (*stage.Stage, hcl.Diagnostics) {
	algoname := block.Labels[0]
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	var opts []stage.Option
	if l.reg != nil {
		if def, ok := l.reg.Lookup(algoname); ok {
			opts = append(opts, stage.WithKind(def.Output))
		}
	}

	var rest []*hcl.Attribute
	for _, a := range ordered {
		switch a.Name {
		case stage.FieldAlgoname, stage.FieldUID:
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Reserved attribute",
				Detail:   fmt.Sprintf("%q is set from the block labels and cannot be assigned.", a.Name),
				Subject:  a.NameRange.Ptr(),
			})
		case stage.FieldOutput:
			if v, d := stringAttr(a); !d.HasErrors() {
				opts = append(opts, stage.WithOutput(v))
			} else {
				diags = append(diags, d...)
			}
		case stage.FieldFilter:
			if v, d := stringAttr(a); !d.HasErrors() {
				opts = append(opts, stage.WithFilter(v))
			} else {
				diags = append(diags, d...)
			}
		default:
			rest = append(rest, a)
		}
	}

	s, err := stage.New(algoname, opts...)
	if err != nil {
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid stage",
			Detail:   err.Error(),
			Subject:  block.LabelRanges[0].Ptr(),
		})
	}

	for _, a := range rest {
		if stage.IsRole(a.Name) {
			target, d := l.resolveRef(a.Expr)
			diags = append(diags, d...)
			if target != nil {
				s.Connect(a.Name, target)
			}
			continue
		}

		val, d := a.Expr.Value(nil)
		if d.HasErrors() {
			diags = append(diags, d...)
			continue
		}
		v, err := argval.FromCty(val)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported argument value",
				Detail:   err.Error(),
				Subject:  a.Expr.Range().Ptr(),
			})
			continue
		}
		s.SetArg(a.Name, v)
	}
	return s, diags
}

func stringAttr(a *hcl.Attribute) (string, hcl.Diagnostics) {
	var out string
	diags := gohcl.DecodeExpression(a.Expr, nil, &out)
	return out, diags
}

// resolveRef turns a stage.<name> traversal into the stage declared under
// that name.
func (l *loader) resolveRef(expr hcl.Expression) (*stage.Stage, hcl.Diagnostics) {
	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() || len(traversal) != 2 || traversal.RootName() != stageRoot {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid stage reference",
			Detail:   "A connection must be a reference of the form stage.<name>.",
			Subject:  expr.Range().Ptr(),
		}}
	}
	step, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid stage reference",
			Detail:   fmt.Sprintf("%s does not name a stage.", formatTraversal(traversal)),
			Subject:  expr.Range().Ptr(),
		}}
	}

	if target, ok := l.declared[step.Name]; ok {
		return target, nil
	}
	if later, ok := l.labels[step.Name]; ok {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Reference to a later stage",
			Detail:   fmt.Sprintf("%s is declared at %s, after the stage referencing it. Stages can only connect to stages declared before them.", formatTraversal(traversal), later.DefRange),
			Subject:  expr.Range().Ptr(),
		}}
	}
	return nil, hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Reference to undeclared stage",
		Detail:   fmt.Sprintf("No stage is named %q.", step.Name),
		Subject:  expr.Range().Ptr(),
	}}
}

// formatTraversal renders a traversal the way it was written, e.g. stage.tin.
func formatTraversal(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

func applyProcessing(p *pipeline.Pipeline, block *hcl.Block) hcl.Diagnostics {
	var pb processingBlock
	if diags := gohcl.DecodeBody(block.Body, nil, &pb); diags.HasErrors() {
		return diags
	}

	proc := pipeline.DefaultProcessing()
	if pb.Strategy != nil {
		proc.Strategy = pipeline.Strategy(*pb.Strategy)
	}
	if pb.NCores != nil {
		proc.NCores = pipeline.Cores(pb.NCores)
	}
	if pb.Buffer != nil {
		proc.Buffer = *pb.Buffer
	}
	if pb.Chunk != nil {
		proc.Chunk = *pb.Chunk
	}
	if pb.Progress != nil {
		proc.Progress = *pb.Progress
	}
	if pb.Verbose != nil {
		proc.Verbose = *pb.Verbose
	}
	if pb.ProfileFile != nil {
		proc.ProfileFile = *pb.ProfileFile
	}

	problem := func(err error) hcl.Diagnostics {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid processing options",
			Detail:   err.Error(),
			Subject:  block.DefRange.Ptr(),
		}}
	}
	if err := p.SetProcessing(proc); err != nil {
		return problem(err)
	}
	if pb.Files != nil {
		p.SetFiles(pb.Files)
	}
	if pb.NoProcess != nil {
		if err := p.SetNoProcess(pb.NoProcess); err != nil {
			return problem(err)
		}
	}
	return nil
}
