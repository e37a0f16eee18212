package hclconfig

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
	"github.com/vk/lasrgo/internal/stageid"
	"github.com/zclconf/go-cty/cty"
)

// Label returns the name a stage is written under.
func Label(id stageid.ID) string { return "stage_" + id.String() }

// Write renders p in the format Load reads. Stages are written in dependency
// order, each named by Label, and placeholder outputs are written as their
// resolved paths.
func Write(p *pipeline.Pipeline) ([]byte, error) {
	g, err := p.Graph()
	if err != nil {
		return nil, err
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*stage.Stage, p.Len())
	for _, s := range p.Stages() {
		byID[s.ID().String()] = s
	}

	f := hclwrite.NewEmptyFile()
	root := f.Body()
	writeProcessing(root.AppendNewBlock(processingBlockType, nil).Body(), p)

	for _, id := range order {
		s := byID[id]
		root.AppendNewline()
		body := root.AppendNewBlock(stageBlockType, []string{s.Algoname(), Label(s.ID())}).Body()
		if out := s.Output(); out != "" {
			body.SetAttributeValue(stage.FieldOutput, cty.StringVal(out))
		}
		if filter := s.Filter(); filter != "" {
			body.SetAttributeValue(stage.FieldFilter, cty.StringVal(filter))
		}

		var failed error
		s.Args().Range(func(key string, v argval.Value) bool {
			if ref, ok := v.AsRef(); ok {
				body.SetAttributeTraversal(key, hcl.Traversal{
					hcl.TraverseRoot{Name: stageRoot},
					hcl.TraverseAttr{Name: Label(ref)},
				})
				return true
			}
			if !v.IsValid() {
				failed = fmt.Errorf("stage %s (%s): argument %q has no value", s.ID(), s.Algoname(), key)
				return false
			}
			body.SetAttributeValue(key, v.Cty())
			return true
		})
		if failed != nil {
			return nil, failed
		}
	}
	return f.Bytes(), nil
}

func writeProcessing(body *hclwrite.Body, p *pipeline.Pipeline) {
	proc := p.Processing()
	body.SetAttributeValue("strategy", cty.StringVal(string(proc.Strategy)))

	cores := make([]cty.Value, len(proc.NCores))
	for i, n := range proc.NCores {
		cores[i] = cty.NumberIntVal(int64(n))
	}
	if len(cores) > 0 {
		body.SetAttributeValue("ncores", cty.TupleVal(cores))
	}
	body.SetAttributeValue("buffer", cty.NumberFloatVal(proc.Buffer))
	body.SetAttributeValue("chunk", cty.NumberFloatVal(proc.Chunk))
	body.SetAttributeValue("progress", cty.BoolVal(proc.Progress))
	body.SetAttributeValue("verbose", cty.BoolVal(proc.Verbose))
	if proc.ProfileFile != "" {
		body.SetAttributeValue("profile_file", cty.StringVal(proc.ProfileFile))
	}
	if files := p.Files(); len(files) > 0 {
		vals := make([]cty.Value, len(files))
		for i, f := range files {
			vals[i] = cty.StringVal(f)
		}
		body.SetAttributeValue("files", cty.ListVal(vals))
	}
	if mask := p.NoProcess(); len(mask) > 0 {
		vals := make([]cty.Value, len(mask))
		for i, b := range mask {
			vals[i] = cty.BoolVal(b)
		}
		body.SetAttributeValue("noprocess", cty.ListVal(vals))
	}
}
