package hclconfig

import "github.com/hashicorp/hcl/v2"

const (
	processingBlockType = "processing"
	stageBlockType      = "stage"
	stageRoot           = "stage"
)

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: processingBlockType},
		{Type: stageBlockType, LabelNames: []string{"algoname", "name"}},
	},
}

// processingBlock is decoded with gohcl; nil fields keep the pipeline default.
type processingBlock struct {
	Strategy    *string  `hcl:"strategy,optional"`
	NCores      []int    `hcl:"ncores,optional"`
	Buffer      *float64 `hcl:"buffer,optional"`
	Chunk       *float64 `hcl:"chunk,optional"`
	Progress    *bool    `hcl:"progress,optional"`
	Verbose     *bool    `hcl:"verbose,optional"`
	ProfileFile *string  `hcl:"profile_file,optional"`
	Files       []string `hcl:"files,optional"`
	NoProcess   []bool   `hcl:"noprocess,optional"`
}

// findUniqueBlock returns the only block of type name, or nil when there is
// none. Duplicates are reported.
func findUniqueBlock(blocks hcl.Blocks, name string) (*hcl.Block, hcl.Diagnostics) {
	var found *hcl.Block
	var diags hcl.Diagnostics

	for _, block := range blocks {
		if block.Type != name {
			continue
		}
		if found != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate \"" + name + "\" block",
				Detail:   "Only one \"" + name + "\" block is allowed.",
				Subject:  &block.DefRange,
			})
			continue
		}
		found = block
	}
	return found, diags
}
