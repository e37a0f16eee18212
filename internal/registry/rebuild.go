package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/ctxlog"
	"github.com/vk/lasrgo/internal/dag"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stage"
)

// Rebuild reconstructs an executable pipeline from a descriptor. Every stage
// gets a fresh id and connections are remapped to the new ids. A catalog
// stage is folded back into the file list and options; everything else keeps
// its document order. The output kind comes from the registered definition,
// so stages with an unknown algoname are rebuilt without one.
func (r *Registry) Rebuild(ctx context.Context, desc *pipeline.Descriptor) (*pipeline.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)

	type pending struct {
		rec *argval.Map
		uid string
	}

	g := dag.New()
	items := make([]pending, 0, len(desc.Stages))
	var catalog *argval.Map
	for i, rec := range desc.Stages {
		if name(rec) == pipeline.CatalogAlgoname {
			catalog = rec
			continue
		}
		uid := field(rec, stage.FieldUID)
		if uid == "" {
			uid = fmt.Sprintf("#%d", i)
		}
		if g.Has(uid) {
			return nil, lasrerr.InvalidArgument("stage uid %s appears more than once", uid)
		}
		g.AddNode(uid)
		items = append(items, pending{rec: rec, uid: uid})
	}

	for _, it := range items {
		for _, key := range it.rec.Keys() {
			if !stage.IsRole(key) {
				continue
			}
			target := field(it.rec, key)
			if target == "" {
				continue
			}
			err := g.AddEdge(target, it.uid)
			if errors.Is(err, dag.ErrNodeNotFound) {
				return nil, fmt.Errorf("%w: %s of stage %s (%s) points at %s, which is not in the document",
					lasrerr.ErrUnresolvedConnection, key, it.uid, name(it.rec), target)
			}
			if err != nil {
				return nil, lasrerr.InvalidArgument("%v", err)
			}
		}
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, lasrerr.InvalidArgument("%v", err)
	}

	byUID := make(map[string]pending, len(items))
	for _, it := range items {
		byUID[it.uid] = it
	}
	built := make(map[string]*stage.Stage, len(items))
	for _, uid := range order {
		s, err := r.rebuildStage(byUID[uid].rec, built)
		if err != nil {
			return nil, err
		}
		built[uid] = s
	}

	p := pipeline.New()
	for _, it := range items {
		p.AppendStage(built[it.uid])
	}
	if err := p.SetProcessing(desc.Processing); err != nil {
		return nil, err
	}
	if catalog != nil {
		if err := applyCatalog(p, catalog); err != nil {
			return nil, err
		}
	}

	logger.Debug("Rebuilt pipeline from descriptor.", "stages", p.Len())
	return p, nil
}

func (r *Registry) rebuildStage(rec *argval.Map, built map[string]*stage.Stage) (*stage.Stage, error) {
	algoname := name(rec)

	var opts []stage.Option
	if out := field(rec, stage.FieldOutput); out != "" {
		opts = append(opts, stage.WithOutput(out))
	}
	if f := field(rec, stage.FieldFilter); f != "" {
		opts = append(opts, stage.WithFilter(f))
	}
	if def, ok := r.Lookup(algoname); ok {
		opts = append(opts, stage.WithKind(def.Output))
	}

	s, err := stage.New(algoname, opts...)
	if err != nil {
		return nil, err
	}

	var failed error
	rec.Range(func(key string, v argval.Value) bool {
		switch {
		case stage.IsFixedField(key):
		case stage.IsRole(key) && field(rec, key) == "":
		case stage.IsRole(key):
			target, ok := built[field(rec, key)]
			if !ok {
				failed = fmt.Errorf("%w: %s of %s", lasrerr.ErrUnresolvedConnection, key, algoname)
				return false
			}
			s.Connect(key, target)
		default:
			s.SetArg(key, v)
		}
		return true
	})
	return s, failed
}

func applyCatalog(p *pipeline.Pipeline, rec *argval.Map) error {
	if v, ok := rec.Get("files"); ok {
		files, ok := v.AsStrings()
		if !ok {
			return lasrerr.InvalidArgument("%s files must be a list of strings, got %s", pipeline.CatalogAlgoname, v.Kind())
		}
		p.SetFiles(files)
	}
	if v, ok := rec.Get("noprocess"); ok {
		mask, ok := v.AsBools()
		if !ok {
			return lasrerr.InvalidArgument("%s noprocess must be a list of booleans, got %s", pipeline.CatalogAlgoname, v.Kind())
		}
		return p.SetNoProcess(mask)
	}
	return nil
}

func name(rec *argval.Map) string { return field(rec, stage.FieldAlgoname) }

func field(rec *argval.Map, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.AsString()
	return s
}
