// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vk/lasrgo/internal/argval"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/stage"
)

// Descriptor is a read-only view of an encoded pipeline: the processing
// block plus the stage records in document order.
type Descriptor struct {
	Processing Processing
	Stages     []*argval.Map
}

// FromJSON parses an engine document. The pipeline block may be the ordered
// list of records or the older object keyed by algoname; in the latter form
// a record missing its algoname takes it from its key.
func FromJSON(data []byte) (*Descriptor, error) {
	var raw struct {
		Processing *Processing     `json:"processing"`
		Pipeline   json.RawMessage `json:"pipeline"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, lasrerr.InvalidArgument("decode pipeline document: %v", err)
	}

	d := &Descriptor{Processing: DefaultProcessing()}
	if raw.Processing != nil {
		if st := raw.Processing.Strategy; st != "" && !st.Valid() {
			return nil, lasrerr.InvalidArgument("unknown strategy %q", st)
		}
		d.Processing = *raw.Processing
	}

	body := bytes.TrimSpace(raw.Pipeline)
	switch {
	case len(body) == 0 || bytes.Equal(body, []byte("null")):
	case body[0] == '[':
		if err := json.Unmarshal(body, &d.Stages); err != nil {
			return nil, lasrerr.InvalidArgument("decode pipeline stages: %v", err)
		}
	case body[0] == '{':
		recs, err := decodeKeyed(body)
		if err != nil {
			return nil, lasrerr.InvalidArgument("decode pipeline stages: %v", err)
		}
		d.Stages = recs
	default:
		return nil, lasrerr.InvalidArgument("pipeline must be a list or an object of stage records")
	}

	for i, rec := range d.Stages {
		if rec == nil {
			return nil, lasrerr.InvalidArgument("stage record %d is null", i)
		}
		name, _ := rec.Get(stage.FieldAlgoname)
		if s, ok := name.AsString(); !ok || s == "" {
			return nil, lasrerr.InvalidArgument("stage record %d has no algoname", i)
		}
	}
	return d, nil
}

func decodeKeyed(body []byte) ([]*argval.Map, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var recs []*argval.Map
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}
		rec := argval.NewMap()
		if err := dec.Decode(rec); err != nil {
			return nil, fmt.Errorf("stage %q: %w", key, err)
		}
		if !rec.Has(stage.FieldAlgoname) {
			rec.Set(stage.FieldAlgoname, argval.String(key))
		}
		recs = append(recs, rec)
	}
	_, err := dec.Token()
	return recs, err
}

// Names returns the algoname of every record in order.
func (d *Descriptor) Names() []string {
	names := make([]string, len(d.Stages))
	for i, rec := range d.Stages {
		v, _ := rec.Get(stage.FieldAlgoname)
		names[i], _ = v.AsString()
	}
	return names
}

// ToJSON re-encodes the descriptor in the list form.
func (d *Descriptor) ToJSON() ([]byte, error) {
	doc := document{Processing: d.Processing, Pipeline: d.Stages}
	if doc.Pipeline == nil {
		doc.Pipeline = []*argval.Map{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, lasrerr.InvalidArgument("encode descriptor: %v", err)
	}
	return b, nil
}
