// Copyright fmforge, 2026. All rights reserved.

package fm

import (
	"encoding/json"
	"fmt"
)

// jsonModelDoc is the flat JSON document form of a model. Features appear
// in insertion order, parents before children.
type jsonModelDoc struct {
	Root     string    `json:"root"`
	Features []Feature `json:"features"`
}

// EncodeJSON serializes the model as an indented JSON document. Feature
// order is insertion order, so output is deterministic.
func EncodeJSON(m *Model) ([]byte, error) {
	doc := jsonModelDoc{Root: m.RootID(), Features: m.Features()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding feature model JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeJSON parses a JSON model document, enforcing the same structural
// invariants as DecodeXML. The listed children arrays are ignored and
// recomputed from parent references.
func DecodeJSON(data []byte) (*Model, error) {
	var doc jsonModelDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing feature model JSON: %w", err)
	}
	if len(doc.Features) == 0 {
		return nil, fmt.Errorf("parsing feature model JSON: no features")
	}
	rootFeat := doc.Features[0]
	if rootFeat.Parent != "" {
		return nil, fmt.Errorf("parsing feature model JSON: first feature %q is not a root", rootFeat.ID)
	}

	m := NewModel(rootFeat.Name)
	if doc.Root != "" && doc.Root != m.RootID() {
		return nil, fmt.Errorf("parsing feature model JSON: root %q does not match feature %q", doc.Root, m.RootID())
	}
	if rootFeat.Provenance.Origin != "" {
		m.feats[m.root].Provenance = rootFeat.Provenance
	}

	for _, f := range doc.Features[1:] {
		nf := f
		nf.Children = nil
		if nf.Provenance.Origin == "" {
			nf.Provenance.Origin = OriginSeed
		}
		if err := m.AddFeature(nf); err != nil {
			return nil, fmt.Errorf("parsing feature model JSON: %w", err)
		}
	}
	return m, nil
}

// MarshalJSON implements json.Marshaler.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonModelDoc{Root: m.RootID(), Features: m.Features()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Model) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}
