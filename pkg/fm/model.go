// Copyright fmforge, 2026. All rights reserved.

// Package fm defines the feature model: a rooted tree of named features
// with per-feature variability, plus the fragment form produced by the
// generator and the XML/JSON codecs for both.
// Implements: docs/ARCHITECTURE § Feature Model.
package fm

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind is the variability of a feature relative to its parent.
type Kind string

const (
	// Mandatory features must be present whenever their parent is.
	Mandatory Kind = "mandatory"

	// Optional features may be omitted.
	Optional Kind = "optional"

	// OrMember features form an or-group with their group siblings:
	// at least one member must be selected.
	OrMember Kind = "or"

	// AltMember features form an alternative-group with their group
	// siblings: exactly one member must be selected.
	AltMember Kind = "alt"
)

// Valid reports whether k is one of the four defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case Mandatory, Optional, OrMember, AltMember:
		return true
	}
	return false
}

// Group reports whether k denotes membership in a sibling group.
func (k Kind) Group() bool {
	return k == OrMember || k == AltMember
}

// Origin records how a feature entered the model.
type Origin string

const (
	// OriginSeed marks the root feature supplied at model creation.
	OriginSeed Origin = "seed"

	// OriginGenerated marks features attached from parsed fragments.
	OriginGenerated Origin = "generated"

	// OriginOrphanRecovered marks features whose stated parent never
	// materialized and that were attached under the root instead.
	OriginOrphanRecovered Origin = "orphan-recovered"
)

// Provenance ties a feature back to the synthesis step that produced it.
type Provenance struct {
	// Origin is how the feature entered the model.
	Origin Origin `json:"origin" yaml:"origin"`

	// Iteration is the loop iteration that first introduced the feature.
	// The seed root carries iteration 0.
	Iteration int `json:"iteration" yaml:"iteration"`

	// Chunks lists the retrieval chunk ids in evidence when the feature
	// was generated.
	Chunks []string `json:"chunks,omitempty" yaml:"chunks,omitempty"`

	// Aliases lists surface names that were folded into this feature by
	// similarity matching, in the order they were seen.
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	// StatedParent is the surface name of the parent the generator
	// proposed but that had not materialized when the feature was
	// recovered under the root. Cleared once the feature is repaired.
	StatedParent string `json:"stated_parent,omitempty" yaml:"stated_parent,omitempty"`
}

// Feature is one node of the model tree.
type Feature struct {
	// ID is the stable identifier, a slug derived from the name at
	// insertion time. Unique within a model.
	ID string `json:"id" yaml:"id"`

	// Name is the display name, NFC-normalized.
	Name string `json:"name" yaml:"name"`

	// Parent is the parent feature id. Empty only for the root.
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`

	// Kind is the feature's variability relative to its parent. The root
	// is always mandatory.
	Kind Kind `json:"kind" yaml:"kind"`

	// Children lists child ids in insertion order.
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`

	// Provenance records where the feature came from.
	Provenance Provenance `json:"provenance" yaml:"provenance"`
}

// Model is a rooted feature tree. The zero value is not usable; construct
// with NewModel or a codec. Mutating methods validate their arguments, so
// a Model that was built through them always has a single root, unique
// ids, resolvable parents, and no cycles.
type Model struct {
	root  string
	feats map[string]*Feature
	order []string
}

// NewModel creates a model containing only the root feature named
// rootName. The root is mandatory with origin seed.
func NewModel(rootName string) *Model {
	rootName = norm.NFC.String(strings.TrimSpace(rootName))
	id := Slug(rootName)
	if id == "" {
		id = "root"
	}
	m := &Model{
		root:  id,
		feats: map[string]*Feature{},
	}
	m.feats[id] = &Feature{
		ID:   id,
		Name: rootName,
		Kind: Mandatory,
		Provenance: Provenance{
			Origin:    OriginSeed,
			Iteration: 0,
		},
	}
	m.order = append(m.order, id)
	return m
}

// RootID returns the root feature id.
func (m *Model) RootID() string {
	return m.root
}

// Root returns a copy of the root feature.
func (m *Model) Root() Feature {
	return *m.feats[m.root]
}

// Len returns the number of features in the model.
func (m *Model) Len() int {
	return len(m.feats)
}

// Has reports whether id names a feature in the model.
func (m *Model) Has(id string) bool {
	_, ok := m.feats[id]
	return ok
}

// Get returns a copy of the feature with the given id.
func (m *Model) Get(id string) (Feature, bool) {
	f, ok := m.feats[id]
	if !ok {
		return Feature{}, false
	}
	return *f, true
}

// IDs returns all feature ids in insertion order.
func (m *Model) IDs() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Features returns copies of all features in insertion order.
func (m *Model) Features() []Feature {
	out := make([]Feature, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.feats[id])
	}
	return out
}

// Leaves returns copies of all features without children, in insertion
// order. These form the exploration frontier of the synthesis loop.
func (m *Model) Leaves() []Feature {
	var out []Feature
	for _, id := range m.order {
		if len(m.feats[id].Children) == 0 {
			out = append(out, *m.feats[id])
		}
	}
	return out
}

// Depth returns the number of edges between id and the root, or -1 when
// id is not in the model. The root has depth 0.
func (m *Model) Depth(id string) int {
	f, ok := m.feats[id]
	if !ok {
		return -1
	}
	d := 0
	for f.Parent != "" {
		f = m.feats[f.Parent]
		d++
	}
	return d
}

// Walk visits every feature in preorder, children in insertion order,
// starting at the root. fn receives a copy of each feature and its depth.
func (m *Model) Walk(fn func(f Feature, depth int)) {
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		f := m.feats[id]
		fn(*f, depth)
		for _, c := range f.Children {
			visit(c, depth+1)
		}
	}
	visit(m.root, 0)
}

// AddFeature inserts f into the model. The feature's Children field is
// ignored; children attach themselves through their Parent field. The
// name is NFC-normalized. Fails when the id is empty or taken, the kind
// is invalid, or the parent does not exist.
func (m *Model) AddFeature(f Feature) error {
	if f.ID == "" {
		return fmt.Errorf("adding feature %q: empty id", f.Name)
	}
	if _, exists := m.feats[f.ID]; exists {
		return fmt.Errorf("adding feature %q: id %q already present", f.Name, f.ID)
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("adding feature %q: invalid kind %q", f.Name, f.Kind)
	}
	parent, ok := m.feats[f.Parent]
	if !ok {
		return fmt.Errorf("adding feature %q: parent %q not found", f.Name, f.Parent)
	}

	nf := f
	nf.Name = norm.NFC.String(strings.TrimSpace(f.Name))
	nf.Children = nil
	m.feats[nf.ID] = &nf
	m.order = append(m.order, nf.ID)
	parent.Children = append(parent.Children, nf.ID)
	return nil
}

// SetKind changes the variability of an existing feature. The root's
// kind cannot be changed.
func (m *Model) SetKind(id string, k Kind) error {
	f, ok := m.feats[id]
	if !ok {
		return fmt.Errorf("setting kind: feature %q not found", id)
	}
	if id == m.root {
		return fmt.Errorf("setting kind: %q is the root", id)
	}
	if !k.Valid() {
		return fmt.Errorf("setting kind: invalid kind %q", k)
	}
	f.Kind = k
	return nil
}

// AddAlias records a surface name folded into an existing feature.
// Duplicate aliases and the feature's own name are ignored.
func (m *Model) AddAlias(id, surface string) error {
	f, ok := m.feats[id]
	if !ok {
		return fmt.Errorf("adding alias: feature %q not found", id)
	}
	surface = norm.NFC.String(strings.TrimSpace(surface))
	if surface == "" || surface == f.Name {
		return nil
	}
	for _, a := range f.Provenance.Aliases {
		if a == surface {
			return nil
		}
	}
	f.Provenance.Aliases = append(f.Provenance.Aliases, surface)
	return nil
}

// AddChunks merges chunk ids into a feature's provenance, keeping first
// occurrence order.
func (m *Model) AddChunks(id string, chunks []string) error {
	f, ok := m.feats[id]
	if !ok {
		return fmt.Errorf("adding chunks: feature %q not found", id)
	}
	seen := map[string]bool{}
	for _, c := range f.Provenance.Chunks {
		seen[c] = true
	}
	for _, c := range chunks {
		if !seen[c] {
			f.Provenance.Chunks = append(f.Provenance.Chunks, c)
			seen[c] = true
		}
	}
	return nil
}

// RepairOrphan marks a recovered feature as properly attached: its
// origin becomes generated and the stated parent is cleared. Call after
// reparenting the feature to the parent it originally named.
func (m *Model) RepairOrphan(id string) error {
	f, ok := m.feats[id]
	if !ok {
		return fmt.Errorf("repairing orphan: feature %q not found", id)
	}
	f.Provenance.Origin = OriginGenerated
	f.Provenance.StatedParent = ""
	return nil
}

// ClearStatedParent drops an unrepairable stated parent, keeping the
// feature where it is.
func (m *Model) ClearStatedParent(id string) error {
	f, ok := m.feats[id]
	if !ok {
		return fmt.Errorf("clearing stated parent: feature %q not found", id)
	}
	f.Provenance.StatedParent = ""
	return nil
}

// Reparent moves a feature under a new parent. Fails when either id is
// unknown, the target is the feature itself or one of its descendants,
// or the feature is the root.
func (m *Model) Reparent(id, newParent string) error {
	f, ok := m.feats[id]
	if !ok {
		return fmt.Errorf("reparenting: feature %q not found", id)
	}
	if id == m.root {
		return fmt.Errorf("reparenting: %q is the root", id)
	}
	np, ok := m.feats[newParent]
	if !ok {
		return fmt.Errorf("reparenting: new parent %q not found", newParent)
	}
	if newParent == id || m.isDescendant(newParent, id) {
		return fmt.Errorf("reparenting: %q is a descendant of %q", newParent, id)
	}
	if f.Parent == newParent {
		return nil
	}

	old := m.feats[f.Parent]
	old.Children = removeString(old.Children, id)
	np.Children = append(np.Children, id)
	f.Parent = newParent
	return nil
}

// isDescendant reports whether candidate lies in the subtree rooted at
// ancestor.
func (m *Model) isDescendant(candidate, ancestor string) bool {
	f := m.feats[candidate]
	for f.Parent != "" {
		if f.Parent == ancestor {
			return true
		}
		f = m.feats[f.Parent]
	}
	return false
}

// Clone returns a deep copy of the model. Mutations on the copy never
// touch the original.
func (m *Model) Clone() *Model {
	c := &Model{
		root:  m.root,
		feats: make(map[string]*Feature, len(m.feats)),
		order: make([]string, len(m.order)),
	}
	copy(c.order, m.order)
	for id, f := range m.feats {
		nf := *f
		nf.Children = append([]string(nil), f.Children...)
		nf.Provenance.Chunks = append([]string(nil), f.Provenance.Chunks...)
		nf.Provenance.Aliases = append([]string(nil), f.Provenance.Aliases...)
		c.feats[id] = &nf
	}
	return c
}

// GroupMembers returns the ids of parent's children that carry a group
// kind, in child order.
func (m *Model) GroupMembers(parent string) []string {
	p, ok := m.feats[parent]
	if !ok {
		return nil
	}
	var out []string
	for _, c := range p.Children {
		if m.feats[c].Kind.Group() {
			out = append(out, c)
		}
	}
	return out
}

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9 _-]*$`)

// ValidName reports whether name is acceptable as a feature name: it must
// start with a letter or underscore and contain only letters, digits,
// spaces, underscores, and hyphens.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a stable identifier from a feature name: NFC form,
// casefolded, with runs of non-alphanumerics collapsed to single hyphens.
func Slug(name string) string {
	s := norm.NFC.String(name)
	s = strings.ToLower(s)
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// FreeID returns id if it is unused in m, otherwise id with the smallest
// numeric suffix that is.
func (m *Model) FreeID(id string) string {
	if !m.Has(id) {
		return id
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", id, i)
		if !m.Has(candidate) {
			return candidate
		}
	}
}

// SortedIDs returns all feature ids in lexicographic order.
func (m *Model) SortedIDs() []string {
	out := m.IDs()
	sort.Strings(out)
	return out
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, e := range s {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}
