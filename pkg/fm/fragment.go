// Copyright fmforge, 2026. All rights reserved.

package fm

// FragmentFeature is one proposed feature inside a fragment. Parent
// references the parent's surface name, not an id; resolution against
// the accumulating model happens during merging.
type FragmentFeature struct {
	// Name is the proposed feature name as generated.
	Name string `json:"name" yaml:"name"`

	// Parent is the surface name of the proposed parent. Empty means the
	// fragment's root feature.
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`

	// Kind is the proposed variability.
	Kind Kind `json:"kind" yaml:"kind"`
}

// Fragment is a partial feature model proposed by one generator call,
// flattened to parent references by name. Fragments carry no ids; they
// gain identity only when merged into a model.
type Fragment struct {
	// Root is the surface name of the fragment's top feature, when the
	// generator emitted one. It usually echoes the model root.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`

	// Features lists proposed features in document order.
	Features []FragmentFeature `json:"features" yaml:"features"`
}

// Empty reports whether the fragment proposes nothing.
func (fr Fragment) Empty() bool {
	return len(fr.Features) == 0
}
