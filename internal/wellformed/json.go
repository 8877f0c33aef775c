// Copyright fmforge, 2026. All rights reserved.

package wellformed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fmforge/fmforge/pkg/fm"
)

// modelSchema is the shape contract for JSON model documents. Field
// domains live here; relational rules (uniqueness, referential
// integrity, group consistency) are checked structurally below.
const modelSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["root", "features"],
  "properties": {
    "root": {"type": "string", "minLength": 1},
    "features": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "name", "kind"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "parent": {"type": "string"},
          "kind": {"enum": ["mandatory", "optional", "or", "alt"]},
          "children": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

type jsonFeature struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Parent string `json:"parent"`
	Kind   string `json:"kind"`
}

type jsonModel struct {
	Root     string        `json:"root"`
	Features []jsonFeature `json:"features"`
}

// checkJSON validates a JSON model document. Schema validation covers
// field domains and doubles as the parse check; the structural passes
// cover everything the schema cannot express.
func checkJSON(data []byte) []Violation {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(modelSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return []Violation{{Code: CodeUnparseable, Message: err.Error()}}
	}

	var vs []Violation
	if !result.Valid() {
		for _, desc := range result.Errors() {
			vs = append(vs, Violation{
				Code:      CodeSchema,
				Message:   desc.Description(),
				Locations: []string{desc.Field()},
			})
		}
	}

	var doc jsonModel
	if err := json.Unmarshal(data, &doc); err != nil {
		// Valid JSON of the wrong shape; the schema violations above
		// already describe it.
		return vs
	}

	loc := func(i int) string { return fmt.Sprintf("features[%d]", i) }

	ids := map[string][]int{}
	var idOrder []string
	posByID := map[string]int{}
	parents := map[string]string{}

	for i, f := range doc.Features {
		name := strings.TrimSpace(f.Name)
		switch {
		case name == "" && f.Name != "":
			vs = append(vs, Violation{
				Code:      CodeInvalidName,
				Message:   "feature name is blank",
				Locations: []string{loc(i)},
			})
		case name != "" && !fm.ValidName(name):
			vs = append(vs, Violation{
				Code:      CodeInvalidName,
				Message:   fmt.Sprintf("name %q is not a valid feature name", f.Name),
				Locations: []string{loc(i)},
			})
		}

		if f.ID == "" {
			continue
		}
		if _, seen := ids[f.ID]; !seen {
			idOrder = append(idOrder, f.ID)
			posByID[f.ID] = i
			parents[f.ID] = f.Parent
		}
		ids[f.ID] = append(ids[f.ID], i)
	}

	for _, id := range idOrder {
		positions := ids[id]
		if len(positions) < 2 {
			continue
		}
		locs := make([]string, 0, len(positions))
		for _, p := range positions {
			locs = append(locs, loc(p))
		}
		vs = append(vs, Violation{
			Code:      CodeDuplicateID,
			Message:   fmt.Sprintf("feature id %q appears %d times", id, len(positions)),
			Locations: locs,
		})
	}

	for i, f := range doc.Features {
		if f.Parent == "" {
			continue
		}
		if _, ok := ids[f.Parent]; !ok {
			vs = append(vs, Violation{
				Code:      CodeDanglingParent,
				Message:   fmt.Sprintf("parent %q of feature %q does not exist", f.Parent, f.ID),
				Locations: []string{loc(i)},
			})
		}
	}

	var roots []int
	for i, f := range doc.Features {
		if f.Parent == "" {
			roots = append(roots, i)
		}
	}
	switch {
	case len(doc.Features) == 0:
		// minItems already flagged it.
	case len(roots) == 0:
		vs = append(vs, Violation{
			Code:    CodeNoRoot,
			Message: "no feature has an empty parent",
		})
	case len(roots) > 1:
		locs := make([]string, 0, len(roots))
		for _, r := range roots {
			locs = append(locs, loc(r))
		}
		vs = append(vs, Violation{
			Code:      CodeMultipleRoots,
			Message:   fmt.Sprintf("expected one root feature, found %d", len(roots)),
			Locations: locs,
		})
	default:
		rootID := doc.Features[roots[0]].ID
		if doc.Root != "" && doc.Root != rootID {
			vs = append(vs, Violation{
				Code:      CodeRootMismatch,
				Message:   fmt.Sprintf("root field %q does not name the root feature %q", doc.Root, rootID),
				Locations: []string{loc(roots[0])},
			})
		}
	}

	vs = append(vs, jsonCycles(idOrder, parents, posByID)...)
	vs = append(vs, jsonGroups(doc.Features, ids)...)

	return vs
}

// jsonCycles finds parent chains that loop instead of reaching a root.
// Each cycle is reported once, in the order its first member appears.
func jsonCycles(idOrder []string, parents map[string]string, posByID map[string]int) []Violation {
	const (
		walking = 1
		done    = 2
	)
	state := map[string]int{}
	var vs []Violation

	for _, start := range idOrder {
		if state[start] != 0 {
			continue
		}
		var path []string
		cur := start
		for {
			if cur == "" {
				break
			}
			parent, known := parents[cur]
			if !known {
				// Dangling reference; the chain ends here.
				break
			}
			if state[cur] == done {
				break
			}
			if state[cur] == walking {
				i := 0
				for j, id := range path {
					if id == cur {
						i = j
						break
					}
				}
				cycle := path[i:]
				locs := make([]string, 0, len(cycle))
				for _, id := range cycle {
					locs = append(locs, fmt.Sprintf("features[%d]", posByID[id]))
				}
				vs = append(vs, Violation{
					Code:      CodeCycle,
					Message:   fmt.Sprintf("parent chain forms a cycle through %s", strings.Join(cycle, " -> ")),
					Locations: locs,
				})
				break
			}
			state[cur] = walking
			path = append(path, cur)
			cur = parent
		}
		for _, id := range path {
			state[id] = done
		}
	}
	return vs
}

// jsonGroups checks group consistency per parent: members must not mix
// or- and alternative-membership, and a group needs at least two
// members. A mixed group is reported alone, since its sub-group arity
// is an artifact of the mix.
func jsonGroups(features []jsonFeature, ids map[string][]int) []Violation {
	type group struct {
		or  []int
		alt []int
	}
	groups := map[string]*group{}
	var order []string

	for i, f := range features {
		if f.Kind != "or" && f.Kind != "alt" {
			continue
		}
		g, ok := groups[f.Parent]
		if !ok {
			g = &group{}
			groups[f.Parent] = g
			order = append(order, f.Parent)
		}
		if f.Kind == "or" {
			g.or = append(g.or, i)
		} else {
			g.alt = append(g.alt, i)
		}
	}

	loc := func(i int) string { return fmt.Sprintf("features[%d]", i) }
	var vs []Violation
	for _, parent := range order {
		g := groups[parent]
		if len(g.or) > 0 && len(g.alt) > 0 {
			members := append(append([]int{}, g.or...), g.alt...)
			locs := make([]string, 0, len(members))
			for _, m := range members {
				locs = append(locs, loc(m))
			}
			vs = append(vs, Violation{
				Code:      CodeMixedGroup,
				Message:   fmt.Sprintf("children of %q mix or and alternative membership", parent),
				Locations: locs,
			})
			continue
		}
		if len(g.or) == 1 {
			vs = append(vs, Violation{
				Code:      CodeGroupArity,
				Message:   fmt.Sprintf("or group under %q has a single member", parent),
				Locations: []string{loc(g.or[0])},
			})
		}
		if len(g.alt) == 1 {
			vs = append(vs, Violation{
				Code:      CodeGroupArity,
				Message:   fmt.Sprintf("alternative group under %q has a single member", parent),
				Locations: []string{loc(g.alt[0])},
			})
		}
	}
	return vs
}
