// Copyright fmforge, 2026. All rights reserved.

package wellformed

import (
	"fmt"
	"strings"

	"github.com/fmforge/fmforge/pkg/fm"
)

// checkXML validates a featureModel XML document. The tolerant raw parse
// keeps every element addressable by path, so each violation can cite
// where it sits in the document.
func checkXML(data []byte) []Violation {
	raw, err := fm.ParseRawXML(data)
	if err != nil {
		return []Violation{{Code: CodeUnparseable, Message: err.Error()}}
	}

	var vs []Violation
	if !raw.HasDeclaration {
		vs = append(vs, Violation{
			Code:    CodeMissingDeclaration,
			Message: "document does not open with an XML declaration",
		})
	}
	if !raw.HasStruct {
		vs = append(vs, Violation{
			Code:    CodeMissingStruct,
			Message: "featureModel carries no struct element",
		})
		return vs
	}

	for _, path := range raw.UnknownPaths {
		vs = append(vs, Violation{
			Code:      CodeUnknownElement,
			Message:   "element is not one of and, or, alt, feature",
			Locations: []string{path},
		})
	}

	switch {
	case raw.Tops == 0:
		vs = append(vs, Violation{
			Code:    CodeNoFeatures,
			Message: "struct declares no features",
		})
	case raw.Tops > 1:
		var tops []string
		for _, f := range raw.Features {
			if f.Parent == -1 {
				tops = append(tops, f.Path)
			}
		}
		vs = append(vs, Violation{
			Code:      CodeMultipleRoots,
			Message:   fmt.Sprintf("expected one top-level feature, found %d", raw.Tops),
			Locations: tops,
		})
	}

	// ids derive from names, so two names slugging identically collide.
	// One violation per colliding id, citing every occurrence.
	ids := map[string][]string{}
	var idOrder []string

	for _, f := range raw.Features {
		name := strings.TrimSpace(f.Name)
		switch {
		case name == "":
			vs = append(vs, Violation{
				Code:      CodeInvalidName,
				Message:   "feature has no name",
				Locations: []string{f.Path},
			})
		case !fm.ValidName(name):
			vs = append(vs, Violation{
				Code:      CodeInvalidName,
				Message:   fmt.Sprintf("name %q is not a valid feature name", f.Name),
				Locations: []string{f.Path},
			})
		}

		if m := strings.TrimSpace(f.Mandatory); m != "" &&
			!strings.EqualFold(m, "true") && !strings.EqualFold(m, "false") {
			vs = append(vs, Violation{
				Code:      CodeBadAttribute,
				Message:   fmt.Sprintf("mandatory attribute must be true or false, got %q", f.Mandatory),
				Locations: []string{f.Path},
			})
		}

		if (f.Tag == "or" || f.Tag == "alt") && f.ChildCount < 2 {
			vs = append(vs, Violation{
				Code:      CodeGroupArity,
				Message:   fmt.Sprintf("%s group has %d member(s), needs at least 2", f.Tag, f.ChildCount),
				Locations: []string{f.Path},
			})
		}

		if id := fm.Slug(name); id != "" {
			if _, seen := ids[id]; !seen {
				idOrder = append(idOrder, id)
			}
			ids[id] = append(ids[id], f.Path)
		}
	}

	for _, id := range idOrder {
		paths := ids[id]
		if len(paths) < 2 {
			continue
		}
		vs = append(vs, Violation{
			Code:      CodeDuplicateID,
			Message:   fmt.Sprintf("feature id %q appears %d times", id, len(paths)),
			Locations: paths,
		})
	}

	return vs
}
