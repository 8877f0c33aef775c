// Copyright fmforge, 2026. All rights reserved.

package wellformed

import (
	"strings"
	"testing"

	"github.com/fmforge/fmforge/pkg/fm"
	"github.com/fmforge/fmforge/pkg/types"
)

func byCode(vs []Violation, code string) []Violation {
	var out []Violation
	for _, v := range vs {
		if v.Code == code {
			out = append(out, v)
		}
	}
	return out
}

func buildModel(t *testing.T) *fm.Model {
	t.Helper()
	m := fm.NewModel("Shop")
	features := []struct {
		name   string
		parent string
		kind   fm.Kind
	}{
		{"Payment", "shop", fm.Mandatory},
		{"Card", "payment", fm.OrMember},
		{"Cash", "payment", fm.OrMember},
	}
	for _, f := range features {
		err := m.AddFeature(fm.Feature{
			ID:     fm.Slug(f.name),
			Name:   f.name,
			Parent: f.parent,
			Kind:   f.kind,
			Provenance: fm.Provenance{
				Origin:    fm.OriginGenerated,
				Iteration: 1,
			},
		})
		if err != nil {
			t.Fatalf("AddFeature(%s): %v", f.name, err)
		}
	}
	return m
}

func TestCheckXMLWellFormed(t *testing.T) {
	data, err := fm.EncodeXML(buildModel(t))
	if err != nil {
		t.Fatalf("EncodeXML() error = %v", err)
	}
	if vs := Check(data, types.FormatXML); len(vs) != 0 {
		t.Fatalf("Check() = %v, want no violations", vs)
	}
}

func TestCheckXMLDuplicateIDSingleEntry(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<featureModel>
    <struct>
        <and name="Shop">
            <feature name="Payment"/>
            <and name="Billing">
                <feature name="payment"/>
            </and>
            <or name="Catalog">
                <feature name="Browse"/>
            </or>
        </and>
    </struct>
</featureModel>`

	vs := Check([]byte(doc), types.FormatXML)

	dups := byCode(vs, CodeDuplicateID)
	if len(dups) != 1 {
		t.Fatalf("got %d duplicate-id violations, want exactly 1: %v", len(dups), vs)
	}
	if len(dups[0].Locations) != 2 {
		t.Errorf("duplicate-id locations = %v, want both occurrences", dups[0].Locations)
	}
	if !strings.Contains(dups[0].Message, `"payment"`) {
		t.Errorf("duplicate-id message = %q, want the colliding id named", dups[0].Message)
	}

	// Checking continued past the duplicate: the undersized or-group is
	// still reported.
	if arity := byCode(vs, CodeGroupArity); len(arity) != 1 {
		t.Errorf("got %d group-arity violations, want 1: %v", len(arity), vs)
	}
}

func TestCheckXMLMissingDeclaration(t *testing.T) {
	doc := `<featureModel>
    <struct>
        <feature name="Shop"/>
    </struct>
</featureModel>`

	vs := Check([]byte(doc), types.FormatXML)
	if len(vs) != 1 || vs[0].Code != CodeMissingDeclaration {
		t.Fatalf("Check() = %v, want a single missing-declaration violation", vs)
	}
}

func TestCheckXMLMissingStruct(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<featureModel></featureModel>`

	vs := Check([]byte(doc), types.FormatXML)
	if len(vs) != 1 || vs[0].Code != CodeMissingStruct {
		t.Fatalf("Check() = %v, want a single missing-struct violation", vs)
	}
}

func TestCheckXMLNoFeatures(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<featureModel>
    <struct></struct>
</featureModel>`

	vs := Check([]byte(doc), types.FormatXML)
	if len(vs) != 1 || vs[0].Code != CodeNoFeatures {
		t.Fatalf("Check() = %v, want a single no-features violation", vs)
	}
}

func TestCheckXMLMultipleTops(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<featureModel>
    <struct>
        <feature name="Shop"/>
        <feature name="Warehouse"/>
    </struct>
</featureModel>`

	vs := Check([]byte(doc), types.FormatXML)
	tops := byCode(vs, CodeMultipleRoots)
	if len(tops) != 1 {
		t.Fatalf("got %d multiple-roots violations, want 1: %v", len(tops), vs)
	}
	if len(tops[0].Locations) != 2 {
		t.Errorf("locations = %v, want both top features", tops[0].Locations)
	}
}

func TestCheckXMLNames(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<featureModel>
    <struct>
        <and name="Shop">
            <feature name=""/>
            <feature name="9Lives"/>
        </and>
    </struct>
</featureModel>`

	vs := Check([]byte(doc), types.FormatXML)
	if names := byCode(vs, CodeInvalidName); len(names) != 2 {
		t.Fatalf("got %d invalid-name violations, want 2: %v", len(names), vs)
	}
}

func TestCheckXMLBadMandatory(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<featureModel>
    <struct>
        <and name="Shop">
            <feature mandatory="yes" name="Payment"/>
        </and>
    </struct>
</featureModel>`

	vs := Check([]byte(doc), types.FormatXML)
	if bad := byCode(vs, CodeBadAttribute); len(bad) != 1 {
		t.Fatalf("got %d bad-attribute violations, want 1: %v", len(bad), vs)
	}
}

func TestCheckXMLUnknownElement(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<featureModel>
    <struct>
        <and name="Shop">
            <graphics key="collapsed" value="false"/>
            <feature name="Payment"/>
        </and>
    </struct>
</featureModel>`

	vs := Check([]byte(doc), types.FormatXML)
	unknown := byCode(vs, CodeUnknownElement)
	if len(unknown) != 1 {
		t.Fatalf("got %d unknown-element violations, want 1: %v", len(unknown), vs)
	}
	if !strings.Contains(unknown[0].Locations[0], "graphics") {
		t.Errorf("location = %v, want the graphics element path", unknown[0].Locations)
	}
}

func TestCheckXMLAltArity(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<featureModel>
    <struct>
        <alt name="Shop">
            <feature name="Retail"/>
        </alt>
    </struct>
</featureModel>`

	vs := Check([]byte(doc), types.FormatXML)
	if arity := byCode(vs, CodeGroupArity); len(arity) != 1 {
		t.Fatalf("got %d group-arity violations, want 1: %v", len(arity), vs)
	}
}

func TestCheckXMLUnparseable(t *testing.T) {
	for _, doc := range []string{
		"not xml at all",
		"<wrongRoot></wrongRoot>",
	} {
		vs := Check([]byte(doc), types.FormatXML)
		if len(vs) != 1 || vs[0].Code != CodeUnparseable {
			t.Errorf("Check(%q) = %v, want a single unparseable violation", doc, vs)
		}
	}
}

func TestCheckJSONWellFormed(t *testing.T) {
	data, err := fm.EncodeJSON(buildModel(t))
	if err != nil {
		t.Fatalf("EncodeJSON() error = %v", err)
	}
	if vs := Check(data, types.FormatJSON); len(vs) != 0 {
		t.Fatalf("Check() = %v, want no violations", vs)
	}
}

func TestCheckJSONDuplicateIDSingleEntry(t *testing.T) {
	doc := `{
  "root": "shop",
  "features": [
    {"id": "shop", "name": "Shop", "kind": "mandatory"},
    {"id": "payment", "name": "Payment", "parent": "shop", "kind": "optional"},
    {"id": "payment", "name": "Payment Methods", "parent": "shop", "kind": "optional"},
    {"id": "cart", "name": "Cart", "parent": "ghost", "kind": "optional"}
  ]
}`

	vs := Check([]byte(doc), types.FormatJSON)

	dups := byCode(vs, CodeDuplicateID)
	if len(dups) != 1 {
		t.Fatalf("got %d duplicate-id violations, want exactly 1: %v", len(dups), vs)
	}
	want := []string{"features[1]", "features[2]"}
	if len(dups[0].Locations) != 2 || dups[0].Locations[0] != want[0] || dups[0].Locations[1] != want[1] {
		t.Errorf("duplicate-id locations = %v, want %v", dups[0].Locations, want)
	}

	// The dangling parent after the duplicate is still reported.
	if dangling := byCode(vs, CodeDanglingParent); len(dangling) != 1 {
		t.Errorf("got %d dangling-parent violations, want 1: %v", len(dangling), vs)
	}
}

func TestCheckJSONMultipleRoots(t *testing.T) {
	doc := `{
  "root": "shop",
  "features": [
    {"id": "shop", "name": "Shop", "kind": "mandatory"},
    {"id": "mirror", "name": "Mirror", "kind": "mandatory"}
  ]
}`

	vs := Check([]byte(doc), types.FormatJSON)
	roots := byCode(vs, CodeMultipleRoots)
	if len(roots) != 1 || len(roots[0].Locations) != 2 {
		t.Fatalf("Check() = %v, want one multiple-roots violation citing both", vs)
	}
}

func TestCheckJSONRootMismatch(t *testing.T) {
	doc := `{
  "root": "store",
  "features": [
    {"id": "shop", "name": "Shop", "kind": "mandatory"}
  ]
}`

	vs := Check([]byte(doc), types.FormatJSON)
	if mm := byCode(vs, CodeRootMismatch); len(mm) != 1 {
		t.Fatalf("got %d root-mismatch violations, want 1: %v", len(mm), vs)
	}
}

func TestCheckJSONCycleReportedOnce(t *testing.T) {
	doc := `{
  "root": "shop",
  "features": [
    {"id": "shop", "name": "Shop", "kind": "mandatory"},
    {"id": "a", "name": "Alpha", "parent": "b", "kind": "optional"},
    {"id": "b", "name": "Beta", "parent": "a", "kind": "optional"}
  ]
}`

	vs := Check([]byte(doc), types.FormatJSON)
	cycles := byCode(vs, CodeCycle)
	if len(cycles) != 1 {
		t.Fatalf("got %d cycle violations, want exactly 1: %v", len(cycles), vs)
	}
	if len(cycles[0].Locations) != 2 {
		t.Errorf("cycle locations = %v, want both members", cycles[0].Locations)
	}
}

func TestCheckJSONMixedGroup(t *testing.T) {
	doc := `{
  "root": "shop",
  "features": [
    {"id": "shop", "name": "Shop", "kind": "mandatory"},
    {"id": "payment", "name": "Payment", "parent": "shop", "kind": "optional"},
    {"id": "card", "name": "Card", "parent": "payment", "kind": "or"},
    {"id": "cash", "name": "Cash", "parent": "payment", "kind": "alt"}
  ]
}`

	vs := Check([]byte(doc), types.FormatJSON)
	if mixed := byCode(vs, CodeMixedGroup); len(mixed) != 1 {
		t.Fatalf("got %d mixed-group violations, want 1: %v", len(mixed), vs)
	}
	if arity := byCode(vs, CodeGroupArity); len(arity) != 0 {
		t.Errorf("mixed group should not also report arity: %v", arity)
	}
}

func TestCheckJSONGroupArity(t *testing.T) {
	doc := `{
  "root": "shop",
  "features": [
    {"id": "shop", "name": "Shop", "kind": "mandatory"},
    {"id": "card", "name": "Card", "parent": "shop", "kind": "or"}
  ]
}`

	vs := Check([]byte(doc), types.FormatJSON)
	if arity := byCode(vs, CodeGroupArity); len(arity) != 1 {
		t.Fatalf("got %d group-arity violations, want 1: %v", len(arity), vs)
	}
}

func TestCheckJSONSchemaAndStructural(t *testing.T) {
	doc := `{
  "root": "shop",
  "features": [
    {"id": "shop", "name": "Shop", "kind": "mandatory"},
    {"id": "x", "name": "X", "parent": "ghost", "kind": "required"}
  ]
}`

	vs := Check([]byte(doc), types.FormatJSON)
	if schema := byCode(vs, CodeSchema); len(schema) == 0 {
		t.Errorf("want a schema violation for the unknown kind: %v", vs)
	}
	if dangling := byCode(vs, CodeDanglingParent); len(dangling) != 1 {
		t.Errorf("structural checks should continue past schema violations: %v", vs)
	}
}

func TestCheckJSONUnparseable(t *testing.T) {
	vs := Check([]byte("{not json"), types.FormatJSON)
	if len(vs) != 1 || vs[0].Code != CodeUnparseable {
		t.Fatalf("Check() = %v, want a single unparseable violation", vs)
	}
}

func TestViolationString(t *testing.T) {
	v := Violation{
		Code:      CodeDuplicateID,
		Message:   `feature id "payment" appears 2 times`,
		Locations: []string{"features[1]", "features[2]"},
	}
	got := v.String()
	if !strings.HasPrefix(got, "duplicate-id: ") || !strings.Contains(got, "features[2]") {
		t.Errorf("String() = %q", got)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want types.FragmentFormat
	}{
		{"model.json", types.FormatJSON},
		{"model.JSON", types.FormatJSON},
		{"model.xml", types.FormatXML},
		{"trace.txt", types.FormatXML},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path); got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
