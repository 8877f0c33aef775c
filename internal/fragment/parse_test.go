// Copyright fmforge, 2026. All rights reserved.

package fragment

import (
	"testing"

	"github.com/fmforge/fmforge/pkg/fm"
	"github.com/fmforge/fmforge/pkg/types"
)

const cleanXML = `<?xml version="1.0" encoding="UTF-8"?>
<featureModel>
    <struct>
        <and mandatory="true" name="Store">
            <feature mandatory="true" name="Catalog"/>
            <or name="Payments">
                <feature name="Card"/>
                <feature name="Cash"/>
            </or>
        </and>
    </struct>
</featureModel>`

const cleanJSON = `{
  "root": "Store",
  "features": [
    {"name": "Store", "kind": "mandatory"},
    {"name": "Catalog", "parent": "Store", "kind": "mandatory"},
    {"name": "Payments", "parent": "Store"}
  ]
}`

func TestParseXMLClean(t *testing.T) {
	res := Parse(cleanXML, types.FormatXML)
	if !res.OK() {
		t.Fatalf("Parse failed: %s %s", res.Status, res.Detail)
	}
	if res.Fragment.Root != "Store" {
		t.Errorf("root = %q, want Store", res.Fragment.Root)
	}
	if len(res.Fragment.Features) != 5 {
		t.Fatalf("got %d features, want 5", len(res.Fragment.Features))
	}

	want := []fm.FragmentFeature{
		{Name: "Store", Parent: "", Kind: fm.Mandatory},
		{Name: "Catalog", Parent: "Store", Kind: fm.Mandatory},
		{Name: "Payments", Parent: "Store", Kind: fm.Optional},
		{Name: "Card", Parent: "Payments", Kind: fm.OrMember},
		{Name: "Cash", Parent: "Payments", Kind: fm.OrMember},
	}
	for i, w := range want {
		if res.Fragment.Features[i] != w {
			t.Errorf("feature %d = %+v, want %+v", i, res.Fragment.Features[i], w)
		}
	}
}

func TestParseXMLTolerance(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"fenced", "Here is the model:\n```xml\n" + cleanXML + "\n```\n"},
		{"fenced no language", "```\n" + cleanXML + "\n```"},
		{"prose around document", "Sure! Based on the documents:\n\n" + cleanXML + "\n\nLet me know if you need more."},
		{"trailing junk", cleanXML + "</final>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw, types.FormatXML)
			if !res.OK() {
				t.Fatalf("Parse failed: %s %s", res.Status, res.Detail)
			}
			if len(res.Fragment.Features) != 5 {
				t.Errorf("got %d features, want 5", len(res.Fragment.Features))
			}
		})
	}
}

func TestParseXMLFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want types.ParseStatus
	}{
		{"empty string", "", types.ParseEmpty},
		{"whitespace only", "   \n\t  ", types.ParseEmpty},
		{"prose without payload", "I could not find any features in the provided context.", types.ParseEmpty},
		{"truncated document", `<featureModel><struct><and name="A"><feature name="B"`, types.ParseMalformed},
		{"mismatched tags", `<featureModel><struct><and name="A"></or></struct></featureModel>`, types.ParseMalformed},
		{"missing struct", `<featureModel><comment>hello</comment></featureModel>`, types.ParseSchemaViolation},
		{"empty struct", `<featureModel><struct></struct></featureModel>`, types.ParseSchemaViolation},
		{"nameless features only", `<featureModel><struct><and><feature/></and></struct></featureModel>`, types.ParseSchemaViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw, types.FormatXML)
			if res.OK() {
				t.Fatalf("Parse unexpectedly succeeded with %d features", len(res.Fragment.Features))
			}
			if res.Status != tt.want {
				t.Errorf("status = %s, want %s (detail: %s)", res.Status, tt.want, res.Detail)
			}
			if res.Detail == "" {
				t.Error("failure must carry a detail message")
			}
		})
	}
}

func TestParseJSONClean(t *testing.T) {
	res := Parse(cleanJSON, types.FormatJSON)
	if !res.OK() {
		t.Fatalf("Parse failed: %s %s", res.Status, res.Detail)
	}
	if res.Fragment.Root != "Store" {
		t.Errorf("root = %q, want Store", res.Fragment.Root)
	}
	if len(res.Fragment.Features) != 3 {
		t.Fatalf("got %d features, want 3", len(res.Fragment.Features))
	}
	if got := res.Fragment.Features[2].Kind; got != fm.Optional {
		t.Errorf("omitted kind = %q, want optional", got)
	}
}

func TestParseJSONTolerance(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"fenced", "```json\n" + cleanJSON + "\n```"},
		{"prose around object", "Here is the fragment you asked for:\n" + cleanJSON + "\nHope this helps!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw, types.FormatJSON)
			if !res.OK() {
				t.Fatalf("Parse failed: %s %s", res.Status, res.Detail)
			}
			if len(res.Fragment.Features) != 3 {
				t.Errorf("got %d features, want 3", len(res.Fragment.Features))
			}
		})
	}
}

func TestParseJSONFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want types.ParseStatus
	}{
		{"empty string", "", types.ParseEmpty},
		{"prose without payload", "No JSON today.", types.ParseEmpty},
		{"broken syntax", `{"features": [}`, types.ParseMalformed},
		{"features missing", `{"root": "Store"}`, types.ParseSchemaViolation},
		{"features empty", `{"features": []}`, types.ParseSchemaViolation},
		{"feature without name", `{"features": [{"parent": "Store"}]}`, types.ParseSchemaViolation},
		{"blank name", `{"features": [{"name": ""}]}`, types.ParseSchemaViolation},
		{"kind outside enum", `{"features": [{"name": "A", "kind": "xor"}]}`, types.ParseSchemaViolation},
		{"kind wrong type", `{"features": [{"name": "A", "kind": 5}]}`, types.ParseSchemaViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw, types.FormatJSON)
			if res.OK() {
				t.Fatalf("Parse unexpectedly succeeded with %d features", len(res.Fragment.Features))
			}
			if res.Status != tt.want {
				t.Errorf("status = %s, want %s (detail: %s)", res.Status, tt.want, res.Detail)
			}
		})
	}
}

func TestParseFailureIsData(t *testing.T) {
	// A failed parse must still be a usable value for the trace, never a
	// panic or a nil fragment dereference.
	res := Parse("garbage", types.FormatXML)
	if res.Fragment.Features != nil {
		t.Error("failed parse must not carry features")
	}
	if res.Status == types.ParseOK {
		t.Error("failed parse must not report ok")
	}
}
