// Copyright fmforge, 2026. All rights reserved.

// Package wellformed validates serialized feature model documents. A
// check never stops at the first defect: it collects every violation it
// can still detect, so one pass over a broken document reports all of
// it. An empty violation list means the document is well-formed.
// Implements: docs/ARCHITECTURE § Well-formedness.
package wellformed

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fmforge/fmforge/pkg/types"
)

// Violation codes, shared across both serializations where the defect
// class applies.
const (
	// CodeUnparseable means the document could not be parsed at all. It
	// is the only code that suppresses further checking.
	CodeUnparseable = "unparseable"

	// CodeMissingDeclaration flags an XML document without a declaration.
	CodeMissingDeclaration = "missing-declaration"

	// CodeMissingStruct flags a featureModel without a struct element.
	CodeMissingStruct = "missing-struct"

	// CodeNoFeatures flags a document that declares no features.
	CodeNoFeatures = "no-features"

	// CodeMultipleRoots flags more than one top-level feature.
	CodeMultipleRoots = "multiple-roots"

	// CodeNoRoot flags a JSON document in which no feature has an empty
	// parent.
	CodeNoRoot = "no-root"

	// CodeRootMismatch flags a JSON root field that does not name the
	// document's root feature.
	CodeRootMismatch = "root-mismatch"

	// CodeUnknownElement flags an element under struct that is not one of
	// the four feature tags.
	CodeUnknownElement = "unknown-element"

	// CodeInvalidName flags a missing or ill-formed feature name.
	CodeInvalidName = "invalid-name"

	// CodeBadAttribute flags an attribute value outside its domain.
	CodeBadAttribute = "bad-attribute"

	// CodeDuplicateID flags an id carried by more than one feature. One
	// violation lists every location sharing the id.
	CodeDuplicateID = "duplicate-id"

	// CodeDanglingParent flags a parent reference to a nonexistent id.
	CodeDanglingParent = "dangling-parent"

	// CodeCycle flags features whose parent chain loops instead of
	// reaching the root.
	CodeCycle = "cycle"

	// CodeGroupArity flags an or- or alternative-group with fewer than
	// two members.
	CodeGroupArity = "group-arity"

	// CodeMixedGroup flags children of one parent mixing or- and
	// alternative-membership.
	CodeMixedGroup = "mixed-group"

	// CodeSchema flags a JSON document field rejected by the model schema.
	CodeSchema = "schema"
)

// Violation is one well-formedness defect.
type Violation struct {
	// Code identifies the violation class.
	Code string `json:"code" yaml:"code"`

	// Message describes the defect.
	Message string `json:"message" yaml:"message"`

	// Locations list every place the defect appears: element paths for
	// XML documents, features[i] positions for JSON documents.
	Locations []string `json:"locations,omitempty" yaml:"locations,omitempty"`
}

func (v Violation) String() string {
	if len(v.Locations) == 0 {
		return fmt.Sprintf("%s: %s", v.Code, v.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", v.Code, v.Message, strings.Join(v.Locations, ", "))
}

// Check validates a serialized feature model document in the given
// format. A document that does not parse yields a single unparseable
// violation; anything that parses is checked exhaustively.
func Check(data []byte, format types.FragmentFormat) []Violation {
	if format == types.FormatJSON {
		return checkJSON(data)
	}
	return checkXML(data)
}

// DetectFormat guesses the serialization from the file extension,
// defaulting to XML.
func DetectFormat(path string) types.FragmentFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return types.FormatJSON
	}
	return types.FormatXML
}
