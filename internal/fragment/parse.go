// Copyright fmforge, 2026. All rights reserved.

// Package fragment turns raw generator output into typed fragments.
// Generator responses wrap the payload in prose, code fences, or both;
// the parser isolates the payload, decodes it, and classifies anything
// unusable as a parse failure. Failures are data: the loop records them
// and moves on.
// Implements: docs/ARCHITECTURE § Fragment Parsing.
package fragment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fmforge/fmforge/pkg/fm"
	"github.com/fmforge/fmforge/pkg/types"
)

// Result is the outcome of parsing one generator response. Status is
// ParseOK exactly when Fragment is usable.
type Result struct {
	// Fragment is the decoded fragment. Empty unless Status is ParseOK.
	Fragment fm.Fragment

	// Status classifies the outcome.
	Status types.ParseStatus

	// Detail carries the failure specifics for the iteration record.
	Detail string
}

// OK reports whether parsing produced a usable fragment.
func (r Result) OK() bool {
	return r.Status == types.ParseOK
}

func failure(status types.ParseStatus, detail string) Result {
	return Result{Status: status, Detail: detail}
}

// Parse extracts a fragment in the given contract format from raw
// generator output.
//
// Classification:
//   - empty-output: the response is blank or contains no payload in the
//     requested format
//   - malformed-syntax: a payload was found but does not parse
//   - schema-violation: the payload parses but breaks the fragment
//     contract
func Parse(raw string, format types.FragmentFormat) Result {
	if strings.TrimSpace(raw) == "" {
		return failure(types.ParseEmpty, "generator returned no output")
	}

	switch format {
	case types.FormatJSON:
		return parseJSON(raw)
	default:
		return parseXML(raw)
	}
}

func parseXML(raw string) Result {
	payload, ok := isolateXML(raw)
	if !ok {
		return failure(types.ParseEmpty, "no featureModel document in output")
	}

	frag, err := fm.DecodeXMLFragment([]byte(payload))
	switch {
	case err == nil:
		return Result{Fragment: frag, Status: types.ParseOK}
	case errors.Is(err, fm.ErrNoStruct), errors.Is(err, fm.ErrNoFeatures):
		return failure(types.ParseSchemaViolation, err.Error())
	default:
		return failure(types.ParseMalformed, err.Error())
	}
}

func parseJSON(raw string) Result {
	payload, ok := isolateJSON(raw)
	if !ok {
		return failure(types.ParseEmpty, "no JSON document in output")
	}

	if !json.Valid([]byte(payload)) {
		return failure(types.ParseMalformed, "payload is not valid JSON")
	}
	if violations := validateContract(payload); len(violations) > 0 {
		return failure(types.ParseSchemaViolation, strings.Join(violations, "; "))
	}

	var frag fm.Fragment
	if err := json.Unmarshal([]byte(payload), &frag); err != nil {
		return failure(types.ParseMalformed, fmt.Sprintf("parsing fragment JSON: %v", err))
	}

	// Omitted kinds default to optional per the contract.
	for i := range frag.Features {
		if frag.Features[i].Kind == "" {
			frag.Features[i].Kind = fm.Optional
		}
	}
	return Result{Fragment: frag, Status: types.ParseOK}
}

// isolateXML slices the featureModel document out of surrounding prose
// or code fences. Returns false when no document is present.
func isolateXML(raw string) (string, bool) {
	s := stripFences(raw)

	start := strings.Index(s, "<featureModel")
	if start < 0 {
		return "", false
	}
	const closing = "</featureModel>"
	end := strings.LastIndex(s, closing)
	if end < start {
		// Unterminated document: hand the tail to the XML parser so the
		// failure reads as malformed rather than missing.
		return s[start:], true
	}
	return s[start : end+len(closing)], true
}

// isolateJSON slices the outermost JSON object out of surrounding prose
// or code fences. Returns false when no object is present.
func isolateJSON(raw string) (string, bool) {
	s := stripFences(raw)

	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return s[start:], true
	}
	return s[start : end+1], true
}

// stripFences unwraps the first fenced code block when the response uses
// markdown fences, dropping an optional language tag.
func stripFences(raw string) string {
	open := strings.Index(raw, "```")
	if open < 0 {
		return raw
	}
	rest := raw[open+3:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		// The fence line may carry a language tag such as ```xml.
		firstLine := strings.TrimSpace(rest[:nl])
		if len(firstLine) <= 12 && !strings.ContainsAny(firstLine, "<>{}") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		return rest[:end]
	}
	return rest
}
