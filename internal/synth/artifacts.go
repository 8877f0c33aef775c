// Copyright fmforge, 2026. All rights reserved.

package synth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fmforge/fmforge/pkg/fm"
	"github.com/fmforge/fmforge/pkg/types"
)

// NewRunID builds a unique, filesystem-safe run identifier that keeps
// the mode, generator model, and start time readable in directory
// listings.
func NewRunID(mode types.SynthesisMode, model string) string {
	ts := time.Now().UTC().Format("20060102T150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s_%s", mode, sanitizeID(model), ts, suffix)
}

// sanitizeID lowercases the model name and collapses anything that is
// not safe in a path segment to a dash.
func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "model"
	}
	return out
}

// WriteArtifacts persists the trace and both model serializations under
// runsDir/<run-id>/ and returns the run directory.
func WriteArtifacts(runsDir string, trace types.RunTrace, model *fm.Model) (string, error) {
	dir := filepath.Join(runsDir, trace.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}

	traceData, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding trace: %w", err)
	}
	traceData = append(traceData, '\n')
	if err := os.WriteFile(filepath.Join(dir, "trace.json"), traceData, 0o644); err != nil {
		return "", fmt.Errorf("writing trace: %w", err)
	}

	xmlData, err := fm.EncodeXML(model)
	if err != nil {
		return "", fmt.Errorf("encoding model xml: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "model.xml"), xmlData, 0o644); err != nil {
		return "", fmt.Errorf("writing model xml: %w", err)
	}

	jsonData, err := fm.EncodeJSON(model)
	if err != nil {
		return "", fmt.Errorf("encoding model json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "model.json"), jsonData, 0o644); err != nil {
		return "", fmt.Errorf("writing model json: %w", err)
	}

	return dir, nil
}

// LoadTrace reads a trace.json written by WriteArtifacts.
func LoadTrace(path string) (types.RunTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.RunTrace{}, fmt.Errorf("reading trace: %w", err)
	}
	var trace types.RunTrace
	if err := json.Unmarshal(data, &trace); err != nil {
		return types.RunTrace{}, fmt.Errorf("parsing trace %s: %w", path, err)
	}
	return trace, nil
}
