// Copyright fmforge, 2026. All rights reserved.

package synth

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/fmforge/fmforge/pkg/fm"
	"github.com/fmforge/fmforge/pkg/types"
)

// xmlContract instructs the model to answer in the FeatureIDE XML
// dialect the fragment parser accepts.
const xmlContract = `Respond with a feature model fragment in XML. Use exactly this shape:

<featureModel>
    <struct>
        <and name="Parent">
            <feature mandatory="true" name="RequiredChild"/>
            <feature name="OptionalChild"/>
            <or name="GroupParent">
                <feature name="MemberA"/>
                <feature name="MemberB"/>
            </or>
        </and>
    </struct>
</featureModel>

Rules:
- Nest every feature inside its parent element.
- Use <and> for a parent whose children vary independently, <or> when at
  least one child must be chosen, <alt> when exactly one must be chosen.
- Mark required features with mandatory="true"; leave optional ones unmarked.
- Feature names are short noun phrases taken from the evidence.
Do not write any text outside the XML.`

// jsonContract is the JSON alternative to xmlContract.
const jsonContract = `Respond with a feature model fragment as one JSON object:

{
  "root": "Parent",
  "features": [
    {"name": "Catalog", "parent": "Parent", "kind": "mandatory"},
    {"name": "Wishlist", "parent": "Catalog", "kind": "optional"},
    {"name": "Card", "parent": "Payment", "kind": "or"},
    {"name": "Cash", "parent": "Payment", "kind": "or"}
  ]
}

Rules:
- kind is one of "mandatory", "optional", "or", "alt".
- parent names another feature; an empty parent attaches to the root.
- Feature names are short noun phrases taken from the evidence.
Do not write any text outside the JSON object.`

// singleTmpl asks for a complete model in one shot.
var singleTmpl = template.Must(template.New("single").Parse(`You are a feature modeling assistant for software product lines. Using only the evidence below, produce a complete feature model for {{.Domain}}. The root feature is "{{.Root}}".

{{.Contract}}

Evidence:
{{.Evidence}}`))

// iterTmpl asks for a fragment extending the model built so far.
var iterTmpl = template.Must(template.New("iterative").Parse(`You are a feature modeling assistant for software product lines. You are refining a feature model for {{.Domain}} with root feature "{{.Root}}".

The model so far:
{{.Snapshot}}

Using only the evidence below, propose a fragment that extends this model. Focus on features the model is still missing, especially children of: {{.Focus}}. When a proposed feature belongs under an existing feature, name that feature as its parent exactly as spelled above. Do not restate existing features except as parent references.

{{.Contract}}

Evidence:
{{.Evidence}}`))

type promptData struct {
	Root     string
	Domain   string
	Contract string
	Evidence string
	Snapshot string
	Focus    string
}

// BuildPrompt renders the generator prompt for one iteration. Single
// stage runs embed the evidence alone; iterative runs also embed a
// snapshot of the accumulated model and the frontier being explored.
func BuildPrompt(mode types.SynthesisMode, cfg types.SynthesisConfig, format types.FragmentFormat, model *fm.Model, rc types.RetrievalContext, focus []string) (string, error) {
	data := promptData{
		Root:     cfg.RootFeature,
		Domain:   cfg.Domain,
		Contract: contractFor(format),
		Evidence: renderEvidence(rc),
	}

	tmpl := singleTmpl
	if mode == types.ModeIterative {
		tmpl = iterTmpl
		data.Snapshot = Outline(model)
		data.Focus = strings.Join(focus, ", ")
		if data.Focus == "" {
			data.Focus = cfg.RootFeature
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

func contractFor(format types.FragmentFormat) string {
	if format == types.FormatJSON {
		return jsonContract
	}
	return xmlContract
}

// renderEvidence lays out retrieved chunks as numbered blocks with their
// source attribution.
func renderEvidence(rc types.RetrievalContext) string {
	if len(rc.Chunks) == 0 {
		return "(no evidence retrieved)"
	}

	var sb strings.Builder
	for i, c := range rc.Chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, c.Source)
		if c.Heading != "" {
			fmt.Fprintf(&sb, " / %s", c.Heading)
		}
		sb.WriteString("\n")
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// Outline renders the model as an indented list with kinds, the form
// embedded in iterative prompts.
func Outline(m *fm.Model) string {
	var sb strings.Builder
	m.Walk(func(f fm.Feature, depth int) {
		sb.WriteString(strings.Repeat("    ", depth))
		sb.WriteString("- ")
		sb.WriteString(f.Name)
		if f.Parent == "" {
			sb.WriteString(" (root)")
		} else {
			fmt.Fprintf(&sb, " (%s)", f.Kind)
		}
		sb.WriteString("\n")
	})
	return strings.TrimRight(sb.String(), "\n")
}
