// Copyright fmforge, 2026. All rights reserved.

package fm

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// Contract errors distinguish a document that parsed but is not a
// fragment from one that did not parse at all.
var (
	// ErrNoStruct means the document has no struct element.
	ErrNoStruct = errors.New("no struct element")

	// ErrNoFeatures means the document's struct holds no feature nodes.
	ErrNoFeatures = errors.New("no feature elements")
)

// The XML dialect follows FeatureIDE's featureModel documents: a
// <featureModel> root holding a <struct> element, inside which nested
// <and>, <or>, <alt>, and <feature> elements form the tree. A node's tag
// describes how its children relate: children of <and> are mandatory or
// optional per their mandatory attribute, children of <or> form an
// or-group, children of <alt> form an alternative-group. <feature> is a
// leaf.

const (
	tagAnd     = "and"
	tagOr      = "or"
	tagAlt     = "alt"
	tagFeature = "feature"
)

type xmlDoc struct {
	XMLName xml.Name   `xml:"featureModel"`
	Struct  *xmlStruct `xml:"struct"`
}

type xmlStruct struct {
	Nodes []xmlNode `xml:",any"`
}

type xmlNode struct {
	XMLName   xml.Name
	Name      string    `xml:"name,attr"`
	Mandatory string    `xml:"mandatory,attr,omitempty"`
	Abstract  string    `xml:"abstract,attr,omitempty"`
	Children  []xmlNode `xml:",any"`
}

// EncodeXML serializes the model as a featureModel XML document with the
// standard declaration, indented for readability. Children appear in
// insertion order, so output is deterministic for a given model.
func EncodeXML(m *Model) ([]byte, error) {
	root := m.Root()
	doc := xmlDoc{Struct: &xmlStruct{Nodes: []xmlNode{buildXMLNode(m, root)}}}
	body, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding feature model: %w", err)
	}
	var b strings.Builder
	b.WriteString(xml.Header)
	b.Write(body)
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func buildXMLNode(m *Model, f Feature) xmlNode {
	n := xmlNode{
		XMLName: xml.Name{Local: nodeTag(m, f)},
		Name:    f.Name,
	}
	if f.Kind == Mandatory {
		n.Mandatory = "true"
	}
	for _, cid := range f.Children {
		c, _ := m.Get(cid)
		n.Children = append(n.Children, buildXMLNode(m, c))
	}
	return n
}

// nodeTag picks the element tag for f from its children's kinds. A parent
// whose group children are or-members serializes as <or>, alternative
// members as <alt>, anything else with children as <and>, leaves as
// <feature>. Models built through merging never mix group kinds under one
// parent, so the first group child decides.
func nodeTag(m *Model, f Feature) string {
	if len(f.Children) == 0 {
		return tagFeature
	}
	for _, cid := range f.Children {
		c, _ := m.Get(cid)
		switch c.Kind {
		case OrMember:
			return tagOr
		case AltMember:
			return tagAlt
		}
	}
	return tagAnd
}

// DecodeXML parses a featureModel document into a Model, enforcing the
// structural invariants: a single top feature, valid names, and ids
// unique after slugging. Use the wellformed checker instead when a full
// violation listing is wanted.
func DecodeXML(data []byte) (*Model, error) {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing feature model XML: %w", err)
	}
	if doc.Struct == nil {
		return nil, fmt.Errorf("parsing feature model XML: no struct element")
	}
	tops := modelNodes(doc.Struct.Nodes)
	if len(tops) != 1 {
		return nil, fmt.Errorf("parsing feature model XML: expected one top feature, found %d", len(tops))
	}

	top := tops[0]
	if !ValidName(strings.TrimSpace(top.Name)) {
		return nil, fmt.Errorf("parsing feature model XML: invalid root name %q", top.Name)
	}
	m := NewModel(top.Name)

	var attach func(parent xmlNode, parentID string) error
	attach = func(parent xmlNode, parentID string) error {
		for _, c := range modelNodes(parent.Children) {
			name := strings.TrimSpace(c.Name)
			if !ValidName(name) {
				return fmt.Errorf("parsing feature model XML: invalid feature name %q", c.Name)
			}
			id := Slug(name)
			f := Feature{
				ID:     id,
				Name:   name,
				Parent: parentID,
				Kind:   childKind(parent.XMLName.Local, c.Mandatory),
				Provenance: Provenance{
					Origin: OriginSeed,
				},
			}
			if err := m.AddFeature(f); err != nil {
				return fmt.Errorf("parsing feature model XML: %w", err)
			}
			if err := attach(c, id); err != nil {
				return err
			}
		}
		return nil
	}
	if err := attach(top, m.RootID()); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeXMLFragment flattens a featureModel document into a Fragment. It
// is deliberately lenient: unknown elements are skipped, names are kept
// as-is, and duplicates survive. Structural judgment belongs to the
// merger. An error is returned only when the XML itself does not parse
// or carries no feature nodes at all.
func DecodeXMLFragment(data []byte) (Fragment, error) {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Fragment{}, fmt.Errorf("parsing fragment XML: %w", err)
	}
	var fr Fragment
	if doc.Struct == nil {
		return fr, fmt.Errorf("parsing fragment XML: %w", ErrNoStruct)
	}

	var flatten func(n xmlNode, parentTag, parentName string)
	flatten = func(n xmlNode, parentTag, parentName string) {
		name := strings.TrimSpace(n.Name)
		if name != "" {
			fr.Features = append(fr.Features, FragmentFeature{
				Name:   name,
				Parent: parentName,
				Kind:   childKind(parentTag, n.Mandatory),
			})
		}
		for _, c := range modelNodes(n.Children) {
			flatten(c, n.XMLName.Local, name)
		}
	}
	tops := modelNodes(doc.Struct.Nodes)
	for _, top := range tops {
		flatten(top, tagAnd, "")
	}
	if len(tops) == 1 {
		fr.Root = strings.TrimSpace(tops[0].Name)
	}
	if fr.Empty() {
		return fr, fmt.Errorf("parsing fragment XML: %w", ErrNoFeatures)
	}
	return fr, nil
}

// childKind maps a node's position to its variability: group membership
// comes from the parent tag, otherwise the mandatory attribute decides.
func childKind(parentTag, mandatory string) Kind {
	switch parentTag {
	case tagOr:
		return OrMember
	case tagAlt:
		return AltMember
	}
	if strings.EqualFold(strings.TrimSpace(mandatory), "true") {
		return Mandatory
	}
	return Optional
}

// modelNodes filters child elements down to the four feature tags,
// dropping FeatureIDE extras such as description or graphics elements.
func modelNodes(nodes []xmlNode) []xmlNode {
	var out []xmlNode
	for _, n := range nodes {
		switch n.XMLName.Local {
		case tagAnd, tagOr, tagAlt, tagFeature:
			out = append(out, n)
		}
	}
	return out
}

// RawXMLFeature is one feature element as it appears in a serialized
// document, before any validation. The wellformed checker consumes these.
type RawXMLFeature struct {
	// Tag is the element name: and, or, alt, or feature.
	Tag string

	// Name is the raw name attribute, untrimmed.
	Name string

	// Mandatory is the raw mandatory attribute value.
	Mandatory string

	// Path locates the element, e.g. /featureModel/struct/and[0]/feature[1].
	Path string

	// Parent is the index of the parent feature in the flat listing, -1
	// for top-level nodes.
	Parent int

	// Depth is the nesting depth below struct, starting at 0.
	Depth int

	// ChildCount is the number of feature-bearing child elements.
	ChildCount int
}

// RawXMLDoc is the tolerant parse of a featureModel document used for
// well-formedness checking.
type RawXMLDoc struct {
	// HasDeclaration reports whether the document opens with an XML
	// declaration.
	HasDeclaration bool

	// HasStruct reports whether a struct element was present.
	HasStruct bool

	// Tops is the number of top-level feature nodes under struct.
	Tops int

	// Features lists every feature element in document order.
	Features []RawXMLFeature

	// UnknownPaths lists elements under struct with unrecognized tags.
	UnknownPaths []string
}

// ParseRawXML parses a featureModel document without judging it, so the
// checker can report every violation in one pass. An error is returned
// only for unparseable XML or a document whose root element is not
// featureModel.
func ParseRawXML(data []byte) (*RawXMLDoc, error) {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}

	raw := &RawXMLDoc{
		HasDeclaration: strings.HasPrefix(strings.TrimLeft(string(data), " \t\r\n"), "<?xml"),
		HasStruct:      doc.Struct != nil,
	}
	if doc.Struct == nil {
		return raw, nil
	}

	var walk func(n xmlNode, path string, parent, depth int)
	walk = func(n xmlNode, path string, parent, depth int) {
		idx := len(raw.Features)
		raw.Features = append(raw.Features, RawXMLFeature{
			Tag:        n.XMLName.Local,
			Name:       n.Name,
			Mandatory:  n.Mandatory,
			Path:       path,
			Parent:     parent,
			Depth:      depth,
			ChildCount: len(modelNodes(n.Children)),
		})
		counts := map[string]int{}
		for _, c := range n.Children {
			tag := c.XMLName.Local
			childPath := fmt.Sprintf("%s/%s[%d]", path, tag, counts[tag])
			counts[tag]++
			switch tag {
			case tagAnd, tagOr, tagAlt, tagFeature:
				walk(c, childPath, idx, depth+1)
			default:
				raw.UnknownPaths = append(raw.UnknownPaths, childPath)
			}
		}
	}

	counts := map[string]int{}
	for _, n := range doc.Struct.Nodes {
		tag := n.XMLName.Local
		path := fmt.Sprintf("/featureModel/struct/%s[%d]", tag, counts[tag])
		counts[tag]++
		switch tag {
		case tagAnd, tagOr, tagAlt, tagFeature:
			raw.Tops++
			walk(n, path, -1, 0)
		default:
			raw.UnknownPaths = append(raw.UnknownPaths, path)
		}
	}
	return raw, nil
}
