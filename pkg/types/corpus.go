// Copyright fmforge, 2026. All rights reserved.

package types

import "time"

// Chunk is one retrievable unit of a source document.
type Chunk struct {
	// ChunkID is the stable identifier "<source>::chunk::<n>".
	ChunkID string `json:"chunk_id" yaml:"chunk_id"`

	// Source is the document path relative to the corpus root.
	Source string `json:"source" yaml:"source"`

	// Heading is the nearest preceding section heading, if any.
	Heading string `json:"heading,omitempty" yaml:"heading,omitempty"`

	// Text is the cleaned chunk content.
	Text string `json:"text" yaml:"text"`
}

// ChunkFile is the on-disk form of one chunked document, written to the
// chunks directory as <source-slug>.chunks.json.
type ChunkFile struct {
	// Source is the document path relative to the corpus root.
	Source string `json:"source" yaml:"source"`

	// GeneratedAt is when the chunking ran.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	// Chunks lists the document's chunks in order.
	Chunks []Chunk `json:"chunks" yaml:"chunks"`
}
