// Package models defines core data structures for raw documents, chunks, and interactions.
package models

// ChunkMetadata locates a chunk inside its source document.
type ChunkMetadata struct {
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
	Disease     string `json:"disease"`
}

// Map returns the metadata as a flat string map, the shape vector stores persist.
func (m ChunkMetadata) Map() map[string]string {
	return map[string]string{
		"category":     m.Category,
		"sub_category": m.SubCategory,
		"disease":      m.Disease,
	}
}

// MetadataFromMap is the inverse of ChunkMetadata.Map. Missing keys are left empty.
func MetadataFromMap(m map[string]string) ChunkMetadata {
	return ChunkMetadata{
		Category:    m["category"],
		SubCategory: m["sub_category"],
		Disease:     m["disease"],
	}
}

// Chunk is the minimal addressable unit of retrievable text.
// It is immutable once written to the corpus.
type Chunk struct {
	ChunkID  string        `json:"chunk_id"`
	Metadata ChunkMetadata `json:"metadata"`
	Content  string        `json:"content"`
}

// RawDocument is one scraped per-disease document: categories of named subsections,
// both kept in source order.
type RawDocument struct {
	Disease    string
	Categories []Category
}

// Category is one top-level section of a raw document.
type Category struct {
	Name        string
	Subsections []Subsection
}

// Subsection is a named block of free text inside a category.
type Subsection struct {
	Name string
	Text string
}

// SubsectionCount returns the number of (category, subsection) pairs in the document.
func (d *RawDocument) SubsectionCount() int {
	n := 0
	for _, c := range d.Categories {
		n += len(c.Subsections)
	}
	return n
}
