// Package knowledge provides access to the persisted chunk index: home
// equipment documentation split into chunks, embedded, and stored in
// PostgreSQL with pgvector. Search embeds the query and runs a
// cosine-similarity scan, optionally restricted to a set of device types.
package knowledge

import (
	"time"

	"github.com/homewarden/homewarden/internal/profile"
)

// Chunk is one indexed piece of a source document.
type Chunk struct {
	// ID uniquely identifies the chunk.
	ID string

	// Content is the chunk text.
	Content string

	// SourceFile is the original document file name, e.g.
	// "Furnace-OM9GFRC-02.pdf".
	SourceFile string

	// DeviceType is the equipment category the source document covers.
	DeviceType profile.DeviceType

	// Metadata carries additional ingestion metadata (device_name,
	// manufacturer, doc_type, location, tags).
	Metadata map[string]string

	// CreatedAt is when the chunk was indexed.
	CreatedAt time.Time
}

// Passage is a chunk returned from search together with its relevance.
type Passage struct {
	Chunk

	// Score is the cosine similarity to the query in [0, 1], higher is
	// more relevant.
	Score float64
}
