package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/homewarden/homewarden/internal/log"
	"github.com/homewarden/homewarden/internal/profile"
)

// ErrEmptyEmbedding indicates the embedder returned no vector.
var ErrEmptyEmbedding = errors.New("empty embedding returned")

// UpsertChunkParams holds the arguments for Querier.UpsertChunk.
type UpsertChunkParams struct {
	ID         string
	Content    string
	Embedding  *pgvector.Vector
	SourceFile string
	DeviceType string
	Metadata   []byte
	CreatedAt  time.Time
}

// SearchChunksParams holds the arguments for Querier.SearchChunks.
// DeviceTypes is a union filter: a chunk matches when its device type is
// any of the listed values. An empty slice disables the filter.
type SearchChunksParams struct {
	QueryEmbedding *pgvector.Vector
	DeviceTypes    []string
	ResultLimit    int32
}

// ChunkRow is one row returned by Querier.SearchChunks.
type ChunkRow struct {
	ID         string
	Content    string
	SourceFile string
	DeviceType string
	Metadata   []byte
	CreatedAt  time.Time
	Similarity float64
}

// Querier defines the database operations the Store needs. The interface
// lives with the consumer so tests can substitute an in-memory fake.
type Querier interface {
	// UpsertChunk inserts or replaces a chunk.
	UpsertChunk(ctx context.Context, arg UpsertChunkParams) error

	// SearchChunks runs a vector search ordered by similarity, ties
	// broken by chunk ID so result order is deterministic.
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error)

	// CountChunks counts indexed chunks, optionally for one device type
	// (empty string counts all).
	CountChunks(ctx context.Context, deviceType string) (int64, error)

	// DeleteChunksBySourceFile removes all chunks of a source document.
	DeleteChunksBySourceFile(ctx context.Context, sourceFile string) (int64, error)
}

// Store reads and writes the chunk index. It owns embedding generation
// for both ingestion and queries so callers deal in plain text.
//
// Store is safe for concurrent use.
type Store struct {
	queries   Querier
	embedder  ai.Embedder
	embedOpts any
	logger    log.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithEmbedOptions sets provider-specific embedding options passed on
// every embed request (for Gemini, a *genai.EmbedContentConfig carrying
// the output dimensionality matching the chunks schema).
func WithEmbedOptions(opts any) StoreOption {
	return func(s *Store) { s.embedOpts = opts }
}

// NewStore creates a Store. A nil logger discards output.
func NewStore(querier Querier, embedder ai.Embedder, logger log.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger.With("component", "knowledge"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add embeds and upserts a chunk.
func (s *Store) Add(ctx context.Context, chunk Chunk) error {
	embedding, err := s.embed(ctx, chunk.Content)
	if err != nil {
		return fmt.Errorf("embedding chunk %q: %w", chunk.ID, err)
	}

	metadataJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling chunk metadata: %w", err)
	}

	vec := pgvector.NewVector(embedding)
	err = s.queries.UpsertChunk(ctx, UpsertChunkParams{
		ID:         chunk.ID,
		Content:    chunk.Content,
		Embedding:  &vec,
		SourceFile: chunk.SourceFile,
		DeviceType: string(chunk.DeviceType),
		Metadata:   metadataJSON,
		CreatedAt:  chunk.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("upserting chunk %q: %w", chunk.ID, err)
	}

	s.logger.Debug("added chunk",
		"id", chunk.ID,
		"source_file", chunk.SourceFile,
		"device_type", chunk.DeviceType)
	return nil
}

// Search embeds the query and returns the most similar passages, best
// first. Options control the result count and the device-type filter.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Passage, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	deviceTypes := make([]string, 0, len(cfg.deviceTypes))
	for _, dt := range cfg.deviceTypes {
		deviceTypes = append(deviceTypes, string(dt))
	}

	vec := pgvector.NewVector(embedding)
	rows, err := s.queries.SearchChunks(queryCtx, SearchChunksParams{
		QueryEmbedding: &vec,
		DeviceTypes:    deviceTypes,
		ResultLimit:    int32(cfg.topK), //nolint:gosec // topK is range-checked in config
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	return s.rowsToPassages(rows), nil
}

// Count returns the number of indexed chunks for a device type, or of
// all chunks when deviceType is empty.
func (s *Store) Count(ctx context.Context, deviceType profile.DeviceType) (int64, error) {
	count, err := s.queries.CountChunks(ctx, string(deviceType))
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// DeleteSourceFile removes every chunk of one source document and
// returns how many were deleted.
func (s *Store) DeleteSourceFile(ctx context.Context, sourceFile string) (int64, error) {
	deleted, err := s.queries.DeleteChunksBySourceFile(ctx, sourceFile)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks of %q: %w", sourceFile, err)
	}

	s.logger.Debug("deleted source file chunks", "source_file", sourceFile, "count", deleted)
	return deleted, nil
}

func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: s.embedOpts,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return resp.Embeddings[0].Embedding, nil
}

func (s *Store) rowsToPassages(rows []ChunkRow) []Passage {
	passages := make([]Passage, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]string
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
				s.logger.Warn("unparsable chunk metadata", "chunk_id", row.ID, "error", err)
				metadata = nil
			}
		}

		dt, ok := profile.ParseDeviceType(row.DeviceType)
		if !ok {
			dt = profile.DeviceOther
		}

		passages = append(passages, Passage{
			Chunk: Chunk{
				ID:         row.ID,
				Content:    row.Content,
				SourceFile: row.SourceFile,
				DeviceType: dt,
				Metadata:   metadata,
				CreatedAt:  row.CreatedAt,
			},
			Score: row.Similarity,
		})
	}
	return passages
}
