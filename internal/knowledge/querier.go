package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxQuerier implements Querier on a pgx connection pool. The pool must
// have pgvector types registered (see db.NewPool).
type PgxQuerier struct {
	pool *pgxpool.Pool
}

// NewPgxQuerier creates a PgxQuerier.
func NewPgxQuerier(pool *pgxpool.Pool) *PgxQuerier {
	return &PgxQuerier{pool: pool}
}

const upsertChunkSQL = `
INSERT INTO chunks (id, content, embedding, source_file, device_type, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    content     = EXCLUDED.content,
    embedding   = EXCLUDED.embedding,
    source_file = EXCLUDED.source_file,
    device_type = EXCLUDED.device_type,
    metadata    = EXCLUDED.metadata`

// UpsertChunk inserts or replaces a chunk.
func (q *PgxQuerier) UpsertChunk(ctx context.Context, arg UpsertChunkParams) error {
	_, err := q.pool.Exec(ctx, upsertChunkSQL,
		arg.ID,
		arg.Content,
		arg.Embedding,
		arg.SourceFile,
		arg.DeviceType,
		arg.Metadata,
		arg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

// searchChunksSQL orders by cosine distance with chunk ID as tiebreaker
// so equal-distance results come back in a stable order. The device-type
// filter is a union: empty array means unfiltered.
const searchChunksSQL = `
SELECT id, content, source_file, device_type, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM chunks
WHERE cardinality($2::text[]) = 0 OR device_type = ANY($2::text[])
ORDER BY embedding <=> $1, id
LIMIT $3`

// SearchChunks runs a vector similarity search.
func (q *PgxQuerier) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error) {
	deviceTypes := arg.DeviceTypes
	if deviceTypes == nil {
		deviceTypes = []string{}
	}

	rows, err := q.pool.Query(ctx, searchChunksSQL, arg.QueryEmbedding, deviceTypes, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []ChunkRow
	for rows.Next() {
		var row ChunkRow
		if err := rows.Scan(
			&row.ID,
			&row.Content,
			&row.SourceFile,
			&row.DeviceType,
			&row.Metadata,
			&row.CreatedAt,
			&row.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}

	return results, nil
}

// CountChunks counts chunks, optionally restricted to one device type.
func (q *PgxQuerier) CountChunks(ctx context.Context, deviceType string) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx,
		`SELECT count(*) FROM chunks WHERE $1 = '' OR device_type = $1`,
		deviceType,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// DeleteChunksBySourceFile removes all chunks of one source document.
func (q *PgxQuerier) DeleteChunksBySourceFile(ctx context.Context, sourceFile string) (int64, error) {
	tag, err := q.pool.Exec(ctx, `DELETE FROM chunks WHERE source_file = $1`, sourceFile)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}
