package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mnemos-ai/mnemos/src/memory/embed"
)

// PostgresStore implements Store using Postgres + pgvector. The `<=>`
// operator yields cosine distance, matching the lower-is-more-similar
// convention directly.
type PostgresStore struct {
	DB       *pgxpool.Pool
	embedder embed.Embedder
	dim      int
}

// NewPostgresStore connects to Postgres and returns a pgvector-backed Store.
// dim must match the embedder's output dimension (768 for the defaults).
func NewPostgresStore(ctx context.Context, connStr string, embedder embed.Embedder, dim int) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if embedder == nil {
		embedder = embed.DummyEmbedder{}
	}
	if dim <= 0 {
		dim = 768
	}
	return &PostgresStore{DB: db, embedder: embedder, dim: dim}, nil
}

// CreateSchema ensures the pgvector extension and memory table exist.
func (ps *PostgresStore) CreateSchema(ctx context.Context) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	ddl := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS personal_memory (
			id        TEXT PRIMARY KEY,
			content   TEXT NOT NULL,
			metadata  JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d)
		);
	`, ps.dim)
	if _, err := ps.DB.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Upsert(ctx context.Context, id, text string, metadata map[string]string) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	embedding, err := ps.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed content: %w", err)
	}
	metadataJSON, _ := json.Marshal(cloneMetadata(metadata))
	query := `
		INSERT INTO personal_memory (id, content, metadata, embedding)
		VALUES ($1, $2, $3::jsonb, $4::vector)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    metadata = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding;
	`
	_, err = ps.DB.Exec(ctx, query, id, text, string(metadataJSON), vectorLiteral(embedding))
	return err
}

func (ps *PostgresStore) Query(ctx context.Context, text string, k int) ([]QueryMatch, error) {
	if ps == nil || ps.DB == nil || k <= 0 {
		return nil, nil
	}
	queryEmbedding, err := ps.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	rows, err := ps.DB.Query(ctx, `
		SELECT id, content, metadata, (embedding <=> $1::vector) AS distance
		FROM personal_memory
		ORDER BY embedding <=> $1::vector
		LIMIT $2;
	`, vectorLiteral(queryEmbedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []QueryMatch
	for rows.Next() {
		var m QueryMatch
		var metadataJSON []byte
		if err := rows.Scan(&m.ID, &m.Text, &metadataJSON, &m.Distance); err != nil {
			return nil, err
		}
		m.Metadata = decodeMetadata(metadataJSON)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (ps *PostgresStore) ListAll(ctx context.Context) ([]Record, error) {
	if ps == nil || ps.DB == nil {
		return nil, nil
	}
	rows, err := ps.DB.Query(ctx, `SELECT id, content, metadata FROM personal_memory ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var metadataJSON []byte
		if err := rows.Scan(&rec.ID, &rec.Text, &metadataJSON); err != nil {
			return nil, err
		}
		rec.Metadata = decodeMetadata(metadataJSON)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (ps *PostgresStore) Delete(ctx context.Context, id string) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	_, err := ps.DB.Exec(ctx, `DELETE FROM personal_memory WHERE id = $1;`, id)
	return err
}

// Close releases the underlying Postgres connection pool.
func (ps *PostgresStore) Close() error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	ps.DB.Close()
	return nil
}

func vectorLiteral(embedding []float32) string {
	jsonEmbed, _ := json.Marshal(embedding)
	return fmt.Sprintf("[%s]", strings.Trim(string(jsonEmbed), "[]"))
}

func decodeMetadata(raw []byte) map[string]string {
	meta := map[string]string{}
	if len(raw) == 0 {
		return meta
	}
	_ = json.Unmarshal(raw, &meta)
	return meta
}

var _ Store = (*PostgresStore)(nil)
var _ SchemaInitializer = (*PostgresStore)(nil)
