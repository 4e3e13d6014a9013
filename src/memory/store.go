package memory

import "context"

// Metadata type values for persisted records.
const (
	TypeInteraction = "interaction"
	TypePersonality = "personality"
	TypeUserNote    = "user-note"
)

// TimestampLayout is the fixed-width format used for record timestamps.
// Lexicographic order on these strings equals chronological order.
const TimestampLayout = "20060102_150405"

// Record is a persisted memory entry: a stable id, the document body and
// free-form string metadata. Well-known metadata keys: "type", "timestamp",
// "question", "answer", "personality", "attachments".
type Record struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// QueryMatch pairs a record with its distance from the query embedding.
// Distance is non-negative; lower means more similar.
type QueryMatch struct {
	Record
	Distance float64 `json:"distance"`
}

// Store defines the contract for long-term memory backends. Upsert replaces
// any record already stored under the same id.
type Store interface {
	Upsert(ctx context.Context, id, text string, metadata map[string]string) error
	Query(ctx context.Context, text string, k int) ([]QueryMatch, error)
	ListAll(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) error
}

// SchemaInitializer allows stores to expose optional schema/bootstrap routines.
type SchemaInitializer interface {
	CreateSchema(ctx context.Context) error
}
