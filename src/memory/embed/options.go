package embed

// FastEmbedOptions configure the local ONNX embedder.
type FastEmbedOptions struct {
	Model     string // e.g. "BAAI/bge-small-en-v1.5" (default)
	CacheDir  string // e.g. ".fastembed"
	MaxLength int    // token limit, 0 = library default
	BatchSize int    // capped by CPU count
}
