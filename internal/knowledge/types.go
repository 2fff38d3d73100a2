package knowledge

// CollectionName is the pgvector collection holding the troubleshooting
// knowledge base. The layout (langchain_pg_collection and
// langchain_pg_embedding tables) is created and populated by external
// ingestion pipelines; this program only reads it, except for the reembed
// maintenance path.
const CollectionName = "knowledge_base"

// DefaultTopK is the number of passages a search returns unless overridden.
const DefaultTopK = 4

// Document is a passage to be embedded and stored.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// Result is a single search hit. Similarity is 1 minus the cosine distance,
// so 1.0 is an exact match and values near 0 are unrelated.
type Result struct {
	Content    string
	Metadata   map[string]any
	Similarity float64
}

// SourceDocument is a row of the data_vectors source table, the raw corpus
// the reembed utility re-processes.
type SourceDocument struct {
	ID       int64
	Text     string
	Metadata map[string]any
}
