package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string            // defaults to "vector"
	Tags         map[string]string // TAG equality pre-filter
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery pages through an index without ranking.
type ListQuery struct {
	IndexName    string
	Tags         map[string]string
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search. Score is cosine
// similarity for KNN queries.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// DefaultVectorField is the hash field holding embeddings.
const DefaultVectorField = "vector"

// Field returns the vector field name, applying the default.
func (q *KNNQuery) Field() string {
	if q.VectorField == "" {
		return DefaultVectorField
	}
	return q.VectorField
}
