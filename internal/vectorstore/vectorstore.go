// Package vectorstore defines the contract over the external
// similarity-search index. The index itself (distance function, ANN
// parameters) is a black box; adapters only upsert records and request
// ranked neighbors.
package vectorstore

import "context"

// CandidateMultiplier sizes the candidate pool requested from the backing
// index relative to topK, giving approximate search room to compute an
// accurate top-K.
const CandidateMultiplier = 10

// Record pairs a chunk's text with its embedding vector. Records are
// immutable once written; identity is assigned by the store.
type Record struct {
	Text      string
	Embedding []float32
}

// Result is a stored record returned by a similarity query. Score is a
// relevance value where higher means more similar.
type Result struct {
	ID    string
	Text  string
	Score float64
}

// Store is implemented by every vector store backend. Implementations must
// be safe for concurrent use.
type Store interface {
	// Upsert writes records to the index. An empty batch is a warned no-op.
	Upsert(ctx context.Context, records []Record) error
	// Query returns at most topK results, highest relevance first.
	Query(ctx context.Context, embedding []float32, topK int) ([]Result, error)
	// Close releases backend resources.
	Close() error
}
