// Package chromemdb implements the vector store contract on top of the
// embedded chromem-go database. Suited to single-host deployments where an
// external index is not available.
package chromemdb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"docusage/internal/config"
	"docusage/internal/vectorstore"
)

const compress = false

// Store is a vectorstore.Store backed by a chromem-go collection.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
}

var _ vectorstore.Store = (*Store)(nil)

// New opens (or creates) the database and collection. With InMemory set the
// index lives only for the process lifetime.
func New(cfg *config.StoreConfig) (*Store, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", cfg.Path, err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", cfg.Collection, err)
	}
	return &Store{db: db, collection: collection}, nil
}

// Upsert adds records with store-assigned UUIDs. Embeddings are provided by
// the caller; chromem's own embedding function is never invoked.
func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		log.Warn().Msg("Empty record batch provided to Upsert")
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        uuid.NewString(),
			Content:   r.Text,
			Embedding: r.Embedding,
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add %d documents: %w", len(docs), err)
	}
	log.Info().Int("count", len(docs)).Msg("Stored documents")
	return nil
}

// Query runs an exact cosine similarity search. The requested pool is
// oversized relative to topK (and clamped to the collection size), then
// trimmed after ranking.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]vectorstore.Result, error) {
	if topK <= 0 {
		return nil, nil
	}
	n := topK * vectorstore.CandidateMultiplier
	if count := s.collection.Count(); n > count {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	found, err := s.collection.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	if len(found) > topK {
		found = found[:topK]
	}
	results := make([]vectorstore.Result, len(found))
	for i, r := range found {
		results[i] = vectorstore.Result{
			ID:    r.ID,
			Text:  r.Content,
			Score: float64(r.Similarity),
		}
	}
	return results, nil
}

// Close is a no-op; chromem persists writes as they happen.
func (s *Store) Close() error {
	return nil
}
