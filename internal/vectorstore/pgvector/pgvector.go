// Package pgvector persists vector records in Postgres with the pgvector
// extension, using bun for query building.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"docusage/internal/config"
	"docusage/internal/vectorstore"
)

// Document is the persisted record: chunk text plus its embedding. The
// vector column width must match the embedding model output; 768 fits
// nomic-embed-text.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Text          string    `bun:"text,notnull"`
	Embedding     []float32 `bun:"embedding,notnull,type:vector(768)"`
	Score         float64   `bun:"score,scanonly"`
}

// Store is a vectorstore.Store backed by Postgres/pgvector.
type Store struct {
	db *bun.DB
}

var _ vectorstore.Store = (*Store)(nil)

// New connects to Postgres and prepares the documents table.
func New(ctx context.Context, cfg *config.StoreConfig) (*Store, error) {
	dsn := cfg.DSN + "?sslmode=disable"
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Password)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// Upsert inserts records in one batch. Records are never updated in place;
// re-ingesting a document simply writes new rows.
func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		log.Warn().Msg("Empty record batch provided to Upsert")
		return nil
	}

	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = Document{Text: r.Text, Embedding: r.Embedding}
	}
	if _, err := s.db.NewInsert().Model(&docs).Exec(ctx); err != nil {
		return fmt.Errorf("insert %d documents: %w", len(docs), err)
	}
	log.Info().Int("count", len(docs)).Msg("Stored documents")
	return nil
}

// Query orders by cosine distance and reports score as 1 - distance so that
// higher means more similar. The candidate pool is oversized relative to
// topK and trimmed after ranking.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]vectorstore.Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	var docs []Document
	err := s.db.NewSelect().
		Model(&docs).
		Column("id", "text").
		ColumnExpr("1 - (d.embedding <=> ?) AS score", embedding).
		OrderExpr("d.embedding <=> ?", embedding).
		Limit(topK * vectorstore.CandidateMultiplier).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	if len(docs) > topK {
		docs = docs[:topK]
	}
	results := make([]vectorstore.Result, len(docs))
	for i, d := range docs {
		results[i] = vectorstore.Result{
			ID:    fmt.Sprintf("%d", d.ID),
			Text:  d.Text,
			Score: d.Score,
		}
	}
	return results, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
