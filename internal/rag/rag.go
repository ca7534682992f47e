// Package rag composes extraction, chunking, embedding, vector storage and
// generation into the two pipeline operations: Ingest and Answer.
package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"docusage/internal/chunker"
	"docusage/internal/config"
	"docusage/internal/models"
	"docusage/internal/parser"
	"docusage/internal/vectorstore"
)

var (
	// ErrNoChunks aborts an ingestion that produced nothing to embed.
	ErrNoChunks = errors.New("no chunks to ingest")
	// ErrBlankQuestion rejects empty or whitespace-only questions before
	// any downstream call is made.
	ErrBlankQuestion = errors.New("question must not be blank")
	// ErrEmbeddingMismatch means the embedding service broke its contract;
	// the ingestion aborts before any store write.
	ErrEmbeddingMismatch = errors.New("chunk and embedding counts differ")
)

// Embedder is the slice of the embedding service the pipeline needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from a question and a context string. It is
// expected to degrade internally: the returned text is always usable.
type Generator interface {
	Generate(ctx context.Context, question, contextText string) string
}

// Pipeline is the orchestrator. Ingest and Answer are independent and may
// run concurrently with each other and with themselves.
type Pipeline struct {
	embedder  Embedder
	store     vectorstore.Store
	generator Generator
	cfg       *config.RAGConfig
}

func NewPipeline(embedder Embedder, store vectorstore.Store, generator Generator, cfg *config.RAGConfig) *Pipeline {
	return &Pipeline{embedder: embedder, store: store, generator: generator, cfg: cfg}
}

// Ingest extracts, chunks, embeds and stores the given files as one batch.
// Documents that fail extraction or yield no chunks are skipped with a
// warning; an entirely empty batch aborts. Chunks are never stored without
// matching embeddings.
func (p *Pipeline) Ingest(ctx context.Context, paths []string) (*models.IngestReport, error) {
	report := &models.IngestReport{Documents: len(paths)}

	var allChunks []models.Chunk
	for _, path := range paths {
		text, err := parser.Extract(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping document")
			report.Skipped = append(report.Skipped, models.SkippedDocument{Path: path, Reason: err.Error()})
			continue
		}

		chunks, err := chunker.Chunk(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", path, err)
		}
		if len(chunks) == 0 {
			log.Warn().Str("path", path).Msg("No chunks generated from document")
			report.Skipped = append(report.Skipped, models.SkippedDocument{Path: path, Reason: "no chunks generated"})
			continue
		}
		allChunks = append(allChunks, chunks...)
		report.Ingested++
	}

	if len(allChunks) == 0 {
		return nil, ErrNoChunks
	}

	texts := make([]string, len(allChunks))
	for i, c := range allChunks {
		texts[i] = c.Text
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(allChunks) {
		return nil, fmt.Errorf("%w: %d chunks, %d embeddings", ErrEmbeddingMismatch, len(allChunks), len(embeddings))
	}

	records := make([]vectorstore.Record, len(allChunks))
	for i := range allChunks {
		records[i] = vectorstore.Record{Text: allChunks[i].Text, Embedding: embeddings[i]}
	}
	if err := p.store.Upsert(ctx, records); err != nil {
		// Embedding work is not rolled back; the write simply failed.
		return nil, fmt.Errorf("store records: %w", err)
	}

	report.Chunks = len(allChunks)
	log.Info().Int("documents", report.Ingested).Int("chunks", report.Chunks).Msg("Document ingestion complete")
	return report, nil
}

// Answer retrieves the nearest chunks for the question and generates a
// grounded answer. Apart from blank-question validation, every failure is
// converted into a degraded but well-formed Answer at this boundary.
func (p *Pipeline) Answer(ctx context.Context, question string) (*models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrBlankQuestion
	}

	queryVector, err := p.embedder.EmbedOne(ctx, question)
	if err != nil {
		log.Error().Err(err).Msg("Error embedding question")
		return &models.Answer{Answer: models.InternalErrorAnswer, Sources: []models.SourceDocument{}}, nil
	}

	results, err := p.store.Query(ctx, queryVector, p.cfg.TopK)
	if err != nil {
		// Retrieval failure degrades to "no context found"; the flow
		// continues rather than failing.
		log.Warn().Err(err).Msg("Similarity search failed")
		results = nil
	}

	contextText := models.PlaceholderContext
	sources := []models.SourceDocument{}
	if len(results) > 0 {
		texts := make([]string, len(results))
		sources = make([]models.SourceDocument, len(results))
		for i, r := range results {
			texts[i] = r.Text
			sources[i] = models.SourceDocument{
				Content: r.Text,
				Score:   roundScore(r.Score),
			}
		}
		contextText = strings.Join(texts, " ")
	} else {
		log.Warn().Msg("No similar documents retrieved")
	}

	answer := p.generator.Generate(ctx, question, contextText)
	return &models.Answer{Answer: answer, Sources: sources}, nil
}

// roundScore rounds to 4 decimal places for display; result ordering keeps
// full precision.
func roundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}
