// Package embedding turns text into fixed-length vectors through a single
// lazily initialized model client shared by the whole process.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docusage/internal/config"
)

// Factory constructs the underlying embedder. It runs at most once per
// Service; the result (or the failure) is memoized for the process lifetime.
type Factory func() (embeddings.Embedder, error)

// Service is the embedding front door. The model client behind it is
// expensive to create, so construction is deferred to the first embedding
// call and guarded by a single initialization barrier. After a failed
// initialization the service stays failed until restart; it never falls
// back to a partial or stub model.
type Service struct {
	factory  Factory
	once     sync.Once
	embedder embeddings.Embedder
	err      error
}

// NewService builds a Service whose embedder is created from the given LLM
// configuration on first use.
func NewService(cfg *config.LLMConfig) *Service {
	return &Service{factory: func() (embeddings.Embedder, error) {
		return newEmbedder(cfg)
	}}
}

// NewServiceWithFactory builds a Service around a caller-supplied factory.
func NewServiceWithFactory(factory Factory) *Service {
	return &Service{factory: factory}
}

func (s *Service) get() (embeddings.Embedder, error) {
	s.once.Do(func() {
		s.embedder, s.err = s.factory()
		if s.err != nil {
			log.Error().Err(s.err).Msg("Error initializing embedder")
			return
		}
		log.Info().Msg("Initialized embedding model")
	})
	return s.embedder, s.err
}

// EmbedBatch embeds texts in order and returns one vector per input. An
// empty input yields an empty result without touching the model. A failure
// anywhere in the batch fails the whole call; partial results are never
// returned.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	embedder, err := s.get()
	if err != nil {
		return nil, err
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch of %d: %w", len(texts), err)
	}
	return vectors, nil
}

// EmbedOne embeds a single text; equivalent to a batch of one.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	embedder, err := s.get()
	if err != nil {
		return nil, err
	}
	vector, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vector, nil
}

// newEmbedder builds the langchaingo embedder for the configured provider.
func newEmbedder(cfg *config.LLMConfig) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(llm)
	case config.ProviderOpenAI:
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(llm)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
