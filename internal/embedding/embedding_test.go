package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
)

type fakeEmbedder struct {
	dim int
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, f.dim), nil
}

var _ embeddings.Embedder = (*fakeEmbedder)(nil)

func TestEmbedBatch_Empty(t *testing.T) {
	var constructions int32
	svc := NewServiceWithFactory(func() (embeddings.Embedder, error) {
		atomic.AddInt32(&constructions, 1)
		return &fakeEmbedder{dim: 4}, nil
	})

	got, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(0), constructions, "empty batch must not initialize the model")
}

func TestEmbedBatch_LengthMatchesInput(t *testing.T) {
	svc := NewServiceWithFactory(func() (embeddings.Embedder, error) {
		return &fakeEmbedder{dim: 8}, nil
	})

	texts := []string{"a", "b", "c"}
	got, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, got, len(texts))
	for _, vec := range got {
		assert.Len(t, vec, 8)
	}
}

func TestService_ConcurrentInitIsOnce(t *testing.T) {
	var constructions int32
	svc := NewServiceWithFactory(func() (embeddings.Embedder, error) {
		atomic.AddInt32(&constructions, 1)
		return &fakeEmbedder{dim: 4}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.EmbedOne(context.Background(), "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), constructions)
}

func TestService_FailedInitStaysFailed(t *testing.T) {
	var constructions int32
	boom := errors.New("model load failed")
	svc := NewServiceWithFactory(func() (embeddings.Embedder, error) {
		atomic.AddInt32(&constructions, 1)
		return nil, boom
	})

	_, err := svc.EmbedOne(context.Background(), "x")
	require.ErrorIs(t, err, boom)

	// Later calls see the same memoized failure; the factory never reruns.
	_, err = svc.EmbedBatch(context.Background(), []string{"y"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), constructions)
}
