package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rmg-pulse/config"
	"rmg-pulse/embedder"
	"rmg-pulse/models"
)

type fakeEmbeddingStore struct {
	mu      sync.Mutex
	pending []models.Article
	stored  map[string]storedEmbedding
}

type storedEmbedding struct {
	vector    []float32
	modelName string
}

func newFakeEmbeddingStore(articles ...models.Article) *fakeEmbeddingStore {
	return &fakeEmbeddingStore{pending: articles, stored: map[string]storedEmbedding{}}
}

func (f *fakeEmbeddingStore) FindNeedingEmbedding(ctx context.Context, limit int64, modelName string) ([]models.Article, error) {
	if int64(len(f.pending)) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeEmbeddingStore) SetEmbedding(ctx context.Context, id primitive.ObjectID, vector []float32, modelName string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[id.Hex()] = storedEmbedding{vector: vector, modelName: modelName}
	return nil
}

func embeddingConfig() config.EmbeddingConfig {
	return config.EmbeddingConfig{BatchSize: 20, MaxInFlight: 2, CallTimeoutSeconds: 5}
}

func pendingArticle(title string) models.Article {
	return models.Article{
		ID:       primitive.NewObjectID(),
		Title:    title,
		Summary:  "summary text",
		Category: "Automation",
	}
}

func TestEmbedStoresVectorAndModelName(t *testing.T) {
	article := pendingArticle("knitting line retrofit")
	store := newFakeEmbeddingStore(article)

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	svc := NewEmbedService(store, embed, nil, "embed-model-1", embeddingConfig())

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)

	got, ok := store.stored[article.ID.Hex()]
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.vector)
	assert.Equal(t, "embed-model-1", got.modelName)
}

func TestEmbedUsesFixedInputRecipe(t *testing.T) {
	article := pendingArticle("denim mill expansion")
	store := newFakeEmbeddingStore(article)

	var mu sync.Mutex
	var inputs []string
	embed := func(ctx context.Context, text string) ([]float32, error) {
		mu.Lock()
		inputs = append(inputs, text)
		mu.Unlock()
		return []float32{1}, nil
	}
	svc := NewEmbedService(store, embed, nil, "embed-model-1", embeddingConfig())

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, inputs, 1)
	assert.Equal(t, embedder.BuildInput(article.Title, article.Summary, article.Category), inputs[0])
}

func TestEmbedPerArticleFailureIsIsolated(t *testing.T) {
	good := pendingArticle("good one")
	bad := pendingArticle("bad one")
	store := newFakeEmbeddingStore(good, bad)

	embed := func(ctx context.Context, text string) ([]float32, error) {
		if text == embedder.BuildInput(bad.Title, bad.Summary, bad.Category) {
			return nil, errors.New("embedding backend unavailable")
		}
		return []float32{1, 2}, nil
	}
	svc := NewEmbedService(store, embed, nil, "embed-model-1", embeddingConfig())

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	_, storedGood := store.stored[good.ID.Hex()]
	_, storedBad := store.stored[bad.ID.Hex()]
	assert.True(t, storedGood)
	assert.False(t, storedBad)
}

func TestEmbedStopsWhenQuotaExhausted(t *testing.T) {
	store := newFakeEmbeddingStore(pendingArticle("a"), pendingArticle("b"), pendingArticle("c"))

	var mu sync.Mutex
	calls := 0
	embed := func(ctx context.Context, text string) ([]float32, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return []float32{1}, nil
	}
	svc := NewEmbedService(store, embed, &cappedQuota{remaining: 2}, "embed-model-1", embeddingConfig())

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, report.Succeeded)
}

func TestEmbedHonorsBatchSize(t *testing.T) {
	var articles []models.Article
	for i := 0; i < 30; i++ {
		articles = append(articles, pendingArticle("bulk"))
	}
	store := newFakeEmbeddingStore(articles...)

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1}, nil
	}
	svc := NewEmbedService(store, embed, nil, "embed-model-1", embeddingConfig())

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, report.Processed)
}
