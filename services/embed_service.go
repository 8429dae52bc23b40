package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rmg-pulse/config"
	"rmg-pulse/embedder"
	"rmg-pulse/logger"
	"rmg-pulse/models"
)

// EmbeddingArticleStore is the slice of the article repository the
// embedding job needs.
type EmbeddingArticleStore interface {
	FindNeedingEmbedding(ctx context.Context, limit int64, modelName string) ([]models.Article, error)
	SetEmbedding(ctx context.Context, id primitive.ObjectID, vector []float32, modelName string, at time.Time) error
}

// EmbedFunc produces one embedding vector. Injected for tests.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// EmbedService fills in missing (or stale-model) article embeddings in
// bounded batches with bounded call concurrency.
type EmbedService struct {
	articles  EmbeddingArticleStore
	embed     EmbedFunc
	limiter   CallLimiter
	modelName string
	cfg       config.EmbeddingConfig
}

func NewEmbedService(articles EmbeddingArticleStore, embed EmbedFunc, limiter CallLimiter, modelName string, cfg config.EmbeddingConfig) *EmbedService {
	return &EmbedService{
		articles:  articles,
		embed:     embed,
		limiter:   limiter,
		modelName: modelName,
		cfg:       cfg,
	}
}

// Run processes one batch. Per-article failures are isolated and counted;
// the returned error is non-nil only when the batch could not be selected.
func (s *EmbedService) Run(ctx context.Context) (BatchReport, error) {
	batch, err := s.articles.FindNeedingEmbedding(ctx, int64(s.cfg.BatchSize), s.modelName)
	if err != nil {
		return BatchReport{}, fmt.Errorf("select articles needing embedding: %w", err)
	}

	var (
		mu     sync.Mutex
		report BatchReport
	)

	inFlight := s.cfg.MaxInFlight
	if inFlight <= 0 {
		inFlight = 2
	}
	sem := make(chan struct{}, inFlight)
	var wg sync.WaitGroup

	for _, article := range batch {
		if ctx.Err() != nil {
			break
		}

		if s.limiter != nil {
			ok, err := s.limiter.WaitAndReserve(ctx)
			if err != nil || !ok {
				if !ok && err == nil {
					logger.Log.Warn("daily model quota exhausted, stopping embedding batch")
				}
				break
			}
		}

		article := article
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			err := s.embedOne(ctx, article)
			mu.Lock()
			defer mu.Unlock()
			report.Processed++
			if err != nil {
				logger.ErrorWithFields("embedding failed", logger.Fields{
					"article_id": article.ID.Hex(),
					"error":      err.Error(),
				})
				report.Failed++
				return
			}
			report.Succeeded++
		}()
	}
	wg.Wait()

	logger.InfoWithFields("embedding run finished", logger.Fields{
		"batch":     len(batch),
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"model":     s.modelName,
	})
	return report, nil
}

func (s *EmbedService) embedOne(ctx context.Context, article models.Article) error {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.CallTimeoutSeconds)*time.Second)
	defer cancel()

	input := embedder.BuildInput(article.Title, article.Summary, article.Category)
	vector, err := s.embed(callCtx, input)
	if err != nil {
		return err
	}

	return s.articles.SetEmbedding(ctx, article.ID, vector, s.modelName, time.Now())
}
