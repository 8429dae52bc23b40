package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"rmg-pulse/dto"
	"rmg-pulse/logger"
	"rmg-pulse/models"
	"rmg-pulse/repositories"
)

// FeedArticleStore is the read-side slice of the article repository.
type FeedArticleStore interface {
	List(ctx context.Context, opt repositories.ListArticlesOptions) ([]models.Article, int64, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Article, error)
	CountByCategory(ctx context.Context) ([]repositories.CategoryCount, error)
	IncrementViewCount(ctx context.Context, id primitive.ObjectID) error
}

// ViewEventStore persists read telemetry.
type ViewEventStore interface {
	Insert(ctx context.Context, ev models.ViewEvent) (*mongo.InsertOneResult, error)
}

// FeedService composes the ranked feed at read time. Strictly read-only with
// respect to pipeline state; the only writes it issues are view telemetry,
// and those are fire-and-forget.
type FeedService struct {
	articles FeedArticleStore
	views    ViewEventStore
}

func NewFeedService(articles FeedArticleStore, views ViewEventStore) *FeedService {
	return &FeedService{articles: articles, views: views}
}

// FeedQuery selects and pages the feed. When ForYou is set the feed is
// restricted to the user's declared interest categories (category-set
// intersection; embedding-similarity personalization is a future extension).
type FeedQuery struct {
	Limit              int
	Offset             int
	Category           string
	ForYou             bool
	InterestCategories []string
}

// GetFeed returns one page ordered by overall score desc, published_at desc.
func (s *FeedService) GetFeed(ctx context.Context, q FeedQuery) (*dto.FeedPageDTO, error) {
	opt := repositories.ListArticlesOptions{
		Limit:    q.Limit,
		Offset:   q.Offset,
		Category: q.Category,
	}
	if q.ForYou && q.Category == "" && len(q.InterestCategories) > 0 {
		opt.Categories = q.InterestCategories
	}

	items, total, err := s.articles.List(ctx, opt)
	if err != nil {
		return nil, err
	}
	return newFeedPage(items, total, q.Offset, normalizedLimit(q.Limit)), nil
}

// SearchArticles returns a page of articles whose title or summary contains
// the query as a substring, ranked like the main feed.
func (s *FeedService) SearchArticles(ctx context.Context, query string, q FeedQuery) (*dto.FeedPageDTO, error) {
	items, total, err := s.articles.List(ctx, repositories.ListArticlesOptions{
		Limit:    q.Limit,
		Offset:   q.Offset,
		Category: q.Category,
		Search:   query,
	})
	if err != nil {
		return nil, err
	}
	return newFeedPage(items, total, q.Offset, normalizedLimit(q.Limit)), nil
}

// GetByID loads an article by its ObjectID hex and returns a DTO.
func (s *FeedService) GetByID(ctx context.Context, hexID string) (*dto.ArticleDTO, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, err
	}
	a, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := dto.NewArticleDTO(*a)
	return &d, nil
}

// GetCategories returns counts for the whole fixed enumeration, including
// categories that currently hold no articles.
func (s *FeedService) GetCategories(ctx context.Context) ([]dto.CategoryCountDTO, error) {
	counts, err := s.articles.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]int64, len(counts))
	for _, c := range counts {
		byName[c.Category] = c.Count
	}

	out := make([]dto.CategoryCountDTO, 0, len(models.Categories))
	for _, cat := range models.Categories {
		out = append(out, dto.CategoryCountDTO{Category: cat, Count: byName[cat]})
	}
	return out, nil
}

// RecordView stores read telemetry and bumps the article view counter.
// Fire-and-forget: runs in its own goroutine with its own timeout and never
// blocks or fails the read path that triggered it.
func (s *FeedService) RecordView(userID, articleHexID, category string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		articleID, err := primitive.ObjectIDFromHex(articleHexID)
		if err != nil {
			logger.Log.Warnf("record view: bad article id %q: %v", articleHexID, err)
			return
		}

		if s.views != nil {
			if _, err := s.views.Insert(ctx, models.ViewEvent{
				UserID:    userID,
				ArticleID: articleID,
				Category:  category,
				ViewedAt:  time.Now(),
			}); err != nil {
				logger.Log.Warnf("record view: insert event failed: %v", err)
			}
		}
		if err := s.articles.IncrementViewCount(ctx, articleID); err != nil {
			logger.Log.Warnf("record view: increment count failed: %v", err)
		}
	}()
}

func normalizedLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

func newFeedPage(items []models.Article, total int64, offset, limit int) *dto.FeedPageDTO {
	out := make([]dto.ArticleDTO, 0, len(items))
	for _, a := range items {
		out = append(out, dto.NewArticleDTO(a))
	}
	return &dto.FeedPageDTO{
		Articles: out,
		Total:    total,
		HasMore:  total > int64(offset+limit),
	}
}
