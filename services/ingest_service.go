package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"rmg-pulse/config"
	"rmg-pulse/feeder"
	"rmg-pulse/logger"
	"rmg-pulse/models"
	"rmg-pulse/scoring"
)

// SourceStore is the slice of the source repository the ingestion run needs.
type SourceStore interface {
	UpsertByURL(ctx context.Context, s *models.Source) (*mongo.UpdateResult, error)
	ListEnabled(ctx context.Context) ([]models.Source, error)
	MarkFetched(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// IngestArticleStore is the slice of the article repository the gate needs.
type IngestArticleStore interface {
	IsExistByLink(ctx context.Context, link string) (bool, error)
	Insert(ctx context.Context, a *models.Article) (*mongo.InsertOneResult, error)
}

// FetchFunc fetches one feed URL into candidates. Injected for tests.
type FetchFunc func(ctx context.Context, feedURL string, limit int, timeout time.Duration) ([]feeder.Candidate, error)

// IngestService runs one fetch-and-admit cycle: seed sources, fetch enabled
// ones concurrently, dedup candidates by link, heuristically score them and
// persist those at or above the admission threshold.
type IngestService struct {
	sources  SourceStore
	articles IngestArticleStore
	fetch    FetchFunc
	cfg      config.IngestConfig
	seed     []config.SourceConfig
}

func NewIngestService(sources SourceStore, articles IngestArticleStore, fetch FetchFunc, cfg config.IngestConfig, seed []config.SourceConfig) *IngestService {
	if fetch == nil {
		fetch = feeder.FetchSource
	}
	return &IngestService{
		sources:  sources,
		articles: articles,
		fetch:    fetch,
		cfg:      cfg,
		seed:     seed,
	}
}

// Run executes one ingestion cycle. The returned error is non-nil only when
// nothing could be done at all (no sources, or every source failed); partial
// failures are reported through the counts.
func (s *IngestService) Run(ctx context.Context) (BatchReport, error) {
	s.seedSources(ctx)

	sources, err := s.sources.ListEnabled(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("list enabled sources: %w", err)
	}
	if len(sources) == 0 {
		logger.Log.Warn("no enabled sources configured")
		return BatchReport{}, nil
	}

	var (
		mu            sync.Mutex
		report        BatchReport
		failedSources int
	)

	workers := s.cfg.FetchWorkers
	if workers <= 0 {
		workers = 4
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		src := src
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			r, ok := s.ingestSource(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			report.Processed += r.Processed
			report.Succeeded += r.Succeeded
			report.Failed += r.Failed
			report.Skipped += r.Skipped
			if !ok {
				failedSources++
			}
		}()
	}
	wg.Wait()

	logger.InfoWithFields("ingestion run finished", logger.Fields{
		"sources":   len(sources),
		"admitted":  report.Succeeded,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
		"processed": report.Processed,
	})

	if failedSources == len(sources) {
		return report, fmt.Errorf("all %d sources failed to fetch", len(sources))
	}
	return report, nil
}

// seedSources upserts the configured sources into the registry. Failures are
// logged per source; an out-of-date registry entry is not fatal to the run.
func (s *IngestService) seedSources(ctx context.Context) {
	for _, sc := range s.seed {
		src := &models.Source{
			Name: sc.Name,
			URL:  sc.URL,
			SourceType: func() string {
				if sc.SourceType != "" {
					return sc.SourceType
				}
				return models.SourceTypeRSS
			}(),
			Enabled:  sc.Enabled,
			Priority: sc.Priority,
		}
		if _, err := s.sources.UpsertByURL(ctx, src); err != nil {
			logger.Log.Errorf("failed to upsert source %s: %v", sc.Name, err)
		}
	}
}

// ingestSource fetches one source and runs every candidate through the gate.
// ok is false only when the fetch itself failed; last_fetched_at is withheld
// in that case.
func (s *IngestService) ingestSource(ctx context.Context, src models.Source) (BatchReport, bool) {
	var report BatchReport

	if src.SourceType != models.SourceTypeRSS {
		logger.Log.Warnf("source %s has unsupported type %q, skipping", src.Name, src.SourceType)
		return report, true
	}

	timeout := time.Duration(s.cfg.FetchTimeoutSeconds) * time.Second
	candidates, err := s.fetch(ctx, src.URL, s.cfg.PerSourceLimit, timeout)
	if err != nil {
		logger.ErrorWithFields("source fetch failed", logger.Fields{
			"source": src.Name,
			"url":    src.URL,
			"error":  err.Error(),
		})
		return report, false
	}

	fetchedAt := time.Now()
	for _, cand := range candidates {
		report.Processed++

		exists, err := s.articles.IsExistByLink(ctx, cand.Link)
		if err != nil {
			logger.Log.Errorf("dedup check failed for %s: %v", cand.Link, err)
			report.Failed++
			continue
		}
		if exists {
			report.Skipped++
			continue
		}

		heuristic := scoring.Score(scoring.Input{
			Title:              cand.Title,
			Description:        cand.Description,
			SourceName:         src.Name,
			PublishedAt:        cand.PublishedAt,
			PublishedAtMissing: cand.PublishedAtMissing,
		})

		if heuristic.Relevance < s.cfg.AdmissionThreshold {
			logger.DebugWithFields("candidate below admission threshold", logger.Fields{
				"link":      cand.Link,
				"relevance": heuristic.Relevance,
			})
			report.Skipped++
			continue
		}

		article := &models.Article{
			SourceID:           src.ID,
			SourceName:         src.Name,
			Title:              cand.Title,
			Link:               cand.Link,
			Summary:            cand.Description,
			Body:               cand.Body,
			ImageURL:           cand.ImageURL,
			Category:           heuristic.Category,
			RelevanceScore:     intPtr(heuristic.Relevance),
			QualityScore:       intPtr(heuristic.Quality),
			TimelinessScore:    intPtr(heuristic.Timeliness),
			OverallScore:       intPtr(heuristic.Overall),
			PublishedAt:        cand.PublishedAt,
			PublishedAtMissing: cand.PublishedAtMissing,
			FetchedAt:          fetchedAt,
		}
		if _, err := s.articles.Insert(ctx, article); err != nil {
			// a concurrent run may have inserted the same link; the unique
			// index turns that into a duplicate-key error, which is a skip
			if mongo.IsDuplicateKeyError(err) {
				report.Skipped++
				continue
			}
			logger.Log.Errorf("failed to insert article (source=%s, link=%s): %v", src.Name, cand.Link, err)
			report.Failed++
			continue
		}
		report.Succeeded++
	}

	if err := s.sources.MarkFetched(ctx, src.ID, fetchedAt); err != nil {
		logger.Log.Errorf("failed to advance last_fetched_at for %s: %v", src.Name, err)
	}

	return report, true
}

func intPtr(v int) *int { return &v }
