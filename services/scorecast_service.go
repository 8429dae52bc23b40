package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"rmg-pulse/analyzer"
	"rmg-pulse/config"
	"rmg-pulse/logger"
	"rmg-pulse/models"
	"rmg-pulse/repositories"
	"rmg-pulse/scoring"
)

// ScoringArticleStore is the slice of the article repository the AI pass needs.
type ScoringArticleStore interface {
	FindUnscored(ctx context.Context, limit int64) ([]models.Article, error)
	ApplyScores(ctx context.Context, id primitive.ObjectID, u repositories.ScoreUpdate) error
	ApplyScoresWithCache(ctx context.Context, id primitive.ObjectID, u repositories.ScoreUpdate, entry models.AnalysisCacheEntry) error
}

// CacheStore reads memoized analysis results.
type CacheStore interface {
	Find(ctx context.Context, articleID primitive.ObjectID, analysisType string) (*models.AnalysisCacheEntry, error)
}

// AILogStore persists model-call telemetry.
type AILogStore interface {
	Insert(ctx context.Context, log models.AILog) (*mongo.InsertOneResult, error)
}

// CallLimiter gates outbound model calls.
type CallLimiter interface {
	WaitAndReserve(ctx context.Context) (bool, error)
}

// ScoreFunc issues one scoring model call. Injected for tests.
type ScoreFunc func(ctx context.Context, in analyzer.Input) (*analyzer.ScoringResult, *analyzer.LLMRequestLog, error)

// ScorecastService re-scores a bounded batch of articles with the language
// model, consulting the analysis cache before every call. The heuristic
// baseline stays in place for anything this pass cannot reach; that is a
// degraded state, not an error state.
type ScorecastService struct {
	articles  ScoringArticleStore
	cache     CacheStore
	aiLogs    AILogStore
	limiter   CallLimiter
	score     ScoreFunc
	modelName string
	cfg       config.AIScoringConfig
}

func NewScorecastService(articles ScoringArticleStore, cache CacheStore, aiLogs AILogStore, limiter CallLimiter, score ScoreFunc, modelName string, cfg config.AIScoringConfig) *ScorecastService {
	return &ScorecastService{
		articles:  articles,
		cache:     cache,
		aiLogs:    aiLogs,
		limiter:   limiter,
		score:     score,
		modelName: modelName,
		cfg:       cfg,
	}
}

// Run processes one batch. Per-article failures are isolated; the returned
// error is non-nil only when the batch could not be selected at all.
func (s *ScorecastService) Run(ctx context.Context) (BatchReport, error) {
	batch, err := s.articles.FindUnscored(ctx, int64(s.cfg.BatchSize))
	if err != nil {
		return BatchReport{}, fmt.Errorf("select unscored articles: %w", err)
	}

	var report BatchReport
	cacheHits := 0

	for _, article := range batch {
		if ctx.Err() != nil {
			break
		}
		report.Processed++

		hit, err := s.applyFromCache(ctx, article)
		if err != nil {
			logger.Log.Errorf("cache apply failed for article %s: %v", article.ID.Hex(), err)
			report.Failed++
			continue
		}
		if hit {
			cacheHits++
			report.Succeeded++
			continue
		}

		ok, err := s.limiter.WaitAndReserve(ctx)
		if err != nil {
			logger.Log.Warnf("model quota wait interrupted: %v", err)
			report.Skipped += len(batch) - report.Processed + 1
			break
		}
		if !ok {
			logger.Log.Warn("daily model quota exhausted, skipping remainder of batch")
			report.Skipped += len(batch) - report.Processed + 1
			break
		}

		if err := s.scoreWithModel(ctx, article); err != nil {
			logger.ErrorWithFields("ai scoring failed", logger.Fields{
				"article_id": article.ID.Hex(),
				"title":      article.Title,
				"error":      err.Error(),
			})
			report.Failed++
			continue
		}
		report.Succeeded++
	}

	logger.InfoWithFields("ai scoring run finished", logger.Fields{
		"batch":      len(batch),
		"succeeded":  report.Succeeded,
		"failed":     report.Failed,
		"skipped":    report.Skipped,
		"cache_hits": cacheHits,
	})
	return report, nil
}

// applyFromCache applies a fresh cache entry without a model call. Reports
// whether the article was handled. Expired entries are treated as misses;
// the fresh result written afterwards replaces them.
func (s *ScorecastService) applyFromCache(ctx context.Context, article models.Article) (bool, error) {
	entry, err := s.cache.Find(ctx, article.ID, models.AnalysisTypeScoring)
	if err != nil {
		return false, err
	}
	if entry == nil || entry.IsExpired(time.Now()) {
		return false, nil
	}

	p := entry.Result
	update := repositories.ScoreUpdate{
		RelevanceScore:  p.RelevanceScore,
		QualityScore:    p.QualityScore,
		TimelinessScore: p.TimelinessScore,
		OverallScore:    scoring.BlendOverall(p.RelevanceScore, p.QualityScore, p.TimelinessScore),
		Category:        p.Category,
		AISummary:       p.Summary,
		AIInsight:       p.Insight,
	}
	if err := s.articles.ApplyScores(ctx, article.ID, update); err != nil {
		return false, err
	}
	return true, nil
}

// scoreWithModel makes the model call, records telemetry, and writes the
// article update and the fresh cache entry as one transaction.
func (s *ScorecastService) scoreWithModel(ctx context.Context, article models.Article) error {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.CallTimeoutSeconds)*time.Second)
	defer cancel()

	result, reqLog, err := s.score(callCtx, analyzer.Input{
		Title:       article.Title,
		Summary:     article.Summary,
		Body:        article.Body,
		SourceName:  article.SourceName,
		PublishedAt: article.PublishedAt,
	})
	s.writeAILog(article.ID, reqLog, err)
	if err != nil {
		return err
	}

	now := time.Now()
	payload := models.ScoringPayload{
		RelevanceScore:  result.RelevanceScore,
		QualityScore:    result.QualityScore,
		TimelinessScore: result.TimelinessScore,
		Category:        result.Category,
		Summary:         result.Summary,
		Insight: models.AIInsight{
			Narrative: result.Insight.Narrative,
			Topics:    result.Insight.Topics,
		},
	}
	update := repositories.ScoreUpdate{
		RelevanceScore:  payload.RelevanceScore,
		QualityScore:    payload.QualityScore,
		TimelinessScore: payload.TimelinessScore,
		OverallScore:    scoring.BlendOverall(payload.RelevanceScore, payload.QualityScore, payload.TimelinessScore),
		Category:        payload.Category,
		AISummary:       payload.Summary,
		AIInsight:       payload.Insight,
	}
	entry := models.AnalysisCacheEntry{
		ArticleID:    article.ID,
		AnalysisType: models.AnalysisTypeScoring,
		Result:       payload,
		ModelName:    s.modelName,
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Duration(s.cfg.CacheTTLDays) * 24 * time.Hour),
	}

	return s.articles.ApplyScoresWithCache(ctx, article.ID, update, entry)
}

// writeAILog persists call telemetry best-effort; a logging failure never
// fails the scoring of the article.
func (s *ScorecastService) writeAILog(articleID primitive.ObjectID, reqLog *analyzer.LLMRequestLog, callErr error) {
	if s.aiLogs == nil || reqLog == nil {
		return
	}

	entry := models.AILog{
		ArticleID:      articleID,
		ModelName:      reqLog.ModelName,
		ModelVersion:   reqLog.ModelVersion,
		InputTokens:    reqLog.TokenUsage.InputTokens,
		OutputTokens:   reqLog.TokenUsage.OutputTokens,
		TotalTokens:    reqLog.TokenUsage.TotalTokens,
		DurationMs:     reqLog.LatencyMs,
		InputPrompt:    reqLog.Prompt,
		OutputResponse: reqLog.Response,
		RequestedAt:    reqLog.GeneratedAt.Add(-time.Duration(reqLog.LatencyMs) * time.Millisecond),
		CompletedAt:    reqLog.GeneratedAt,
	}
	if callErr != nil {
		msg := callErr.Error()
		entry.ErrorMessage = &msg
	}

	logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.aiLogs.Insert(logCtx, entry); err != nil {
		logger.Log.Warnf("failed to persist ai log: %v", err)
	}
}
