package main

import (
	"context"
	"log"
	"os"

	"google.golang.org/genai"

	"rmg-pulse/analyzer"
	"rmg-pulse/config"
	"rmg-pulse/db"
	"rmg-pulse/logger"
	"rmg-pulse/quota"
	"rmg-pulse/repositories"
	"rmg-pulse/services"
)

// Run-once AI scoring job: pick one batch of articles still carrying only
// heuristic scores and replace those with model scores, going through the
// analysis cache first.
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	ctx := context.Background()
	if err := db.Init(ctx); err != nil {
		log.Fatal("failed to initialize MongoDB:", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiApiKey,
	})
	if err != nil {
		log.Fatal("failed to create genai client:", err)
	}

	modelName := cfg.Gemini.ScoringModel
	score := func(ctx context.Context, in analyzer.Input) (*analyzer.ScoringResult, *analyzer.LLMRequestLog, error) {
		return analyzer.ScoreArticle(ctx, client, modelName, in)
	}

	svc := services.NewScorecastService(
		repositories.NewArticleRepository(db.Database()),
		repositories.NewAnalysisCacheRepository(db.Database()),
		repositories.NewAILogRepository(db.Database()),
		quota.NewModelCallLimiterFromConfig(cfg),
		score,
		modelName,
		cfg.AIScoring,
	)

	report, err := svc.Run(ctx)
	if err != nil {
		logger.Log.Errorf("ai scoring run failed: %v", err)
		os.Exit(1)
	}
	logger.InfoWithFields("ai scoring job done", logger.Fields{
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
	})
}
