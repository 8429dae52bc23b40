package main

import (
	"context"
	"log"
	"os"

	"google.golang.org/genai"

	"rmg-pulse/config"
	"rmg-pulse/db"
	"rmg-pulse/embedder"
	"rmg-pulse/logger"
	"rmg-pulse/quota"
	"rmg-pulse/repositories"
	"rmg-pulse/services"
)

// Run-once embedding job: fill in missing or stale-model embeddings for one
// batch of articles.
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

	emb := embedder.New(client, cfg.Gemini.EmbeddingModel)
	svc := services.NewEmbedService(
		repositories.NewArticleRepository(db.Database()),
		emb.Embed,
		quota.NewModelCallLimiterFromConfig(cfg),
		emb.ModelName(),
		cfg.Embedding,
	)

	report, err := svc.Run(ctx)
	if err != nil {
		logger.Log.Errorf("embedding run failed: %v", err)
		os.Exit(1)
	}
	logger.InfoWithFields("embedding job done", logger.Fields{
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
	})
}
