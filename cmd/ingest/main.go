package main

import (
	"context"
	"log"
	"os"

	"rmg-pulse/config"
	"rmg-pulse/db"
	"rmg-pulse/logger"
	"rmg-pulse/repositories"
	"rmg-pulse/services"
)

// Run-once ingestion job: fetch every enabled source, heuristically score
// the candidates and admit those above the threshold. Meant to be scheduled
// externally (cron or a container orchestrator).
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	ctx := context.Background()
	if err := db.Init(ctx); err != nil {
		log.Fatal("failed to initialize MongoDB:", err)
	}

	svc := services.NewIngestService(
		repositories.NewSourceRepository(db.Database()),
		repositories.NewArticleRepository(db.Database()),
		nil,
		cfg.Ingest,
		cfg.Sources,
	)

	report, err := svc.Run(ctx)
	if err != nil {
		logger.Log.Errorf("ingestion run failed: %v", err)
		os.Exit(1)
	}
	logger.InfoWithFields("ingestion job done", logger.Fields{
		"admitted": report.Succeeded,
		"rejected": report.Skipped,
		"failed":   report.Failed,
	})
}
