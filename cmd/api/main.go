package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/rs/cors"

	"rmg-pulse/api/router"
	"rmg-pulse/config"
	"rmg-pulse/db"
	_ "rmg-pulse/docs"
	"rmg-pulse/logger"
)

// @title           RMG Pulse API
// @version         1.0
// @description     API for browsing scored and ranked RMG industry news
// @BasePath        /api/v1
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	if err := db.Init(context.Background()); err != nil {
		log.Fatal("failed to initialize MongoDB:", err)
	}

	r := router.New()

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Log.Infof("api listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
