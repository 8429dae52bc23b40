package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/bson"

	"rmg-pulse/api/handlers"
	"rmg-pulse/api/middleware"
	"rmg-pulse/db"
	_ "rmg-pulse/docs"
	"rmg-pulse/repositories"
	"rmg-pulse/services"
)

func New() *gin.Engine {
	r := gin.Default()
	r.Use(middleware.RequestLoggingMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		if err := db.Database().RunCommand(context.Background(), bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mongo": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// v1 routes
	api := r.Group("/api/v1")
	{
		articleRepo := repositories.NewArticleRepository(db.Database())
		viewRepo := repositories.NewViewEventRepository(db.Database())
		feedSvc := services.NewFeedService(articleRepo, viewRepo)

		api.GET("/feed", handlers.GetFeedHandler(feedSvc))
		api.GET("/articles/search", handlers.SearchArticlesHandler(feedSvc))
		api.GET("/articles/:id", handlers.GetArticleHandler(feedSvc))
		api.GET("/categories", handlers.GetCategoriesHandler(feedSvc))
		api.POST("/views", handlers.PostViewHandler(feedSvc))
	}

	return r
}
