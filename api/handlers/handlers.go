package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"rmg-pulse/services"
)

// GetFeedHandler godoc
// @Summary      Get ranked article feed
// @Description  Paginated feed ordered by overall score desc, then published_at desc
// @Tags         feed
// @Param        limit       query  int       false  "Page size (<=100, default 20)"
// @Param        offset      query  int       false  "Items to skip"
// @Param        category    query  string    false  "Restrict to one category"
// @Param        for_you     query  bool      false  "Restrict to interest categories"
// @Param        interests   query  []string  false  "Interest categories (used with for_you)"
// @Produce      json
// @Success      200  {object}  dto.FeedPageDTO
// @Router       /feed [get]
func GetFeedHandler(svc *services.FeedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		forYou, _ := strconv.ParseBool(c.DefaultQuery("for_you", "false"))

		page, err := svc.GetFeed(c.Request.Context(), services.FeedQuery{
			Limit:              limit,
			Offset:             offset,
			Category:           c.Query("category"),
			ForYou:             forYou,
			InterestCategories: c.QueryArray("interests"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// GetArticleHandler godoc
// @Summary      Get article by id
// @Description  Get a single article by ObjectID. When user_id is supplied the read is recorded as view telemetry.
// @Tags         articles
// @Param        id       path   string  true   "ObjectID"
// @Param        user_id  query  string  false  "Viewer id for telemetry"
// @Produce      json
// @Success      200  {object}  dto.ArticleDTO
// @Router       /articles/{id} [get]
func GetArticleHandler(svc *services.FeedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param("id")
		article, err := svc.GetByID(c.Request.Context(), idStr)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		if userID := c.Query("user_id"); userID != "" {
			svc.RecordView(userID, article.ID, article.Category)
		}
		c.JSON(http.StatusOK, article)
	}
}

// SearchArticlesHandler godoc
// @Summary      Search articles
// @Description  Substring match over title and summary, ranked like the main feed
// @Tags         articles
// @Param        q         query  string  true   "Search query"
// @Param        limit     query  int     false  "Page size (<=100, default 20)"
// @Param        offset    query  int     false  "Items to skip"
// @Param        category  query  string  false  "Restrict to one category"
// @Produce      json
// @Success      200  {object}  dto.FeedPageDTO
// @Router       /articles/search [get]
func SearchArticlesHandler(svc *services.FeedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		page, err := svc.SearchArticles(c.Request.Context(), query, services.FeedQuery{
			Limit:    limit,
			Offset:   offset,
			Category: c.Query("category"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// GetCategoriesHandler godoc
// @Summary      List categories with counts
// @Description  Returns the full category enumeration, including empty ones
// @Tags         categories
// @Produce      json
// @Success      200  {array}  dto.CategoryCountDTO
// @Router       /categories [get]
func GetCategoriesHandler(svc *services.FeedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := svc.GetCategories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, counts)
	}
}

type postViewRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ArticleID string `json:"article_id" binding:"required"`
	Category  string `json:"category"`
}

// PostViewHandler godoc
// @Summary      Record an article view
// @Description  Stores read telemetry and bumps the article view counter. Accepted immediately; the write is asynchronous.
// @Tags         views
// @Accept       json
// @Param        view  body  postViewRequest  true  "View event"
// @Produce      json
// @Success      202  {object}  map[string]string
// @Router       /views [post]
func PostViewHandler(svc *services.FeedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req postViewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		svc.RecordView(req.UserID, req.ArticleID, req.Category)
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	}
}
