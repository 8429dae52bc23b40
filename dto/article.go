package dto

import (
	"time"

	"rmg-pulse/models"
)

// ArticleDTO exposes the fields API consumers need. Score fields stay
// pointers so "not yet computed" is distinguishable from zero. Embedding
// vectors are internal and never serialized.
type ArticleDTO struct {
	ID         string `json:"id"`
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`

	Title    string `json:"title"`
	Link     string `json:"link"`
	Summary  string `json:"summary"`
	ImageURL string `json:"image_url,omitempty"`

	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`

	RelevanceScore  *int `json:"relevance_score"`
	QualityScore    *int `json:"quality_score"`
	TimelinessScore *int `json:"timeliness_score"`
	OverallScore    *int `json:"overall_score"`

	AISummary string            `json:"ai_summary,omitempty"`
	AIInsight *models.AIInsight `json:"ai_insight,omitempty"`

	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
	ViewCount   int64     `json:"view_count"`
}

// NewArticleDTO constructs ArticleDTO from models.Article
func NewArticleDTO(a models.Article) ArticleDTO {
	return ArticleDTO{
		ID:              a.ID.Hex(),
		SourceID:        a.SourceID.Hex(),
		SourceName:      a.SourceName,
		Title:           a.Title,
		Link:            a.Link,
		Summary:         a.Summary,
		ImageURL:        a.ImageURL,
		Category:        a.Category,
		Tags:            a.Tags,
		RelevanceScore:  a.RelevanceScore,
		QualityScore:    a.QualityScore,
		TimelinessScore: a.TimelinessScore,
		OverallScore:    a.OverallScore,
		AISummary:       a.AISummary,
		AIInsight:       a.AIInsight,
		PublishedAt:     a.PublishedAt,
		FetchedAt:       a.FetchedAt,
		ViewCount:       a.ViewCount,
	}
}

// FeedPageDTO is the standard paginated article response.
type FeedPageDTO struct {
	Articles []ArticleDTO `json:"articles"`
	Total    int64        `json:"total"`
	HasMore  bool         `json:"has_more"`
}

// CategoryCountDTO pairs a category with its stored article count.
type CategoryCountDTO struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
