package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Categories is the fixed category enumeration, in evaluation order.
// The first entry is the deterministic tie-break default.
var Categories = []string{
	"AI in RMG",
	"Automation",
	"Sustainability",
	"Supply Chain",
	"Quality Control",
	"Market Trends",
}

// DefaultCategory is assigned when classification produces no clear winner.
const DefaultCategory = "AI in RMG"

// IsValidCategory reports whether c is one of the fixed categories.
func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

// StatusFlags tracks processing progress of an article. ai_scored is the
// re-entrancy checkpoint of the AI scoring job: the heuristic baseline
// written at ingestion is always present, so scored-ness needs an explicit
// flag rather than a null-score predicate.
type StatusFlags struct {
	AIScored bool `bson:"ai_scored" json:"ai_scored"`
}

// AIInsight is a short AI-generated reading of an article.
type AIInsight struct {
	Narrative string   `bson:"narrative" json:"narrative"`
	Topics    []string `bson:"topics" json:"topics"`
}

// Article is the unit of content produced by the ingestion pipeline.
// Collection: articles
//
// Score fields are pointers: nil means "not computed yet", and the AI pass
// overwrites all of them as a set, never individually. Link is the canonical
// dedup key (unique index as a backstop; the ingestion gate checks first).
type Article struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
	Status     StatusFlags        `bson:"status" json:"status"`
	SourceID   primitive.ObjectID `bson:"source_id" json:"source_id"`
	SourceName string             `bson:"source_name" json:"source_name"`

	Title    string `bson:"title" json:"title"`
	Link     string `bson:"link" json:"link"`
	Summary  string `bson:"summary" json:"summary"`
	Body     string `bson:"body,omitempty" json:"body,omitempty"`
	ImageURL string `bson:"image_url,omitempty" json:"image_url,omitempty"`

	Category string   `bson:"category" json:"category"`
	Tags     []string `bson:"tags,omitempty" json:"tags,omitempty"`

	RelevanceScore  *int `bson:"relevance_score" json:"relevance_score"`
	QualityScore    *int `bson:"quality_score" json:"quality_score"`
	TimelinessScore *int `bson:"timeliness_score" json:"timeliness_score"`
	OverallScore    *int `bson:"overall_score" json:"overall_score"`

	AISummary string     `bson:"ai_summary,omitempty" json:"ai_summary,omitempty"`
	AIInsight *AIInsight `bson:"ai_insight,omitempty" json:"ai_insight,omitempty"`

	// Embedding is inline since it is 1:1 with the article and always read
	// together with it. EmbeddingModel exists so readers can exclude vectors
	// produced by a model other than the configured one.
	Embedding      []float32  `bson:"embedding,omitempty" json:"-"`
	EmbeddingModel string     `bson:"embedding_model,omitempty" json:"embedding_model,omitempty"`
	EmbeddedAt     *time.Time `bson:"embedded_at,omitempty" json:"embedded_at,omitempty"`

	PublishedAt        time.Time `bson:"published_at" json:"published_at"`
	PublishedAtMissing bool      `bson:"published_at_missing" json:"published_at_missing"`
	FetchedAt          time.Time `bson:"fetched_at" json:"fetched_at"`

	ViewCount int64 `bson:"view_count" json:"view_count"`
}
