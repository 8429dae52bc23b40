package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnalysisTypeScoring is the only analysis type currently cached.
const AnalysisTypeScoring = "scoring"

// ScoringPayload is the memoized result of one AI scoring call. Applying a
// cached payload must reproduce exactly the article state the original call
// produced, so everything the article update needs is stored here.
type ScoringPayload struct {
	RelevanceScore  int       `bson:"relevance_score" json:"relevance_score"`
	QualityScore    int       `bson:"quality_score" json:"quality_score"`
	TimelinessScore int       `bson:"timeliness_score" json:"timeliness_score"`
	Category        string    `bson:"category" json:"category"`
	Summary         string    `bson:"summary" json:"summary"`
	Insight         AIInsight `bson:"insight" json:"insight"`
}

// AnalysisCacheEntry memoizes AI output per (article, analysis type).
// Collection: analysis_cache, unique index on (article_id, analysis_type).
//
// Entries are replaced, never mutated in place, and are not served past
// ExpiresAt.
type AnalysisCacheEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ArticleID    primitive.ObjectID `bson:"article_id" json:"article_id"`
	AnalysisType string             `bson:"analysis_type" json:"analysis_type"`
	Result       ScoringPayload     `bson:"result" json:"result"`
	ModelName    string             `bson:"model_name" json:"model_name"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	ExpiresAt    time.Time          `bson:"expires_at" json:"expires_at"`
}

// IsExpired reports whether the entry must not be served at the given time.
func (e AnalysisCacheEntry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
