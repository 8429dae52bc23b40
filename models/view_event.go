package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ViewEvent records that a user read an article. Written fire-and-forget
// from the read path; consumed by personalization outside this pipeline.
// Collection: view_events
type ViewEvent struct {
	ID        string             `bson:"_id" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	ArticleID primitive.ObjectID `bson:"article_id" json:"article_id"`
	Category  string             `bson:"category" json:"category"`
	ViewedAt  time.Time          `bson:"viewed_at" json:"viewed_at"`
}
