package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SourceTypeRSS is the only fetch strategy currently implemented. The field
// is an open enum so new strategies can be added without a schema change.
const SourceTypeRSS = "rss"

// Source is an ingestion origin.
// Collection: sources
//
// Sources are administered out-of-band (seeded from config.yaml); the
// pipeline only ever advances LastFetchedAt, and only after a fetch that at
// least connected and parsed.
type Source struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Name       string `bson:"name" json:"name"`
	URL        string `bson:"url" json:"url"`
	SourceType string `bson:"source_type" json:"source_type"`

	Enabled  bool `bson:"enabled" json:"enabled"`
	Priority int  `bson:"priority" json:"priority"`

	LastFetchedAt *time.Time `bson:"last_fetched_at,omitempty" json:"last_fetched_at,omitempty"`
}
