package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rmg-pulse/models"
)

type SourceRepository struct {
	col *mongo.Collection
}

func NewSourceRepository(db *mongo.Database) *SourceRepository {
	return &SourceRepository{col: db.Collection("sources")}
}

// UpsertByURL upserts a source document identified by its fetch URL.
// last_fetched_at is deliberately left alone so re-seeding from config does
// not reset fetch bookkeeping.
func (r *SourceRepository) UpsertByURL(ctx context.Context, s *models.Source) (*mongo.UpdateResult, error) {
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	filter := bson.M{"url": s.URL}
	update := bson.M{
		"$setOnInsert": bson.M{
			"created_at": s.CreatedAt,
		},
		"$set": bson.M{
			"updated_at":  s.UpdatedAt,
			"name":        s.Name,
			"url":         s.URL,
			"source_type": s.SourceType,
			"enabled":     s.Enabled,
			"priority":    s.Priority,
		},
	}
	opts := options.Update().SetUpsert(true)
	return r.col.UpdateOne(ctx, filter, update, opts)
}

// GetByURL finds a source by its fetch URL.
func (r *SourceRepository) GetByURL(ctx context.Context, url string) (*models.Source, error) {
	var s models.Source
	if err := r.col.FindOne(ctx, bson.M{"url": url}).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListEnabled returns enabled sources in ascending priority order.
func (r *SourceRepository) ListEnabled(ctx context.Context) ([]models.Source, error) {
	findOpts := options.Find().SetSort(bson.D{
		{Key: "priority", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := r.col.Find(ctx, bson.M{"enabled": true}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var results []models.Source
	for cur.Next(ctx) {
		var s models.Source
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// MarkFetched advances last_fetched_at. Called only after a fetch that at
// least connected and parsed, even when it yielded zero new items.
func (r *SourceRepository) MarkFetched(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"last_fetched_at": at,
			"updated_at":      time.Now(),
		},
	})
	return err
}
