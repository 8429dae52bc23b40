package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"rmg-pulse/models"
)

type AnalysisCacheRepository struct {
	col *mongo.Collection
}

func NewAnalysisCacheRepository(db *mongo.Database) *AnalysisCacheRepository {
	return &AnalysisCacheRepository{col: db.Collection("analysis_cache")}
}

// Find returns the cache entry for (articleID, analysisType), or nil when
// none exists. A miss is the expected trigger for a model call, not an error.
func (r *AnalysisCacheRepository) Find(ctx context.Context, articleID primitive.ObjectID, analysisType string) (*models.AnalysisCacheEntry, error) {
	var e models.AnalysisCacheEntry
	err := r.col.FindOne(ctx, bson.M{
		"article_id":    articleID,
		"analysis_type": analysisType,
	}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete removes the entry for (articleID, analysisType) if present.
func (r *AnalysisCacheRepository) Delete(ctx context.Context, articleID primitive.ObjectID, analysisType string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{
		"article_id":    articleID,
		"analysis_type": analysisType,
	})
	return err
}
