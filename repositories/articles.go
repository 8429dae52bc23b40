package repositories

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rmg-pulse/models"
)

type ArticleRepository struct {
	col *mongo.Collection
	db  *mongo.Database
}

func NewArticleRepository(db *mongo.Database) *ArticleRepository {
	return &ArticleRepository{col: db.Collection("articles"), db: db}
}

// IsExistByLink checks if an article exists by its canonical link.
func (r *ArticleRepository) IsExistByLink(ctx context.Context, link string) (bool, error) {
	err := r.col.FindOne(ctx, bson.M{"link": link}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return err == nil, err
}

// Insert inserts a new article document.
func (r *ArticleRepository) Insert(ctx context.Context, a *models.Article) (*mongo.InsertOneResult, error) {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.FetchedAt.IsZero() {
		a.FetchedAt = now
	}
	return r.col.InsertOne(ctx, a)
}

// FindByID returns an article by its ObjectID
func (r *ArticleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Article, error) {
	var a models.Article
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByLink returns an article by link
func (r *ArticleRepository) FindByLink(ctx context.Context, link string) (*models.Article, error) {
	var a models.Article
	if err := r.col.FindOne(ctx, bson.M{"link": link}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindUnscored returns up to limit articles the AI pass has not processed
// yet. The status flag on the document is the only checkpoint, so the query
// is safe to re-run and to run in parallel.
func (r *ArticleRepository) FindUnscored(ctx context.Context, limit int64) ([]models.Article, error) {
	filter := bson.M{"status.ai_scored": false}
	findOpts := options.Find().SetLimit(limit).SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	return r.findAll(ctx, filter, findOpts)
}

// FindNeedingEmbedding returns up to limit articles that have no embedding,
// or whose embedding was generated by a model other than modelName. Stale
// vectors are re-generated rather than mixed into ranking.
func (r *ArticleRepository) FindNeedingEmbedding(ctx context.Context, limit int64, modelName string) ([]models.Article, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"embedding": bson.M{"$exists": false}},
			{"embedding": nil},
			{"embedding_model": bson.M{"$ne": modelName}},
		},
	}
	findOpts := options.Find().SetLimit(limit).SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	return r.findAll(ctx, filter, findOpts)
}

func (r *ArticleRepository) findAll(ctx context.Context, filter bson.M, findOpts *options.FindOptions) ([]models.Article, error) {
	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var results []models.Article
	for cur.Next(ctx) {
		var a models.Article
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ScoreUpdate carries the complete score set the AI pass computed for one
// article. Applied only as a whole; readers never observe a partial set.
type ScoreUpdate struct {
	RelevanceScore  int
	QualityScore    int
	TimelinessScore int
	OverallScore    int
	Category        string
	AISummary       string
	AIInsight       models.AIInsight
}

func (u ScoreUpdate) set() bson.M {
	return bson.M{
		"status.ai_scored": true,
		"relevance_score":  u.RelevanceScore,
		"quality_score":    u.QualityScore,
		"timeliness_score": u.TimelinessScore,
		"overall_score":    u.OverallScore,
		"category":         u.Category,
		"ai_summary":       u.AISummary,
		"ai_insight":       u.AIInsight,
		"updated_at":       time.Now(),
	}
}

// ApplyScores overwrites the full score set in a single update. Used when a
// fresh cache entry already exists and only the article needs the write.
func (r *ArticleRepository) ApplyScores(ctx context.Context, id primitive.ObjectID, u ScoreUpdate) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": u.set()})
	return err
}

// ApplyScoresWithCache writes the article score set and replaces the
// analysis cache entry in one transaction, so a crash cannot leave the two
// records disagreeing.
func (r *ArticleRepository) ApplyScoresWithCache(ctx context.Context, id primitive.ObjectID, u ScoreUpdate, entry models.AnalysisCacheEntry) error {
	sess, err := r.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	cacheCol := r.db.Collection("analysis_cache")
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.col.UpdateByID(sc, id, bson.M{"$set": u.set()}); err != nil {
			return nil, err
		}
		filter := bson.M{"article_id": entry.ArticleID, "analysis_type": entry.AnalysisType}
		opts := options.Replace().SetUpsert(true)
		if _, err := cacheCol.ReplaceOne(sc, filter, entry, opts); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// SetEmbedding stores the vector together with the model that produced it
// and the generation time, as one atomic update.
func (r *ArticleRepository) SetEmbedding(ctx context.Context, id primitive.ObjectID, vector []float32, modelName string, at time.Time) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"embedding":       vector,
			"embedding_model": modelName,
			"embedded_at":     at,
			"updated_at":      time.Now(),
		},
	})
	return err
}

// IncrementViewCount increments the view_count field by 1 for the given article ID
func (r *ArticleRepository) IncrementViewCount(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"view_count": 1},
		"$set": bson.M{"updated_at": time.Now()},
	})
	return err
}

type ListArticlesOptions struct {
	Limit      int
	Offset     int
	Category   string
	Categories []string
	Search     string
}

// List returns a page of articles ordered by overall score desc, then
// published_at desc, then _id desc, plus the total matching count. Articles
// whose overall score is still null sort last under BSON comparison order.
func (r *ArticleRepository) List(ctx context.Context, opt ListArticlesOptions) ([]models.Article, int64, error) {
	filter := bson.M{}

	if opt.Category != "" {
		filter["category"] = opt.Category
	} else if len(opt.Categories) > 0 {
		arr := make([]interface{}, 0, len(opt.Categories))
		for _, c := range opt.Categories {
			if c == "" {
				continue
			}
			arr = append(arr, c)
		}
		if len(arr) > 0 {
			filter["$or"] = []bson.M{
				{"category": bson.M{"$in": arr}},
				{"tags": bson.M{"$in": arr}},
			}
		}
	}

	if opt.Search != "" {
		pattern := regexp.QuoteMeta(opt.Search)
		rx := primitive.Regex{Pattern: pattern, Options: "i"}
		search := []bson.M{
			{"title": rx},
			{"summary": rx},
		}
		if existing, ok := filter["$or"]; ok {
			filter = bson.M{"$and": []bson.M{
				{"$or": existing},
				{"$or": search},
			}}
			if opt.Category != "" {
				filter["category"] = opt.Category
			}
		} else {
			filter["$or"] = search
		}
	}

	if opt.Limit <= 0 || opt.Limit > 100 {
		opt.Limit = 20
	}
	if opt.Offset < 0 {
		opt.Offset = 0
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOpts := options.Find().
		SetSkip(int64(opt.Offset)).
		SetLimit(int64(opt.Limit)).
		SetSort(bson.D{
			{Key: "overall_score", Value: -1},
			{Key: "published_at", Value: -1},
			{Key: "_id", Value: -1},
		})
	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var results []models.Article
	for cur.Next(ctx) {
		var a models.Article
		if err := cur.Decode(&a); err != nil {
			return nil, 0, err
		}
		results = append(results, a)
	}
	if err := cur.Err(); err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// CategoryCount pairs a category with the number of stored articles in it.
type CategoryCount struct {
	Category string `bson:"_id" json:"category"`
	Count    int64  `bson:"count" json:"count"`
}

// CountByCategory groups stored articles by category.
func (r *ArticleRepository) CountByCategory(ctx context.Context) ([]CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var results []CategoryCount
	if err := cur.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
