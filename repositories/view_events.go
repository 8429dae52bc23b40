package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"rmg-pulse/models"
)

type ViewEventRepository struct {
	col *mongo.Collection
}

func NewViewEventRepository(db *mongo.Database) *ViewEventRepository {
	return &ViewEventRepository{col: db.Collection("view_events")}
}

func (r *ViewEventRepository) Insert(ctx context.Context, ev models.ViewEvent) (*mongo.InsertOneResult, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.ViewedAt.IsZero() {
		ev.ViewedAt = time.Now()
	}
	return r.col.InsertOne(ctx, ev)
}
