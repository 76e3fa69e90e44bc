package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"admarket/internal/core/domain"
)

const performanceCollection = "performance_entries"

// PerformanceRepository implements port.PerformanceStore over the
// append-only performance_entries collection.
type PerformanceRepository struct {
	coll *mongo.Collection
}

// NewPerformanceRepository returns a repository bound to the given database.
func NewPerformanceRepository(db *mongo.Database) *PerformanceRepository {
	return &PerformanceRepository{coll: db.Collection(performanceCollection)}
}

// SumImpressions aggregates metrics.impressions over all entries for one
// order/placement pair.
func (r *PerformanceRepository) SumImpressions(ctx context.Context, orderID, itemPath string) (int64, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"orderId": orderID, "itemPath": itemPath}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$metrics.impressions"},
		}}},
	})
	if err != nil {
		return 0, err
	}

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// RecordEntry appends one delivery-metric record.
func (r *PerformanceRepository) RecordEntry(ctx context.Context, entry *domain.PerformanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := r.coll.InsertOne(ctx, entry)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid
	}
	return nil
}
