package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"admarket/internal/core/domain"
	"admarket/internal/core/port"
)

const ordersCollection = "insertion_orders"

// OrderRepository implements port.OrderStore over the insertion_orders
// collection. Updates are conditional on the document version so concurrent
// sweeps cannot silently overwrite each other's placement statuses.
type OrderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository returns a repository bound to the given database.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(ordersCollection)}
}

// GetOrder returns a live (not soft-deleted) order by id.
func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*domain.InsertionOrder, error) {
	var order domain.InsertionOrder
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "deletedAt": nil}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByCampaign returns every order for a campaign, soft-deleted ones
// included; callers inspect DeletedAt themselves.
func (r *OrderRepository) ListOrdersByCampaign(ctx context.Context, campaignID string) ([]domain.InsertionOrder, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"campaignId": campaignID})
	if err != nil {
		return nil, err
	}
	var orders []domain.InsertionOrder
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOrdersByStatus returns live orders in any of the given statuses.
func (r *OrderRepository) ListOrdersByStatus(ctx context.Context, statuses ...domain.OrderStatus) ([]domain.InsertionOrder, error) {
	cursor, err := r.coll.Find(ctx, bson.M{
		"status":    bson.M{"$in": statuses},
		"deletedAt": nil,
	})
	if err != nil {
		return nil, err
	}
	var orders []domain.InsertionOrder
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// InsertOrders stores a batch of freshly generated orders.
func (r *OrderRepository) InsertOrders(ctx context.Context, orders []domain.InsertionOrder) error {
	docs := make([]interface{}, len(orders))
	for i := range orders {
		docs[i] = orders[i]
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return err
}

// UpdateOrder replaces the order document conditional on its version. A
// matched-count of zero with the order still present means another writer got
// there first, reported as port.ErrVersionConflict.
func (r *OrderRepository) UpdateOrder(ctx context.Context, order *domain.InsertionOrder, expectedVersion int64) error {
	order.Version = expectedVersion + 1
	order.UpdatedAt = time.Now().UTC()

	res, err := r.coll.ReplaceOne(ctx, bson.M{
		"_id":       order.ID,
		"version":   expectedVersion,
		"deletedAt": nil,
	}, order)
	if err != nil {
		order.Version = expectedVersion
		return err
	}
	if res.MatchedCount == 0 {
		order.Version = expectedVersion
		count, countErr := r.coll.CountDocuments(ctx, bson.M{"_id": order.ID, "deletedAt": nil})
		if countErr == nil && count == 0 {
			return port.ErrNotFound
		}
		return port.ErrVersionConflict
	}
	return nil
}

// SoftDeleteOrder marks an order deleted; orders are never hard-deleted.
func (r *OrderRepository) SoftDeleteOrder(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"deletedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return port.ErrNotFound
	}
	return nil
}
