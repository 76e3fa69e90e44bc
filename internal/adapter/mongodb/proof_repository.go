package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"admarket/internal/core/domain"
	"admarket/internal/core/rules"
)

const proofsCollection = "proofs"

// ProofRepository implements port.ProofStore over the proofs collection.
type ProofRepository struct {
	coll *mongo.Collection
}

// NewProofRepository returns a repository bound to the given database.
func NewProofRepository(db *mongo.Database) *ProofRepository {
	return &ProofRepository{coll: db.Collection(proofsCollection)}
}

// CountProofs counts live proofs for one order/placement pair. Under the
// order-wide scope, proofs stored without an item path also match.
func (r *ProofRepository) CountProofs(ctx context.Context, orderID, itemPath string, scope rules.ProofScope) (int64, error) {
	pathFilter := bson.M{"itemPath": itemPath}
	if scope == rules.ScopeOrderWide {
		pathFilter = bson.M{"$or": bson.A{
			bson.M{"itemPath": itemPath},
			bson.M{"itemPath": bson.M{"$in": bson.A{nil, ""}}},
		}}
	}

	return r.coll.CountDocuments(ctx, bson.M{
		"$and": bson.A{
			bson.M{"orderId": orderID, "deletedAt": nil},
			pathFilter,
		},
	})
}

// AttachProof appends one proof-of-performance artifact.
func (r *ProofRepository) AttachProof(ctx context.Context, proof *domain.ProofOfPerformance) error {
	if proof.UploadedAt.IsZero() {
		proof.UploadedAt = time.Now().UTC()
	}
	res, err := r.coll.InsertOne(ctx, proof)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		proof.ID = oid
	}
	return nil
}
