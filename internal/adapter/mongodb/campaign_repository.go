// Package mongodb implements the store ports over MongoDB collections.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"admarket/internal/core/domain"
	"admarket/internal/core/port"
)

const campaignsCollection = "campaigns"

// CampaignRepository implements port.CampaignStore over the campaigns
// collection.
type CampaignRepository struct {
	coll *mongo.Collection
}

// NewCampaignRepository returns a repository bound to the given database.
func NewCampaignRepository(db *mongo.Database) *CampaignRepository {
	return &CampaignRepository{coll: db.Collection(campaignsCollection)}
}

// GetCampaign resolves a campaign by either its external campaign id or the
// hex form of its storage id.
func (r *CampaignRepository) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	filter := bson.M{"campaignId": id}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		filter = bson.M{"$or": bson.A{bson.M{"_id": oid}, bson.M{"campaignId": id}}}
	}

	var campaign domain.Campaign
	err := r.coll.FindOne(ctx, filter).Decode(&campaign)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// UpdateCampaign replaces the stored campaign document.
func (r *CampaignRepository) UpdateCampaign(ctx context.Context, c *domain.Campaign) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"campaignId": c.CampaignID}, c)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return port.ErrNotFound
	}
	return nil
}
