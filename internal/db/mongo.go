package db

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"admarket/internal/config/configs"
)

// NewMongoDatabase connects a MongoDB client with the provided configuration
// and verifies connectivity by pinging the primary within the configured
// connect timeout. On ping failure the client is disconnected and an error
// returned. The caller must disconnect the returned client when done.
func NewMongoDatabase(ctx context.Context, cfg configs.Mongo) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, err
	}

	if err = client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	return client, client.Database(cfg.Database), nil
}
