// Package mongodb implements the drive repositories on MongoDB.
//
// Permanent deletes and child inserts run in multi-document transactions, so the
// server must be a replica set member (a single-node replica set is enough).
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Client      *mongo.Client
	Database    *mongo.Database
	Collections *CollectionNames
	Logger      *slog.Logger
}

// CollectionNames holds dynamically prefixed collection names
type CollectionNames struct {
	Nodes   string
	Quizzes string
}

// NewCollectionNames creates collection names with the given prefix
func NewCollectionNames(prefix string) *CollectionNames {
	return &CollectionNames{
		Nodes:   fmt.Sprintf("%snodes", prefix),
		Quizzes: fmt.Sprintf("%squizzes", prefix),
	}
}

// Connect creates a client for uri and verifies the primary is reachable
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, nil
}

// EnsureIndexes creates the indexes the repositories rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database, names *CollectionNames) error {
	nodeIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "parentId", Value: 1}, {Key: "isTrash", Value: 1}}},
		{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "type", Value: 1}, {Key: "title", Value: 1}}},
	}
	if _, err := db.Collection(names.Nodes).Indexes().CreateMany(ctx, nodeIndexes); err != nil {
		return fmt.Errorf("create node indexes: %w", err)
	}

	quizIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "contentId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection(names.Quizzes).Indexes().CreateOne(ctx, quizIndex); err != nil {
		return fmt.Errorf("create quiz index: %w", err)
	}

	return nil
}
