package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect opens a pooled client and verifies it with a primary ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return client, nil
}

func Close(ctx context.Context, client *mongo.Client) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

// Ping reports whether the primary is reachable. Used by the health endpoint.
func Ping(ctx context.Context, client *mongo.Client) error {
	if client == nil {
		return fmt.Errorf("database client not initialized")
	}
	return client.Ping(ctx, readpref.Primary())
}

// ClientPinger exposes Ping as a method for callers that take an interface.
type ClientPinger struct {
	Client *mongo.Client
}

func (p ClientPinger) Ping(ctx context.Context) error {
	return Ping(ctx, p.Client)
}
