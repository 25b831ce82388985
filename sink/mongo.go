// Package sink persists scraped books to MongoDB and to optional local exports.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-books-etl/config"
	"github.com/aluiziolira/go-books-etl/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrUnavailable is returned by a store that could not be reached at startup.
var ErrUnavailable = errors.New("sink: store unavailable")

// collection is the subset of *mongo.Collection the store relies on.
type collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

// Mongo stores one document per book. A Mongo without a collection is in
// degraded mode: every call returns ErrUnavailable and nothing is kept.
type Mongo struct {
	client *mongo.Client
	books  collection
}

// Connect dials the configured store and pings it. Any failure is logged and
// yields a degraded store rather than an error, so a run can proceed without
// persistence.
func Connect(ctx context.Context, cfg config.MongoConfig) *Mongo {
	if cfg.URI == "" {
		slog.Warn("mongo URI not configured, books will not be stored")
		return &Mongo{}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		slog.Error("connect to mongo", slog.Any("error", err))
		return &Mongo{}
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		slog.Error("ping mongo", slog.Any("error", err))
		_ = client.Disconnect(context.Background())
		return &Mongo{}
	}

	slog.Info("connected to mongo",
		slog.String("database", cfg.Database),
		slog.String("collection", cfg.Collection),
	)
	return &Mongo{
		client: client,
		books:  client.Database(cfg.Database).Collection(cfg.Collection),
	}
}

// Available reports whether the store was reachable at startup.
func (m *Mongo) Available() bool {
	return m != nil && m.books != nil
}

// Store inserts book as a new, independent document. The book is received by
// value, so the caller's copy is never touched by the driver.
func (m *Mongo) Store(ctx context.Context, book models.Book) error {
	if !m.Available() {
		return ErrUnavailable
	}
	if _, err := m.books.InsertOne(ctx, book); err != nil {
		return fmt.Errorf("insert %q: %w", book.Title, err)
	}
	return nil
}

// Count returns the number of documents in the collection across all runs.
func (m *Mongo) Count(ctx context.Context) (int64, error) {
	if !m.Available() {
		return 0, ErrUnavailable
	}
	n, err := m.books.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Ping checks that the server still answers.
func (m *Mongo) Ping(ctx context.Context) error {
	if !m.Available() || m.client == nil {
		return ErrUnavailable
	}
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client, if any.
func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
