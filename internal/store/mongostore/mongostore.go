// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrents/internal/store"
)

const (
	usersCollection      = "users"
	torrentsCollection   = "torrents"
	commentsCollection   = "comments"
	categoriesCollection = "categories"
	sessionsCollection   = "sessions"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and pings the server before returning.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) users() *mongo.Collection      { return s.db.Collection(usersCollection) }
func (s *Store) torrents() *mongo.Collection   { return s.db.Collection(torrentsCollection) }
func (s *Store) comments() *mongo.Collection   { return s.db.Collection(commentsCollection) }
func (s *Store) categories() *mongo.Collection { return s.db.Collection(categoriesCollection) }
func (s *Store) sessions() *mongo.Collection   { return s.db.Collection(sessionsCollection) }

// Migrate creates indexes and seeds the default categories.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users(): {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.torrents(): {
			{Keys: bson.D{{Key: "upload_date", Value: 1}}},
			{Keys: bson.D{{Key: "categories", Value: 1}}},
			{Keys: bson.D{{Key: "download_count", Value: -1}}},
		},
		s.comments(): {
			{Keys: bson.D{{Key: "torrent_id", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "parent_id", Value: 1}}},
		},
		s.sessions(): {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("creating %s indexes: %w", coll.Name(), err)
		}
	}
	if err := s.EnsureCategories(ctx, store.DefaultCategories); err != nil {
		return fmt.Errorf("seeding categories: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// Database exposes the handle for tests and maintenance commands.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// translate maps driver errors onto the store sentinels.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return store.Wrap(op, err)
}

func matchedOrNotFound(op string, res *mongo.UpdateResult, err error) error {
	if err != nil {
		return translate(op, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

var _ store.Store = (*Store)(nil)
