// Package store persists named models in MongoDB so an analysis team can
// share model definitions between CLI sessions and the API server.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rnshah9/root/pkg/modelio"
)

// ErrNotFound is returned when a model does not exist in the store.
var ErrNotFound = errors.New("model not found")

// Record is a stored model with its metadata.
type Record struct {
	ID        string        `bson:"_id" json:"id"`
	Name      string        `bson:"name" json:"name"`
	Model     modelio.Model `bson:"model" json:"model"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
}

// Store provides CRUD access to the model collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect opens a MongoDB connection and verifies it with a ping.
// Models are stored in the "models" collection of the given database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Database(database).Collection("models"),
	}, nil
}

// Save stores a model under its name and returns the new record.
// Each save creates a fresh record; names are not unique so older
// versions of a model remain listable.
func (s *Store) Save(ctx context.Context, name string, m modelio.Model) (Record, error) {
	rec := Record{
		ID:        uuid.NewString(),
		Name:      name,
		Model:     m,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("insert model %q: %w", name, err)
	}
	return rec, nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("find model %s: %w", id, err)
	}
	return rec, nil
}

// GetByName retrieves the most recently saved record with the given name.
func (s *Store) GetByName(ctx context.Context, name string) (Record, error) {
	opts := options.FindOne().SetSort(bson.M{"created_at": -1})
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"name": name}, opts).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Record{}, fmt.Errorf("find model %q: %w", name, err)
	}
	return rec, nil
}

// List returns all records sorted newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer cur.Close(ctx)

	var recs []Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	return recs, nil
}

// Delete removes a record by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete model %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
