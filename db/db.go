package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookit/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// ErrDuplicate is returned when a write violates a unique index.
var ErrDuplicate = errors.New("duplicate key")

// Store is the narrow CRUD surface every collection exposes. Documents are
// keyed by their "id" field.
type Store[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context) ([]T, error)
	ListByField(ctx context.Context, field string, value any, limit int64) ([]T, error)
	Create(ctx context.Context, doc T) (*T, error)
	Update(ctx context.Context, id string, fields map[string]any) (*T, error)
	Upsert(ctx context.Context, id string, fields map[string]any) (*T, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Database holds the client and the typed collections of the app.
type Database struct {
	Client     *mongo.Client
	Services   *Collection[models.Service]
	Bookings   *Collection[models.Booking]
	Profiles   *Collection[models.Profile]
	Roles      *Collection[models.RoleRecord]
	Categories *Collection[models.Category]
	Users      *Collection[models.User]
}

// Connect dials MongoDB and binds the collections of database name.
func Connect(ctx context.Context, uri, name string) (*Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	d := client.Database(name)
	return &Database{
		Client:     client,
		Services:   NewCollection[models.Service](d.Collection("services")),
		Bookings:   NewCollection[models.Booking](d.Collection("bookings")),
		Profiles:   NewCollection[models.Profile](d.Collection("profiles")),
		Roles:      NewCollection[models.RoleRecord](d.Collection("roles")),
		Categories: NewCollection[models.Category](d.Collection("categories")),
		Users:      NewCollection[models.User](d.Collection("users")),
	}, nil
}

// CreateIndexes makes "id" unique in every collection and indexes the
// fields used for lookups.
func (d *Database) CreateIndexes(ctx context.Context) error {
	unique := mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, c := range []*mongo.Collection{
		d.Services.coll, d.Bookings.coll, d.Profiles.coll,
		d.Roles.coll, d.Categories.coll, d.Users.coll,
	} {
		if _, err := c.Indexes().CreateOne(ctx, unique); err != nil {
			return fmt.Errorf("index %s.id: %w", c.Name(), err)
		}
	}

	if _, err := d.Bookings.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("index bookings.user_id: %w", err)
	}
	if _, err := d.Users.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("index users.email: %w", err)
	}
	return nil
}

func (d *Database) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

const opTimeout = 5 * time.Second

// Collection implements Store over a MongoDB collection.
type Collection[T any] struct {
	coll *mongo.Collection
}

func NewCollection[T any](c *mongo.Collection) *Collection[T] {
	return &Collection[T]{coll: c}
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc T
	err := c.coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", c.coll.Name(), id, err)
	}
	return &doc, nil
}

func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	return c.find(ctx, bson.M{}, options.Find())
}

// ListByField returns documents whose field equals value, newest created
// first. A limit of zero means no limit.
func (c *Collection[T]) ListByField(ctx context.Context, field string, value any, limit int64) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return c.find(ctx, bson.M{field: value}, opts)
}

func (c *Collection[T]) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.coll.Name(), err)
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.coll.Name(), err)
	}
	return out, nil
}

func (c *Collection[T]) Create(ctx context.Context, doc T) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("insert %s: %w: %v", c.coll.Name(), ErrDuplicate, err)
		}
		return nil, fmt.Errorf("insert %s: %w", c.coll.Name(), err)
	}
	return &doc, nil
}

func (c *Collection[T]) Update(ctx context.Context, id string, fields map[string]any) (*T, error) {
	return c.set(ctx, id, fields, false)
}

func (c *Collection[T]) Upsert(ctx context.Context, id string, fields map[string]any) (*T, error) {
	return c.set(ctx, id, fields, true)
}

func (c *Collection[T]) set(ctx context.Context, id string, fields map[string]any, upsert bool) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetUpsert(upsert)

	var doc T
	err := c.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": bson.M(fields)}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", c.coll.Name(), id, err)
	}
	return &doc, nil
}

func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := c.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return false, fmt.Errorf("delete %s %s: %w", c.coll.Name(), id, err)
	}
	return res.DeletedCount > 0, nil
}

var _ Store[models.Booking] = (*Collection[models.Booking])(nil)
