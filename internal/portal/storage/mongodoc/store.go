// Package mongodoc implements the storage interfaces over MongoDB. Each
// category maps to its own collection; the document ObjectID rendered as
// hex is the record's storage handle.
package mongodoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/internal/portal/storage"
)

const opTimeout = 5 * time.Second

const usersCollection = "users"

// Store holds a mongo client and database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	uri    string
	dbName string
}

var _ storage.LeadStore = (*Store)(nil)
var _ storage.AuthStore = (*Store)(nil)
var _ storage.Reconnector = (*Store)(nil)

// Open connects to MongoDB and verifies connectivity.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	return &Store{
		client: client,
		db:     client.Database(dbName),
		uri:    uri,
		dbName: dbName,
	}, nil
}

// Reconnect pings the server and re-dials on failure.
func (s *Store) Reconnect(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Ping(pingCtx, nil); err == nil {
		return nil
	}

	client, err := mongo.Connect(pingCtx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if err := client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	s.client = client
	s.db = client.Database(s.dbName)
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Append(ctx context.Context, category string, l lead.Lead) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.Collection(category).InsertOne(opCtx, l)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (s *Store) FindByID(ctx context.Context, category, id string) ([]storage.Match, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	cursor, err := s.db.Collection(category).Find(opCtx, bson.M{"record_id": lead.CanonicalID(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(opCtx)

	var matches []storage.Match
	for cursor.Next(opCtx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		matches = append(matches, storage.Match{Lead: doc.toLead(category), Handle: doc.ID.Hex()})
	}
	return matches, cursor.Err()
}

func (s *Store) Get(ctx context.Context, category, handle string) (lead.Lead, error) {
	oid, err := primitive.ObjectIDFromHex(handle)
	if err != nil {
		return lead.Lead{}, storage.ErrNotFound
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc document
	err = s.db.Collection(category).FindOne(opCtx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return lead.Lead{}, storage.ErrNotFound
	}
	if err != nil {
		return lead.Lead{}, err
	}
	return doc.toLead(category), nil
}

func (s *Store) Update(ctx context.Context, category, handle string, l lead.Lead) error {
	oid, err := primitive.ObjectIDFromHex(handle)
	if err != nil {
		return storage.ErrNotFound
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.Collection(category).ReplaceOne(opCtx, bson.M{"_id": oid}, l)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, category, handle, status string) error {
	oid, err := primitive.ObjectIDFromHex(handle)
	if err != nil {
		return storage.ErrNotFound
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.Collection(category).UpdateOne(opCtx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, category, handle string) error {
	oid, err := primitive.ObjectIDFromHex(handle)
	if err != nil {
		return storage.ErrNotFound
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.Collection(category).DeleteOne(opCtx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, category string) ([]lead.Lead, error) {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(category).Find(opCtx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(opCtx)

	var result []lead.Lead
	for cursor.Next(opCtx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, doc.toLead(category))
	}
	return result, cursor.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (storage.User, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var u struct {
		ID       string `bson:"id"`
		Password string `bson:"password"`
		Role     string `bson:"role"`
	}
	err := s.db.Collection(usersCollection).FindOne(opCtx, bson.M{"id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.User{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.User{}, err
	}
	return storage.User{ID: u.ID, Password: u.Password, Role: u.Role}, nil
}

// document wraps a lead with the mongo-assigned id so decoding keeps the
// handle available.
type document struct {
	ID primitive.ObjectID `bson:"_id"`

	lead.Lead `bson:",inline"`
}

func (d document) toLead(category string) lead.Lead {
	l := d.Lead
	l.Category = category
	return l
}
