package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pcbuilder/internal/database"
	"pcbuilder/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongoStores returns stores backed by db. Closing the bundle closes db.
func NewMongoStores(db *database.MongoDB) *Stores {
	return &Stores{
		Components: NewMongoComponentStore(db),
		Sessions:   NewMongoSessionBuildStore(db),
		Queries:    NewMongoCachedQueryStore(db),
		Driver:     "mongodb",
		ping:       db.Ping,
		close:      db.Close,
	}
}

// MongoComponentStore implements ComponentStore on the components collection.
type MongoComponentStore struct {
	collection *mongo.Collection
}

// NewMongoComponentStore creates a catalog store.
func NewMongoComponentStore(db *database.MongoDB) *MongoComponentStore {
	return &MongoComponentStore{collection: db.Collection(database.CollectionComponents)}
}

// componentFilterDoc translates a filter into a MongoDB query. Model names
// are matched on the normalized key.
func componentFilterDoc(f models.ComponentFilter) bson.M {
	doc := bson.M{}
	if f.Type != "" {
		doc["type"] = f.Type
	}
	if f.Brand != "" {
		doc["brand"] = f.Brand
	}
	if f.ModelName != "" {
		doc["modelKey"] = models.ModelKeyOf(f.ModelName)
	}
	if len(f.ModelNames) > 0 {
		keys := make([]string, 0, len(f.ModelNames))
		for _, name := range f.ModelNames {
			keys = append(keys, models.ModelKeyOf(name))
		}
		if f.ModelName != "" {
			doc["$and"] = bson.A{bson.M{"modelKey": bson.M{"$in": keys}}}
		} else {
			doc["modelKey"] = bson.M{"$in": keys}
		}
	}
	if f.PriceMin != nil || f.PriceMax != nil {
		price := bson.M{}
		if f.PriceMin != nil {
			price["$gte"] = *f.PriceMin
		}
		if f.PriceMax != nil {
			price["$lte"] = *f.PriceMax
		}
		doc["price"] = price
	}
	return doc
}

// componentPatchDoc translates a patch into a $set document.
func componentPatchDoc(p models.ComponentPatch) bson.M {
	set := bson.M{}
	if p.Type != nil {
		set["type"] = strings.TrimSpace(*p.Type)
	}
	if p.Brand != nil {
		set["brand"] = *p.Brand
	}
	if p.ModelName != nil {
		name := models.NormalizeModelName(*p.ModelName)
		set["modelName"] = name
		set["modelKey"] = models.ModelKeyOf(name)
	}
	if p.Socket != nil {
		set["socket"] = *p.Socket
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Specs != nil {
		set["specs"] = p.Specs
	}
	return set
}

func (s *MongoComponentStore) Find(ctx context.Context, filter models.ComponentFilter) ([]models.Component, error) {
	cursor, err := s.collection.Find(ctx, componentFilterDoc(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer cursor.Close(ctx)

	components := []models.Component{}
	if err := cursor.All(ctx, &components); err != nil {
		return nil, fmt.Errorf("failed to decode components: %w", err)
	}
	return components, nil
}

func (s *MongoComponentStore) FindOne(ctx context.Context, filter models.ComponentFilter) (*models.Component, error) {
	var component models.Component
	err := s.collection.FindOne(ctx, componentFilterDoc(filter)).Decode(&component)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get component: %w", err)
	}
	return &component, nil
}

func (s *MongoComponentStore) Insert(ctx context.Context, component *models.Component) (*models.Component, error) {
	c := *component
	c.Normalize()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}

	if _, err := s.collection.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert component: %w", err)
	}
	return &c, nil
}

func (s *MongoComponentStore) UpdateByID(ctx context.Context, id string, patch models.ComponentPatch) (*models.Component, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var updated models.Component
	if patch.IsEmpty() {
		err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&updated)
	} else {
		err = s.collection.FindOneAndUpdate(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": componentPatchDoc(patch)},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDuplicate
	case err != nil:
		return nil, fmt.Errorf("failed to update component: %w", err)
	}
	return &updated, nil
}

func (s *MongoComponentStore) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete component: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoSessionBuildStore implements SessionBuildStore on session_builds.
type MongoSessionBuildStore struct {
	collection *mongo.Collection
}

// NewMongoSessionBuildStore creates a session store.
func NewMongoSessionBuildStore(db *database.MongoDB) *MongoSessionBuildStore {
	return &MongoSessionBuildStore{collection: db.Collection(database.CollectionSessionBuilds)}
}

func (s *MongoSessionBuildStore) Get(ctx context.Context, sessionID string) (*models.SessionBuild, error) {
	var session models.SessionBuild
	err := s.collection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session build: %w", err)
	}
	if session.Builds == nil {
		session.Builds = []models.Build{}
	}
	return &session, nil
}

// Save replaces the session document, creating it when absent. Concurrent
// writers to one session resolve last-write-wins.
func (s *MongoSessionBuildStore) Save(ctx context.Context, session *models.SessionBuild) error {
	if session.Builds == nil {
		session.Builds = []models.Build{}
	}
	result, err := s.collection.ReplaceOne(ctx,
		bson.M{"sessionId": session.SessionID},
		session,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save session build: %w", err)
	}
	if oid, ok := result.UpsertedID.(primitive.ObjectID); ok {
		session.ID = oid
	}
	return nil
}

func (s *MongoSessionBuildStore) Delete(ctx context.Context, sessionID string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete session build: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// expiredSessionsFilter matches sessions where no build is still live at now.
// Sessions with an empty build list match as well.
func expiredSessionsFilter(now time.Time) bson.M {
	return bson.M{
		"builds": bson.M{
			"$not": bson.M{"$elemMatch": bson.M{"expiresAt": bson.M{"$gte": now}}},
		},
	}
}

func (s *MongoSessionBuildStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, expiredSessionsFilter(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.DeletedCount, nil
}

// MongoCachedQueryStore implements CachedQueryStore on cached_queries.
type MongoCachedQueryStore struct {
	collection *mongo.Collection
}

// NewMongoCachedQueryStore creates a cache store.
func NewMongoCachedQueryStore(db *database.MongoDB) *MongoCachedQueryStore {
	return &MongoCachedQueryStore{collection: db.Collection(database.CollectionCachedQueries)}
}

func (s *MongoCachedQueryStore) Get(ctx context.Context, queryType, queryKey string) (*models.CachedQuery, error) {
	var entry models.CachedQuery
	err := s.collection.FindOne(ctx, bson.M{"query_type": queryType, "query_key": queryKey}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached query: %w", err)
	}
	return &entry, nil
}

func (s *MongoCachedQueryStore) Put(ctx context.Context, entry *models.CachedQuery) error {
	replacement := *entry
	replacement.ID = primitive.NilObjectID
	result, err := s.collection.ReplaceOne(ctx,
		bson.M{"query_type": entry.QueryType, "query_key": entry.QueryKey},
		replacement,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to store cached query: %w", err)
	}
	if oid, ok := result.UpsertedID.(primitive.ObjectID); ok {
		entry.ID = oid
	}
	return nil
}

func (s *MongoCachedQueryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete old cached queries: %w", err)
	}
	return result.DeletedCount, nil
}
