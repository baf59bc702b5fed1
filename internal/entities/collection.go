package entities

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tiendc/go-deepcopy"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("entity not found")

// Collection stores the documents of one model.
type Collection interface {
	FindOne(ctx context.Context, id primitive.ObjectID) (map[string]any, error)
	Find(ctx context.Context, skip, limit int64) ([]map[string]any, error)
	Insert(ctx context.Context, doc map[string]any) error
	Replace(ctx context.Context, id primitive.ObjectID, doc map[string]any) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context, indexes []mongo.IndexModel) error
}

// Collections returns the collection backing a model.
type Collections func(model string) Collection

type MongoCollection struct {
	coll *mongo.Collection
}

func NewMongoCollection(coll *mongo.Collection) *MongoCollection {
	return &MongoCollection{coll: coll}
}

func (m *MongoCollection) FindOne(ctx context.Context, id primitive.ObjectID) (map[string]any, error) {
	var doc bson.M
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (m *MongoCollection) Find(ctx context.Context, skip, limit int64) ([]map[string]any, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []map[string]any
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, cursor.Err()
}

func (m *MongoCollection) Insert(ctx context.Context, doc map[string]any) error {
	_, err := m.coll.InsertOne(ctx, doc)
	return err
}

func (m *MongoCollection) Replace(ctx context.Context, id primitive.ObjectID, doc map[string]any) error {
	res, err := m.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoCollection) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoCollection) EnsureIndexes(ctx context.Context, indexes []mongo.IndexModel) error {
	if len(indexes) == 0 {
		return nil
	}
	_, err := m.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// MemoryCollection keeps copies of the documents in process.
type MemoryCollection struct {
	mu      sync.Mutex
	docs    map[primitive.ObjectID]map[string]any
	Indexes []mongo.IndexModel
}

func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{docs: map[primitive.ObjectID]map[string]any{}}
}

// MemoryCollections hands out one MemoryCollection per model.
func MemoryCollections() Collections {
	var mu sync.Mutex
	colls := map[string]*MemoryCollection{}
	return func(model string) Collection {
		mu.Lock()
		defer mu.Unlock()
		c, ok := colls[model]
		if !ok {
			c = NewMemoryCollection()
			colls[model] = c
		}
		return c
	}
}

func copyDoc(doc map[string]any) map[string]any {
	var out map[string]any
	if err := deepcopy.Copy(&out, doc); err != nil {
		return doc
	}
	return out
}

func (m *MemoryCollection) FindOne(_ context.Context, id primitive.ObjectID) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (m *MemoryCollection) Find(_ context.Context, skip, limit int64) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]primitive.ObjectID, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })

	var out []map[string]any
	for i, id := range ids {
		if int64(i) < skip {
			continue
		}
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		out = append(out, copyDoc(m.docs[id]))
	}
	return out, nil
}

func (m *MemoryCollection) Insert(_ context.Context, doc map[string]any) error {
	id, ok := doc["_id"].(primitive.ObjectID)
	if !ok {
		return errors.New("document has no _id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[id]; exists {
		return errors.New("duplicate _id " + id.Hex())
	}
	m.docs[id] = copyDoc(doc)
	return nil
}

func (m *MemoryCollection) Replace(_ context.Context, id primitive.ObjectID, doc map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	m.docs[id] = copyDoc(doc)
	return nil
}

func (m *MemoryCollection) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryCollection) EnsureIndexes(_ context.Context, indexes []mongo.IndexModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Indexes = append(m.Indexes, indexes...)
	return nil
}
