package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"rim/internal/db"
	"rim/internal/models"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrUserNotFound = errors.New("user not found")

const cacheTTL = 10 * time.Minute

// Users reads and writes user accounts.
type Users interface {
	ByUsername(ctx context.Context, username string) (models.User, error)
	ByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	Save(ctx context.Context, u models.User) (models.User, error)
}

// MongoUsers keeps users in a collection. Lookups by id go through the redis
// cache when one is connected.
type MongoUsers struct {
	coll *mongo.Collection
	log  zerolog.Logger
}

func NewMongoUsers(coll *mongo.Collection, log zerolog.Logger) *MongoUsers {
	return &MongoUsers{coll: coll, log: log}
}

func (m *MongoUsers) ByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := m.coll.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return u, ErrUserNotFound
	}
	return u, err
}

func (m *MongoUsers) ByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	key := "users:" + id.Hex()

	var u models.User
	if db.RDB != nil {
		if raw, err := db.CacheGetBytes(key); err == nil && json.Unmarshal(raw, &u) == nil {
			return u, nil
		}
	}

	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, err
	}

	if db.RDB != nil {
		cached := u
		cached.Password = ""
		raw, _ := json.Marshal(cached)
		if err := db.CacheSetBytes(key, raw, cacheTTL); err != nil {
			m.log.Warn().Err(err).Str("user", id.Hex()).Msg("caching user")
		}
	}
	return u, nil
}

// Save upserts by username and drops the cached copy.
func (m *MongoUsers) Save(ctx context.Context, u models.User) (models.User, error) {
	if u.ID.IsZero() {
		existing, err := m.ByUsername(ctx, u.Username)
		switch {
		case err == nil:
			u.ID = existing.ID
		case errors.Is(err, ErrUserNotFound):
			u.ID = primitive.NewObjectID()
		default:
			return u, err
		}
	}

	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": u.ID}, u, options.Replace().SetUpsert(true))
	if err != nil {
		return u, err
	}

	if db.RDB != nil {
		_ = db.CacheDel("users:" + u.ID.Hex())
	}
	return u, nil
}

// EnsureIndexes makes usernames unique.
func (m *MongoUsers) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetName("username").SetUnique(true),
	})
	return err
}

// MemoryUsers is an in-process Users used by tests.
type MemoryUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUsers(users ...models.User) *MemoryUsers {
	m := &MemoryUsers{users: map[primitive.ObjectID]models.User{}}
	for _, u := range users {
		_, _ = m.Save(context.Background(), u)
	}
	return m
}

func (m *MemoryUsers) ByUsername(_ context.Context, username string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

func (m *MemoryUsers) ByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *MemoryUsers) Save(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
		for id, existing := range m.users {
			if existing.Username == u.Username {
				u.ID = id
			}
		}
	}
	m.users[u.ID] = u
	return u, nil
}
