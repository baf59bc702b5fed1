package db

import (
	"context"
	"time"

	"rim/internal/env"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var Ctx = context.Background()
var RDB *redis.Client
var Client *mongo.Client
var Database *mongo.Database

var Users *mongo.Collection
var EditLogs *mongo.Collection

func InitDB() error {
	var err error

	Client, err = mongo.Connect(
		Ctx,
		options.Client().ApplyURI(env.MONGO_URI),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(Ctx, 5*time.Second)
	defer cancel()
	if err = Client.Ping(ctx, nil); err != nil {
		return err
	}

	// loading collections
	Database = Client.Database(env.MONGO_DB)
	Users = GetCollection("users")
	EditLogs = GetCollection("editlogs")

	return nil
}

// GetCollection returns a collection of the service database. Entity
// collections are named after their model.
func GetCollection(collectionName string) *mongo.Collection {
	return Database.Collection(collectionName)
}

func InitCache() error {
	RDB = redis.NewClient(&redis.Options{
		Addr:     env.REDIS_ADDR,
		Password: "",
		DB:       env.REDIS_DB,
	})

	return RDB.Ping(Ctx).Err()
}

func Close() {
	if RDB != nil {
		_ = RDB.Close()
	}
	if Client != nil {
		_ = Client.Disconnect(Ctx)
	}
}

func CacheSetBytes(key string, value []byte, ttl time.Duration) error {
	return RDB.Set(Ctx, key, value, ttl).Err()
}

func CacheGetBytes(key string) ([]byte, error) {
	return RDB.Get(Ctx, key).Bytes()
}

func CacheDel(key string) error {
	_, err := RDB.Del(Ctx, key).Result()

	return err
}
