package editlogs

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists entries in a mongo collection.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// EnsureIndexes creates the indexes backing List and MaxSeq.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "model", Value: 1}, {Key: "item", Value: 1}, {Key: "date", Value: -1}, {Key: "seq", Value: -1}},
			Options: options.Index().SetName("model_item_date_seq"),
		},
		{
			Keys:    bson.D{{Key: "seq", Value: -1}},
			Options: options.Index().SetName("seq"),
		},
	})
	return err
}

func (s *MongoStore) InsertOne(ctx context.Context, e Entry) error {
	_, err := s.coll.InsertOne(ctx, e)
	return err
}

func (s *MongoStore) InsertMany(ctx context.Context, es []Entry) error {
	docs := make([]interface{}, len(es))
	for i, e := range es {
		docs[i] = e
	}

	_, err := s.coll.InsertMany(ctx, docs)
	return err
}

func (s *MongoStore) List(ctx context.Context, q Query) ([]Entry, error) {
	filter := bson.M{}
	if q.Model != "" {
		filter["model"] = q.Model
	}
	if q.Item != nil {
		filter["item"] = *q.Item
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "seq", Value: -1}})
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *MongoStore) MaxSeq(ctx context.Context) (int64, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetProjection(bson.M{"seq": 1})

	var latest struct {
		Seq int64 `bson:"seq"`
	}
	err := s.coll.FindOne(ctx, bson.M{}, opts).Decode(&latest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return latest.Seq, nil
}

func (s *MongoStore) ForEach(ctx context.Context, scan Scan, fn func(Entry, error) error) error {
	filter := bson.M{}
	if scan.Model != "" {
		filter["model"] = scan.Model
	}
	if scan.Action != "" {
		filter["action"] = scan.Action
	}
	if scan.MissingWhoID {
		filter["whoID"] = bson.M{"$exists": false}
	}

	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var e Entry
		decodeErr := cursor.Decode(&e)
		if decodeErr != nil {
			id, _ := cursor.Current.Lookup("_id").ObjectIDOK()
			e = Entry{ID: id}
		}
		if err := fn(e, decodeErr); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (s *MongoStore) SetFields(ctx context.Context, id primitive.ObjectID, set map[string]any) error {
	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": set})
	return err
}
