package history

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/slidectl/slidectl/pkg/errors"
)

const (
	mongoCollection     = "scorecards"
	mongoConnectTimeout = 10 * time.Second
)

// MongoStore archives records in a MongoDB collection so multiple runs
// across machines share one queryable history.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection with a
// ping before returning.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to ping mongodb")
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
	}, nil
}

// Append inserts the record into the collection.
func (s *MongoStore) Append(ctx context.Context, rec Record) error {
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to insert history record")
	}
	return nil
}

// List returns all records for the run sorted by iteration then time.
func (s *MongoStore) List(ctx context.Context, runID string) ([]Record, error) {
	filter := bson.M{}
	if runID != "" {
		filter["run_id"] = runID
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "iteration", Value: 1},
		{Key: "recorded_at", Value: 1},
	})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to query history")
	}
	defer cursor.Close(ctx)

	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to decode history records")
	}
	return records, nil
}

// Latest returns the record with the highest iteration for the run.
func (s *MongoStore) Latest(ctx context.Context, runID string) (Record, bool, error) {
	filter := bson.M{}
	if runID != "" {
		filter["run_id"] = runID
	}
	opts := options.FindOne().SetSort(bson.D{
		{Key: "iteration", Value: -1},
		{Key: "recorded_at", Value: -1},
	})

	var rec Record
	err := s.coll.FindOne(ctx, filter, opts).Decode(&rec)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, false, nil
		}
		return Record{}, false, errors.Wrap(errors.ErrCodeInternal, err, "failed to query latest record")
	}
	return rec, true, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to disconnect from mongodb")
	}
	return nil
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
