package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrej220/hamagent/pkg/config/configstore"
	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Ensure MongoStore implements the ConfigStore interface
var _ configstore.ConfigStore = (*MongoStore)(nil)

const (
	connectAttempts = 5
	opTimeout       = 10 * time.Second
)

type MongoStore struct {
	Client     *mongo.Client
	Collection *mongo.Collection
	ID         string // document id, one per agent deployment
}

// ConnectBackOff is the retry policy for reaching the server on startup.
func ConnectBackOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     500 * time.Millisecond,
		MaxInterval:         5 * time.Second,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      30 * time.Second,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
}

func New(ctx context.Context, uri, dbName, collName, id string) (*MongoStore, error) {
	if uri == "" || dbName == "" || collName == "" || id == "" {
		return nil, errors.New("mongo store requires uri, database, collection and document id")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	//  ping to verify connection, the server may still be coming up
	ping := func() error {
		pctx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()
		return client.Ping(pctx, nil)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(ConnectBackOff(), connectAttempts), ctx)
	if err := backoff.Retry(ping, b); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoStore{
		Client:     client,
		Collection: client.Database(dbName).Collection(collName),
		ID:         id,
	}, nil
}

func (m *MongoStore) Load(out any) error {
	if out == nil {
		return fmt.Errorf("Load: output parameter must not be nil")
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res := m.Collection.FindOne(ctx, bson.M{"_id": m.ID})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("document with ID %q not found", m.ID)
		}
		return fmt.Errorf("MongoDB FindOne failed: %w", err)
	}
	if err := res.Decode(out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

func (m *MongoStore) Save(in any) error {
	if in == nil {
		return fmt.Errorf("Save: input parameter must not be nil")
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := m.Collection.ReplaceOne(
		ctx,
		bson.M{"_id": m.ID},
		in,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("Save: MongoDB ReplaceOne failed: %w", err)
	}
	return nil
}

func (m *MongoStore) Watch(ctx context.Context, onChange func()) error {
	return configstore.ErrWatchUnsupported
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
