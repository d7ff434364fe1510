package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"presscrawl/internal/article"
)

// counterCollection holds the sequence documents used by NextSequence. It is
// excluded from fingerprint and ID scans.
const counterCollection = "counters"

// Mongo implements Store on a MongoDB database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string, logger *zap.Logger) (*Mongo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to mongodb", zap.String("database", database))
	return &Mongo{client: client, db: client.Database(database), logger: logger}, nil
}

// Upsert writes the article using the fingerprint-then-url key priority.
func (m *Mongo) Upsert(ctx context.Context, collection string, a article.Article) (Outcome, error) {
	doc, err := toDocument(a)
	if err != nil {
		return OutcomeRejected, fmt.Errorf("encode article: %w", err)
	}

	primary, alternate := upsertKeys(a)
	if primary == nil {
		return OutcomeRejected, ErrUnkeyed
	}

	col := m.db.Collection(collection)
	outcome, err := upsertOnce(ctx, col, primary, doc)
	if err == nil {
		return outcome, nil
	}
	if !mongo.IsDuplicateKeyError(err) || alternate == nil {
		return OutcomeRejected, err
	}

	// The chosen key collided with an index on the other key (e.g. the
	// fingerprint already exists under a different URL). One retry with the
	// alternate key; a second conflict is a real one and goes to the caller.
	m.logger.Warn("duplicate key on upsert, retrying with alternate key",
		zap.String("collection", collection),
		zap.Any("primary", primary),
		zap.Any("alternate", alternate),
	)
	outcome, err = upsertOnce(ctx, col, alternate, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return OutcomeRejected, fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
		return OutcomeRejected, err
	}
	return outcome, nil
}

func upsertOnce(ctx context.Context, col *mongo.Collection, key map[string]any, doc bson.M) (Outcome, error) {
	res, err := col.UpdateOne(ctx, key, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return OutcomeRejected, fmt.Errorf("update one: %w", err)
	}
	if res.UpsertedID != nil {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}

// toDocument serializes the article and strips any internal identifier so
// the server assigns its own _id.
func toDocument(a article.Article) (bson.M, error) {
	raw, err := bson.Marshal(a)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	return doc, nil
}

// KnownFingerprints scans every collection for persisted fingerprints. A
// collection that cannot be read is logged and skipped so one bad collection
// does not hide the fingerprints of the others.
func (m *Mongo) KnownFingerprints(ctx context.Context) (map[string]struct{}, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	known := make(map[string]struct{})
	for _, name := range names {
		if name == counterCollection {
			continue
		}
		values, err := m.db.Collection(name).Distinct(ctx, "fingerprint", bson.D{})
		if err != nil {
			m.logger.Warn("fingerprint scan failed for collection",
				zap.String("collection", name), zap.Error(err))
			continue
		}
		for _, v := range values {
			if s, ok := v.(string); ok && s != "" {
				known[s] = struct{}{}
			}
		}
	}
	return known, nil
}

// NextSequence increments and returns the named counter in one server-side
// operation, creating the counter document on first use.
func (m *Mongo) NextSequence(ctx context.Context, name string) (int64, error) {
	res := m.db.Collection(counterCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var out struct {
		Seq int64 `bson:"seq"`
	}
	if err := res.Decode(&out); err != nil {
		return 0, fmt.Errorf("next sequence %q: %w", name, err)
	}
	return out.Seq, nil
}

// EnsureIndexes creates a unique sparse index on fingerprint and a plain
// index on url. The unique index is the final backstop against duplicate
// persistence when the in-memory known-set race fires.
func (m *Mongo) EnsureIndexes(ctx context.Context, collection string) error {
	_, err := m.db.Collection(collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "fingerprint", Value: 1}},
			Options: options.Index().SetName("idx_fingerprint").SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "url", Value: 1}},
			Options: options.Index().SetName("idx_url"),
		},
	})
	if err != nil {
		return fmt.Errorf("ensure indexes on %s: %w", collection, err)
	}
	return nil
}

// MaxID returns the highest persisted article ID across all collections so
// the in-process generator can be advanced past it.
func (m *Mongo) MaxID(ctx context.Context) (int64, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("list collections: %w", err)
	}

	var max int64
	for _, name := range names {
		if name == counterCollection {
			continue
		}
		res := m.db.Collection(name).FindOne(ctx, bson.D{},
			options.FindOne().SetSort(bson.D{{Key: "id", Value: -1}}))
		var doc struct {
			ID int64 `bson:"id"`
		}
		if err := res.Decode(&doc); err != nil {
			if err != mongo.ErrNoDocuments {
				m.logger.Warn("max id scan failed for collection",
					zap.String("collection", name), zap.Error(err))
			}
			continue
		}
		if doc.ID > max {
			max = doc.ID
		}
	}
	return max, nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
