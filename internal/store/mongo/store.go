package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"restaurant-floor/internal/store"
)

// View runs fn in a snapshot read transaction
func (s *Storage) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.withTransaction(ctx, true, fn)
}

// Update runs fn in a transaction; writers in this process are serialized by writeMu
func (s *Storage) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.withTransaction(ctx, false, fn)
}

func (s *Storage) withTransaction(ctx context.Context, readOnly bool, fn func(tx store.Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	opts := options.Transaction().SetReadConcern(readconcern.Snapshot())
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(&mongoTx{storage: s, sessCtx: sessCtx, readOnly: readOnly})
	}, opts)
	return err
}

// mongoTx routes every call through the session context so it joins the transaction
type mongoTx struct {
	storage  *Storage
	sessCtx  mongo.SessionContext
	readOnly bool
}

type collectionDoc struct {
	Records json.RawMessage `json:"records"`
}

func (t *mongoTx) Load(ctx context.Context, collection string, dst interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := t.storage.database.Collection(collectionsName).
		FindOne(t.sessCtx, bson.M{"_id": collection}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", collection, err)
	}

	if err := decodeCollection(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return nil
}

func (t *mongoTx) Save(ctx context.Context, collection string, records interface{}) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := encodeCollection(collection, records)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", collection, err)
	}
	doc = append(doc, bson.E{Key: "updated_at", Value: time.Now().UTC()})

	_, err = t.storage.database.Collection(collectionsName).ReplaceOne(
		t.sessCtx,
		bson.M{"_id": collection},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", collection, err)
	}
	return nil
}

func (t *mongoTx) NextID(ctx context.Context, collection string) (int64, error) {
	if t.readOnly {
		return 0, store.ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var counter struct {
		Value int64 `bson:"value"`
	}
	err := t.storage.database.Collection(countersName).FindOneAndUpdate(
		t.sessCtx,
		bson.M{"_id": collection},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id: %w", err)
	}
	return counter.Value, nil
}

// encodeCollection goes through JSON so records keep their json tags and
// decimal amounts stay exact strings.
func encodeCollection(name string, records interface{}) (bson.D, error) {
	payload, err := json.Marshal(map[string]interface{}{"_id": name, "records": records})
	if err != nil {
		return nil, err
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(payload, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// decodeCollection renders the stored document as relaxed extended JSON,
// which prints the stored values back as plain JSON.
func decodeCollection(raw bson.Raw, dst interface{}) error {
	ext, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return err
	}
	var doc collectionDoc
	if err := json.Unmarshal(ext, &doc); err != nil {
		return err
	}
	if len(doc.Records) == 0 {
		return nil
	}
	return json.Unmarshal(doc.Records, dst)
}

var _ store.Store = (*Storage)(nil)
