// Package mongostore is the MongoDB-backed implementation of store.Store
// (spec §4.3): five collections, one per document family, each with the
// unique secondary indexes the spec requires created eagerly at boot. Open
// creates the indexes of the shared collections; each per-chain address
// collection gets its indexes from EnsureAddressIndexes.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// Store wraps a mongo.Database and the five bridge collections.
type Store struct {
	client      *mongo.Client
	db          *mongo.Database
	addresses   *mongo.Collection // user_addresses_{chain}, resolved per-call
	transfers   *mongo.Collection // transfer
	cursors     *mongo.Collection // chain_cursor
	withdraws   *mongo.Collection // withdraw
	utxos       *mongo.Collection // utxo
}

// Open connects to MongoDB, selects the database and ensures every required
// index exists before returning, so callers never race index creation with
// first use.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:    client,
		db:        db,
		transfers: db.Collection("transfer"),
		cursors:   db.Collection("chain_cursor"),
		withdraws: db.Collection("withdraw"),
		utxos:     db.Collection("utxo"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongostore: ensure indexes: %w", err)
	}
	return s, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// addressCollection resolves the per-chain user_addresses_{chain} collection
// (spec §4.3's "five document collections" list this family by chain tag).
func (s *Store) addressCollection(chainTag string) *mongo.Collection {
	return s.db.Collection("user_addresses_" + chainTag)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.transfers, mongo.IndexModel{
			Keys:    bson.D{{Key: "txHash", Value: 1}, {Key: "chainTag", Value: 1}, {Key: "index", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.transfers, mongo.IndexModel{
			Keys: bson.D{{Key: "chainTag", Value: 1}, {Key: "status", Value: 1}, {Key: "blockNumber", Value: 1}},
		}},
		{s.cursors, mongo.IndexModel{
			Keys:    bson.D{{Key: "chainTag", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.withdraws, mongo.IndexModel{
			Keys:    bson.D{{Key: "nonce", Value: 1}, {Key: "chainTag", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.withdraws, mongo.IndexModel{
			Keys: bson.D{{Key: "chainTag", Value: 1}, {Key: "status", Value: 1}},
		}},
		{s.utxos, mongo.IndexModel{
			Keys:    bson.D{{Key: "txHash", Value: 1}, {Key: "index", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.utxos, mongo.IndexModel{
			Keys: bson.D{{Key: "status", Value: 1}},
		}},
	}

	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return err
		}
	}
	return nil
}

// EnsureAddressIndexes creates the per-chain address collection's unique
// indexes. Called once per configured chain at boot, since each chain's
// addresses live in their own collection (user_addresses_{chain}).
func (s *Store) EnsureAddressIndexes(ctx context.Context, chainTag string) error {
	coll := s.addressCollection(chainTag)
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "address", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}
