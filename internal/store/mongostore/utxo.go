package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zex-fi/zexbridge/internal/models"
)

// InsertUTXOsUnique inserts each observed UTXO individually, swallowing a
// duplicate (tx_hash, index).
func (s *Store) InsertUTXOsUnique(ctx context.Context, utxos []models.UTXO) error {
	var firstErr error
	for _, u := range utxos {
		_, err := s.utxos.InsertOne(ctx, u)
		if err != nil && !mongo.IsDuplicateKeyError(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FindUTXOsByStatus returns UTXOs with the given status, oldest first; the
// filter is on status only and chainTag does not narrow it (UTXO documents
// carry no chain tag) (spec §4.3: "returns an ordered list (oldest first) for
// deterministic selection"). Insertion order in Mongo's natural collection
// order approximates age; _id sorts ascending by creation order for
// ObjectID-keyed documents.
func (s *Store) FindUTXOsByStatus(ctx context.Context, chainTag models.ChainTag, status models.UTXOStatus) ([]models.UTXO, error) {
	filter := bson.D{{Key: "status", Value: status}}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.utxos.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.UTXO
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	_ = chainTag // UTXOs are BTC-only today; kept for interface symmetry with other stores
	return out, nil
}

// MarkUTXOsSpend flips selected UTXOs to SPEND, matched by (tx_hash, index).
func (s *Store) MarkUTXOsSpend(ctx context.Context, utxos []models.UTXO) error {
	for _, u := range utxos {
		filter := bson.D{{Key: "txHash", Value: u.TxHash}, {Key: "index", Value: u.Index}}
		update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: models.UTXOSpend}}}}
		if _, err := s.utxos.UpdateOne(ctx, filter, update); err != nil {
			return err
		}
	}
	return nil
}
