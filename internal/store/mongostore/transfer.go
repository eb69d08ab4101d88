package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/zex-fi/zexbridge/internal/models"
)

// InsertTransfersUnique inserts each transfer individually so a duplicate
// (tx_hash, chain_tag, index) is swallowed without dropping the rest of the
// batch (spec §4.4: "system tolerates at-least-once reprocessing because
// inserts are unique-index-guarded").
func (s *Store) InsertTransfersUnique(ctx context.Context, transfers []models.UserTransfer) error {
	var firstErr error
	for _, t := range transfers {
		_, err := s.transfers.InsertOne(ctx, t)
		if err != nil && !mongo.IsDuplicateKeyError(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// TransfersByStatus returns transfers in a given status for chainTag at or
// above fromBlock, ordered ascending by block number.
func (s *Store) TransfersByStatus(ctx context.Context, status models.TransferStatus, chainTag models.ChainTag, fromBlock uint64) ([]models.UserTransfer, error) {
	filter := bson.D{
		{Key: "status", Value: status},
		{Key: "chainTag", Value: chainTag},
		{Key: "blockNumber", Value: bson.D{{Key: "$gte", Value: fromBlock}}},
	}
	opts := findOptsSortAsc("blockNumber")
	cur, err := s.transfers.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.UserTransfer
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkFinalized transitions PENDING → FINALIZED for every transfer on
// chainTag at or below finalizedBlock, atomically.
func (s *Store) MarkFinalized(ctx context.Context, chainTag models.ChainTag, finalizedBlock uint64) (int64, error) {
	filter := bson.D{
		{Key: "chainTag", Value: chainTag},
		{Key: "status", Value: models.StatusPending},
		{Key: "blockNumber", Value: bson.D{{Key: "$lte", Value: finalizedBlock}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: models.StatusFinalized}}}}
	res, err := s.transfers.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// MarkReorg transitions PENDING → REORG for blocks in [fromBlock, toBlock]
// on chainTag, used when a previously-processed range is replaced.
func (s *Store) MarkReorg(ctx context.Context, chainTag models.ChainTag, fromBlock, toBlock uint64) (int64, error) {
	filter := bson.D{
		{Key: "chainTag", Value: chainTag},
		{Key: "status", Value: models.StatusPending},
		{Key: "blockNumber", Value: bson.D{{Key: "$gte", Value: fromBlock}, {Key: "$lte", Value: toBlock}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: models.StatusReorg}}}}
	res, err := s.transfers.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UpdateTransferStatus sets a single transfer's status by its unique key,
// used by the external verifier (FINALIZED→VERIFIED) and VaultDepositor
// (VERIFIED→SUCCESSFUL).
func (s *Store) UpdateTransferStatus(ctx context.Context, txHash string, chainTag models.ChainTag, index uint32, status models.TransferStatus) error {
	filter := bson.D{
		{Key: "txHash", Value: txHash},
		{Key: "chainTag", Value: chainTag},
		{Key: "index", Value: index},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}}
	_, err := s.transfers.UpdateOne(ctx, filter, update)
	return err
}
