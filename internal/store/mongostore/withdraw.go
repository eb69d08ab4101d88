package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zex-fi/zexbridge/internal/models"
)

// FindWithdrawsByStatus returns withdraws for chainTag in the given status,
// ascending by nonce (spec §5: processed in ascending nonce order).
func (s *Store) FindWithdrawsByStatus(ctx context.Context, chainTag models.ChainTag, status models.WithdrawStatus) ([]models.WithdrawRequest, error) {
	filter := bson.D{{Key: "chainTag", Value: chainTag}, {Key: "status", Value: status}}
	opts := findOptsSortAsc("nonce")
	cur, err := s.withdraws.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.WithdrawRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertWithdraw inserts or replaces a withdraw, keyed by (nonce, chainTag).
func (s *Store) UpsertWithdraw(ctx context.Context, req models.WithdrawRequest) error {
	filter := bson.D{{Key: "nonce", Value: req.Nonce}, {Key: "chainTag", Value: req.ChainTag}}
	_, err := s.withdraws.ReplaceOne(ctx, filter, req, options.Replace().SetUpsert(true))
	return err
}

// FindByNonce looks up one withdraw by its unique (nonce, chainTag) key.
func (s *Store) FindByNonce(ctx context.Context, chainTag models.ChainTag, nonce uint64) (*models.WithdrawRequest, bool, error) {
	var req models.WithdrawRequest
	filter := bson.D{{Key: "nonce", Value: nonce}, {Key: "chainTag", Value: chainTag}}
	err := s.withdraws.FindOne(ctx, filter).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &req, true, nil
}
