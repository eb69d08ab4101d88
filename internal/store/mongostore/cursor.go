package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zex-fi/zexbridge/internal/models"
)

// UpsertCursor sets chainTag's last-observed-block marker.
func (s *Store) UpsertCursor(ctx context.Context, chainTag models.ChainTag, block uint64) error {
	filter := bson.D{{Key: "chainTag", Value: chainTag}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "lastObservedBlock", Value: block}}}}
	_, err := s.cursors.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// GetCursor returns chainTag's cursor, or 0 if the chain has never been
// observed.
func (s *Store) GetCursor(ctx context.Context, chainTag models.ChainTag) (uint64, error) {
	var cursor models.ChainCursor
	err := s.cursors.FindOne(ctx, bson.D{{Key: "chainTag", Value: chainTag}}).Decode(&cursor)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cursor.LastObservedBlock, nil
}
