package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zex-fi/zexbridge/internal/models"
)

// InsertAddress inserts one UserAddress, swallowing a duplicate-key error
// (spec §4.3: "violate-unique errors are swallowed").
func (s *Store) InsertAddress(ctx context.Context, addr models.UserAddress) error {
	_, err := s.addressCollection(string(addr.ChainTag)).InsertOne(ctx, addr)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// InsertAddressesBatch inserts many addresses for one chain, again
// swallowing duplicates; InsertMany aborts on the first error by default, so
// each address is inserted individually to preserve the rest of the batch.
func (s *Store) InsertAddressesBatch(ctx context.Context, addrs []models.UserAddress) error {
	var firstErr error
	for _, addr := range addrs {
		if err := s.InsertAddress(ctx, addr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LastUserID returns the highest user_id observed for chainTag, or
// (0, false, nil) if the chain has no addresses yet.
func (s *Store) LastUserID(ctx context.Context, chainTag models.ChainTag) (uint64, bool, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "userId", Value: -1}})
	var addr models.UserAddress
	err := s.addressCollection(string(chainTag)).FindOne(ctx, bson.D{}, opts).Decode(&addr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return addr.UserID, true, nil
}

// ActiveAddresses returns the address→user_id snapshot Observer matches
// incoming transfers against.
func (s *Store) ActiveAddresses(ctx context.Context, chainTag models.ChainTag) (map[string]uint64, error) {
	cur, err := s.addressCollection(string(chainTag)).Find(ctx, bson.D{{Key: "isActive", Value: true}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	accepted := make(map[string]uint64)
	for cur.Next(ctx) {
		var addr models.UserAddress
		if err := cur.Decode(&addr); err != nil {
			return nil, err
		}
		accepted[addr.Address] = addr.UserID
	}
	return accepted, cur.Err()
}
