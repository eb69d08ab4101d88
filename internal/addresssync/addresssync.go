// Package addresssync implements observer.AddressSyncer (spec §4.4 step 3):
// deriving and persisting any deposit address the exchange has registered
// but Store hasn't derived yet, bounded per iteration so a large backlog
// never stalls a single Observer pass.
package addresssync

import (
	"context"
	"fmt"

	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/models"
)

// Deriver unifies deriver.EVM and deriver.BTC behind one signature.
type Deriver interface {
	DeriveAddress(userID uint64) (string, error)
}

// ExchangeSource is the subset of exchange.Client the syncer needs.
type ExchangeSource interface {
	LatestUserID(ctx context.Context) (uint64, error)
}

// Store is the Store slice the syncer depends on.
type Store interface {
	LastUserID(ctx context.Context, chainTag models.ChainTag) (uint64, bool, error)
	InsertAddressesBatch(ctx context.Context, addrs []models.UserAddress) error
}

// Syncer brings one chain's derived-address set up to the exchange's latest
// registered user ID.
type Syncer struct {
	deriver  Deriver
	exchange ExchangeSource
	store    Store
}

// New constructs a Syncer for one chain's deriver.
func New(deriver Deriver, exchange ExchangeSource, store Store) *Syncer {
	return &Syncer{deriver: deriver, exchange: exchange, store: store}
}

// SyncNewAddresses derives every user ID between Store's last-known one and
// the exchange's latest, capped at NewAddressBacklogLimit per call.
func (s *Syncer) SyncNewAddresses(ctx context.Context, chainTag models.ChainTag) error {
	latest, err := s.exchange.LatestUserID(ctx)
	if err != nil {
		return fmt.Errorf("latest user id: %w", err)
	}

	last, _, err := s.store.LastUserID(ctx, chainTag)
	if err != nil {
		return fmt.Errorf("last derived user id: %w", err)
	}
	if latest <= last {
		return nil
	}

	end := latest
	if end-last > config.NewAddressBacklogLimit {
		end = last + config.NewAddressBacklogLimit
	}

	addrs := make([]models.UserAddress, 0, end-last)
	for userID := last + 1; userID <= end; userID++ {
		address, err := s.deriver.DeriveAddress(userID)
		if err != nil {
			return fmt.Errorf("derive address for user %d: %w", userID, err)
		}
		addrs = append(addrs, models.UserAddress{UserID: userID, Address: address, ChainTag: chainTag, IsActive: true})
	}

	return s.store.InsertAddressesBatch(ctx, addrs)
}
