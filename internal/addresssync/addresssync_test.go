package addresssync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zex-fi/zexbridge/internal/models"
)

type fakeDeriver struct{}

func (fakeDeriver) DeriveAddress(userID uint64) (string, error) {
	return "addr-" + string(rune('a'+userID)), nil
}

type fakeExchange struct{ latest uint64 }

func (f fakeExchange) LatestUserID(ctx context.Context) (uint64, error) { return f.latest, nil }

type fakeStore struct {
	last     uint64
	inserted []models.UserAddress
}

func (f *fakeStore) LastUserID(ctx context.Context, chainTag models.ChainTag) (uint64, bool, error) {
	return f.last, f.last > 0, nil
}

func (f *fakeStore) InsertAddressesBatch(ctx context.Context, addrs []models.UserAddress) error {
	f.inserted = append(f.inserted, addrs...)
	return nil
}

func TestSyncNewAddresses_DerivesGap(t *testing.T) {
	store := &fakeStore{last: 2}
	s := New(fakeDeriver{}, fakeExchange{latest: 5}, store)

	err := s.SyncNewAddresses(t.Context(), "ETH")
	require.NoError(t, err)
	require.Len(t, store.inserted, 3)
	require.Equal(t, uint64(3), store.inserted[0].UserID)
	require.Equal(t, uint64(5), store.inserted[2].UserID)
	require.True(t, store.inserted[0].IsActive)
}

func TestSyncNewAddresses_NoOpWhenUpToDate(t *testing.T) {
	store := &fakeStore{last: 5}
	s := New(fakeDeriver{}, fakeExchange{latest: 5}, store)

	err := s.SyncNewAddresses(t.Context(), "ETH")
	require.NoError(t, err)
	require.Empty(t, store.inserted)
}

func TestSyncNewAddresses_BoundedByBacklogLimit(t *testing.T) {
	store := &fakeStore{last: 0}
	s := New(fakeDeriver{}, fakeExchange{latest: 10_000}, store)

	err := s.SyncNewAddresses(t.Context(), "ETH")
	require.NoError(t, err)
	require.Len(t, store.inserted, 1000)
}
