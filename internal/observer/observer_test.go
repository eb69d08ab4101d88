package observer

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zex-fi/zexbridge/internal/models"
)

type fakeChain struct {
	latest    uint64
	transfers map[uint64][]models.RawTransfer
}

func (f *fakeChain) LatestBlock(ctx context.Context) (uint64, error) { return f.latest, nil }

func (f *fakeChain) ExtractTransfers(ctx context.Context, blockNumber uint64) ([]models.RawTransfer, error) {
	return f.transfers[blockNumber], nil
}

func (f *fakeChain) TokenDecimals(ctx context.Context, token string) (int, error) { return 18, nil }

type fakeStore struct {
	mu        sync.Mutex
	cursor    uint64
	accepted  map[string]uint64
	inserted  []models.UserTransfer
}

func (f *fakeStore) GetCursor(ctx context.Context, chainTag models.ChainTag) (uint64, error) {
	return f.cursor, nil
}

func (f *fakeStore) UpsertCursor(ctx context.Context, chainTag models.ChainTag, block uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = block
	return nil
}

func (f *fakeStore) ActiveAddresses(ctx context.Context, chainTag models.ChainTag) (map[string]uint64, error) {
	return f.accepted, nil
}

func (f *fakeStore) InsertTransfersUnique(ctx context.Context, transfers []models.UserTransfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, transfers...)
	return nil
}

func TestObserver_Iterate_AdvancesCursorAndInsertsMatches(t *testing.T) {
	chain := &fakeChain{
		latest: 3,
		transfers: map[uint64][]models.RawTransfer{
			1: {{TxHash: "a", BlockNumber: 1, To: "0xtracked", Token: models.NativeTokenSentinel, Value: big.NewInt(100)}},
			2: {{TxHash: "b", BlockNumber: 2, To: "0xuntracked", Token: models.NativeTokenSentinel, Value: big.NewInt(200)}},
			3: {},
		},
	}
	store := &fakeStore{accepted: map[string]uint64{"0xtracked": 7}}

	o := New("ETH", chain, store, nil, 1, time.Millisecond)
	advanced, err := o.Iterate(t.Context())
	require.NoError(t, err)
	require.True(t, advanced)
	require.Equal(t, uint64(3), store.cursor)
	require.Len(t, store.inserted, 1)
	require.Equal(t, uint64(7), store.inserted[0].UserID)
}

func TestObserver_Iterate_NoOpWhenCursorAtLatest(t *testing.T) {
	chain := &fakeChain{latest: 5}
	store := &fakeStore{cursor: 5, accepted: map[string]uint64{}}

	o := New("ETH", chain, store, nil, 1, time.Millisecond)
	advanced, err := o.Iterate(t.Context())
	require.NoError(t, err)
	require.False(t, advanced)
}
