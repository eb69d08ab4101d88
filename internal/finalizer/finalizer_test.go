package finalizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zex-fi/zexbridge/internal/models"
)

type fakeChain struct{ finalized uint64 }

func (f *fakeChain) FinalizedBlock(ctx context.Context) (uint64, error) { return f.finalized, nil }

type fakeStore struct {
	finalizedCalls []uint64
	reorgCalls     [][2]uint64
}

func (f *fakeStore) MarkFinalized(ctx context.Context, chainTag models.ChainTag, finalizedBlock uint64) (int64, error) {
	f.finalizedCalls = append(f.finalizedCalls, finalizedBlock)
	return 3, nil
}

func (f *fakeStore) MarkReorg(ctx context.Context, chainTag models.ChainTag, fromBlock, toBlock uint64) (int64, error) {
	f.reorgCalls = append(f.reorgCalls, [2]uint64{fromBlock, toBlock})
	return 1, nil
}

func TestFinalizer_Sweep(t *testing.T) {
	chain := &fakeChain{finalized: 100}
	store := &fakeStore{}

	f := New("ETH", chain, store, 0)
	err := f.Sweep(t.Context())
	require.NoError(t, err)
	require.Equal(t, []uint64{100}, store.finalizedCalls)
}

func TestFinalizer_Reorg(t *testing.T) {
	store := &fakeStore{}
	f := New("ETH", &fakeChain{}, store, 0)
	err := f.Reorg(t.Context(), 10, 20)
	require.NoError(t, err)
	require.Equal(t, [][2]uint64{{10, 20}}, store.reorgCalls)
}
