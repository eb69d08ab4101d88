package vault

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/zex-fi/zexbridge/internal/models"
)

type fakeChain struct {
	mu       sync.Mutex
	sent     [][]byte
	receipts map[string]bool // txHash -> success
}

func (f *fakeChain) SendRaw(ctx context.Context, raw []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, raw)
	return "tx" + string(rune('0'+len(f.sent))), nil
}

func (f *fakeChain) TxReceiptStatus(ctx context.Context, txHash string) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	success, ok := f.receipts[txHash]
	return ok, success, nil
}

type fakeCodes struct{ hasCode map[string]bool }

func (f *fakeCodes) HasCode(ctx context.Context, address string) (bool, error) {
	return f.hasCode[address], nil
}

type fakeNonces struct{ nonce uint64 }

func (f *fakeNonces) PendingNonce(ctx context.Context, sender common.Address) (uint64, error) {
	return f.nonce, nil
}

type fakeSigner struct{ mu sync.Mutex; calls []uint64 }

func (f *fakeSigner) SignCall(to common.Address, nonce uint64, gasLimit uint64, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, nonce)
	return append([]byte{byte(nonce)}, data...), nil
}

type fakeStore struct {
	mu       sync.Mutex
	verified []models.UserTransfer
	updated  []string
}

func (f *fakeStore) TransfersByStatus(ctx context.Context, status models.TransferStatus, chainTag models.ChainTag, fromBlock uint64) ([]models.UserTransfer, error) {
	return f.verified, nil
}

func (f *fakeStore) UpdateTransferStatus(ctx context.Context, txHash string, chainTag models.ChainTag, index uint32, status models.TransferStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, txHash)
	return nil
}

func TestSweepBatch_TokenTransfer_FinalizesOnSuccessReceipt(t *testing.T) {
	dep := models.UserTransfer{TxHash: "deposit1", To: "0xdeposit", Token: models.NativeTokenSentinel, ValueStr: "1000", UserID: 1, ChainTag: "ETH", Status: models.StatusVerified}
	chain := &fakeChain{receipts: map[string]bool{"tx1": true}}
	codes := &fakeCodes{hasCode: map[string]bool{"0xdeposit": true}}
	store := &fakeStore{verified: []models.UserTransfer{dep}}

	d := New("ETH", chain, codes, &fakeNonces{nonce: 10}, &fakeSigner{}, store, common.Address{}, time.Second)
	err := d.SweepBatch(t.Context())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.updated) == 1
	}, 7*time.Second, 100*time.Millisecond)
}

func TestSweepBatch_ContractDeploy_StaysVerified(t *testing.T) {
	dep := models.UserTransfer{TxHash: "deposit2", To: "0xnewaddr", Token: models.NativeTokenSentinel, ValueStr: "1000", UserID: 2, ChainTag: "ETH", Status: models.StatusVerified}
	chain := &fakeChain{receipts: map[string]bool{"tx1": true}}
	codes := &fakeCodes{hasCode: map[string]bool{"0xnewaddr": false}}
	store := &fakeStore{verified: []models.UserTransfer{dep}}

	d := New("ETH", chain, codes, &fakeNonces{nonce: 10}, &fakeSigner{}, store, common.Address{}, time.Second)
	err := d.SweepBatch(t.Context())
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	store.mu.Lock()
	defer store.mu.Unlock()
	require.Empty(t, store.updated, "CONTRACT_DEPLOY must never transition the deposit to SUCCESSFUL")
}
