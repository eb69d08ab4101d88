package withdraw

import (
	"context"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/zex-fi/zexbridge/internal/deriver"
	"github.com/zex-fi/zexbridge/internal/models"
)

type fakeBTCChain struct {
	sentRaw    [][]byte
	txHash     string
	feeRate    int64
	feeErr     error
	sendErr    error
}

func (f *fakeBTCChain) SendRaw(ctx context.Context, raw []byte) (string, error) {
	f.sentRaw = append(f.sentRaw, raw)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.txHash, nil
}

func (f *fakeBTCChain) FeeEstimate(ctx context.Context) (*models.FeeEstimate, error) {
	if f.feeErr != nil {
		return nil, f.feeErr
	}
	return &models.FeeEstimate{Rate: big.NewInt(f.feeRate)}, nil
}

type fakeUTXOStore struct {
	candidates []models.UTXO
	spent      []models.UTXO
	upserted   []models.WithdrawRequest
}

func (f *fakeUTXOStore) FindUTXOsByStatus(ctx context.Context, chainTag models.ChainTag, status models.UTXOStatus) ([]models.UTXO, error) {
	return f.candidates, nil
}

func (f *fakeUTXOStore) MarkUTXOsSpend(ctx context.Context, utxos []models.UTXO) error {
	f.spent = append(f.spent, utxos...)
	return nil
}

func (f *fakeUTXOStore) UpsertWithdraw(ctx context.Context, req models.WithdrawRequest) error {
	f.upserted = append(f.upserted, req)
	return nil
}

func TestBTCWithdrawer_Process_SelectsAndBroadcasts(t *testing.T) {
	masterPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	d := &deriver.BTC{MasterPubKey: masterPriv.PubKey(), Params: &chaincfg.TestNet3Params}

	depositAddr, err := d.Derive(99)
	require.NoError(t, err)

	const fakeTxHash = "1111111111111111111111111111111111111111111111111111111111111111"
	store := &fakeUTXOStore{candidates: []models.UTXO{
		{TxHash: fakeTxHash[:64], Index: 0, Address: depositAddr.EncodeAddress(), Amount: 200_000, Salt: 99, Status: models.UTXOUnspent},
	}}
	chain := &fakeBTCChain{feeRate: 2, txHash: "deadbeef"}

	recipientAddr, err := d.Derive(1000)
	require.NoError(t, err)

	w := NewBTCWithdrawer(chain, store, depositAddr, masterPriv, &chaincfg.TestNet3Params)
	req := models.WithdrawRequest{
		Nonce:     5,
		ChainTag:  "BTC",
		Recipient: recipientAddr.EncodeAddress(),
		AmountStr: "100000",
		Status:    models.WithdrawPending,
	}

	updated, err := w.Process(t.Context(), req)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawSuccessful, updated.Status)
	require.Equal(t, "deadbeef", updated.TxHash)
	require.Len(t, store.spent, 1)
	require.Len(t, chain.sentRaw, 1)
}

func TestBTCWithdrawer_Process_AlreadyProcessingWithUTXOsFails(t *testing.T) {
	req := models.WithdrawRequest{
		Status: models.WithdrawProcessing,
		UTXOs:  []models.UTXO{{TxHash: "a", Amount: 1000}},
	}
	w := NewBTCWithdrawer(&fakeBTCChain{}, &fakeUTXOStore{}, nil, nil, &chaincfg.TestNet3Params)
	_, err := w.Process(t.Context(), req)
	require.ErrorIs(t, err, ErrUTXOAssignment)
}
