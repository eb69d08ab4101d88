package withdraw

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/zex-fi/zexbridge/internal/models"
)

// ErrUTXOAssignment is returned when a withdraw is already PROCESSING with
// UTXOs assigned — re-entering selection for it would double-spend those
// UTXOs against a second transaction (spec §4.7 BTC step 1).
var ErrUTXOAssignment = errors.New("withdraw: PROCESSING withdraw already has UTXOs assigned")

// BTCChain is the subset of chainclient.Client the BTC coordinator needs.
type BTCChain interface {
	SendRaw(ctx context.Context, raw []byte) (string, error)
	FeeEstimate(ctx context.Context) (*models.FeeEstimate, error)
}

// UTXOStore is the Store slice the BTC coordinator depends on: reading
// unspent candidates oldest-first and persisting selection outcomes.
type UTXOStore interface {
	FindUTXOsByStatus(ctx context.Context, chainTag models.ChainTag, status models.UTXOStatus) ([]models.UTXO, error)
	MarkUTXOsSpend(ctx context.Context, utxos []models.UTXO) error
	UpsertWithdraw(ctx context.Context, req models.WithdrawRequest) error
}

// BTCWithdrawer processes PENDING BTC withdraws with local Taproot
// key-path signing (spec §4.7 BTC path, single-signer today).
type BTCWithdrawer struct {
	chain        BTCChain
	store        UTXOStore
	vaultAddress btcutil.Address
	masterPriv   *btcec.PrivateKey
	params       *chaincfg.Params
}

// NewBTCWithdrawer constructs a BTCWithdrawer for one chain.
func NewBTCWithdrawer(chain BTCChain, store UTXOStore, vaultAddress btcutil.Address, masterPriv *btcec.PrivateKey, params *chaincfg.Params) *BTCWithdrawer {
	return &BTCWithdrawer{chain: chain, store: store, vaultAddress: vaultAddress, masterPriv: masterPriv, params: params}
}

// Process advances one withdraw through UTXO selection, signing and
// broadcast. A PENDING withdraw is assigned UTXOs and persisted as
// PROCESSING before the transaction is built, so a crash between selection
// and broadcast leaves a recoverable, not double-spendable, state: the next
// Process call on the same PROCESSING request returns ErrUTXOAssignment
// rather than re-selecting.
func (w *BTCWithdrawer) Process(ctx context.Context, req models.WithdrawRequest) (models.WithdrawRequest, error) {
	if req.Status == models.WithdrawProcessing && len(req.UTXOs) > 0 {
		return req, ErrUTXOAssignment
	}

	if req.Status == models.WithdrawPending {
		fee, err := w.chain.FeeEstimate(ctx)
		if err != nil {
			return req, fmt.Errorf("fee estimate: %w", err)
		}
		satPerByte := fee.Rate.Int64()

		candidates, err := w.store.FindUTXOsByStatus(ctx, req.ChainTag, models.UTXOUnspent)
		if err != nil {
			return req, fmt.Errorf("load candidate utxos: %w", err)
		}

		chosen, _, err := SelectUTXOs(candidates, req.Amount(), satPerByte)
		if err != nil {
			return req, fmt.Errorf("select utxos: %w", err)
		}

		if err := w.store.MarkUTXOsSpend(ctx, chosen); err != nil {
			return req, fmt.Errorf("mark utxos spend: %w", err)
		}

		req.UTXOs = chosen
		req.SatPerByte = satPerByte
		req.Status = models.WithdrawProcessing
		if err := w.store.UpsertWithdraw(ctx, req); err != nil {
			return req, fmt.Errorf("persist processing withdraw: %w", err)
		}
	}

	raw, err := w.buildAndSign(req)
	if err != nil {
		return req, fmt.Errorf("build taproot withdraw tx: %w", err)
	}

	txHash, err := w.chain.SendRaw(ctx, raw)
	if err != nil {
		return req, fmt.Errorf("broadcast withdraw: %w", err)
	}

	req.Status = models.WithdrawSuccessful
	req.TxHash = txHash
	return req, nil
}

func (w *BTCWithdrawer) buildAndSign(req models.WithdrawRequest) ([]byte, error) {
	recipientAddr, err := btcutil.DecodeAddress(req.Recipient, w.params)
	if err != nil {
		return nil, fmt.Errorf("decode recipient address %q: %w", req.Recipient, err)
	}
	recipientScript, err := txscript.PayToAddrScript(recipientAddr)
	if err != nil {
		return nil, err
	}
	changeScript, err := txscript.PayToAddrScript(w.vaultAddress)
	if err != nil {
		return nil, err
	}

	var totalIn int64
	for _, u := range req.UTXOs {
		totalIn += u.Amount
	}
	amount := req.Amount().Int64()
	fee := EstimateVsize(len(req.UTXOs), 2) * req.SatPerByte
	change := totalIn - amount - fee
	if change < 0 {
		return nil, fmt.Errorf("withdraw: negative change (in=%d amount=%d fee=%d)", totalIn, amount, fee)
	}

	tx := wire.NewMsgTx(2)
	signingInputs := make([]SigningInput, 0, len(req.UTXOs))
	for _, u := range req.UTXOs {
		txHash, err := chainhash.NewHashFromStr(u.TxHash)
		if err != nil {
			return nil, fmt.Errorf("parse utxo txhash %q: %w", u.TxHash, err)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(txHash, u.Index), nil, nil))

		addr, err := btcutil.DecodeAddress(u.Address, w.params)
		if err != nil {
			return nil, fmt.Errorf("decode utxo address %q: %w", u.Address, err)
		}
		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, err
		}

		var salt [8]byte
		binary.BigEndian.PutUint64(salt[:], u.Salt)
		signingInputs = append(signingInputs, SigningInput{PkScript: pkScript, Amount: u.Amount, Salt: salt})
	}

	tx.AddTxOut(wire.NewTxOut(amount, recipientScript))
	if change > 0 {
		tx.AddTxOut(wire.NewTxOut(change, changeScript))
	}

	if err := SignTaprootKeyPath(tx, signingInputs, w.masterPriv); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
