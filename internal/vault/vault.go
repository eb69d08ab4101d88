// Package vault implements VaultDepositor (spec §4.6): per batch of VERIFIED
// deposits, decide deploy-vs-transfer and sweep the funds into the vault.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/evmabi"
	"github.com/zex-fi/zexbridge/internal/models"
	"github.com/zex-fi/zexbridge/internal/tx"
)

// TxKind is the decision VaultDepositor makes per deposit (spec §4.6).
type TxKind string

const (
	KindContractDeploy TxKind = "CONTRACT_DEPLOY"
	KindTokenTransfer  TxKind = "TOKEN_TRANSFER"
)

// EVMChain is the broadcast and receipt-status slice of the EVM chain client
// VaultDepositor needs; code checks, nonces and signing are the separate
// CodeChecker, NonceSource and TxSigner interfaces below.
type EVMChain interface {
	SendRaw(ctx context.Context, raw []byte) (string, error)
	TxReceiptStatus(ctx context.Context, txHash string) (mined, success bool, err error)
}

// CodeChecker reports whether an address already has contract code, used to
// decide CONTRACT_DEPLOY vs TOKEN_TRANSFER (spec §4.6).
type CodeChecker interface {
	HasCode(ctx context.Context, address string) (bool, error)
}

// NonceSource reads the sender's pending nonce once per batch
// (spec §4.6: "nonce is read once per batch via eth_getTransactionCount(pending)").
type NonceSource interface {
	PendingNonce(ctx context.Context, sender common.Address) (uint64, error)
}

// TxSigner builds and signs a single call to address, with the batch nonce
// assigned to it, returning the raw transaction bytes for SendRaw.
type TxSigner interface {
	SignCall(to common.Address, nonce uint64, gasLimit uint64, data []byte) ([]byte, error)
}

// Store is the Store slice VaultDepositor depends on.
type Store interface {
	TransfersByStatus(ctx context.Context, status models.TransferStatus, chainTag models.ChainTag, fromBlock uint64) ([]models.UserTransfer, error)
	UpdateTransferStatus(ctx context.Context, txHash string, chainTag models.ChainTag, index uint32, status models.TransferStatus) error
}

// Depositor sweeps VERIFIED deposits on one EVM chain into the vault.
type Depositor struct {
	chainTag models.ChainTag
	chain    EVMChain
	codes    CodeChecker
	nonces   NonceSource
	signer   TxSigner
	store    Store
	sender   common.Address
	interval time.Duration
}

// New constructs a Depositor for one EVM chain.
func New(chainTag models.ChainTag, chain EVMChain, codes CodeChecker, nonces NonceSource, signer TxSigner, store Store, sender common.Address, interval time.Duration) *Depositor {
	return &Depositor{chainTag: chainTag, chain: chain, codes: codes, nonces: nonces, signer: signer, store: store, sender: sender, interval: interval}
}

// Run sweeps on a ticker until ctx is cancelled.
func (d *Depositor) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	slog.Info("vault depositor started", "chain", d.chainTag, "interval", d.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("vault depositor stopping", "chain", d.chainTag, "reason", ctx.Err())
			return
		case <-ticker.C:
			if err := d.SweepBatch(ctx); err != nil {
				slog.Error("vault depositor sweep failed", "chain", d.chainTag, "error", err)
			}
		}
	}
}

// SweepBatch pulls up to WithdrawBatchSize VERIFIED deposits and processes
// them per spec §4.6's nonce and gather-semantics discipline.
func (d *Depositor) SweepBatch(ctx context.Context) error {
	deposits, err := d.store.TransfersByStatus(ctx, models.StatusVerified, d.chainTag, 0)
	if err != nil {
		return fmt.Errorf("load verified deposits: %w", err)
	}
	if len(deposits) > config.WithdrawBatchSize {
		deposits = deposits[:config.WithdrawBatchSize]
	}
	if len(deposits) == 0 {
		return nil
	}

	nonce, err := d.nonces.PendingNonce(ctx, d.sender)
	if err != nil {
		return fmt.Errorf("pending nonce: %w", err)
	}

	sweepID := tx.GenerateSweepID()
	slog.Info("vault depositor sweeping batch", "chain", d.chainTag, "sweep", sweepID, "count", len(deposits))

	txHashes := make([]string, len(deposits))
	kinds := make([]TxKind, len(deposits))
	for i, dep := range deposits {
		raw, kind, err := d.buildTx(ctx, dep, nonce+uint64(i))
		kinds[i] = kind
		if err != nil {
			slog.Error("vault depositor build tx failed", "chain", d.chainTag, "sweep", sweepID, "deposit", dep.TxHash, "error", err)
			continue
		}
		txHash, err := d.chain.SendRaw(ctx, raw)
		if err != nil {
			slog.Error("vault depositor broadcast failed", "chain", d.chainTag, "sweep", sweepID, "deposit", dep.TxHash, "kind", kind, "error", err)
			continue
		}
		txHashes[i] = txHash
	}

	// Broadcasts above run one after another in nonce order. Receipt-wait is
	// concurrent with gather semantics: every broadcast TOKEN_TRANSFER is
	// waited on regardless of its neighbors' outcome, matched back to the
	// deposit by its position in the batch (spec §4.6). CONTRACT_DEPLOY
	// receipts are not awaited and those deposits stay VERIFIED — only
	// TOKEN_TRANSFER advances status, so a deployed-but-unswept deposit is
	// picked up again on a later pass.
	var wg sync.WaitGroup
	for i, dep := range deposits {
		if txHashes[i] == "" || kinds[i] != KindTokenTransfer {
			continue
		}
		wg.Add(1)
		go func(dep models.UserTransfer, txHash string) {
			defer wg.Done()
			d.awaitAndFinalize(ctx, dep, txHash)
		}(dep, txHashes[i])
	}
	wg.Wait()

	return nil
}

func (d *Depositor) buildTx(ctx context.Context, dep models.UserTransfer, nonce uint64) ([]byte, TxKind, error) {
	hasCode, err := d.codes.HasCode(ctx, dep.To)
	if err != nil {
		return nil, "", fmt.Errorf("code check for %s: %w", dep.To, err)
	}

	if !hasCode {
		data := evmabi.EncodeDeploy(dep.UserID)
		raw, err := d.signer.SignCall(common.HexToAddress(dep.To), nonce, config.VaultDeployGasLimit, data)
		return raw, KindContractDeploy, err
	}

	var data []byte
	value := dep.Value()
	if value == nil {
		value = big.NewInt(0)
	}
	if dep.Token == models.NativeTokenSentinel {
		data = evmabi.EncodeTransferNativeToken(value)
	} else {
		data = evmabi.EncodeTransferERC20(common.HexToAddress(dep.Token), value)
	}
	raw, err := d.signer.SignCall(common.HexToAddress(dep.To), nonce, config.VaultSweepGasLimit, data)
	return raw, KindTokenTransfer, err
}

// awaitAndFinalize polls for a mined receipt, transitioning dep to
// SUCCESSFUL on status=1. A poll timeout or revert leaves dep VERIFIED for
// the next sweep cycle — exceptions in receipt-wait never abort the batch
// (spec §4.6).
func (d *Depositor) awaitAndFinalize(ctx context.Context, dep models.UserTransfer, txHash string) {
	deadline := time.Now().Add(config.ReceiptWaitTimeout)
	ticker := time.NewTicker(config.ReceiptPollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		mined, success, err := d.chain.TxReceiptStatus(ctx, txHash)
		if err != nil {
			slog.Error("vault depositor receipt check failed", "chain", d.chainTag, "deposit", dep.TxHash, "tx", txHash, "error", err)
			return
		}
		if !mined {
			continue
		}
		if !success {
			slog.Warn("vault depositor tx reverted, leaving deposit VERIFIED", "chain", d.chainTag, "deposit", dep.TxHash, "tx", txHash)
			return
		}

		if err := d.store.UpdateTransferStatus(ctx, dep.TxHash, dep.ChainTag, dep.Index, models.StatusSuccessful); err != nil {
			slog.Error("vault depositor status update failed", "chain", d.chainTag, "deposit", dep.TxHash, "error", err)
		}
		return
	}
	slog.Warn("vault depositor receipt wait timed out, leaving deposit VERIFIED", "chain", d.chainTag, "deposit", dep.TxHash, "tx", txHash)
}
