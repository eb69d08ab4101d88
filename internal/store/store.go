// Package store defines the persistence contract (spec §4.3) and its
// MongoDB-backed implementation (internal/store/mongostore). Observer,
// Finalizer, VaultDepositor and WithdrawCoordinator each declare their own
// narrow Store interface, which the concrete driver satisfies, so tests
// substitute in-memory fakes.
package store

import (
	"context"

	"github.com/zex-fi/zexbridge/internal/models"
)

// AddressStore covers per-chain deposit address bookkeeping.
type AddressStore interface {
	InsertAddress(ctx context.Context, addr models.UserAddress) error
	InsertAddressesBatch(ctx context.Context, addrs []models.UserAddress) error
	LastUserID(ctx context.Context, chainTag models.ChainTag) (uint64, bool, error)
	ActiveAddresses(ctx context.Context, chainTag models.ChainTag) (map[string]uint64, error)
}

// CursorStore covers per-chain block-cursor bookkeeping.
type CursorStore interface {
	UpsertCursor(ctx context.Context, chainTag models.ChainTag, block uint64) error
	GetCursor(ctx context.Context, chainTag models.ChainTag) (uint64, error)
}

// TransferStore covers UserTransfer persistence and the finalization state
// machine transitions.
type TransferStore interface {
	InsertTransfersUnique(ctx context.Context, transfers []models.UserTransfer) error
	TransfersByStatus(ctx context.Context, status models.TransferStatus, chainTag models.ChainTag, fromBlock uint64) ([]models.UserTransfer, error)
	MarkFinalized(ctx context.Context, chainTag models.ChainTag, finalizedBlock uint64) (int64, error)
	MarkReorg(ctx context.Context, chainTag models.ChainTag, fromBlock, toBlock uint64) (int64, error)
	UpdateTransferStatus(ctx context.Context, txHash string, chainTag models.ChainTag, index uint32, status models.TransferStatus) error
}

// UTXOStore covers UTXO bookkeeping.
type UTXOStore interface {
	InsertUTXOsUnique(ctx context.Context, utxos []models.UTXO) error
	FindUTXOsByStatus(ctx context.Context, chainTag models.ChainTag, status models.UTXOStatus) ([]models.UTXO, error)
	MarkUTXOsSpend(ctx context.Context, utxos []models.UTXO) error
}

// WithdrawStore covers WithdrawRequest bookkeeping.
type WithdrawStore interface {
	FindWithdrawsByStatus(ctx context.Context, chainTag models.ChainTag, status models.WithdrawStatus) ([]models.WithdrawRequest, error)
	UpsertWithdraw(ctx context.Context, req models.WithdrawRequest) error
	FindByNonce(ctx context.Context, chainTag models.ChainTag, nonce uint64) (*models.WithdrawRequest, bool, error)
}

// Store is the full persistence contract the application wires concretely
// to mongostore.Store at boot.
type Store interface {
	AddressStore
	CursorStore
	TransferStore
	UTXOStore
	WithdrawStore
}
