// Package chainclient provides a uniform abstraction over per-chain RPC and
// indexer access (spec §4.1). Two variants exist, EVM and BTC, sharing one
// capability interface so Observer, Finalizer, VaultDepositor and
// WithdrawCoordinator never branch on chain kind themselves.
package chainclient

import (
	"context"

	"github.com/zex-fi/zexbridge/internal/models"
)

// Client is the capability set every chain variant implements.
type Client interface {
	ChainTag() models.ChainTag
	Kind() models.ChainKind

	// LatestBlock returns the current chain head height.
	LatestBlock(ctx context.Context) (uint64, error)

	// FinalizedBlock returns LatestBlock() minus the configured
	// finalize_block_count, floored at 0.
	FinalizedBlock(ctx context.Context) (uint64, error)

	// ExtractTransfers returns every RawTransfer touching a block, for the
	// caller to filter against its tracked-address set. Returns an empty
	// (not nil) slice for an empty block.
	ExtractTransfers(ctx context.Context, blockNumber uint64) ([]models.RawTransfer, error)

	// TokenDecimals resolves and caches a token's decimal count. Native
	// token (sentinel address) always resolves without I/O.
	TokenDecimals(ctx context.Context, token string) (int, error)

	// SendRaw broadcasts a pre-signed transaction and returns its hash.
	SendRaw(ctx context.Context, raw []byte) (txHash string, err error)

	// FeeEstimate returns the current fee rate (wei gas price for EVM,
	// sat/vByte for BTC).
	FeeEstimate(ctx context.Context) (*models.FeeEstimate, error)

	// Healthy reports whether the underlying provider is reachable.
	Healthy(ctx context.Context) error
}

