// Package finalizer implements the Finalizer subsystem (spec §4.5): sweeps
// PENDING UserTransfers forward to FINALIZED once enough confirmations have
// accumulated, and back to REORG when a previously-processed range was
// replaced.
package finalizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zex-fi/zexbridge/internal/models"
)

// ChainSource is the subset of chainclient.Client the Finalizer needs.
type ChainSource interface {
	FinalizedBlock(ctx context.Context) (uint64, error)
}

// Store is the Store slice the Finalizer depends on.
type Store interface {
	MarkFinalized(ctx context.Context, chainTag models.ChainTag, finalizedBlock uint64) (int64, error)
	MarkReorg(ctx context.Context, chainTag models.ChainTag, fromBlock, toBlock uint64) (int64, error)
}

// Finalizer sweeps one chain's PENDING transfers.
type Finalizer struct {
	chainTag models.ChainTag
	chain    ChainSource
	store    Store
	interval time.Duration
}

// New constructs a Finalizer for one chain.
func New(chainTag models.ChainTag, chain ChainSource, store Store, interval time.Duration) *Finalizer {
	return &Finalizer{chainTag: chainTag, chain: chain, store: store, interval: interval}
}

// Run sweeps on a ticker until ctx is cancelled.
func (f *Finalizer) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	slog.Info("finalizer started", "chain", f.chainTag, "interval", f.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("finalizer stopping", "chain", f.chainTag, "reason", ctx.Err())
			return
		case <-ticker.C:
			if err := f.Sweep(ctx); err != nil {
				slog.Error("finalizer sweep failed", "chain", f.chainTag, "error", err)
			}
		}
	}
}

// Sweep finalizes every PENDING transfer at or below the chain's currently
// finalized block (spec §4.5: "PENDING → FINALIZED occurs when
// block_number ≤ finalized_block(chain) at Finalizer sweep time").
func (f *Finalizer) Sweep(ctx context.Context) error {
	finalizedBlock, err := f.chain.FinalizedBlock(ctx)
	if err != nil {
		return fmt.Errorf("finalized block: %w", err)
	}

	count, err := f.store.MarkFinalized(ctx, f.chainTag, finalizedBlock)
	if err != nil {
		return fmt.Errorf("mark finalized: %w", err)
	}
	if count > 0 {
		slog.Info("finalizer swept transfers", "chain", f.chainTag, "count", count, "finalizedBlock", finalizedBlock)
	}
	return nil
}

// Reorg marks every PENDING transfer in [fromBlock, toBlock] as REORG — a
// previously-processed range that no longer matches what Observer re-reads
// (spec §4.5: "detected by receipt mismatch during verification"). Callers
// (the external verification step) invoke this directly once a mismatch is
// found; Finalizer itself does not detect reorgs.
func (f *Finalizer) Reorg(ctx context.Context, fromBlock, toBlock uint64) error {
	count, err := f.store.MarkReorg(ctx, f.chainTag, fromBlock, toBlock)
	if err != nil {
		return fmt.Errorf("mark reorg: %w", err)
	}
	slog.Warn("finalizer marked reorg range", "chain", f.chainTag, "from", fromBlock, "to", toBlock, "count", count)
	return nil
}
