// Package observer implements the Observer subsystem (spec §4.4): it
// advances a chain's cursor one batch at a time, persisting any transfer to
// a tracked address along the way.
package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/models"
)

// ChainSource is the subset of chainclient.Client the Observer reads from.
type ChainSource interface {
	LatestBlock(ctx context.Context) (uint64, error)
	ExtractTransfers(ctx context.Context, blockNumber uint64) ([]models.RawTransfer, error)
	TokenDecimals(ctx context.Context, token string) (int, error)
}

// Store is the Store slice the Observer depends on.
type Store interface {
	GetCursor(ctx context.Context, chainTag models.ChainTag) (uint64, error)
	UpsertCursor(ctx context.Context, chainTag models.ChainTag, block uint64) error
	ActiveAddresses(ctx context.Context, chainTag models.ChainTag) (map[string]uint64, error)
	InsertTransfersUnique(ctx context.Context, transfers []models.UserTransfer) error
}

// AddressSyncer brings newly-registered exchange users' addresses into
// Store before each iteration's accepted-address snapshot is taken
// (spec §4.4 step 3). Implemented by the AddressDeriver + exchange wiring
// at the application layer.
type AddressSyncer interface {
	SyncNewAddresses(ctx context.Context, chainTag models.ChainTag) error
}

// Observer advances one chain's cursor.
type Observer struct {
	chainTag      models.ChainTag
	chain         ChainSource
	store         Store
	syncer        AddressSyncer
	batchBlockSize uint64
	delay         time.Duration
	fanOut        int
}

// New constructs an Observer for one chain.
func New(chainTag models.ChainTag, chain ChainSource, store Store, syncer AddressSyncer, batchBlockSize uint64, delay time.Duration) *Observer {
	return &Observer{
		chainTag:       chainTag,
		chain:          chain,
		store:          store,
		syncer:         syncer,
		batchBlockSize: batchBlockSize,
		delay:          delay,
		fanOut:         config.ObserverFanOut,
	}
}

// Run loops Iterate until ctx is cancelled, sleeping between ticks per the
// configured delay and backing off on error (spec §5: "on timeout or
// connection error the task sleeps and continues").
func (o *Observer) Run(ctx context.Context) {
	slog.Info("observer started", "chain", o.chainTag, "delay", o.delay)
	for {
		if ctx.Err() != nil {
			slog.Info("observer stopping", "chain", o.chainTag, "reason", ctx.Err())
			return
		}

		advanced, err := o.Iterate(ctx)
		if err != nil {
			slog.Error("observer iteration failed", "chain", o.chainTag, "error", err)
			sleep(ctx, config.ObserverRetryBackoff)
			continue
		}
		if !advanced {
			sleep(ctx, o.delay)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Iterate runs one cursor-advancing pass (spec §4.4 steps 1-7). It returns
// advanced=true if at least one block's worth of work was processed.
func (o *Observer) Iterate(ctx context.Context) (advanced bool, err error) {
	cursor, err := o.store.GetCursor(ctx, o.chainTag)
	if err != nil {
		return false, fmt.Errorf("get cursor: %w", err)
	}

	latest, err := o.chain.LatestBlock(ctx)
	if err != nil {
		if errors.Is(err, config.ErrBlockNotFound) {
			return false, nil // non-fatal per spec §4.4 edge cases
		}
		return false, fmt.Errorf("latest block: %w", err)
	}
	if cursor >= latest {
		return false, nil
	}

	if o.syncer != nil {
		if err := o.syncer.SyncNewAddresses(ctx, o.chainTag); err != nil {
			slog.Warn("observer address sync failed, continuing with stale set", "chain", o.chainTag, "error", err)
		}
	}

	accepted, err := o.store.ActiveAddresses(ctx, o.chainTag)
	if err != nil {
		return false, fmt.Errorf("active addresses: %w", err)
	}

	for batchFrom := cursor + 1; batchFrom <= latest; {
		batchTo := batchFrom + o.batchBlockSize - 1
		if batchTo > latest {
			batchTo = latest
		}

		transfers, err := o.processBatch(ctx, batchFrom, batchTo, accepted)
		if err != nil {
			// Partial batch failure does NOT advance the cursor past the
			// failing block (spec §4.4 edge cases).
			return advanced, fmt.Errorf("process batch [%d,%d]: %w", batchFrom, batchTo, err)
		}

		if err := o.store.InsertTransfersUnique(ctx, transfers); err != nil {
			return advanced, fmt.Errorf("insert transfers: %w", err)
		}
		if err := o.store.UpsertCursor(ctx, o.chainTag, batchTo); err != nil {
			return advanced, fmt.Errorf("upsert cursor: %w", err)
		}

		advanced = true
		batchFrom = batchTo + 1
	}
	return advanced, nil
}

// processBatch fetches every block in [from, to] with bounded fan-out and
// returns the UserTransfers matched against accepted.
func (o *Observer) processBatch(ctx context.Context, from, to uint64, accepted map[string]uint64) ([]models.UserTransfer, error) {
	batchCtx, cancel := context.WithTimeout(ctx, config.MaxDelayPerBlockBatch)
	defer cancel()

	g, gctx := errgroup.WithContext(batchCtx)
	g.SetLimit(o.fanOut)

	results := make([][]models.UserTransfer, to-from+1)
	for block := from; block <= to; block++ {
		block := block
		idx := block - from
		g.Go(func() error {
			raw, err := o.chain.ExtractTransfers(gctx, block)
			if err != nil {
				return fmt.Errorf("block %d: %w", block, err)
			}
			matched := make([]models.UserTransfer, 0, len(raw))
			for _, rt := range raw {
				userID, ok := accepted[rt.To]
				if !ok {
					continue
				}
				decimals, err := o.chain.TokenDecimals(gctx, rt.Token)
				if err != nil {
					return fmt.Errorf("decimals for token %s: %w", rt.Token, err)
				}
				matched = append(matched, models.NewUserTransfer(rt, userID, decimals))
			}
			results[idx] = matched
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.UserTransfer
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
