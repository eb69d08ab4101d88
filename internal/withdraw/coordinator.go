package withdraw

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/zex-fi/zexbridge/internal/models"
)

// ExchangeSource is the read-only exchange surface WithdrawCoordinator polls.
type ExchangeSource interface {
	AllPendingWithdraws(ctx context.Context, chainTag models.ChainTag) ([]models.WithdrawRequest, error)
}

// PersistentWithdrawStore is the Store slice shared by both chain paths.
type PersistentWithdrawStore interface {
	FindWithdrawsByStatus(ctx context.Context, chainTag models.ChainTag, status models.WithdrawStatus) ([]models.WithdrawRequest, error)
	UpsertWithdraw(ctx context.Context, req models.WithdrawRequest) error
}

// ChainProcessor advances a single withdraw one step toward a terminal
// status, implemented separately per chain kind (EVMWithdrawer/BTCWithdrawer).
type ChainProcessor interface {
	Process(ctx context.Context, req models.WithdrawRequest) (models.WithdrawRequest, error)
}

// Coordinator runs one chain's withdraw loop: pull PENDING/PROCESSING
// requests from Store (backed by the exchange), process them in ascending
// nonce order, persist the outcome (spec §5: "WithdrawRequests per chain
// are processed in ascending nonce order; the exchange guarantees nonce
// monotonicity").
type Coordinator struct {
	chainTag  models.ChainTag
	exchange  ExchangeSource
	store     PersistentWithdrawStore
	processor ChainProcessor
	interval  time.Duration
}

// NewCoordinator constructs a Coordinator for one chain.
func NewCoordinator(chainTag models.ChainTag, exchange ExchangeSource, store PersistentWithdrawStore, processor ChainProcessor, interval time.Duration) *Coordinator {
	return &Coordinator{chainTag: chainTag, exchange: exchange, store: store, processor: processor, interval: interval}
}

// Run polls on a ticker until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	slog.Info("withdraw coordinator started", "chain", c.chainTag, "interval", c.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("withdraw coordinator stopping", "chain", c.chainTag, "reason", ctx.Err())
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Coordinator) tick(ctx context.Context) {
	if err := c.syncFromExchange(ctx); err != nil {
		slog.Error("withdraw sync from exchange failed", "chain", c.chainTag, "error", err)
	}

	pending, err := c.store.FindWithdrawsByStatus(ctx, c.chainTag, models.WithdrawPending)
	if err != nil {
		slog.Error("withdraw load pending failed", "chain", c.chainTag, "error", err)
		return
	}
	processing, err := c.store.FindWithdrawsByStatus(ctx, c.chainTag, models.WithdrawProcessing)
	if err != nil {
		slog.Error("withdraw load processing failed", "chain", c.chainTag, "error", err)
		return
	}

	work := append(pending, processing...)
	sort.Slice(work, func(i, j int) bool { return work[i].Nonce < work[j].Nonce })

	for _, req := range work {
		if ctx.Err() != nil {
			return
		}
		updated, err := c.processor.Process(ctx, req)
		if err != nil {
			slog.Error("withdraw process failed", "chain", c.chainTag, "nonce", req.Nonce, "error", err)
		}
		if persistErr := c.store.UpsertWithdraw(ctx, updated); persistErr != nil {
			slog.Error("withdraw persist failed", "chain", c.chainTag, "nonce", req.Nonce, "error", persistErr)
		}
	}
}

// syncFromExchange mirrors exchange-side withdraws into Store as PENDING.
// The exchange's pending-withdraws endpoint only ever lists requests it has
// not yet seen confirmed, so upserting them here never clobbers a Store
// record that has already advanced past PENDING.
func (c *Coordinator) syncFromExchange(ctx context.Context) error {
	withdraws, err := c.exchange.AllPendingWithdraws(ctx, c.chainTag)
	if err != nil {
		return err
	}
	for _, w := range withdraws {
		if w.Status == "" {
			w.Status = models.WithdrawPending
		}
		if err := c.store.UpsertWithdraw(ctx, w); err != nil {
			return err
		}
	}
	return nil
}
