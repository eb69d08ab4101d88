package deriver

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zex-fi/zexbridge/internal/models"
)

// BatchDeriveEVM derives addresses for userIDs [fromUserID, toUserIDInclusive] using
// runtime.NumCPU() parallel workers — a newly-reported user backlog can be
// tens of thousands of IDs, and CREATE2 derivation is pure CPU work, so the
// batch is split evenly across workers rather than derived serially.
func BatchDeriveEVM(d *EVM, chainTag models.ChainTag, fromUserID, toUserIDInclusive uint64) ([]models.UserAddress, error) {
	if toUserIDInclusive < fromUserID {
		return nil, nil
	}
	count := int(toUserIDInclusive-fromUserID) + 1

	numWorkers := runtime.NumCPU()
	slog.Info("deriving EVM address batch",
		"chain", chainTag, "from", fromUserID, "to", toUserIDInclusive, "workers", numWorkers,
	)
	start := time.Now()

	out := make([]models.UserAddress, count)
	chunkSize := (count + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		chunkStart := w * chunkSize
		chunkEnd := chunkStart + chunkSize
		if chunkEnd > count {
			chunkEnd = count
		}
		if chunkStart >= count {
			break
		}

		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			for i := from; i < to; i++ {
				userID := fromUserID + uint64(i)
				addr, _ := d.DeriveAddress(userID)
				out[i] = models.UserAddress{
					UserID:   userID,
					Address:  addr,
					ChainTag: chainTag,
					IsActive: true,
				}
			}
		}(chunkStart, chunkEnd)
	}
	wg.Wait()

	slog.Info("EVM address batch derivation complete",
		"chain", chainTag, "count", count, "duration", time.Since(start).Round(time.Millisecond),
	)
	return out, nil
}

// BatchDeriveBTC derives Taproot addresses for userIDs [fromUserID, toUserIDInclusive]
// using runtime.NumCPU() parallel workers. Errors from an individual
// derivation abort the whole batch — the first error wins.
func BatchDeriveBTC(d *BTC, chainTag models.ChainTag, fromUserID, toUserIDInclusive uint64) ([]models.UserAddress, error) {
	if toUserIDInclusive < fromUserID {
		return nil, nil
	}
	count := int(toUserIDInclusive-fromUserID) + 1

	numWorkers := runtime.NumCPU()
	slog.Info("deriving BTC address batch",
		"chain", chainTag, "from", fromUserID, "to", toUserIDInclusive, "workers", numWorkers,
	)
	start := time.Now()

	out := make([]models.UserAddress, count)
	var firstErr atomic.Value
	chunkSize := (count + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		chunkStart := w * chunkSize
		chunkEnd := chunkStart + chunkSize
		if chunkEnd > count {
			chunkEnd = count
		}
		if chunkStart >= count {
			break
		}

		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			for i := from; i < to; i++ {
				if firstErr.Load() != nil {
					return
				}
				userID := fromUserID + uint64(i)
				addr, err := d.Derive(userID)
				if err != nil {
					firstErr.CompareAndSwap(nil, fmt.Errorf("derive BTC address for user %d: %w", userID, err))
					return
				}
				out[i] = models.UserAddress{
					UserID:   userID,
					Address:  addr.EncodeAddress(),
					ChainTag: chainTag,
					IsActive: true,
				}
			}
		}(chunkStart, chunkEnd)
	}
	wg.Wait()

	if errVal := firstErr.Load(); errVal != nil {
		return nil, errVal.(error)
	}

	slog.Info("BTC address batch derivation complete",
		"chain", chainTag, "count", count, "duration", time.Since(start).Round(time.Millisecond),
	)
	return out, nil
}
