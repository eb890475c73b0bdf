package queue

import (
	"context"
	"fmt"
	"time"

	pebblestore "github.com/rzbill/flume/internal/storage/pebble"
	logpkg "github.com/rzbill/flume/pkg/log"
)

// TrimHook observes reclaimed sequence ranges. Implementations may archive
// deleted entries or emit metrics. The default is a no-op.
type TrimHook interface {
	EmitTrimRange(queue string, minSeq, maxSeq uint64)
}

type noopTrim struct{}

func (noopTrim) EmitTrimRange(string, uint64, uint64) {}

// Reclaim deletes every entry no live reader can still need: entries with
// sequence numbers strictly below the watermark (the minimum registered
// cursor in broadcast mode, the head in single mode, the tail when a
// broadcast queue has no consumers). Deletion is chunked; each chunk is
// one transaction that recomputes the watermark, so a concurrent
// registration between chunks is honored. Idempotent: a clean queue is a
// no-op. Returns the number of deleted entries.
func (q *Queue) Reclaim(ctx context.Context) (int, error) {
	return q.reclaim(ctx, 0)
}

// ReclaimN is Reclaim with an overall deletion budget.
func (q *Queue) ReclaimN(ctx context.Context, max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	return q.reclaim(ctx, max)
}

func (q *Queue) reclaim(ctx context.Context, max int) (int, error) {
	deleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		limit := q.opts.ReclaimChunk
		if max > 0 && max-deleted < limit {
			limit = max - deleted
		}
		if limit <= 0 {
			return deleted, nil
		}
		n, minSeq, maxSeq, err := q.reclaimChunk(ctx, limit)
		if err != nil {
			return deleted, err
		}
		if n == 0 {
			return deleted, nil
		}
		deleted += n
		q.opts.Trim.EmitTrimRange(q.name, minSeq, maxSeq)
		if n < limit {
			return deleted, nil
		}
	}
}

// reclaimChunk deletes up to limit entries below the watermark in one
// transaction and advances head to the reclaim point. Cursors cannot move
// backward, so an entry provably below every live cursor at watermark
// computation time stays reclaimable for the rest of the transaction.
func (q *Queue) reclaimChunk(ctx context.Context, limit int) (n int, minSeq, maxSeq uint64, err error) {
	err = q.runWrite(ctx, func(txn *pebblestore.Txn) error {
		n, minSeq, maxSeq = 0, 0, 0
		wm, err := q.watermark(txn)
		if err != nil {
			return err
		}
		if wm == 0 {
			return nil
		}
		lo, _ := EntryBounds(q.name)
		iter, err := txn.Scan(lo, KeyEntry(q.name, wm))
		if err != nil {
			return err
		}
		var seqs []uint64
		for ok := iter.First(); ok && len(seqs) < limit; ok = iter.Next() {
			seq, perr := ParseEntrySeq(q.name, iter.Key())
			if perr != nil {
				iter.Close()
				return perr
			}
			seqs = append(seqs, seq)
		}
		if err := iter.Close(); err != nil {
			return fmt.Errorf("%w: %w", ErrStore, err)
		}
		if len(seqs) == 0 {
			// Nothing below the watermark; still pull head up so length
			// accounting reflects reclaimed space.
			head, err := headSeq(txn, q.name)
			if err != nil {
				return err
			}
			if wm > head {
				return putHead(txn, q.name, wm)
			}
			return nil
		}
		for _, seq := range seqs {
			if err := txn.Delete(KeyEntry(q.name, seq)); err != nil {
				return err
			}
		}
		minSeq, maxSeq = seqs[0], seqs[len(seqs)-1]
		n = len(seqs)

		// Head becomes the reclaim point: the watermark if this chunk
		// cleared everything below it, otherwise just past the last delete.
		newHead := maxSeq + 1
		if n < limit {
			newHead = wm
		}
		head, err := headSeq(txn, q.name)
		if err != nil {
			return err
		}
		if newHead > head {
			return putHead(txn, q.name, newHead)
		}
		return nil
	})
	return n, minSeq, maxSeq, err
}

// watermark computes the highest sequence below which no live reader can
// still need entries.
func (q *Queue) watermark(txn *pebblestore.Txn) (uint64, error) {
	if q.mode == ModeSingle {
		return headSeq(txn, q.name)
	}
	min, any, err := minCursor(txn, q.name)
	if err != nil {
		return 0, err
	}
	if !any {
		return tailSeq(txn, q.name)
	}
	return min, nil
}

// StartReclaimer runs Reclaim on a fixed interval until StopReclaimer is
// called. Starting an already-running reclaimer restarts it with the new
// interval.
func (q *Queue) StartReclaimer(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	q.sweepMu.Lock()
	defer q.sweepMu.Unlock()
	if q.sweepStop != nil {
		close(q.sweepStop)
	}
	stop := make(chan struct{})
	q.sweepStop = stop
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				n, err := q.Reclaim(context.Background())
				if err != nil {
					q.logger.Warn("background reclaim failed", logpkg.Err(err))
				} else if n > 0 {
					q.logger.Debug("background reclaim", logpkg.Int("deleted", n))
				}
			}
		}
	}()
}

// StopReclaimer stops the background reclaim loop if running.
func (q *Queue) StopReclaimer() {
	q.sweepMu.Lock()
	defer q.sweepMu.Unlock()
	if q.sweepStop != nil {
		close(q.sweepStop)
		q.sweepStop = nil
	}
}
