// Package batch evaluates the order search for every N in a contiguous range on a
// bounded pool of workers and reassembles the results in ascending N.
//
// Each N owns a fixed slot (index N−low) in a preallocated result buffer, so the
// output order never depends on completion order. Workers share only the
// read-only Finder configuration.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/haricheung/catperiod/internal/bus"
	"github.com/haricheung/catperiod/internal/catmap"
	"github.com/haricheung/catperiod/internal/types"
)

// ErrInvalidRange is returned when high < low.
var ErrInvalidRange = errors.New("invalid range")

// Policy decides what a per-N failure does to the rest of the batch.
type Policy int

const (
	// PolicyFailFast cancels the batch on the first failure and returns it.
	PolicyFailFast Policy = iota
	// PolicySkip records failures in Result.Failures and keeps going.
	PolicySkip
)

func (p Policy) String() string {
	switch p {
	case PolicyFailFast:
		return "failfast"
	case PolicySkip:
		return "skip"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy maps "failfast" / "skip" to a Policy. Empty selects PolicyFailFast.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "failfast":
		return PolicyFailFast, nil
	case "skip":
		return PolicySkip, nil
	}
	return 0, fmt.Errorf("unknown policy %q", s)
}

// Cache is the optional persistent lookaside consulted before searching.
// *store.Store satisfies it.
type Cache interface {
	Get(n int) (types.Period, bool, error)
	Put(p types.Period) error
}

// Orchestrator fans the order search out over Workers goroutines.
// The zero value runs on runtime.NumCPU() workers with PolicyFailFast,
// the default Finder, no cache and no bus.
type Orchestrator struct {
	Workers int
	Policy  Policy
	Finder  *catmap.Finder
	Cache   Cache
	Bus     *bus.Bus
	RunID   string
}

// Result is the outcome of ComputeRange.
//
// With PolicyFailFast a returned Result always has len(Periods) == High−Low+1.
// With PolicySkip, Periods holds the successful Ns and Failures the rest; both
// are ascending in N and together cover [Low, High] exactly once.
type Result struct {
	RunID    string
	Low      int
	High     int
	Periods  []types.Period
	Failures []types.Failure
	Cached   int
	Elapsed  time.Duration
}

type slot struct {
	period types.Period
	err    error
	done   bool
}

// ComputeRange evaluates the order search for every N in [low, high].
//
// Expectations:
//   - Rejects low < 2 with ErrInvalidModulus and high < low with ErrInvalidRange before dispatch
//   - Periods are ascending in N regardless of worker scheduling
//   - PolicyFailFast: the first failing N cancels the rest; the error names that N
//   - PolicySkip: failing Ns land in Failures, never shifting other Ns
//   - Cancelling ctx aborts the whole batch and returns ctx.Err()
//   - Cache hits skip the search; fresh results are written back
func (o *Orchestrator) ComputeRange(ctx context.Context, low, high int) (Result, error) {
	if low < 2 {
		return Result{}, &catmap.OrderError{N: low, Err: catmap.ErrInvalidModulus}
	}
	if high < low {
		return Result{}, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, low, high)
	}

	runID := o.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	workers := o.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	start := time.Now()

	o.publish(types.CompOrchestrator, types.MsgBatchBegin, types.BatchBegin{
		RunID: runID, Low: low, High: high, Workers: workers, Policy: o.Policy.String(),
	})
	slog.Info("[BATCH] dispatching", "run", runID, "low", low, "high", high, "workers", workers, "policy", o.Policy)

	slots := make([]slot, high-low+1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

dispatch:
	for n := low; n <= high; n++ {
		select {
		case <-gctx.Done():
			break dispatch
		default:
		}
		n := n
		g.Go(func() error {
			p, err := o.compute(gctx, n)
			slots[n-low] = slot{period: p, err: err, done: true}
			if err != nil {
				if gctx.Err() != nil && errors.Is(err, gctx.Err()) {
					return err
				}
				o.publish(types.CompWorker, types.MsgPeriodFailed, types.Failure{N: n, Reason: err.Error()})
				if o.Policy == PolicyFailFast {
					return err
				}
				slog.Warn("[BATCH] skipping N", "n", n, "error", err)
				return nil
			}
			o.publish(types.CompWorker, types.MsgPeriodFound, p)
			return nil
		})
	}
	waitErr := g.Wait()

	res := Result{RunID: runID, Low: low, High: high, Elapsed: time.Since(start)}
	if err := ctx.Err(); err != nil {
		o.end(res, err)
		return Result{}, err
	}
	if waitErr != nil {
		o.end(res, waitErr)
		return Result{}, waitErr
	}

	res.Periods = make([]types.Period, 0, len(slots))
	for i, s := range slots {
		switch {
		case !s.done:
			// Unreachable without cancellation.
			res.Failures = append(res.Failures, types.Failure{N: low + i, Reason: "not dispatched"})
		case s.err != nil:
			res.Failures = append(res.Failures, types.Failure{N: low + i, Reason: s.err.Error()})
		default:
			if s.period.Cached {
				res.Cached++
			}
			res.Periods = append(res.Periods, s.period)
		}
	}
	o.end(res, nil)
	return res, nil
}

// compute serves n from the cache or runs the search and writes the result back.
func (o *Orchestrator) compute(ctx context.Context, n int) (types.Period, error) {
	if err := ctx.Err(); err != nil {
		return types.Period{}, err
	}
	if o.Cache != nil {
		p, ok, err := o.Cache.Get(n)
		if err != nil {
			slog.Warn("[BATCH] cache read failed; searching", "n", n, "error", err)
		} else if ok {
			return p, nil
		}
	}
	p, err := o.Finder.FindOrderContext(ctx, n)
	if err != nil {
		var oe *catmap.OrderError
		if errors.As(err, &oe) && (errors.Is(oe.Err, context.Canceled) || errors.Is(oe.Err, context.DeadlineExceeded)) {
			return types.Period{}, oe.Err
		}
		return types.Period{}, err
	}
	if o.Cache != nil {
		if err := o.Cache.Put(p); err != nil {
			slog.Warn("[BATCH] cache write failed", "n", n, "error", err)
		}
	}
	return p, nil
}

func (o *Orchestrator) end(res Result, err error) {
	var completed int
	if err == nil {
		completed = len(res.Periods)
	}
	ev := types.BatchEnd{
		RunID:     res.RunID,
		Completed: completed,
		Failed:    len(res.Failures),
		ElapsedMs: res.Elapsed.Milliseconds(),
	}
	if err != nil {
		ev.Err = err.Error()
		slog.Error("[BATCH] aborted", "run", res.RunID, "error", err)
	} else {
		slog.Info("[BATCH] complete", "run", res.RunID, "periods", completed, "failures", ev.Failed,
			"cached", res.Cached, "elapsed_ms", ev.ElapsedMs)
	}
	o.publish(types.CompOrchestrator, types.MsgBatchEnd, ev)
}

func (o *Orchestrator) publish(from types.Component, t types.MessageType, payload any) {
	if o.Bus == nil {
		return
	}
	o.Bus.Publish(types.Message{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		From:      from,
		Type:      t,
		Payload:   payload,
	})
}
