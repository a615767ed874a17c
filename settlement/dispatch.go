package settlement

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vitwit/heka402/types"
)

// Dispatcher decides how the legs of one payment are scheduled. Results are
// always returned in leg order. Legs only share read-only values (proof,
// commitment, nonce), so any schedule is safe once those are fixed.
type Dispatcher interface {
	Dispatch(ctx context.Context, legs []types.Leg, exec Executor) []types.ExecutionResult
}

// SequentialDispatcher runs legs one after another in caller order.
type SequentialDispatcher struct{}

func (SequentialDispatcher) Dispatch(ctx context.Context, legs []types.Leg, exec Executor) []types.ExecutionResult {
	results := make([]types.ExecutionResult, 0, len(legs))
	for _, leg := range legs {
		results = append(results, exec.Execute(ctx, leg))
	}
	return results
}

// ConcurrentDispatcher runs up to Limit legs at once (unbounded when Limit
// is zero). Per-chain account nonces stay ordered because each chain client
// serializes its own submissions.
type ConcurrentDispatcher struct {
	Limit int
}

func (d ConcurrentDispatcher) Dispatch(ctx context.Context, legs []types.Leg, exec Executor) []types.ExecutionResult {
	results := make([]types.ExecutionResult, len(legs))

	var g errgroup.Group
	if d.Limit > 0 {
		g.SetLimit(d.Limit)
	}
	for i, leg := range legs {
		i, leg := i, leg
		g.Go(func() error {
			results[i] = exec.Execute(ctx, leg)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// NewDispatcher maps a config dispatch mode to a Dispatcher.
func NewDispatcher(mode string, limit int) Dispatcher {
	if mode == types.DispatchConcurrent {
		return ConcurrentDispatcher{Limit: limit}
	}
	return SequentialDispatcher{}
}
