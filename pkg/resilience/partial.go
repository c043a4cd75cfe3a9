package resilience

import (
	"context"
	"fmt"

	"github.com/tr181-tools/tr181-go/pkg/faults"
)

// DefaultMinSuccessRate is the default acceptance threshold for RunAll.
const DefaultMinSuccessRate = 0.5

// FailedItem pairs an item with the error that failed it.
type FailedItem[T any] struct {
	Item T
	Err  error
}

// PartialResult is the outcome of processing a batch of independent items
// where some may have failed.
type PartialResult[T any] struct {
	Successful []T
	Failed     []FailedItem[T]
	TotalItems int
}

// SuccessRate returns the fraction of items processed successfully, 0 for an
// empty batch.
func (p *PartialResult[T]) SuccessRate() float64 {
	if p.TotalItems == 0 {
		return 0
	}
	return float64(len(p.Successful)) / float64(p.TotalItems)
}

// IsAcceptable reports whether the success rate clears the threshold.
func (p *PartialResult[T]) IsAcceptable(minSuccessRate float64) bool {
	return p.SuccessRate() >= minSuccessRate
}

// RunAll applies op to every item, continuing past individual failures, and
// collects the outcome. When the success rate ends up below minSuccessRate
// (values <= 0 mean DefaultMinSuccessRate), RunAll returns the partial
// result together with a validation fault carrying the rate and threshold;
// the caller still gets the successful items.
//
// Context cancellation aborts between items and surfaces ctx.Err(); items
// not yet attempted count as failed.
func RunAll[T any](ctx context.Context, items []T, op func(T) error, minSuccessRate float64) (*PartialResult[T], error) {
	if minSuccessRate <= 0 {
		minSuccessRate = DefaultMinSuccessRate
	}

	result := &PartialResult[T]{TotalItems: len(items)}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			for _, rest := range items[i:] {
				result.Failed = append(result.Failed, FailedItem[T]{Item: rest, Err: err})
			}
			return result, err
		}

		if err := op(item); err != nil {
			result.Failed = append(result.Failed, FailedItem[T]{Item: item, Err: err})
			continue
		}
		result.Successful = append(result.Successful, item)
	}

	if len(items) > 0 && !result.IsAcceptable(minSuccessRate) {
		f := faults.Validation(
			fmt.Sprintf("success rate %.2f below threshold %.2f (%d/%d items failed)",
				result.SuccessRate(), minSuccessRate, len(result.Failed), result.TotalItems),
			nil).
			WithMetadata("success_rate", result.SuccessRate()).
			WithMetadata("min_success_rate", minSuccessRate)
		return result, f
	}

	return result, nil
}
