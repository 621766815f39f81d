package core

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
)

// Aggregate waits for every branch and returns results in submission order,
// whatever order the branches finished in.
//
// Branches that completed after their context was cancelled are dropped; in
// that case the surviving results are returned together with ErrBatchCancelled.
// If ctx ends while branches are still outstanding, ctx's error is returned.
func Aggregate(ctx context.Context, branches []*Branch) ([]ExecutionResult, error) {
	type slot struct {
		index  int
		result ExecutionResult
	}

	slots := make([]slot, 0, len(branches))
	dropped := 0
	for _, b := range branches {
		result, ok, err := b.Wait(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "waiting for batch")
		}
		if !ok {
			dropped++
			continue
		}
		slots = append(slots, slot{index: b.Index, result: result})
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].index < slots[j].index
	})

	results := make([]ExecutionResult, len(slots))
	for i, s := range slots {
		results[i] = s.result
	}

	if dropped > 0 {
		return results, errors.Wrapf(ErrBatchCancelled, "%d of %d branches dropped", dropped, len(branches))
	}
	return results, nil
}

// Reorder arranges results returned by a batch endpoint in the order of
// variants. A variant the endpoint did not report on gets an error result,
// and results for unknown variant ids are discarded, so the output always has
// exactly one entry per variant.
func Reorder(variants []Variant, results []ExecutionResult) []ExecutionResult {
	byID := make(map[string]ExecutionResult, len(results))
	for _, r := range results {
		if _, dup := byID[r.VariantID]; dup {
			continue
		}
		byID[r.VariantID] = r
	}

	out := make([]ExecutionResult, len(variants))
	for i, v := range variants {
		r, ok := byID[v.ID]
		if !ok {
			out[i] = ExecutionResult{
				VariantID: v.ID,
				Model:     v.Model,
				Error:     "no result returned for variant",
			}
			continue
		}
		out[i] = normalize(r)
	}
	return out
}

// normalize enforces that a result carries either output or error, never both.
func normalize(r ExecutionResult) ExecutionResult {
	if r.Error != "" {
		r.Output = nil
		return r
	}
	if r.Output == nil {
		empty := ""
		r.Output = &empty
	}
	return r
}
