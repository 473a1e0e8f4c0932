package cmd

import (
	"context"
	"sync"

	"github.com/inference-sim/kernelshap/shap"
)

// ExplainBatch explains every row in xs against the same background and
// model, in parallel, sharing one set of precomputed artifacts across
// all of them instead of rebuilding the exact-layer enumeration per row.
// concurrency bounds how many rows are in flight at once; concurrency <= 0
// runs every row on its own goroutine.
func ExplainBatch(ctx context.Context, xs []shap.Row, bg shap.Background, f shap.PredictFunc, opts shap.ExplainOptions, concurrency int) ([]shap.Result, []error) {
	results := make([]shap.Result, len(xs))
	errs := make([]error, len(xs))
	if len(xs) == 0 {
		return results, errs
	}

	var pc *shap.Precomputed
	if p := len(xs[0]); p > 0 {
		degree := opts.HybridDegree
		if opts.Exact {
			degree = p
		}
		pc = shap.Precompute(p, degree)
	}

	if concurrency <= 0 || concurrency > len(xs) {
		concurrency = len(xs)
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, x := range xs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, x shap.Row) {
			defer wg.Done()
			defer func() { <-sem }()
			if pc == nil || pc.P != len(x) {
				results[i], errs[i] = shap.ExplainOne(ctx, x, bg, f, opts)
				return
			}
			results[i], errs[i] = shap.ExplainOneWithPrecomputed(ctx, x, bg, pc, f, opts)
		}(i, x)
	}
	wg.Wait()
	return results, errs
}
