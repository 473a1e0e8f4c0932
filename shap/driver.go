package shap

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// ExplainOne is the single-row driver. It chooses the exact, hybrid,
// or pure-sampling branch, runs the iterative convergence loop when
// needed, and returns the attribution vector beta together with its
// standard error and convergence status.
//
// ExplainOne never returns a nil Result alongside a nil error. When the
// iterative loop exhausts MaxIter without satisfying Tol, it returns a
// valid Result with Converged=false and an error wrapping ErrNonConverged;
// callers that only care about the numbers can ignore that error and read
// Result.Converged directly.
func ExplainOne(ctx context.Context, x Row, bg Background, f PredictFunc, opts ExplainOptions) (Result, error) {
	p := len(x)
	if p == 0 {
		return Result{}, fmt.Errorf("%w: x has zero features", ErrInvalidShape)
	}
	pc := Precompute(p, opts.HybridDegree)
	return ExplainOneWithPrecomputed(ctx, x, bg, pc, f, opts)
}

// ExplainOneWithPrecomputed is ExplainOne for callers that already hold a
// *Precomputed for this row's (p, HybridDegree) pair and want to reuse it
// across many rows instead of rebuilding the exact-layer artifacts on every
// call. Precomputed is safe to share read-only across concurrent
// ExplainOne calls.
func ExplainOneWithPrecomputed(ctx context.Context, x Row, bg Background, pc *Precomputed, f PredictFunc, opts ExplainOptions) (Result, error) {
	p := len(x)
	if p == 0 {
		return Result{}, fmt.Errorf("%w: x has zero features", ErrInvalidShape)
	}
	if pc.P != p {
		return Result{}, fmt.Errorf("%w: precomputed artifacts built for p=%d, x has %d", ErrInvalidShape, pc.P, p)
	}
	if bg.NumFeatures() != p {
		return Result{}, fmt.Errorf("%w: background has %d columns, x has %d", ErrInvalidShape, bg.NumFeatures(), p)
	}

	v0, err := computeV0(ctx, bg, f, opts.PredictionCtx)
	if err != nil {
		return Result{}, err
	}
	v1, err := computeV1(ctx, x, f, opts.PredictionCtx)
	if err != nil {
		return Result{}, err
	}
	_, k := v1.Dims()
	c := make([]float64, k)
	for col := 0; col < k; col++ {
		c[col] = v1.At(0, col) - v0.At(0, col)
	}

	if opts.Exact || pc.FullyExact {
		return explainExact(ctx, x, bg, pc, f, opts, v0, c)
	}
	return explainIterative(ctx, x, bg, pc, f, opts, v0, c)
}

func explainExact(ctx context.Context, x Row, bg Background, pc *Precomputed, f PredictFunc, opts ExplainOptions, v0 *mat.Dense, c []float64) (Result, error) {
	if !pc.FullyExact {
		// opts.Exact was set with a degree below floor(p/2): enumerate every
		// subset size rather than only the hybrid layers.
		pc = Precompute(len(x), len(x))
	}
	vz, err := Evaluate(ctx, x, bg, pc.ZExact, f, opts.PredictionCtx, v0, opts.BatchBudget)
	if err != nil {
		return Result{}, err
	}
	b := computeB(pc.ZExact, pc.WExact, vz, v0)
	beta, err := SolveConstrained(pc.AExact, b, c, 0)
	if err != nil {
		return Result{}, err
	}
	_, k := b.Dims()
	sigma := mat.NewDense(len(x), k, nil)
	return Result{Beta: beta, Sigma: sigma, NIter: 1, Converged: true, Strategy: StrategyExact}, nil
}

func explainIterative(ctx context.Context, x Row, bg Background, pc *Precomputed, f PredictFunc, opts ExplainOptions, v0 *mat.Dense, c []float64) (Result, error) {
	p := len(x)
	_, k := v0.Dims()

	strategy := StrategyHybrid
	var aExact, bExact *mat.Dense
	if pc.Degree == 0 {
		strategy = StrategySampling
		aExact = mat.NewDense(p, p, nil)
		bExact = mat.NewDense(p, k, nil)
	} else {
		aExact = pc.AExact
		vzExact, err := Evaluate(ctx, x, bg, pc.ZExact, f, opts.PredictionCtx, v0, opts.BatchBudget)
		if err != nil {
			return Result{}, err
		}
		bExact = computeB(pc.ZExact, pc.WExact, vzExact, v0)
	}

	rng := NewPartitionedRNG(ExplainSeed(opts.Seed))
	sampler := NewSampler(p, pc.MidSizes, pc.OmegaFull, rng.ForSubsystem(SubsystemSampler))

	maxIter := opts.MaxIter
	if maxIter < 1 {
		maxIter = 1
	}

	history := make([]*mat.Dense, 0, maxIter)
	aSum := mat.NewDense(p, p, nil)
	bSum := mat.NewDense(p, k, nil)

	var beta, sigma *mat.Dense
	converged := false
	n := 0

	for n = 1; n <= maxIter; n++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		zN, wN := sampler.Sample(opts.M, opts.Paired)
		vzN, err := Evaluate(ctx, x, bg, zN, f, opts.PredictionCtx, v0, opts.BatchBudget)
		if err != nil {
			return Result{}, err
		}
		bN := computeB(zN, wN, vzN, v0)
		aN := buildA(zN, wN)

		aTemp := mat.NewDense(p, p, nil)
		aTemp.Add(aExact, aN)
		bTemp := mat.NewDense(p, k, nil)
		bTemp.Add(bExact, bN)

		aSum.Add(aSum, aTemp)
		bSum.Add(bSum, bTemp)

		betaN, err := SolveConstrained(aTemp, bTemp, c, 0)
		if err != nil {
			return Result{}, err
		}
		history = append(history, betaN)

		if n < 2 {
			beta, sigma = betaN, mat.NewDense(p, k, nil)
			continue
		}

		aMean := mat.NewDense(p, p, nil)
		aMean.Scale(1/float64(n), aSum)
		bMean := mat.NewDense(p, k, nil)
		bMean.Scale(1/float64(n), bSum)

		betaBar, err := SolveConstrained(aMean, bMean, c, 0)
		if err != nil {
			return Result{}, err
		}
		_, sigmaBar := StandardError(history)

		crit := ConvergenceCriterion(sigmaBar, betaBar, DeltaStability)
		logrus.WithFields(logrus.Fields{
			"iter":      n,
			"criterion": crit,
			"tol":       opts.Tol,
		}).Debug("shap: iteration")

		beta, sigma = betaBar, sigmaBar
		if crit < opts.Tol {
			converged = true
			break
		}
	}
	if n > maxIter {
		n = maxIter
	}

	if !converged {
		logrus.WithFields(logrus.Fields{"n_iter": n}).Warn("shap: reached max_iter without convergence")
		return Result{Beta: beta, Sigma: sigma, NIter: n, Converged: false, Strategy: strategy},
			fmt.Errorf("%w after %d iterations", ErrNonConverged, n)
	}
	return Result{Beta: beta, Sigma: sigma, NIter: n, Converged: true, Strategy: strategy}, nil
}

func computeV0(ctx context.Context, bg Background, f PredictFunc, pc PredictionContext) (*mat.Dense, error) {
	preds, err := f(ctx, bg.Table, pc)
	if err != nil {
		return nil, fmt.Errorf("shap: prediction function (v0): %w", err)
	}
	rows, k := preds.Dims()
	if rows != bg.NumRows() {
		return nil, fmt.Errorf("%w: v0 predictions have %d rows, want %d", ErrPredictionShapeMismatch, rows, bg.NumRows())
	}
	v0 := mat.NewDense(1, k, nil)
	if bg.Weights == nil {
		invN := 1 / float64(rows)
		for col := 0; col < k; col++ {
			var sum float64
			for i := 0; i < rows; i++ {
				sum += preds.At(i, col)
			}
			v0.Set(0, col, sum*invN)
		}
		return v0, nil
	}
	var wSum float64
	for _, w := range bg.Weights {
		wSum += w
	}
	for col := 0; col < k; col++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += bg.Weights[i] * preds.At(i, col)
		}
		v0.Set(0, col, sum/wSum)
	}
	return v0, nil
}

func computeV1(ctx context.Context, x Row, f PredictFunc, pc PredictionContext) (*mat.Dense, error) {
	var table MaskableTable
	if x.AllNumeric() {
		table = NewNumericTable(mat.NewDense(1, len(x), x.Floats()))
	} else {
		table = NewGenericTable([]Row{x})
	}
	preds, err := f(ctx, table, pc)
	if err != nil {
		return nil, fmt.Errorf("shap: prediction function (v1): %w", err)
	}
	rows, k := preds.Dims()
	if rows != 1 {
		return nil, fmt.Errorf("%w: v1 predictions have %d rows, want 1", ErrPredictionShapeMismatch, rows)
	}
	v1 := mat.NewDense(1, k, nil)
	for col := 0; col < k; col++ {
		v1.Set(0, col, preds.At(0, col))
	}
	return v1, nil
}

// computeB forms Z^T * diag(w) * (vz - v0*ones_m), the weighted
// contribution to b for one batch of Z rows.
func computeB(z *mat.Dense, w []float64, vz, v0 *mat.Dense) *mat.Dense {
	m, p := z.Dims()
	_, k := v0.Dims()
	if m == 0 {
		return mat.NewDense(p, k, nil)
	}
	v0Row := v0.RawRowView(0)
	weighted := mat.NewDense(m, k, nil)
	for i := 0; i < m; i++ {
		for col := 0; col < k; col++ {
			weighted.Set(i, col, w[i]*(vz.At(i, col)-v0Row[col]))
		}
	}
	b := mat.NewDense(p, k, nil)
	b.Mul(z.T(), weighted)
	return b
}

// buildA forms Z^T * diag(w) * Z = sum_i w_i * z_i * z_i^T.
func buildA(z *mat.Dense, w []float64) *mat.Dense {
	m, p := z.Dims()
	if m == 0 {
		return mat.NewDense(p, p, nil)
	}
	weightedZ := mat.NewDense(m, p, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < p; j++ {
			weightedZ.Set(i, j, w[i]*z.At(i, j))
		}
	}
	a := mat.NewDense(p, p, nil)
	a.Mul(z.T(), weightedZ)
	return a
}
