package shap

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// defaultBatchBudget bounds how many stacked (m*n_bg) rows are sent
// through the predictor at once when the caller leaves BatchBudget unset.
const defaultBatchBudget = 1 << 16

// Evaluate is the masker/vz evaluator. Given x, background bg, and an
// on-off matrix z (m x p), it builds the stacked masked matrix, calls f
// once per batch, and aggregates predictions back to one vz row per input
// z row.
//
// Row i of the stacked matrix corresponds to (z row i/n_bg, background row
// i%n_bg); group index g[i] = i/n_bg. Features with z_j=1 keep x's value;
// features with z_j=0 are replaced by the background row's value.
func Evaluate(ctx context.Context, x Row, bg Background, z *mat.Dense, f PredictFunc, pc PredictionContext, v0 *mat.Dense, batchBudget int) (*mat.Dense, error) {
	m, p := z.Dims()
	nBg := bg.NumRows()
	if len(x) != p {
		return nil, fmt.Errorf("%w: x has %d features, Z has %d columns", ErrInvalidShape, len(x), p)
	}
	if bg.NumFeatures() != p {
		return nil, fmt.Errorf("%w: background has %d columns, want %d", ErrInvalidShape, bg.NumFeatures(), p)
	}
	if m == 0 {
		_, k := v0.Dims()
		return mat.NewDense(0, k, nil), nil
	}

	if batchBudget <= 0 {
		batchBudget = defaultBatchBudget
	}
	rowsPerBatch := batchBudget
	if rowsPerBatch < nBg {
		rowsPerBatch = nBg // never split a single Z row's background group across batches
	}
	zRowsPerBatch := rowsPerBatch / nBg
	if zRowsPerBatch < 1 {
		zRowsPerBatch = 1
	}

	_, k := v0.Dims()
	vz := mat.NewDense(m, k, nil)

	for start := 0; start < m; start += zRowsPerBatch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + zRowsPerBatch
		if end > m {
			end = m
		}
		batchVz, err := evaluateBatch(ctx, x, bg, z, start, end, f, pc, v0)
		if err != nil {
			return nil, err
		}
		for i := start; i < end; i++ {
			vz.SetRow(i, batchVz.RawRowView(i-start))
		}
	}
	return vz, nil
}

// evaluateBatch masks, predicts, and aggregates Z rows [zStart, zEnd).
func evaluateBatch(ctx context.Context, x Row, bg Background, z *mat.Dense, zStart, zEnd int, f PredictFunc, pc PredictionContext, v0 *mat.Dense) (*mat.Dense, error) {
	_, p := z.Dims()
	nBg := bg.NumRows()
	numZ := zEnd - zStart
	stackedRows := numZ * nBg

	var stacked MaskableTable
	if numTable, ok := bg.Table.(*NumericTable); ok && x.AllNumeric() {
		stacked = buildMaskedNumeric(x, numTable, z, zStart, zEnd)
	} else {
		stacked = buildMaskedGeneric(x, bg, z, zStart, zEnd)
	}

	preds, err := f(ctx, stacked, pc)
	if err != nil {
		return nil, fmt.Errorf("shap: prediction function: %w", err)
	}
	predRows, k := preds.Dims()
	if predRows != stackedRows {
		return nil, fmt.Errorf("%w: predictions have %d rows, want %d", ErrPredictionShapeMismatch, predRows, stackedRows)
	}
	if v0K := v0.RawRowView(0); len(v0K) != k {
		return nil, fmt.Errorf("%w: predictions have %d columns, want %d", ErrPredictionShapeMismatch, k, len(v0K))
	}

	return aggregateGroups(bg, preds, numZ, k), nil
}

// buildMaskedNumeric builds the numeric fast path: X' repeated m*n_bg
// times with background substituted where z=0, as a single *mat.Dense.
func buildMaskedNumeric(x Row, bg *NumericTable, z *mat.Dense, zStart, zEnd int) *NumericTable {
	p := len(x)
	nBg := bg.Rows()
	numZ := zEnd - zStart
	out := mat.NewDense(numZ*nBg, p, nil)
	xVals := x.Floats()
	for zi := zStart; zi < zEnd; zi++ {
		zRow := z.RawRowView(zi)
		for bgi := 0; bgi < nBg; bgi++ {
			outRow := (zi - zStart) * nBg
			for j := 0; j < p; j++ {
				if zRow[j] != 0 {
					out.Set(outRow+bgi, j, xVals[j])
				} else {
					out.Set(outRow+bgi, j, bg.Data.At(bgi, j))
				}
			}
		}
	}
	return &NumericTable{Data: out}
}

// buildMaskedGeneric is the heterogeneous, per-column substitution path.
// It must produce identical vz to buildMaskedNumeric for all-numeric data.
func buildMaskedGeneric(x Row, bg Background, z *mat.Dense, zStart, zEnd int) *GenericTable {
	p := len(x)
	nBg := bg.NumRows()
	numZ := zEnd - zStart
	rows := make([]Row, 0, numZ*nBg)
	for zi := zStart; zi < zEnd; zi++ {
		zRow := z.RawRowView(zi)
		for bgi := 0; bgi < nBg; bgi++ {
			row := make(Row, p)
			for j := 0; j < p; j++ {
				if zRow[j] != 0 {
					row[j] = x[j]
				} else {
					row[j] = bg.Table.At(bgi, j)
				}
			}
			rows = append(rows, row)
		}
	}
	return NewGenericTable(rows)
}

// aggregateGroups folds stacked predictions back to one row per Z row,
// weighting by background case weights when present. The grouping is
// stable: row order within a group is never reordered.
func aggregateGroups(bg Background, preds *mat.Dense, numZ, k int) *mat.Dense {
	nBg := bg.NumRows()
	vz := mat.NewDense(numZ, k, nil)

	if bg.Weights == nil {
		invN := 1 / float64(nBg)
		for zi := 0; zi < numZ; zi++ {
			for col := 0; col < k; col++ {
				var sum float64
				for bgi := 0; bgi < nBg; bgi++ {
					sum += preds.At(zi*nBg+bgi, col)
				}
				vz.Set(zi, col, sum*invN)
			}
		}
		return vz
	}

	var wSum float64
	for _, w := range bg.Weights {
		wSum += w
	}
	for zi := 0; zi < numZ; zi++ {
		for col := 0; col < k; col++ {
			var sum float64
			for bgi := 0; bgi < nBg; bgi++ {
				// w_bg cycles over the stacked rows; since each group has
				// exactly nBg rows in background order, cycling reduces
				// to indexing by bgi directly.
				sum += bg.Weights[bgi] * preds.At(zi*nBg+bgi, col)
			}
			vz.Set(zi, col, sum/wSum)
		}
	}
	return vz
}
