package cmd

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/inference-sim/kernelshap/shap"
)

// LinearModel is the toy demo predictor wired up by the explain command: a
// plain weighted sum plus intercept, read through the MaskableTable
// interface so it exercises the same code path a real black-box model
// would. The engine never inspects the model, only calls it.
type LinearModel struct {
	Intercept float64
	Weights   []float64
}

// Predict implements shap.PredictFunc.
func (m LinearModel) Predict(_ context.Context, x shap.MaskableTable, _ shap.PredictionContext) (*mat.Dense, error) {
	rows, cols := x.Rows(), x.Cols()
	if cols != len(m.Weights) {
		return nil, fmt.Errorf("model: row has %d features, want %d", cols, len(m.Weights))
	}
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sum := m.Intercept
		for j := 0; j < cols; j++ {
			sum += m.Weights[j] * x.At(i, j).Num
		}
		out.Set(i, 0, sum)
	}
	return out, nil
}
