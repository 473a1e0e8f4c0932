package shap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// linearPredict sums x[j]*coeffs[j] row-wise, reading through the
// MaskableTable interface so it exercises both the numeric and generic
// paths identically.
func linearPredict(coeffs []float64) PredictFunc {
	return func(_ context.Context, x MaskableTable, _ PredictionContext) (*mat.Dense, error) {
		rows := x.Rows()
		out := mat.NewDense(rows, 1, nil)
		for i := 0; i < rows; i++ {
			var sum float64
			for j, c := range coeffs {
				sum += c * x.At(i, j).Num
			}
			out.Set(i, 0, sum)
		}
		return out, nil
	}
}

func identityBackground(p int) Background {
	data := make([]float64, p*p)
	for i := 0; i < p; i++ {
		data[i*p+i] = 1
	}
	return Background{Table: NewNumericTable(mat.NewDense(p, p, data))}
}

func TestEvaluate_MaskingSemantics(t *testing.T) {
	// p=2 background = [[1,0],[0,1]] (identity rows), x=[10,20], z=[1,0]
	// (keep feature 0 from x, replace feature 1 from background).
	bg := identityBackground(2)
	x := NumericRow([]float64{10, 20})
	z := mat.NewDense(1, 2, []float64{1, 0})
	f := linearPredict([]float64{1, 1})
	v0 := mat.NewDense(1, 1, []float64{0})

	vz, err := Evaluate(context.Background(), x, bg, z, f, nil, v0, 0)
	require.NoError(t, err)
	// masked rows: bg row0 -> [10,0] sum=10 ; bg row1 -> [10,1] sum=11
	// average = 10.5
	assert.InDelta(t, 10.5, vz.At(0, 0), 1e-9)
}

func TestEvaluate_NumericAndGenericAgree(t *testing.T) {
	p := 4
	bg := identityBackground(p)
	genericRows := make([]Row, p)
	for i := 0; i < p; i++ {
		row := make(Row, p)
		for j := 0; j < p; j++ {
			row[j] = Num(bg.Table.At(i, j).Num)
		}
		genericRows[i] = row
	}
	genericBg := Background{Table: NewGenericTable(genericRows)}

	x := NumericRow([]float64{1, 2, 3, 4})
	z := mat.NewDense(1, p, []float64{1, 0, 1, 0})
	f := linearPredict([]float64{0.1, 0.2, 0.3, 0.4})
	v0 := mat.NewDense(1, 1, []float64{0})

	vzNumeric, err := Evaluate(context.Background(), x, bg, z, f, nil, v0, 0)
	require.NoError(t, err)
	vzGeneric, err := Evaluate(context.Background(), x, genericBg, z, f, nil, v0, 0)
	require.NoError(t, err)
	assert.InDelta(t, vzNumeric.At(0, 0), vzGeneric.At(0, 0), 1e-9)
}

func TestEvaluate_BatchingMatchesUnbatched(t *testing.T) {
	p := 4
	bg := identityBackground(p)
	x := NumericRow([]float64{1, 2, 3, 4})
	omega := FullKernelWeights(p)
	z, _, _ := EnumerateExact(p, p, omega) // all 2^p-2 rows
	f := linearPredict([]float64{0.1, 0.2, 0.3, 0.4})
	v0 := mat.NewDense(1, 1, []float64{0})

	full, err := Evaluate(context.Background(), x, bg, z, f, nil, v0, 0)
	require.NoError(t, err)
	batched, err := Evaluate(context.Background(), x, bg, z, f, nil, v0, p) // tiny budget forces batching
	require.NoError(t, err)

	rows, _ := z.Dims()
	for i := 0; i < rows; i++ {
		assert.InDeltaf(t, full.At(i, 0), batched.At(i, 0), 1e-9, "row %d", i)
	}
}

func TestEvaluate_WeightedBackground(t *testing.T) {
	p := 2
	bg := identityBackground(p)
	bg.Weights = []float64{3, 1}
	x := NumericRow([]float64{10, 20})
	z := mat.NewDense(1, 2, []float64{1, 0})
	f := linearPredict([]float64{1, 1})
	v0 := mat.NewDense(1, 1, []float64{0})

	vz, err := Evaluate(context.Background(), x, bg, z, f, nil, v0, 0)
	require.NoError(t, err)
	// masked rows: [10,0] sum=10 weight 3; [10,1] sum=11 weight 1
	want := (3*10.0 + 1*11.0) / 4.0
	assert.InDelta(t, want, vz.At(0, 0), 1e-9)
}

func TestEvaluate_PredictionShapeMismatch(t *testing.T) {
	bg := identityBackground(2)
	x := NumericRow([]float64{1, 2})
	z := mat.NewDense(1, 2, []float64{1, 0})
	bad := func(_ context.Context, x MaskableTable, _ PredictionContext) (*mat.Dense, error) {
		return mat.NewDense(x.Rows()-1, 1, nil), nil
	}
	v0 := mat.NewDense(1, 1, []float64{0})
	_, err := Evaluate(context.Background(), x, bg, z, bad, nil, v0, 0)
	assert.ErrorIs(t, err, ErrPredictionShapeMismatch)
}
