package shap

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FeatureValue holds one feature's value, preserving whether it is numeric
// or categorical so heterogeneous rows survive intact into the prediction
// function (spec: "heterogeneous types allowed ... preserved intact").
type FeatureValue struct {
	Num   float64
	Cat   string
	IsCat bool
}

// Num wraps a numeric feature value.
func Num(v float64) FeatureValue { return FeatureValue{Num: v} }

// Cat wraps a categorical feature value.
func Cat(v string) FeatureValue { return FeatureValue{Cat: v, IsCat: true} }

// Row is a single instance's feature vector, length p.
type Row []FeatureValue

// NumericRow builds a Row from a plain []float64, the common all-numeric
// case.
func NumericRow(values []float64) Row {
	row := make(Row, len(values))
	for i, v := range values {
		row[i] = Num(v)
	}
	return row
}

// AllNumeric reports whether every feature in the row is numeric, which
// gates the NumericTable fast path through the masker.
func (r Row) AllNumeric() bool {
	for _, v := range r {
		if v.IsCat {
			return false
		}
	}
	return true
}

// Floats returns the row as a []float64. Categorical entries contribute
// their Num field (zero unless set), so callers check AllNumeric first.
func (r Row) Floats() []float64 {
	out := make([]float64, len(r))
	for i, v := range r {
		out[i] = v.Num
	}
	return out
}

// MaskableTable is the polymorphic capability that replaces a hand-rolled
// matrix-vs-table branch at the masking step: a homogeneous numeric fast
// path and a heterogeneous column-wise path that must produce identical vz
// for equivalent data.
type MaskableTable interface {
	Rows() int
	Cols() int
	At(i, j int) FeatureValue
}

// NumericTable is the homogeneous, column-aligned fast path backed by a
// gonum matrix.
type NumericTable struct {
	Data *mat.Dense
}

// NewNumericTable wraps a *mat.Dense as a MaskableTable.
func NewNumericTable(data *mat.Dense) *NumericTable {
	return &NumericTable{Data: data}
}

func (t *NumericTable) Rows() int { r, _ := t.Data.Dims(); return r }
func (t *NumericTable) Cols() int { _, c := t.Data.Dims(); return c }
func (t *NumericTable) At(i, j int) FeatureValue {
	return Num(t.Data.At(i, j))
}

// GenericTable is the heterogeneous, per-column substitution path.
type GenericTable struct {
	Data []Row // Data[i] is row i
	cols int
}

// NewGenericTable wraps rows of FeatureValue as a MaskableTable. All rows
// must have the same length.
func NewGenericTable(rows []Row) *GenericTable {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	return &GenericTable{Data: rows, cols: cols}
}

func (t *GenericTable) Rows() int { return len(t.Data) }
func (t *GenericTable) Cols() int { return t.cols }
func (t *GenericTable) At(i, j int) FeatureValue {
	return t.Data[i][j]
}

// Background is the read-only tabular structure the masker substitutes
// values from. Weights is optional; nil implies uniform weighting over
// Table's rows.
type Background struct {
	Table   MaskableTable
	Weights []float64
}

// NumRows returns the background's row count (n_bg).
func (b Background) NumRows() int { return b.Table.Rows() }

// NumFeatures returns the background's column count (p).
func (b Background) NumFeatures() int { return b.Table.Cols() }

// PredictionContext carries opaque, keyword-forwarded configuration into
// the prediction function. The core never interprets it.
type PredictionContext map[string]any

// PredictFunc is the black-box model the engine explains. X has the same
// column schema as the explained row and the background; the returned
// matrix has shape (X.Rows(), K). The engine assumes f is deterministic:
// the same input rows always yield the same predictions. Reproducibility
// of a Result for a given Seed holds only under that assumption; the
// engine does not check it.
type PredictFunc func(ctx context.Context, x MaskableTable, pc PredictionContext) (*mat.Dense, error)

// Strategy records which branch of the driver produced a Result.
type Strategy int

const (
	StrategyExact Strategy = iota
	StrategyHybrid
	StrategySampling
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyHybrid:
		return "hybrid"
	case StrategySampling:
		return "sampling"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ExplainOptions configures a single ExplainOne call. All tunables are
// passed in; the package keeps no global state.
type ExplainOptions struct {
	// Exact forces exhaustive enumeration regardless of p or HybridDegree.
	Exact bool
	// HybridDegree (d) is the inclusive count of smallest/largest subset
	// sizes enumerated exactly; the remainder is sampled.
	HybridDegree int
	// M is the number of sampled rows per iteration. Must be >= 2, and is
	// rounded up to an even number when Paired is set.
	M int
	// Paired enables antithetic (z, not-z) pair sampling.
	Paired bool
	// Tol is the relative-standard-error convergence tolerance.
	Tol float64
	// MaxIter bounds the number of sampling iterations.
	MaxIter int
	// Seed drives the per-call deterministic random source (see rng.go).
	Seed int64
	// BatchBudget bounds how many masked rows are streamed through the
	// predictor at once; m*n_bg rows can otherwise get large. Zero or a
	// negative value selects the default budget of 1<<16 rows.
	BatchBudget int
	// PredictionCtx is forwarded verbatim to PredictFunc.
	PredictionCtx PredictionContext
}

// DeltaStability floors the denominator of the convergence criterion to
// avoid dividing by a near-zero beta magnitude.
const DeltaStability = 1e-8

// Result is what ExplainOne returns.
type Result struct {
	Beta      *mat.Dense // p x K, sums to v1-v0 per column
	Sigma     *mat.Dense // p x K, per-entry standard error (0 for exact)
	NIter     int
	Converged bool
	Strategy  Strategy
}
