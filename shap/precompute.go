package shap

import "gonum.org/v1/gonum/mat"

// Precomputed holds the layer-independent structures the driver needs on
// every ExplainOne call for a given (p, degree): the exact layer's
// contribution to A, its enumerated Z/weights, and the full-range kernel
// weights used by both the exact enumerator and the sampler. It carries
// no row- or call-specific state and is safe to share read-only across
// concurrent ExplainOne calls.
type Precomputed struct {
	P          int
	Degree     int
	FullyExact bool
	OmegaFull  []float64 // indexed OmegaFull[s-1] for s in {1,...,p-1}
	MidSizes   []int
	ZExact     *mat.Dense // m_ex x p
	WExact     []float64  // length m_ex
	AExact     *mat.Dense // p x p
}

// Precompute builds the Precomputed artifacts for explaining a row with p
// features and hybrid degree d. It does not depend on the row x, the
// prediction function, or any particular background weighting beyond p,
// so one Precomputed value may be reused across many ExplainOne calls that
// share p and d.
func Precompute(p, degree int) *Precomputed {
	omegaFull := FullKernelWeights(p)
	zExact, wExact, fullyExact := EnumerateExact(p, degree, omegaFull)

	aExact := mat.NewDense(p, p, nil)
	m, _ := zExact.Dims()
	for i := 0; i < m; i++ {
		row := zExact.RowView(i)
		var outer mat.Dense
		outer.Outer(wExact[i], row, row)
		aExact.Add(aExact, &outer)
	}

	return &Precomputed{
		P:          p,
		Degree:     degree,
		FullyExact: fullyExact,
		OmegaFull:  omegaFull,
		MidSizes:   MidSizes(p, degree),
		ZExact:     zExact,
		WExact:     wExact,
		AExact:     aExact,
	}
}
