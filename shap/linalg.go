package shap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultPinvTol returns the default singular-value cutoff fraction,
// sqrt(machine epsilon).
func DefaultPinvTol() float64 {
	return math.Sqrt(2.220446049250313e-16)
}

// Pinv computes the Moore-Penrose pseudoinverse of a via its singular
// value decomposition. Singular values sigma_i are kept when
// sigma_i > max(tol*sigma_max, 0); tol <= 0 selects DefaultPinvTol. If no
// singular value passes the threshold, Pinv returns the zero matrix of a's
// transposed shape.
func Pinv(a *mat.Dense, tol float64) *mat.Dense {
	m, n := a.Dims()

	var svd mat.SVD
	ok := svd.Factorize(a, mat.SVDFull)
	if !ok {
		return mat.NewDense(n, m, nil)
	}

	values := svd.Values(nil)
	if tol <= 0 {
		tol = DefaultPinvTol()
	}
	var sigmaMax float64
	if len(values) > 0 {
		sigmaMax = values[0]
	}
	thresh := tol * sigmaMax

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	result := mat.NewDense(n, m, nil)
	kept := false
	for i, sigma := range values {
		if sigma <= thresh || sigma <= 0 {
			continue
		}
		kept = true
		ui := u.ColView(i)
		vi := v.ColView(i)
		var outer mat.Dense
		outer.Outer(1/sigma, vi, ui)
		result.Add(result, &outer)
	}
	if !kept {
		return mat.NewDense(n, m, nil)
	}
	return result
}

// SolveConstrained returns beta = Apinv*(b - s*ones_p), where s is chosen
// per output column k so that ones^T*beta[:,k] = c[k]:
//
//	s_k = (ones^T Apinv b[:,k] - c_k) / (ones^T Apinv ones)
//
// When the denominator ones^T Apinv ones is effectively zero (A carries no
// weighting signal at all, as happens for p=1 or a fully-degenerate A),
// SolveConstrained falls back to the minimum-norm solution of the bare
// equality constraint: an equal split of c across all p features. This is
// the limit of the closed form as A -> 0 and is what keeps p=1 from
// dividing by zero. Outside that fallback, if the resulting beta still
// comes out non-finite, SolveConstrained reports ErrSingularSystem rather
// than returning NaN/Inf silently.
func SolveConstrained(a, b *mat.Dense, c []float64, tol float64) (*mat.Dense, error) {
	p, p2 := a.Dims()
	if p != p2 {
		return nil, fmt.Errorf("%w: A must be square, got %dx%d", ErrInvalidShape, p, p2)
	}
	bRows, k := b.Dims()
	if bRows != p {
		return nil, fmt.Errorf("%w: b has %d rows, want %d", ErrInvalidShape, bRows, p)
	}
	if len(c) != k {
		return nil, fmt.Errorf("%w: c has %d entries, want %d", ErrInvalidShape, len(c), k)
	}

	ap := Pinv(a, tol)

	ones := make([]float64, p)
	for i := range ones {
		ones[i] = 1
	}
	onesVec := mat.NewVecDense(p, ones)

	// t = Apinv^T * ones, so that ones^T*Apinv == t^T.
	var t mat.VecDense
	t.MulVec(ap.T(), onesVec)

	denom := mat.Dot(&t, onesVec)

	beta := mat.NewDense(p, k, nil)
	if math.Abs(denom) < 1e-12 {
		for j := 0; j < p; j++ {
			for col := 0; col < k; col++ {
				beta.Set(j, col, c[col]/float64(p))
			}
		}
		return beta, nil
	}

	s := make([]float64, k)
	for col := 0; col < k; col++ {
		var numer float64
		for j := 0; j < p; j++ {
			numer += t.AtVec(j) * b.At(j, col)
		}
		s[col] = (numer - c[col]) / denom
	}

	d := mat.NewDense(p, k, nil)
	for j := 0; j < p; j++ {
		for col := 0; col < k; col++ {
			d.Set(j, col, b.At(j, col)-s[col])
		}
	}
	beta.Mul(ap, d)
	for j := 0; j < p; j++ {
		for col := 0; col < k; col++ {
			if v := beta.At(j, col); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: beta[%d,%d] is non-finite", ErrSingularSystem, j, col)
			}
		}
	}
	return beta, nil
}
