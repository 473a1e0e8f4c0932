package shap

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardError computes the per-entry standard error of the mean
// estimator beta_bar = (1/n) sum(history) from the per-iteration estimates
// in history (each p x K):
//
//	sigma_jk = sqrt( (1/(n*(n-1))) * sum_i (beta_i[j,k] - beta_bar[j,k])^2 )
//
// which is stat.Variance(ddof=1)/n under the hood: gonum's MeanVariance
// already divides by n-1, so dividing its variance by n gives exactly the
// spec's formula. The first iteration (n=1) cannot evaluate this; sigma is
// returned as all-zero and callers must not treat that as convergence.
func StandardError(history []*mat.Dense) (mean, sigma *mat.Dense) {
	n := len(history)
	p, k := history[0].Dims()
	mean = mat.NewDense(p, k, nil)
	sigma = mat.NewDense(p, k, nil)
	if n == 0 {
		return mean, sigma
	}

	values := make([]float64, n)
	for j := 0; j < p; j++ {
		for col := 0; col < k; col++ {
			for i, h := range history {
				values[i] = h.At(j, col)
			}
			m, v := stat.MeanVariance(values, nil)
			mean.Set(j, col, m)
			if n >= 2 {
				sigma.Set(j, col, math.Sqrt(v/float64(n)))
			}
		}
	}
	return mean, sigma
}

// ConvergenceCriterion reports the maximum, over all (j,k) entries, of the
// relative standard error |sigma[j,k]| / (|beta[j,k]| + delta), where delta
// floors the denominator against near-zero beta magnitude.
func ConvergenceCriterion(sigma, beta *mat.Dense, delta float64) float64 {
	p, k := sigma.Dims()
	var maxRatio float64
	for j := 0; j < p; j++ {
		for col := 0; col < k; col++ {
			denom := math.Abs(beta.At(j, col)) + delta
			ratio := math.Abs(sigma.At(j, col)) / denom
			if ratio > maxRatio {
				maxRatio = ratio
			}
		}
	}
	return maxRatio
}
