package shap

import "math"

// BinomialInt computes C(n,k) exactly as an int64 via the standard
// iterative multiplicative identity (each partial product is itself a
// binomial coefficient, so the division is always exact). Valid for the
// moderate n this package handles; KernelWeights uses log-binomial
// instead for the overflow-prone case.
func BinomialInt(n, k int) int64 {
	if k < 0 || k > n {
		return 0
	}
	if k == 0 || k == n {
		return 1
	}
	if k > n-k {
		k = n - k
	}
	var result int64 = 1
	for i := 0; i < k; i++ {
		result = result * int64(n-i) / int64(i+1)
	}
	return result
}

// logBinomial returns log(C(n,k)) via log-gamma, avoiding the overflow
// BinomialInt would hit for large n.
func logBinomial(n, k int) float64 {
	lg := func(x int) float64 {
		v, _ := math.Lgamma(float64(x + 1))
		return v
	}
	return lg(n) - lg(k) - lg(n-k)
}

// KernelWeights computes the normalized Kernel SHAP weight omega_s for
// each subset size s in sizes, given p total features:
//
//	omega'_s = (p-1) / (C(p,s) * s * (p-s))
//	omega_s  = omega'_s / sum(omega'_s over sizes)
//
// sizes must be a subset of {1, ..., p-1}; p=1 has no valid sizes and
// KernelWeights(1, ...) returns an empty slice.
func KernelWeights(p int, sizes []int) []float64 {
	raw := make([]float64, len(sizes))
	if p <= 1 {
		return raw[:0]
	}
	for i, s := range sizes {
		logC := logBinomial(p, s)
		logW := math.Log(float64(p-1)) - logC - math.Log(float64(s)) - math.Log(float64(p-s))
		raw[i] = math.Exp(logW)
	}
	var sum float64
	for _, w := range raw {
		sum += w
	}
	if sum == 0 {
		return raw
	}
	for i := range raw {
		raw[i] /= sum
	}
	return raw
}

// FullKernelWeights returns omega_s for every size s in {1, ..., p-1},
// indexed as result[s-1]. This is the full-range normalization both the
// exact enumerator and the sampler read per-size mass from, which is what
// keeps exact-branch and sampled-branch weights summing to 1 in hybrid
// mode.
func FullKernelWeights(p int) []float64 {
	if p <= 1 {
		return nil
	}
	sizes := make([]int, p-1)
	for s := 1; s < p; s++ {
		sizes[s-1] = s
	}
	return KernelWeights(p, sizes)
}
