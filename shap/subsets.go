package shap

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ExactSizes returns the subset sizes enumerated exactly for hybrid degree
// d at p features: {1,...,d} union {p-d,...,p-1}, or the full range
// {1,...,p-1} once d >= floor(p/2) (fully exact).
func ExactSizes(p, d int) (sizes []int, fullyExact bool) {
	if d >= p/2 {
		sizes = make([]int, 0, p-1)
		for s := 1; s < p; s++ {
			sizes = append(sizes, s)
		}
		return sizes, true
	}
	sizes = make([]int, 0, 2*d)
	for s := 1; s <= d; s++ {
		sizes = append(sizes, s)
	}
	for s := p - d; s < p; s++ {
		sizes = append(sizes, s)
	}
	return sizes, false
}

// MidSizes returns the subset sizes left over for sampling once degree d
// is enumerated exactly: {d+1, ..., p-d-1}. Empty once fully exact.
func MidSizes(p, d int) []int {
	lo, hi := d+1, p-d-1
	if lo > hi {
		return nil
	}
	sizes := make([]int, 0, hi-lo+1)
	for s := lo; s <= hi; s++ {
		sizes = append(sizes, s)
	}
	return sizes
}

// combinationsOfSize returns every size-s subset of {0,...,p-1} as a
// sorted slice of feature indices.
func combinationsOfSize(p, s int) [][]int {
	if s == 0 {
		return [][]int{{}}
	}
	var out [][]int
	var rec func(start int, cur []int)
	rec = func(start int, cur []int) {
		if len(cur) == s {
			row := make([]int, s)
			copy(row, cur)
			out = append(out, row)
			return
		}
		for i := start; i <= p-(s-len(cur)); i++ {
			rec(i+1, append(cur, i))
		}
	}
	rec(0, nil)
	return out
}

func rowFromIndices(p int, indices []int) []float64 {
	row := make([]float64, p)
	for _, j := range indices {
		row[j] = 1
	}
	return row
}

// EnumerateExact builds the Z_exact matrix and its per-row weights for
// hybrid degree d. Each enumerated row of size s carries weight
// omega_full[s-1]/C(p,s), where omega_full is the kernel weight normalized
// over the FULL range {1,...,p-1} (not renormalized over just the
// enumerated sizes) -- the same formula applies whether the degree is
// fully exact or not, which is what makes the exact and sampled branches'
// weights combine to 1.
func EnumerateExact(p, d int, omegaFull []float64) (z *mat.Dense, w []float64, fullyExact bool) {
	sizes, fullyExact := ExactSizes(p, d)
	var rows [][]float64
	for _, s := range sizes {
		combos := combinationsOfSize(p, s)
		rowWeight := omegaFull[s-1] / float64(BinomialInt(p, s))
		for _, combo := range combos {
			rows = append(rows, rowFromIndices(p, combo))
			w = append(w, rowWeight)
		}
	}
	if len(rows) == 0 {
		return mat.NewDense(0, p, nil), w, fullyExact
	}
	z = mat.NewDense(len(rows), p, nil)
	for i, r := range rows {
		z.SetRow(i, r)
	}
	return z, w, fullyExact
}

// Sampler draws weighted random coalitions from the subset sizes left
// uncovered by exact enumeration.
type Sampler struct {
	p         int
	midSizes  []int
	omegaFull []float64
	rng       *rand.Rand
}

// NewSampler builds a Sampler over midSizes, the sizes not enumerated
// exactly, using the full-range kernel weights omegaFull (indexed
// omegaFull[s-1]).
func NewSampler(p int, midSizes []int, omegaFull []float64, rng *rand.Rand) *Sampler {
	return &Sampler{p: p, midSizes: midSizes, omegaFull: omegaFull, rng: rng}
}

// categorical draws an index into weights proportional to weights,
// assuming weights are non-negative and not all zero.
func categorical(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	target := rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if target < cum {
			return i
		}
	}
	return len(weights) - 1
}

// randomSubsetOfSize draws a uniformly random s-subset of {0,...,p-1}
// using a partial Fisher-Yates shuffle.
func randomSubsetOfSize(rng *rand.Rand, p, s int) []int {
	idx := make([]int, p)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < s; i++ {
		j := i + rng.Intn(p-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	chosen := make([]int, s)
	copy(chosen, idx[:s])
	return chosen
}

// Sample draws m rows (rounded up to even when paired) from the sampler's
// mid sizes. Returns the on-off matrix Z_sample and per-row weights
// w_sample such that, for every realized subset size s, the weights of the
// rows landing in that size sum to exactly omegaFull[s-1] (a
// Horvitz-Thompson-style estimator: unbiased over repeated calls, exact
// per realized batch for whichever sizes were actually drawn).
//
// When paired is true, each draw picks a "half size" h < p/2 (or h = p/2
// itself when p is even) with probability proportional to the combined
// mass omegaFull[h-1]+omegaFull[p-h-1] (or omegaFull[h-1] alone when
// h == p-h), draws one subset z of size h, and emits both z and its
// complement. This guarantees z*z^T + not(z)*not(z)^T appears together in
// A_sample with a shared per-pair draw.
func (smp *Sampler) Sample(m int, paired bool) (z *mat.Dense, w []float64) {
	if len(smp.midSizes) == 0 {
		return mat.NewDense(0, smp.p, nil), nil
	}
	var rows [][]float64
	var sizes []int

	if paired {
		if m%2 != 0 {
			m++
		}
		numPairs := m / 2
		halfSizes, halfMass := smp.pairedHalves()
		for i := 0; i < numPairs; i++ {
			hi := categorical(smp.rng, halfMass)
			h := halfSizes[hi]
			combo := randomSubsetOfSize(smp.rng, smp.p, h)
			row := rowFromIndices(smp.p, combo)
			rows = append(rows, row)
			sizes = append(sizes, h)

			compRow := make([]float64, smp.p)
			for j, v := range row {
				compRow[j] = 1 - v
			}
			rows = append(rows, compRow)
			sizes = append(sizes, smp.p-h)
		}
	} else {
		midMass := make([]float64, len(smp.midSizes))
		for i, s := range smp.midSizes {
			midMass[i] = smp.omegaFull[s-1]
		}
		for i := 0; i < m; i++ {
			si := categorical(smp.rng, midMass)
			s := smp.midSizes[si]
			combo := randomSubsetOfSize(smp.rng, smp.p, s)
			rows = append(rows, rowFromIndices(smp.p, combo))
			sizes = append(sizes, s)
		}
	}

	counts := make(map[int]int, len(rows))
	for _, s := range sizes {
		counts[s]++
	}

	z = mat.NewDense(len(rows), smp.p, nil)
	w = make([]float64, len(rows))
	for i, r := range rows {
		z.SetRow(i, r)
		s := sizes[i]
		w[i] = smp.omegaFull[s-1] / float64(counts[s])
	}
	return z, w
}

// pairedHalves returns the "half sizes" (sizes < p/2, plus p/2 itself when
// p is even and present in midSizes) and their combined pair mass.
func (smp *Sampler) pairedHalves() (halves []int, mass []float64) {
	inMid := make(map[int]bool, len(smp.midSizes))
	for _, s := range smp.midSizes {
		inMid[s] = true
	}
	seen := make(map[int]bool)
	for _, s := range smp.midSizes {
		comp := smp.p - s
		half := s
		if comp < half {
			half = comp
		}
		if seen[half] {
			continue
		}
		seen[half] = true
		var m float64
		if half == comp && half == s {
			// self-paired size p/2
			m = smp.omegaFull[half-1]
		} else {
			if inMid[s] {
				m += smp.omegaFull[s-1]
			}
			if inMid[comp] {
				m += smp.omegaFull[comp-1]
			}
		}
		halves = append(halves, half)
		mass = append(mass, m)
	}
	return halves, mass
}
