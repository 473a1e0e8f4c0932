package shap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestExactSizes_Hybrid(t *testing.T) {
	sizes, fullyExact := ExactSizes(10, 2)
	assert.False(t, fullyExact)
	assert.ElementsMatch(t, []int{1, 2, 8, 9}, sizes)
}

func TestExactSizes_FullyExactWhenDegreeCoversHalf(t *testing.T) {
	sizes, fullyExact := ExactSizes(4, 2)
	assert.True(t, fullyExact)
	assert.ElementsMatch(t, []int{1, 2, 3}, sizes)
}

func TestExactSizes_P1AlwaysFullyExact(t *testing.T) {
	_, fullyExact := ExactSizes(1, 0)
	assert.True(t, fullyExact)
}

func TestMidSizes_Complement(t *testing.T) {
	mid := MidSizes(10, 2)
	assert.ElementsMatch(t, []int{3, 4, 5, 6, 7}, mid)
}

func TestMidSizes_EmptyWhenFullyExact(t *testing.T) {
	assert.Empty(t, MidSizes(4, 2))
}

func TestCombinationsOfSize_Count(t *testing.T) {
	for _, tc := range []struct{ p, s int }{{5, 2}, {6, 3}, {4, 1}} {
		combos := combinationsOfSize(tc.p, tc.s)
		assert.Equalf(t, int(BinomialInt(tc.p, tc.s)), len(combos), "p=%d s=%d", tc.p, tc.s)
		seen := map[string]bool{}
		for _, c := range combos {
			require.Len(t, c, tc.s)
			key := ""
			for _, idx := range c {
				key += string(rune('a' + idx))
			}
			assert.False(t, seen[key], "duplicate combination %v", c)
			seen[key] = true
		}
	}
}

func TestEnumerateExact_WeightsSumToOmega(t *testing.T) {
	p := 6
	d := 1
	omega := FullKernelWeights(p)
	z, w, fullyExact := EnumerateExact(p, d, omega)
	assert.False(t, fullyExact)
	rows, cols := z.Dims()
	assert.Equal(t, len(w), rows)
	assert.Equal(t, p, cols)

	// sizes enumerated are {1, 5}; their combined omega mass must equal
	// the sum of all row weights exactly.
	var total float64
	for _, wi := range w {
		total += wi
	}
	want := omega[0] + omega[p-2] // s=1 and s=5 (index p-1-1=4 -> omega[4])
	assert.InDelta(t, want, total, 1e-9)
}

func TestEnumerateExact_FullyExactCoversEverySubset(t *testing.T) {
	p := 4
	omega := FullKernelWeights(p)
	z, w, fullyExact := EnumerateExact(p, p, omega)
	require.True(t, fullyExact)
	rows, _ := z.Dims()
	assert.Equal(t, (1<<p)-2, rows)
	var total float64
	for _, wi := range w {
		total += wi
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestSampler_Sample_WeightsSumPerSizeExactly(t *testing.T) {
	p := 8
	d := 1
	omega := FullKernelWeights(p)
	mid := MidSizes(p, d)
	rng := rand.New(rand.NewSource(42))
	s := NewSampler(p, mid, omega, rng)

	z, w := s.Sample(200, false)
	rows, cols := z.Dims()
	require.Equal(t, p, cols)
	require.Equal(t, len(w), rows)

	bySize := map[int]float64{}
	counts := map[int]int{}
	for i := 0; i < rows; i++ {
		size := 0
		for j := 0; j < cols; j++ {
			if z.At(i, j) != 0 {
				size++
			}
		}
		bySize[size] += w[i]
		counts[size]++
	}
	for size, total := range bySize {
		assert.InDeltaf(t, omega[size-1], total, 1e-9, "size=%d count=%d", size, counts[size])
	}
}

func TestSampler_Sample_Paired_EvenAndComplementary(t *testing.T) {
	p := 6
	d := 1
	omega := FullKernelWeights(p)
	mid := MidSizes(p, d)
	rng := rand.New(rand.NewSource(7))
	s := NewSampler(p, mid, omega, rng)

	z, w := s.Sample(9, true) // odd m rounds up to 10
	rows, cols := z.Dims()
	require.Equal(t, 10, rows)
	require.Equal(t, len(w), rows)

	for i := 0; i < rows; i += 2 {
		for j := 0; j < cols; j++ {
			a := z.At(i, j)
			b := z.At(i+1, j)
			assert.Equalf(t, 1.0, a+b, "row %d,%d not complementary at col %d", i, i+1, j)
		}
	}
}

func TestSampler_Determinism(t *testing.T) {
	p := 10
	d := 2
	omega := FullKernelWeights(p)
	mid := MidSizes(p, d)

	run := func(seed int64) *sampledResult {
		rng := rand.New(rand.NewSource(seed))
		s := NewSampler(p, mid, omega, rng)
		z, w := s.Sample(20, true)
		return &sampledResult{z: z, w: w}
	}

	a := run(123)
	b := run(123)
	rows, cols := a.z.Dims()
	for i := 0; i < rows; i++ {
		assert.InDelta(t, a.w[i], b.w[i], 0)
		for j := 0; j < cols; j++ {
			assert.Equal(t, a.z.At(i, j), b.z.At(i, j))
		}
	}
}

type sampledResult struct {
	z *mat.Dense
	w []float64
}
