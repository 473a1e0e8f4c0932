package shap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinomialInt(t *testing.T) {
	cases := []struct {
		n, k int
		want int64
	}{
		{4, 0, 1},
		{4, 4, 1},
		{4, 1, 4},
		{4, 2, 6},
		{4, 3, 4},
		{30, 2, 435},
		{30, 29, 30},
		{5, 6, 0},
		{5, -1, 0},
	}
	for _, c := range cases {
		got := BinomialInt(c.n, c.k)
		assert.Equalf(t, c.want, got, "C(%d,%d)", c.n, c.k)
	}
}

func TestFullKernelWeights_SumsToOne(t *testing.T) {
	for p := 2; p <= 8; p++ {
		w := FullKernelWeights(p)
		require.Len(t, w, p-1)
		var sum float64
		for _, v := range w {
			assert.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		assert.InDeltaf(t, 1.0, sum, 1e-9, "p=%d", p)
	}
}

func TestFullKernelWeights_P1Empty(t *testing.T) {
	assert.Empty(t, FullKernelWeights(1))
}

func TestKernelWeights_Symmetric(t *testing.T) {
	// omega_s must equal omega_{p-s}: both (p-1)/(C(p,s)*s*(p-s)) are
	// invariant under s -> p-s since C(p,s) = C(p,p-s).
	p := 6
	w := FullKernelWeights(p)
	for s := 1; s < p; s++ {
		assert.InDelta(t, w[s-1], w[p-s-1], 1e-12)
	}
}

func TestKernelWeights_P4MatchesHandComputation(t *testing.T) {
	// p=4: sizes 1,2,3 with raw weights proportional to 3/(C(4,s)*s*(4-s)).
	// C(4,1)=4, C(4,2)=6, C(4,3)=4.
	// raw1 = 3/(4*1*3) = 0.25, raw2 = 3/(6*2*2) = 0.125, raw3 = 0.25
	// sum = 0.625 -> omega = [0.4, 0.2, 0.4]
	w := FullKernelWeights(4)
	require.Len(t, w, 3)
	assert.InDelta(t, 0.4, w[0], 1e-9)
	assert.InDelta(t, 0.2, w[1], 1e-9)
	assert.InDelta(t, 0.4, w[2], 1e-9)
}

func TestLogBinomial_MatchesExactForModerateN(t *testing.T) {
	for n := 2; n <= 20; n++ {
		for k := 1; k < n; k++ {
			want := math.Log(float64(BinomialInt(n, k)))
			got := logBinomial(n, k)
			assert.InDeltaf(t, want, got, 1e-6, "n=%d k=%d", n, k)
		}
	}
}
