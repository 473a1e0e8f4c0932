package shap

import "errors"

// Sentinel error kinds. ErrInvalidShape through ErrSingularSystem are fatal
// and abort the explanation; ErrNonConverged is informational and is
// returned alongside a valid Result with Converged set to false, never on
// its own.
var (
	// ErrInvalidShape reports a malformed row, background, or Z matrix:
	// x not 1xp, Z not mxp, or background columns misaligned with x.
	ErrInvalidShape = errors.New("shap: invalid shape")

	// ErrInvalidPredictionKind reports that the prediction function
	// returned a non-numeric result. PredictFunc is typed to return a
	// *mat.Dense, so this package can never construct one of these
	// itself; the sentinel is kept for API parity with the source design
	// (spec.md §7) and for callers who wrap a non-Go prediction backend
	// (e.g. a subprocess or FFI boundary) behind their own PredictFunc and
	// want a single error kind to report a decode failure through.
	ErrInvalidPredictionKind = errors.New("shap: prediction function returned non-numeric output")

	// ErrPredictionShapeMismatch reports that the prediction function's
	// output row or column count did not match the expected shape.
	ErrPredictionShapeMismatch = errors.New("shap: prediction output shape mismatch")

	// ErrSingularSystem reports that SolveConstrained produced a non-finite
	// beta despite Pinv's own thresholding: A_temp had rank < p-1 in a way
	// that was not the expected, gracefully-handled fully-degenerate case
	// (p=1, or A the zero matrix, both caught by SolveConstrained's
	// equal-split fallback when the constraint denominator is near zero).
	// Reaching this path signals a bug in how A/weights were assembled
	// upstream, not a property of a merely rank-deficient input (compare
	// the rank-1 "Z rows all equal" case in spec.md §8, which the
	// pseudoinverse handles without hitting this at all).
	ErrSingularSystem = errors.New("shap: singular system in solver")

	// ErrNonConverged reports that max_iter was reached without
	// satisfying the convergence tolerance. Not fatal.
	ErrNonConverged = errors.New("shap: max_iter reached without convergence")
)
