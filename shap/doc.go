// Package shap computes Kernel SHAP attributions for a single prediction
// instance against a black-box regression or classification model.
//
// Given a row of feature values, a background dataset, and a prediction
// function, ExplainOne returns a vector of per-feature contributions that
// sum to the difference between the model's prediction at the row and its
// expectation under the background. The hard part, and everything this
// package is concerned with, is the combinatorial sampling/hybrid solver:
// subset enumeration and weighting, the constrained weighted-least-squares
// formulation, and the iterative paired-sampling convergence loop.
//
// The package has no persistent state: every call to ExplainOne is
// independent and safe to run concurrently with others, provided each call
// either owns its own *Precomputed artifacts or shares them as read-only
// data (see Precompute).
package shap
