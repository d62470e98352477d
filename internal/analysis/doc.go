// Package analysis turns raw flight-controller telemetry into control-system
// diagnostics: a step-response estimate, a Welch power spectral density, a
// throttle-binned noise map and a short-time spectrogram.
//
// All four estimators share the same skeleton: normalize a time series onto a
// uniform grid, cut it into overlapping tapered frames, transform each frame,
// and recombine the per-frame results into an outlier-robust statistic. Each
// estimator is a pure function of its input slices and a config struct; calls
// share no state and may be dispatched concurrently, one per (axis, channel)
// pair.
//
// Structural failures (too little data, a degenerate sample clock) are
// reported as errors so callers can render "not enough data" instead of a
// wrong chart. Numerical edge cases inside the estimators are absorbed with
// small epsilons or explicit zero-fill and never surface as errors.
package analysis
