// Package estimator tracks the noise statistics that drive the LogMMSE gain.
//
// History keeps a sliding window of per-frame magnitude spectra together
// with the squared deviation of each frame from the running mean, and keeps
// both sums current in O(nFFT) per pushed frame.
//
// Floor derives the per-bin noise power (noise_mu2) from the history. It
// has two regimes:
//
//   - Audio (nFFT < 1200): every frame the squared mean of the last 12
//     frames, smoothed over 6 bins, is offered as a candidate floor. It
//     replaces the current floor only if min+max of the candidate is strictly
//     lower than the recorded levels, so the floor only ever moves down.
//   - Wide IF (nFFT >= 1200): bins whose magnitude deviation is within the
//     quietest 10% are measured directly; the rest, including the centre of
//     the transform where the band edges land, are linearly interpolated.
//
// The floor is never left with zero or negative entries: degenerate
// candidates are rejected and the previous floor kept.
package estimator
