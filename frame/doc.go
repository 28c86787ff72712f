// Package frame provides the time-domain framing stages of the noise
// reduction pipeline: frame geometry, analysis windows, the residual input
// buffer and the overlap-add reconstructor.
//
// # Geometry
//
// All sizes derive from the stream sample rate:
//
//	Slen = floor(0.02 * Sr), rounded up to even
//	len1 = Slen * 50 / 100      (overlap)
//	len2 = Slen - len1          (hop)
//	nFFT = 2 * Slen
//
// Each analysis frame spans Slen samples and consecutive frames start len2
// samples apart, so frames overlap by 50%.
//
// # Windows
//
// Streams at or below 24 kHz are treated as audio and use a Hann window
// scaled so that its samples sum to len2; faster streams are treated as wide
// IF and use a rectangular window.
//
// # Buffering
//
// Buffer concatenates the unconsumed tail of the previous call with the new
// input and reports how many complete hops are available:
//
//	frames = floor(N/len2) - floor(Slen/len2)
//
// OverlapAdd sums the first len1 samples of each inverse-transformed frame
// with the tail kept from the previous frame.
//
// None of the types in this package are safe for concurrent use.
package frame
