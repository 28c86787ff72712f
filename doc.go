// Package logmmse implements streaming LogMMSE spectral noise reduction for
// complex baseband (I/Q) and real audio streams.
//
// A Session frames the input with 50% overlap, transforms each frame, scales
// every bin by the Ephraim–Malah log-spectral amplitude gain and rebuilds
// the stream by overlap-add. The noise power per bin is bootstrapped from a
// known-noisy segment and then refined continuously from a history of
// recent spectra.
//
// # Getting Started
//
//	opts := logmmse.NewOptions(48000, 8000)
//	s, err := logmmse.New(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	// 6 frames of noise-only input
//	if err := s.Sample(noise, 6); err != nil {
//	    log.Fatal(err)
//	}
//
//	for block := range blocks {
//	    out, err := s.Process(block)
//	    ...
//	}
//
// # Regimes
//
// The frame length Slen is 20 ms of samples rounded up to even, and the
// transform size is 2·Slen. Transforms shorter than 1200 bins use the audio
// regime: a Hann window and a floor that only moves down. Larger transforms
// use the wide IF regime: a rectangular window and a floor measured on the
// quietest bins and interpolated across the rest.
//
// # Latency
//
// Sample primes the session with one frame (Slen samples) of zeros, so
// every complete hop of input yields one hop of output and the output lags
// the input by Slen samples. Input that does not complete a hop is kept for
// the next call.
//
// The first Process call after Sample with N samples therefore returns
// ⌊N/len2⌋·len2 samples, and output sample i corresponds to input sample
// i−Slen (not i−len1); align streams by dropping the first Slen outputs.
//
// # Concurrency
//
// A Session must be used from one goroutine at a time. See the pipeline
// package for composing sessions with other blocks.
package logmmse
