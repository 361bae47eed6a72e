package main

import "math"

// Butterworth low-pass smoothing for derived columns. cutoff and fs are in
// the same unit (Hz); applying the filter forward and backward cancels the
// phase shift, so smoothed peaks stay aligned with the raw samples.

type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// butterLowpass builds a 2nd-order Butterworth low-pass via the bilinear
// transform. Requires 0 < cutoff < fs/2.
func butterLowpass(cutoff, fs float64) biquad {
	c := 1 / math.Tan(math.Pi*cutoff/fs)
	c2 := c * c
	a0 := 1 + math.Sqrt2*c + c2
	return biquad{
		b0: 1 / a0,
		b1: 2 / a0,
		b2: 1 / a0,
		a1: 2 * (1 - c2) / a0,
		a2: (1 - math.Sqrt2*c + c2) / a0,
	}
}

// apply runs the filter over x (direct form II transposed). The state is
// seeded with the filter's DC steady state for x[0], so a constant signal
// passes through unchanged.
func (f biquad) apply(x []float64) []float64 {
	y := make([]float64, len(x))
	if len(x) == 0 {
		return y
	}
	z1 := (1 - f.b0) * x[0]
	z2 := (f.b2 - f.a2) * x[0]
	for i, v := range x {
		y[i] = f.b0*v + z1
		z1 = f.b1*v - f.a1*y[i] + z2
		z2 = f.b2*v - f.a2*y[i]
	}
	return y
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

// FiltFilt applies the low-pass forward and backward with odd-extension
// padding at both ends to suppress edge transients. cutoff is expressed as
// a fraction of the Nyquist frequency (0 < cutoff < 1); values outside that
// range return the input unchanged.
func FiltFilt(x []float64, cutoff float64) []float64 {
	if cutoff <= 0 || cutoff >= 1 || len(x) < 2 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	f := butterLowpass(cutoff, 2) // fs=2 puts Nyquist at 1

	padlen := 9
	if padlen > len(x)-1 {
		padlen = len(x) - 1
	}
	ext := make([]float64, 0, len(x)+2*padlen)
	for i := padlen; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	last := len(x) - 1
	for i := 1; i <= padlen; i++ {
		ext = append(ext, 2*x[last]-x[last-i])
	}

	y := f.apply(ext)
	reverse(y)
	y = f.apply(y)
	reverse(y)
	return y[padlen : padlen+len(x)]
}

// SmoothSpeeds low-passes a speed series sampled at the track's mean rate.
// smooth is the cutoff as a fraction of Nyquist; 0 disables smoothing.
func SmoothSpeeds(speeds, elapsed []float64, smooth float64) []float64 {
	if smooth <= 0 || len(speeds) < 3 {
		return speeds
	}
	span := elapsed[len(elapsed)-1] - elapsed[0]
	if span <= 0 {
		return speeds
	}
	return FiltFilt(speeds, math.Min(smooth, 0.99))
}
