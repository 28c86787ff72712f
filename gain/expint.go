package gain

import "math"

const (
	// EulerGamma is the Euler–Mascheroni constant.
	EulerGamma = 0.57721566490153286060651209008240243

	// E1Upper is the argument above which E1 is treated as zero.
	E1Upper = 200.0

	// E1Lower is the argument below which the two-term asymptotic form is used.
	E1Lower = 1e-6

	e1Eps     = 1e-15
	e1MaxIter = 200
	e1Tiny    = 1e-300
)

// E1 returns the exponential integral ∫_v^∞ e^{-t}/t dt for positive v.
//
// The power series is used up to v = 1 and a modified Lentz continued
// fraction above it; both converge to near machine precision. Arguments
// above E1Upper return 0 and arguments below E1Lower return
// -EulerGamma - ln(v). Non-positive arguments return +Inf.
func E1(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return math.NaN()
	case v <= 0:
		return math.Inf(1)
	case v > E1Upper:
		return 0
	case v < E1Lower:
		return -EulerGamma - math.Log(v)
	case v <= 1:
		return e1Series(v)
	default:
		return e1ContinuedFraction(v)
	}
}

// e1Series evaluates -γ - ln v - Σ_{k≥1} (-v)^k / (k·k!).
func e1Series(v float64) float64 {
	var sum float64
	term := 1.0
	for k := 1; k <= e1MaxIter; k++ {
		term *= -v / float64(k)
		delta := term / float64(k)
		sum += delta
		if math.Abs(delta) < math.Abs(sum)*e1Eps {
			break
		}
	}
	return -EulerGamma - math.Log(v) - sum
}

// e1ContinuedFraction evaluates e^{-v} / (v+1- 1/(v+3- 4/(v+5- ...))).
func e1ContinuedFraction(v float64) float64 {
	b := v + 1
	c := 1 / e1Tiny
	d := 1 / b
	h := d
	for i := 1; i <= e1MaxIter; i++ {
		an := -float64(i * i)
		b += 2
		d = 1 / (an*d + b)
		c = b + an/c
		del := c * d
		h *= del
		if math.Abs(del-1) < e1Eps {
			break
		}
	}
	return h * math.Exp(-v)
}
