package benchmark

import (
	"fmt"
	"math"
	"math/rand"
)

// Zipf draws integers in [0, n) where index 0 is the most popular, with
// P(k) proportional to 1/(k+1)^s. It uses rejection-inversion sampling
// (W. Hörmann, G. Derflinger), which works for any exponent s > 0; the
// math/rand generator requires s > 1 and can't produce the usual YCSB 0.99.
//
// A Zipf is immutable; each caller supplies its own *rand.Rand.
type Zipf struct {
	n           float64
	s           float64
	hIntegralX1 float64
	hIntegralN  float64
	sThreshold  float64
}

// NewZipf prepares a sampler over n elements with exponent s
func NewZipf(n uint64, s float64) (*Zipf, error) {
	if n == 0 {
		return nil, fmt.Errorf("zipf: number of elements must be positive")
	}
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return nil, fmt.Errorf("zipf: exponent must be positive, got %v", s)
	}

	z := &Zipf{n: float64(n), s: s}
	z.hIntegralX1 = z.hIntegral(1.5) - 1
	z.hIntegralN = z.hIntegral(z.n + 0.5)
	z.sThreshold = 2 - z.hIntegralInverse(z.hIntegral(2.5)-z.h(2))
	return z, nil
}

// Next returns the next index in [0, n)
func (z *Zipf) Next(rng *rand.Rand) uint64 {
	for {
		u := z.hIntegralN + rng.Float64()*(z.hIntegralX1-z.hIntegralN)
		x := z.hIntegralInverse(u)

		k := math.Floor(x + 0.5)
		if k < 1 {
			k = 1
		} else if k > z.n {
			k = z.n
		}

		if k-x <= z.sThreshold || u >= z.hIntegral(k+0.5)-z.h(k) {
			return uint64(k) - 1
		}
	}
}

// hIntegral is the integral of h, (x^(1-s) - 1) / (1-s)
func (z *Zipf) hIntegral(x float64) float64 {
	logX := math.Log(x)
	return helper2((1-z.s)*logX) * logX
}

func (z *Zipf) h(x float64) float64 {
	return math.Exp(-z.s * math.Log(x))
}

func (z *Zipf) hIntegralInverse(x float64) float64 {
	t := x * (1 - z.s)
	if t < -1 {
		// round-off guard, t can't go below -1 mathematically
		t = -1
	}
	return math.Exp(helper1(t) * x)
}

// helper1 is log1p(x)/x, stable near zero
func helper1(x float64) float64 {
	if math.Abs(x) > 1e-8 {
		return math.Log1p(x) / x
	}
	return 1 - x*(0.5-x*(1.0/3.0-0.25*x))
}

// helper2 is expm1(x)/x, stable near zero
func helper2(x float64) float64 {
	if math.Abs(x) > 1e-8 {
		return math.Expm1(x) / x
	}
	return 1 + x*0.5*(1+x*(1.0/3.0)*(1+0.25*x))
}
