// Package window generates taper functions for Welch segmentation.
//
// Symmetric form spans the full cosine arc and suits filter design;
// averaged spectral estimates want the periodic form, which evaluates
// the taper over length+1 points and drops the last.
package window

import "math"

// Type identifies a taper.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

// Cosine-sum coefficient tables, evaluated as sum(c[k] * cos(2*pi*k*x)).
var coeffTables = map[Type][]float64{
	TypeHann:     {0.5, -0.5},
	TypeHamming:  {0.54, -0.46},
	TypeBlackman: {0.42, -0.5, 0.08},
}

type config struct {
	periodic bool
}

// Option adjusts Generate.
type Option func(*config)

// WithPeriodic selects the periodic (DFT-even) form used for segment
// averaging instead of the symmetric default.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns length taper coefficients. The rectangular type (and
// any unknown type) produces an all-ones taper; lengths below one yield
// nil.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	var cfg config

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)

	table, ok := coeffTables[t]
	if !ok {
		for i := range out {
			out[i] = 1
		}

		return out
	}

	den := float64(length - 1)
	if cfg.periodic {
		den = float64(length)
	}

	for i := range out {
		x := 0.0
		if length > 1 {
			x = float64(i) / den
		}

		sum := 0.0
		for k, c := range table {
			sum += c * math.Cos(2*math.Pi*float64(k)*x)
		}

		out[i] = sum
	}

	return out
}

// Power returns the sum of squared coefficients, the normalization that
// density-scaled Welch estimates divide by.
func Power(coeffs []float64) float64 {
	sum := 0.0
	for _, c := range coeffs {
		sum += c * c
	}

	return sum
}
