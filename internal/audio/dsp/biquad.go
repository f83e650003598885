package dsp

import (
	"math"
	"math/cmplx"

	"github.com/sonicforge/sonicforge/internal/domain"
)

const (
	// PeakingQ is the bandwidth of every peaking band.
	PeakingQ = 1.0
	// ShelfSlope is the cookbook shelf slope S; S = 1 is the steepest slope
	// without overshoot, equivalent to Q = 1/sqrt(2).
	ShelfSlope = 1.0
)

// Coefficients of a second-order section, normalised so that A0 == 1.
type Coefficients struct {
	B0, B1, B2 float64
	A0, A1, A2 float64
}

// Identity passes the signal through unchanged.
func Identity() Coefficients {
	return Coefficients{B0: 1, A0: 1}
}

// ComputeCoefficients derives biquad coefficients from the Audio EQ Cookbook
// formulas for the given shape.
func ComputeCoefficients(shape domain.Shape, freqHz, gainDB float64, sampleRate int) Coefficients {
	if sampleRate <= 0 || freqHz <= 0 || freqHz >= float64(sampleRate)/2 {
		return Identity()
	}

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freqHz / float64(sampleRate)
	cosW := math.Cos(w0)
	sinW := math.Sin(w0)

	var b0, b1, b2, a0, a1, a2 float64

	switch shape {
	case domain.LowShelf, domain.HighShelf:
		alpha := sinW / 2 * math.Sqrt((a+1/a)*(1/ShelfSlope-1)+2)
		twoSqrtAAlpha := 2 * math.Sqrt(a) * alpha

		if shape == domain.LowShelf {
			b0 = a * ((a + 1) - (a-1)*cosW + twoSqrtAAlpha)
			b1 = 2 * a * ((a - 1) - (a+1)*cosW)
			b2 = a * ((a + 1) - (a-1)*cosW - twoSqrtAAlpha)
			a0 = (a + 1) + (a-1)*cosW + twoSqrtAAlpha
			a1 = -2 * ((a - 1) + (a+1)*cosW)
			a2 = (a + 1) + (a-1)*cosW - twoSqrtAAlpha
		} else {
			b0 = a * ((a + 1) + (a-1)*cosW + twoSqrtAAlpha)
			b1 = -2 * a * ((a - 1) + (a+1)*cosW)
			b2 = a * ((a + 1) + (a-1)*cosW - twoSqrtAAlpha)
			a0 = (a + 1) - (a-1)*cosW + twoSqrtAAlpha
			a1 = 2 * ((a - 1) - (a+1)*cosW)
			a2 = (a + 1) - (a-1)*cosW - twoSqrtAAlpha
		}
	case domain.Peaking:
		alpha := sinW / (2 * PeakingQ)
		b0 = 1 + alpha*a
		b1 = -2 * cosW
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW
		a2 = 1 - alpha/a
	default:
		return Identity()
	}

	return Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A0: 1,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

// IsIdentity reports whether the section is an exact pass-through.
func (c Coefficients) IsIdentity() bool {
	return c.B0 == c.A0 && c.B1 == c.A1 && c.B2 == c.A2
}

// MagnitudeDB evaluates |H(e^jw)| in decibels at freqHz.
func (c Coefficients) MagnitudeDB(freqHz float64, sampleRate int) float64 {
	w := 2 * math.Pi * freqHz / float64(sampleRate)
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1

	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
	den := complex(c.A0, 0) + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2

	return 20 * math.Log10(cmplx.Abs(num/den))
}

// Biquad is one filter stage: coefficients plus Direct Form I memory for a
// single channel. It is not safe for concurrent use.
type Biquad struct {
	c Coefficients

	x1, x2 float64
	y1, y2 float64
}

// NewBiquad creates a stage with zeroed memory.
func NewBiquad(c Coefficients) *Biquad {
	return &Biquad{c: c}
}

// SetCoefficients swaps the coefficients. Delay memory is kept so a gain
// change does not click.
func (f *Biquad) SetCoefficients(c Coefficients) {
	f.c = c
}

func (f *Biquad) Coefficients() Coefficients {
	return f.c
}

// Reset zeroes the recurrence memory.
func (f *Biquad) Reset() {
	f.x1, f.x2 = 0, 0
	f.y1, f.y2 = 0, 0
}

// ProcessSample runs one sample through the difference equation.
func (f *Biquad) ProcessSample(x float64) float64 {
	y := f.c.B0*x + f.c.B1*f.x1 + f.c.B2*f.x2 - f.c.A1*f.y1 - f.c.A2*f.y2

	f.x2 = f.x1
	f.x1 = x
	f.y2 = f.y1
	f.y1 = y

	return y
}

// Process filters samples in place.
func (f *Biquad) Process(samples []float32) {
	for i := range samples {
		samples[i] = float32(f.ProcessSample(float64(samples[i])))
	}
}
