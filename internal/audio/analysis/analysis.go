// Package analysis measures what an equalizer setting does to a signal.
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/sonicforge/sonicforge/internal/audio/dsp"
	"github.com/sonicforge/sonicforge/internal/domain"
)

// DefaultLength is the impulse response length used by Response. At 44.1 kHz
// it resolves about 1.3 Hz per bin and lets the 60 Hz shelf decay fully.
const DefaultLength = 1 << 15

// silenceDB is reported for bins with no energy.
const silenceDB = -300.0

// ImpulseResponse runs a unit impulse through a fresh mono chain built from
// bands and returns the first n output samples.
func ImpulseResponse(bands []domain.Band, sampleRate, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: impulse length %d", domain.ErrInvalidInput, n)
	}
	chain, err := dsp.NewChain(bands, sampleRate, 1)
	if err != nil {
		return nil, err
	}

	samples := make([]float32, n)
	samples[0] = 1
	if err := chain.ProcessChannel(0, samples); err != nil {
		return nil, err
	}

	out := make([]float64, n)
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out, nil
}

// Spectrum is the one-sided spectrum of a real signal.
type Spectrum struct {
	sampleRate int
	length     int
	coeffs     []complex128
}

// NewSpectrum transforms samples with a real FFT of their own length.
func NewSpectrum(samples []float64, sampleRate int) (*Spectrum, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: spectrum needs at least 2 samples", domain.ErrInvalidInput)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", domain.ErrInvalidInput, sampleRate)
	}

	fft := fourier.NewFFT(len(samples))
	return &Spectrum{
		sampleRate: sampleRate,
		length:     len(samples),
		coeffs:     fft.Coefficients(nil, samples),
	}, nil
}

// Bins returns the number of frequency bins, DC to Nyquist inclusive.
func (s *Spectrum) Bins() int { return len(s.coeffs) }

// Resolution is the bin spacing in Hz.
func (s *Spectrum) Resolution() float64 {
	return float64(s.sampleRate) / float64(s.length)
}

// Bin returns the index of the bin nearest freqHz, clamped to [0, Nyquist].
func (s *Spectrum) Bin(freqHz float64) int {
	k := int(math.Round(freqHz / s.Resolution()))
	if k < 0 {
		return 0
	}
	if k >= len(s.coeffs) {
		return len(s.coeffs) - 1
	}
	return k
}

// At returns the magnitude in dB of the bin nearest freqHz.
func (s *Spectrum) At(freqHz float64) float64 {
	mag := cmplx.Abs(s.coeffs[s.Bin(freqHz)])
	if mag == 0 {
		return silenceDB
	}
	return 20 * math.Log10(mag)
}

// Peak returns the frequency and level of the strongest bin.
func (s *Spectrum) Peak() (freqHz, levelDB float64) {
	best := 0
	for k := range s.coeffs {
		if cmplx.Abs(s.coeffs[k]) > cmplx.Abs(s.coeffs[best]) {
			best = k
		}
	}
	return float64(best) * s.Resolution(), s.At(float64(best) * s.Resolution())
}

// BandResponse compares the requested gain of a band with the response of
// the whole chain at the band centre.
type BandResponse struct {
	Label       string
	FrequencyHz float64
	GainDB      float64
	ExpectedDB  float64
	MeasuredDB  float64
	// Bypassed is set when the band's own section is an exact pass-through.
	Bypassed bool
}

// Response measures the full chain at every band centre. ExpectedDB is the
// analytic cascade response, MeasuredDB the FFT of the impulse response.
func Response(bands []domain.Band, sampleRate int) ([]BandResponse, error) {
	ir, err := ImpulseResponse(bands, sampleRate, DefaultLength)
	if err != nil {
		return nil, err
	}
	spectrum, err := NewSpectrum(ir, sampleRate)
	if err != nil {
		return nil, err
	}

	chain, err := dsp.NewChain(bands, sampleRate, 1)
	if err != nil {
		return nil, err
	}
	coeffs := chain.Coefficients()

	out := make([]BandResponse, 0, len(bands))
	for i, b := range bands {
		freq := float64(spectrum.Bin(b.FrequencyHz)) * spectrum.Resolution()

		var expected float64
		for _, c := range coeffs {
			expected += c.MagnitudeDB(freq, sampleRate)
		}

		out = append(out, BandResponse{
			Label:       b.Label,
			FrequencyHz: b.FrequencyHz,
			GainDB:      b.GainDB,
			ExpectedDB:  expected,
			MeasuredDB:  spectrum.At(freq),
			Bypassed:    coeffs[i].IsIdentity(),
		})
	}
	return out, nil
}
