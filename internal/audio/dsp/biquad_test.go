package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sonicforge/sonicforge/internal/domain"
)

func TestComputeCoefficients_ZeroGainIsIdentity(t *testing.T) {
	for _, rate := range []int{22050, 44100, 48000, 96000} {
		for _, b := range domain.DefaultBands() {
			c := ComputeCoefficients(b.Shape, b.FrequencyHz, 0, rate)
			if float64(rate)/2 <= b.FrequencyHz {
				assert.Equal(t, Identity(), c)
				continue
			}
			assert.True(t, c.IsIdentity(), "%s at %d Hz, rate %d: %+v", b.Shape, int(b.FrequencyHz), rate, c)
			assert.Equal(t, 1.0, c.B0)
			assert.Equal(t, 1.0, c.A0)
		}
	}
}

func TestComputeCoefficients_Response(t *testing.T) {
	const rate = 44100
	const tolerance = 0.5

	tests := []struct {
		name   string
		shape  domain.Shape
		freq   float64
		gain   float64
		probe  float64
		wantDB float64
	}{
		{
			name:   "Peaking boost at centre",
			shape:  domain.Peaking,
			freq:   1000,
			gain:   6,
			probe:  1000,
			wantDB: 6,
		},
		{
			name:   "Peaking cut at centre",
			shape:  domain.Peaking,
			freq:   3000,
			gain:   -12,
			probe:  3000,
			wantDB: -12,
		},
		{
			name:   "Peaking is flat far away",
			shape:  domain.Peaking,
			freq:   1000,
			gain:   12,
			probe:  20,
			wantDB: 0,
		},
		{
			name:   "Low shelf plateau",
			shape:  domain.LowShelf,
			freq:   60,
			gain:   9,
			probe:  0,
			wantDB: 9,
		},
		{
			name:   "Low shelf midpoint",
			shape:  domain.LowShelf,
			freq:   60,
			gain:   9,
			probe:  60,
			wantDB: 4.5,
		},
		{
			name:   "High shelf plateau",
			shape:  domain.HighShelf,
			freq:   16000,
			gain:   -8,
			probe:  rate / 2,
			wantDB: -8,
		},
		{
			name:   "High shelf midpoint",
			shape:  domain.HighShelf,
			freq:   16000,
			gain:   -8,
			probe:  16000,
			wantDB: -4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ComputeCoefficients(tt.shape, tt.freq, tt.gain, rate)
			assert.Equal(t, 1.0, c.A0)
			assert.InDelta(t, tt.wantDB, c.MagnitudeDB(tt.probe, rate), tolerance)
		})
	}
}

func TestComputeCoefficients_OutOfRangeFrequency(t *testing.T) {
	assert.Equal(t, Identity(), ComputeCoefficients(domain.Peaking, 16000, 6, 16000))
	assert.Equal(t, Identity(), ComputeCoefficients(domain.Peaking, 1000, 6, 0))
	assert.Equal(t, Identity(), ComputeCoefficients(domain.Shape(9), 1000, 6, 44100))
}

func TestBiquad_ResetAndCoefficientSwap(t *testing.T) {
	f := NewBiquad(ComputeCoefficients(domain.Peaking, 1000, 6, 44100))

	f.ProcessSample(1)
	f.ProcessSample(0.5)
	x1, x2, y1, y2 := f.x1, f.x2, f.y1, f.y2
	assert.Equal(t, 0.5, x1)
	assert.Equal(t, 1.0, x2)

	f.SetCoefficients(ComputeCoefficients(domain.Peaking, 1000, -6, 44100))
	assert.Equal(t, x1, f.x1, "gain change keeps memory")
	assert.Equal(t, x2, f.x2)
	assert.Equal(t, y1, f.y1)
	assert.Equal(t, y2, f.y2)

	f.Reset()
	assert.Zero(t, f.x1)
	assert.Zero(t, f.x2)
	assert.Zero(t, f.y1)
	assert.Zero(t, f.y2)
}

func TestBiquad_IdentityPassesSignal(t *testing.T) {
	f := NewBiquad(Identity())
	samples := []float32{0.1, -0.7, 1, 0, 0.25}
	want := append([]float32(nil), samples...)

	f.Process(samples)
	assert.Equal(t, want, samples)
}

func TestBiquad_ImpulseDecays(t *testing.T) {
	f := NewBiquad(ComputeCoefficients(domain.Peaking, 1000, 12, 44100))

	y := f.ProcessSample(1)
	assert.False(t, math.IsNaN(y))
	for i := 0; i < 44100; i++ {
		y = f.ProcessSample(0)
	}
	assert.InDelta(t, 0, y, 1e-9)
}
