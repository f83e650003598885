package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBands(t *testing.T) {
	bands := DefaultBands()

	wantFreqs := []float64{60, 170, 310, 600, 1000, 3000, 6000, 12000, 14000, 16000}
	wantLabels := []string{"60Hz", "170Hz", "310Hz", "600Hz", "1kHz", "3kHz", "6kHz", "12kHz", "14kHz", "16kHz"}

	require.Len(t, bands, NumBands)
	for i, b := range bands {
		assert.Equal(t, wantFreqs[i], b.FrequencyHz, "band %d frequency", i)
		assert.Equal(t, wantLabels[i], b.Label, "band %d label", i)
		assert.Zero(t, b.GainDB, "band %d gain", i)

		switch i {
		case 0:
			assert.Equal(t, LowShelf, b.Shape)
		case NumBands - 1:
			assert.Equal(t, HighShelf, b.Shape)
		default:
			assert.Equal(t, Peaking, b.Shape, "band %d shape", i)
		}
	}

	assert.NoError(t, ValidateBands(bands[:]))
}

func TestClampGain(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"In range", 3.5, 3.5},
		{"Zero", 0, 0},
		{"Upper bound", 12, 12},
		{"Lower bound", -12, -12},
		{"Too high", 99, 12},
		{"Too low", -99, -12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampGain(tt.in))
		})
	}
}

func TestBand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		band    Band
		wantErr bool
	}{
		{"Valid peaking", Band{FrequencyHz: 1000, GainDB: 3, Shape: Peaking}, false},
		{"Frequency too low", Band{FrequencyHz: 10, Shape: Peaking}, true},
		{"Frequency too high", Band{FrequencyHz: 22000, Shape: Peaking}, true},
		{"Gain out of range", Band{FrequencyHz: 1000, GainDB: 13, Shape: Peaking}, true},
		{"Unknown shape", Band{FrequencyHz: 1000, Shape: Shape(7)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.band.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBand)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBands_RejectsTopologyChanges(t *testing.T) {
	bands := DefaultBands()
	assert.ErrorIs(t, ValidateBands(bands[:9]), ErrInvalidBand)

	moved := DefaultBands()
	moved[3].FrequencyHz = 650
	assert.ErrorIs(t, ValidateBands(moved[:]), ErrInvalidBand)

	reshaped := DefaultBands()
	reshaped[0].Shape = Peaking
	assert.ErrorIs(t, ValidateBands(reshaped[:]), ErrInvalidBand)
}

func TestCheckBandIndex(t *testing.T) {
	for _, idx := range []int{0, 5, NumBands - 1} {
		assert.NoError(t, CheckBandIndex(idx))
	}
	for _, idx := range []int{-1, NumBands, 100} {
		err := CheckBandIndex(idx)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidBandIndex)
		assert.True(t, IsInvalidInput(err))

		var de *DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, ErrCodeInvalidBand, de.Code)
	}
}

func TestWithGains(t *testing.T) {
	bands, err := WithGains([]float64{99, -99, 1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	assert.Equal(t, 12.0, bands[0].GainDB)
	assert.Equal(t, -12.0, bands[1].GainDB)
	assert.Equal(t, []float64{12, -12, 1, 2, 3, 4, 5, 6, 7, 8}, Gains(bands[:]))

	_, err = WithGains([]float64{1, 2})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
