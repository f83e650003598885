package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPreset(t *testing.T) {
	bands := DefaultBands()
	bands[0].GainDB = 6
	bands[9].GainDB = -3

	preset, err := NewPreset("  Warm  ", bands[:])
	require.NoError(t, err)
	assert.NotEmpty(t, preset.ID)
	assert.Equal(t, "Warm", preset.Name)
	assert.Equal(t, []float64{6, 0, 0, 0, 0, 0, 0, 0, 0, -3}, preset.Gains)

	restored, err := preset.Bands()
	require.NoError(t, err)
	assert.Equal(t, bands, restored)
}

func TestPreset_Validate(t *testing.T) {
	tests := []struct {
		name    string
		preset  Preset
		wantErr bool
	}{
		{"Valid", Preset{Name: "flat", Gains: make([]float64, NumBands)}, false},
		{"Empty name", Preset{Name: " ", Gains: make([]float64, NumBands)}, true},
		{"Too few gains", Preset{Name: "short", Gains: []float64{1}}, true},
		{"Gain out of range", Preset{Name: "loud", Gains: []float64{20, 0, 0, 0, 0, 0, 0, 0, 0, 0}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.preset.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
