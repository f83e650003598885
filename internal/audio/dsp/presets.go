package dsp

import (
	"github.com/sonicforge/sonicforge/internal/domain"
)

var presetOrder = []string{
	"flat",
	"rock",
	"pop",
	"jazz",
	"classical",
	"dance",
	"bass_boost",
	"treble_boost",
	"vocal",
	"powerful",
}

// Built-in gains, low band first.
var presets = map[string][domain.NumBands]float64{
	"flat":         {0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	"rock":         {5, 4, 3, 1, -1, -1, 1, 3, 4, 5},
	"pop":          {-2, -1, 0, 2, 4, 4, 2, 0, -1, -2},
	"jazz":         {0, 0, 0, 2, 4, 4, 2, 0, 0, 0},
	"classical":    {0, 0, 0, 0, 0, 0, -2, -2, -2, -3},
	"dance":        {6, 5, 2, 0, 0, -2, -2, -2, 0, 0},
	"bass_boost":   {8, 6, 4, 2, 0, 0, 0, 0, 0, 0},
	"treble_boost": {0, 0, 0, 0, 0, 0, 2, 4, 6, 8},
	"vocal":        {-2, -3, -3, 1, 4, 4, 3, 1, 0, -1},
	"powerful":     {6, 5, 0, -2, 1, 3, 5, 6, 4, 0},
}

// Preset returns the gains of a built-in preset.
func Preset(name string) ([]float64, bool) {
	gains, ok := presets[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, domain.NumBands)
	copy(out, gains[:])
	return out, true
}

// PresetNames lists the built-in presets in display order.
func PresetNames() []string {
	names := make([]string, len(presetOrder))
	copy(names, presetOrder)
	return names
}
