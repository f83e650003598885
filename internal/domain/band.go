package domain

import (
	"fmt"
)

// NumBands is the fixed size of the equalizer.
const NumBands = 10

const (
	MinGainDB = -12.0
	MaxGainDB = 12.0

	MinFrequencyHz = 20.0
	MaxFrequencyHz = 20000.0
)

// Shape selects the filter response of a band.
type Shape int

const (
	LowShelf Shape = iota
	Peaking
	HighShelf
)

func (s Shape) String() string {
	switch s {
	case LowShelf:
		return "lowshelf"
	case Peaking:
		return "peaking"
	case HighShelf:
		return "highshelf"
	default:
		return "unknown"
	}
}

// Band is one equalizer band. Only GainDB changes after construction.
type Band struct {
	FrequencyHz float64 `json:"frequency_hz"`
	GainDB      float64 `json:"gain_db"`
	Shape       Shape   `json:"shape"`
	Label       string  `json:"label"`
}

// Validate checks frequency range, gain range and shape.
func (b Band) Validate() error {
	if b.FrequencyHz < MinFrequencyHz || b.FrequencyHz > MaxFrequencyHz {
		return fmt.Errorf("%w: frequency %.1f Hz outside [%.0f, %.0f]",
			ErrInvalidBand, b.FrequencyHz, MinFrequencyHz, MaxFrequencyHz)
	}
	if b.GainDB < MinGainDB || b.GainDB > MaxGainDB {
		return fmt.Errorf("%w: gain %.2f dB outside [%.0f, %.0f]",
			ErrInvalidBand, b.GainDB, MinGainDB, MaxGainDB)
	}
	switch b.Shape {
	case LowShelf, Peaking, HighShelf:
	default:
		return fmt.Errorf("%w: unknown shape %d", ErrInvalidBand, b.Shape)
	}
	return nil
}

// ClampGain limits a gain to [-12, +12] dB.
func ClampGain(gainDB float64) float64 {
	if gainDB < MinGainDB {
		return MinGainDB
	} else if gainDB > MaxGainDB {
		return MaxGainDB
	}
	return gainDB
}

// DefaultBands returns the ten bands in signal-chain order, all at 0 dB.
func DefaultBands() [NumBands]Band {
	return [NumBands]Band{
		{FrequencyHz: 60, Shape: LowShelf, Label: "60Hz"},
		{FrequencyHz: 170, Shape: Peaking, Label: "170Hz"},
		{FrequencyHz: 310, Shape: Peaking, Label: "310Hz"},
		{FrequencyHz: 600, Shape: Peaking, Label: "600Hz"},
		{FrequencyHz: 1000, Shape: Peaking, Label: "1kHz"},
		{FrequencyHz: 3000, Shape: Peaking, Label: "3kHz"},
		{FrequencyHz: 6000, Shape: Peaking, Label: "6kHz"},
		{FrequencyHz: 12000, Shape: Peaking, Label: "12kHz"},
		{FrequencyHz: 14000, Shape: Peaking, Label: "14kHz"},
		{FrequencyHz: 16000, Shape: HighShelf, Label: "16kHz"},
	}
}

// ValidateBands checks count, order and each band. The frequencies and shapes
// must match DefaultBands since the chain topology never changes.
func ValidateBands(bands []Band) error {
	if len(bands) != NumBands {
		return fmt.Errorf("%w: expected %d bands, got %d", ErrInvalidBand, NumBands, len(bands))
	}
	defaults := DefaultBands()
	for i, b := range bands {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("band %d: %w", i, err)
		}
		if b.FrequencyHz != defaults[i].FrequencyHz || b.Shape != defaults[i].Shape {
			return fmt.Errorf("%w: band %d is %s@%.0fHz, expected %s@%.0fHz", ErrInvalidBand,
				i, b.Shape, b.FrequencyHz, defaults[i].Shape, defaults[i].FrequencyHz)
		}
	}
	return nil
}

// CheckBandIndex returns ErrInvalidBandIndex for indexes outside [0, NumBands).
func CheckBandIndex(index int) error {
	if index < 0 || index >= NumBands {
		return NewDomainErrorWithDetails(ErrCodeInvalidBand, ErrInvalidBandIndex.Error(),
			fmt.Sprintf("index %d not in [0, %d)", index, NumBands), ErrInvalidBandIndex)
	}
	return nil
}

// Gains extracts the gain of every band.
func Gains(bands []Band) []float64 {
	gains := make([]float64, len(bands))
	for i, b := range bands {
		gains[i] = b.GainDB
	}
	return gains
}

// WithGains returns a copy of the default bands carrying the given gains,
// each clamped.
func WithGains(gains []float64) ([NumBands]Band, error) {
	bands := DefaultBands()
	if len(gains) != NumBands {
		return bands, fmt.Errorf("%w: expected %d gains, got %d", ErrInvalidInput, NumBands, len(gains))
	}
	for i, g := range gains {
		bands[i].GainDB = ClampGain(g)
	}
	return bands, nil
}
