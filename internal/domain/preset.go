package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Preset is a named, persisted set of band gains.
type Preset struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	Gains     []float64 `json:"gains" gorm:"serializer:json"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPreset captures the gains of bands under name.
func NewPreset(name string, bands []Band) (*Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: preset name is empty", ErrInvalidInput)
	}
	p := &Preset{
		ID:        uuid.NewString(),
		Name:      name,
		Gains:     Gains(bands),
		CreatedAt: time.Now(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: preset name is empty", ErrInvalidInput)
	}
	if len(p.Gains) != NumBands {
		return fmt.Errorf("%w: preset %q has %d gains, want %d", ErrInvalidInput, p.Name, len(p.Gains), NumBands)
	}
	for i, g := range p.Gains {
		if g < MinGainDB || g > MaxGainDB {
			return fmt.Errorf("%w: preset %q gain %d is %.2f dB", ErrInvalidInput, p.Name, i, g)
		}
	}
	return nil
}

// Bands expands the preset onto the default band layout.
func (p *Preset) Bands() ([NumBands]Band, error) {
	return WithGains(p.Gains)
}

type PresetRepository interface {
	Create(preset *Preset) error
	Update(preset *Preset) error
	Delete(id string) error
	FindByName(name string) (*Preset, error)
	FindAll() ([]*Preset, error)
}
