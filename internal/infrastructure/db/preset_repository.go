package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sonicforge/sonicforge/internal/domain"
)

type PresetRepository struct {
	db *gorm.DB
}

func NewPresetRepository(database *Database) *PresetRepository {
	return &PresetRepository{
		db: database.DB(),
	}
}

var _ domain.PresetRepository = (*PresetRepository)(nil)

func (r *PresetRepository) Create(preset *domain.Preset) error {
	if err := preset.Validate(); err != nil {
		return err
	}

	if err := r.db.Create(preset).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: preset %q", domain.ErrAlreadyExists, preset.Name)
		}
		return fmt.Errorf("failed to create preset: %w", err)
	}

	return nil
}

func (r *PresetRepository) Update(preset *domain.Preset) error {
	if err := preset.Validate(); err != nil {
		return err
	}

	preset.UpdatedAt = time.Now().UTC()
	result := r.db.Model(preset).Select("name", "gains", "updated_at").Updates(preset)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return fmt.Errorf("%w: preset %q", domain.ErrAlreadyExists, preset.Name)
		}
		return fmt.Errorf("failed to update preset: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrPresetNotFound
	}

	return nil
}

func (r *PresetRepository) Delete(id string) error {
	result := r.db.Delete(&domain.Preset{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete preset: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrPresetNotFound
	}

	return nil
}

func (r *PresetRepository) FindByName(name string) (*domain.Preset, error) {
	var preset domain.Preset
	if err := r.db.First(&preset, "name = ?", strings.TrimSpace(name)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %q", domain.ErrPresetNotFound, name)
		}
		return nil, fmt.Errorf("failed to find preset: %w", err)
	}
	return &preset, nil
}

func (r *PresetRepository) FindAll() ([]*domain.Preset, error) {
	var presets []*domain.Preset
	if err := r.db.Order("name").Find(&presets).Error; err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	return presets, nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint")
}
