package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonicforge/sonicforge/internal/domain"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "presets.db")

	database, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func newPreset(t *testing.T, name string, gain float64) *domain.Preset {
	t.Helper()
	bands, err := domain.WithGains([]float64{gain, 0, 0, 0, 0, 0, 0, 0, 0, -gain})
	require.NoError(t, err)
	p, err := domain.NewPreset(name, bands[:])
	require.NoError(t, err)
	return p
}

func TestPresetRepository_CreateAndFind(t *testing.T) {
	repo := NewPresetRepository(openTestDB(t))

	p := newPreset(t, "Warm", 4.5)
	require.NoError(t, repo.Create(p))

	found, err := repo.FindByName("Warm")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	assert.Equal(t, []float64{4.5, 0, 0, 0, 0, 0, 0, 0, 0, -4.5}, found.Gains)
	assert.False(t, found.CreatedAt.IsZero())

	found, err = repo.FindByName("  Warm ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
}

func TestPresetRepository_DuplicateName(t *testing.T) {
	repo := NewPresetRepository(openTestDB(t))

	require.NoError(t, repo.Create(newPreset(t, "Loud", 6)))
	err := repo.Create(newPreset(t, "Loud", 3))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestPresetRepository_Update(t *testing.T) {
	repo := NewPresetRepository(openTestDB(t))

	p := newPreset(t, "Bright", 2)
	require.NoError(t, repo.Create(p))

	p.Gains[9] = 12
	require.NoError(t, repo.Update(p))

	found, err := repo.FindByName("Bright")
	require.NoError(t, err)
	assert.Equal(t, 12.0, found.Gains[9])

	missing := newPreset(t, "Ghost", 1)
	assert.ErrorIs(t, repo.Update(missing), domain.ErrPresetNotFound)
}

func TestPresetRepository_RejectsInvalid(t *testing.T) {
	repo := NewPresetRepository(openTestDB(t))

	err := repo.Create(&domain.Preset{ID: "x", Name: "short", Gains: []float64{1, 2}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPresetRepository_DeleteAndList(t *testing.T) {
	repo := NewPresetRepository(openTestDB(t))

	b := newPreset(t, "b", 1)
	a := newPreset(t, "a", 2)
	require.NoError(t, repo.Create(b))
	require.NoError(t, repo.Create(a))

	all, err := repo.FindAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "b", all[1].Name)

	require.NoError(t, repo.Delete(a.ID))
	assert.ErrorIs(t, repo.Delete(a.ID), domain.ErrPresetNotFound)

	_, err = repo.FindByName("a")
	assert.ErrorIs(t, err, domain.ErrPresetNotFound)
	assert.True(t, domain.IsNotFound(err))
}

func TestDatabase_BackupAndStats(t *testing.T) {
	database := openTestDB(t)
	repo := NewPresetRepository(database)
	require.NoError(t, repo.Create(newPreset(t, "Keep", 1)))

	stats, err := database.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["presets_count"])

	backup := filepath.Join(t.TempDir(), "backup", "presets.db")
	require.NoError(t, database.Backup(backup))

	restored, err := Open(Config{Path: backup})
	require.NoError(t, err)
	defer restored.Close()

	found, err := NewPresetRepository(restored).FindByName("Keep")
	require.NoError(t, err)
	assert.Equal(t, 1.0, found.Gains[0])
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDatabase_Closed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "presets.db")
	database, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Close())

	_, err = database.Stats()
	assert.ErrorIs(t, err, ErrNotInitialized)
}
