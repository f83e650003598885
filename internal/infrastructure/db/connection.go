package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sonicforge/sonicforge/internal/domain"
	"github.com/sonicforge/sonicforge/internal/logger"
)

var ErrNotInitialized = errors.New("database not initialized")

type Database struct {
	db   *gorm.DB
	path string
	mu   sync.RWMutex
}

type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

func DefaultConfig() Config {
	return Config{
		Path:            filepath.Join(logger.DataDir(), "presets.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "silent",
	}
}

// Open creates the database file if needed, applies the SQLite pragmas and
// migrates the preset schema.
func Open(cfg Config) (*Database, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: empty database path", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	var logLevel gormlogger.LogLevel
	switch cfg.LogLevel {
	case "error":
		logLevel = gormlogger.Error
	case "warn":
		logLevel = gormlogger.Warn
	case "info":
		logLevel = gormlogger.Info
	default:
		logLevel = gormlogger.Silent
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	d := &Database{db: db, path: cfg.Path}
	if err := d.Migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("Database opened", logger.String("path", cfg.Path))
	return d, nil
}

func (d *Database) Migrate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrNotInitialized
	}

	if err := d.db.AutoMigrate(&domain.Preset{}); err != nil {
		return fmt.Errorf("failed to migrate %T: %w", &domain.Preset{}, err)
	}

	return d.createIndexes()
}

func (d *Database) createIndexes() error {
	indexes := []struct {
		Table   string
		Name    string
		Columns []string
	}{
		{"presets", "idx_presets_updated_at", []string{"updated_at"}},
	}

	for _, idx := range indexes {
		sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			idx.Name, idx.Table, strings.Join(idx.Columns, ", "))
		if err := d.db.Exec(sql).Error; err != nil {
			logger.Warn("Failed to create index",
				logger.String("index", idx.Name),
				logger.Error(err))
		}
	}

	return nil
}

func (d *Database) DB() *gorm.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// Path returns the database file.
func (d *Database) Path() string {
	return d.path
}

func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	d.db = nil
	return sqlDB.Close()
}

// Backup writes a consistent copy of the database to path.
func (d *Database) Backup(path string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return ErrNotInitialized
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := d.db.Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("failed to backup database: %w", err)
	}

	logger.Info("Database backed up", logger.String("path", path))
	return nil
}

func (d *Database) Stats() (map[string]interface{}, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrNotInitialized
	}

	stats := make(map[string]interface{})

	var presets int64
	if err := d.db.Model(&domain.Preset{}).Count(&presets).Error; err != nil {
		return nil, fmt.Errorf("failed to count presets: %w", err)
	}
	stats["presets_count"] = presets

	var size int64
	d.db.Raw("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&size)
	stats["size_bytes"] = size

	return stats, nil
}
