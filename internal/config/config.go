package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/sonicforge/sonicforge/internal/domain"
	"github.com/sonicforge/sonicforge/internal/logger"
)

// EnvPrefix prefixes environment overrides, e.g. SONICFORGE_AUDIO_VOLUME.
const EnvPrefix = "SONICFORGE"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Equalizer EqualizerConfig `mapstructure:"equalizer"`
	Export    ExportConfig    `mapstructure:"export"`
	Transform TransformConfig `mapstructure:"transform"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   logger.Config   `mapstructure:"logging"`

	v      *viper.Viper
	mu     sync.RWMutex
	loaded bool
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	DataDir string `mapstructure:"data_dir"`
}

type AudioConfig struct {
	Output          string        `mapstructure:"output"` // oto, null
	SampleRate      int           `mapstructure:"sample_rate"`
	Latency         time.Duration `mapstructure:"latency"`
	Volume          float64       `mapstructure:"volume"`
	ResampleQuality int           `mapstructure:"resample_quality"`
}

type EqualizerConfig struct {
	Preset string    `mapstructure:"preset"`
	Gains  []float64 `mapstructure:"gains"` // -12 to +12 dB, empty means preset
}

type ExportConfig struct {
	Dir    string `mapstructure:"dir"`
	Suffix string `mapstructure:"suffix"`
}

type TransformConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	SnippetLength     time.Duration `mapstructure:"snippet_length"`
	SystemInstruction string        `mapstructure:"system_instruction"`
}

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads path, or the first config.yaml found in the usual locations
// when path is empty. A missing file is not an error: defaults and
// environment overrides still apply.
func Load(path string) (*Config, error) {
	c := &Config{v: viper.New()}

	c.v.SetConfigType("yaml")
	if path != "" {
		c.v.SetConfigFile(path)
	} else {
		c.v.SetConfigName("config")
		c.v.AddConfigPath(userConfigDir())
		c.v.AddConfigPath(".")
	}

	c.v.SetEnvPrefix(EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	c.setDefaults()

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		c.loaded = true
	}

	if err := c.v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.openSecrets(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) setDefaults() {
	dataDir := logger.DataDir()

	c.v.SetDefault("app.name", "SonicForge")
	c.v.SetDefault("app.version", "1.0.0")
	c.v.SetDefault("app.data_dir", dataDir)

	c.v.SetDefault("audio.output", "oto")
	c.v.SetDefault("audio.sample_rate", 44100)
	c.v.SetDefault("audio.latency", 100*time.Millisecond)
	c.v.SetDefault("audio.volume", 1.0)
	c.v.SetDefault("audio.resample_quality", 4)

	c.v.SetDefault("equalizer.preset", "flat")
	c.v.SetDefault("equalizer.gains", []float64{})

	c.v.SetDefault("export.dir", ".")
	c.v.SetDefault("export.suffix", "_eq")

	c.v.SetDefault("transform.endpoint", "https://generativelanguage.googleapis.com")
	c.v.SetDefault("transform.model", "gemini-2.5-flash-native-audio-preview-09-2025")
	c.v.SetDefault("transform.api_key", "")
	c.v.SetDefault("transform.timeout", 60*time.Second)
	c.v.SetDefault("transform.snippet_length", 20*time.Second)
	c.v.SetDefault("transform.system_instruction",
		"You are an expert audio engineer. Apply the requested change to the audio you are given.")

	c.v.SetDefault("database.enabled", true)
	c.v.SetDefault("database.path", filepath.Join(dataDir, "presets.db"))

	c.v.SetDefault("logging.level", "info")
	c.v.SetDefault("logging.console", true)
	c.v.SetDefault("logging.file", false)
	c.v.SetDefault("logging.file_path", filepath.Join(dataDir, "logs", "sonicforge.log"))
	c.v.SetDefault("logging.max_size", 50)
	c.v.SetDefault("logging.max_backups", 3)
	c.v.SetDefault("logging.max_age", 14)
	c.v.SetDefault("logging.compress", true)
	c.v.SetDefault("logging.json_format", false)
	c.v.SetDefault("logging.caller", false)
}

// Validate checks the values that would otherwise fail deep inside the
// audio path.
func (c *Config) Validate() error {
	switch c.Audio.Output {
	case "oto", "null":
	default:
		return fmt.Errorf("%w: audio.output %q (want oto or null)", ErrInvalidConfig, c.Audio.Output)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("%w: audio.sample_rate %d", ErrInvalidConfig, c.Audio.SampleRate)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("%w: audio.volume %v not in [0, 1]", ErrInvalidConfig, c.Audio.Volume)
	}
	if n := len(c.Equalizer.Gains); n != 0 && n != domain.NumBands {
		return fmt.Errorf("%w: equalizer.gains has %d values, want %d", ErrInvalidConfig, n, domain.NumBands)
	}
	if c.Transform.SnippetLength <= 0 {
		return fmt.Errorf("%w: transform.snippet_length %v", ErrInvalidConfig, c.Transform.SnippetLength)
	}
	return nil
}

// File returns the config file in use, or "" when running on defaults.
func (c *Config) File() string {
	if !c.loaded {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Watch reloads the file whenever it changes and hands the new values to
// onChange. Invalid edits are logged and ignored.
func (c *Config) Watch(onChange func(*Config)) {
	if c.File() == "" {
		return
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.mu.Lock()
		var next Config
		err := c.v.Unmarshal(&next)
		if err == nil {
			err = next.openSecrets()
		}
		if err == nil {
			err = next.Validate()
		}
		if err != nil {
			c.mu.Unlock()
			logger.Warn("Ignoring invalid config change", logger.String("file", e.Name), logger.Error(err))
			return
		}
		c.App, c.Audio, c.Equalizer = next.App, next.Audio, next.Equalizer
		c.Export, c.Transform, c.Database, c.Logging = next.Export, next.Transform, next.Database, next.Logging
		c.mu.Unlock()

		logger.Info("Config reloaded", logger.String("file", e.Name))
		if onChange != nil {
			onChange(c)
		}
	})
	c.v.WatchConfig()
}

// EqualizerGains returns the configured gains under the read lock.
func (c *Config) EqualizerGains() (preset string, gains []float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Equalizer.Preset, append([]float64(nil), c.Equalizer.Gains...)
}

func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.File() == "" {
		dir := userConfigDir()
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		return c.v.SafeWriteConfigAs(filepath.Join(dir, "config.yaml"))
	}
	return c.v.WriteConfig()
}

func (c *Config) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v.Set(key, value)
}

func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString(key)
}

func userConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "SonicForge")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sonicforge")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "sonicforge")
}
