package logger

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	instance *Logger
	once     sync.Once
)

type Logger struct {
	logger     zerolog.Logger
	mu         sync.RWMutex
	level      zerolog.Level
	outputs    []io.Writer
	fileWriter *lumberjack.Logger
}

type Config struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
	JSONFormat bool   `mapstructure:"json_format"`
	Caller     bool   `mapstructure:"caller"`

	// Writer replaces stderr for console output when set.
	Writer io.Writer `mapstructure:"-"`
}

func Get() *Logger {
	once.Do(func() {
		instance = &Logger{}
		cfg := DefaultConfig()
		cfg.File = false
		instance.initialize(cfg)
	})
	return instance
}

func Initialize(cfg Config) {
	Get().initialize(cfg)
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Console:    true,
		File:       false,
		FilePath:   filepath.Join(DataDir(), "logs", "sonicforge.log"),
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
		JSONFormat: false,
		Caller:     false,
	}
}

func (l *Logger) initialize(cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	l.level = level

	if l.fileWriter != nil {
		_ = l.fileWriter.Close()
		l.fileWriter = nil
	}
	l.outputs = []io.Writer{}

	if cfg.Console {
		out := cfg.Writer
		if out == nil {
			out = os.Stderr
		}
		if cfg.JSONFormat {
			l.outputs = append(l.outputs, out)
		} else {
			l.outputs = append(l.outputs, zerolog.ConsoleWriter{
				Out:        out,
				NoColor:    cfg.Writer != nil,
				TimeFormat: "15:04:05",
				FormatLevel: func(i interface{}) string {
					return strings.ToUpper(fmt.Sprintf("%-5s", i))
				},
				FormatFieldName: func(i interface{}) string {
					return fmt.Sprintf("%s:", i)
				},
			})
		}
	}

	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		}
		l.fileWriter = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		l.outputs = append(l.outputs, l.fileWriter)
	}

	l.logger = zerolog.New(zerolog.MultiLevelWriter(l.outputs...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	if cfg.Caller {
		l.logger = l.logger.With().CallerWithSkipFrameCount(5).Logger()
	}

	log.Logger = l.logger
}

func (l *Logger) log(event func() *zerolog.Event, msg string, fields []Field) {
	e := event()
	for _, field := range fields {
		e = field.Apply(e)
	}
	e.Msg(msg)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.log(l.logger.Debug, msg, fields)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.log(l.logger.Info, msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.log(l.logger.Warn, msg, fields)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.log(l.logger.Error, msg, fields)
}

func (l *Logger) Fatal(msg string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.log(l.logger.Fatal, msg, fields)
}

func (l *Logger) WithFields(fields ...Field) *LoggerContext {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ctx := l.logger.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &LoggerContext{logger: ctx.Logger()}
}

func (l *Logger) SetLevel(level string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}

	l.level = lvl
	l.logger = l.logger.Level(lvl)
	return nil
}

func (l *Logger) GetLevel() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level.String()
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileWriter != nil {
		err := l.fileWriter.Close()
		l.fileWriter = nil
		return err
	}
	return nil
}

// LoggerContext carries fields attached with WithFields.
type LoggerContext struct {
	logger zerolog.Logger
}

func (lc *LoggerContext) Debug(msg string) { lc.logger.Debug().Msg(msg) }
func (lc *LoggerContext) Info(msg string)  { lc.logger.Info().Msg(msg) }
func (lc *LoggerContext) Warn(msg string)  { lc.logger.Warn().Msg(msg) }
func (lc *LoggerContext) Error(msg string) { lc.logger.Error().Msg(msg) }

type Field struct {
	Key   string
	Value interface{}
}

func (f Field) Apply(event *zerolog.Event) *zerolog.Event {
	switch v := f.Value.(type) {
	case error:
		return event.AnErr(f.Key, v)
	case time.Duration:
		return event.Dur(f.Key, v)
	default:
		return event.Interface(f.Key, f.Value)
	}
}

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Package-level convenience functions
func Debug(msg string, fields ...Field) {
	Get().Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	Get().Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	Get().Warn(msg, fields...)
}

func ErrorLog(msg string, fields ...Field) {
	Get().Error(msg, fields...)
}

func Fatal(msg string, fields ...Field) {
	Get().Fatal(msg, fields...)
}

func WithFields(fields ...Field) *LoggerContext {
	return Get().WithFields(fields...)
}

// DataDir is where sonicforge keeps logs and its preset database.
func DataDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "SonicForge")
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "sonicforge")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "sonicforge")
}

// Transport logs every outbound request made through next.
func Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)

		fields := []Field{
			String("method", r.Method),
			String("host", r.URL.Host),
			String("path", r.URL.Path),
			Duration("duration", time.Since(start)),
		}
		if err != nil {
			Get().Warn("HTTP request failed", append(fields, Error(err))...)
			return nil, err
		}

		Get().Debug("HTTP request", append(fields, Int("status", resp.StatusCode))...)
		return resp, nil
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
