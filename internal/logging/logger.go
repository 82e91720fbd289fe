// Package logging provides structured logging with file and console output.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps a config string onto a Level, defaulting to INFO
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides structured logging
type Logger struct {
	level   zap.AtomicLevel
	base    *zap.Logger
	sugar   *zap.SugaredLogger
	pkg     *zap.SugaredLogger
	rolling *RollingWriter
}

// Config holds logger configuration
type Config struct {
	Level       Level
	LogDir      string // Directory for log files
	EnableFile  bool   // Write to file
	EnableColor bool   // Color console output
	EnableJSON  bool   // JSON lines instead of plain text in the log file
	Component   string // Attached to every entry as "component"
	Version     string // Attached to every entry as "version"
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	Compress    bool
	Output      io.Writer // Console sink, stdout when nil
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
	once          sync.Once
)

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Level:       INFO,
		LogDir:      "logs",
		EnableFile:  true,
		EnableColor: true,
		EnableJSON:  true,
		MaxSizeMB:   10,
		MaxBackups:  5,
		MaxAgeDays:  7,
		Compress:    true,
	}
}

// New creates a new logger with the given config
func New(cfg Config) (*Logger, error) {
	l := &Logger{level: zap.NewAtomicLevelAt(cfg.Level.zapLevel())}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if cfg.EnableColor {
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(zapcore.AddSync(out)), l.level),
	}

	if cfg.EnableFile {
		rc := DefaultRollingConfig()
		rc.LogDir = cfg.LogDir
		if cfg.MaxSizeMB > 0 {
			rc.MaxSize = int64(cfg.MaxSizeMB) * 1024 * 1024
		}
		if cfg.MaxBackups > 0 {
			rc.MaxBackups = cfg.MaxBackups
		}
		if cfg.MaxAgeDays > 0 {
			rc.MaxAge = cfg.MaxAgeDays
		}
		rc.Compress = cfg.Compress

		rw, err := NewRollingWriter(rc, cfg.EnableJSON)
		if err != nil {
			return nil, err
		}
		l.rolling = rw

		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileEnc := zapcore.NewJSONEncoder(fileCfg)
		if !cfg.EnableJSON {
			fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
			fileEnc = zapcore.NewConsoleEncoder(fileCfg)
		}
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(rw), l.level))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	if cfg.Component != "" {
		base = base.With(zap.String("component", cfg.Component))
	}
	if cfg.Version != "" {
		base = base.With(zap.String("version", cfg.Version))
	}

	l.base = base
	l.sugar = base.Sugar()
	l.pkg = base.WithOptions(zap.AddCallerSkip(1)).Sugar()
	return l, nil
}

// GetDefault returns the default logger, initializing it if needed
func GetDefault() *Logger {
	once.Do(func() {
		l, err := New(DefaultConfig())
		if err != nil {
			// Fallback to console-only logging
			cfg := DefaultConfig()
			cfg.EnableFile = false
			l, _ = New(cfg)
		}
		defaultMu.Lock()
		if defaultLogger == nil {
			defaultLogger = l
		}
		defaultMu.Unlock()
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(l *Logger) {
	once.Do(func() {})
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Zap exposes the underlying zap logger for libraries that take one
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Close flushes buffered entries and closes the log file
func (l *Logger) Close() error {
	_ = l.base.Sync()
	if l.rolling != nil {
		return l.rolling.Close()
	}
	return nil
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugf(msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.sugar.Infof(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnf(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.sugar.Errorf(msg, args...)
}

// Package-level convenience functions using default logger

// Debug logs a debug message using the default logger
func Debug(msg string, args ...interface{}) {
	GetDefault().pkg.Debugf(msg, args...)
}

// Info logs an info message using the default logger
func Info(msg string, args ...interface{}) {
	GetDefault().pkg.Infof(msg, args...)
}

// Warn logs a warning message using the default logger
func Warn(msg string, args ...interface{}) {
	GetDefault().pkg.Warnf(msg, args...)
}

// Error logs an error message using the default logger
func Error(msg string, args ...interface{}) {
	GetDefault().pkg.Errorf(msg, args...)
}

// Fields are structured context attached to a FieldLogger
type Fields map[string]interface{}

// WithFields logs with additional context fields
func (l *Logger) WithFields(fields Fields) *FieldLogger {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &FieldLogger{sugar: l.sugar.With(kv...)}
}

// FieldLogger provides structured field logging
type FieldLogger struct {
	sugar *zap.SugaredLogger
}

func (fl *FieldLogger) Debug(msg string, args ...interface{}) {
	fl.sugar.Debugf(msg, args...)
}

func (fl *FieldLogger) Info(msg string, args ...interface{}) {
	fl.sugar.Infof(msg, args...)
}

func (fl *FieldLogger) Warn(msg string, args ...interface{}) {
	fl.sugar.Warnf(msg, args...)
}

func (fl *FieldLogger) Error(msg string, args ...interface{}) {
	fl.sugar.Errorf(msg, args...)
}
