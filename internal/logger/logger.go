// Package logger is the structured log sink for lecnote. Every error that the
// canvas, relay or rasterizer swallows ends up here.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level is the severity of an entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field is a key-value pair attached to an entry.
type Field struct {
	Key   string
	Value interface{}
}

func String(key string, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Component tags entries with the subsystem that produced them.
func Component(name string) Field { return Field{Key: "component", Value: name} }

// Err creates an error field. A nil error is recorded as nil.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger is implemented by DefaultLogger, child loggers and the no-op logger.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	// Error logs err together with a trimmed stack trace.
	Error(msg string, err error, fields ...Field)
	// With returns a logger that prepends fields to every entry.
	With(fields ...Field) Logger
	SetLevel(level Level)
	Close() error
}

// Config controls where entries go.
type Config struct {
	// LogFilePath is the file entries are appended to. Empty means console only.
	LogFilePath string
	// MaxFileSize triggers rotation once the file would grow past it.
	MaxFileSize int64
	// MaxBackups is how many rotated files (.1, .2, ...) are kept.
	MaxBackups int
	Level      Level
	// EnableConsole mirrors entries to stderr.
	EnableConsole bool
}

// DefaultConfig logs info and above to lecnote.log.
func DefaultConfig() *Config {
	return &Config{
		LogFilePath:   "lecnote.log",
		MaxFileSize:   10 * 1024 * 1024,
		MaxBackups:    5,
		Level:         LevelInfo,
		EnableConsole: false,
	}
}

// DefaultLogger writes line-oriented entries to a file and optionally stderr.
type DefaultLogger struct {
	config     *Config
	file       *os.File
	mu         sync.Mutex
	level      Level
	fileSize   int64
	writers    []io.Writer
	timeFormat string
}

// NewDefaultLogger opens the configured log file, creating its directory.
func NewDefaultLogger(config *Config) (*DefaultLogger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	l := &DefaultLogger{
		config:     config,
		level:      config.Level,
		timeFormat: "2006-01-02 15:04:05.000",
	}

	if config.LogFilePath != "" {
		if dir := filepath.Dir(config.LogFilePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		if err := l.openLogFile(); err != nil {
			return nil, err
		}
	}

	l.setupWriters()
	return l, nil
}

// NewWriterLogger logs to w only. Used by tests and the CLI.
func NewWriterLogger(w io.Writer, level Level) *DefaultLogger {
	return &DefaultLogger{
		config:     &Config{Level: level},
		level:      level,
		writers:    []io.Writer{w},
		timeFormat: "2006-01-02 15:04:05.000",
	}
}

func (l *DefaultLogger) openLogFile() error {
	file, err := os.OpenFile(l.config.LogFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	l.file = file
	l.fileSize = info.Size()
	return nil
}

func (l *DefaultLogger) setupWriters() {
	l.writers = l.writers[:0]
	if l.file != nil {
		l.writers = append(l.writers, l.file)
	}
	if l.config.EnableConsole || l.file == nil {
		l.writers = append(l.writers, os.Stderr)
	}
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, nil, fields) }

func (l *DefaultLogger) Info(msg string, fields ...Field) { l.log(LevelInfo, msg, nil, fields) }

func (l *DefaultLogger) Warn(msg string, fields ...Field) { l.log(LevelWarn, msg, nil, fields) }

func (l *DefaultLogger) Error(msg string, err error, fields ...Field) {
	l.log(LevelError, msg, err, fields)
}

func (l *DefaultLogger) With(fields ...Field) Logger {
	return &childLogger{parent: l, fields: fields}
}

func (l *DefaultLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *DefaultLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *DefaultLogger) log(level Level, msg string, err error, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := l.formatEntry(level, msg, err, fields)

	if l.file != nil && l.config.MaxFileSize > 0 && l.fileSize+int64(len(entry)) > l.config.MaxFileSize {
		if rerr := l.rotate(); rerr != nil {
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", rerr)
		}
	}

	for _, w := range l.writers {
		w.Write([]byte(entry))
	}
	l.fileSize += int64(len(entry))
}

func (l *DefaultLogger) formatEntry(level Level, msg string, err error, fields []Field) string {
	var sb strings.Builder

	sb.WriteString(time.Now().Format(l.timeFormat))
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] ")
	sb.WriteString(msg)

	if err != nil {
		sb.WriteString(` error="`)
		sb.WriteString(err.Error())
		sb.WriteString(`"`)
	}

	for _, f := range fields {
		fmt.Fprintf(&sb, " %s=%v", f.Key, f.Value)
	}

	if level == LevelError {
		sb.WriteString("\n")
		sb.WriteString(stackTrace())
	}

	sb.WriteString("\n")
	return sb.String()
}

// stackTrace skips logger frames plus runtime and testing internals.
func stackTrace() string {
	var sb strings.Builder
	sb.WriteString("Stack trace:\n")

	const skip = 4
	written := 0
	for i := skip; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		name := "unknown"
		if fn := runtime.FuncForPC(pc); fn != nil {
			name = fn.Name()
		}
		if strings.HasPrefix(name, "runtime.") || strings.HasPrefix(name, "testing.") {
			continue
		}
		fmt.Fprintf(&sb, "  %s:%d %s\n", file, line, name)
		written++
		if written >= 10 {
			sb.WriteString("  ... (truncated)\n")
			break
		}
	}
	return sb.String()
}

// rotate shifts path.N to path.N+1, moves the live file to path.1 and reopens.
// Caller holds l.mu.
func (l *DefaultLogger) rotate() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	path := l.config.LogFilePath
	os.Remove(fmt.Sprintf("%s.%d", path, l.config.MaxBackups))
	for i := l.config.MaxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", path, i), fmt.Sprintf("%s.%d", path, i+1))
	}
	if l.config.MaxBackups > 0 {
		os.Rename(path, path+".1")
	} else {
		os.Remove(path)
	}

	if err := l.openLogFile(); err != nil {
		return err
	}
	l.setupWriters()
	return nil
}

type childLogger struct {
	parent Logger
	fields []Field
}

func (c *childLogger) merge(fields []Field) []Field {
	out := make([]Field, 0, len(c.fields)+len(fields))
	out = append(out, c.fields...)
	return append(out, fields...)
}

func (c *childLogger) Debug(msg string, fields ...Field) { c.parent.Debug(msg, c.merge(fields)...) }

func (c *childLogger) Info(msg string, fields ...Field) { c.parent.Info(msg, c.merge(fields)...) }

func (c *childLogger) Warn(msg string, fields ...Field) { c.parent.Warn(msg, c.merge(fields)...) }

func (c *childLogger) Error(msg string, err error, fields ...Field) {
	c.parent.Error(msg, err, c.merge(fields)...)
}

func (c *childLogger) With(fields ...Field) Logger {
	return &childLogger{parent: c.parent, fields: c.merge(fields)}
}

func (c *childLogger) SetLevel(level Level) { c.parent.SetLevel(level) }

// Close is a no-op; the parent owns the file.
func (c *childLogger) Close() error { return nil }

var (
	globalLogger Logger
	globalMu     sync.RWMutex
)

// Init replaces the global logger, closing the previous one.
func Init(config *Config) error {
	l, err := NewDefaultLogger(config)
	if err != nil {
		return err
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger != nil {
		globalLogger.Close()
	}
	globalLogger = l
	return nil
}

// GetLogger returns the global logger, or a no-op logger before Init.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return noopLogger{}
	}
	return globalLogger
}

func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Close closes and clears the global logger.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		return nil
	}
	err := globalLogger.Close()
	globalLogger = nil
	return err
}

func Debug(msg string, fields ...Field) { GetLogger().Debug(msg, fields...) }

func Info(msg string, fields ...Field) { GetLogger().Info(msg, fields...) }

func Warn(msg string, fields ...Field) { GetLogger().Warn(msg, fields...) }

func Error(msg string, err error, fields ...Field) { GetLogger().Error(msg, err, fields...) }

// With derives a child logger that resolves the global logger on every call,
// so it may be created before Init.
func With(fields ...Field) Logger { return &childLogger{parent: globalProxy{}, fields: fields} }

type globalProxy struct{}

func (globalProxy) Debug(msg string, fields ...Field) { GetLogger().Debug(msg, fields...) }
func (globalProxy) Info(msg string, fields ...Field)  { GetLogger().Info(msg, fields...) }
func (globalProxy) Warn(msg string, fields ...Field)  { GetLogger().Warn(msg, fields...) }
func (globalProxy) Error(msg string, err error, fields ...Field) {
	GetLogger().Error(msg, err, fields...)
}
func (g globalProxy) With(fields ...Field) Logger { return &childLogger{parent: g, fields: fields} }
func (globalProxy) SetLevel(level Level)          { GetLogger().SetLevel(level) }
func (globalProxy) Close() error                  { return nil }

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field)        {}
func (noopLogger) Info(string, ...Field)         {}
func (noopLogger) Warn(string, ...Field)         {}
func (noopLogger) Error(string, error, ...Field) {}
func (n noopLogger) With(...Field) Logger        { return n }
func (noopLogger) SetLevel(Level)                {}
func (noopLogger) Close() error                  { return nil }
