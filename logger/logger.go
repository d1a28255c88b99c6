package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"
)

// LogLevel represents the log level
type LogLevel int

const (
	// DEBUG level
	DEBUG LogLevel = iota
	// INFO level
	INFO
	// WARN level
	WARN
	// ERROR level
	ERROR
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var levelColors = map[LogLevel]string{
	DEBUG: "\033[90m",
	INFO:  "\033[32m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

// Logger writes leveled, timestamped log entries to a file, optionally
// mirrored to the console, rotating the file once it grows past maxSize.
type Logger struct {
	mu          sync.Mutex
	level       LogLevel
	file        *os.File
	console     bool
	filePath    string
	maxSize     int64
	maxBackups  int
	currentSize int64
}

// LoggerConfig represents the configuration for the logger
type LoggerConfig struct {
	// Log level
	Level LogLevel
	// Log file path
	FilePath string
	// Maximum log file size in MB before rotation
	MaxSize int
	// Maximum number of rotated backups to keep
	MaxBackups int
	// Whether to mirror log output to the console
	Console bool
}

// DefaultConfig returns default logger configuration
func DefaultConfig() LoggerConfig {
	return LoggerConfig{
		Level:      INFO,
		FilePath:   "./logs/app.log",
		MaxSize:    10,
		MaxBackups: 5,
		Console:    true,
	}
}

// New creates a new logger
func New(config LoggerConfig) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %v", err)
	}

	return &Logger{
		level:       config.Level,
		file:        file,
		console:     config.Console,
		filePath:    config.FilePath,
		maxSize:     int64(config.MaxSize) * 1024 * 1024,
		maxBackups:  config.MaxBackups,
		currentSize: info.Size(),
	}, nil
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(3)
	if !ok {
		file = "unknown"
		line = 0
	}
	file = filepath.Base(file)

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)

	plain := fmt.Sprintf("%s [%s] %s:%d: %s\n", timestamp, levelNames[level], file, line, msg)
	n, err := io.WriteString(l.file, plain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write log: %v\n", err)
		return
	}
	l.currentSize += int64(n)

	if l.console {
		fmt.Fprintf(os.Stdout, "%s [%s%s\033[0m] %s:%d: %s\n",
			timestamp, levelColors[level], levelNames[level], file, line, msg)
	}

	if l.currentSize >= l.maxSize {
		l.rotate()
	}
}

// rotate renames the current log file to a timestamped backup and opens a
// fresh one. Called with the mutex held.
func (l *Logger) rotate() {
	l.file.Close()

	stamp := time.Now().Format("20060102-150405")
	ext := filepath.Ext(l.filePath)
	backupPath := fmt.Sprintf("%s.%s%s", l.filePath[:len(l.filePath)-len(ext)], stamp, ext)
	os.Rename(l.filePath, backupPath)

	l.pruneBackups()

	file, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create new log file: %v\n", err)
		return
	}
	l.file = file
	l.currentSize = 0
}

// pruneBackups deletes the oldest rotated files beyond maxBackups.
func (l *Logger) pruneBackups() {
	ext := filepath.Ext(l.filePath)
	base := l.filePath[:len(l.filePath)-len(ext)]
	matches, err := filepath.Glob(base + ".*" + ext)
	if err != nil || len(matches) <= l.maxBackups {
		return
	}

	// Backup names embed their creation time, so lexical order is age order.
	sort.Strings(matches)
	for _, path := range matches[:len(matches)-l.maxBackups] {
		os.Remove(path)
	}
}

// Debug logs debug level messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs info level messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs warning level messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs error level messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// Close closes the logger
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
