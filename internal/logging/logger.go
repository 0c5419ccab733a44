// Package logging provides categorized file-based logging for quotamon.
// Logs are written to <config dir>/logs/ with separate files per category.
// Logging is controlled by debug_mode in config.toml - when false, no logs
// are written. The TUI owns the terminal, so nothing ever goes to stdout.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config resolution
	CategoryAPI     Category = "api"     // Usage endpoint calls
	CategoryAuth    Category = "auth"    // Credential lookup and setup
	CategoryUI      Category = "ui"      // Dashboard lifecycle
	CategoryHistory Category = "history" // Snapshot store
	CategoryWatch   Category = "watch"   // Credential/config file watcher
)

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	logsDir string
	enabled bool
	initMu  sync.Mutex
)

// Initialize sets up the logging directory. Should be called once at startup
// with the config directory and the debug_mode setting. A no-op when debug
// mode is off.
func Initialize(configDir string, debugMode bool) error {
	initMu.Lock()
	enabled = debugMode
	if !enabled {
		initMu.Unlock()
		return nil
	}
	logsDir = filepath.Join(configDir, "logs")
	dir := logsDir
	initMu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	Get(CategoryBoot).Info("=== quotamon logging initialized ===")
	Get(CategoryBoot).Info("logs directory: %s", dir)
	return nil
}

// Enabled reports whether debug logging is active.
func Enabled() bool {
	initMu.Lock()
	defer initMu.Unlock()
	return enabled
}

func state() (bool, string) {
	initMu.Lock()
	defer initMu.Unlock()
	return enabled, logsDir
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger when debug mode is disabled.
func Get(category Category) *Logger {
	on, dir := state()
	if !on || dir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation trivial: delete old files by name.
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience helpers; no-ops unless debug mode is on.

// API logs to the api category.
func API(format string, args ...interface{}) { Get(CategoryAPI).Info(format, args...) }

// Auth logs to the auth category.
func Auth(format string, args ...interface{}) { Get(CategoryAuth).Info(format, args...) }

// UI logs to the ui category.
func UI(format string, args ...interface{}) { Get(CategoryUI).Info(format, args...) }
