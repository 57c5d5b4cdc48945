package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

// Log levels
const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// Logger writes leveled, caller-annotated lines. Child loggers created with
// Named share the parent's output and level.
type Logger struct {
	level     *LogLevel
	logger    *log.Logger
	file      *os.File
	useColors bool
	component string
}

var levelColors = map[LogLevel]string{
	DEBUG: "\033[36m", // Cyan
	INFO:  "\033[32m", // Green
	WARN:  "\033[33m", // Yellow
	ERROR: "\033[31m", // Red
	FATAL: "\033[35m", // Magenta
}

var levelPrefixes = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO ",
	WARN:  "WARN ",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// ParseLevel maps a level name to a LogLevel, falling back to INFO.
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// NewLogger creates a console logger with the specified log level
func NewLogger(levelStr string) *Logger {
	level := ParseLevel(levelStr)
	l := &Logger{
		level:     &level,
		logger:    log.New(os.Stdout, "", 0),
		useColors: isTerminal(os.Stdout),
	}
	return l
}

// New creates a logger writing to w without colors. Used by tests and tools.
func New(levelStr string, w io.Writer) *Logger {
	level := ParseLevel(levelStr)
	return &Logger{
		level:  &level,
		logger: log.New(w, "", 0),
	}
}

// NewMultiLogger creates a logger that writes to both console and file
func NewMultiLogger(levelStr, filePath string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := NewLogger(levelStr)
	l.logger.SetOutput(io.MultiWriter(os.Stdout, file))
	l.file = file
	// color codes would end up in the file
	l.useColors = false

	return l, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Named returns a child logger whose lines are tagged with component.
func (l *Logger) Named(component string) *Logger {
	child := *l
	if l.component != "" {
		child.component = l.component + "." + component
	} else {
		child.component = component
	}
	// the file handle stays owned by the root logger
	child.file = nil
	return &child
}

// output formats and writes one line. depth is the caller depth of the
// public method that was invoked.
func (l *Logger) output(level LogLevel, depth int, msg string) {
	if level < *l.level {
		return
	}

	_, file, line, ok := runtime.Caller(depth)
	if !ok {
		file = "unknown"
		line = 0
	}

	prefix := fmt.Sprintf("%s [%s] %s:%d:",
		time.Now().Format("2006/01/02 15:04:05"), levelPrefixes[level], filepath.Base(file), line)
	if l.useColors {
		prefix = levelColors[level] + prefix + "\033[0m"
	}
	if l.component != "" {
		prefix += " [" + l.component + "]"
	}

	l.logger.Println(prefix, msg)

	if level == FATAL {
		l.Close()
		os.Exit(1)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(v ...interface{}) { l.output(DEBUG, 2, fmt.Sprint(v...)) }

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.output(DEBUG, 2, fmt.Sprintf(format, v...))
}

// Info logs an info message
func (l *Logger) Info(v ...interface{}) { l.output(INFO, 2, fmt.Sprint(v...)) }

// Infof logs a formatted info message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.output(INFO, 2, fmt.Sprintf(format, v...))
}

// Warn logs a warning message
func (l *Logger) Warn(v ...interface{}) { l.output(WARN, 2, fmt.Sprint(v...)) }

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.output(WARN, 2, fmt.Sprintf(format, v...))
}

// Error logs an error message
func (l *Logger) Error(v ...interface{}) { l.output(ERROR, 2, fmt.Sprint(v...)) }

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.output(ERROR, 2, fmt.Sprintf(format, v...))
}

// Fatalf logs a formatted fatal message and exits the program
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.output(FATAL, 2, fmt.Sprintf(format, v...))
}

// SetLevel changes the level for this logger and every child sharing it.
func (l *Logger) SetLevel(levelStr string) {
	*l.level = ParseLevel(levelStr)
}

// Close closes the logger's file if it exists
func (l *Logger) Close() {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}
