package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level controls which entries a Logger writes.
type Level int

const (
	// LevelError writes only errors
	LevelError Level = iota
	// LevelWarn writes warnings and errors
	LevelWarn
	// LevelInfo writes informational entries (default)
	LevelInfo
	// LevelDebug writes everything
	LevelDebug
)

// ParseLevel maps a configured verbosity name onto a Level.
// quiet, normal, verbose and debug are accepted.
func ParseLevel(verbosity string) (Level, error) {
	switch verbosity {
	case "quiet":
		return LevelWarn, nil
	case "", "normal", "verbose":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown verbosity %q", verbosity)
	}
}

// Logger provides component-scoped logging for flowguard.
// File loggers write to ~/.flowguard/logs/<run-id>-flowguard.log.
type Logger struct {
	runID     string
	component string
	level     Level
	file      *os.File
	logger    *log.Logger
	mu        *sync.Mutex
	logPath   string
	closeOnce *sync.Once
}

var (
	// Global run ID for the current process
	runID     string
	runIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	// initOnce ensures directory initialization happens once
	initOnce sync.Once

	// initErr stores any error from directory initialization
	initErr error
)

func getRunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir != "" {
			initErr = os.MkdirAll(logDir, 0750)
			return
		}

		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}

		logDir = filepath.Join(homeDir, ".flowguard", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// NewLogger creates a file logger for a specific component.
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	id := getRunID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-flowguard.log", id))

	// Append mode: every component of a run shares one file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return newFallbackLogger(component, fmt.Errorf("failed to open log file: %w", err)), err
	}

	return &Logger{
		runID:     id,
		component: component,
		level:     LevelInfo,
		file:      file,
		logger:    log.New(file, "", 0),
		mu:        &sync.Mutex{},
		logPath:   logPath,
		closeOnce: &sync.Once{},
	}, nil
}

// NewWriterLogger creates a logger that writes to w instead of a file.
func NewWriterLogger(component string, w io.Writer) *Logger {
	return &Logger{
		runID:     getRunID(),
		component: component,
		level:     LevelDebug,
		logger:    log.New(w, "", 0),
		mu:        &sync.Mutex{},
		closeOnce: &sync.Once{},
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewWriterLogger("nop", io.Discard)
}

func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, "", 0)
	logger.Printf("WARNING: Failed to initialize file logging: %v", err)
	logger.Printf("Falling back to stderr logging")

	return &Logger{
		runID:     getRunID(),
		component: component,
		level:     LevelInfo,
		logger:    logger,
		mu:        &sync.Mutex{},
		closeOnce: &sync.Once{},
	}
}

// With returns a logger for another component sharing this logger's sink and level.
func (l *Logger) With(component string) *Logger {
	child := *l
	child.component = component
	return &child
}

// SetLevel changes the minimum level written by this logger.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) write(level Level, name, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level > l.level {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, v...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, name, message))
}

// Printf logs a formatted message at info level
func (l *Logger) Printf(format string, v ...interface{}) {
	l.write(LevelInfo, "INFO", format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write(LevelInfo, "INFO", format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write(LevelWarn, "WARN", format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write(LevelError, "ERROR", format, v...)
}

// RunID returns the run ID shared by every logger in this process
func (l *Logger) RunID() string {
	return l.runID
}

// LogPath returns the path to the log file, empty for writer loggers
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// GetRunID returns the current global run ID
func GetRunID() string {
	return getRunID()
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
