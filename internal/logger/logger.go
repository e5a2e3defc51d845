package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is the severity of a log message
type Level int32

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var (
	currentLevel atomic.Int32
	std          = log.New(os.Stdout, "", log.LstdFlags)
)

func init() {
	currentLevel.Store(int32(InfoLevel))
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		SetLevelFromString(level)
	}
}

// SetLevel sets the minimum level that will be printed
func SetLevel(level Level) {
	currentLevel.Store(int32(level))
}

// SetOutput redirects all log output
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetLevelFromString sets the level from debug, info, warn or error
func SetLevelFromString(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		SetLevel(DebugLevel)
	case "info", "":
		SetLevel(InfoLevel)
	case "warn", "warning":
		SetLevel(WarnLevel)
	case "error":
		SetLevel(ErrorLevel)
	default:
		SetLevel(InfoLevel)
		Warn("Unknown log level %s, using info", level)
	}
}

// GetLevel returns the current level as a string
func GetLevel() string {
	switch Level(currentLevel.Load()) {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

func enabled(level Level) bool {
	return Level(currentLevel.Load()) <= level
}

func Debug(format string, v ...interface{}) {
	if enabled(DebugLevel) {
		std.Printf("[DEBUG] "+format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if enabled(InfoLevel) {
		std.Printf("[INFO] "+format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if enabled(WarnLevel) {
		std.Printf("[WARN] "+format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if enabled(ErrorLevel) {
		std.Printf("[ERROR] "+format, v...)
	}
}

// Fatal logs and exits the process
func Fatal(format string, v ...interface{}) {
	std.Printf("[FATAL] "+format, v...)
	os.Exit(1)
}

// WithPrefix returns a logger that tags every message, e.g. "[FETCH] "
func WithPrefix(prefix string) *PrefixLogger {
	return &PrefixLogger{prefix: prefix}
}

// PrefixLogger adds a component tag to all messages
type PrefixLogger struct {
	prefix string
}

func (l *PrefixLogger) Debug(format string, v ...interface{}) {
	Debug(l.prefix+format, v...)
}

func (l *PrefixLogger) Info(format string, v ...interface{}) {
	Info(l.prefix+format, v...)
}

func (l *PrefixLogger) Warn(format string, v ...interface{}) {
	Warn(l.prefix+format, v...)
}

func (l *PrefixLogger) Error(format string, v ...interface{}) {
	Error(l.prefix+format, v...)
}
