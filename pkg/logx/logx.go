// Package logx provides structured logging with env-controlled debug domains.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes leveled, component-tagged log lines to stderr.
type Logger struct {
	component string
	logger    *log.Logger
}

// Level identifies the severity of a log line.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// debugSettings controls debug logging behavior, initialized from the
// environment: DEBUG=1 enables debug output, DEBUG_DOMAINS=loop,tools
// restricts it to specific components.
type debugSettings struct {
	enabled bool
	domains map[string]bool // nil = all domains
}

//nolint:gochecknoglobals // Package-level debug state, set once from env
var (
	debugConfig debugSettings
	debugMutex  sync.RWMutex
)

//nolint:gochecknoinits // Required for env var initialization
func init() {
	initDebugFromEnv()
}

func initDebugFromEnv() {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		debugConfig.enabled = true
	}

	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debugConfig.domains = make(map[string]bool)
		for _, domain := range strings.Split(domains, ",") {
			debugConfig.domains[strings.TrimSpace(domain)] = true
		}
	}
}

// SetDebug overrides the env-derived debug flag. Used by the CLI --debug flag.
func SetDebug(enabled bool) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugConfig.enabled = enabled
}

// IsDebugEnabledFor reports whether debug logging is enabled for a component.
func IsDebugEnabledFor(component string) bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()

	if !debugConfig.enabled {
		return false
	}
	if debugConfig.domains == nil {
		return true
	}
	return debugConfig.domains[component]
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(os.Stderr, "", 0), // stderr keeps stdout clean for answers
	}
}

func (l *Logger) log(level Level, format string, args ...any) {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	message := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] [%s] %s: %s", timestamp, l.component, level, message)
	l.logger.Print(line)
	recordRecent(line)
}

// recentBufferSize bounds the in-memory log tail kept for diagnostics.
const recentBufferSize = 256

//nolint:gochecknoglobals // Shared ring buffer of recent log lines
var (
	recentMu      sync.Mutex
	recentEntries []string
)

func recordRecent(line string) {
	recentMu.Lock()
	defer recentMu.Unlock()
	recentEntries = append(recentEntries, line)
	if len(recentEntries) > recentBufferSize {
		recentEntries = recentEntries[len(recentEntries)-recentBufferSize:]
	}
}

// RecentEntries returns a copy of the most recent log lines, oldest
// first.
func RecentEntries() []string {
	recentMu.Lock()
	defer recentMu.Unlock()
	out := make([]string, len(recentEntries))
	copy(out, recentEntries)
	return out
}

// Debug logs a debug message if debug logging is enabled for this component.
func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabledFor(l.component) {
		return
	}
	l.log(LevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}
