// Package eventlog persists step telemetry to daily rotated JSONL files.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"agentrunner/pkg/agent"
	"agentrunner/pkg/logx"
)

// Writer appends step events to a JSONL file in the log directory,
// rotating to a new file at each calendar day. It implements
// agent.TelemetrySink.
type Writer struct {
	currentFile *os.File
	logger      *logx.Logger
	logDir      string
	currentDate string
	mu          sync.Mutex
}

// NewWriter creates an event log writer rooted at logDir, creating the
// directory if needed.
func NewWriter(logDir string) (*Writer, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	writer := &Writer{
		logDir: logDir,
		logger: logx.NewLogger("eventlog"),
	}

	if err := writer.rotateIfNeeded(); err != nil {
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}

	return writer, nil
}

// RecordStep implements agent.TelemetrySink. Write failures are logged
// and dropped; telemetry never propagates errors into the run loop.
func (w *Writer) RecordStep(event agent.StepEvent) {
	if err := w.WriteEvent(event); err != nil {
		w.logger.Warn("dropping step event for task %s: %v", event.TaskID, err)
	}
}

// WriteEvent appends one event to the current log file, rotating first
// if the date has changed.
func (w *Writer) WriteEvent(event agent.StepEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfNeeded(); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	jsonData, err := json.Marshal(&event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	if _, err := w.currentFile.Write(jsonData); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if _, err := w.currentFile.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	if err := w.currentFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}

	return nil
}

func (w *Writer) rotateIfNeeded() error {
	newDate := time.Now().Format("2006-01-02")
	if w.currentFile == nil || w.currentDate != newDate {
		return w.rotate(newDate)
	}
	return nil
}

func (w *Writer) rotate(newDate string) error {
	if w.currentFile != nil {
		if err := w.currentFile.Close(); err != nil {
			return fmt.Errorf("failed to close current log file: %w", err)
		}
	}

	path := filepath.Join(w.logDir, fmt.Sprintf("steps-%s.jsonl", newDate))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w.currentFile = file
	w.currentDate = newDate

	return nil
}

// Close closes the current log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile != nil {
		err := w.currentFile.Close()
		w.currentFile = nil
		if err != nil {
			return fmt.Errorf("failed to close event log file: %w", err)
		}
	}

	return nil
}

// CurrentLogFile returns the path of the active log file, or "" if the
// writer is closed.
func (w *Writer) CurrentLogFile() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile == nil {
		return ""
	}
	return filepath.Join(w.logDir, fmt.Sprintf("steps-%s.jsonl", w.currentDate))
}

// ReadEvents reads and parses all events from a log file.
func ReadEvents(logFilePath string) ([]agent.StepEvent, error) {
	data, err := os.ReadFile(logFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	var events []agent.StepEvent
	var line []byte
	flush := func() error {
		if len(line) == 0 {
			return nil
		}
		var event agent.StepEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return fmt.Errorf("failed to parse event: %w", err)
		}
		events = append(events, event)
		line = line[:0]
		return nil
	}
	for _, b := range data {
		if b == '\n' {
			if err := flush(); err != nil {
				return nil, err
			}
		} else {
			line = append(line, b)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return events, nil
}

// ListLogFiles returns all step log files under logDir.
func ListLogFiles(logDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(logDir, "steps-*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}
	return files, nil
}
