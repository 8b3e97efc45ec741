package eventlog

import (
	"os"
	"strings"
	"testing"
	"time"

	"agentrunner/pkg/agent"
)

func testEvent(taskID string, sequence int) agent.StepEvent {
	return agent.StepEvent{
		Timestamp: time.Now().UTC(),
		TaskID:    taskID,
		Outcome:   "action",
		Target:    "tool:calculator",
		Duration:  150 * time.Millisecond,
		Sequence:  sequence,
	}
}

func TestNewWriter(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewWriter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	currentFile := writer.CurrentLogFile()
	if currentFile == "" {
		t.Error("No current log file set")
	}
	if _, err := os.Stat(currentFile); os.IsNotExist(err) {
		t.Error("Current log file does not exist")
	}
}

func TestWriteEvent(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewWriter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	if err := writer.WriteEvent(testEvent("task-1", 0)); err != nil {
		t.Fatalf("Failed to write event: %v", err)
	}

	data, err := os.ReadFile(writer.CurrentLogFile())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"task_id":"task-1"`) {
		t.Errorf("Log file missing task id: %s", data)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("Log line should end with newline")
	}
}

func TestReadEventsRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewWriter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := writer.WriteEvent(testEvent("task-rt", i)); err != nil {
			t.Fatalf("Failed to write event %d: %v", i, err)
		}
	}
	path := writer.CurrentLogFile()
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("Failed to read events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	for i, event := range events {
		if event.Sequence != i {
			t.Errorf("Event %d has sequence %d", i, event.Sequence)
		}
		if event.TaskID != "task-rt" {
			t.Errorf("Event %d has task id %q", i, event.TaskID)
		}
	}
}

func TestRecordStepNeverPanics(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewWriter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	// Closed writer rotates and reopens; RecordStep must not panic
	// even if the write path fails.
	writer.RecordStep(testEvent("task-closed", 0))
}

func TestListLogFiles(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewWriter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	files, err := ListLogFiles(tmpDir)
	if err != nil {
		t.Fatalf("Failed to list log files: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("Expected 1 log file, got %d", len(files))
	}
}
