package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ToolReadFile is the constant name for the read file tool.
const ToolReadFile = "read_file"

const (
	defaultReadLines   = 2000 // Default number of lines to read
	maxLineLength      = 2000 // Truncate lines longer than this
	defaultStartOffset = 1    // 1-based line numbering
)

// ReadFileTool reads file contents from a workspace directory. Paths are
// resolved relative to the workspace root and may not escape it.
type ReadFileTool struct {
	workspaceRoot string
	maxSizeBytes  int64
}

// NewReadFileTool creates a new read_file tool rooted at the given
// directory.
func NewReadFileTool(workspaceRoot string, maxSizeBytes int64) *ReadFileTool {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 1048576 // Default: 1MB
	}
	if workspaceRoot == "" {
		workspaceRoot = "."
	}
	return &ReadFileTool{
		workspaceRoot: workspaceRoot,
		maxSizeBytes:  maxSizeBytes,
	}
}

// Name returns the tool name.
func (t *ReadFileTool) Name() string {
	return ToolReadFile
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *ReadFileTool) PromptDocumentation() string {
	return `- **read_file** - Read contents of a file from the workspace
  - Parameters:
    - path (string, REQUIRED): relative path to file within workspace
    - offset (integer, optional): line number to start from (1-based, default: 1)
    - limit (integer, optional): number of lines to read (default: 2000)
  - Output uses numbered lines
  - Lines longer than 2000 characters are truncated
  - For large files, use offset and limit to read specific sections`
}

// Definition returns the tool definition for the model.
func (t *ReadFileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolReadFile,
		Description: "Read contents of a file from the workspace. Output uses numbered lines. For large files, use offset and limit to read specific sections.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Relative path to file within workspace",
				},
				"offset": {
					Type:        "integer",
					Description: "Line number to start reading from (1-based). Defaults to 1.",
				},
				"limit": {
					Type:        "integer",
					Description: "Number of lines to read. Defaults to 2000.",
				},
			},
			Required: []string{"path"},
		},
	}
}

// intArgOrDefault extracts an integer argument, returning defaultVal if
// missing or invalid. Handles float64 (from JSON unmarshal), int, and
// int64 value types.
func intArgOrDefault(args map[string]any, key string, defaultVal int) int {
	v, exists := args[key]
	if !exists {
		return defaultVal
	}
	var n int
	switch val := v.(type) {
	case float64:
		n = int(val)
	case int:
		n = val
	case int64:
		n = int(val)
	default:
		return defaultVal
	}
	if n < 1 {
		return defaultVal
	}
	return n
}

// Exec reads the requested line range and returns it with line numbers.
func (t *ReadFileTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("path is required and must be a string")
	}

	offset := intArgOrDefault(args, "offset", defaultStartOffset)
	limit := intArgOrDefault(args, "limit", defaultReadLines)

	cleanPath := filepath.Clean(path)
	if strings.HasPrefix(cleanPath, "..") || filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("path must be relative to the workspace and may not escape it")
	}

	fullPath := filepath.Join(t.workspaceRoot, cleanPath)
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("file not found or not readable: %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	var sb strings.Builder
	endLine := offset + limit - 1
	lineNum := 0
	truncated := false

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNum++
		if lineNum < offset {
			continue
		}
		if lineNum > endLine {
			truncated = true
			break
		}
		line := scanner.Text()
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		sb.WriteString(fmt.Sprintf("%6d\t%s\n", lineNum, line))
		if int64(sb.Len()) > t.maxSizeBytes {
			truncated = true
			break
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, scanErr)
	}

	content := sb.String()
	if truncated {
		content += "[output truncated; use offset and limit to read more]\n"
	}
	if content == "" {
		content = "(file is empty or offset is past end of file)\n"
	}
	return &ExecResult{Content: content}, nil
}
