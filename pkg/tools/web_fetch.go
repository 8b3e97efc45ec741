package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// ToolWebFetch is the constant name for the web fetch tool.
const ToolWebFetch = "web_fetch"

const (
	maxFetchBodyBytes  = 100 * 1024 // Raw body cap before text extraction
	maxFetchOutputRune = 50000      // Extracted text cap
	maxFetchRedirects  = 5
)

// WebFetchTool fetches a web page and returns its readable text content
// so the model can ground an answer in live page content.
type WebFetchTool struct {
	httpClient *http.Client
}

// NewWebFetchTool creates a new web fetch tool.
func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxFetchRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// Name returns the tool name.
func (t *WebFetchTool) Name() string {
	return ToolWebFetch
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *WebFetchTool) PromptDocumentation() string {
	return `- **web_fetch** - Fetch and read content from a web page URL
  - Parameters: url (string, REQUIRED)
  - Returns text content extracted from the page (HTML tags stripped)
  - Best for documentation pages and API references
  - Has a 100KB size limit to avoid huge pages`
}

// Definition returns the tool definition for the model.
func (t *WebFetchTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolWebFetch,
		Description: "Fetch a web page and return its readable text content. Strips HTML tags; best suited for documentation and reference pages.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"url": {
					Type:        "string",
					Description: "Full URL to fetch (must start with http:// or https://)",
				},
			},
			Required: []string{"url"},
		},
	}
}

// Exec fetches the URL and returns extracted text. Network and HTTP
// failures are returned as errors so the dispatcher's retry policy can
// classify them.
func (t *WebFetchTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	urlStr, ok := args["url"].(string)
	if !ok || urlStr == "" {
		return nil, fmt.Errorf("url is required and must be a string")
	}
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		return nil, fmt.Errorf("url must start with http:// or https://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "agentrunner/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned HTTP %d for %s", resp.StatusCode, urlStr)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !isTextContent(contentType) {
		return nil, fmt.Errorf("unsupported content type %q (only text content supported)", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	text := extractText(string(body))
	if len(text) > maxFetchOutputRune {
		text = text[:maxFetchOutputRune] + "\n[content truncated]"
	}

	title := extractTitle(string(body))
	if title != "" {
		text = title + "\n\n" + text
	}
	return &ExecResult{Content: text}, nil
}

// isTextContent checks if the content type is text-based.
func isTextContent(contentType string) bool {
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "text/plain") ||
		strings.Contains(contentType, "application/xhtml") ||
		strings.Contains(contentType, "application/xml") ||
		strings.Contains(contentType, "text/xml")
}

//nolint:gochecknoglobals // Compiled once, read-only
var (
	titleRe   = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	scriptRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockRe   = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr)[^>]*>|<(br|hr)[^>]*>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
)

// extractTitle extracts the title from HTML content.
func extractTitle(html string) string {
	if matches := titleRe.FindStringSubmatch(html); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

// extractText extracts readable text from HTML content.
func extractText(html string) string {
	html = scriptRe.ReplaceAllString(html, "")
	html = styleRe.ReplaceAllString(html, "")
	html = commentRe.ReplaceAllString(html, "")
	html = blockRe.ReplaceAllString(html, "\n")
	text := tagRe.ReplaceAllString(html, "")

	replacements := [][2]string{
		{"&nbsp;", " "}, {"&amp;", "&"}, {"&lt;", "<"}, {"&gt;", ">"},
		{"&quot;", "\""}, {"&#39;", "'"}, {"&apos;", "'"},
	}
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r[0], r[1])
	}

	text = spaceRe.ReplaceAllString(text, " ")
	text = newlineRe.ReplaceAllString(text, "\n\n")

	var cleanLines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleanLines = append(cleanLines, trimmed)
		}
	}
	return strings.Join(cleanLines, "\n")
}
