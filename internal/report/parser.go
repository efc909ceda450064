package report

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Parser deserializes a report file back into structured data.
type Parser interface {
	Parse(data []byte) (*FocusReport, error)
}

// ParserFor picks a parser from the file extension.
func ParserFor(filename string) Parser {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		return &JSONParser{}
	}
	return &MarkdownParser{}
}

// JSONParser parses a JSON-encoded FocusReport.
type JSONParser struct{}

func (p *JSONParser) Parse(data []byte) (*FocusReport, error) {
	var report FocusReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse JSON report: %w", err)
	}
	return &report, nil
}

// MarkdownParser parses a Markdown-rendered FocusReport by extracting the
// embedded base64 JSON payload from the sentinel comments.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(data []byte) (*FocusReport, error) {
	content := string(data)

	if !strings.Contains(content, versionSentinel) {
		return nil, fmt.Errorf("not a valid focustrail report: missing version sentinel")
	}

	start := strings.Index(content, dataPrefix)
	if start == -1 {
		return nil, fmt.Errorf("not a valid focustrail report: missing data payload")
	}
	start += len(dataPrefix)
	end := strings.Index(content[start:], dataSuffix)
	if end == -1 {
		return nil, fmt.Errorf("not a valid focustrail report: malformed data payload")
	}
	encoded := content[start : start+end]

	jsonBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("not a valid focustrail report: corrupted base64 payload: %w", err)
	}

	var report FocusReport
	if err := json.Unmarshal(jsonBytes, &report); err != nil {
		return nil, fmt.Errorf("not a valid focustrail report: failed to parse embedded JSON: %w", err)
	}
	return &report, nil
}
