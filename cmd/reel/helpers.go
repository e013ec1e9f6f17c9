package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reel/internal/config"
	"reel/internal/registry"
	"reel/internal/workflows"
)

// parseExtra turns repeated key=value flags into the pass-through parameter
// map. A value that parses as a JSON number, bool, object, or array keeps
// its type; anything else stays a string.
func parseExtra(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	extra := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid extra parameter %q (expected key=value)", pair)
		}
		extra[key] = parseExtraValue(value)
	}
	return extra, nil
}

func parseExtraValue(raw string) any {
	decoder := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err == nil {
		switch value.(type) {
		case json.Number, bool, map[string]any, []any:
			return value
		}
	}
	return raw
}

func pollRequest(enabled bool, intervalSeconds, timeoutSeconds int) workflows.PollRequest {
	return workflows.PollRequest{
		Enabled:  enabled,
		Interval: time.Duration(intervalSeconds) * time.Second,
		Timeout:  time.Duration(timeoutSeconds) * time.Second,
	}
}

// jobFilename accepts either a bare registry filename or a full
// "<filename> | <id> | <status>" label and returns the filename.
func jobFilename(arg string) string {
	if strings.Contains(arg, "|") {
		return registry.FilenameFromLabel(arg)
	}
	return strings.TrimSpace(arg)
}

// statusDisplay renders an API status for table output, e.g. "in_progress"
// becomes "In Progress".
func statusDisplay(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return "Unknown"
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(status, "_", " "))
}

// expandOutputDir resolves a --output-dir flag value, leaving "" for the
// configured default.
func expandOutputDir(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	expanded, err := config.ExpandPath(value)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	return expanded, nil
}

// expandInputPath resolves a local media path argument and checks it exists.
func expandInputPath(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	expanded, err := config.ExpandPath(value)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", value, err)
	}
	if _, err := os.Stat(expanded); err != nil {
		return "", fmt.Errorf("inspect path %q: %w", expanded, err)
	}
	return expanded, nil
}
