// Package audit provides structured audit logging for MCP tool calls.
package audit

import (
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	bearerTokenPattern = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]+=*`)
	keyValuePattern    = regexp.MustCompile(`(?i)\b(token|secret|password|authorization|api[_-]?key)\s*[:=]\s*([^\s,;]+)`)
	adminKeyPattern    = regexp.MustCompile(`\b[0-9a-f]{24}:[0-9a-f]{64}\b`)
)

// ToolCallCompletion captures one finalized tool-call outcome.
type ToolCallCompletion struct {
	RequestID    string
	SessionID    string
	Transport    string
	ToolName     string
	CallerHandle string
	Arguments    map[string]any
	Result       string
	ErrorDetail  string
	Duration     time.Duration
	ResponseCode int
}

// TargetSummary is a redacted summary of which content a call touched.
type TargetSummary struct {
	PostIDs []string `json:"post_ids,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Logger emits structured audit entries.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates an audit logger.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Complete writes a single completion log entry for one tool call.
func (l *Logger) Complete(event ToolCallCompletion) {
	if l == nil {
		return
	}

	result := strings.TrimSpace(event.Result)
	if result == "" {
		result = "error"
	}
	tool := strings.TrimSpace(event.ToolName)
	if tool == "" {
		tool = "unknown"
	}
	duration := event.Duration
	if duration < 0 {
		duration = 0
	}

	entry := l.logger.Info().
		Str("event", "mcp.tool_call.completed").
		Str("request_id", strings.TrimSpace(event.RequestID)).
		Str("session_id", strings.TrimSpace(event.SessionID)).
		Str("transport", strings.TrimSpace(event.Transport)).
		Str("tool", tool).
		Str("caller", strings.TrimSpace(event.CallerHandle)).
		Str("result", result).
		Int64("duration_ms", duration.Milliseconds()).
		Interface("target", SummarizeTargets(event.Arguments))

	if event.ResponseCode > 0 {
		entry = entry.Int("response_code", event.ResponseCode)
	}
	if redactedError := RedactSensitiveText(event.ErrorDetail); redactedError != "" {
		entry = entry.Str("error_detail", redactedError)
	}

	entry.Msg("tool call completed")
}

// SummarizeTargets builds a compact target summary from tool arguments.
// Argument values themselves (titles, post bodies, credentials) are never
// logged.
func SummarizeTargets(args map[string]any) TargetSummary {
	if args == nil {
		return TargetSummary{}
	}
	return TargetSummary{
		PostIDs: uniqueStrings(append(
			readStringSlice(args, "ids"),
			readString(args, "id")...,
		)),
		Tags: uniqueStrings(append(
			readStringSlice(args, "tags"),
			readString(args, "tag")...,
		)),
	}
}

// RedactSensitiveText masks bearer tokens, key/value secrets, and Ghost admin
// key material in free-form text.
func RedactSensitiveText(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	redacted := bearerTokenPattern.ReplaceAllString(trimmed, "Bearer [REDACTED]")
	redacted = keyValuePattern.ReplaceAllString(redacted, "$1=[REDACTED]")
	redacted = adminKeyPattern.ReplaceAllString(redacted, "[REDACTED]")
	return redacted
}

func readString(args map[string]any, keys ...string) []string {
	values := make([]string, 0, len(keys))
	for _, key := range keys {
		if value, ok := args[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				values = append(values, trimmed)
			}
		}
	}
	return values
}

func readStringSlice(args map[string]any, keys ...string) []string {
	var values []string
	for _, key := range keys {
		raw, ok := args[key]
		if !ok {
			continue
		}
		switch typed := raw.(type) {
		case []string:
			for _, value := range typed {
				if trimmed := strings.TrimSpace(value); trimmed != "" {
					values = append(values, trimmed)
				}
			}
		case []any:
			for _, item := range typed {
				if value, ok := item.(string); ok {
					if trimmed := strings.TrimSpace(value); trimmed != "" {
						values = append(values, trimmed)
					}
				}
			}
		}
	}
	return values
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
