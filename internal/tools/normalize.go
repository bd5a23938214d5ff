package tools

import (
	"github.com/preangelleo/ghost-blog-management-mcp/internal/backend"
)

// retryHint is appended to generative-call failures and all timeouts. The
// gateway never retries on its own: backend mutations are not idempotent and
// a silent retry could duplicate content.
const retryHint = "the backend may still be running AI generation; retry the call, or set test_mode=true to use the fast non-generative path"

// normalizeOutcome projects a classified backend outcome into the stable
// result shape returned to the transport layer.
//
// Success payloads go through an ordered fallback chain: unwrap the
// endpoint's named data field when present, accept a bare object, wrap a bare
// array; then fill fields the backend omitted from the caller's original
// input. The input fallback matters for test-mode responses, which
// intentionally return partial or synthetic data.
func normalizeOutcome(tool Spec, outcome *backend.Outcome, input map[string]any) (map[string]any, error) {
	switch outcome.Kind {
	case backend.OutcomeSuccess:
		result := extractPayload(tool, outcome.Data)
		fillFromInput(result, input, tool.EchoFields)
		if outcome.Timestamp != "" {
			if _, exists := result["timestamp"]; !exists {
				result["timestamp"] = outcome.Timestamp
			}
		}
		return result, nil

	case backend.OutcomeTimeout:
		return nil, backendErrorf(
			504,
			"%s did not complete within the configured %s timeout; %s",
			tool.Name, outcome.Timeout, retryHint,
		)

	case backend.OutcomeTransportFailure:
		return nil, backendErrorf(502, "backend unreachable: %s", outcome.Message)

	default:
		if tool.TimeoutClass == backend.TimeoutClassSlow {
			return nil, backendErrorf(outcome.StatusCode, "%s; %s", outcome.Message, retryHint)
		}
		return nil, backendErrorf(outcome.StatusCode, "%s", outcome.Message)
	}
}

// extractPayload applies the per-field fallback chain once, here, instead of
// ad hoc shape probing at every call site.
func extractPayload(tool Spec, data any) map[string]any {
	switch typed := data.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		if tool.ResponseKey != "" {
			if inner, ok := typed[tool.ResponseKey]; ok {
				return wrapInner(tool.ResponseKey, inner, typed)
			}
		}
		return typed
	case []any:
		return map[string]any{"items": typed, "count": len(typed)}
	default:
		return map[string]any{"value": typed}
	}
}

// wrapInner keeps list payloads under a stable items/count shape and merges
// object payloads with any envelope-level siblings (for example pagination
// metadata next to a "posts" array).
func wrapInner(key string, inner any, outer map[string]any) map[string]any {
	switch typed := inner.(type) {
	case []any:
		result := map[string]any{"items": typed, "count": len(typed)}
		for k, v := range outer {
			if k == key {
				continue
			}
			result[k] = v
		}
		return result
	case map[string]any:
		return typed
	default:
		return map[string]any{key: inner}
	}
}

// fillFromInput backfills declared echo fields the backend omitted with the
// values the caller originally supplied.
func fillFromInput(result map[string]any, input map[string]any, echoFields []string) {
	if len(echoFields) == 0 || input == nil {
		return
	}
	for _, field := range echoFields {
		if existing, ok := result[field]; ok && existing != nil && existing != "" {
			continue
		}
		if supplied, ok := input[field]; ok && supplied != nil {
			result[field] = supplied
		}
	}
}
