package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/preangelleo/ghost-blog-management-mcp/internal/backend"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/creds"
)

var pathParamPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Invoker executes one classified backend call.
type Invoker interface {
	Invoke(ctx context.Context, req backend.Request) (*backend.Outcome, error)
}

// Runner turns tool calls into backend requests: validate, resolve
// credentials, render the route, dispatch once, normalize. It holds no
// mutable state across calls; concurrent calls share nothing.
type Runner struct {
	catalog    *Catalog
	invoker    Invoker
	env        creds.Environment
	serviceKey string
}

// NewRunner creates a tool runner over a parsed catalog and backend invoker.
func NewRunner(catalog *Catalog, invoker Invoker, env creds.Environment, serviceKey string) *Runner {
	return &Runner{
		catalog:    catalog,
		invoker:    invoker,
		env:        env,
		serviceKey: strings.TrimSpace(serviceKey),
	}
}

// Call executes one tool call end to end and returns normalized structured
// content. Backend, timeout, and transport failures surface as *ToolError;
// they never crash the runner or affect subsequent calls.
func (r *Runner) Call(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	tool, ok := r.catalog.Lookup(name)
	if !ok {
		return nil, validationErrorf("unknown tool: %s", strings.TrimSpace(name))
	}
	if args == nil {
		args = map[string]any{}
	}

	if err := r.catalog.Validate(tool.Name, args); err != nil {
		return nil, err
	}

	override := creds.Override{}
	forwarded := args
	if tool.AllowOverride {
		override, forwarded = creds.ExtractOverride(args)
	}
	resolved := creds.Resolve(override, r.env, r.serviceKey)

	path, params, err := renderPath(tool.Path, forwarded)
	if err != nil {
		return nil, err
	}

	req := backend.Request{
		Method:       tool.Method,
		Path:         path,
		Credentials:  resolved,
		TimeoutClass: tool.TimeoutClass,
	}
	switch tool.Method {
	case http.MethodGet, http.MethodDelete:
		req.Query = queryValues(params)
	default:
		req.Body = params
	}

	outcome, err := r.invoker.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", tool.Name, err)
	}

	return normalizeOutcome(tool, outcome, args)
}

// renderPath substitutes {param} segments from arguments and removes the
// consumed values so they are not duplicated in the body or query.
func renderPath(template string, args map[string]any) (string, map[string]any, error) {
	matches := pathParamPattern.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return template, args, nil
	}

	remaining := make(map[string]any, len(args))
	for key, value := range args {
		remaining[key] = value
	}

	path := template
	for _, match := range matches {
		param := match[1]
		raw, ok := remaining[param]
		if !ok {
			return "", nil, validationErrorf("%s is required", param)
		}
		value, ok := raw.(string)
		if !ok || strings.TrimSpace(value) == "" {
			return "", nil, validationErrorf("%s must be a non-empty string", param)
		}
		path = strings.Replace(path, match[0], url.PathEscape(strings.TrimSpace(value)), 1)
		delete(remaining, param)
	}
	return path, remaining, nil
}

// queryValues flattens validated arguments into a query string for read
// methods. Arrays become repeated keys.
func queryValues(args map[string]any) url.Values {
	params := url.Values{}
	for key, value := range args {
		switch typed := value.(type) {
		case nil:
		case string:
			if trimmed := strings.TrimSpace(typed); trimmed != "" {
				params.Set(key, trimmed)
			}
		case bool:
			params.Set(key, strconv.FormatBool(typed))
		case float64:
			params.Set(key, strconv.FormatFloat(typed, 'f', -1, 64))
		case int:
			params.Set(key, strconv.Itoa(typed))
		case []any:
			for _, item := range typed {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					params.Add(key, strings.TrimSpace(s))
				}
			}
		default:
			params.Set(key, fmt.Sprintf("%v", typed))
		}
	}
	return params
}
