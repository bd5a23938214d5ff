// Package tools implements the gateway tool catalog and the generic dispatch
// that turns one validated tool call into one backend request.
package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/preangelleo/ghost-blog-management-mcp/internal/backend"
)

// Spec is one catalog entry: a named operation, its parameter schema, the
// backend route it maps to, and its response-normalization hints.
type Spec struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Method      string `yaml:"method" json:"method"`
	Path        string `yaml:"path" json:"path"`
	// TimeoutClass is fast (plain CMS calls) or slow (calls that may run
	// AI content or image generation upstream).
	TimeoutClass string `yaml:"timeoutClass" json:"timeoutClass"`
	// AllowOverride marks tools that accept per-call credential overrides.
	AllowOverride bool `yaml:"allowOverride,omitempty" json:"allowOverride,omitempty"`
	// ResponseKey names the envelope data wrapper field, when the backend
	// uses one for this endpoint.
	ResponseKey string `yaml:"responseKey,omitempty" json:"responseKey,omitempty"`
	// EchoFields lists input fields the normalizer falls back to when the
	// backend omits them from a success payload.
	EchoFields  []string       `yaml:"echoFields,omitempty" json:"echoFields,omitempty"`
	InputSchema map[string]any `yaml:"inputSchema,omitempty" json:"inputSchema,omitempty"`
}

type contract struct {
	Version    string `yaml:"version"`
	Service    string `yaml:"service"`
	APIVersion string `yaml:"apiVersion"`
	Tools      []Spec `yaml:"tools"`
}

// Catalog provides read-only access to parsed tool descriptors and their
// compiled parameter schemas.
type Catalog struct {
	contract contract
	byName   map[string]Spec
	schemas  map[string]*jsonschema.Schema
}

// NewCatalog parses the tool contract YAML, validates catalog invariants, and
// compiles every parameter schema up front so call-time validation never
// compiles anything.
func NewCatalog(contractYAML []byte) (*Catalog, error) {
	var parsed contract
	if err := yaml.Unmarshal(contractYAML, &parsed); err != nil {
		return nil, fmt.Errorf("decoding tool contract: %w", err)
	}
	if len(parsed.Tools) == 0 {
		return nil, fmt.Errorf("tool contract has no tools")
	}

	byName := make(map[string]Spec, len(parsed.Tools))
	schemas := make(map[string]*jsonschema.Schema, len(parsed.Tools))
	for i, tool := range parsed.Tools {
		name := strings.TrimSpace(tool.Name)
		if name == "" {
			return nil, fmt.Errorf("tool contract contains empty tool name")
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("tool contract contains duplicate tool %q", name)
		}
		tool.Name = name

		tool.Method = strings.ToUpper(strings.TrimSpace(tool.Method))
		switch tool.Method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			return nil, fmt.Errorf("tool %q has unsupported method %q", name, tool.Method)
		}

		tool.Path = strings.TrimSpace(tool.Path)
		if !strings.HasPrefix(tool.Path, "/") {
			return nil, fmt.Errorf("tool %q has invalid path %q", name, tool.Path)
		}

		tool.TimeoutClass = strings.ToLower(strings.TrimSpace(tool.TimeoutClass))
		switch tool.TimeoutClass {
		case backend.TimeoutClassFast, backend.TimeoutClassSlow:
		default:
			return nil, fmt.Errorf("tool %q has unknown timeout class %q", name, tool.TimeoutClass)
		}

		schema, err := compileInputSchema(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q input schema: %w", name, err)
		}
		schemas[name] = schema

		byName[name] = tool
		parsed.Tools[i] = tool
	}

	return &Catalog{
		contract: parsed,
		byName:   byName,
		schemas:  schemas,
	}, nil
}

// List returns all tools in contract order.
func (c *Catalog) List() []Spec {
	items := make([]Spec, 0, len(c.contract.Tools))
	items = append(items, c.contract.Tools...)
	return items
}

// Lookup returns a tool by name.
func (c *Catalog) Lookup(name string) (Spec, bool) {
	tool, ok := c.byName[strings.TrimSpace(name)]
	return tool, ok
}

// Validate checks tool arguments against the compiled parameter schema. A
// violation short-circuits the call with a validation failure; nothing is
// forwarded to the backend.
func (c *Catalog) Validate(name string, args map[string]any) error {
	schema, ok := c.schemas[strings.TrimSpace(name)]
	if !ok {
		return validationErrorf("unknown tool: %s", strings.TrimSpace(name))
	}
	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	// Round-trip through JSON so argument values use the exact number and
	// container types the schema library expects.
	encoded, err := json.Marshal(args)
	if err != nil {
		return validationErrorf("invalid tool arguments: %v", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return validationErrorf("invalid tool arguments: %v", err)
	}
	if err := schema.Validate(instance); err != nil {
		return validationErrorf("invalid arguments for %s: %v", strings.TrimSpace(name), err)
	}
	return nil
}

func compileInputSchema(raw map[string]any) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("registering schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return schema, nil
}
