// Package api embeds the MCP tool contract served and enforced by the gateway.
package api

import _ "embed"

// ToolsContract is the declarative catalog of all gateway tools: parameter
// schemas, backend routes, timeout classes, and response-shape hints.
//
//go:embed tools.yaml
var ToolsContract []byte
