package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/preangelleo/ghost-blog-management-mcp/internal/audit"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/tools"
)

const (
	defaultProtocolVersion = "2024-11-05"
	defaultServerName      = "ghost-blog-mcp"
)

const (
	rpcCodeInvalidRequest = -32600
	rpcCodeMethodNotFound = -32601
	rpcCodeInvalidParams  = -32602
	rpcCodeInternalError  = -32603
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type initializeResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
	Capabilities struct {
		Tools struct {
			ListChanged bool `json:"listChanged"`
		} `json:"tools"`
	} `json:"capabilities"`
}

type listToolsResult struct {
	Tools []toolDescriptor `json:"tools"`
}

type toolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type callToolResult struct {
	Content           []contentBlock `json:"content"`
	IsError           bool           `json:"isError"`
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RunStdio handles MCP requests over stdin/stdout using JSON-RPC
// line-delimited messages. The session is authenticated once on startup; the
// access gate is then fixed for the lifetime of the stream.
func RunStdio(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	catalog *tools.Catalog,
	gate *AccessGate,
	sessionAuth SessionAuthenticator,
	caller ToolCaller,
	version string,
	logger zerolog.Logger,
) error {
	principal, err := authenticateStdioSession(sessionAuth)
	if err != nil {
		return err
	}
	sessionID := uuid.NewString()

	scanner := bufio.NewScanner(in)
	// Allow larger requests in stdio mode (up to 4 MiB per message).
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	writer := bufio.NewWriter(out)
	defer writer.Flush()

	session := &stdioSession{
		catalog:     catalog,
		gate:        gate,
		principal:   principal,
		sessionID:   sessionID,
		caller:      caller,
		version:     version,
		logger:      logger,
		auditLogger: audit.NewLogger(logger),
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			if writeErr := writeRPC(writer, rpcResponse{
				JSONRPC: "2.0",
				Error: &rpcError{
					Code:    rpcCodeInvalidRequest,
					Message: fmt.Sprintf("invalid json-rpc payload: %v", err),
				},
			}); writeErr != nil {
				return writeErr
			}
			continue
		}

		resp := session.handle(ctx, req)
		if err := writeRPC(writer, resp); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdio request: %w", err)
	}
	return nil
}

func authenticateStdioSession(sessionAuth SessionAuthenticator) (SessionPrincipal, error) {
	if sessionAuth == nil {
		return SessionPrincipal{}, fmt.Errorf("%w; set GHOST_MCP_SESSION_TOKEN or GHOST_SESSION_TOKEN", ErrSessionTokenMissing)
	}
	return sessionAuth.AuthenticateStdio()
}

func writeRPC(w *bufio.Writer, resp rpcResponse) error {
	encoded, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding rpc response: %w", err)
	}
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("writing rpc response: %w", err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing rpc newline: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing rpc response: %w", err)
	}
	return nil
}

type stdioSession struct {
	catalog     *tools.Catalog
	gate        *AccessGate
	principal   SessionPrincipal
	sessionID   string
	caller      ToolCaller
	version     string
	logger      zerolog.Logger
	auditLogger *audit.Logger
}

func (s *stdioSession) handle(ctx context.Context, req rpcRequest) rpcResponse {
	response := rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	if strings.TrimSpace(req.JSONRPC) != "2.0" {
		response.Error = &rpcError{
			Code:    rpcCodeInvalidRequest,
			Message: "jsonrpc must be 2.0",
		}
		return response
	}

	switch strings.TrimSpace(req.Method) {
	case "initialize":
		result := initializeResult{ProtocolVersion: defaultProtocolVersion}
		result.ServerInfo.Name = defaultServerName
		result.ServerInfo.Version = strings.TrimSpace(s.version)
		result.Capabilities.Tools.ListChanged = false
		response.Result = result
		return response

	case "tools/list":
		visible := s.gate.VisibleTools(s.catalog, s.principal)
		items := make([]toolDescriptor, 0, len(visible))
		for _, tool := range visible {
			items = append(items, toolDescriptor{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			})
		}
		response.Result = listToolsResult{Tools: items}
		return response

	case "tools/call":
		return s.handleCall(ctx, req, response)

	default:
		response.Error = &rpcError{
			Code:    rpcCodeMethodNotFound,
			Message: fmt.Sprintf("unknown method: %s", strings.TrimSpace(req.Method)),
		}
		return response
	}
}

func (s *stdioSession) handleCall(ctx context.Context, req rpcRequest, response rpcResponse) rpcResponse {
	started := time.Now()

	var params callToolParams
	if len(req.Params) == 0 {
		response.Error = &rpcError{
			Code:    rpcCodeInvalidParams,
			Message: "missing params",
		}
		return response
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		response.Error = &rpcError{
			Code:    rpcCodeInvalidParams,
			Message: fmt.Sprintf("invalid tools/call params: %v", err),
		}
		return response
	}
	name := strings.TrimSpace(params.Name)

	auditEvent := audit.ToolCallCompletion{
		SessionID:    s.sessionID,
		Transport:    "stdio",
		ToolName:     name,
		CallerHandle: s.principal.Handle,
		Arguments:    params.Arguments,
		Result:       "error",
	}
	defer func() {
		auditEvent.Duration = time.Since(started)
		s.auditLogger.Complete(auditEvent)
	}()

	// A denied session sees no tool surface at all; every name is unknown.
	if !s.gate.Permitted(s.principal) {
		auditEvent.ErrorDetail = s.gate.denyDetail(s.principal)
		response.Error = &rpcError{
			Code:    rpcCodeInvalidParams,
			Message: fmt.Sprintf("unknown tool: %s", name),
		}
		return response
	}

	if _, ok := s.catalog.Lookup(name); !ok {
		auditEvent.ErrorDetail = fmt.Sprintf("unknown tool: %s", name)
		response.Error = &rpcError{
			Code:    rpcCodeInvalidParams,
			Message: fmt.Sprintf("unknown tool: %s", name),
		}
		return response
	}

	s.logger.Info().Str("transport", "stdio").Str("tool", name).Msg("received tool call")
	if s.caller == nil {
		response.Error = &rpcError{
			Code:    rpcCodeInternalError,
			Message: "no tool caller configured",
		}
		auditEvent.ErrorDetail = "no tool caller configured"
		return response
	}

	payload, err := s.caller.Call(ctx, name, params.Arguments)
	if err != nil {
		auditEvent.ErrorDetail = toolErrorMessage(err)
		auditEvent.ResponseCode = toolErrorStatus(err)
		response.Result = toolCallResultFromError(name, err)
		return response
	}
	auditEvent.Result = "success"
	auditEvent.ResponseCode = 200
	response.Result = toolCallResultFromExecution(name, payload)
	return response
}
