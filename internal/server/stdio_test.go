package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/preangelleo/ghost-blog-management-mcp/internal/policy"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/tools"
)

type stubCaller struct {
	payload map[string]any
	err     error
	calls   []string
}

func (c *stubCaller) Call(_ context.Context, name string, _ map[string]any) (map[string]any, error) {
	c.calls = append(c.calls, name)
	if c.err != nil {
		return nil, c.err
	}
	return c.payload, nil
}

func TestRunStdio_InitializeListAndCall(t *testing.T) {
	catalog := mustTestCatalog(t)
	caller := &stubCaller{payload: map[string]any{"status": "healthy"}}

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"blog.health","arguments":{}}}`,
		"",
	}, "\n")
	in := bytes.NewBufferString(input)
	out := &bytes.Buffer{}

	err := RunStdio(context.Background(), in, out, catalog, publicGate(), mustSessionAuth(t), caller, "test-version", zerolog.Nop())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var initResp rpcResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &initResp))
	require.Nil(t, initResp.Error)
	initMap, ok := initResp.Result.(map[string]any)
	require.True(t, ok)
	require.Equal(t, defaultProtocolVersion, initMap["protocolVersion"])

	var listResp rpcResponse
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &listResp))
	require.Nil(t, listResp.Error)
	listMap, ok := listResp.Result.(map[string]any)
	require.True(t, ok)
	listed, ok := listMap["tools"].([]any)
	require.True(t, ok)
	require.Len(t, listed, 2)

	var callResp rpcResponse
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &callResp))
	require.Nil(t, callResp.Error)
	callMap, ok := callResp.Result.(map[string]any)
	require.True(t, ok)
	require.Equal(t, false, callMap["isError"])
	require.Equal(t, []string{"blog.health"}, caller.calls)
}

func TestRunStdio_UnknownMethod(t *testing.T) {
	catalog := mustTestCatalog(t)
	in := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"nope","params":{}}` + "\n")
	out := &bytes.Buffer{}

	err := RunStdio(context.Background(), in, out, catalog, publicGate(), mustSessionAuth(t), &stubCaller{}, "test-version", zerolog.Nop())
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, rpcCodeMethodNotFound, resp.Error.Code)
}

func TestRunStdio_MissingSessionToken(t *testing.T) {
	catalog := mustTestCatalog(t)
	in := bytes.NewBufferString("")
	out := &bytes.Buffer{}

	err := RunStdio(context.Background(), in, out, catalog, publicGate(), NewTokenSessionAuthenticator(""), &stubCaller{}, "test-version", zerolog.Nop())
	require.ErrorIs(t, err, ErrSessionTokenMissing)
}

func TestRunStdio_DeniedSessionSeesNoTools(t *testing.T) {
	catalog := mustTestCatalog(t)
	caller := &stubCaller{payload: map[string]any{"status": "healthy"}}
	gate := NewAccessGate(policy.NewAllowlist([]string{"alice"}))
	sessionAuth := NewTokenSessionAuthenticator(jwtForHandle(t, "mallory"))

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"blog.health","arguments":{}}}`,
		"",
	}, "\n")
	in := bytes.NewBufferString(input)
	out := &bytes.Buffer{}

	err := RunStdio(context.Background(), in, out, catalog, gate, sessionAuth, caller, "test-version", zerolog.Nop())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var listResp rpcResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &listResp))
	require.Nil(t, listResp.Error)
	listMap, ok := listResp.Result.(map[string]any)
	require.True(t, ok)
	listed, ok := listMap["tools"].([]any)
	require.True(t, ok)
	require.Empty(t, listed)

	var callResp rpcResponse
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &callResp))
	require.NotNil(t, callResp.Error)
	require.Contains(t, callResp.Error.Message, "unknown tool: blog.health")
	require.Empty(t, caller.calls)
}

func TestRunStdio_PermittedHandlePassesGate(t *testing.T) {
	catalog := mustTestCatalog(t)
	caller := &stubCaller{payload: map[string]any{"status": "healthy"}}
	gate := NewAccessGate(policy.NewAllowlist([]string{"alice"}))
	sessionAuth := NewTokenSessionAuthenticator(jwtForHandle(t, "alice"))

	in := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"blog.health","arguments":{}}}` + "\n")
	out := &bytes.Buffer{}

	err := RunStdio(context.Background(), in, out, catalog, gate, sessionAuth, caller, "test-version", zerolog.Nop())
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.Equal(t, []string{"blog.health"}, caller.calls)
}

func TestRunStdio_FailedCallReturnsErrorResult(t *testing.T) {
	catalog := mustTestCatalog(t)
	caller := &stubCaller{err: errors.New("backend error (404): post not found")}

	in := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"blog.posts.delete","arguments":{"id":"p-1"}}}` + "\n")
	out := &bytes.Buffer{}

	err := RunStdio(context.Background(), in, out, catalog, publicGate(), mustSessionAuth(t), caller, "test-version", zerolog.Nop())
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Nil(t, resp.Error)
	callMap, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, callMap["isError"])
	content, ok := callMap["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)
	block, ok := content[0].(map[string]any)
	require.True(t, ok)
	require.Contains(t, block["text"], "post not found")
}

func mustTestCatalog(t *testing.T) *tools.Catalog {
	t.Helper()
	catalog, err := tools.NewCatalog([]byte(`
version: "1.0"
service: "ghost-blog-mcp"
apiVersion: "mcp/v1"
tools:
  - name: blog.health
    method: GET
    path: /api/health
    timeoutClass: fast
    inputSchema:
      type: object
  - name: blog.posts.delete
    method: DELETE
    path: /api/posts/{id}
    timeoutClass: fast
    inputSchema:
      type: object
      required: [id]
      properties:
        id:
          type: string
`))
	require.NoError(t, err)
	return catalog
}

func publicGate() *AccessGate {
	return NewAccessGate(policy.NewAllowlist(nil))
}

func mustSessionAuth(t *testing.T) *TokenSessionAuthenticator {
	t.Helper()
	return NewTokenSessionAuthenticator("stdio-session-token")
}

func jwtForHandle(t *testing.T, handle string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":"u-1","preferred_username":%q}`, handle)))
	return fmt.Sprintf("%s.%s.", header, payload)
}
