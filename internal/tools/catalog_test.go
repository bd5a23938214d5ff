package tools

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/preangelleo/ghost-blog-management-mcp/api"
)

func mustCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(api.ToolsContract)
	require.NoError(t, err)
	return catalog
}

func TestNewCatalog_ParsesFullContract(t *testing.T) {
	catalog := mustCatalog(t)
	require.Len(t, catalog.List(), 13)

	create, ok := catalog.Lookup("blog.posts.create")
	require.True(t, ok)
	require.Equal(t, "POST", create.Method)
	require.Equal(t, "/api/posts", create.Path)
	require.Equal(t, "slow", create.TimeoutClass)
	require.True(t, create.AllowOverride)

	health, ok := catalog.Lookup("blog.health")
	require.True(t, ok)
	require.Equal(t, "fast", health.TimeoutClass)
	require.False(t, health.AllowOverride)
}

func TestNewCatalog_RejectsDuplicateNames(t *testing.T) {
	_, err := NewCatalog([]byte(`
version: "1.0"
tools:
  - name: blog.health
    method: GET
    path: /api/health
    timeoutClass: fast
  - name: blog.health
    method: GET
    path: /api/health
    timeoutClass: fast
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate tool")
}

func TestNewCatalog_RejectsUnknownMethodAndClass(t *testing.T) {
	_, err := NewCatalog([]byte(`
version: "1.0"
tools:
  - name: blog.health
    method: PATCH
    path: /api/health
    timeoutClass: fast
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported method")

	_, err = NewCatalog([]byte(`
version: "1.0"
tools:
  - name: blog.health
    method: GET
    path: /api/health
    timeoutClass: glacial
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown timeout class")
}

func TestValidate_BatchGetCardinality(t *testing.T) {
	catalog := mustCatalog(t)

	require.Error(t, catalog.Validate("blog.posts.batch_get", map[string]any{
		"ids": []any{},
	}))

	ten := make([]any, 10)
	for i := range ten {
		ten[i] = "post-id"
	}
	require.NoError(t, catalog.Validate("blog.posts.batch_get", map[string]any{
		"ids": ten,
	}))

	eleven := append(ten, "one-too-many")
	require.Error(t, catalog.Validate("blog.posts.batch_get", map[string]any{
		"ids": eleven,
	}))
}

func TestValidate_ListLimitBounds(t *testing.T) {
	catalog := mustCatalog(t)

	require.NoError(t, catalog.Validate("blog.posts.list", map[string]any{"limit": 1}))
	require.NoError(t, catalog.Validate("blog.posts.list", map[string]any{"limit": 100}))
	require.Error(t, catalog.Validate("blog.posts.list", map[string]any{"limit": 0}))
	require.Error(t, catalog.Validate("blog.posts.list", map[string]any{"limit": 101}))

	require.NoError(t, catalog.Validate("blog.posts.search", map[string]any{"limit": 50}))
	require.Error(t, catalog.Validate("blog.posts.search", map[string]any{"limit": 51}))
}

func TestValidate_StatsDaysBounds(t *testing.T) {
	catalog := mustCatalog(t)

	require.NoError(t, catalog.Validate("blog.stats.summary", map[string]any{"days": 1}))
	require.NoError(t, catalog.Validate("blog.stats.summary", map[string]any{"days": 365}))
	require.Error(t, catalog.Validate("blog.stats.summary", map[string]any{"days": 0}))
	require.Error(t, catalog.Validate("blog.stats.summary", map[string]any{"days": 366}))
}

func TestValidate_EnumeratedValues(t *testing.T) {
	catalog := mustCatalog(t)

	require.NoError(t, catalog.Validate("blog.posts.create", map[string]any{
		"title":   "T",
		"content": "B",
		"status":  "draft",
	}))
	require.Error(t, catalog.Validate("blog.posts.create", map[string]any{
		"title":   "T",
		"content": "B",
		"status":  "archived",
	}))
	// "all" is a legal filter on list but not a legal create status.
	require.NoError(t, catalog.Validate("blog.posts.list", map[string]any{"status": "all"}))
	require.Error(t, catalog.Validate("blog.posts.create", map[string]any{
		"title":   "T",
		"content": "B",
		"status":  "all",
	}))

	require.Error(t, catalog.Validate("blog.posts.create", map[string]any{
		"title":        "T",
		"content":      "B",
		"aspect_ratio": "2:1",
	}))
	require.NoError(t, catalog.Validate("blog.posts.create", map[string]any{
		"title":        "T",
		"content":      "B",
		"aspect_ratio": "16:9",
	}))
}

func TestValidate_RejectsWrongTypesAndUnknownFields(t *testing.T) {
	catalog := mustCatalog(t)

	require.Error(t, catalog.Validate("blog.posts.create", map[string]any{
		"title":   42,
		"content": "B",
	}))
	require.Error(t, catalog.Validate("blog.posts.create", map[string]any{
		"title":    "T",
		"content":  "B",
		"surprise": true,
	}))
	require.Error(t, catalog.Validate("blog.posts.create", map[string]any{
		"content": "B",
	}))
}

func TestValidate_UnknownTool(t *testing.T) {
	catalog := mustCatalog(t)
	err := catalog.Validate("blog.posts.explode", map[string]any{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown tool")
}
