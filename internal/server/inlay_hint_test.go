package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanls/beancount-lsp/internal/beancheck"
)

func inlayHintRequest(srv *Server, startLine, endLine float64) (any, error) {
	return srv.NonstandardRequest(context.Background(), methodInlayHint, map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": string(testURI)},
		"range": map[string]interface{}{
			"start": map[string]interface{}{"line": startLine, "character": float64(0)},
			"end":   map[string]interface{}{"line": endLine, "character": float64(0)},
		},
	})
}

func TestInlayHints_IncompletePosting(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})
	seedSnapshot(srv, fillReport())
	openDocument(srv, testURI, "2024-05-01 * \"a\" \"b\"\n  Expenses:Food  20.00 USD\n  Assets:Cash\n")

	result, err := inlayHintRequest(srv, 0, 10)
	require.NoError(t, err)

	hints, ok := result.([]inlayHint)
	require.True(t, ok)
	require.Len(t, hints, 1)

	assert.Equal(t, "-20.00 USD", hints[0].Label)
	assert.Equal(t, uint32(2), hints[0].Position.Line)
	assert.Equal(t, uint32(13), hints[0].Position.Character, "hint sits at end of line")
	assert.True(t, hints[0].PaddingLeft)
}

func TestInlayHints_FilledPostingHasNone(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})
	seedSnapshot(srv, fillReport())
	openDocument(srv, testURI, "2024-05-01 * \"a\" \"b\"\n  Expenses:Food  20.00 USD\n  Assets:Cash  -20.00 USD\n")

	result, err := inlayHintRequest(srv, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestInlayHints_RangeFilter(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})
	seedSnapshot(srv, fillReport())
	openDocument(srv, testURI, "2024-05-01 * \"a\" \"b\"\n  Expenses:Food  20.00 USD\n  Assets:Cash\n")

	result, err := inlayHintRequest(srv, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, result, "hint line outside the requested range")
}

func TestInlayHints_FeatureDisabled(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})
	seedSnapshot(srv, fillReport())
	settings := srv.getSettings()
	settings.Features.InlayHints = false
	srv.setSettings(settings)
	openDocument(srv, testURI, "2024-05-01 * \"a\" \"b\"\n  Expenses:Food  20.00 USD\n  Assets:Cash\n")

	result, err := inlayHintRequest(srv, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestNonstandardRequest_UnknownMethod(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})

	result, err := srv.NonstandardRequest(context.Background(), "textDocument/unknown", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestIsIncompletePosting(t *testing.T) {
	assert.True(t, isIncompletePosting("  Assets:Cash"))
	assert.True(t, isIncompletePosting("\tExpenses:Food:Dining"))
	assert.False(t, isIncompletePosting("  Assets:Cash  20.00 USD"))
	assert.False(t, isIncompletePosting("2024-05-01 open Assets:Cash"), "not indented")
	assert.False(t, isIncompletePosting("  ; comment"))
	assert.False(t, isIncompletePosting(""))
}
