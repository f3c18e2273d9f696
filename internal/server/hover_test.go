package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/beancheck"
)

func hoverAt(srv *Server, line, character uint32) (*protocol.Hover, error) {
	return srv.Hover(context.Background(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: line, Character: character},
		},
	})
}

func TestHover_AccountDetails(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})
	seedSnapshot(srv, beancheck.Report{
		Completion: beancheck.CompletionData{
			Accounts: map[string]beancheck.AccountDetail{
				"Assets:Cash": {
					Open:       "2020-01-01",
					Currencies: []string{"USD", "EUR"},
					Balance:    []string{"120.00 USD", "30.00 EUR"},
				},
			},
		},
	})
	openDocument(srv, testURI, "2024-05-01 * \"a\" \"b\"\n  Assets:Cash  20.00 USD\n")

	hover, err := hoverAt(srv, 1, 5)
	require.NoError(t, err)
	require.NotNil(t, hover)

	assert.Equal(t, protocol.Markdown, hover.Contents.Kind)
	assert.Contains(t, hover.Contents.Value, "**Assets:Cash**")
	assert.Contains(t, hover.Contents.Value, "opened 2020-01-01")
	assert.Contains(t, hover.Contents.Value, "USD, EUR")
	assert.Contains(t, hover.Contents.Value, "120.00 USD")
}

func TestHover_UnknownAccount(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})
	openDocument(srv, testURI, "2024-05-01 * \"a\" \"b\"\n  Assets:Cash  20.00 USD\n")

	hover, err := hoverAt(srv, 1, 5)
	require.NoError(t, err)
	assert.Nil(t, hover, "the validator never reported this account")
}

func TestHover_NotOnAccount(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})
	openDocument(srv, testURI, "2024-05-01 * \"a\" \"b\"\n")

	hover, err := hoverAt(srv, 0, 3)
	require.NoError(t, err)
	assert.Nil(t, hover)
}
