package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/beancheck"
)

func foldingAt(srv *Server, docURI protocol.DocumentURI) ([]protocol.FoldingRange, error) {
	return srv.FoldingRanges(context.Background(), &protocol.FoldingRangeParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
		},
	})
}

func hasFold(ranges []protocol.FoldingRange, start, end uint32, kind protocol.FoldingRangeKind) bool {
	for _, r := range ranges {
		if r.StartLine == start && r.EndLine == end && r.Kind == kind {
			return true
		}
	}
	return false
}

func TestFolding_Entries(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})
	content := "2024-05-01 * \"Store\" \"Food\"\n" +
		"  Expenses:Food  20.00 USD\n" +
		"  Assets:Cash\n" +
		"\n" +
		"2024-05-02 balance Assets:Cash  100.00 USD\n"
	openDocument(srv, testURI, content)

	ranges, err := foldingAt(srv, testURI)
	require.NoError(t, err)

	assert.True(t, hasFold(ranges, 0, 2, protocol.RegionFoldingRange), "transaction folds over its postings")
	assert.False(t, hasFold(ranges, 4, 4, protocol.RegionFoldingRange), "single-line entry has nothing to fold")
}

func TestFolding_Sections(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})
	content := "* Expenses\n" +
		"2024-05-01 open Expenses:Food\n" +
		"** Dining\n" +
		"2024-05-01 open Expenses:Food:Dining\n" +
		"* Assets\n" +
		"2024-05-01 open Assets:Cash\n"
	openDocument(srv, testURI, content)

	ranges, err := foldingAt(srv, testURI)
	require.NoError(t, err)

	assert.True(t, hasFold(ranges, 0, 3, protocol.RegionFoldingRange), "section runs until the next heading of equal depth")
	assert.True(t, hasFold(ranges, 2, 3, protocol.RegionFoldingRange), "nested section")
	assert.True(t, hasFold(ranges, 4, 5, protocol.RegionFoldingRange), "final section runs to end of file")
}

func TestFolding_Comments(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})
	content := "; first\n" +
		"; second\n" +
		"; third\n" +
		"2024-05-01 open Assets:Cash\n" +
		"; lone comment\n" +
		"2024-05-02 open Assets:Bank\n"
	openDocument(srv, testURI, content)

	ranges, err := foldingAt(srv, testURI)
	require.NoError(t, err)

	assert.True(t, hasFold(ranges, 0, 2, protocol.CommentFoldingRange))
	assert.False(t, hasFold(ranges, 4, 4, protocol.CommentFoldingRange), "single comment line does not fold")
}

func TestFolding_FeatureDisabled(t *testing.T) {
	srv, _, _ := newTestServer(beancheck.Report{})
	settings := srv.getSettings()
	settings.Features.Folding = false
	srv.setSettings(settings)
	openDocument(srv, testURI, "2024-05-01 * \"a\" \"b\"\n  Assets:Cash  1 USD\n")

	ranges, err := foldingAt(srv, testURI)
	require.NoError(t, err)
	assert.Nil(t, ranges)
}
