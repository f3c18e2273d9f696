package server

import (
	"context"
	"regexp"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/lsputil"
)

var (
	txnLine  = regexp.MustCompile(`^(\d{4}[-/]\d{2}[-/]\d{2})\s+(?:txn|[*!])\s+(.*)$`)
	openLine = regexp.MustCompile(`^(\d{4}[-/]\d{2}[-/]\d{2})\s+open\s+([A-Z][A-Za-z0-9:_\-]*)`)
)

// DocumentSymbol lists transactions and account declarations for outline
// views.
func (s *Server) DocumentSymbol(ctx context.Context, params *protocol.DocumentSymbolParams) ([]any, error) {
	content, ok := s.GetDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	doc := lsputil.NewDocument(content)
	var symbols []any

	for i, line := range doc.Lines() {
		r := protocol.Range{
			Start: protocol.Position{Line: uint32(i), Character: 0},
			End:   protocol.Position{Line: uint32(i), Character: uint32(doc.LineUTF16Len(i))},
		}

		if m := openLine.FindStringSubmatch(line); m != nil {
			symbols = append(symbols, protocol.DocumentSymbol{
				Name:           m[2],
				Detail:         "open " + m[1],
				Kind:           protocol.SymbolKindVariable,
				Range:          r,
				SelectionRange: r,
			})
			continue
		}

		if m := txnLine.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(strings.ReplaceAll(m[2], `"`, ""))
			if name == "" {
				name = m[1]
			}
			symbols = append(symbols, protocol.DocumentSymbol{
				Name:           name,
				Detail:         m[1],
				Kind:           protocol.SymbolKindEvent,
				Range:          r,
				SelectionRange: r,
			})
		}
	}

	return symbols, nil
}
