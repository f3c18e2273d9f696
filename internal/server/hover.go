package server

import (
	"context"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/lsputil"
)

// Hover shows what the validator knows about the account under the cursor:
// open/close dates, declared currencies and current balances.
func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	content, ok := s.GetDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	doc := lsputil.NewDocument(content)
	line := doc.Line(int(params.Position.Line))
	col := lsputil.UTF16ToByte(line, int(params.Position.Character))

	account := accountAt(line, col)
	if account == "" {
		return nil, nil
	}

	snap := s.store.Snapshot()
	detail, ok := snap.Data.Accounts[account]
	if !ok {
		return nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n\n", account)
	if detail.Open != "" {
		fmt.Fprintf(&sb, "- opened %s\n", detail.Open)
	}
	if detail.Close != "" {
		fmt.Fprintf(&sb, "- closed %s\n", detail.Close)
	}
	if len(detail.Currencies) > 0 {
		fmt.Fprintf(&sb, "- currencies: %s\n", strings.Join(detail.Currencies, ", "))
	}
	if len(detail.Balance) > 0 {
		sb.WriteString("\n```\n")
		for _, balance := range detail.Balance {
			sb.WriteString(balance)
			sb.WriteString("\n")
		}
		sb.WriteString("```\n")
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: sb.String(),
		},
	}, nil
}
