package server

import (
	"context"

	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/formatter"
)

func (s *Server) Format(ctx context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	settings := s.getSettings()
	if !settings.Features.Formatting {
		return nil, nil
	}

	content, ok := s.GetDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	return formatter.FormatDocument(content, formatter.Options{
		SeparatorColumn: settings.SeparatorColumn,
	}), nil
}
