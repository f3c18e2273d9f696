package server

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/beanls/beancount-lsp/internal/autofill"
	"github.com/beanls/beancount-lsp/internal/formatter"
	"github.com/beanls/beancount-lsp/internal/lsputil"
)

const (
	commandFillAmounts = "beancount.fillAmounts"

	codeActionKindFill protocol.CodeActionKind = "source.fillAmounts"
)

// fillOnSave runs the save pipeline: synchronous validation (the async
// snapshot may predate the edit being saved), fill, optional format, one
// workspace edit. The filling flag keeps the save triggered by that edit
// from starting the pipeline again.
func (s *Server) fillOnSave(ctx context.Context, docURI protocol.DocumentURI) {
	if !s.filling.CompareAndSwap(false, true) {
		return
	}
	defer s.filling.Store(false)

	s.fillDocument(ctx, docURI)
}

// fillDocument validates synchronously and applies cached amounts to the
// document. Returns whether an edit was sent.
func (s *Server) fillDocument(ctx context.Context, docURI protocol.DocumentURI) bool {
	docPath := uriToPath(docURI)
	if docPath == "" {
		return false
	}

	// Synchronous mode: correctness over latency. The cached async result
	// may describe a buffer that no longer exists.
	snap, ok := s.runValidator(ctx, docPath)
	if !ok {
		return false
	}
	s.publishAll(ctx, snap)

	content, ok := s.GetDocument(docURI)
	if !ok {
		return false
	}

	lines := strings.Split(content, "\n")
	filled, changed := autofill.Fill(lines, s.store.AutomaticsFor(docPath), s.store.CostBasisFor(docPath))
	if !changed {
		return false
	}

	settings := s.getSettings()
	if settings.Features.FormatOnSave {
		filled, _ = formatter.FormatLines(filled, formatter.Options{SeparatorColumn: settings.SeparatorColumn})
	}

	newContent := strings.Join(filled, "\n")
	if !s.replaceDocument(ctx, docURI, content, newContent) {
		return false
	}
	return true
}

// replaceDocument sends one whole-document edit and mirrors it locally so
// handlers that run before the client's didChange see the new content.
func (s *Server) replaceDocument(ctx context.Context, docURI protocol.DocumentURI, oldContent, newContent string) bool {
	doc := lsputil.NewDocument(oldContent)
	lastLine := doc.LineCount() - 1
	edit := protocol.TextEdit{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: uint32(lastLine), Character: uint32(doc.LineUTF16Len(lastLine))},
		},
		NewText: newContent,
	}

	if s.client != nil {
		applied, err := s.client.ApplyEdit(ctx, &protocol.ApplyWorkspaceEditParams{
			Edit: protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentURI][]protocol.TextEdit{
					docURI: {edit},
				},
			},
		})
		if err != nil {
			s.logger.Warn("applyEdit failed", zap.Error(err))
			return false
		}
		if !applied {
			return false
		}
	}

	s.documents.Store(docURI, newContent)
	return true
}

func (s *Server) ExecuteCommand(ctx context.Context, params *protocol.ExecuteCommandParams) (any, error) {
	if params == nil || params.Command != commandFillAmounts {
		return nil, nil
	}

	docURI := commandTargetURI(params.Arguments)
	if docURI == "" {
		return nil, nil
	}

	if !s.filling.CompareAndSwap(false, true) {
		return false, nil
	}
	defer s.filling.Store(false)

	return s.fillDocument(ctx, docURI), nil
}

func commandTargetURI(args []interface{}) protocol.DocumentURI {
	if len(args) == 0 {
		return ""
	}
	if raw, ok := args[0].(string); ok {
		return protocol.DocumentURI(raw)
	}
	return ""
}

func (s *Server) CodeAction(ctx context.Context, params *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	settings := s.getSettings()
	if !settings.Features.Autofill {
		return nil, nil
	}

	return []protocol.CodeAction{
		{
			Title: "Fill automatic posting amounts",
			Kind:  codeActionKindFill,
			Command: &protocol.Command{
				Title:     "Fill automatic posting amounts",
				Command:   commandFillAmounts,
				Arguments: []interface{}{string(params.TextDocument.URI)},
			},
		},
	}, nil
}
