package server

import (
	"context"
	"path/filepath"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/beanls/beancount-lsp/internal/ledger"
)

// revalidate is the asynchronous mode: run the validator, install the report
// and republish diagnostics. Used after open/save and on external file
// changes. Stale runs lose to newer ones through the store's generation.
func (s *Server) revalidate(ctx context.Context, docPath string) {
	if docPath == "" {
		return
	}
	snap, ok := s.runValidator(ctx, docPath)
	if !ok {
		return
	}
	s.publishAll(ctx, snap)
}

// runValidator performs one validator run for the journal owning docPath.
// The caller decides whether to block on it (synchronous mode) or to call
// from a goroutine (asynchronous mode).
func (s *Server) runValidator(ctx context.Context, docPath string) (ledger.Snapshot, bool) {
	settings := s.getSettings()
	mainFile := s.mainFileFor(docPath)

	gen := s.store.Begin()
	report, err := s.checker.Check(ctx, mainFile, settings.PayeeNarration)
	if err != nil {
		s.logger.Warn("validator run failed", zap.String("main", mainFile), zap.Error(err))
		if s.client != nil {
			_ = s.client.ShowMessage(ctx, &protocol.ShowMessageParams{
				Type:    protocol.MessageTypeError,
				Message: "beancount check failed: " + err.Error(),
			})
		}
		return ledger.Snapshot{}, false
	}

	s.store.Install(gen, report)
	return s.store.Snapshot(), true
}

// publishAll pushes diagnostics to every open document covered by the
// snapshot.
func (s *Server) publishAll(ctx context.Context, snap ledger.Snapshot) {
	if s.client == nil {
		return
	}
	s.documents.Range(func(key, _ any) bool {
		docURI, ok := key.(protocol.DocumentURI)
		if !ok {
			return true
		}
		s.publishDiagnostics(ctx, docURI, snap)
		return true
	})
}

func (s *Server) publishDiagnostics(ctx context.Context, docURI protocol.DocumentURI, snap ledger.Snapshot) {
	if s.client == nil {
		return
	}

	settings := s.getSettings()
	diagnostics := []protocol.Diagnostic{}

	if settings.Features.Diagnostics {
		diagnostics = s.diagnosticsForFile(uriToPath(docURI), snap, settings)
	}

	_ = s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         docURI,
		Diagnostics: diagnostics,
	})
}

func (s *Server) diagnosticsForFile(path string, snap ledger.Snapshot, settings serverSettings) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	if path == "" {
		return diagnostics
	}

	for _, e := range snap.Errors {
		if !samePath(e.File, path) {
			continue
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lineRange(e.Line),
			Severity: protocol.DiagnosticSeverityError,
			Source:   "beancount-lsp",
			Message:  e.Message,
		})
	}

	for _, f := range snap.Flagged {
		if !samePath(f.File, path) {
			continue
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lineRange(f.Line),
			Severity: flagSeverity(f.Flag, settings.FlagSeverity),
			Source:   "beancount-lsp",
			Message:  f.Message,
		})
	}

	return diagnostics
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	if errA != nil || errB != nil {
		return false
	}
	return filepath.Clean(ra) == filepath.Clean(rb)
}

// lineRange spans a whole 1-based validator line.
func lineRange(line int) protocol.Range {
	if line < 1 {
		line = 1
	}
	return protocol.Range{
		Start: protocol.Position{Line: uint32(line - 1), Character: 0},
		End:   protocol.Position{Line: uint32(line), Character: 0},
	}
}

// flagSeverity maps a single-character beancount flag through the
// user-configured severity table.
func flagSeverity(flag string, table map[string]string) protocol.DiagnosticSeverity {
	switch table[flag] {
	case "error":
		return protocol.DiagnosticSeverityError
	case "warning":
		return protocol.DiagnosticSeverityWarning
	case "info", "information":
		return protocol.DiagnosticSeverityInformation
	case "hint":
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityWarning
	}
}
