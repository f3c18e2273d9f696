// Package server implements the LSP surface. Language semantics come from
// the external validator; the handlers here adapt its report to diagnostics,
// completion, hints and edits.
package server

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/beanls/beancount-lsp/internal/beancheck"
	"github.com/beanls/beancount-lsp/internal/ledger"
	"github.com/beanls/beancount-lsp/internal/lsputil"
	"github.com/beanls/beancount-lsp/internal/workspace"
)

// checker abstracts the validator subprocess so tests can stub it.
type checker interface {
	Available() bool
	Check(ctx context.Context, mainFile string, payeeNarration bool) (beancheck.Report, error)
}

type Server struct {
	client    protocol.Client
	logger    *zap.Logger
	documents sync.Map // protocol.DocumentURI → string
	store     *ledger.Store
	checker   checker
	workspace *workspace.Workspace
	rootPath  string

	settings       serverSettings
	settingsMu     sync.RWMutex
	snippetSupport bool

	// filling serializes the save→fill→save cycle: the workspace edit we
	// apply triggers another save, which must not fill again.
	filling atomic.Bool

	watchCancel context.CancelFunc
}

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		logger: logger,
		store:  ledger.NewStore(),
	}
	srv.setSettings(defaultServerSettings())
	srv.reinitChecker()
	return srv
}

func (s *Server) SetClient(client protocol.Client) {
	s.client = client
}

// SetPythonPath overrides the interpreter before initialize (CLI flag).
func (s *Server) SetPythonPath(path string) {
	settings := s.getSettings()
	settings.Python = path
	s.setSettings(settings)
	s.reinitChecker()
}

// SetCheckerScript overrides the checker script before initialize.
func (s *Server) SetCheckerScript(path string) {
	settings := s.getSettings()
	settings.CheckerScript = path
	s.setSettings(settings)
	s.reinitChecker()
}

func (s *Server) reinitChecker() {
	settings := s.getSettings()
	s.checker = beancheck.NewClient(settings.Python, settings.CheckerScript, settings.CheckerTimeout)
}

func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if params != nil {
		settings := parseSettingsFromRaw(s.getSettings(), params.InitializationOptions)
		s.setSettings(settings)
	}

	if params != nil && params.Capabilities.TextDocument != nil &&
		params.Capabilities.TextDocument.Completion != nil &&
		params.Capabilities.TextDocument.Completion.CompletionItem != nil {
		s.snippetSupport = params.Capabilities.TextDocument.Completion.CompletionItem.SnippetSupport
	}

	if params != nil && len(params.WorkspaceFolders) > 0 {
		s.rootPath = strings.TrimPrefix(params.WorkspaceFolders[0].URI, "file://")
	} else if params != nil {
		rootURI := params.RootURI //nolint:staticcheck // keep for backward compatibility
		if rootURI != "" {
			s.rootPath = strings.TrimPrefix(string(rootURI), "file://")
		}
	}

	s.workspace = workspace.New(s.rootPath, s.logger.Named("workspace"))
	s.applyWorkspaceConfig()
	s.reinitChecker()

	settings := s.getSettings()

	caps := protocol.ServerCapabilities{
		TextDocumentSync: protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    protocol.TextDocumentSyncKindIncremental,
			Save: &protocol.SaveOptions{
				IncludeText: false,
			},
		},
		DefinitionProvider:     true,
		DocumentSymbolProvider: true,
		HoverProvider:          true,
	}

	if settings.Features.Completion {
		caps.CompletionProvider = &protocol.CompletionOptions{
			TriggerCharacters: []string{":", "#", "^", "\""},
		}
	}
	if settings.Features.Formatting {
		caps.DocumentFormattingProvider = true
	}
	if settings.Features.Folding {
		caps.FoldingRangeProvider = true
	}
	if settings.Features.Autofill {
		caps.CodeActionProvider = &protocol.CodeActionOptions{
			CodeActionKinds: []protocol.CodeActionKind{codeActionKindFill},
		}
		caps.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
			Commands: []string{commandFillAmounts},
		}
	}
	if settings.Features.InlayHints {
		caps.Experimental = map[string]any{
			"inlayHintProvider": true,
		}
	}

	return &protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.ServerInfo{
			Name:    "beancount-lsp",
			Version: "0.1.0",
		},
	}, nil
}

// applyWorkspaceConfig folds the project config file into settings that are
// still at their defaults; editor-sent settings win.
func (s *Server) applyWorkspaceConfig() {
	if s.workspace == nil {
		return
	}
	cfg := s.workspace.Config()
	settings := s.getSettings()
	defaults := defaultServerSettings()

	if cfg.Python != "" && settings.Python == defaults.Python {
		settings.Python = cfg.Python
	}
	if cfg.CheckerScript != "" && settings.CheckerScript == defaults.CheckerScript {
		settings.CheckerScript = cfg.CheckerScript
	}
	if cfg.Main != "" && settings.MainFile == "" {
		settings.MainFile = cfg.Main
	}
	if cfg.SeparatorColumn > 0 && settings.SeparatorColumn == defaults.SeparatorColumn {
		settings.SeparatorColumn = cfg.SeparatorColumn
	}
	if cfg.PayeeNarration != nil && settings.PayeeNarration == defaults.PayeeNarration {
		settings.PayeeNarration = *cfg.PayeeNarration
	}
	s.setSettings(settings)
}

func (s *Server) Initialized(_ context.Context, _ *protocol.InitializedParams) error {
	go s.refreshConfiguration(context.Background())
	s.startWatcher()
	return nil
}

// startWatcher revalidates when journal files change on disk outside the
// editor (includes edited by importers and similar tools).
func (s *Server) startWatcher() {
	if s.workspace == nil {
		return
	}
	settings := s.getSettings()
	mainFile := s.workspace.MainFile(settings.MainFile, "")
	if mainFile == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel
	go func() {
		err := s.workspace.Watch(ctx, mainFile, func(path string) {
			s.logger.Debug("journal changed on disk", zap.String("path", path))
			s.revalidate(context.Background(), path)
		})
		if err != nil {
			s.logger.Warn("watcher unavailable", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.watchCancel != nil {
		s.watchCancel()
	}
	return nil
}

func (s *Server) Exit(ctx context.Context) error {
	return nil
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.documents.Store(params.TextDocument.URI, params.TextDocument.Text)
	go s.revalidate(context.Background(), uriToPath(params.TextDocument.URI))
	return nil
}

func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc, ok := s.documents.Load(params.TextDocument.URI)
	if !ok {
		return nil
	}
	content, ok := doc.(string)
	if !ok {
		return nil
	}
	for _, change := range params.ContentChanges {
		if isFullChange(change.Range) {
			content = change.Text
		} else {
			content = lsputil.NewDocument(content).ApplyChange(change.Range, change.Text)
		}
	}
	s.documents.Store(params.TextDocument.URI, content)
	return nil
}

func isFullChange(r protocol.Range) bool {
	return r.Start.Line == 0 && r.Start.Character == 0 &&
		r.End.Line == 0 && r.End.Character == 0
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.documents.Delete(params.TextDocument.URI)
	return nil
}

func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	if s.filling.Load() {
		// Save issued by our own fill pipeline.
		return nil
	}

	settings := s.getSettings()
	docURI := params.TextDocument.URI

	if settings.Features.Autofill {
		go s.fillOnSave(context.Background(), docURI)
		return nil
	}

	go s.revalidate(context.Background(), uriToPath(docURI))
	return nil
}

func (s *Server) GetDocument(docURI protocol.DocumentURI) (string, bool) {
	if doc, ok := s.documents.Load(docURI); ok {
		if content, ok := doc.(string); ok {
			return content, true
		}
	}
	return "", false
}

func (s *Server) mainFileFor(docPath string) string {
	settings := s.getSettings()
	if s.workspace != nil {
		return s.workspace.MainFile(settings.MainFile, docPath)
	}
	if settings.MainFile != "" {
		return settings.MainFile
	}
	return docPath
}

func uriToPath(docURI protocol.DocumentURI) string {
	raw := string(docURI)
	if !strings.HasPrefix(raw, "file://") {
		return ""
	}
	u := uri.URI(docURI) //nolint:unconvert // protocol.DocumentURI and uri.URI are distinct types
	path := u.Filename()
	if path == "" {
		path = raw[7:]
	}
	return filepath.Clean(path)
}

func pathToURI(path string) protocol.DocumentURI {
	return protocol.DocumentURI(uri.File(path))
}
