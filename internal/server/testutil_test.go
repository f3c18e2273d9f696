package server

import (
	"context"
	"sync"

	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/beancheck"
)

// stubChecker replaces the validator subprocess with a canned report.
type stubChecker struct {
	mu     sync.Mutex
	report beancheck.Report
	err    error
	calls  int
	mains  []string
}

func (c *stubChecker) Available() bool { return true }

func (c *stubChecker) Check(_ context.Context, mainFile string, _ bool) (beancheck.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.mains = append(c.mains, mainFile)
	return c.report, c.err
}

func (c *stubChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type mockClient struct {
	mu          sync.Mutex
	diagnostics []protocol.PublishDiagnosticsParams
	messages    []protocol.ShowMessageParams
	edits       []protocol.ApplyWorkspaceEditParams
	applyResult bool
}

func newMockClient() *mockClient {
	return &mockClient{applyResult: true}
}

func (m *mockClient) Progress(_ context.Context, _ *protocol.ProgressParams) error {
	return nil
}

func (m *mockClient) WorkDoneProgressCreate(_ context.Context, _ *protocol.WorkDoneProgressCreateParams) error {
	return nil
}

func (m *mockClient) LogMessage(_ context.Context, _ *protocol.LogMessageParams) error {
	return nil
}

func (m *mockClient) PublishDiagnostics(_ context.Context, params *protocol.PublishDiagnosticsParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diagnostics = append(m.diagnostics, *params)
	return nil
}

func (m *mockClient) ShowMessage(_ context.Context, params *protocol.ShowMessageParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *params)
	return nil
}

func (m *mockClient) ShowMessageRequest(_ context.Context, _ *protocol.ShowMessageRequestParams) (*protocol.MessageActionItem, error) {
	return nil, nil
}

func (m *mockClient) Telemetry(_ context.Context, _ interface{}) error {
	return nil
}

func (m *mockClient) RegisterCapability(_ context.Context, _ *protocol.RegistrationParams) error {
	return nil
}

func (m *mockClient) UnregisterCapability(_ context.Context, _ *protocol.UnregistrationParams) error {
	return nil
}

func (m *mockClient) ApplyEdit(_ context.Context, params *protocol.ApplyWorkspaceEditParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, *params)
	return m.applyResult, nil
}

func (m *mockClient) Configuration(_ context.Context, _ *protocol.ConfigurationParams) ([]interface{}, error) {
	return nil, nil
}

func (m *mockClient) WorkspaceFolders(_ context.Context) ([]protocol.WorkspaceFolder, error) {
	return nil, nil
}

func (m *mockClient) lastDiagnostics() *protocol.PublishDiagnosticsParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.diagnostics) == 0 {
		return nil
	}
	last := m.diagnostics[len(m.diagnostics)-1]
	return &last
}

func (m *mockClient) appliedEdits() []protocol.ApplyWorkspaceEditParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.ApplyWorkspaceEditParams(nil), m.edits...)
}

// newTestServer wires a server with a stub validator and a mock client.
func newTestServer(report beancheck.Report) (*Server, *stubChecker, *mockClient) {
	srv := NewServer(nil)
	stub := &stubChecker{report: report}
	srv.checker = stub
	client := newMockClient()
	srv.SetClient(client)
	return srv, stub, client
}

// seedSnapshot installs a report directly, bypassing the validator run.
func seedSnapshot(srv *Server, report beancheck.Report) {
	srv.store.Install(srv.store.Begin(), report)
}

func openDocument(srv *Server, docURI protocol.DocumentURI, content string) {
	srv.documents.Store(docURI, content)
}

func completionAt(srv *Server, docURI protocol.DocumentURI, line, character uint32) (*protocol.CompletionList, error) {
	return srv.Completion(context.Background(), &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
			Position:     protocol.Position{Line: line, Character: character},
		},
	})
}

func extractLabels(items []protocol.CompletionItem) []string {
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label
	}
	return labels
}
