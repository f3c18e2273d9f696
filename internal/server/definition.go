package server

import (
	"context"
	"os"
	"regexp"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/lsputil"
)

var accountTokenRe = regexp.MustCompile(`[A-Za-z][A-Za-z0-9:_\-]*`)

// Definition jumps from an account reference to the open directive that
// declared it. The search covers the requesting document first, then the
// main journal on disk; the validator already told us the account exists,
// but not where.
func (s *Server) Definition(ctx context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
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

	if loc := findOpenDirective(doc.Lines(), params.TextDocument.URI, account); loc != nil {
		return []protocol.Location{*loc}, nil
	}

	mainFile := s.mainFileFor(uriToPath(params.TextDocument.URI))
	if mainFile == "" || samePath(mainFile, uriToPath(params.TextDocument.URI)) {
		return nil, nil
	}

	data, err := os.ReadFile(mainFile)
	if err != nil {
		// Degrade to a warning; a broken include must not turn into a
		// request error.
		if s.client != nil {
			_ = s.client.LogMessage(ctx, &protocol.LogMessageParams{
				Type:    protocol.MessageTypeWarning,
				Message: "cannot read " + mainFile + ": " + err.Error(),
			})
		}
		return nil, nil
	}

	mainLines := lsputil.NewDocument(string(data)).Lines()
	if loc := findOpenDirective(mainLines, pathToURI(mainFile), account); loc != nil {
		return []protocol.Location{*loc}, nil
	}

	return nil, nil
}

// accountAt returns the account-shaped token under the cursor, or "".
func accountAt(line string, col int) string {
	for _, loc := range accountTokenRe.FindAllStringIndex(line, -1) {
		if col < loc[0] || col > loc[1] {
			continue
		}
		token := line[loc[0]:loc[1]]
		if strings.Contains(token, ":") && token[0] >= 'A' && token[0] <= 'Z' {
			return token
		}
	}
	return ""
}

func findOpenDirective(lines []string, docURI protocol.DocumentURI, account string) *protocol.Location {
	needle := " open " + account
	for i, line := range lines {
		idx := strings.Index(line, needle)
		if idx == -1 || !entryHeader.MatchString(line) {
			continue
		}
		start := idx + len(" open ")
		// The directive may declare currencies after the account name.
		rest := line[start:]
		if !strings.HasPrefix(rest, account) {
			continue
		}
		if len(rest) > len(account) {
			next := rest[len(account)]
			if next != ' ' && next != '\t' && next != ';' {
				continue
			}
		}
		return &protocol.Location{
			URI: docURI,
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(i), Character: uint32(lsputil.ByteToUTF16(line, start))},
				End:   protocol.Position{Line: uint32(i), Character: uint32(lsputil.ByteToUTF16(line, start+len(account)))},
			},
		}
	}
	return nil
}
