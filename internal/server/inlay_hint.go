package server

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/lsputil"
)

// The protocol package predates inlay hints, so the request arrives through
// the nonstandard path with hand-rolled param/response types.
const methodInlayHint = "textDocument/inlayHint"

type inlayHintParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Range        protocol.Range                  `json:"range"`
}

type inlayHint struct {
	Position    protocol.Position `json:"position"`
	Label       string            `json:"label"`
	PaddingLeft bool              `json:"paddingLeft,omitempty"`
}

func (s *Server) NonstandardRequest(ctx context.Context, method string, params any) (any, error) {
	switch method {
	case methodInlayHint:
		var p inlayHintParams
		if !reencode(params, &p) {
			return nil, nil
		}
		return s.inlayHints(p), nil
	default:
		return nil, nil
	}
}

// inlayHints renders the validator's computed amounts as end-of-line virtual
// text on postings that are still incomplete. Once the user (or autofill)
// writes the amount, the line no longer matches and the hint disappears
// without waiting for the next validator run.
func (s *Server) inlayHints(params inlayHintParams) []inlayHint {
	settings := s.getSettings()
	if !settings.Features.InlayHints {
		return nil
	}

	content, ok := s.GetDocument(params.TextDocument.URI)
	if !ok {
		return nil
	}
	docPath := uriToPath(params.TextDocument.URI)
	automatics := s.store.AutomaticsFor(docPath)
	if len(automatics) == 0 {
		return nil
	}

	doc := lsputil.NewDocument(content)

	lineNumbers := make([]int, 0, len(automatics))
	for key := range automatics {
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		lineNumbers = append(lineNumbers, n)
	}
	sort.Ints(lineNumbers)

	var hints []inlayHint
	for _, lineNo := range lineNumbers {
		idx := lineNo - 1
		if idx < int(params.Range.Start.Line) || idx > int(params.Range.End.Line) {
			continue
		}
		line := doc.Line(idx)
		if strings.TrimSpace(line) == "" || !isIncompletePosting(line) {
			continue
		}
		amounts := automatics[strconv.Itoa(lineNo)]
		if len(amounts) == 0 {
			continue
		}
		hints = append(hints, inlayHint{
			Position: protocol.Position{
				Line:      uint32(idx),
				Character: uint32(doc.LineUTF16Len(idx)),
			},
			Label:       strings.Join(amounts, ", "),
			PaddingLeft: true,
		})
	}

	return hints
}

func isIncompletePosting(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == line || trimmed == "" {
		return false
	}
	if trimmed[0] < 'A' || trimmed[0] > 'Z' {
		return false
	}
	rest := strings.TrimRight(trimmed, " \t")
	for i := 1; i < len(rest); i++ {
		c := rest[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == ':' || c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

// reencode round-trips loosely typed params into a concrete struct.
func reencode(in any, out any) bool {
	data, err := json.Marshal(in)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}
