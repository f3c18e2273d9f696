package server

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/classify"
	"github.com/beanls/beancount-lsp/internal/ledger"
	"github.com/beanls/beancount-lsp/internal/lsputil"
)

func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	settings := s.getSettings()
	if !settings.Features.Completion {
		return &protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}

	content, ok := s.GetDocument(params.TextDocument.URI)
	if !ok {
		return &protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}

	doc := lsputil.NewDocument(content)
	line := doc.Line(int(params.Position.Line))
	col := lsputil.UTF16ToByte(line, int(params.Position.Character))

	snap := s.store.Snapshot()

	var items []protocol.CompletionItem
	switch classify.Classify(line, col) {
	case classify.Account:
		items = s.accountItems(line, col, params.Position, snap)
	case classify.Commodity:
		items = commodityItems(snap)
	case classify.Payee:
		items = plainItems(snap.Data.Payees, protocol.CompletionItemKindClass, "Payee")
	case classify.Narration:
		items = plainItems(snap.Data.Narrations, protocol.CompletionItemKindText, "Narration")
	case classify.Tag:
		items = plainItems(snap.Data.Tags, protocol.CompletionItemKindProperty, "Tag")
	case classify.Link:
		items = plainItems(snap.Data.Links, protocol.CompletionItemKindReference, "Link")
	case classify.Date:
		items = s.dateItems(settings)
	default:
		items = []protocol.CompletionItem{}
	}

	return &protocol.CompletionList{
		IsIncomplete: true, // keeps the client re-querying instead of re-sorting stale results
		Items:        items,
	}, nil
}

// accountItems completes account paths. Insert text is always the full path;
// a TextEdit replaces the partial token the user typed, so completing
// "Assets:U" with "Assets:US:Bank" never produces a merged string.
func (s *Server) accountItems(line string, col int, pos protocol.Position, snap ledger.Snapshot) []protocol.CompletionItem {
	prefix, startByte := accountToken(line, col)
	editRange := &protocol.Range{
		Start: protocol.Position{Line: pos.Line, Character: uint32(lsputil.ByteToUTF16(line, startByte))},
		End:   pos,
	}

	candidates := ledger.MatchAccounts(prefix, snap.Data.Accounts)
	items := make([]protocol.CompletionItem, 0, len(candidates))
	for _, c := range candidates {
		item := protocol.CompletionItem{
			Label:    c.Name,
			Kind:     protocol.CompletionItemKindVariable,
			Detail:   accountDetail(c),
			SortText: fmt.Sprintf("%06d", len(items)),
			TextEdit: &protocol.TextEdit{
				Range:   *editRange,
				NewText: c.Name,
			},
		}
		if len(c.Detail.Balance) > 0 {
			item.Documentation = strings.Join(c.Detail.Balance, "\n")
		}
		items = append(items, item)
	}
	return items
}

func accountDetail(c ledger.Candidate) string {
	if c.Detail.Close != "" {
		return fmt.Sprintf("Account (closed %s)", c.Detail.Close)
	}
	if c.Detail.Open != "" {
		return fmt.Sprintf("Account (opened %s)", c.Detail.Open)
	}
	return "Account"
}

// accountToken extracts the partial account path before the cursor and the
// byte offset where it starts.
func accountToken(line string, col int) (string, int) {
	if col > len(line) {
		col = len(line)
	}
	before := line[:col]
	start := strings.LastIndexAny(before, " \t")
	if start == -1 {
		start = 0
	} else {
		start++
	}
	return before[start:], start
}

// commodityItems lists currency codes with the operating currencies first.
func commodityItems(snap ledger.Snapshot) []protocol.CompletionItem {
	operating := ledger.OperatingCurrencies(snap.Data)
	rank := make(map[string]int, len(operating))
	for i, currency := range operating {
		rank[currency] = i
	}

	commodities := append([]string(nil), snap.Data.Commodities...)
	sort.Strings(commodities)

	items := make([]protocol.CompletionItem, 0, len(commodities))
	for _, commodity := range commodities {
		detail := "Commodity"
		sortText := "1" + commodity
		if i, ok := rank[commodity]; ok {
			detail = "Operating currency"
			sortText = fmt.Sprintf("0%03d", i)
		}
		items = append(items, protocol.CompletionItem{
			Label:    commodity,
			Kind:     protocol.CompletionItemKindEnum,
			Detail:   detail,
			SortText: sortText,
		})
	}
	return items
}

func plainItems(values []string, kind protocol.CompletionItemKind, detail string) []protocol.CompletionItem {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)

	items := make([]protocol.CompletionItem, 0, len(sorted))
	for _, value := range sorted {
		items = append(items, protocol.CompletionItem{
			Label:  value,
			Kind:   kind,
			Detail: detail,
		})
	}
	return items
}

// dateItems offers today/yesterday/tomorrow in the configured date format,
// plus a whole-transaction snippet when the client can expand it.
func (s *Server) dateItems(settings serverSettings) []protocol.CompletionItem {
	now := time.Now()
	format := settings.DateFormat

	items := []protocol.CompletionItem{
		{
			Label:    now.Format(format),
			Kind:     protocol.CompletionItemKindConstant,
			Detail:   "today",
			SortText: "0001",
		},
		{
			Label:    now.AddDate(0, 0, -1).Format(format),
			Kind:     protocol.CompletionItemKindConstant,
			Detail:   "yesterday",
			SortText: "0002",
		},
		{
			Label:    now.AddDate(0, 0, 1).Format(format),
			Kind:     protocol.CompletionItemKindConstant,
			Detail:   "tomorrow",
			SortText: "0003",
		},
	}

	if s.snippetSupport {
		items = append(items, protocol.CompletionItem{
			Label:            "txn",
			Kind:             protocol.CompletionItemKindSnippet,
			Detail:           "transaction",
			SortText:         "0004",
			InsertTextFormat: protocol.InsertTextFormatSnippet,
			InsertText: fmt.Sprintf("%s ${1|*,!|} \"${2:Payee}\" \"${3:Narration}\"\n  ${4:Account}  ${5:Amount}\n  ${6:Account}\n$0",
				now.Format(format)),
		})
	}

	return items
}
