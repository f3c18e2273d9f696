// Package formatter realigns posting amounts so decimal points share a
// column. The column is the user's separator column setting: the decimal
// point (or the end of a whole-number amount) lands on it.
package formatter

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/lsputil"
)

const DefaultSeparatorColumn = 70

// postingLine captures indent+flag, account token, the gap, and the rest
// starting at the amount.
var postingLine = regexp.MustCompile(`^(\s+(?:[!*]\s+)?)([A-Z][A-Za-z0-9:_\-]*)(\s+)(-?[\d.,]+)(.*)$`)

type Options struct {
	SeparatorColumn int
}

func (o Options) column() int {
	if o.SeparatorColumn <= 0 {
		return DefaultSeparatorColumn
	}
	return o.SeparatorColumn
}

// FormatDocument returns whole-line edits for every posting whose amount is
// not sitting on the separator column.
func FormatDocument(content string, opts Options) []protocol.TextEdit {
	doc := lsputil.NewDocument(content)
	var edits []protocol.TextEdit

	for i, line := range doc.Lines() {
		formatted, ok := AlignLine(line, opts.column())
		if !ok || formatted == line {
			continue
		}
		edits = append(edits, protocol.TextEdit{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(i), Character: 0},
				End:   protocol.Position{Line: uint32(i), Character: uint32(doc.LineUTF16Len(i))},
			},
			NewText: formatted,
		})
	}

	return edits
}

// FormatLines is FormatDocument for callers that already hold lines and want
// lines back.
func FormatLines(lines []string, opts Options) ([]string, bool) {
	changed := false
	out := lines
	for i, line := range out {
		formatted, ok := AlignLine(line, opts.column())
		if !ok || formatted == line {
			continue
		}
		if !changed {
			out = append([]string(nil), out...)
			changed = true
		}
		out[i] = formatted
	}
	return out, changed
}

// AlignLine pads the gap between account and amount so the amount's decimal
// point lands on column (0-based column-1 holds the last integer digit). It
// reports false for lines that are not amount-carrying postings. The gap
// never shrinks below the two spaces the grammar requires.
func AlignLine(line string, column int) (string, bool) {
	m := postingLine.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	prefix, account, number, rest := m[1], m[2], m[4], m[5]

	if _, err := decimal.NewFromString(strings.ReplaceAll(number, ",", "")); err != nil {
		return "", false
	}

	intPart := number
	if dot := strings.Index(number, "."); dot != -1 {
		intPart = number[:dot]
	}

	pad := column - 1 - lsputil.UTF16Len(prefix+account) - len(intPart)
	if pad < 2 {
		pad = 2
	}

	return prefix + account + strings.Repeat(" ", pad) + number + rest, true
}
