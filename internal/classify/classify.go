// Package classify decides which completion domain applies at a cursor
// position. The predicates are ordered and mutually exclusive: the first one
// that matches the text before the cursor wins.
package classify

import "regexp"

type Context int

const (
	None Context = iota
	Date
	Account
	Commodity
	Payee
	Narration
	Tag
	Link
)

func (c Context) String() string {
	switch c {
	case Date:
		return "date"
	case Account:
		return "account"
	case Commodity:
		return "commodity"
	case Payee:
		return "payee"
	case Narration:
		return "narration"
	case Tag:
		return "tag"
	case Link:
		return "link"
	default:
		return "none"
	}
}

var (
	tagBefore  = regexp.MustCompile(`(?:^|\s)#[\w\-./]*$`)
	linkBefore = regexp.MustCompile(`(?:^|\s)\^[\w\-./]*$`)

	// A transaction header up to its flag: date, then txn/*/!.
	txnHeader = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}\s+(?:txn|[*!])\s+`)

	// Account directly after a directive keyword, colon typed or not.
	directiveAccount = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}\s+(?:open|close|balance|pad|note|document)\s+[\w:\-]*$`)
	// Second account of a pad directive.
	padSecondAccount = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}\s+pad\s+\S+\s+[\w:\-]*$`)

	// Indented posting line holding only an (optionally flagged) account
	// token so far. Covers continuation after a colon.
	postingAccount = regexp.MustCompile(`^\s+(?:[!*]\s+)?[A-Za-z][\w:\-]*$`)
	postingIndent  = regexp.MustCompile(`^\s+(?:[!*]\s+)?$`)

	// Cursor right after an amount (or its price annotation) on a posting.
	postingCommodity = regexp.MustCompile(`^\s+(?:[!*]\s+)?\S+\s\s+-?[\d.,]+\s+[A-Za-z]*$`)
	priceCommodity   = regexp.MustCompile(`@@?\s*-?[\d.,]*\s*[A-Za-z]*$`)

	dateBefore = regexp.MustCompile(`^[\d\-/]*$`)
)

// Classify inspects the text before the cursor on a single line. col is a
// byte offset into line; offsets past the end are clamped. The character
// directly after the cursor participates only in the quoted-string
// predicates, to support a cursor sitting between auto-paired quotes.
func Classify(line string, col int) Context {
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}
	before := line[:col]

	switch {
	case tagBefore.MatchString(before):
		return Tag
	case linkBefore.MatchString(before):
		return Link
	}

	if ctx := classifyQuoted(before); ctx != None {
		return ctx
	}

	switch {
	case directiveAccount.MatchString(before), padSecondAccount.MatchString(before):
		return Account
	case postingAccount.MatchString(before), postingIndent.MatchString(before):
		return Account
	case postingCommodity.MatchString(before):
		return Commodity
	case indented(line) && priceCommodity.MatchString(before):
		return Commodity
	case dateBefore.MatchString(before):
		return Date
	}

	return None
}

func indented(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// classifyQuoted places the cursor inside the quoted strings of a
// transaction header: the first string is the payee, the second the
// narration. Works whether or not the closing quote has been auto-paired in
// already, since only the quotes before the cursor are counted.
func classifyQuoted(before string) Context {
	loc := txnHeader.FindStringIndex(before)
	if loc == nil {
		return None
	}

	rest := before[loc[1]:]
	quotes := 0
	for i := 0; i < len(rest); i++ {
		if rest[i] == '"' && (i == 0 || rest[i-1] != '\\') {
			quotes++
		}
	}
	if quotes%2 == 0 {
		// Not inside a string.
		return None
	}
	if quotes == 1 {
		return Payee
	}
	return Narration
}
