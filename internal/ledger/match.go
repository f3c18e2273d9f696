package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beanls/beancount-lsp/internal/beancheck"
)

// Candidate is one account completion result. Insert text is always the full
// account path; the editor replaces whatever partial segment was typed.
type Candidate struct {
	Name   string
	Detail beancheck.AccountDetail
}

// MatchAccounts filters and orders account names for a typed prefix. Three
// match tiers are tried in order, case-insensitively:
//
//  1. the account name starts with the prefix,
//  2. the account name contains the prefix anywhere,
//  3. for a prefix ending in ":", the account continues that segment path.
//
// An account appears in the first tier it matches. Within a tier names are
// sorted alphabetically; map iteration order would otherwise leak into the
// result. Closed accounts whose cached balances are all zero are dropped.
func MatchAccounts(prefix string, accounts map[string]beancheck.AccountDetail) []Candidate {
	if len(accounts) == 0 {
		return nil
	}

	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	lower := strings.ToLower(prefix)
	segment := ""
	if strings.HasSuffix(lower, ":") {
		segment = lower
	}

	var tiers [3][]string
	for _, name := range names {
		if !completable(accounts[name]) {
			continue
		}
		lowerName := strings.ToLower(name)
		switch {
		case lower == "" || strings.HasPrefix(lowerName, lower):
			tiers[0] = append(tiers[0], name)
		case strings.Contains(lowerName, lower):
			tiers[1] = append(tiers[1], name)
		case segment != "" && strings.HasPrefix(lowerName, segment):
			tiers[2] = append(tiers[2], name)
		}
	}

	var out []Candidate
	for _, tier := range tiers {
		for _, name := range tier {
			out = append(out, Candidate{Name: name, Detail: accounts[name]})
		}
	}
	return out
}

// completable reports whether an account should be offered at all: open
// accounts always, closed accounts only while some cached balance is still
// non-zero.
func completable(detail beancheck.AccountDetail) bool {
	if detail.Close == "" {
		return true
	}
	for _, balance := range detail.Balance {
		if !balanceIsZero(balance) {
			return true
		}
	}
	return false
}

// balanceIsZero inspects the leading numeric token of a cached balance
// string ("-20002.00 USD" etc), ignoring sign. Unparseable strings count as
// zero; they cannot prove the account still holds anything.
func balanceIsZero(balance string) bool {
	fields := strings.Fields(balance)
	if len(fields) == 0 {
		return true
	}
	token := strings.TrimLeft(fields[0], "+-")
	token = strings.ReplaceAll(token, ",", "")
	value, err := decimal.NewFromString(token)
	if err != nil {
		return true
	}
	return value.IsZero()
}
