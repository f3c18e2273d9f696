// Package autofill rewrites incomplete postings using the amounts the
// validator computed. Cache line numbers are only valid against the file
// content the validator saw, so every target line is re-verified against the
// incomplete-posting shape before it is touched; anything that moved is
// silently skipped.
package autofill

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// Leading whitespace, an account-looking token (capital letter, then
	// alphanumerics/colon/underscore/dash) and nothing else.
	incompletePosting = regexp.MustCompile(`^(\s+)([A-Z][A-Za-z0-9:_\-]*)\s*$`)

	// A posting that already carries a position with a {...} annotation.
	annotatedPosting = regexp.MustCompile(`^(\s+)([A-Z][A-Za-z0-9:_\-]*)\s{2,}\S.*\{[^}]*\}`)

	costDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// Fill applies the automatic-posting and cost-basis caches for one file to
// its current lines. Automatics expand one incomplete posting into one line
// per cached amount; cost basis rewrites an underspecified {...} annotation
// with the cached fully-specified position. Both caches are keyed by 1-based
// line numbers rendered as strings, exactly as the validator emits them.
//
// The returned slice is a fresh copy when changed is true; the input is
// never mutated.
func Fill(lines []string, automatics map[string][]string, costBasis map[string]string) (result []string, changed bool) {
	result = lines

	if len(automatics) > 0 {
		result, changed = fillAutomatics(result, automatics)
	}
	if len(costBasis) > 0 {
		var costChanged bool
		result, costChanged = fillCostBasis(result, costBasis)
		changed = changed || costChanged
	}
	return result, changed
}

func fillAutomatics(lines []string, automatics map[string][]string) ([]string, bool) {
	targets := make([]int, 0, len(automatics))
	for key := range automatics {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 || n > len(lines) {
			continue
		}
		targets = append(targets, n)
	}
	// Bottom-to-top, so expanding one line into several does not shift
	// line numbers that are still pending above it.
	sort.Sort(sort.Reverse(sort.IntSlice(targets)))

	changed := false
	out := lines
	for _, lineNo := range targets {
		amounts := automatics[strconv.Itoa(lineNo)]
		if len(amounts) == 0 {
			continue
		}

		idx := lineNo - 1
		m := incompletePosting.FindStringSubmatch(out[idx])
		if m == nil {
			// Already filled, or the buffer moved since the run.
			continue
		}
		indent, account := m[1], m[2]

		filled := make([]string, 0, len(amounts))
		for _, amount := range amounts {
			filled = append(filled, indent+account+"  "+amount)
		}

		if !changed {
			out = append([]string(nil), out...)
			changed = true
		}
		out = append(out[:idx], append(filled, out[idx+1:]...)...)
	}
	return out, changed
}

func fillCostBasis(lines []string, costBasis map[string]string) ([]string, bool) {
	changed := false
	out := lines
	for key, position := range costBasis {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 || n > len(out) || strings.TrimSpace(position) == "" {
			continue
		}

		idx := n - 1
		m := annotatedPosting.FindStringSubmatch(out[idx])
		if m == nil {
			continue
		}
		if !needsCostBasis(out[idx]) {
			continue
		}
		indent, account := m[1], m[2]

		if !changed {
			out = append([]string(nil), out...)
			changed = true
		}
		out[idx] = indent + account + "  " + position
	}
	return out, changed
}

// needsCostBasis reports whether the line's {...} annotation is still
// underspecified: missing its acquisition date or the total-cost marker.
func needsCostBasis(line string) bool {
	start := strings.Index(line, "{")
	end := strings.Index(line, "}")
	if start == -1 || end == -1 || end < start {
		return false
	}
	annotation := line[start : end+1]
	return !costDate.MatchString(annotation) || !strings.Contains(line, "@@")
}
