package beancheck

import (
	"encoding/json"
	"io"
	"strings"
)

// Error is one entry of the validator's first output document.
type Error struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// FlaggedEntry is one entry of the validator's third output document. Flag is
// the single-character beancount flag (usually "!").
type FlaggedEntry struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Flag    string `json:"flag"`
	Message string `json:"message"`
}

// AccountDetail carries what the validator knows about one open directive.
type AccountDetail struct {
	Open       string   `json:"open"`
	Close      string   `json:"close"`
	Currencies []string `json:"currencies"`
	Balance    []string `json:"balance"`
}

// Option is one ledger option pair. Order is preserved so the first
// operating_currency wins.
type Option struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CompletionData is the validator's second output document: the full
// completion snapshot for one ledger. It is replaced wholesale on every run.
type CompletionData struct {
	Accounts    map[string]AccountDetail `json:"accounts"`
	Commodities []string                 `json:"commodities"`
	Payees      []string                 `json:"payees"`
	Narrations  []string                 `json:"narrations"`
	Tags        []string                 `json:"tags"`
	Links       []string                 `json:"links"`
	Options     []Option                 `json:"options"`
}

// Hints is the validator's fourth output document. Automatics maps file →
// 1-based line (as a string, as emitted by the validator) → amount strings to
// substitute into an incomplete posting. CostBasis maps file → line → a fully
// specified position string replacing an underspecified {...} annotation.
type Hints struct {
	Automatics map[string]map[string][]string
	CostBasis  map[string]map[string]string
}

// Report is the decoded result of one validator run.
type Report struct {
	Errors     []Error
	Completion CompletionData
	Flagged    []FlaggedEntry
	Hints      Hints
}

// DecodeReport reads the four newline-joined JSON documents the checker
// script prints to stdout. A document that fails to decode degrades to its
// empty value; the remaining documents are still attempted. Only a stream
// that yields no documents at all is reported as an error.
func DecodeReport(r io.Reader) (Report, error) {
	var report Report

	dec := json.NewDecoder(r)
	docs := make([]json.RawMessage, 0, 4)
	for len(docs) < 4 {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			if len(docs) == 0 {
				return report, err
			}
			break
		}
		docs = append(docs, raw)
	}
	if len(docs) == 0 {
		return report, io.ErrUnexpectedEOF
	}

	if len(docs) > 0 {
		if err := json.Unmarshal(docs[0], &report.Errors); err != nil {
			report.Errors = nil
		}
	}
	if len(docs) > 1 {
		if err := json.Unmarshal(docs[1], &report.Completion); err != nil {
			report.Completion = CompletionData{}
		}
	}
	if len(docs) > 2 {
		if err := json.Unmarshal(docs[2], &report.Flagged); err != nil {
			report.Flagged = nil
		}
	}
	if len(docs) > 3 {
		report.Hints = decodeHints(docs[3])
	}

	return report, nil
}

// decodeHints accepts both hint payload forms: the legacy flat
// {file: {line: amount}} map and the {automatics, cost_basis} wrapper. A
// payload that matches neither yields empty hints.
func decodeHints(raw json.RawMessage) Hints {
	var wrapper struct {
		Automatics map[string]map[string]json.RawMessage `json:"automatics"`
		CostBasis  map[string]map[string]string          `json:"cost_basis"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && (wrapper.Automatics != nil || wrapper.CostBasis != nil) {
		return Hints{
			Automatics: normalizeAmounts(wrapper.Automatics),
			CostBasis:  wrapper.CostBasis,
		}
	}

	var flat map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &flat); err != nil {
		return Hints{}
	}
	return Hints{Automatics: normalizeAmounts(flat)}
}

// normalizeAmounts folds the two per-line value encodings (a single amount
// string or a list of them) into a list.
func normalizeAmounts(in map[string]map[string]json.RawMessage) map[string]map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string]map[string][]string, len(in))
	for file, lines := range in {
		fileOut := make(map[string][]string, len(lines))
		for line, raw := range lines {
			var many []string
			if err := json.Unmarshal(raw, &many); err == nil {
				fileOut[line] = many
				continue
			}
			var one string
			if err := json.Unmarshal(raw, &one); err == nil && strings.TrimSpace(one) != "" {
				fileOut[line] = []string{one}
			}
		}
		if len(fileOut) > 0 {
			out[file] = fileOut
		}
	}
	return out
}
