package server

import (
	"context"
	"regexp"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/lsputil"
)

var (
	entryHeader  = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}\s`)
	sectionTitle = regexp.MustCompile(`^(\*+)\s`)
)

func (s *Server) FoldingRanges(ctx context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	settings := s.getSettings()
	if !settings.Features.Folding {
		return nil, nil
	}

	content, ok := s.GetDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	if content == "" {
		return []protocol.FoldingRange{}, nil
	}

	lines := lsputil.NewDocument(content).Lines()

	var ranges []protocol.FoldingRange
	ranges = append(ranges, findEntryFolds(lines)...)
	ranges = append(ranges, findSectionFolds(lines)...)
	ranges = append(ranges, findCommentFolds(lines)...)

	return ranges, nil
}

// findEntryFolds folds each dated entry together with its indented body
// (postings, metadata).
func findEntryFolds(lines []string) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange

	for i := 0; i < len(lines); i++ {
		if !entryHeader.MatchString(lines[i]) {
			continue
		}

		end := i
		for j := i + 1; j < len(lines); j++ {
			line := lines[j]
			if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
				if strings.TrimSpace(line) != "" {
					end = j
				}
				continue
			}
			break
		}

		if end > i {
			ranges = append(ranges, protocol.FoldingRange{
				StartLine: uint32(i),
				EndLine:   uint32(end),
				Kind:      protocol.RegionFoldingRange,
			})
		}
	}

	return ranges
}

// findSectionFolds folds org-style "*" headings down to the next heading of
// equal or shallower depth.
func findSectionFolds(lines []string) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange

	for i := 0; i < len(lines); i++ {
		m := sectionTitle.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		depth := len(m[1])

		end := len(lines) - 1
		for j := i + 1; j < len(lines); j++ {
			next := sectionTitle.FindStringSubmatch(lines[j])
			if next != nil && len(next[1]) <= depth {
				end = j - 1
				break
			}
		}

		// Trim trailing blanks so the fold hugs its content.
		for end > i && strings.TrimSpace(lines[end]) == "" {
			end--
		}

		if end > i {
			ranges = append(ranges, protocol.FoldingRange{
				StartLine: uint32(i),
				EndLine:   uint32(end),
				Kind:      protocol.RegionFoldingRange,
			})
		}
	}

	return ranges
}

func findCommentFolds(lines []string) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange

	i := 0
	for i < len(lines) {
		if !isCommentLine(lines[i]) {
			i++
			continue
		}

		start := i
		end := i
		for j := i + 1; j < len(lines); j++ {
			if isCommentLine(lines[j]) {
				end = j
				continue
			}
			break
		}

		if end > start {
			ranges = append(ranges, protocol.FoldingRange{
				StartLine: uint32(start),
				EndLine:   uint32(end),
				Kind:      protocol.CommentFoldingRange,
			})
		}

		i = end + 1
	}

	return ranges
}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, ";") && !sectionTitle.MatchString(line)
}
