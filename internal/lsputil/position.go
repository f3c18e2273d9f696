// Package lsputil converts between LSP positions (UTF-16 code units) and Go
// string offsets (UTF-8 bytes), and applies incremental text changes.
// Out-of-range positions are clamped rather than rejected; clients routinely
// send a column one past the end of a line.
package lsputil

import (
	"strings"
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// Document wraps one buffer's content with line-indexed access.
type Document struct {
	content string
	lines   []string
	starts  []int
}

func NewDocument(content string) *Document {
	d := &Document{content: content}
	d.lines = strings.Split(content, "\n")
	d.starts = make([]int, len(d.lines))
	offset := 0
	for i, line := range d.lines {
		d.starts[i] = offset
		offset += len(line) + 1
	}
	return d
}

func (d *Document) Content() string { return d.content }

func (d *Document) LineCount() int { return len(d.lines) }

// Line returns the 0-based line without its terminator, or "" out of range.
func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	return d.lines[i]
}

// Lines returns all lines. Callers must not mutate the slice.
func (d *Document) Lines() []string { return d.lines }

func (d *Document) LineUTF16Len(i int) int {
	return UTF16Len(d.Line(i))
}

// ByteOffset converts an LSP position to a byte offset into the content.
func (d *Document) ByteOffset(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(d.lines) {
		return len(d.content)
	}
	return d.starts[line] + UTF16ToByte(d.lines[line], int(pos.Character))
}

// ApplyChange splices replacement text over an LSP range.
func (d *Document) ApplyChange(r protocol.Range, text string) string {
	start := d.ByteOffset(r.Start)
	end := d.ByteOffset(r.End)
	if start > end {
		start, end = end, start
	}
	if start > len(d.content) {
		start = len(d.content)
	}
	if end > len(d.content) {
		end = len(d.content)
	}
	return d.content[:start] + text + d.content[end:]
}

// UTF16Len counts UTF-16 code units in s; runes outside the BMP count twice.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n++
		if r >= 0x10000 {
			n++
		}
	}
	return n
}

// UTF16ToByte converts a UTF-16 column on a single line to a byte offset,
// clamped to the line length.
func UTF16ToByte(line string, col int) int {
	bytes, units := 0, 0
	for _, r := range line {
		if units >= col {
			break
		}
		bytes += utf8.RuneLen(r)
		units++
		if r >= 0x10000 {
			units++
		}
	}
	return bytes
}

// ByteToUTF16 converts a byte offset on a single line to a UTF-16 column.
func ByteToUTF16(line string, offset int) int {
	bytes, units := 0, 0
	for _, r := range line {
		if bytes >= offset {
			break
		}
		bytes += utf8.RuneLen(r)
		units++
		if r >= 0x10000 {
			units++
		}
	}
	return units
}
