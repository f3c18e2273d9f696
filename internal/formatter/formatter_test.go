package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dotColumn(line string) int {
	return strings.Index(line, ".")
}

func TestAlignLine_DecimalPointOnColumn(t *testing.T) {
	line, ok := AlignLine("  Expenses:Food  1.50 USD", 30)
	require.True(t, ok)
	assert.Equal(t, 29, dotColumn(line))
	assert.Equal(t, "1.50 USD", strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "Expenses:Food")))
}

func TestAlignLine_DifferentWidthsShareColumn(t *testing.T) {
	a, ok := AlignLine("  Expenses:Food  1.50 USD", 30)
	require.True(t, ok)
	b, ok := AlignLine("  Assets:Checking  -1234.56 USD", 30)
	require.True(t, ok)

	assert.Equal(t, dotColumn(a), dotColumn(b))
}

func TestAlignLine_MinimumTwoSpaces(t *testing.T) {
	line, ok := AlignLine("  Expenses:Some:Very:Long:Account:Name  12345.00 USD", 10)
	require.True(t, ok)
	assert.Contains(t, line, "Name  12345.00 USD")
}

func TestAlignLine_NonPostingLines(t *testing.T) {
	for _, line := range []string{
		`2024-01-05 * "Grocer" "run"`,
		"  Assets:Cash",
		"; comment",
		"",
		"option \"operating_currency\" \"USD\"",
	} {
		_, ok := AlignLine(line, 30)
		assert.False(t, ok, "line %q", line)
	}
}

func TestAlignLine_FlaggedPosting(t *testing.T) {
	line, ok := AlignLine("  ! Expenses:Food  1.50 USD", 30)
	require.True(t, ok)
	assert.Equal(t, 29, dotColumn(line))
}

func TestAlignLine_WholeNumberAmount(t *testing.T) {
	// No decimal point: the last digit sits where the integer part ends.
	line, ok := AlignLine("  Assets:Brokerage  10 HOOL {2.00 USD}", 30)
	require.True(t, ok)
	idx := strings.Index(line, "10 HOOL")
	assert.Equal(t, 27, idx)
}

func TestFormatLines(t *testing.T) {
	input := []string{
		`2024-01-05 * "Grocer" "run"`,
		"  Expenses:Food  1.50 USD",
		"  Assets:Cash  -1.50 USD",
	}

	out, changed := FormatLines(input, Options{SeparatorColumn: 30})
	require.True(t, changed)
	assert.Equal(t, input[0], out[0])
	assert.Equal(t, dotColumn(out[1]), dotColumn(out[2]))
	// Input untouched.
	assert.Equal(t, "  Expenses:Food  1.50 USD", input[1])
}

func TestFormatLines_AlreadyAligned(t *testing.T) {
	aligned, _ := AlignLine("  Expenses:Food  1.50 USD", 30)
	out, changed := FormatLines([]string{aligned}, Options{SeparatorColumn: 30})
	assert.False(t, changed)
	assert.Equal(t, []string{aligned}, out)
}

func TestFormatDocument_EmitsWholeLineEdits(t *testing.T) {
	content := "2024-01-05 * \"x\"\n  Expenses:Food  1.50 USD\n"

	edits := FormatDocument(content, Options{SeparatorColumn: 30})
	require.Len(t, edits, 1)
	assert.Equal(t, uint32(1), edits[0].Range.Start.Line)
	assert.Equal(t, uint32(0), edits[0].Range.Start.Character)
	assert.Equal(t, 29, dotColumn(edits[0].NewText))
}

func TestFormatDocument_DefaultColumn(t *testing.T) {
	edits := FormatDocument("  Expenses:Food  1.50 USD\n", Options{})
	require.Len(t, edits, 1)
	assert.Equal(t, DefaultSeparatorColumn-1, dotColumn(edits[0].NewText))
}
