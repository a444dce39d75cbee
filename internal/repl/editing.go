package repl

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// cells measures terminal width independent of the locale's ambiguous-width setting.
var cells = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

// truncateCells 按终端显示列宽截断，超出时以 "…" 结尾
// truncateCells cuts s to at most width terminal cells, ending in "…" when cut.
// Hangul and CJK runes take two cells.
func truncateCells(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 {
		return ""
	}
	if cells.StringWidth(s) <= width {
		return s
	}
	return cells.Truncate(s, width, "…")
}

// padCells right-pads s with spaces to width cells.
func padCells(s string, width int) string {
	return cells.FillRight(s, width)
}
