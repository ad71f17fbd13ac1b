package pdftable

import (
	"regexp"
	"strings"

	"github.com/sells-group/meralco-rates/internal/model"
)

// A segment is a run of words separated by single spaces. Columns in -layout
// output are at least two spaces apart.
var segmentRe = regexp.MustCompile(`\S+(?: \S+)*`)

// tableBreak is the number of consecutive blank lines that ends a table.
const tableBreak = 2

type segment struct {
	start, end int
	text       string
}

func (s segment) center() int { return (s.start + s.end) / 2 }

// ParseLayout splits the -layout text of one page into tables. Runs of blank
// lines separate tables; within a table, the line with the most segments
// fixes the column spans and every other segment joins the column it
// overlaps most.
func ParseLayout(text string) []model.Table {
	var tables []model.Table
	for _, block := range splitBlocks(text) {
		if t := buildTable(block); len(t) > 0 {
			tables = append(tables, t)
		}
	}
	return tables
}

func splitBlocks(text string) [][]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	// pdftotext separates pages with a form feed.
	text = strings.ReplaceAll(text, "\f", "\n\n\n")

	var blocks [][]string
	var cur []string
	blanks := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks >= tableBreak && len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		blanks = 0
		cur = append(cur, strings.ReplaceAll(line, "\t", "    "))
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

func buildTable(lines []string) model.Table {
	rows := make([][]segment, len(lines))
	anchor := -1
	for i, line := range lines {
		rows[i] = segments(line)
		if anchor < 0 || len(rows[i]) > len(rows[anchor]) {
			anchor = i
		}
	}
	if anchor < 0 || len(rows[anchor]) == 0 {
		return nil
	}

	cols := rows[anchor]
	table := make(model.Table, 0, len(rows))
	for _, segs := range rows {
		row := make([]string, len(cols))
		for _, s := range segs {
			c := nearestColumn(cols, s)
			if row[c] != "" {
				row[c] += " " + s.text
			} else {
				row[c] = s.text
			}
		}
		table = append(table, row)
	}
	return table
}

func segments(line string) []segment {
	var out []segment
	for _, loc := range segmentRe.FindAllStringIndex(line, -1) {
		out = append(out, segment{
			start: runeOffset(line, loc[0]),
			end:   runeOffset(line, loc[1]),
			text:  line[loc[0]:loc[1]],
		})
	}
	return out
}

// nearestColumn returns the column whose span overlaps s the most, or the
// one with the closest center when none overlaps.
func nearestColumn(cols []segment, s segment) int {
	best, bestOverlap := -1, 0
	for i, c := range cols {
		if o := min(c.end, s.end) - max(c.start, s.start); o > bestOverlap {
			best, bestOverlap = i, o
		}
	}
	if best >= 0 {
		return best
	}

	best, bestDist := 0, -1
	for i, c := range cols {
		d := c.center() - s.center()
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// runeOffset converts a byte offset to a column position so that multi-byte
// characters such as ₱ occupy one column, as they do in pdftotext output.
func runeOffset(s string, byteOff int) int {
	return len([]rune(s[:byteOff]))
}
