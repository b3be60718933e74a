// Package formatter renders catalogs and deal summaries as markdown.
package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"bulliondeals/pkg/metadata"
)

// FormatMarkdown aligns every pipe table in content. A metadata block, if
// present, is carried over and re-signed against the aligned body.
func FormatMarkdown(content string) string {
	meta, body := metadata.Extract(content)

	aligned := AlignTables(body)
	if meta == nil {
		return aligned
	}

	return metadata.Sign(aligned, *meta)
}

// AlignTables pads the cells of each pipe table so that columns line up by display width.
func AlignTables(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))

	var table []string

	flush := func() {
		if len(table) > 0 {
			out = append(out, alignTable(table)...)
			table = nil
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") {
			table = append(table, line)

			continue
		}

		flush()

		out = append(out, line)
	}

	flush()

	return strings.Join(out, "\n")
}

func splitRow(row string) []string {
	parts := strings.Split(strings.TrimSpace(row), "|")
	// a well-formed row starts and ends with a pipe
	parts = parts[1 : len(parts)-1]

	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}

	return cells
}

// separator alignment for one column: "left", "right" or "center".
func alignmentOf(cell string) string {
	left := strings.HasPrefix(cell, ":")
	right := strings.HasSuffix(cell, ":")

	switch {
	case left && right:
		return "center"
	case right:
		return "right"
	}

	return "left"
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" || !strings.Contains(c, "-") {
			return false
		}
	}

	return len(cells) > 0
}

func alignTable(rows []string) []string {
	if len(rows) < 2 {
		return rows
	}

	table := make([][]string, len(rows))
	cols := 0

	for i, row := range rows {
		table[i] = splitRow(row)
		cols = max(cols, len(table[i]))
	}

	sepIdx := -1
	if isSeparator(table[1]) {
		sepIdx = 1
	}

	align := make([]string, cols)
	widths := make([]int, cols)

	for i := range widths {
		widths[i] = 3
		align[i] = "left"

		if sepIdx >= 0 && i < len(table[sepIdx]) {
			align[i] = alignmentOf(table[sepIdx][i])
		}
	}

	for r, row := range table {
		if r == sepIdx {
			continue
		}

		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	result := make([]string, 0, len(table))

	for r, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for i := 0; i < cols; i++ {
			sb.WriteString(" ")

			if r == sepIdx {
				sb.WriteString(separatorCell(align[i], widths[i]))
			} else {
				cell := ""
				if i < len(row) {
					cell = row[i]
				}

				sb.WriteString(pad(cell, align[i], widths[i]))
			}

			sb.WriteString(" |")
		}

		result = append(result, sb.String())
	}

	return result
}

func separatorCell(align string, width int) string {
	switch align {
	case "right":
		return strings.Repeat("-", width-1) + ":"
	case "center":
		return ":" + strings.Repeat("-", width-2) + ":"
	}

	return strings.Repeat("-", width)
}

func pad(cell, align string, width int) string {
	gap := width - runewidth.StringWidth(cell)
	if gap <= 0 {
		return cell
	}

	switch align {
	case "right":
		return strings.Repeat(" ", gap) + cell
	case "center":
		left := gap / 2
		return strings.Repeat(" ", left) + cell + strings.Repeat(" ", gap-left)
	}

	return cell + strings.Repeat(" ", gap)
}
