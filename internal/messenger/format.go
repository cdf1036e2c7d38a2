package messenger

import (
	"regexp"
	"strings"
)

// Marker glyphs for clients with no rich rendering.
const (
	headingMarker = "🔹"
	bulletMarker  = "•"
)

var (
	boldRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldAltRe    = regexp.MustCompile(`__(.+?)__`)
	italicRe     = regexp.MustCompile(`\*(.+?)\*`)
	italicAltRe  = regexp.MustCompile(`_(.+?)_`)
	inlineCodeRe = regexp.MustCompile("`(.+?)`")
	linkRe       = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	headingRe    = regexp.MustCompile(`^#{1,6}\s+(.*)$`)
	listItemRe   = regexp.MustCompile(`^\s*[-*]\s+(.*)$`)
	separatorRe  = regexp.MustCompile(`^:?-{2,}:?$`)
)

// FormatPlain converts light Markdown markup into plain text suitable for a
// messenger client. Pure: no I/O, same input always yields the same output.
func FormatPlain(input string) string {
	lines := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); {
		line := lines[i]
		if strings.HasPrefix(strings.TrimSpace(line), "|") {
			block := []string{}
			for i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "|") {
				block = append(block, strings.TrimSpace(lines[i]))
				i++
			}
			out = append(out, formatTable(block)...)
			continue
		}
		out = append(out, formatLine(line))
		i++
	}

	return strings.TrimSpace(collapseBlankRuns(out))
}

func formatLine(line string) string {
	if m := headingRe.FindStringSubmatch(line); m != nil {
		return headingMarker + " " + stripInline(strings.TrimSpace(m[1])) + "\n"
	}
	if m := listItemRe.FindStringSubmatch(line); m != nil {
		return bulletMarker + " " + stripInline(strings.TrimSpace(m[1]))
	}
	return stripInline(line)
}

// formatTable renders a contiguous block of `|`-delimited lines. The first
// row is the header; separator rows are dropped; two-column tables render as
// key/value bullets, wider ones repeat the header per cell.
func formatTable(block []string) []string {
	var header []string
	rows := [][]string{}
	for _, line := range block {
		cells := parseTableRow(line)
		if len(cells) == 0 {
			continue
		}
		if isSeparatorRow(cells) {
			continue
		}
		if header == nil {
			header = cells
			continue
		}
		rows = append(rows, cells)
	}
	if header == nil {
		return nil
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(header) == 2 && len(row) >= 2 {
			out = append(out, bulletMarker+" "+row[0]+": "+row[1])
			continue
		}
		pairs := make([]string, 0, len(row))
		for i, cell := range row {
			name := ""
			if i < len(header) {
				name = header[i]
			}
			pairs = append(pairs, name+": "+cell)
		}
		out = append(out, bulletMarker+" "+strings.Join(pairs, " | "))
	}
	return out
}

func parseTableRow(line string) []string {
	parts := strings.Split(line, "|")
	// Leading and trailing `|` produce empty edge cells.
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	cells := make([]string, 0, len(parts))
	for _, part := range parts {
		cells = append(cells, stripInline(strings.TrimSpace(part)))
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		if !separatorRe.MatchString(cell) {
			return false
		}
	}
	return true
}

func stripInline(s string) string {
	s = linkRe.ReplaceAllString(s, "$1")
	s = boldRe.ReplaceAllString(s, "$1")
	s = boldAltRe.ReplaceAllString(s, "$1")
	s = italicRe.ReplaceAllString(s, "$1")
	s = italicAltRe.ReplaceAllString(s, "$1")
	s = inlineCodeRe.ReplaceAllString(s, "$1")
	return s
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// collapseBlankRuns joins the lines, reducing any run of blank lines to a
// single blank line.
func collapseBlankRuns(lines []string) string {
	return blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}
