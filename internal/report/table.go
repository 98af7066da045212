package report

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"outlierx/pkg/utils"
)

// maxCellWidth caps a rendered cell in terminal columns.
const maxCellWidth = 48

// renderTable lays out header and rows as a pipe table whose columns line up
// by display width, so wide runes in team names do not skew the grid.
func renderTable(header []string, rows [][]string) []string {
	strs := utils.NewStringHelper()

	colCount := len(header)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	cells := make([][]string, 0, len(rows)+1)
	for _, row := range append([][]string{header}, rows...) {
		line := make([]string, colCount)
		for i := 0; i < len(row) && i < colCount; i++ {
			line[i] = strs.TruncateString(strs.NormalizeWhitespace(row[i]), maxCellWidth)
		}

		cells = append(cells, line)
	}

	colWidths := make([]int, colCount)

	for _, row := range cells {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	for i := range colWidths {
		if colWidths[i] < 3 {
			colWidths[i] = 3
		}
	}

	result := make([]string, 0, len(cells)+1)

	for i, row := range cells {
		result = append(result, renderRow(row, colWidths, strs))

		if i == 0 {
			sep := make([]string, colCount)
			for j, w := range colWidths {
				sep[j] = strings.Repeat("-", w)
			}

			result = append(result, renderRow(sep, colWidths, strs))
		}
	}

	return result
}

func renderRow(row []string, widths []int, strs *utils.StringHelper) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, content := range row {
		sb.WriteString(" ")
		sb.WriteString(strs.PadRight(content, widths[j]))
		sb.WriteString(" |")
	}

	return sb.String()
}

// RenderTable renders header and rows as an aligned pipe table.
func RenderTable(header []string, rows [][]string) string {
	return strings.Join(renderTable(header, rows), "\n")
}
