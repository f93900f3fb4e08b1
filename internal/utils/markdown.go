package utils

import (
	"strings"

	"github.com/olekukonko/tablewriter"
)

// MarkdownTable renders a GitHub-flavoured markdown table.
func MarkdownTable(header []string, rows [][]string) string {
	var b strings.Builder
	tw := tablewriter.NewWriter(&b)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	tw.SetCenterSeparator("|")
	for _, r := range rows {
		tw.Append(SafeCells(r))
	}
	tw.Render()
	return b.String()
}

// SafeCells strips characters that would break a markdown table row.
func SafeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(c, "\n", " "), "|", "/")
	}
	return out
}
