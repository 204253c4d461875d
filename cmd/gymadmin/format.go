package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

func formatJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func formatTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			width := 0
			if i < len(widths) {
				width = widths[i]
			}
			parts[i] = fmt.Sprintf("%-*s", width, cell)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	printRow(headers)
	seps := make([]string, len(headers))
	for i, width := range widths {
		seps[i] = strings.Repeat("-", width)
	}
	printRow(seps)
	for _, row := range rows {
		printRow(row)
	}
}

// output writes v as JSON unless the table format is selected and a table
// renderer is given.
func (c *cli) output(w io.Writer, v any, table func(io.Writer)) error {
	if c.format == "table" && table != nil {
		table(w)
		return nil
	}
	return formatJSON(w, v)
}

func joinPerms[T ~string](perms []T) string {
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}
