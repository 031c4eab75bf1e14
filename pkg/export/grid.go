package export

import "fmt"

// Grid is a weekly timetable laid out as a table: one header row and one row per time slot.
type Grid struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (g Grid) validate() error {
	if len(g.Headers) == 0 {
		return fmt.Errorf("grid requires at least one header")
	}
	for i, row := range g.Rows {
		if len(row) > len(g.Headers) {
			return fmt.Errorf("grid row %d has %d cells, want at most %d", i, len(row), len(g.Headers))
		}
	}
	return nil
}

func (g Grid) cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
