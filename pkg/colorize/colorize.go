package colorize

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration indicates a rule the caller has to fix: a filter that
	// does not reference the target property, a malformed filter expression,
	// or a comparison between incompatible value kinds.
	ErrConfiguration = errors.New("invalid colorize configuration")
	// ErrLookup indicates the target property is not present in the table
	// header.
	ErrLookup = errors.New("property not found in table header")
)

// Rule describes one colorize pass over a rendered table.
type Rule struct {
	// Property names the table column the filter is evaluated against.
	// Matched against header cell text case-insensitively.
	Property string `yaml:"property"`
	// Color is the background color to apply, named or hex.
	Color string `yaml:"color"`
	// Filter is a boolean expression over the column value, e.g.
	// "Status -ge 2" or "Size -gt 100 -and Size -lt 500".
	Filter string `yaml:"filter"`
	// WholeRow colors the entire row instead of the single matching cell.
	WholeRow bool `yaml:"whole-row,omitempty"`
}

// Colorize applies rule to the given table markup and returns the rewritten
// lines. The input is expected to contain one table with a header row of
// <th> cells and body rows of <td> cells, one row per line, as produced by
// the report renderer.
//
// The pass preserves line count and order. Rows whose value at the target
// column satisfies the filter get an inline background-color style on the
// matching cell (or on the whole row when rule.WholeRow is set); a row that
// already carries a background color from an earlier pass has the color
// replaced, not stacked. On any error no output is returned.
func Colorize(lines []string, rule Rule) ([]string, error) {
	if strings.TrimSpace(rule.Property) == "" {
		return nil, fmt.Errorf("%w: rule has no property", ErrConfiguration)
	}
	if !containsFold(rule.Filter, rule.Property) {
		return nil, fmt.Errorf("%w: filter %q does not reference property %q", ErrConfiguration, rule.Filter, rule.Property)
	}
	pred, err := compileFilter(rule.Filter, rule.Property)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(lines))
	column := -1
	for n, line := range lines {
		switch {
		case isRowLine(line, "th"):
			cells := scanCells(line, "th")
			column = resolveColumn(cells, rule.Property)
			if column < 0 {
				return nil, fmt.Errorf("%w: %q (header has %s)", ErrLookup, rule.Property, headerList(cells))
			}
			out = append(out, line)

		case isRowLine(line, "td"):
			if column < 0 {
				return nil, fmt.Errorf("%w: %q (data row on line %d precedes any header row)", ErrLookup, rule.Property, n+1)
			}
			cells := scanCells(line, "td")
			if column >= len(cells) {
				// Short row, nothing at the target column to match on.
				out = append(out, line)
				continue
			}
			match, err := pred.eval(parseValue(cells[column].text))
			if err != nil {
				return nil, err
			}
			if !match {
				out = append(out, line)
				continue
			}
			if rule.WholeRow {
				out = append(out, restyleRow(line, rule.Color))
			} else {
				out = append(out, restyleCell(line, cells[column], rule.Color))
			}

		default:
			out = append(out, line)
		}
	}
	return out, nil
}

// resolveColumn returns the index of the first header cell whose text equals
// property case-insensitively, or -1.
func resolveColumn(cells []cell, property string) int {
	for i, c := range cells {
		if strings.EqualFold(strings.TrimSpace(c.text), property) {
			return i
		}
	}
	return -1
}

func headerList(cells []cell) string {
	names := make([]string, 0, len(cells))
	for _, c := range cells {
		names = append(names, strings.TrimSpace(c.text))
	}
	return strings.Join(names, ", ")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
