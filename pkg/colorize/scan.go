package colorize

import "strings"

const backgroundProp = "background-color:"

// cell is one <td>/<th> run on a row line. start/end are byte offsets of the
// full open-tag-to-close-tag span so a rewrite can splice in place.
type cell struct {
	start int
	end   int // exclusive
	text  string
}

// findTag returns the index of the first "<"+tag in s at or after from where
// the tag name is properly delimited by '>' or an attribute separator, or -1.
func findTag(s, tag string, from int) int {
	needle := "<" + tag
	for i := from; i < len(s); {
		j := strings.Index(s[i:], needle)
		if j < 0 {
			return -1
		}
		j += i
		k := j + len(needle)
		if k < len(s) && (s[k] == '>' || s[k] == ' ' || s[k] == '\t') {
			return j
		}
		i = j + 1
	}
	return -1
}

// rowOpen locates a <tr ...> open tag immediately followed by a cell of the
// given tag. It returns the tr start offset and the offset just past the tr
// open tag's '>'.
func rowOpen(line, cellTag string) (trStart, openEnd int, ok bool) {
	trStart = findTag(line, "tr", 0)
	if trStart < 0 {
		return 0, 0, false
	}
	gt := strings.IndexByte(line[trStart:], '>')
	if gt < 0 {
		return 0, 0, false
	}
	openEnd = trStart + gt + 1
	if findTag(line, cellTag, openEnd) != openEnd {
		return 0, 0, false
	}
	return trStart, openEnd, true
}

// isRowLine reports whether line is a table row whose first cell uses the
// given tag ("th" for header rows, "td" for data rows).
func isRowLine(line, cellTag string) bool {
	_, _, ok := rowOpen(line, cellTag)
	return ok
}

// scanCells extracts all <tag ...>text</tag> runs on a row line in
// left-to-right order.
func scanCells(line, tag string) []cell {
	var cells []cell
	closing := "</" + tag + ">"
	for i := 0; ; {
		start := findTag(line, tag, i)
		if start < 0 {
			return cells
		}
		gt := strings.IndexByte(line[start:], '>')
		if gt < 0 {
			return cells
		}
		textStart := start + gt + 1
		rel := strings.Index(line[textStart:], closing)
		if rel < 0 {
			return cells
		}
		end := textStart + rel + len(closing)
		cells = append(cells, cell{start: start, end: end, text: line[textStart : textStart+rel]})
		i = end
	}
}

// restyleRow sets the row background on the <tr> open tag. When the open tag
// already carries a background-color value from an earlier pass, the value is
// replaced in place instead of stacking a second style attribute.
func restyleRow(line, color string) string {
	trStart, openEnd, ok := rowOpen(line, "td")
	if !ok {
		return line
	}
	open := line[trStart:openEnd]
	if p := strings.Index(open, backgroundProp); p >= 0 {
		vs := p + len(backgroundProp)
		ve := vs
		for ve < len(open) && open[ve] != ';' && open[ve] != '"' && open[ve] != '\'' {
			ve++
		}
		return line[:trStart] + open[:vs] + color + open[ve:] + line[openEnd:]
	}
	return line[:trStart] + open[:len(open)-1] + ` style="` + backgroundProp + color + `">` + line[openEnd:]
}

// restyleCell replaces the single cell with an equivalent one carrying the
// background style, keeping its text and everything around it untouched.
func restyleCell(line string, c cell, color string) string {
	return line[:c.start] + `<td style="` + backgroundProp + color + `">` + c.text + "</td>" + line[c.end:]
}
