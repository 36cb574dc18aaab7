package bank

import "strings"

// labelRule returns the end offset of a subpart label starting at s[i],
// or -1 when no label starts there.
type labelRule func(s string, i int) int

var romanLabels = map[string]bool{
	"i": true, "ii": true, "iii": true, "iv": true, "v": true,
	"vi": true, "vii": true, "viii": true, "ix": true, "x": true,
}

func letterLabel(s string, i int) int {
	if i < len(s) && s[i] >= 'a' && s[i] <= 'd' {
		return i + 1
	}
	return -1
}

func romanLabel(s string, i int) int {
	j := i
	for j < len(s) && (s[j] == 'i' || s[j] == 'v' || s[j] == 'x') {
		j++
	}
	if j > i && romanLabels[s[i:j]] {
		return j
	}
	return -1
}

// lineSubpart matches a line of the form "  (b) text" or "iv) text".
func lineSubpart(line string, rule labelRule) (Subpart, bool) {
	i := skipSpace(line, 0)
	if i < len(line) && line[i] == '(' {
		i++
	}
	end := rule(line, i)
	if end < 0 || end >= len(line) || line[end] != ')' {
		return Subpart{}, false
	}
	rest := end + 1
	if rest >= len(line) || (line[rest] != ' ' && line[rest] != '\t') {
		return Subpart{}, false
	}
	return Subpart{Label: line[i:end], Text: strings.TrimSpace(line[rest:])}, true
}

func lineSubparts(lines []string, rule labelRule) []Subpart {
	var out []Subpart
	for _, line := range lines {
		if sp, ok := lineSubpart(line, rule); ok {
			out = append(out, sp)
		}
	}
	return out
}

type inlineMarker struct {
	label     string
	start     int
	textStart int
}

// inlineMarkers finds "label) " markers inside running text. A marker must
// not be glued to a preceding word character.
func inlineMarkers(s string, rule labelRule) []inlineMarker {
	var out []inlineMarker
	for i := 0; i < len(s); i++ {
		if i > 0 && isWordByte(s[i-1]) {
			continue
		}
		j := i
		if s[j] == '(' {
			j++
		}
		end := rule(s, j)
		if end < 0 || end >= len(s) || s[end] != ')' {
			continue
		}
		next := end + 1
		if next >= len(s) || !isSpace(s[next]) {
			continue
		}
		textStart := skipSpace(s, next)
		out = append(out, inlineMarker{label: s[j:end], start: i, textStart: textStart})
		i = textStart - 1
	}
	return out
}

func inlineSubparts(s string, rule labelRule) []Subpart {
	markers := inlineMarkers(s, rule)
	if len(markers) == 0 {
		return nil
	}
	out := make([]Subpart, 0, len(markers))
	for idx, m := range markers {
		end := len(s)
		if idx+1 < len(markers) {
			end = markers[idx+1].start
		}
		out = append(out, Subpart{Label: m.label, Text: strings.TrimSpace(s[m.textStart:end])})
	}
	return out
}

// detectSubparts runs the line-anchored rules first (letters, then romans,
// concatenated). Only when both find nothing does it fall back to inline
// markers on the flattened block, romans before letters.
func detectSubparts(block string) []Subpart {
	lines := strings.Split(block, "\n")
	out := lineSubparts(lines, letterLabel)
	out = append(out, lineSubparts(lines, romanLabel)...)
	if len(out) > 0 {
		return out
	}

	flat := strings.ReplaceAll(block, "\n", " ")
	if sp := inlineSubparts(flat, romanLabel); len(sp) > 0 {
		return sp
	}
	if sp := inlineSubparts(flat, letterLabel); len(sp) > 0 {
		return sp
	}
	return nil
}
