package bank

import "strings"

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// scanQuestionPrefix matches a leading "Q<digits>" with optional whitespace
// between the letter and the number. end is the offset just past the number,
// or past the dot when dotted is true.
func scanQuestionPrefix(s string) (end int, dotted bool, ok bool) {
	if len(s) == 0 || (s[0] != 'Q' && s[0] != 'q') {
		return 0, false, false
	}
	i := skipSpace(s, 1)
	j := skipDigits(s, i)
	if j == i {
		return 0, false, false
	}
	if j < len(s) && s[j] == '.' {
		return j + 1, true, true
	}
	return j, false, true
}

func isMarkerLine(line string) bool {
	_, dotted, ok := scanQuestionPrefix(line[skipSpace(line, 0):])
	return ok && dotted
}

// stripQuestionPrefix drops a leading "Q<digits>." (dot optional) and the
// whitespace after it.
func stripQuestionPrefix(s string) string {
	end, _, ok := scanQuestionPrefix(s)
	if !ok {
		return s
	}
	return s[skipSpace(s, end):]
}

// Segment splits text into blocks, one per question marker line. The marker
// line opens its block. Lines before the first marker are not a question and
// are dropped.
func Segment(text string) []string {
	var blocks []string
	var current []string
	started := false

	flush := func() {
		if !started || len(current) == 0 {
			return
		}
		blocks = append(blocks, strings.TrimSpace(strings.Join(current, "\n")))
		current = current[:0]
	}

	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		if isMarkerLine(line) {
			flush()
			started = true
		}
		if started {
			current = append(current, line)
		}
	}
	flush()
	return blocks
}
