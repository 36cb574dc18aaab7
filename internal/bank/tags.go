package bank

import "strings"

type tagKind int

const (
	tagMarks tagKind = iota + 1
	tagCO
	tagLevel
	tagModule
)

// tag is one bracketed annotation. start/end span the brackets.
type tag struct {
	kind  tagKind
	start int
	end   int
	value string
}

func (t tag) text(s string) string {
	return s[t.start:t.end]
}

// matchTag tries each tag rule at s[i], which must be '['.
// Rules are disjoint on the bytes following the bracket.
func matchTag(s string, i int) (tag, bool) {
	if i >= len(s) || s[i] != '[' {
		return tag{}, false
	}
	for _, rule := range []func(string, int) (tag, bool){matchMarks, matchCO, matchLevel, matchModule} {
		if t, ok := rule(s, i); ok {
			return t, true
		}
	}
	return tag{}, false
}

// matchMarks: "[12]" or "[12M]", with optional spaces before the M.
func matchMarks(s string, i int) (tag, bool) {
	j := skipDigits(s, i+1)
	if j == i+1 {
		return tag{}, false
	}
	digits := s[i+1 : j]
	if j < len(s) && s[j] == ']' {
		return tag{kind: tagMarks, start: i, end: j + 1, value: digits}, true
	}
	k := skipSpace(s, j)
	if k+1 < len(s) && (s[k] == 'm' || s[k] == 'M') && s[k+1] == ']' {
		return tag{kind: tagMarks, start: i, end: k + 2, value: digits}, true
	}
	return tag{}, false
}

// matchCO: "[CO4]".
func matchCO(s string, i int) (tag, bool) {
	if !strings.HasPrefix(s[i+1:], "CO") {
		return tag{}, false
	}
	j := skipDigits(s, i+3)
	if j == i+3 || j >= len(s) || s[j] != ']' {
		return tag{}, false
	}
	return tag{kind: tagCO, start: i, end: j + 1, value: s[i+3 : j]}, true
}

// matchLevel: "[L1]".."[L6]".
func matchLevel(s string, i int) (tag, bool) {
	if i+3 >= len(s) || s[i+1] != 'L' || s[i+2] < '1' || s[i+2] > '6' || s[i+3] != ']' {
		return tag{}, false
	}
	return tag{kind: tagLevel, start: i, end: i + 4, value: s[i+2 : i+3]}, true
}

// matchModule: "[Module 3]" or "[M3]", case-insensitive, spaces allowed
// after the bracket and before the number.
func matchModule(s string, i int) (tag, bool) {
	j := skipSpace(s, i+1)
	switch {
	case hasPrefixFold(s, j, "module"):
		j += len("module")
	case j < len(s) && (s[j] == 'm' || s[j] == 'M'):
		j++
	default:
		return tag{}, false
	}
	j = skipSpace(s, j)
	k := skipDigits(s, j)
	if k == j || k >= len(s) || s[k] != ']' {
		return tag{}, false
	}
	return tag{kind: tagModule, start: i, end: k + 1, value: s[j:k]}, true
}

// scanTags returns every tag in s in order of appearance.
func scanTags(s string) []tag {
	var out []tag
	for i := 0; i < len(s); i++ {
		if s[i] != '[' {
			continue
		}
		if t, ok := matchTag(s, i); ok {
			out = append(out, t)
			i = t.end - 1
		}
	}
	return out
}

// Scrub removes marks, course-outcome and level tags from s and collapses
// whitespace. Module tags are left alone. Scrub(Scrub(s)) == Scrub(s).
func Scrub(s string) string {
	for {
		next := removeDisplayTags(s)
		if next == s {
			break
		}
		s = next
	}
	return strings.Join(strings.Fields(s), " ")
}

func removeDisplayTags(s string) string {
	var b strings.Builder
	last := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '[' {
			continue
		}
		t, ok := matchTag(s, i)
		if !ok || t.kind == tagModule {
			continue
		}
		b.WriteString(s[last:t.start])
		last = t.end
		i = t.end - 1
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// NormalizeText is the key used to detect the same question stored twice.
func NormalizeText(s string) string {
	return strings.TrimSpace(strings.ToLower(Scrub(s)))
}
