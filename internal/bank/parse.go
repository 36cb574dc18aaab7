package bank

import (
	"strconv"
	"strings"
)

// Parse converts raw bank text into one ParsedQuestion per question marker,
// in source order. defaultModule is used for blocks without a valid module
// tag and may be nil. Parse never fails; missing annotations leave the
// corresponding fields empty.
func Parse(raw string, defaultModule *int) []ParsedQuestion {
	blocks := Segment(raw)
	out := make([]ParsedQuestion, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, Extract(b, defaultModule))
	}
	return out
}

// Extract reads the annotations and subpart layout of a single block.
func Extract(block string, defaultModule *int) ParsedQuestion {
	q := ParsedQuestion{
		COTags:       []string{},
		QuestionType: QuestionTypeDescriptive,
		Module:       copyInt(defaultModule),
	}

	var moduleTag string
	for _, t := range scanTags(block) {
		switch t.kind {
		case tagModule:
			if moduleTag != "" {
				continue
			}
			moduleTag = t.text(block)
			if n, err := strconv.Atoi(t.value); err == nil && ValidModule(n) {
				q.Module = &n
			}
		case tagMarks:
			if q.Marks != nil {
				continue
			}
			if n, err := strconv.Atoi(t.value); err == nil {
				q.Marks = &n
			}
		case tagCO:
			q.COTags = append(q.COTags, "CO"+t.value)
		case tagLevel:
			if q.RBTLevel == nil {
				level := "L" + t.value
				q.RBTLevel = &level
			}
		}
	}

	q.Subparts = detectSubparts(block)

	text := stripQuestionPrefix(strings.TrimSpace(block))
	if moduleTag != "" {
		text = strings.TrimSpace(strings.ReplaceAll(text, moduleTag, ""))
	}
	q.Text = text
	return q
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
