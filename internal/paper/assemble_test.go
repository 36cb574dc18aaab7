package paper

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"testing"

	"questgen/internal/bank"
	"questgen/internal/question"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func rec(id int64, module int, text string, marks int) question.Record {
	r := question.Record{
		ID:     id,
		Text:   text,
		COTags: []string{fmt.Sprintf("CO%d", module)},
		Status: question.StatusApproved,
	}
	if module > 0 {
		r.Module = intPtr(module)
	}
	if marks > 0 {
		r.Marks = intPtr(marks)
	}
	return r
}

func seeded(seed uint64) Options {
	return Options{Rand: rand.New(rand.NewPCG(seed, seed+1))}
}

func twoPartLayout(qnos ...int) []QuestionLayout {
	out := make([]QuestionLayout, 0, len(qnos))
	for _, qno := range qnos {
		out = append(out, QuestionLayout{QNo: qno, Parts: []string{"a", "b"}, Marks: map[string]int{"a": 6, "b": 4}})
	}
	return out
}

func filledParts(p Paper) []Part {
	var out []Part
	for _, r := range p.Rows {
		for _, part := range r.Parts {
			if part.SourceQID != nil {
				out = append(out, part)
			}
		}
	}
	return out
}

func TestGenerateNeverRepeatsQuestionOrText(t *testing.T) {
	pool := []question.Record{
		rec(1, 1, "Explain paging [5M]", 5),
		rec(2, 1, "  explain PAGING  ", 5),
		rec(3, 1, "Define a process", 4),
		rec(4, 2, "Define a process [CO2]", 6),
		rec(5, 2, "Compare TCP and UDP", 6),
		rec(6, 2, "What is a socket?", 4),
		rec(7, 3, "Describe RAID levels", 6),
		rec(8, 3, "Explain deadlock", 4),
	}
	cfg := GenerationConfig{Questions: twoPartLayout(1, 2, 3, 4)}

	for seed := uint64(0); seed < 50; seed++ {
		p := Generate(cfg, pool, nil, seeded(seed))
		seenIDs := map[int64]bool{}
		seenTexts := map[string]bool{}
		for _, part := range filledParts(p) {
			if seenIDs[*part.SourceQID] {
				t.Fatalf("seed %d: question %d reused", seed, *part.SourceQID)
			}
			seenIDs[*part.SourceQID] = true
			key := bank.NormalizeText(part.Text)
			if seenTexts[key] {
				t.Fatalf("seed %d: text %q reused", seed, key)
			}
			seenTexts[key] = true
		}
		if len(seenIDs) != 6 {
			t.Fatalf("seed %d: expected 6 distinct questions from 6 distinct texts, got %d", seed, len(seenIDs))
		}
	}
}

func TestGenerateRowShapeAlwaysComplete(t *testing.T) {
	cfg := GenerationConfig{Questions: []QuestionLayout{
		{QNo: 1, Parts: []string{"a", "b", "c"}, Marks: map[string]int{"a": 5, "c": 3}},
		{QNo: 2},
	}}
	p := Generate(cfg, nil, nil, seeded(1))
	if len(p.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(p.Rows))
	}
	if len(p.Rows[0].Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(p.Rows[0].Parts))
	}
	first := p.Rows[0].Parts[0]
	if first.Text != "" || first.Marks == nil || *first.Marks != 5 || first.SourceQID != nil || first.RBT != nil {
		t.Fatalf("unexpected placeholder %+v", first)
	}
	if first.CO == nil || len(first.CO) != 0 {
		t.Fatalf("placeholder CO should be empty, got %#v", first.CO)
	}
	if p.Rows[0].Parts[1].Marks != nil {
		t.Fatalf("part without configured marks should have nil marks")
	}
	labels := []string{p.Rows[1].Parts[0].Label, p.Rows[1].Parts[1].Label}
	if !reflect.DeepEqual(labels, []string{"a", "b"}) {
		t.Fatalf("expected default labels a,b got %v", labels)
	}
}

func TestGenerateStopsDrawingFromExhaustedModule(t *testing.T) {
	pool := []question.Record{
		rec(1, 1, "m1 q1", 6), rec(2, 1, "m1 q2", 4), rec(3, 1, "m1 q3", 6),
		rec(4, 1, "m1 q4", 4), rec(5, 1, "m1 q5", 6),
		rec(6, 2, "m2 q1", 6),
	}
	cfg := GenerationConfig{
		ModulePercentages: map[int]int{1: 50, 2: 50},
		Questions:         twoPartLayout(1, 2),
	}
	modules := map[int64]int{}
	for _, r := range pool {
		modules[r.ID] = *r.Module
	}

	for seed := uint64(0); seed < 30; seed++ {
		p := Generate(cfg, pool, nil, seeded(seed))
		perModule := map[int]int{}
		placeholders := 0
		for _, r := range p.Rows {
			for _, part := range r.Parts {
				if part.SourceQID == nil {
					placeholders++
					continue
				}
				perModule[modules[*part.SourceQID]]++
			}
		}
		if perModule[1] != 2 || perModule[2] != 1 || placeholders != 1 {
			t.Fatalf("seed %d: unexpected distribution %v placeholders=%d", seed, perModule, placeholders)
		}
	}
}

func TestGenerateHonoursQuotaSplit(t *testing.T) {
	var pool []question.Record
	for i := int64(1); i <= 12; i++ {
		pool = append(pool, rec(i, int(i%3)+1, fmt.Sprintf("question %d", i), 0))
	}
	cfg := GenerationConfig{
		ModulePercentages: map[int]int{1: 50, 3: 50},
		Questions:         twoPartLayout(1, 2),
	}
	for seed := uint64(0); seed < 30; seed++ {
		p := Generate(cfg, pool, nil, seeded(seed))
		perModule := map[int]int{}
		for _, part := range filledParts(p) {
			perModule[int(*part.SourceQID%3)+1]++
		}
		if !reflect.DeepEqual(perModule, map[int]int{1: 2, 3: 2}) {
			t.Fatalf("seed %d: unexpected split %v", seed, perModule)
		}
	}
}

func TestGenerateWholesaleMultiPart(t *testing.T) {
	multi := rec(10, 1, "Answer both [CO3] [L2]", 10)
	multi.COTags = []string{"CO3"}
	multi.RBTLevel = strPtr("L2")
	multi.Subparts = []bank.Subpart{
		{Label: "i", Text: "Define  paging [5M]"},
		{Label: "ii", Text: "Define segmentation [5M] [CO3]"},
		{Label: "iii", Text: "unused"},
	}
	pool := []question.Record{multi, rec(11, 1, "single one", 5), rec(12, 1, "single two", 5)}
	cfg := GenerationConfig{
		ModulePercentages: map[int]int{1: 100},
		Questions:         []QuestionLayout{{QNo: 1, Parts: []string{"a", "b"}, Marks: map[string]int{"a": 5, "b": 5}}},
	}

	p := Generate(cfg, pool, nil, seeded(3))
	parts := p.Rows[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	wantText := []string{"Define paging", "Define segmentation"}
	for i, part := range parts {
		if part.SourceQID == nil || *part.SourceQID != 10 {
			t.Fatalf("part %d not from multi-part record: %+v", i, part)
		}
		if part.Text != wantText[i] {
			t.Fatalf("part %d text got=%q want=%q", i, part.Text, wantText[i])
		}
		if !reflect.DeepEqual(part.CO, []string{"CO3"}) || part.RBT == nil || *part.RBT != "L2" {
			t.Fatalf("part %d tags not carried: %+v", i, part)
		}
		if part.Marks == nil || *part.Marks != 5 {
			t.Fatalf("part %d marks should come from layout", i)
		}
	}
}

func TestGenerateWholesaleSubpartTextsAreNotReused(t *testing.T) {
	multi := rec(1, 1, "Thermodynamics basics", 10)
	multi.Subparts = []bank.Subpart{
		{Label: "a", Text: "Define entropy"},
		{Label: "b", Text: "Define enthalpy"},
	}
	pool := []question.Record{multi, rec(2, 1, "Define entropy [5M]", 5)}
	cfg := GenerationConfig{
		ModulePercentages: map[int]int{1: 100},
		Questions: []QuestionLayout{
			{QNo: 1, Parts: []string{"a", "b"}},
			{QNo: 2, Parts: []string{"a"}},
		},
	}

	for seed := uint64(1); seed <= 20; seed++ {
		p := Generate(cfg, pool, nil, seeded(seed))
		seen := map[string]int{}
		for _, part := range filledParts(p) {
			seen[bank.NormalizeText(part.Text)]++
		}
		for text, n := range seen {
			if n > 1 {
				t.Fatalf("seed %d: text %q emitted %d times", seed, text, n)
			}
		}
		if q2 := p.Rows[len(p.Rows)-1]; q2.QNo == 2 && q2.Parts[0].SourceQID != nil && *q2.Parts[0].SourceQID == 2 {
			t.Fatalf("seed %d: record 2 repeats a subpart already on the paper", seed)
		}
	}
}

func TestGenerateSkipsWholesaleWhenSubpartTextUsed(t *testing.T) {
	multi := rec(1, 0, "Thermodynamics basics", 10)
	multi.Subparts = []bank.Subpart{
		{Label: "a", Text: "Define entropy"},
		{Label: "b", Text: "Define enthalpy"},
	}
	sel := newSelector([]question.Record{multi}, NewQuotaPlan(nil, 2), nil, seeded(1).Rand)
	sel.usedTexts["define entropy"] = struct{}{}
	if c := sel.wholesale(2); c != nil {
		t.Fatalf("expected no wholesale match, got record %d", c.ID)
	}
	delete(sel.usedTexts, "define entropy")
	if c := sel.wholesale(2); c == nil || c.ID != 1 {
		t.Fatalf("expected record 1 once its subparts are free, got %+v", c)
	}
}

func TestGenerateWholesaleRespectsQuota(t *testing.T) {
	multi := rec(10, 1, "Answer both", 10)
	multi.Subparts = []bank.Subpart{{Label: "a", Text: "x"}, {Label: "b", Text: "y"}}
	pool := []question.Record{multi, rec(11, 2, "module two", 5)}
	cfg := GenerationConfig{
		ModulePercentages: map[int]int{1: 50, 2: 50},
		Questions:         twoPartLayout(1),
	}

	p := Generate(cfg, pool, nil, seeded(5))
	parts := p.Rows[0].Parts
	ids := []int64{}
	for _, part := range parts {
		if part.SourceQID != nil {
			ids = append(ids, *part.SourceQID)
		}
	}
	if len(ids) != 2 || ids[0] == ids[1] {
		t.Fatalf("expected per-part fill from two records, got %v", ids)
	}
	if parts[0].Text == "x" || parts[1].Text == "y" {
		t.Fatalf("multi-part record must not be split across a quota it cannot cover: %+v", parts)
	}
}

func TestGeneratePrefersExactMarks(t *testing.T) {
	pool := []question.Record{
		rec(1, 1, "two marks", 2),
		rec(2, 1, "three marks", 3),
		rec(3, 1, "ten marks", 10),
		rec(4, 1, "seven marks", 7),
	}
	cfg := GenerationConfig{Questions: []QuestionLayout{{QNo: 1, Parts: []string{"a"}, Marks: map[string]int{"a": 10}}}}
	for seed := uint64(0); seed < 20; seed++ {
		p := Generate(cfg, pool, nil, seeded(seed))
		if got := *p.Rows[0].Parts[0].SourceQID; got != 3 {
			t.Fatalf("seed %d: expected exact marks match 3, got %d", seed, got)
		}
	}
}

func TestGeneratePrefersLevelWhenNoMarksMatch(t *testing.T) {
	pool := []question.Record{rec(1, 1, "a", 0), rec(2, 1, "b", 0), rec(3, 1, "c", 0)}
	pool[1].RBTLevel = strPtr("L4")
	cfg := GenerationConfig{Questions: []QuestionLayout{{QNo: 1, Parts: []string{"a"}, PreferRBT: "L4"}}}
	for seed := uint64(0); seed < 20; seed++ {
		p := Generate(cfg, pool, nil, seeded(seed))
		if got := *p.Rows[0].Parts[0].SourceQID; got != 2 {
			t.Fatalf("seed %d: expected level match 2, got %d", seed, got)
		}
	}
}

func TestGenerateAvoidsRecentDraftQuestions(t *testing.T) {
	pool := []question.Record{rec(1, 1, "one", 0), rec(2, 1, "two", 0), rec(3, 1, "three", 0)}
	recent := [][]Row{{
		{Type: RowTypeQuestion, QNo: 1, Parts: []Part{{Label: "a", SourceQID: int64Ptr(1)}, {Label: "b", SourceQID: int64Ptr(2)}}},
		{Type: RowTypeOR},
	}}

	for seed := uint64(0); seed < 20; seed++ {
		p := Generate(GenerationConfig{Questions: []QuestionLayout{{QNo: 1, Parts: []string{"a"}}}}, pool, recent, seeded(seed))
		if got := *p.Rows[0].Parts[0].SourceQID; got != 3 {
			t.Fatalf("seed %d: expected fresh question 3, got %d", seed, got)
		}
	}

	p := Generate(GenerationConfig{Questions: []QuestionLayout{{QNo: 1, Parts: []string{"a", "b", "c"}}}}, pool, recent, seeded(9))
	if n := len(filledParts(p)); n != 3 {
		t.Fatalf("recent questions should be reused once fresh ones run out, filled %d", n)
	}
	if got := *p.Rows[0].Parts[0].SourceQID; got != 3 {
		t.Fatalf("fresh question should be drawn first, got %d", got)
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestGenerateDeterministicWithSeed(t *testing.T) {
	var pool []question.Record
	for i := int64(1); i <= 20; i++ {
		pool = append(pool, rec(i, int(i%5)+1, fmt.Sprintf("q %d", i), int(i%3)+4))
	}
	cfg := GenerationConfig{
		ModulePercentages: map[int]int{1: 20, 2: 20, 3: 20, 4: 20, 5: 20},
		Questions:         twoPartLayout(1, 2, 3),
		ORAfter:           []int{1},
	}
	a := Generate(cfg, pool, nil, seeded(42))
	b := Generate(cfg, pool, nil, seeded(42))
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different papers")
	}
}

func TestGeneratePassesTitleAndHeaderThrough(t *testing.T) {
	header := map[string]any{"collegeName": "GEC"}
	p := Generate(GenerationConfig{Title: "IAT 2", Header: header}, nil, nil, Options{})
	if p.Title != "IAT 2" || p.Header["collegeName"] != "GEC" {
		t.Fatalf("title/header not passed through: %+v", p)
	}
	if len(p.Rows) != 0 {
		t.Fatalf("expected no rows")
	}
}

func TestInsertSeparators(t *testing.T) {
	rows := []Row{
		{Type: RowTypeQuestion, QNo: 1},
		{Type: RowTypeQuestion, QNo: 2},
		{Type: RowTypeQuestion, QNo: 3},
	}
	got := InsertSeparators(rows, []int{2})
	want := []Row{
		{Type: RowTypeQuestion, QNo: 1},
		{Type: RowTypeQuestion, QNo: 2},
		{Type: RowTypeOR},
		{Type: RowTypeQuestion, QNo: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected rows %+v", got)
	}

	if got := InsertSeparators(rows, []int{9}); len(got) != 3 {
		t.Fatalf("unknown qno should insert nothing, got %d rows", len(got))
	}
}

func TestGenerateInsertsSeparatorAfterQuestionTwo(t *testing.T) {
	p := Generate(GenerationConfig{Questions: twoPartLayout(1, 2, 3), ORAfter: []int{2}}, nil, nil, seeded(1))
	if len(p.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(p.Rows))
	}
	if p.Rows[2].Type != RowTypeOR || p.Rows[1].QNo != 2 || p.Rows[3].QNo != 3 {
		t.Fatalf("separator misplaced: %+v", p.Rows)
	}
}
