package paper

import (
	"math/rand/v2"

	"questgen/internal/question"
)

// Options tunes a generation call. A nil Rand gets a freshly seeded source,
// so every call sees a new permutation of the pool.
type Options struct {
	Rand *rand.Rand
}

// Generate assembles a paper from pool. recent holds the rows of the latest
// drafts for the same subject; their questions are avoided while fresher
// candidates remain.
func Generate(cfg GenerationConfig, pool []question.Record, recent [][]Row, opts Options) Paper {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	quota := NewQuotaPlan(cfg.ModulePercentages, cfg.TotalParts())
	sel := newSelector(pool, quota, recent, rng)

	rows := make([]Row, 0, len(cfg.Questions))
	for _, layout := range cfg.Questions {
		rows = append(rows, sel.fillRow(layout))
	}

	return Paper{
		Title:  cfg.Title,
		Header: cfg.Header,
		Rows:   InsertSeparators(rows, cfg.ORAfter),
	}
}

// InsertSeparators adds an OR row after every question row whose qno is in
// orAfter. Existing rows keep their order.
func InsertSeparators(rows []Row, orAfter []int) []Row {
	if len(orAfter) == 0 {
		return rows
	}
	after := make(map[int]struct{}, len(orAfter))
	for _, qno := range orAfter {
		after[qno] = struct{}{}
	}
	out := make([]Row, 0, len(rows)+len(orAfter))
	for _, r := range rows {
		out = append(out, r)
		if _, ok := after[r.QNo]; ok && r.IsQuestion() {
			out = append(out, Row{Type: RowTypeOR})
		}
	}
	return out
}
