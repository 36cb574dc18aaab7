package paper

import (
	"math/rand/v2"
	"slices"
	"sort"

	"questgen/internal/bank"
	"questgen/internal/question"
)

type candidate struct {
	question.Record
	norm string
}

// preference is the optional level / course-outcome hint for a part.
type preference struct {
	rbt string
	co  string
}

func (p preference) matches(c *candidate) bool {
	if p.rbt != "" && c.RBTLevel != nil && *c.RBTLevel == p.rbt {
		return true
	}
	return p.co != "" && slices.Contains(c.COTags, p.co)
}

// selector draws questions for one generation call. Its used sets are
// local to the call.
type selector struct {
	pool      []*candidate
	groups    map[int][]*candidate
	quota     *QuotaPlan
	usedIDs   map[int64]struct{}
	usedTexts map[string]struct{}
	recentIDs map[int64]struct{}
}

func newSelector(pool []question.Record, quota *QuotaPlan, recent [][]Row, rng *rand.Rand) *selector {
	s := &selector{
		pool:      make([]*candidate, 0, len(pool)),
		groups:    make(map[int][]*candidate),
		quota:     quota,
		usedIDs:   make(map[int64]struct{}),
		usedTexts: make(map[string]struct{}),
		recentIDs: make(map[int64]struct{}),
	}
	for _, r := range pool {
		s.pool = append(s.pool, &candidate{Record: r, norm: bank.NormalizeText(r.Text)})
	}
	rng.Shuffle(len(s.pool), func(i, j int) { s.pool[i], s.pool[j] = s.pool[j], s.pool[i] })

	for _, c := range s.pool {
		s.groups[c.ModuleKey()] = append(s.groups[c.ModuleKey()], c)
	}
	keys := make([]int, 0, len(s.groups))
	for m := range s.groups {
		keys = append(keys, m)
	}
	sort.Ints(keys)
	for _, m := range keys {
		g := s.groups[m]
		rng.Shuffle(len(g), func(i, j int) { g[i], g[j] = g[j], g[i] })
	}

	for _, rows := range recent {
		for _, row := range rows {
			if !row.IsQuestion() {
				continue
			}
			for _, p := range row.Parts {
				if p.SourceQID != nil {
					s.recentIDs[*p.SourceQID] = struct{}{}
				}
			}
		}
	}
	return s
}

func (s *selector) available(c *candidate, allowRecent bool) bool {
	if _, used := s.usedIDs[c.ID]; used {
		return false
	}
	if _, used := s.usedTexts[c.norm]; used {
		return false
	}
	if !allowRecent {
		if _, recent := s.recentIDs[c.ID]; recent {
			return false
		}
	}
	return true
}

func (s *selector) markUsed(c *candidate) {
	s.usedIDs[c.ID] = struct{}{}
	s.usedTexts[c.norm] = struct{}{}
}

// wholesale finds a record with at least k stored subparts whose module can
// still cover all k parts. Its first k subpart texts must be distinct and
// not yet emitted.
func (s *selector) wholesale(k int) *candidate {
	for _, c := range s.pool {
		if !s.available(c, false) || len(c.Subparts) < k {
			continue
		}
		if s.quota.Active() && s.quota.Remaining(c.ModuleKey()) < k {
			continue
		}
		if !s.subpartsFree(c, k) {
			continue
		}
		return c
	}
	return nil
}

func (s *selector) subpartsFree(c *candidate, k int) bool {
	seen := make(map[string]struct{}, k)
	for _, sub := range c.Subparts[:k] {
		n := bank.NormalizeText(sub.Text)
		if _, used := s.usedTexts[n]; used {
			return false
		}
		if _, dup := seen[n]; dup {
			return false
		}
		seen[n] = struct{}{}
	}
	return true
}

// pick runs the three priority passes over the preferred module group (when
// useModule is set) and then the whole pool. Under an active quota only
// modules with parts left are eligible.
func (s *selector) pick(target *int, pref preference, module int, useModule, allowRecent bool) *candidate {
	pools := [][]*candidate{s.pool}
	if useModule {
		if g, ok := s.groups[module]; ok {
			pools = [][]*candidate{g, s.pool}
		}
	}

	passes := []func(*candidate) bool{
		func(c *candidate) bool { return target != nil && c.Marks != nil && *c.Marks == *target },
		pref.matches,
		func(*candidate) bool { return true },
	}
	for _, match := range passes {
		for _, pool := range pools {
			for _, c := range pool {
				if !s.available(c, allowRecent) || !s.quota.Allows(c.ModuleKey()) {
					continue
				}
				if match(c) {
					return c
				}
			}
		}
	}
	return nil
}

func (s *selector) pickPart(target *int, pref preference, allowRecent bool) *candidate {
	if !s.quota.Active() {
		return s.pick(target, pref, 0, false, allowRecent)
	}
	if m, ok := s.quota.Preferred(); ok && s.quota.Remaining(m) > 0 {
		if c := s.pick(target, pref, m, true, allowRecent); c != nil {
			return c
		}
	}
	for _, m := range s.quota.OpenModules() {
		if c := s.pick(target, pref, m, true, allowRecent); c != nil {
			return c
		}
	}
	return nil
}

// fillRow produces one question row with exactly len(parts) parts.
func (s *selector) fillRow(layout QuestionLayout) Row {
	labels := layout.PartLabels()
	row := Row{Type: RowTypeQuestion, QNo: layout.QNo, Parts: make([]Part, 0, len(labels))}
	if len(labels) == 0 {
		return row
	}

	if c := s.wholesale(len(labels)); c != nil {
		s.markUsed(c)
		for _, sub := range c.Subparts[:len(labels)] {
			s.usedTexts[bank.NormalizeText(sub.Text)] = struct{}{}
		}
		for i, label := range labels {
			row.Parts = append(row.Parts, s.partFrom(c, label, bank.Scrub(c.Subparts[i].Text), layout.targetMarks(label)))
		}
		s.quota.Consume(c.ModuleKey(), len(labels))
		return row
	}

	pref := preference{rbt: layout.PreferRBT, co: layout.PreferCO}
	for _, label := range labels {
		target := layout.targetMarks(label)
		c := s.pickPart(target, pref, false)
		if c == nil {
			c = s.pickPart(target, pref, true)
		}
		if c == nil {
			row.Parts = append(row.Parts, Part{Label: label, Marks: target, CO: []string{}})
			continue
		}
		s.markUsed(c)
		s.quota.Consume(c.ModuleKey(), 1)
		s.quota.Advance()
		row.Parts = append(row.Parts, s.partFrom(c, label, bank.Scrub(c.Text), target))
	}
	return row
}

func (s *selector) partFrom(c *candidate, label, text string, marks *int) Part {
	id := c.ID
	co := append([]string{}, c.COTags...)
	var rbt *string
	if c.RBTLevel != nil {
		level := *c.RBTLevel
		rbt = &level
	}
	return Part{Label: label, Text: text, Marks: marks, CO: co, RBT: rbt, SourceQID: &id}
}
