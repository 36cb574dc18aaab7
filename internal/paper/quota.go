package paper

import "sort"

// QuotaPlan holds the per-module part counts for one generation call.
// It is owned by a single call and never shared.
type QuotaPlan struct {
	modules   []int
	remaining map[int]int
	plan      []int
	cursor    int
}

// NewQuotaPlan apportions totalParts across the configured modules by the
// largest-remainder method. Leftover units go to modules in descending
// remainder order, ties by ascending module, wrapping until none are left.
// An empty percentage map yields an inactive plan with no limits.
func NewQuotaPlan(percentages map[int]int, totalParts int) *QuotaPlan {
	p := &QuotaPlan{remaining: make(map[int]int)}
	if len(percentages) == 0 {
		return p
	}

	p.modules = make([]int, 0, len(percentages))
	for m := range percentages {
		p.modules = append(p.modules, m)
	}
	sort.Ints(p.modules)

	type share struct {
		module    int
		remainder int
	}
	shares := make([]share, 0, len(p.modules))
	assigned := 0
	for _, m := range p.modules {
		pct := percentages[m]
		if pct < 0 {
			pct = 0
		}
		scaled := pct * totalParts
		p.remaining[m] = scaled / 100
		assigned += scaled / 100
		shares = append(shares, share{module: m, remainder: scaled % 100})
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].remainder > shares[j].remainder
	})
	for i, leftover := 0, totalParts-assigned; leftover > 0; i = (i + 1) % len(shares) {
		p.remaining[shares[i].module]++
		leftover--
	}

	for _, m := range p.modules {
		for k := 0; k < p.remaining[m]; k++ {
			p.plan = append(p.plan, m)
		}
	}
	return p
}

func (p *QuotaPlan) Active() bool {
	return len(p.modules) > 0
}

func (p *QuotaPlan) Remaining(module int) int {
	return p.remaining[module]
}

// Allows reports whether a part may still come from module.
func (p *QuotaPlan) Allows(module int) bool {
	return !p.Active() || p.remaining[module] > 0
}

// Consume takes n parts from module, clamping at zero.
func (p *QuotaPlan) Consume(module, n int) {
	left, ok := p.remaining[module]
	if !p.Active() || !ok {
		return
	}
	p.remaining[module] = max(0, left-n)
}

// Preferred is the module suggested by the plan cursor.
func (p *QuotaPlan) Preferred() (int, bool) {
	if p.cursor >= len(p.plan) {
		return 0, false
	}
	return p.plan[p.cursor], true
}

// Advance moves the plan cursor after a successful pick.
func (p *QuotaPlan) Advance() {
	if p.cursor < len(p.plan) {
		p.cursor++
	}
}

// OpenModules lists configured modules with quota left, ascending.
func (p *QuotaPlan) OpenModules() []int {
	out := make([]int, 0, len(p.modules))
	for _, m := range p.modules {
		if p.remaining[m] > 0 {
			out = append(out, m)
		}
	}
	return out
}

// Counts returns a copy of the remaining counts.
func (p *QuotaPlan) Counts() map[int]int {
	out := make(map[int]int, len(p.remaining))
	for m, n := range p.remaining {
		out[m] = n
	}
	return out
}

// Plan returns a copy of the flattened module preference sequence.
func (p *QuotaPlan) Plan() []int {
	return append([]int(nil), p.plan...)
}
