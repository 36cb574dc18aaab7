package report

import (
	"context"
	"sort"

	"questgen/internal/paper"
)

type draftSource interface {
	GetDraft(ctx context.Context, id int64) (*paper.Draft, error)
}

type Service struct {
	drafts draftSource
}

// DraftSummary is the coverage of a paper draft: how its marks spread over
// course outcomes and taxonomy levels, and how many parts still need a
// question.
type DraftSummary struct {
	DraftID         int64          `json:"draft_id"`
	Status          string         `json:"status"`
	Questions       int            `json:"questions"`
	Choices         int            `json:"choices"`
	Parts           int            `json:"parts"`
	Placeholders    int            `json:"placeholders"`
	TotalMarks      int            `json:"total_marks"`
	MarksByCO       map[string]int `json:"marks_by_co"`
	MarksByRBT      map[string]int `json:"marks_by_rbt"`
	UncoveredCOs    []string       `json:"uncovered_cos"`
	SourceQuestions []int64        `json:"source_questions"`
}

func NewService(drafts *paper.Service) *Service {
	return &Service{drafts: drafts}
}

func (s *Service) SummaryByDraft(ctx context.Context, draftID int64) (*DraftSummary, error) {
	d, err := s.drafts.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	sum := Summarize(*d)
	return &sum, nil
}

// Summarize computes the coverage of d. A part tagged with several COs
// counts its marks towards each of them.
func Summarize(d paper.Draft) DraftSummary {
	sum := DraftSummary{
		DraftID:         d.ID,
		Status:          d.Status,
		MarksByCO:       map[string]int{},
		MarksByRBT:      map[string]int{},
		UncoveredCOs:    []string{},
		SourceQuestions: []int64{},
	}

	for _, r := range d.Rows {
		if !r.IsQuestion() {
			sum.Choices++
			continue
		}
		sum.Questions++
		for _, p := range r.Parts {
			sum.Parts++
			if p.SourceQID == nil {
				sum.Placeholders++
				continue
			}
			sum.SourceQuestions = append(sum.SourceQuestions, *p.SourceQID)

			marks := 0
			if p.Marks != nil {
				marks = *p.Marks
			}
			sum.TotalMarks += marks
			for _, co := range p.CO {
				sum.MarksByCO[co] += marks
			}
			if p.RBT != nil && *p.RBT != "" {
				sum.MarksByRBT[*p.RBT] += marks
			}
		}
	}

	for _, entry := range d.COTable {
		if _, ok := sum.MarksByCO[entry.CO]; !ok {
			sum.UncoveredCOs = append(sum.UncoveredCOs, entry.CO)
		}
	}
	sort.Strings(sum.UncoveredCOs)
	return sum
}
