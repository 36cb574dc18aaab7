package paper

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"

	"questgen/internal/bank"
	"questgen/internal/question"
)

const DefaultRecentWindow = 5

type questionPool interface {
	QuestionPool(ctx context.Context, schemeID, subjectID int64) ([]question.Record, error)
}

type draftStore interface {
	CreateDraft(ctx context.Context, d Draft) (*Draft, error)
	GetDraft(ctx context.Context, id int64) (*Draft, error)
	UpdateDraft(ctx context.Context, id int64, in DraftUpdate) (*Draft, error)
	RecentDrafts(ctx context.Context, schemeID, subjectID int64, limit int) ([][]Row, error)
}

type eventCounter interface {
	Count(event string, n int)
}

type Service struct {
	drafts       draftStore
	pool         questionPool
	recentWindow int
	events       eventCounter
}

func NewService(drafts *Store, pool *question.Service, recentWindow int) *Service {
	return newService(drafts, pool, recentWindow)
}

func newService(drafts draftStore, pool questionPool, recentWindow int) *Service {
	if recentWindow < 0 {
		recentWindow = DefaultRecentWindow
	}
	return &Service{drafts: drafts, pool: pool, recentWindow: recentWindow}
}

// WithEvents makes the service report generated papers to c.
func (s *Service) WithEvents(c eventCounter) *Service {
	s.events = c
	return s
}

type GenerateInput struct {
	SchemeID  int64
	SubjectID int64
	Config    GenerationConfig
	COTable   []COEntry
	RBTTable  map[string]string
	// Seed makes the pool permutation reproducible when set.
	Seed *uint64
}

// GeneratePaper assembles a paper from the subject's question pool and
// stores it as a new DRAFT.
func (s *Service) GeneratePaper(ctx context.Context, in GenerateInput) (*Draft, error) {
	if in.SchemeID <= 0 || in.SubjectID <= 0 {
		return nil, fmt.Errorf("%w: scheme_id and subject_id are required", ErrInvalidInput)
	}
	if err := validateConfig(in.Config); err != nil {
		return nil, err
	}

	pool, err := s.pool.QuestionPool(ctx, in.SchemeID, in.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("fetch question pool: %w", err)
	}
	recent, err := s.drafts.RecentDrafts(ctx, in.SchemeID, in.SubjectID, s.recentWindow)
	if err != nil {
		return nil, fmt.Errorf("fetch recent drafts: %w", err)
	}

	var opts Options
	if in.Seed != nil {
		opts.Rand = rand.New(rand.NewPCG(*in.Seed, *in.Seed))
	}
	p := Generate(in.Config, pool, recent, opts)

	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = DefaultTitle
	}
	header := p.Header
	if header == nil {
		header = map[string]any{}
	}

	d, err := s.drafts.CreateDraft(ctx, Draft{
		SchemeID:  in.SchemeID,
		SubjectID: in.SubjectID,
		Status:    StatusDraft,
		Title:     title,
		Header:    header,
		COTable:   in.COTable,
		RBTTable:  in.RBTTable,
		Rows:      p.Rows,
	})
	if err != nil {
		return nil, err
	}

	filled, placeholders := countParts(d.Rows)
	if s.events != nil {
		s.events.Count("papers_generated", 1)
		s.events.Count("placeholder_parts", placeholders)
	}
	log.Printf("paper draft %d generated: scheme=%d subject=%d pool=%d recent=%d parts=%d placeholders=%d",
		d.ID, in.SchemeID, in.SubjectID, len(pool), len(recent), filled, placeholders)
	return d, nil
}

func (s *Service) GetDraft(ctx context.Context, id int64) (*Draft, error) {
	return s.drafts.GetDraft(ctx, id)
}

func (s *Service) UpdateDraft(ctx context.Context, id int64, in DraftUpdate) (*Draft, error) {
	return s.drafts.UpdateDraft(ctx, id, in)
}

// ExportHTML renders a draft as a printable HTML page. Overrides replace the
// stored values for this rendering only.
func (s *Service) ExportHTML(ctx context.Context, id int64, o ExportOverrides) ([]byte, error) {
	d, err := s.drafts.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	return RenderHTML(o.apply(*d))
}

func validateConfig(cfg GenerationConfig) error {
	for module, pct := range cfg.ModulePercentages {
		if !bank.ValidModule(module) {
			return fmt.Errorf("%w: module %d out of range", ErrInvalidInput, module)
		}
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%w: percentage for module %d must be between 0 and 100", ErrInvalidInput, module)
		}
	}
	seen := make(map[int]struct{}, len(cfg.Questions))
	for _, q := range cfg.Questions {
		if q.QNo <= 0 {
			return fmt.Errorf("%w: qno must be positive", ErrInvalidInput)
		}
		if _, dup := seen[q.QNo]; dup {
			return fmt.Errorf("%w: qno %d appears twice", ErrInvalidInput, q.QNo)
		}
		seen[q.QNo] = struct{}{}
		for _, label := range q.Parts {
			if strings.TrimSpace(label) == "" {
				return fmt.Errorf("%w: question %d has an empty part label", ErrInvalidInput, q.QNo)
			}
		}
		for label, m := range q.Marks {
			if m < 0 {
				return fmt.Errorf("%w: question %d part %s has negative marks", ErrInvalidInput, q.QNo, label)
			}
		}
	}
	return nil
}

func countParts(rows []Row) (filled, placeholders int) {
	for _, r := range rows {
		for _, p := range r.Parts {
			if p.SourceQID == nil {
				placeholders++
			} else {
				filled++
			}
		}
	}
	return filled, placeholders
}
