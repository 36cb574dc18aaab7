package masterdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSchemeNotFound  = errors.New("scheme not found")
	ErrSubjectNotFound = errors.New("subject not found")
)

type Service struct {
	db *sql.DB
}

type CreateSchemeInput struct {
	Name        string
	Department  string
	Description string
}

type Scheme struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Department  string    `json:"department,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateSubjectInput struct {
	SchemeID int64
	Name     string
	Code     string
	Credits  *int
	Semester *int
}

type Subject struct {
	ID        int64     `json:"id"`
	SchemeID  int64     `json:"scheme_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	Credits   *int      `json:"credits,omitempty"`
	Semester  *int      `json:"semester,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) CreateScheme(ctx context.Context, in CreateSchemeInput) (*Scheme, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	var out Scheme
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO schemes (name, department, description, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, department, description, created_at
	`, name, strings.TrimSpace(in.Department), strings.TrimSpace(in.Description), time.Now().Unix()).
		Scan(&out.ID, &out.Name, &out.Department, &out.Description, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("create scheme: %w", err)
	}
	out.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &out, nil
}

func (s *Service) ListSchemes(ctx context.Context) ([]Scheme, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, department, description, created_at
		FROM schemes
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list schemes: %w", err)
	}
	defer rows.Close()

	out := make([]Scheme, 0)
	for rows.Next() {
		var it Scheme
		var createdAt int64
		if err := rows.Scan(&it.ID, &it.Name, &it.Department, &it.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan scheme: %w", err)
		}
		it.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schemes: %w", err)
	}
	return out, nil
}

func (s *Service) CreateSubject(ctx context.Context, in CreateSubjectInput) (*Subject, error) {
	name := strings.TrimSpace(in.Name)
	if in.SchemeID <= 0 || name == "" {
		return nil, fmt.Errorf("%w: scheme_id and name are required", ErrInvalidInput)
	}
	if in.Semester != nil && *in.Semester <= 0 {
		return nil, fmt.Errorf("%w: semester must be positive", ErrInvalidInput)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM schemes WHERE id = $1)
	`, in.SchemeID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check scheme: %w", err)
	}
	if !exists {
		return nil, ErrSchemeNotFound
	}

	var out Subject
	var credits, semester sql.NullInt64
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO subjects (scheme_id, name, code, credits, semester, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, scheme_id, name, code, credits, semester, created_at
	`, in.SchemeID, name, strings.TrimSpace(in.Code), nullInt(in.Credits), nullInt(in.Semester), time.Now().Unix()).
		Scan(&out.ID, &out.SchemeID, &out.Name, &out.Code, &credits, &semester, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	out.Credits = intFromNull(credits)
	out.Semester = intFromNull(semester)
	out.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &out, nil
}

// ListSubjects returns every subject, or only those of schemeID when it is
// positive.
func (s *Service) ListSubjects(ctx context.Context, schemeID int64) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scheme_id, name, code, credits, semester, created_at
		FROM subjects
		WHERE ($1 <= 0 OR scheme_id = $1)
		ORDER BY name ASC, id ASC
	`, schemeID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	out := make([]Subject, 0)
	for rows.Next() {
		var it Subject
		var credits, semester sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&it.ID, &it.SchemeID, &it.Name, &it.Code, &credits, &semester, &createdAt); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		it.Credits = intFromNull(credits)
		it.Semester = intFromNull(semester)
		it.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}

// SubjectInScheme reports whether subjectID exists and belongs to schemeID.
func (s *Service) SubjectInScheme(ctx context.Context, schemeID, subjectID int64) error {
	var owner int64
	err := s.db.QueryRowContext(ctx, `SELECT scheme_id FROM subjects WHERE id = $1`, subjectID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSubjectNotFound
	}
	if err != nil {
		return fmt.Errorf("check subject: %w", err)
	}
	if owner != schemeID {
		return fmt.Errorf("%w: subject %d does not belong to scheme %d", ErrInvalidInput, subjectID, schemeID)
	}
	return nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
