package paper

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrDraftNotFound = errors.New("paper draft not found")
)

const (
	StatusDraft = "DRAFT"
	StatusFinal = "FINAL"
)

// COEntry is one line of the course-outcome table printed under a paper.
type COEntry struct {
	CO   string `json:"co"`
	Text string `json:"text"`
}

type Draft struct {
	ID        int64             `json:"id"`
	SchemeID  int64             `json:"scheme_id"`
	SubjectID int64             `json:"subject_id"`
	Status    string            `json:"status"`
	Title     string            `json:"title"`
	Header    map[string]any    `json:"header"`
	COTable   []COEntry         `json:"co_table"`
	RBTTable  map[string]string `json:"rbt_table"`
	Rows      []Row             `json:"rows"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// DraftUpdate carries a partial edit; nil fields are left unchanged.
type DraftUpdate struct {
	Status   *string
	Title    *string
	Header   *map[string]any
	COTable  *[]COEntry
	RBTTable *map[string]string
	Rows     *[]Row
}

// Store persists paper drafts.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const draftColumns = `
	id, scheme_id, subject_id, status, title, header_json, co_table_json, rbt_table_json, rows_json, created_at, updated_at
`

func (s *Store) CreateDraft(ctx context.Context, d Draft) (*Draft, error) {
	if d.SchemeID <= 0 || d.SubjectID <= 0 {
		return nil, fmt.Errorf("%w: scheme_id and subject_id are required", ErrInvalidInput)
	}
	if d.Status == "" {
		d.Status = StatusDraft
	}
	enc, err := encodeDraft(d)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO paper_drafts (scheme_id, subject_id, status, title, header_json, co_table_json, rbt_table_json, rows_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING `+draftColumns,
		d.SchemeID, d.SubjectID, d.Status, d.Title, enc.header, enc.coTable, enc.rbtTable, enc.rows, now,
	)
	out, err := scanDraft(row)
	if err != nil {
		return nil, fmt.Errorf("insert paper draft: %w", err)
	}
	return out, nil
}

func (s *Store) GetDraft(ctx context.Context, id int64) (*Draft, error) {
	out, err := scanDraft(s.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM paper_drafts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get paper draft: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateDraft(ctx context.Context, id int64, in DraftUpdate) (*Draft, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanDraft(tx.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM paper_drafts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get paper draft: %w", err)
	}

	if in.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*in.Status))
		if status != StatusDraft && status != StatusFinal {
			return nil, fmt.Errorf("%w: status must be DRAFT or FINAL", ErrInvalidInput)
		}
		cur.Status = status
	}
	if in.Title != nil {
		cur.Title = strings.TrimSpace(*in.Title)
	}
	if in.Header != nil {
		cur.Header = *in.Header
	}
	if in.COTable != nil {
		cur.COTable = *in.COTable
	}
	if in.RBTTable != nil {
		cur.RBTTable = *in.RBTTable
	}
	if in.Rows != nil {
		if err := validateRows(*in.Rows); err != nil {
			return nil, err
		}
		cur.Rows = *in.Rows
	}

	enc, err := encodeDraft(*cur)
	if err != nil {
		return nil, err
	}
	out, err := scanDraft(tx.QueryRowContext(ctx, `
		UPDATE paper_drafts
		SET status = $2, title = $3, header_json = $4, co_table_json = $5, rbt_table_json = $6, rows_json = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+draftColumns,
		id, cur.Status, cur.Title, enc.header, enc.coTable, enc.rbtTable, enc.rows, time.Now().Unix(),
	))
	if err != nil {
		return nil, fmt.Errorf("update paper draft: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit paper draft: %w", err)
	}
	return out, nil
}

// RecentDrafts returns the rows of the latest limit drafts of a
// scheme/subject, newest first.
func (s *Store) RecentDrafts(ctx context.Context, schemeID, subjectID int64, limit int) ([][]Row, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rows_json
		FROM paper_drafts
		WHERE scheme_id = $1 AND subject_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, schemeID, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent drafts: %w", err)
	}
	defer rows.Close()

	out := make([][]Row, 0, limit)
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan recent draft: %w", err)
		}
		var r []Row
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode rows of draft %d: %w", id, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent drafts: %w", err)
	}
	return out, nil
}

func validateRows(rows []Row) error {
	for i, r := range rows {
		switch r.Type {
		case RowTypeQuestion, RowTypeOR:
		default:
			return fmt.Errorf("%w: row %d has unknown type %q", ErrInvalidInput, i+1, r.Type)
		}
	}
	return nil
}

type encodedDraft struct {
	header   string
	coTable  any
	rbtTable any
	rows     string
}

func encodeDraft(d Draft) (encodedDraft, error) {
	var enc encodedDraft
	header := d.Header
	if header == nil {
		header = map[string]any{}
	}
	b, err := json.Marshal(header)
	if err != nil {
		return enc, fmt.Errorf("encode header: %w", err)
	}
	enc.header = string(b)

	if d.COTable != nil {
		b, err := json.Marshal(d.COTable)
		if err != nil {
			return enc, fmt.Errorf("encode co_table: %w", err)
		}
		enc.coTable = string(b)
	}
	if d.RBTTable != nil {
		b, err := json.Marshal(d.RBTTable)
		if err != nil {
			return enc, fmt.Errorf("encode rbt_table: %w", err)
		}
		enc.rbtTable = string(b)
	}

	rows := d.Rows
	if rows == nil {
		rows = []Row{}
	}
	b, err = json.Marshal(rows)
	if err != nil {
		return enc, fmt.Errorf("encode rows: %w", err)
	}
	enc.rows = string(b)
	return enc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*Draft, error) {
	var (
		d                    Draft
		header, rows         string
		coTable, rbtTable    sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&d.ID, &d.SchemeID, &d.SubjectID, &d.Status, &d.Title, &header, &coTable, &rbtTable, &rows, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	d.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if err := json.Unmarshal([]byte(header), &d.Header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if coTable.Valid {
		if err := json.Unmarshal([]byte(coTable.String), &d.COTable); err != nil {
			return nil, fmt.Errorf("decode co_table: %w", err)
		}
	}
	if rbtTable.Valid {
		if err := json.Unmarshal([]byte(rbtTable.String), &d.RBTTable); err != nil {
			return nil, fmt.Errorf("decode rbt_table: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(rows), &d.Rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return &d, nil
}
