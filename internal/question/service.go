package question

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"questgen/internal/bank"
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

const recordColumns = `
	id, scheme_id, subject_id, q_type, text, marks, co_tags, rbt_level, subparts,
	answer, module, status, parse_confidence, source_file, created_at, updated_at
`

const bankColumns = `
	id, scheme_id, subject_id, module, file_name, file_path, source_tag, question_count, uploaded_at
`

// SaveBank writes the bank record and every parsed question in one
// transaction. Either all rows land or none do.
func (s *Service) SaveBank(ctx context.Context, in SaveBankInput) (*Bank, error) {
	in.FileName = strings.TrimSpace(in.FileName)
	in.SourceTag = strings.TrimSpace(in.SourceTag)
	if in.SchemeID <= 0 || in.SubjectID <= 0 || in.FileName == "" || in.SourceTag == "" {
		return nil, fmt.Errorf("%w: scheme_id, subject_id and file are required", ErrInvalidInput)
	}
	if !bank.ValidModule(in.Module) {
		return nil, fmt.Errorf("%w: module must be between %d and %d", ErrInvalidInput, bank.MinModule, bank.MaxModule)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkSubjectTx(ctx, tx, in.SchemeID, in.SubjectID); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	var out Bank
	var uploadedAt int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO question_banks (scheme_id, subject_id, module, file_name, file_path, source_tag, question_count, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+bankColumns,
		in.SchemeID, in.SubjectID, in.Module, in.FileName, in.FilePath, in.SourceTag, len(in.Questions), now,
	).Scan(&out.ID, &out.SchemeID, &out.SubjectID, &out.Module, &out.FileName, &out.FilePath, &out.SourceTag, &out.QuestionCount, &uploadedAt)
	if err != nil {
		return nil, fmt.Errorf("insert question bank: %w", err)
	}
	out.UploadedAt = time.Unix(uploadedAt, 0).UTC()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (
			scheme_id, subject_id, q_type, text, marks, co_tags, rbt_level, subparts,
			module, status, parse_confidence, source_file, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare question insert: %w", err)
	}
	defer stmt.Close()

	for i, q := range in.Questions {
		coTags, subparts, err := encodeTags(q.COTags, q.Subparts)
		if err != nil {
			return nil, err
		}
		qType := q.QuestionType
		if qType == "" {
			qType = bank.QuestionTypeDescriptive
		}
		if _, err := stmt.ExecContext(ctx,
			in.SchemeID, in.SubjectID, qType, q.Text, nullInt(q.Marks), coTags, nullString(q.RBTLevel), subparts,
			nullInt(q.Module), StatusDraft, q.Confidence(), in.SourceTag, now,
		); err != nil {
			return nil, fmt.Errorf("insert question %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit question bank: %w", err)
	}
	return &out, nil
}

// QuestionPool returns every question of a scheme/subject, approved ones
// first and newest first within each status.
func (s *Service) QuestionPool(ctx context.Context, schemeID, subjectID int64) ([]Record, error) {
	if schemeID <= 0 || subjectID <= 0 {
		return nil, ErrInvalidInput
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM questions
		WHERE scheme_id = $1 AND subject_id = $2
		ORDER BY CASE WHEN status = $3 THEN 0 ELSE 1 END ASC, created_at DESC, id DESC
	`, schemeID, subjectID, StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("query question pool: %w", err)
	}
	return collectRecords(rows)
}

func (s *Service) ListQuestions(ctx context.Context, f Filter) ([]Record, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.SchemeID > 0 {
		add("scheme_id = ?", f.SchemeID)
	}
	if f.SubjectID > 0 {
		add("subject_id = ?", f.SubjectID)
	}
	if status := strings.ToUpper(strings.TrimSpace(f.Status)); status != "" {
		if !ValidStatus(status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
		}
		add("status = ?", status)
	}
	if rbt := strings.TrimSpace(f.RBTLevel); rbt != "" {
		add("rbt_level = ?", rbt)
	}
	if co := strings.TrimSpace(f.CO); co != "" {
		// co_tags is a JSON array of strings; match the quoted element.
		add("co_tags LIKE ?", `%"`+co+`"%`)
	}
	if f.Module > 0 {
		add("module = ?", f.Module)
	} else if len(f.Modules) > 0 {
		placeholders := make([]string, 0, len(f.Modules))
		for _, m := range f.Modules {
			args = append(args, m)
			placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
		}
		where = append(where, "module IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT ` + recordColumns + ` FROM questions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return collectRecords(rows)
}

func (s *Service) GetQuestion(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM questions WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, id int64, in UpdateInput) (*Record, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	cur, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Text != nil {
		text := strings.TrimSpace(*in.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: text must not be empty", ErrInvalidInput)
		}
		cur.Text = text
	}
	if in.Marks != nil {
		if *in.Marks < 0 {
			return nil, fmt.Errorf("%w: marks must not be negative", ErrInvalidInput)
		}
		cur.Marks = copyInt(in.Marks)
	}
	if in.COTags != nil {
		cur.COTags = normalizeCOTags(*in.COTags)
	}
	if in.RBTLevel != nil {
		level := strings.ToUpper(strings.TrimSpace(*in.RBTLevel))
		switch {
		case level == "":
			cur.RBTLevel = nil
		case validLevel(level):
			cur.RBTLevel = &level
		default:
			return nil, fmt.Errorf("%w: rbt_level must be L1..L6", ErrInvalidInput)
		}
	}
	if in.Subparts != nil {
		cur.Subparts = nil
		if len(*in.Subparts) > 0 {
			cur.Subparts = append([]bank.Subpart(nil), (*in.Subparts)...)
		}
	}
	if in.Answer != nil {
		answer := strings.TrimSpace(*in.Answer)
		cur.Answer = &answer
		if answer == "" {
			cur.Answer = nil
		}
	}
	if in.Module != nil {
		if !bank.ValidModule(*in.Module) {
			return nil, fmt.Errorf("%w: module must be between %d and %d", ErrInvalidInput, bank.MinModule, bank.MaxModule)
		}
		cur.Module = copyInt(in.Module)
	}
	if in.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*in.Status))
		if !ValidStatus(status) {
			return nil, fmt.Errorf("%w: status must be DRAFT or APPROVED", ErrInvalidInput)
		}
		cur.Status = status
	}

	coTags, subparts, err := encodeTags(cur.COTags, cur.Subparts)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE questions
		SET text = $2, marks = $3, co_tags = $4, rbt_level = $5, subparts = $6,
			answer = $7, module = $8, status = $9, updated_at = $10
		WHERE id = $1
		RETURNING `+recordColumns,
		id, cur.Text, nullInt(cur.Marks), coTags, nullString(cur.RBTLevel), subparts,
		nullString(cur.Answer), nullInt(cur.Module), cur.Status, time.Now().Unix(),
	)
	updated, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return updated, nil
}

// ListBanks returns the banks of a scheme/subject ordered by module, newest
// upload first.
func (s *Service) ListBanks(ctx context.Context, schemeID, subjectID int64) ([]Bank, error) {
	if schemeID <= 0 || subjectID <= 0 {
		return nil, fmt.Errorf("%w: scheme_id and subject_id are required", ErrInvalidInput)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bankColumns+`
		FROM question_banks
		WHERE scheme_id = $1 AND subject_id = $2
		ORDER BY module ASC, uploaded_at DESC, id DESC
	`, schemeID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list question banks: %w", err)
	}
	defer rows.Close()

	out := make([]Bank, 0)
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question banks: %w", err)
	}
	return out, nil
}

func (s *Service) GetBank(ctx context.Context, id int64) (*Bank, error) {
	b, err := scanBank(s.db.QueryRowContext(ctx, `SELECT `+bankColumns+` FROM question_banks WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBankNotFound
	}
	return b, err
}

// DeleteBank removes the bank record and every question it produced. The
// stored file is left to the caller.
func (s *Service) DeleteBank(ctx context.Context, id int64) (*Bank, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	b, err := scanBank(tx.QueryRowContext(ctx, `SELECT `+bankColumns+` FROM question_banks WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBankNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE source_file = $1`, b.SourceTag); err != nil {
		return nil, fmt.Errorf("delete bank questions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM question_banks WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete question bank: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete bank: %w", err)
	}
	return b, nil
}

func checkSubjectTx(ctx context.Context, tx *sql.Tx, schemeID, subjectID int64) error {
	var owner int64
	err := tx.QueryRowContext(ctx, `SELECT scheme_id FROM subjects WHERE id = $1`, subjectID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSubjectNotFound
	}
	if err != nil {
		return fmt.Errorf("check subject: %w", err)
	}
	if owner != schemeID {
		return fmt.Errorf("%w: subject does not belong to scheme", ErrInvalidInput)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r                    Record
		marks, module        sql.NullInt64
		rbt, subparts, ans   sql.NullString
		coTags               string
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&r.ID, &r.SchemeID, &r.SubjectID, &r.QuestionType, &r.Text, &marks, &coTags, &rbt, &subparts,
		&ans, &module, &r.Status, &r.ParseConfidence, &r.SourceFile, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan question: %w", err)
	}
	r.Marks = intFromNull(marks)
	r.Module = intFromNull(module)
	r.RBTLevel = stringFromNull(rbt)
	r.Answer = stringFromNull(ans)
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	r.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	r.COTags = []string{}
	if coTags != "" {
		if err := json.Unmarshal([]byte(coTags), &r.COTags); err != nil {
			return nil, fmt.Errorf("decode co_tags of question %d: %w", r.ID, err)
		}
	}
	if subparts.Valid && subparts.String != "" {
		if err := json.Unmarshal([]byte(subparts.String), &r.Subparts); err != nil {
			return nil, fmt.Errorf("decode subparts of question %d: %w", r.ID, err)
		}
	}
	return &r, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	out := make([]Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

func scanBank(row rowScanner) (*Bank, error) {
	var b Bank
	var uploadedAt int64
	if err := row.Scan(&b.ID, &b.SchemeID, &b.SubjectID, &b.Module, &b.FileName, &b.FilePath, &b.SourceTag, &b.QuestionCount, &uploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan question bank: %w", err)
	}
	b.UploadedAt = time.Unix(uploadedAt, 0).UTC()
	return &b, nil
}

func encodeTags(coTags []string, subparts []bank.Subpart) (string, any, error) {
	if coTags == nil {
		coTags = []string{}
	}
	co, err := json.Marshal(coTags)
	if err != nil {
		return "", nil, fmt.Errorf("encode co_tags: %w", err)
	}
	if len(subparts) == 0 {
		return string(co), nil, nil
	}
	sp, err := json.Marshal(subparts)
	if err != nil {
		return "", nil, fmt.Errorf("encode subparts: %w", err)
	}
	return string(co), string(sp), nil
}

func normalizeCOTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, tag := range in {
		tag = strings.ToUpper(strings.TrimSpace(tag))
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func validLevel(s string) bool {
	return len(s) == 2 && s[0] == 'L' && s[1] >= '1' && s[1] <= '6'
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func stringFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
