package paper

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	internaldb "questgen/internal/db"
)

func seedSubject(t *testing.T, conn *sql.DB) (schemeID, subjectID int64) {
	t.Helper()
	now := time.Now().Unix()
	if err := conn.QueryRow(`INSERT INTO schemes (name, created_at) VALUES ($1, $2) RETURNING id`, "2022 Scheme", now).Scan(&schemeID); err != nil {
		t.Fatalf("seed scheme: %v", err)
	}
	if err := conn.QueryRow(`INSERT INTO subjects (scheme_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`, schemeID, "Computer Networks", now).Scan(&subjectID); err != nil {
		t.Fatalf("seed subject: %v", err)
	}
	return schemeID, subjectID
}

func questionRow(qno int, ids ...int64) Row {
	r := Row{Type: RowTypeQuestion, QNo: qno}
	for i, id := range ids {
		r.Parts = append(r.Parts, Part{Label: string(rune('a' + i)), Text: "q", CO: []string{}, SourceQID: int64Ptr(id)})
	}
	return r
}

func TestStoreCreateAndGetDraft(t *testing.T) {
	conn := internaldb.OpenMemory(t)
	store := NewStore(conn)
	schemeID, subjectID := seedSubject(t, conn)
	ctx := context.Background()

	in := Draft{
		SchemeID:  schemeID,
		SubjectID: subjectID,
		Title:     "IA-2",
		Header:    map[string]any{"collegeName": "Example Institute", "maxMarks": float64(50)},
		COTable:   []COEntry{{CO: "CO1", Text: "Explain layering"}},
		RBTTable:  map[string]string{"L1": "Remember"},
		Rows:      []Row{questionRow(1, 10, 11), {Type: RowTypeOR}},
	}
	created, err := store.CreateDraft(ctx, in)
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if created.ID <= 0 || created.Status != StatusDraft {
		t.Fatalf("unexpected created draft: %+v", created)
	}

	got, err := store.GetDraft(ctx, created.ID)
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if got.Title != "IA-2" || !reflect.DeepEqual(got.Header, in.Header) {
		t.Fatalf("unexpected title/header: %q %#v", got.Title, got.Header)
	}
	if !reflect.DeepEqual(got.COTable, in.COTable) || !reflect.DeepEqual(got.RBTTable, in.RBTTable) {
		t.Fatalf("unexpected tables: %#v %#v", got.COTable, got.RBTTable)
	}
	if !reflect.DeepEqual(got.Rows, in.Rows) {
		t.Fatalf("rows mismatch:\n got %#v\nwant %#v", got.Rows, in.Rows)
	}

	if _, err := store.GetDraft(ctx, created.ID+100); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("expected ErrDraftNotFound, got %v", err)
	}
	if _, err := store.CreateDraft(ctx, Draft{Title: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStoreDraftWithoutTables(t *testing.T) {
	conn := internaldb.OpenMemory(t)
	store := NewStore(conn)
	schemeID, subjectID := seedSubject(t, conn)

	created, err := store.CreateDraft(context.Background(), Draft{SchemeID: schemeID, SubjectID: subjectID, Title: "IA-1"})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if created.COTable != nil || created.RBTTable != nil {
		t.Fatalf("expected nil tables, got %#v %#v", created.COTable, created.RBTTable)
	}
	if len(created.Header) != 0 || len(created.Rows) != 0 {
		t.Fatalf("expected empty header and rows, got %#v %#v", created.Header, created.Rows)
	}
}

func TestStoreUpdateDraft(t *testing.T) {
	conn := internaldb.OpenMemory(t)
	store := NewStore(conn)
	schemeID, subjectID := seedSubject(t, conn)
	ctx := context.Background()

	created, err := store.CreateDraft(ctx, Draft{
		SchemeID:  schemeID,
		SubjectID: subjectID,
		Title:     "IA-1",
		Rows:      []Row{questionRow(1, 1)},
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	status := "final"
	title := "  IA-1 (revised) "
	rows := []Row{questionRow(1, 2), {Type: RowTypeOR}, questionRow(2, 3)}
	updated, err := store.UpdateDraft(ctx, created.ID, DraftUpdate{Status: &status, Title: &title, Rows: &rows})
	if err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if updated.Status != StatusFinal || updated.Title != "IA-1 (revised)" {
		t.Fatalf("unexpected status/title: %q %q", updated.Status, updated.Title)
	}
	if !reflect.DeepEqual(updated.Rows, rows) {
		t.Fatalf("rows mismatch: %#v", updated.Rows)
	}

	bad := "PUBLISHED"
	if _, err := store.UpdateDraft(ctx, created.ID, DraftUpdate{Status: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for status, got %v", err)
	}
	badRows := []Row{{Type: "heading"}}
	if _, err := store.UpdateDraft(ctx, created.ID, DraftUpdate{Rows: &badRows}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for rows, got %v", err)
	}
	if _, err := store.UpdateDraft(ctx, created.ID+50, DraftUpdate{Title: &title}); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("expected ErrDraftNotFound, got %v", err)
	}

	got, err := store.GetDraft(ctx, created.ID)
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if got.Status != StatusFinal || !reflect.DeepEqual(got.Rows, rows) {
		t.Fatalf("failed updates must not change the draft: %+v", got)
	}
}

func TestStoreRecentDraftsNewestFirst(t *testing.T) {
	conn := internaldb.OpenMemory(t)
	store := NewStore(conn)
	schemeID, subjectID := seedSubject(t, conn)
	ctx := context.Background()

	var otherSubject int64
	if err := conn.QueryRow(`INSERT INTO subjects (scheme_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`, schemeID, "Compilers", time.Now().Unix()).Scan(&otherSubject); err != nil {
		t.Fatalf("seed subject: %v", err)
	}

	for i := int64(1); i <= 4; i++ {
		if _, err := store.CreateDraft(ctx, Draft{SchemeID: schemeID, SubjectID: subjectID, Title: "t", Rows: []Row{questionRow(1, i)}}); err != nil {
			t.Fatalf("create draft %d: %v", i, err)
		}
	}
	if _, err := store.CreateDraft(ctx, Draft{SchemeID: schemeID, SubjectID: otherSubject, Title: "t", Rows: []Row{questionRow(1, 99)}}); err != nil {
		t.Fatalf("create other draft: %v", err)
	}

	recent, err := store.RecentDrafts(ctx, schemeID, subjectID, 3)
	if err != nil {
		t.Fatalf("recent drafts: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(recent))
	}
	var ids []int64
	for _, rows := range recent {
		ids = append(ids, *rows[0].Parts[0].SourceQID)
	}
	if want := []int64{4, 3, 2}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected newest first %v, got %v", want, ids)
	}

	none, err := store.RecentDrafts(ctx, schemeID, subjectID, 0)
	if err != nil || none != nil {
		t.Fatalf("expected no drafts for zero limit, got %v %v", none, err)
	}
}
