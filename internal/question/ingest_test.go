package question

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	internaldb "questgen/internal/db"
	"questgen/internal/storage"
)

func newTestBankService(t *testing.T, readText func(string) (string, error)) (*BankService, *Service, string, int64, int64) {
	t.Helper()
	conn := internaldb.OpenMemory(t)
	svc := NewService(conn)
	schemeID, subjectID := seedSubject(t, conn)
	dir := t.TempDir()
	files, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	bs := NewBankService(files, svc)
	bs.readText = readText
	return bs, svc, dir, schemeID, subjectID
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestUploadParsesAndPersists(t *testing.T) {
	ctx := context.Background()
	bs, svc, dir, schemeID, subjectID := newTestBankService(t, func(path string) (string, error) {
		return "Preamble line\nQ1. Explain paging [5M]\nQ2. Describe RAID", nil
	})

	res, err := bs.Upload(ctx, UploadInput{
		SchemeID: schemeID, SubjectID: subjectID, Module: 3,
		FileName: "os bank.pdf", Body: strings.NewReader("%PDF-fake"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Bank.QuestionCount != 2 || res.Bank.FileName != "os bank.pdf" {
		t.Fatalf("unexpected bank %+v", res.Bank)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one untagged warning, got %v", res.Warnings)
	}

	items, _ := svc.ListQuestions(ctx, Filter{SubjectID: subjectID})
	if len(items) != 2 || *items[0].Module != 3 || items[0].SourceFile != res.Bank.SourceTag {
		t.Fatalf("unexpected stored questions %+v", items)
	}

	if files := storedFiles(t, dir); len(files) != 1 || files[0] != res.Bank.SourceTag {
		t.Fatalf("expected stored upload, got %v", files)
	}

	b, f, err := bs.OpenFile(ctx, res.Bank.ID)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	_ = f.Close()
	if b.ID != res.Bank.ID {
		t.Fatalf("unexpected bank %+v", b)
	}

	if err := bs.Delete(ctx, res.Bank.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if files := storedFiles(t, dir); len(files) != 0 {
		t.Fatalf("stored file should be removed, got %v", files)
	}
	if items, _ := svc.ListQuestions(ctx, Filter{}); len(items) != 0 {
		t.Fatalf("questions should be removed, got %d", len(items))
	}
}

func TestUploadRemovesFileWhenDocumentUnreadable(t *testing.T) {
	bs, svc, dir, schemeID, subjectID := newTestBankService(t, func(path string) (string, error) {
		return "", errors.New("corrupt xref table")
	})

	_, err := bs.Upload(context.Background(), UploadInput{
		SchemeID: schemeID, SubjectID: subjectID, Module: 1,
		FileName: "broken.pdf", Body: strings.NewReader("junk"),
	})
	if !errors.Is(err, ErrUnreadableDocument) {
		t.Fatalf("expected ErrUnreadableDocument, got %v", err)
	}
	if files := storedFiles(t, dir); len(files) != 0 {
		t.Fatalf("stored file should be removed, got %v", files)
	}
	if items, _ := svc.ListQuestions(context.Background(), Filter{}); len(items) != 0 {
		t.Fatalf("nothing should be persisted, got %d", len(items))
	}
}

func TestUploadRemovesFileWhenPersistFails(t *testing.T) {
	bs, _, dir, schemeID, _ := newTestBankService(t, func(path string) (string, error) {
		return "Q1. one", nil
	})

	_, err := bs.Upload(context.Background(), UploadInput{
		SchemeID: schemeID, SubjectID: 999, Module: 1,
		FileName: "bank.pdf", Body: strings.NewReader("x"),
	})
	if !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("expected ErrSubjectNotFound, got %v", err)
	}
	if files := storedFiles(t, dir); len(files) != 0 {
		t.Fatalf("stored file should be removed, got %v", files)
	}
}

func TestUploadValidation(t *testing.T) {
	bs, _, dir, schemeID, subjectID := newTestBankService(t, func(string) (string, error) { return "", nil })
	tests := []struct {
		name string
		in   UploadInput
	}{
		{name: "module zero", in: UploadInput{SchemeID: schemeID, SubjectID: subjectID, Module: 0, FileName: "a.pdf", Body: strings.NewReader("")}},
		{name: "module six", in: UploadInput{SchemeID: schemeID, SubjectID: subjectID, Module: 6, FileName: "a.pdf", Body: strings.NewReader("")}},
		{name: "not pdf", in: UploadInput{SchemeID: schemeID, SubjectID: subjectID, Module: 1, FileName: "a.docx", Body: strings.NewReader("")}},
		{name: "missing subject", in: UploadInput{SchemeID: schemeID, Module: 1, FileName: "a.pdf", Body: strings.NewReader("")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := bs.Upload(context.Background(), tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if files := storedFiles(t, dir); len(files) != 0 {
		t.Fatalf("invalid uploads must not be stored, got %v", files)
	}
}

func TestOpenFileMissingOnDisk(t *testing.T) {
	bs, _, dir, schemeID, subjectID := newTestBankService(t, func(string) (string, error) { return "Q1. x", nil })
	res, err := bs.Upload(context.Background(), UploadInput{
		SchemeID: schemeID, SubjectID: subjectID, Module: 1, FileName: "a.pdf", Body: strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, res.Bank.SourceTag)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, _, err := bs.OpenFile(context.Background(), res.Bank.ID); !errors.Is(err, ErrBankNotFound) {
		t.Fatalf("expected ErrBankNotFound, got %v", err)
	}
}
