package question

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"questgen/internal/bank"
	"questgen/internal/document"
	"questgen/internal/storage"
)

type fileStore interface {
	Save(name string, r io.Reader) (*storage.StoredFile, error)
	Open(tag string) (*os.File, error)
	Remove(tag string) error
}

type bankStore interface {
	SaveBank(ctx context.Context, in SaveBankInput) (*Bank, error)
	GetBank(ctx context.Context, id int64) (*Bank, error)
	DeleteBank(ctx context.Context, id int64) (*Bank, error)
}

// EventCounter receives domain event counts.
type EventCounter interface {
	Count(event string, n int)
}

// BankService owns the life cycle of uploaded question banks: the stored
// document and the questions parsed from it.
type BankService struct {
	files    fileStore
	store    bankStore
	readText func(path string) (string, error)
	events   EventCounter
}

type UploadInput struct {
	SchemeID  int64
	SubjectID int64
	Module    int
	FileName  string
	Body      io.Reader
}

type UploadResult struct {
	Bank     *Bank    `json:"bank"`
	Warnings []string `json:"warnings"`
}

func NewBankService(files *storage.FileStore, store *Service) *BankService {
	return &BankService{files: files, store: store, readText: document.ExtractText}
}

// WithEvents makes the service report uploads and ingested questions to c.
func (s *BankService) WithEvents(c EventCounter) *BankService {
	s.events = c
	return s
}

// Upload stores the document, parses it with the upload's module as the
// default and persists the result. On any failure after the file is stored
// the file is removed again.
func (s *BankService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	name := strings.TrimSpace(in.FileName)
	if in.SchemeID <= 0 || in.SubjectID <= 0 || name == "" || in.Body == nil {
		return nil, fmt.Errorf("%w: scheme_id, subject_id, and file are required", ErrInvalidInput)
	}
	if !bank.ValidModule(in.Module) {
		return nil, fmt.Errorf("%w: module must be between %d and %d", ErrInvalidInput, bank.MinModule, bank.MaxModule)
	}
	if strings.ToLower(filepath.Ext(name)) != ".pdf" {
		return nil, fmt.Errorf("%w: only PDF files are allowed", ErrInvalidInput)
	}

	stored, err := s.files.Save(name, in.Body)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	result, err := s.ingest(ctx, in, name, stored)
	if err != nil {
		if rmErr := s.files.Remove(stored.Tag); rmErr != nil {
			log.Printf("remove stored file %s after failed upload: %v", stored.Tag, rmErr)
		}
		return nil, err
	}
	return result, nil
}

func (s *BankService) ingest(ctx context.Context, in UploadInput, name string, stored *storage.StoredFile) (*UploadResult, error) {
	text, err := s.readText(stored.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	module := in.Module
	parsed := bank.Parse(text, &module)

	saved, err := s.store.SaveBank(ctx, SaveBankInput{
		SchemeID:  in.SchemeID,
		SubjectID: in.SubjectID,
		Module:    in.Module,
		FileName:  name,
		FilePath:  stored.Path,
		SourceTag: stored.Tag,
		Questions: parsed,
	})
	if err != nil {
		return nil, err
	}

	warnings := make([]string, 0)
	if len(parsed) == 0 {
		warnings = append(warnings, "no questions detected; each question must start with a line like \"Q1.\"")
	}
	untagged := 0
	for _, q := range parsed {
		if !q.HasTags() {
			untagged++
		}
	}
	if untagged > 0 {
		warnings = append(warnings, fmt.Sprintf("%d question(s) have no marks, CO or level tags", untagged))
	}

	if s.events != nil {
		s.events.Count("banks_uploaded", 1)
		s.events.Count("questions_ingested", len(parsed))
	}
	log.Printf("question bank %d ingested: scheme=%d subject=%d module=%d questions=%d untagged=%d",
		saved.ID, saved.SchemeID, saved.SubjectID, saved.Module, len(parsed), untagged)
	return &UploadResult{Bank: saved, Warnings: warnings}, nil
}

// OpenFile returns the bank and its stored document. The caller closes the
// file.
func (s *BankService) OpenFile(ctx context.Context, id int64) (*Bank, *os.File, error) {
	b, err := s.store.GetBank(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.files.Open(b.SourceTag)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: file missing on server", ErrBankNotFound)
		}
		return nil, nil, fmt.Errorf("open bank file: %w", err)
	}
	return b, f, nil
}

// Delete removes the bank, its questions and the stored document.
func (s *BankService) Delete(ctx context.Context, id int64) error {
	b, err := s.store.DeleteBank(ctx, id)
	if err != nil {
		return err
	}
	if err := s.files.Remove(b.SourceTag); err != nil {
		log.Printf("remove stored file %s of bank %d: %v", b.SourceTag, b.ID, err)
	}
	return nil
}
