package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidName = errors.New("invalid file name")

// FileStore keeps uploaded source documents in a single directory. Each file
// is stored under a unique tag so repeated uploads of the same name never
// collide.
type FileStore struct {
	dir string
}

type StoredFile struct {
	Tag  string
	Path string
	Size int64
}

func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Save(name string, r io.Reader) (*StoredFile, error) {
	base := sanitizeName(name)
	if base == "" {
		return nil, ErrInvalidName
	}
	tag := uuid.NewString() + "_" + base
	path := filepath.Join(s.dir, tag)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create stored file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write stored file: %w", err)
	}
	return &StoredFile{Tag: tag, Path: path, Size: n}, nil
}

// Open returns the stored file for tag.
func (s *FileStore) Open(tag string) (*os.File, error) {
	path, err := s.pathFor(tag)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes the stored file for tag. A missing file is not an error.
func (s *FileStore) Remove(tag string) error {
	path, err := s.pathFor(tag)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stored file: %w", err)
	}
	return nil
}

func (s *FileStore) pathFor(tag string) (string, error) {
	if tag == "" || tag != filepath.Base(tag) || strings.HasPrefix(tag, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, tag), nil
}

func sanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('_')
		}
	}
	return strings.TrimLeft(sb.String(), ".")
}
