package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("document exceeds size limit")

// DocumentStore keeps registration documents (KTP, certificates).
type DocumentStore interface {
	Save(ctx context.Context, folder, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// LocalStore writes documents below a root directory.
type LocalStore struct {
	root     string
	maxBytes int64
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: root, maxBytes: maxBytes}, nil
}

// Save stores r under folder with a random name keeping the original extension
// and returns the storage key.
func (s *LocalStore) Save(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	folder = sanitize(folder)
	ext := strings.ToLower(filepath.Ext(filename))
	key := path.Join(folder, uuid.NewString()+ext)

	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	full := filepath.Join(s.root, filepath.FromSlash(key))
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil && s.maxBytes > 0 && written > s.maxBytes {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return "", err
	}
	return key, nil
}

// Delete removes a stored document. Missing documents are not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	full := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+key)))
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func sanitize(folder string) string {
	cleaned := strings.Trim(path.Clean("/"+folder), "/")
	if cleaned == "" {
		return "misc"
	}
	return cleaned
}
