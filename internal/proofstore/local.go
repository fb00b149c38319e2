package proofstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const localScheme = "local://"

// Local stores proofs on the local filesystem under a root directory.
type Local struct {
	root string
}

// NewLocal creates the root directory if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create proof directory: %w", err)
	}
	return &Local{root: root}, nil
}

// Put implements Store.
func (l *Local) Put(ctx context.Context, fundID, filename, _ string, r io.Reader) (string, error) {
	key := objectKey(fundID, filename)
	dst := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create proof directory: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create proof file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write proof: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to close proof file: %w", err)
	}
	return localScheme + key, nil
}

// Open implements Store.
func (l *Local) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	key, ok := strings.CutPrefix(ref, localScheme)
	if !ok || !validKey(key) {
		return nil, ErrInvalidRef
	}
	f, err := os.Open(filepath.Join(l.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open proof: %w", err)
	}
	return f, nil
}
