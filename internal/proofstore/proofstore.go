// Package proofstore keeps payment and payout proofs. The engine only ever
// sees the reference string a Store returns.
package proofstore

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a reference does not resolve to a blob.
var ErrNotFound = errors.New("proof not found")

// ErrInvalidRef is returned for references this store did not issue.
var ErrInvalidRef = errors.New("invalid proof reference")

// Store accepts opaque blobs and returns stable references to them.
type Store interface {
	// Put stores the blob read from r and returns its reference.
	Put(ctx context.Context, fundID, filename, contentType string, r io.Reader) (string, error)

	// Open returns the blob behind ref. The caller closes it.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// objectKey builds "<fund>/<uuid><ext>" so names from different uploads
// never collide and user input never shapes the directory layout.
func objectKey(fundID, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 10 || strings.ContainsAny(ext, " /") {
		ext = ""
	}
	return sanitizeSegment(fundID) + "/" + uuid.New().String() + ext
}

func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
	if s == "" {
		return "_"
	}
	return s
}

// validKey reports whether key looks like something objectKey produced.
func validKey(key string) bool {
	fund, name, ok := strings.Cut(key, "/")
	return ok && fund != "" && name != "" && !strings.Contains(name, "/") &&
		!strings.Contains(key, "..") && sanitizeSegment(fund) == fund
}
