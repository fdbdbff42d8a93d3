package storage

import (
	"context"
	"strings"

	"github.com/schoolops/enrollment/internal/domain/enrollment"
)

var _ enrollment.FileReferenceChecker = (*StubFileStore)(nil)

// StubFileStore accepts every non-empty file reference.
// It is used when object storage is not configured.
type StubFileStore struct{}

// NewStubFileStore creates a new StubFileStore
func NewStubFileStore() *StubFileStore {
	return &StubFileStore{}
}

// Exists returns true for any non-blank reference
func (s *StubFileStore) Exists(_ context.Context, fileRef string) (bool, error) {
	return strings.TrimSpace(fileRef) != "", nil
}
