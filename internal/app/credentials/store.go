// Package credentials holds the per-session credential table.
package credentials

import (
	"fmt"

	"github.com/dkeye/VideoChat/internal/domain"
)

// Store is read-only after New.
type Store struct {
	entries []domain.Credential
}

func New(entries []domain.Credential) *Store {
	cp := make([]domain.Credential, len(entries))
	copy(cp, entries)
	return &Store{entries: cp}
}

func (s *Store) Get(index int) (domain.Credential, error) {
	if index < 0 || index >= len(s.entries) {
		return domain.Credential{}, fmt.Errorf("%w: %d not in [0, %d)", domain.ErrIndexOutOfRange, index, len(s.entries))
	}
	return s.entries[index], nil
}

func (s *Store) Len() int { return len(s.entries) }
