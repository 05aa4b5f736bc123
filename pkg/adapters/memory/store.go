package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/vehicle/pkg/domain"
)

// Store implements ports.RecordStore in memory.
// Safe for concurrent use.
type Store struct {
	records []domain.Record
	mu      sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Append stores a copy of rec.
func (s *Store) Append(ctx context.Context, rec domain.Record) (int, error) {
	// Copy the value map so the caller can reuse it.
	rec = rec.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Index = len(s.records)
	s.records = append(s.records, rec)
	return rec.Index, nil
}

// Get retrieves a copy of the record at index.
func (s *Store) Get(ctx context.Context, index int) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.records) {
		return domain.Record{}, domain.ErrRecordNotFound
	}
	return s.records[index].Clone(), nil
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Scan iterates over a snapshot of the records.
func (s *Store) Scan(ctx context.Context, fn func(domain.Record) error) error {
	s.mu.RLock()
	snapshot := slices.Clone(s.records)
	s.mu.RUnlock()

	for _, r := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
