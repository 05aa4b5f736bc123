package ports

import (
	"context"

	"github.com/aretw0/vehicle/pkg/domain"
)

// RecordStore persists driving records (a "tub").
// Indexes are assigned by the store, start at 0 and increase by one per Append.
type RecordStore interface {
	// Append stores rec and returns the index assigned to it.
	Append(ctx context.Context, rec domain.Record) (int, error)

	// Get retrieves the record at index.
	// Returns domain.ErrRecordNotFound if it does not exist.
	Get(ctx context.Context, index int) (domain.Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Scan calls fn for every record in index order, stopping at the first error.
	Scan(ctx context.Context, fn func(domain.Record) error) error

	// Close releases the store. Records appended before Close remain readable
	// by a new store opened on the same location.
	Close() error
}
