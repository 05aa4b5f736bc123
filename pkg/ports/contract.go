package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vehicle/pkg/domain"
)

// RunRecordStoreContract runs a suite of tests to verify that a RecordStore
// implementation adheres to the interface contract. The store must be empty.
func RunRecordStoreContract(t *testing.T, store RecordStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	frame := domain.NewFrame(4, 3, 3)
	for i := range frame.Pix {
		frame.Pix[i] = byte(i)
	}

	t.Run("Empty", func(t *testing.T) {
		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = store.Get(ctx, 0)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Append assigns sequential indexes", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			idx, err := store.Append(ctx, domain.Record{
				Time: now.Add(time.Duration(i) * time.Millisecond),
				Values: map[string]domain.Value{
					domain.KeyUserAngle:    domain.Number(float64(i) / 10),
					domain.KeyUserThrottle: domain.Number(0.3),
					domain.KeyUserMode:     domain.Text(domain.ModeUser),
					domain.KeyImage:        domain.Image(frame),
				},
			})
			require.NoError(t, err)
			assert.Equal(t, i, idx)
		}

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("Get", func(t *testing.T) {
		rec, err := store.Get(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, rec.Index)
		assert.Equal(t, domain.Number(0.2), rec.Values[domain.KeyUserAngle])
		assert.Equal(t, domain.Text(domain.ModeUser), rec.Values[domain.KeyUserMode])
		assert.True(t, now.Add(2*time.Millisecond).Equal(rec.Time))

		f, ok := rec.Values[domain.KeyImage].Frame()
		require.True(t, ok, "frame survives persistence")
		assert.Equal(t, frame.Width, f.Width)
		assert.Equal(t, frame.Pix, f.Pix)
	})

	t.Run("Get out of range", func(t *testing.T) {
		_, err := store.Get(ctx, 3)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
		_, err = store.Get(ctx, -1)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Scan in order", func(t *testing.T) {
		var seen []int
		err := store.Scan(ctx, func(r domain.Record) error {
			seen = append(seen, r.Index)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, seen)
	})

	t.Run("Scan stops on error", func(t *testing.T) {
		stop := errors.New("stop")
		calls := 0
		err := store.Scan(ctx, func(domain.Record) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}
