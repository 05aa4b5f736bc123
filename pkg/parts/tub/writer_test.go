package tub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vehicle/pkg/adapters/memory"
	"github.com/aretw0/vehicle/pkg/domain"
)

func TestWriter_Invoke(t *testing.T) {
	store := memory.NewStore()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "records"})
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	w, err := NewWriter(store,
		[]string{"cam/image_array", "user/angle", "user/mode", "steps", "recording"},
		[]string{TypeImage, TypeFloat, TypeString, TypeInt, TypeBoolean},
		WithSession("s1"), WithClock(func() time.Time { return at }), WithCounter(counter),
	)
	require.NoError(t, err)

	in, out := w.Arity()
	assert.Equal(t, 5, in)
	assert.Equal(t, 0, out)

	frame := domain.NewFrame(2, 2, 1)
	ctx := context.Background()
	res, err := w.Invoke(ctx, []domain.Value{
		domain.Image(frame), domain.Text("0.5"), domain.Text("user"), domain.Number(7.9), domain.Number(1),
	})
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = w.Invoke(ctx, []domain.Value{domain.None(), domain.Number(-1), domain.None(), domain.None(), domain.None()})
	require.NoError(t, err)

	n, _ := store.Count(ctx)
	require.Equal(t, 2, n)
	assert.Equal(t, 2.0, testutil.ToFloat64(counter))

	first, err := store.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "s1", first.Session)
	assert.Equal(t, at, first.Time)
	assert.Equal(t, domain.Number(0.5), first.Values["user/angle"])
	assert.Equal(t, domain.Text("user"), first.Values["user/mode"])
	assert.Equal(t, domain.Number(7), first.Values["steps"])
	assert.Equal(t, domain.Bool(true), first.Values["recording"])
	assert.Equal(t, domain.KindFrame, first.Values["cam/image_array"].Kind())

	second, _ := store.Get(ctx, 1)
	assert.Len(t, second.Values, 1, "unset inputs are omitted")
}

func TestWriter_RejectsBadInput(t *testing.T) {
	w, err := NewWriter(memory.NewStore(), []string{"cam/image_array"}, []string{TypeImage})
	require.NoError(t, err)
	_, err = w.Invoke(context.Background(), []domain.Value{domain.Number(1)})
	assert.ErrorContains(t, err, "expected frame")

	_, err = NewWriter(memory.NewStore(), []string{"a", "b"}, []string{TypeFloat})
	assert.Error(t, err)
	_, err = NewWriter(memory.NewStore(), []string{"a"}, []string{"complex"})
	assert.Error(t, err)
}

type failingStore struct{ memory.Store }

func (f *failingStore) Append(context.Context, domain.Record) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriter_StoreError(t *testing.T) {
	w, err := NewWriter(&failingStore{}, []string{"a"}, []string{TypeFloat})
	require.NoError(t, err)
	_, err = w.Invoke(context.Background(), []domain.Value{domain.Number(1)})
	assert.ErrorContains(t, err, "disk full")
}
