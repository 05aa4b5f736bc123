// Package tub provides the part that records driving data.
package tub

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/ports"
)

// Field types accepted by the writer.
const (
	TypeImage   = "image_array"
	TypeFloat   = "float"
	TypeInt     = "int"
	TypeString  = "str"
	TypeBoolean = "boolean"
)

// Writer appends one record per invocation. It has inputs only and is meant to
// be gated by the recording key.
type Writer struct {
	store   ports.RecordStore
	keys    []string
	types   []string
	session string
	now     func() time.Time
	logger  *slog.Logger
	written prometheus.Counter
}

// Option configures the writer.
type Option func(*Writer)

// WithSession overrides the generated session id.
func WithSession(id string) Option {
	return func(w *Writer) {
		w.session = id
	}
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithCounter counts appended records.
func WithCounter(c prometheus.Counter) Option {
	return func(w *Writer) {
		w.written = c
	}
}

// NewWriter creates a writer for keys, each converted according to the type
// at the same position.
func NewWriter(store ports.RecordStore, keys, types []string, opts ...Option) (*Writer, error) {
	if len(keys) != len(types) {
		return nil, fmt.Errorf("tub writer: %d keys but %d types", len(keys), len(types))
	}
	for i, t := range types {
		switch t {
		case TypeImage, TypeFloat, TypeInt, TypeString, TypeBoolean:
		default:
			return nil, fmt.Errorf("tub writer: unknown type %q for %s", t, keys[i])
		}
	}

	w := &Writer{
		store:   store,
		keys:    append([]string(nil), keys...),
		types:   append([]string(nil), types...),
		session: uuid.NewString(),
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Name implements the default part naming.
func (w *Writer) Name() string { return "tub" }

// Arity reports one input per key and no outputs.
func (w *Writer) Arity() (int, int) { return len(w.keys), 0 }

// Keys returns the recorded keys in input order.
func (w *Writer) Keys() []string { return append([]string(nil), w.keys...) }

// Session returns the id stamped on every record.
func (w *Writer) Session() string { return w.session }

// Invoke converts the inputs and appends them as one record. Unset inputs are
// left out of the record.
func (w *Writer) Invoke(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
	rec := domain.Record{
		Session: w.session,
		Time:    w.now().UTC(),
		Values:  make(map[string]domain.Value, len(w.keys)),
	}
	for i, v := range args {
		if v.IsNone() {
			continue
		}
		cv, err := convert(v, w.types[i])
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", w.keys[i], err)
		}
		rec.Values[w.keys[i]] = cv
	}

	idx, err := w.store.Append(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("append record: %w", err)
	}
	if w.written != nil {
		w.written.Inc()
	}
	w.logger.Debug("record written", "index", idx, "fields", len(rec.Values))
	return nil, nil
}

// Close closes the underlying store.
func (w *Writer) Close() error {
	return w.store.Close()
}

func convert(v domain.Value, typ string) (domain.Value, error) {
	switch typ {
	case TypeImage:
		if v.Kind() != domain.KindFrame {
			return domain.Value{}, fmt.Errorf("expected frame, got %s", v.Kind())
		}
		return v, nil
	case TypeFloat:
		return domain.Number(v.Float()), nil
	case TypeInt:
		return domain.Number(math.Trunc(v.Float())), nil
	case TypeBoolean:
		return domain.Bool(v.Truthy()), nil
	default:
		return domain.Text(v.String()), nil
	}
}
