package redis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/vehicle/pkg/domain"
)

// DefaultLockTTL is how long the writer lock outlives a writer that stopped
// refreshing it, e.g. after a crash.
const DefaultLockTTL = 30 * time.Second

// Store implements ports.RecordStore as a Redis list of JSON documents.
// Frames are embedded as base64 PNG. The tub is owned exclusively through a
// lock key for as long as the store is open for writing: a writer refreshes
// the lock every third of its TTL, so a crashed writer releases the tub once
// the TTL runs out. If the lock is lost anyway, Append fails with
// domain.ErrResourceLocked.
type Store struct {
	client  *backend.Client
	prefix  string
	tub     string
	ttl     time.Duration
	lockTTL time.Duration
	owned   bool // client created by the store

	lease    *Lease
	stopKeep context.CancelFunc
	keepDone chan struct{}
	lost     atomic.Pointer[error]
}

type Option func(*Store)

// WithPrefix sets the key prefix (default "vehicle:tub:").
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTub names the tub inside the prefix (default "default").
func WithTub(name string) Option {
	return func(s *Store) {
		s.tub = name
	}
}

// WithTTL expires the tub after ttl of inactivity. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithLockTTL bounds how long a crashed writer keeps the tub locked
// (default DefaultLockTTL). The lock is refreshed while the store is open.
// Zero never expires the lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.lockTTL = ttl
	}
}

// New connects to Redis at address and opens the tub for writing.
func New(ctx context.Context, address, password string, db int, opts ...Option) (*Store, error) {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	s, err := NewFromClient(ctx, rdb, opts...)
	if err != nil {
		rdb.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewFromClient opens the tub for writing on an existing client.
// Returns domain.ErrResourceLocked if another writer owns the tub.
func NewFromClient(ctx context.Context, client *backend.Client, opts ...Option) (*Store, error) {
	s := newStore(client, opts...)
	lease, err := NewLocker(client, s.prefix).TryLease(ctx, s.tub, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("tub %s: %w", s.tub, err)
	}
	s.lease = lease
	if s.lockTTL > 0 {
		keepCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.stopKeep = cancel
		s.keepDone = make(chan struct{})
		go s.keepAlive(keepCtx)
	}
	return s, nil
}

// keepAlive refreshes the lease until ctx is cancelled or the lock is lost.
// Transient errors are retried on the next period.
func (s *Store) keepAlive(ctx context.Context) {
	defer close(s.keepDone)
	period := s.lockTTL / 3
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rctx, cancel := context.WithTimeout(ctx, period)
			err := s.lease.Refresh(rctx)
			cancel()
			if errors.Is(err, domain.ErrResourceLocked) {
				err = fmt.Errorf("tub %s: writer lock lost: %w", s.tub, err)
				s.lost.Store(&err)
				return
			}
		}
	}
}

// NewReader opens the tub for reading only, without taking the lock.
func NewReader(client *backend.Client, opts ...Option) *Store {
	return newStore(client, opts...)
}

func newStore(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client:  client,
		prefix:  "vehicle:tub:",
		tub:     "default",
		lockTTL: DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key() string {
	return s.prefix + s.tub + ":records"
}

// Append pushes the record onto the tub list.
func (s *Store) Append(ctx context.Context, rec domain.Record) (int, error) {
	if s.lease == nil {
		return 0, fmt.Errorf("tub %s is read-only", s.tub)
	}
	if err := s.lost.Load(); err != nil {
		return 0, *err
	}

	doc, err := rec.Document(func(_ string, f *domain.Frame) (string, error) {
		data, err := f.EncodePNG()
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(data), nil
	})
	if err != nil {
		return 0, err
	}

	// The index is only known after RPUSH; readers take it from the position.
	doc.Index = -1
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := s.client.TxPipeline()
	push := pipe.RPush(ctx, s.key(), data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to append to redis: %w", err)
	}
	return int(push.Val()) - 1, nil
}

// Get reads the record at index.
func (s *Store) Get(ctx context.Context, index int) (domain.Record, error) {
	if index < 0 {
		return domain.Record{}, domain.ErrRecordNotFound
	}
	val, err := s.client.LIndex(ctx, s.key(), int64(index)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Record{}, domain.ErrRecordNotFound
		}
		return domain.Record{}, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decode(index, val)
}

// Count returns the list length.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(n), nil
}

// scanBatch is the number of records fetched per LRANGE.
const scanBatch = 256

// Scan reads the list in batches.
func (s *Store) Scan(ctx context.Context, fn func(domain.Record) error) error {
	for start := int64(0); ; start += scanBatch {
		vals, err := s.client.LRange(ctx, s.key(), start, start+scanBatch-1).Result()
		if err != nil {
			return fmt.Errorf("failed to scan records: %w", err)
		}
		for i, val := range vals {
			rec, err := decode(int(start)+i, val)
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		if len(vals) < scanBatch {
			return nil
		}
	}
}

// Close stops refreshing and releases the tub lock and, if the store created
// it, the client.
func (s *Store) Close() error {
	var errs []error
	if s.stopKeep != nil {
		s.stopKeep()
		<-s.keepDone
		s.stopKeep = nil
	}
	if s.lease != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		errs = append(errs, s.lease.Release(ctx))
		cancel()
		s.lease = nil
	}
	if s.owned {
		errs = append(errs, s.client.Close())
	}
	return errors.Join(errs...)
}

func decode(index int, val string) (domain.Record, error) {
	var doc domain.RecordDocument
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return domain.Record{}, fmt.Errorf("failed to unmarshal record %d: %w", index, err)
	}
	doc.Index = index
	return doc.Record(func(_, ref string) (*domain.Frame, error) {
		data, err := base64.StdEncoding.DecodeString(ref)
		if err != nil {
			return nil, err
		}
		return domain.DecodePNG(data)
	})
}
