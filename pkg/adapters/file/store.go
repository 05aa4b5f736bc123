package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/vehicle/pkg/domain"
)

const (
	recordPrefix = "record_"
	lockName     = ".lock"
)

// Store implements ports.RecordStore as a tub directory: one JSON document
// per record (record_<n>.json) and one PNG per frame (<n>_<key>.png).
//
// Opening a store takes an exclusive lock file in the directory so that two
// writers never interleave indexes. The file holds the writer's PID; a lock
// whose process is no longer running is taken over.
type Store struct {
	BasePath string

	mu    sync.Mutex
	count int
	lock  *os.File
}

// Open opens (creating if needed) the tub at basePath.
// If basePath is empty, it defaults to "data/tub".
func Open(basePath string) (*Store, error) {
	if basePath == "" {
		basePath = filepath.Join("data", "tub")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure tub directory: %w", err)
	}

	lock, err := acquireLock(basePath)
	if err != nil {
		return nil, err
	}

	s := &Store{BasePath: basePath, lock: lock}
	n, err := s.scanCount()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.count = n
	return s, nil
}

// OpenReadOnly opens an existing tub for reading without taking the lock.
func OpenReadOnly(basePath string) (*Store, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open tub: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tub %s is not a directory", basePath)
	}
	s := &Store{BasePath: basePath}
	n, err := s.scanCount()
	if err != nil {
		return nil, err
	}
	s.count = n
	return s, nil
}

// Append writes the record's frames and then its document atomically.
func (s *Store) Append(ctx context.Context, rec domain.Record) (int, error) {
	if s.lock == nil {
		return 0, fmt.Errorf("tub %s is read-only", s.BasePath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.count
	rec.Index = idx
	doc, err := rec.Document(func(key string, f *domain.Frame) (string, error) {
		name := fmt.Sprintf("%d_%s.png", idx, sanitize(key))
		data, err := f.EncodePNG()
		if err != nil {
			return "", err
		}
		return name, writeAtomic(s.BasePath, name, data)
	})
	if err != nil {
		return 0, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := writeAtomic(s.BasePath, recordName(idx), data); err != nil {
		return 0, err
	}
	s.count++
	return idx, nil
}

// Get reads the record at index.
func (s *Store) Get(ctx context.Context, index int) (domain.Record, error) {
	if index < 0 {
		return domain.Record{}, domain.ErrRecordNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.BasePath, recordName(index)))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Record{}, domain.ErrRecordNotFound
		}
		return domain.Record{}, fmt.Errorf("failed to read record: %w", err)
	}

	var doc domain.RecordDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Record{}, fmt.Errorf("failed to unmarshal record %d: %w", index, err)
	}
	return doc.Record(func(key, ref string) (*domain.Frame, error) {
		img, err := os.ReadFile(filepath.Join(s.BasePath, filepath.Base(ref)))
		if err != nil {
			return nil, err
		}
		return domain.DecodePNG(img)
	})
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, nil
}

// Scan reads records in index order.
func (s *Store) Scan(ctx context.Context, fn func(domain.Record) error) error {
	n, _ := s.Count(ctx)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := s.Get(ctx, i)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the tub lock.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	path := s.lock.Name()
	err := errors.Join(s.lock.Close(), os.Remove(path))
	s.lock = nil
	return err
}

// acquireLock creates the lock file and writes our PID into it. A lock left
// behind by a dead process is removed and creation is retried once; an
// unreadable or empty lock counts as held.
func acquireLock(basePath string) (*os.File, error) {
	path := filepath.Join(basePath, lockName)
	for attempt := 0; ; attempt++ {
		lock, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(lock, "%d\n", os.Getpid())
			return lock, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to lock tub: %w", err)
		}
		pid, ok := lockOwner(path)
		if attempt > 0 || !ok || processAlive(pid) {
			return nil, fmt.Errorf("tub %s: %w", basePath, domain.ErrResourceLocked)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove stale tub lock: %w", err)
		}
	}
}

func lockOwner(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// scanCount finds the number of contiguous records starting at 0.
func (s *Store) scanCount() (int, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		return 0, fmt.Errorf("failed to list tub: %w", err)
	}
	present := make(map[int]bool, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, recordPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, recordPrefix), ".json"))
		if err != nil {
			continue
		}
		present[n] = true
	}
	n := 0
	for present[n] {
		n++
	}
	return n, nil
}

func recordName(i int) string {
	return recordPrefix + strconv.Itoa(i) + ".json"
}

func sanitize(key string) string {
	return strings.NewReplacer("/", "-", `\`, "-", " ", "_").Replace(key)
}

// writeAtomic writes to a temp file in dir, syncs it and renames it into place.
func writeAtomic(dir, name string, data []byte) error {
	// 1. Create Temp File on the same filesystem (required for atomic rename)
	tmpFile, err := os.CreateTemp(dir, "tmp-*-"+name)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	// 2. Write Data
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	// 3. Fsync to ensure durability
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	// 4. Close File (cannot rename open file on Windows)
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// 5. Atomic Rename
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
