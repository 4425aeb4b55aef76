package memory

import (
	"context"
	"os"
	"slices"
	"sync"
	"time"

	"famreport/internal/storage"
)

// Store keeps the report in process memory. It is used for tests and for
// running the server without a database.
type Store struct {
	mu  sync.Mutex
	rec *storage.Record
	now func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewFromFile seeds the store with a payload file. A missing file yields an
// empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.Save(context.Background(), b); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Load(_ context.Context) (storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return storage.Record{}, storage.ErrNoReport
	}
	rec := *s.rec
	rec.Payload = slices.Clone(rec.Payload)
	return rec, nil
}

func (s *Store) Save(_ context.Context, payload []byte) (storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := storage.Record{Payload: slices.Clone(payload), Version: 1, UpdatedAt: s.now().UTC()}
	if s.rec != nil {
		next.Version = s.rec.Version + 1
		next.ExportedVersion = s.rec.ExportedVersion
	}
	s.rec = &next
	out := next
	out.Payload = slices.Clone(payload)
	return out, nil
}

func (s *Store) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}

func (s *Store) MarkExported(_ context.Context, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec != nil && s.rec.ExportedVersion < version {
		s.rec.ExportedVersion = version
	}
	return nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
