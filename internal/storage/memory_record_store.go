package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"wastevision-service/internal/domain/account"
)

type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]account.Record
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[uuid.UUID]account.Record),
	}
}

func (s *MemoryRecordStore) Create(ctx context.Context, record *account.Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	stored := *record
	stored.Items = append([]account.RecordItem(nil), record.Items...)

	s.mu.Lock()
	s.records[record.ID] = stored
	s.mu.Unlock()
	return nil
}

// ListByUser returns the user's records, newest first.
func (s *MemoryRecordStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]account.Record, error) {
	s.mu.RLock()
	out := make([]account.Record, 0)
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryRecordStore) Get(ctx context.Context, userID, id uuid.UUID) (*account.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.records[id]
	if !exists || r.UserID != userID {
		return nil, account.ErrRecordNotFound
	}
	return &r, nil
}

func (s *MemoryRecordStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.records[id]
	if !exists || r.UserID != userID {
		return account.ErrRecordNotFound
	}
	delete(s.records, id)
	return nil
}

var _ account.RecordStore = (*MemoryRecordStore)(nil)
