package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BillStark001/meetscript/internal/models"
)

// MemoryStore is an in-memory Store used for tests and single-process
// deployments without Redis.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

type memorySession struct {
	name      string
	startedAt time.Time
	records   map[int64]*models.MeetingRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

func (s *MemoryStore) InitSession(ctx context.Context, session, name string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session]; !ok {
		s.sessions[session] = &memorySession{
			name:      name,
			startedAt: startedAt,
			records:   make(map[int64]*models.MeetingRecord),
		}
	}
	return nil
}

func (s *MemoryStore) AddRecord(ctx context.Context, rec models.MeetingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[rec.Session]
	if !ok {
		sess = &memorySession{records: make(map[int64]*models.MeetingRecord)}
		s.sessions[rec.Session] = sess
	}
	if _, exists := sess.records[rec.Timestamp]; exists {
		return ErrDuplicateRecord
	}
	stored := rec
	if stored.Translations == nil {
		stored.Translations = make(map[string]string)
	} else {
		cp := make(map[string]string, len(stored.Translations))
		for k, v := range stored.Translations {
			cp[k] = v
		}
		stored.Translations = cp
	}
	sess.records[rec.Timestamp] = &stored
	return nil
}

func (s *MemoryStore) FetchRecords(ctx context.Context, session string, start, end int64, langPrefix string) ([]models.MeetingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[session]
	if !ok {
		return nil, nil
	}
	var out []models.MeetingRecord
	for ts, rec := range sess.records {
		if ts < start {
			continue
		}
		if end > 0 && ts > end {
			continue
		}
		if langPrefix != "" && !strings.HasPrefix(rec.Lang, langPrefix) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (s *MemoryStore) ListUntranslated(ctx context.Context, session, lang string) ([]models.MeetingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[session]
	if !ok {
		return nil, nil
	}
	var out []models.MeetingRecord
	for _, rec := range sess.records {
		if rec.Lang == lang {
			continue
		}
		if _, filled := rec.Translations[lang]; filled {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (s *MemoryStore) SetTranslation(ctx context.Context, session string, timestamp int64, lang, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[session]
	if !ok {
		return ErrRecordNotFound
	}
	rec, ok := sess.records[timestamp]
	if !ok {
		return ErrRecordNotFound
	}
	if _, filled := rec.Translations[lang]; filled {
		return nil
	}
	rec.Translations[lang] = text
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneRecord(rec *models.MeetingRecord) models.MeetingRecord {
	out := *rec
	out.Translations = make(map[string]string, len(rec.Translations))
	for k, v := range rec.Translations {
		out.Translations[k] = v
	}
	return out
}
