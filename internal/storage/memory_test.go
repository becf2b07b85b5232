package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BillStark001/meetscript/internal/models"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.InitSession(ctx, "sess-1", "standup", time.Now()); err != nil {
		t.Fatalf("init session failed: %v", err)
	}
	records := []models.MeetingRecord{
		{Session: "sess-1", Timestamp: 1000, Lang: "en-US", Text: "hello"},
		{Session: "sess-1", Timestamp: 3000, Lang: "ja-JP", Text: "こんにちは"},
		{Session: "sess-1", Timestamp: 5000, Lang: "en-US", Text: "goodbye", Translations: map[string]string{"ja": "さようなら"}},
	}
	for _, rec := range records {
		if err := s.AddRecord(ctx, rec); err != nil {
			t.Fatalf("add record at %d failed: %v", rec.Timestamp, err)
		}
	}
	return s
}

func TestAddRecord_Duplicate(t *testing.T) {
	s := seedStore(t)
	err := s.AddRecord(context.Background(), models.MeetingRecord{
		Session: "sess-1", Timestamp: 1000, Lang: "en-US", Text: "again",
	})
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Errorf("expected ErrDuplicateRecord, got %v", err)
	}

	recs, err := s.FetchRecords(context.Background(), "sess-1", 0, 0, "")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if recs[0].Text != "hello" {
		t.Errorf("duplicate write must not overwrite: got %q", recs[0].Text)
	}
}

func TestFetchRecords_RangeAndPrefix(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		start, end int64
		langPrefix string
		want       []int64
	}{
		{"all", 0, 0, "", []int64{1000, 3000, 5000}},
		{"from middle", 2000, 0, "", []int64{3000, 5000}},
		{"bounded", 1000, 3000, "", []int64{1000, 3000}},
		{"lang prefix", 0, 0, "en", []int64{1000, 5000}},
		{"exact lang", 0, 0, "ja-JP", []int64{3000}},
		{"empty range", 6000, 0, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.FetchRecords(ctx, "sess-1", tt.start, tt.end, tt.langPrefix)
			if err != nil {
				t.Fatalf("fetch failed: %v", err)
			}
			if len(recs) != len(tt.want) {
				t.Fatalf("expected %d records, got %d", len(tt.want), len(recs))
			}
			for i, ts := range tt.want {
				if recs[i].Timestamp != ts {
					t.Errorf("record %d: expected timestamp %d, got %d", i, ts, recs[i].Timestamp)
				}
			}
		})
	}
}

func TestListUntranslated(t *testing.T) {
	s := seedStore(t)

	recs, err := s.ListUntranslated(context.Background(), "sess-1", "ja")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	// 1000 has no ja slot; 3000 is ja-JP but not strictly "ja" so it is kept;
	// 5000 already carries a ja translation.
	if len(recs) != 2 {
		t.Fatalf("expected 2 untranslated records, got %d", len(recs))
	}
	if recs[0].Timestamp != 1000 || recs[1].Timestamp != 3000 {
		t.Errorf("unexpected timestamps: %d, %d", recs[0].Timestamp, recs[1].Timestamp)
	}
}

func TestSetTranslation_Idempotent(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	if err := s.SetTranslation(ctx, "sess-1", 1000, "ja", "やあ"); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	// A second write to the same slot must not clobber the first.
	if err := s.SetTranslation(ctx, "sess-1", 1000, "ja", "clobbered"); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	recs, err := s.FetchRecords(ctx, "sess-1", 1000, 1000, "")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got := recs[0].Translations["ja"]; got != "やあ" {
		t.Errorf("expected translation to stay やあ, got %q", got)
	}

	if err := s.SetTranslation(ctx, "sess-1", 9999, "ja", "x"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound for missing record, got %v", err)
	}
}

func TestFetchRecords_Isolation(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	recs, err := s.FetchRecords(ctx, "sess-1", 0, 0, "")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	recs[0].Translations["ja"] = "mutated"

	again, err := s.FetchRecords(ctx, "sess-1", 0, 0, "")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if _, ok := again[0].Translations["ja"]; ok {
		t.Error("mutating a fetched record must not affect the store")
	}
}
