// Package storage persists meeting records. The streaming core treats the
// store as an external collaborator: records are written once per finalized
// segment and translation slots are filled independently and idempotently.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/BillStark001/meetscript/internal/models"
)

var (
	// ErrDuplicateRecord indicates a record already exists at the same
	// (session, timestamp). Surfaced as a soft conflict, not a failure.
	ErrDuplicateRecord = errors.New("duplicate meeting record")
	// ErrRecordNotFound indicates the addressed record does not exist.
	ErrRecordNotFound = errors.New("meeting record not found")
)

// Store is the persistence boundary for meeting records.
type Store interface {
	// InitSession prepares the namespace for a session and stores its metadata.
	InitSession(ctx context.Context, session, name string, startedAt time.Time) error

	// AddRecord persists a finalized transcript segment.
	// Returns ErrDuplicateRecord if a record already exists at the same timestamp.
	AddRecord(ctx context.Context, rec models.MeetingRecord) error

	// FetchRecords returns the session's records within [start, end] ordered by
	// timestamp. A non-positive end leaves the range open; a non-empty
	// langPrefix keeps only records whose language starts with it.
	FetchRecords(ctx context.Context, session string, start, end int64, langPrefix string) ([]models.MeetingRecord, error)

	// ListUntranslated returns records whose language differs from lang and
	// whose translation slot for lang is still empty, ordered by timestamp.
	ListUntranslated(ctx context.Context, session, lang string) ([]models.MeetingRecord, error)

	// SetTranslation fills a record's translation slot for lang. Writing an
	// already-filled slot is a no-op.
	SetTranslation(ctx context.Context, session string, timestamp int64, lang, text string) error

	// Close releases the store's resources.
	Close() error
}
