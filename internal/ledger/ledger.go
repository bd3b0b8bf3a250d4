// Package ledger tracks how many working days each task reference has
// been open. It is the stateful core of the standup reporter: sightings
// are idempotent per calendar day, day counts only ever grow, and stale
// entries age out after a retention window.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

var (
	// ErrNotFound means no record exists for the task key.
	ErrNotFound = errors.New("ledger: task record not found")
	// ErrDuplicateKey is returned by Store.Insert when the key already
	// exists; RecordSighting uses it to converge concurrent first
	// sightings onto a single record.
	ErrDuplicateKey = errors.New("ledger: task key already exists")
	// ErrStaleSighting rejects sightings dated before the record's
	// last seen date. Replayed or out-of-order triggers must not rewind
	// the ledger.
	ErrStaleSighting = errors.New("ledger: sighting predates last seen date")
)

// TaskRecord is the persisted state of one task reference.
type TaskRecord struct {
	TaskKey       string
	FirstSeenDate string
	LastSeenDate  string
	TotalDays     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WorkdayFunc reports whether a YYYY-MM-DD date is a working day. The
// caller decides the fallback when classification is unavailable.
type WorkdayFunc func(ctx context.Context, date string) (bool, error)

// Ledger applies sighting and pruning semantics on top of a Store. The
// store handle is explicit; there is no ambient database binding.
type Ledger struct {
	store     Store
	isWorkday WorkdayFunc
}

func New(store Store, isWorkday WorkdayFunc) *Ledger {
	return &Ledger{store: store, isWorkday: isWorkday}
}

// RecordSighting registers that taskKey was observed on date.
//
// A fresh key creates a record with total_days 1 on working days and 0
// otherwise. Re-observing the same date is a no-op. A later date always
// advances last_seen_date but only accrues a day when the date is a
// working day. An earlier date returns ErrStaleSighting and leaves the
// record untouched.
func (l *Ledger) RecordSighting(ctx context.Context, taskKey, date string) (*TaskRecord, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid sighting date %q: %w", date, err)
	}

	rec, err := l.store.Get(ctx, taskKey)
	if errors.Is(err, ErrNotFound) {
		working, werr := l.isWorkday(ctx, date)
		if werr != nil {
			return nil, fmt.Errorf("classify %s: %w", date, werr)
		}
		days := 0
		if working {
			days = 1
		}
		fresh := &TaskRecord{
			TaskKey:       taskKey,
			FirstSeenDate: date,
			LastSeenDate:  date,
			TotalDays:     days,
		}
		err = l.store.Insert(ctx, fresh)
		if err == nil {
			return fresh, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return nil, err
		}
		// Lost a race with a concurrent first sighting; fall through to
		// the update path against the record that won.
		if rec, err = l.store.Get(ctx, taskKey); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	switch {
	case date == rec.LastSeenDate:
		return rec, nil
	case date < rec.LastSeenDate:
		return nil, fmt.Errorf("%w: %s sighted on %s, last seen %s",
			ErrStaleSighting, taskKey, date, rec.LastSeenDate)
	}

	working, err := l.isWorkday(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", date, err)
	}
	if _, err := l.store.Advance(ctx, taskKey, date, working); err != nil {
		return nil, err
	}
	// Re-read rather than patching the in-memory copy: a concurrent
	// invocation may have advanced the record past us.
	return l.store.Get(ctx, taskKey)
}

// Sighting is the per-key outcome of a batch.
type Sighting struct {
	Record *TaskRecord
	Err    error
}

// RecordSightings applies RecordSighting for every key observed on date.
// Stale sightings are isolated per key so one replayed reference cannot
// abort the batch; any other failure (store down, classification
// unavailable) fails the whole call.
func (l *Ledger) RecordSightings(ctx context.Context, taskKeys []string, date string) (map[string]Sighting, error) {
	results := make(map[string]Sighting, len(taskKeys))
	for _, key := range taskKeys {
		rec, err := l.RecordSighting(ctx, key, date)
		if err != nil && !errors.Is(err, ErrStaleSighting) {
			return nil, fmt.Errorf("record sighting %s: %w", key, err)
		}
		results[key] = Sighting{Record: rec, Err: err}
	}
	return results, nil
}

// Days returns the accumulated working-day count for taskKey, or 1 when
// the key has no record yet (a brand-new piece of work).
func (l *Ledger) Days(ctx context.Context, taskKey string) (int, error) {
	rec, err := l.store.Get(ctx, taskKey)
	if errors.Is(err, ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.TotalDays, nil
}

// Prune deletes records last seen more than retentionDays calendar days
// before now and returns how many were removed. A record at exactly the
// retention boundary is kept.
func (l *Ledger) Prune(ctx context.Context, now time.Time, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	cutoff := now.AddDate(0, 0, -retentionDays).Format(dateLayout)
	return l.store.DeleteLastSeenBefore(ctx, cutoff)
}

// List returns every record in the ledger ordered by task key.
func (l *Ledger) List(ctx context.Context) ([]TaskRecord, error) {
	return l.store.List(ctx)
}
