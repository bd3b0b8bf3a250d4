package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// weekdaysOnly treats Monday through Friday as working days, which is
// enough calendar for ledger semantics.
func weekdaysOnly(_ context.Context, date string) (bool, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return false, err
	}
	return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday, nil
}

var testDBSeq int

func openTestLedger(t *testing.T) (*Ledger, *SQLStore) {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:ledgertest%d?mode=memory&cache=shared", testDBSeq)
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewSQLStore(db)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return New(store, weekdaysOnly), store
}

// 2026-08-31 is a Monday.
const (
	monday     = "2026-08-31"
	tuesday    = "2026-09-01"
	saturday   = "2026-09-05"
	nextMonday = "2026-09-07"
)

func TestRecordSightingFreshWorkingDay(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	rec, err := l.RecordSighting(ctx, "acme-app#41", monday)
	if err != nil {
		t.Fatalf("RecordSighting: %v", err)
	}
	if rec.TotalDays != 1 {
		t.Errorf("TotalDays = %d, want 1", rec.TotalDays)
	}
	if rec.FirstSeenDate != monday || rec.LastSeenDate != monday {
		t.Errorf("dates = %s/%s, want %s/%s", rec.FirstSeenDate, rec.LastSeenDate, monday, monday)
	}
}

func TestRecordSightingFreshWeekend(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	rec, err := l.RecordSighting(ctx, "acme-app#41", saturday)
	if err != nil {
		t.Fatalf("RecordSighting: %v", err)
	}
	if rec.TotalDays != 0 {
		t.Errorf("TotalDays = %d, want 0 for weekend first sighting", rec.TotalDays)
	}

	// A second weekend sighting advances last_seen but still accrues nothing.
	rec, err = l.RecordSighting(ctx, "acme-app#41", "2026-09-06")
	if err != nil {
		t.Fatalf("RecordSighting sunday: %v", err)
	}
	if rec.TotalDays != 0 {
		t.Errorf("TotalDays = %d, want 0 after second weekend sighting", rec.TotalDays)
	}
	if rec.LastSeenDate != "2026-09-06" {
		t.Errorf("LastSeenDate = %s, want 2026-09-06", rec.LastSeenDate)
	}
}

func TestRecordSightingIdempotentSameDay(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	first, err := l.RecordSighting(ctx, "acme-app#41", monday)
	if err != nil {
		t.Fatalf("first sighting: %v", err)
	}
	second, err := l.RecordSighting(ctx, "acme-app#41", monday)
	if err != nil {
		t.Fatalf("repeat sighting: %v", err)
	}
	if second.TotalDays != first.TotalDays {
		t.Errorf("TotalDays changed on same-day repeat: %d -> %d", first.TotalDays, second.TotalDays)
	}
	if second.LastSeenDate != first.LastSeenDate {
		t.Errorf("LastSeenDate changed on same-day repeat: %s -> %s", first.LastSeenDate, second.LastSeenDate)
	}
}

func TestRecordSightingAccrual(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	if _, err := l.RecordSighting(ctx, "acme-app#41", monday); err != nil {
		t.Fatalf("monday: %v", err)
	}
	rec, err := l.RecordSighting(ctx, "acme-app#41", tuesday)
	if err != nil {
		t.Fatalf("tuesday: %v", err)
	}
	if rec.TotalDays != 2 {
		t.Errorf("TotalDays = %d, want 2 after second working day", rec.TotalDays)
	}

	// Weekend sighting moves last_seen without accruing.
	rec, err = l.RecordSighting(ctx, "acme-app#41", saturday)
	if err != nil {
		t.Fatalf("saturday: %v", err)
	}
	if rec.TotalDays != 2 {
		t.Errorf("TotalDays = %d, want 2 after weekend sighting", rec.TotalDays)
	}
	if rec.LastSeenDate != saturday {
		t.Errorf("LastSeenDate = %s, want %s", rec.LastSeenDate, saturday)
	}
	if rec.FirstSeenDate != monday {
		t.Errorf("FirstSeenDate = %s, want %s (immutable)", rec.FirstSeenDate, monday)
	}

	rec, err = l.RecordSighting(ctx, "acme-app#41", nextMonday)
	if err != nil {
		t.Fatalf("next monday: %v", err)
	}
	if rec.TotalDays != 3 {
		t.Errorf("TotalDays = %d, want 3", rec.TotalDays)
	}
}

func TestRecordSightingStale(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	if _, err := l.RecordSighting(ctx, "acme-app#41", tuesday); err != nil {
		t.Fatalf("tuesday: %v", err)
	}
	_, err := l.RecordSighting(ctx, "acme-app#41", monday)
	if !errors.Is(err, ErrStaleSighting) {
		t.Fatalf("want ErrStaleSighting, got %v", err)
	}

	// The record is untouched by the rejected replay.
	rec, err := l.RecordSighting(ctx, "acme-app#41", tuesday)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if rec.LastSeenDate != tuesday || rec.TotalDays != 1 {
		t.Errorf("record changed after stale sighting: %+v", rec)
	}
}

func TestRecordSightingMonotonic(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	dates := []string{monday, monday, tuesday, saturday, "2026-09-06", nextMonday, nextMonday}
	prev := 0
	for _, d := range dates {
		rec, err := l.RecordSighting(ctx, "acme-app#41", d)
		if err != nil {
			t.Fatalf("RecordSighting(%s): %v", d, err)
		}
		if rec.TotalDays < prev {
			t.Fatalf("TotalDays decreased: %d -> %d at %s", prev, rec.TotalDays, d)
		}
		prev = rec.TotalDays
	}
}

func TestRecordSightingRejectsBadDate(t *testing.T) {
	l, _ := openTestLedger(t)
	if _, err := l.RecordSighting(context.Background(), "acme-app#41", "yesterday"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestRecordSightingsBatchIsolatesStale(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	// acme-app#1 already advanced past monday; acme-app#2 is fresh.
	if _, err := l.RecordSighting(ctx, "acme-app#1", tuesday); err != nil {
		t.Fatalf("seed: %v", err)
	}

	results, err := l.RecordSightings(ctx, []string{"acme-app#1", "acme-app#2"}, monday)
	if err != nil {
		t.Fatalf("RecordSightings: %v", err)
	}
	if !errors.Is(results["acme-app#1"].Err, ErrStaleSighting) {
		t.Errorf("acme-app#1 err = %v, want ErrStaleSighting", results["acme-app#1"].Err)
	}
	if results["acme-app#2"].Err != nil {
		t.Errorf("acme-app#2 err = %v, want nil", results["acme-app#2"].Err)
	}
	if rec := results["acme-app#2"].Record; rec == nil || rec.TotalDays != 1 {
		t.Errorf("acme-app#2 record = %+v, want total_days 1", rec)
	}
}

func TestRecordSightingsBatchFailsOnClassifierError(t *testing.T) {
	_, store := openTestLedger(t)
	broken := New(store, func(context.Context, string) (bool, error) {
		return false, errors.New("feed unreachable")
	})
	_, err := broken.RecordSightings(context.Background(), []string{"acme-app#9"}, monday)
	if err == nil {
		t.Fatal("expected whole-batch failure when classification is unavailable")
	}
}

func TestDays(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	if days, err := l.Days(ctx, "unseen#1"); err != nil || days != 1 {
		t.Errorf("Days(unseen) = %d, %v; want 1, nil", days, err)
	}

	if _, err := l.RecordSighting(ctx, "acme-app#41", monday); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := l.RecordSighting(ctx, "acme-app#41", tuesday); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if days, err := l.Days(ctx, "acme-app#41"); err != nil || days != 2 {
		t.Errorf("Days = %d, %v; want 2, nil", days, err)
	}
}

func TestPruneRetentionBoundary(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC)

	// 31 days before now: eligible. Exactly 30: retained.
	if _, err := l.RecordSighting(ctx, "old#1", now.AddDate(0, 0, -31).Format(dateLayout)); err != nil {
		t.Fatalf("seed old: %v", err)
	}
	if _, err := l.RecordSighting(ctx, "edge#1", now.AddDate(0, 0, -30).Format(dateLayout)); err != nil {
		t.Fatalf("seed edge: %v", err)
	}

	deleted, err := l.Prune(ctx, now, 30)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := l.Days(ctx, "old#1"); err != nil {
		t.Fatalf("Days after prune: %v", err)
	}
	records, err := l.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].TaskKey != "edge#1" {
		t.Errorf("surviving records = %+v, want only edge#1", records)
	}
}

func TestPruneRejectsNonPositiveRetention(t *testing.T) {
	l, _ := openTestLedger(t)
	if _, err := l.Prune(context.Background(), time.Now(), 0); err == nil {
		t.Fatal("expected error for zero retention")
	}
}

func TestEndToEndScenario(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	rec, err := l.RecordSighting(ctx, "acme-app#41", monday)
	if err != nil || rec.TotalDays != 1 {
		t.Fatalf("monday: rec=%+v err=%v, want total_days 1", rec, err)
	}
	rec, err = l.RecordSighting(ctx, "acme-app#41", monday)
	if err != nil || rec.TotalDays != 1 {
		t.Fatalf("monday repeat: rec=%+v err=%v, want unchanged", rec, err)
	}
	rec, err = l.RecordSighting(ctx, "acme-app#41", tuesday)
	if err != nil || rec.TotalDays != 2 || rec.LastSeenDate != tuesday {
		t.Fatalf("tuesday: rec=%+v err=%v, want total_days 2", rec, err)
	}
	rec, err = l.RecordSighting(ctx, "acme-app#41", saturday)
	if err != nil || rec.TotalDays != 2 || rec.LastSeenDate != saturday {
		t.Fatalf("saturday: rec=%+v err=%v, want total_days 2, last_seen %s", rec, err, saturday)
	}

	later, _ := time.Parse(dateLayout, saturday)
	deleted, err := l.Prune(ctx, later.AddDate(0, 0, 40), 30)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

func TestSQLStoreDuplicateInsert(t *testing.T) {
	_, store := openTestLedger(t)
	ctx := context.Background()

	rec := &TaskRecord{TaskKey: "dup#1", FirstSeenDate: monday, LastSeenDate: monday, TotalDays: 1}
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := store.Insert(ctx, &TaskRecord{TaskKey: "dup#1", FirstSeenDate: tuesday, LastSeenDate: tuesday})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("want ErrDuplicateKey, got %v", err)
	}
}

func TestSQLStoreAdvanceGuard(t *testing.T) {
	_, store := openTestLedger(t)
	ctx := context.Background()

	rec := &TaskRecord{TaskKey: "g#1", FirstSeenDate: tuesday, LastSeenDate: tuesday, TotalDays: 1}
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Same date and earlier date both match zero rows.
	for _, d := range []string{tuesday, monday} {
		changed, err := store.Advance(ctx, "g#1", d, true)
		if err != nil {
			t.Fatalf("Advance(%s): %v", d, err)
		}
		if changed {
			t.Errorf("Advance(%s) changed a row, want guarded no-op", d)
		}
	}

	changed, err := store.Advance(ctx, "g#1", saturday, false)
	if err != nil {
		t.Fatalf("Advance forward: %v", err)
	}
	if !changed {
		t.Error("Advance forward did not change the row")
	}
	got, err := store.Get(ctx, "g#1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TotalDays != 1 || got.LastSeenDate != saturday {
		t.Errorf("record = %+v, want total_days 1, last_seen %s", got, saturday)
	}
}

func TestSQLStoreGetNotFound(t *testing.T) {
	_, store := openTestLedger(t)
	if _, err := store.Get(context.Background(), "missing#0"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
