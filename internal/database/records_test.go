package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "motion.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return db
}

// setCreatedAt rewrites a record's capture time so calendar and
// retention queries can be tested deterministically.
func setCreatedAt(t *testing.T, db *Database, id int64, ts time.Time) {
	t.Helper()
	if _, err := db.db.Exec(
		`UPDATE files SET created_at = ? WHERE id = ?`, ts.Unix(), id); err != nil {
		t.Fatalf("Failed to set created_at: %v", err)
	}
}

func createProcessed(t *testing.T, db *Database, name string, size int64, category Category, ts time.Time) *FileRecord {
	t.Helper()
	ctx := context.Background()

	rec, err := db.CreateRecord(ctx, name, "/recordings/staging", size, category)
	if err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}
	if err := db.MarkProcessed(ctx, rec.ID, name, "/recordings/public", size, 1920, 1080, 60); err != nil {
		t.Fatalf("Failed to mark processed: %v", err)
	}
	setCreatedAt(t, db, rec.ID, ts)

	rec, err = db.GetRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Failed to reload record: %v", err)
	}
	return rec
}

func TestCreateAndGetRecord(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := db.CreateRecord(ctx, "clip.avi", "/recordings/staging", 1234, CategoryImportant)
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if rec.ID == 0 {
		t.Error("Expected non-zero record id")
	}
	if rec.Processed {
		t.Error("New records must start unprocessed")
	}

	got, err := db.GetRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.FileName != "clip.avi" || got.FileSize != 1234 || got.Type != CategoryImportant {
		t.Errorf("Record round trip mismatch: %+v", got)
	}

	byName, err := db.GetRecordByFileName(ctx, "clip.avi")
	if err != nil {
		t.Fatalf("GetRecordByFileName failed: %v", err)
	}
	if byName.ID != rec.ID {
		t.Errorf("Expected id %d, got %d", rec.ID, byName.ID)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetRecord(ctx, 9999); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
	if _, err := db.GetRecordByFileName(ctx, "missing.mp4"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestMarkProcessed(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := db.CreateRecord(ctx, "clip.avi", "/recordings/staging", 1234, CategoryNormal)
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	if err := db.MarkProcessed(ctx, rec.ID, "clip.mp4", "/recordings/public", 999, 1280, 720, 42); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	got, err := db.GetRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if !got.Processed {
		t.Error("Expected record to be processed")
	}
	if got.FileName != "clip.mp4" || got.FilePath != "/recordings/public" {
		t.Errorf("Expected new identity after processing, got %s in %s", got.FileName, got.FilePath)
	}
	if got.FileSize != 999 || got.VideoWidth != 1280 || got.VideoHeight != 720 || got.VideoDuration != 42 {
		t.Errorf("Metadata mismatch: %+v", got)
	}

	if err := db.MarkProcessed(ctx, 9999, "x.mp4", "/tmp", 1, 0, 0, 0); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound for unknown id, got %v", err)
	}
}

func TestListTableOnlyProcessed(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	createProcessed(t, db, "a.mp4", 100, CategoryNormal, base)
	createProcessed(t, db, "b.mp4", 100, CategoryNormal, base.Add(time.Minute))
	if _, err := db.CreateRecord(ctx, "staged.avi", "/recordings/staging", 100, CategoryNormal); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	listing, err := db.ListTable(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListTable failed: %v", err)
	}
	if listing.TotalItems != 2 {
		t.Errorf("Expected 2 processed items, got %d", listing.TotalItems)
	}
	if len(listing.Items) != 2 {
		t.Fatalf("Expected 2 items on page, got %d", len(listing.Items))
	}
	if listing.Items[0].FileName != "b.mp4" {
		t.Errorf("Expected newest first, got %s", listing.Items[0].FileName)
	}
}

func TestListTablePagination(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		createProcessed(t, db, clipName(i), 100, CategoryNormal, base.Add(time.Duration(i)*time.Minute))
	}

	listing, err := db.ListTable(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListTable failed: %v", err)
	}
	if listing.TotalItems != 5 || listing.TotalPages != 3 {
		t.Errorf("Expected 5 items over 3 pages, got %d over %d", listing.TotalItems, listing.TotalPages)
	}
	if len(listing.Items) != 2 {
		t.Fatalf("Expected 2 items on page 2, got %d", len(listing.Items))
	}
	// Page 2 of newest-first over clip-4..clip-0 holds clip-2 and clip-1.
	if listing.Items[0].FileName != "clip-2.mp4" || listing.Items[1].FileName != "clip-1.mp4" {
		t.Errorf("Unexpected page contents: %s, %s", listing.Items[0].FileName, listing.Items[1].FileName)
	}
}

func clipName(i int) string {
	return "clip-" + string(rune('0'+i)) + ".mp4"
}

func TestCountPerHour(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	createProcessed(t, db, "h9a.mp4", 100, CategoryNormal, day.Add(9*time.Hour))
	createProcessed(t, db, "h9b.mp4", 100, CategoryNormal, day.Add(9*time.Hour+30*time.Minute))
	createProcessed(t, db, "h14.mp4", 100, CategoryNormal, day.Add(14*time.Hour))
	// Different category and different day must not count.
	createProcessed(t, db, "roi.mp4", 100, CategoryImportant, day.Add(9*time.Hour))
	createProcessed(t, db, "next.mp4", 100, CategoryNormal, day.Add(25*time.Hour))

	counts, err := db.CountPerHour(ctx, day, CategoryNormal)
	if err != nil {
		t.Fatalf("CountPerHour failed: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("Expected 2 hour buckets, got %d: %+v", len(counts), counts)
	}
	if counts[0].Hour != 9 || counts[0].Count != 2 {
		t.Errorf("Expected hour 9 count 2, got %+v", counts[0])
	}
	if counts[1].Hour != 14 || counts[1].Count != 1 {
		t.Errorf("Expected hour 14 count 1, got %+v", counts[1])
	}
}

func TestListHour(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	createProcessed(t, db, "early.mp4", 100, CategoryNormal, day.Add(9*time.Hour))
	createProcessed(t, db, "late.mp4", 100, CategoryNormal, day.Add(9*time.Hour+59*time.Minute+59*time.Second))
	createProcessed(t, db, "outside.mp4", 100, CategoryNormal, day.Add(10*time.Hour))

	records, err := db.ListHour(ctx, day, 9, CategoryNormal)
	if err != nil {
		t.Fatalf("ListHour failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records in hour 9, got %d", len(records))
	}
	if records[0].FileName != "late.mp4" {
		t.Errorf("Expected newest first, got %s", records[0].FileName)
	}
}

func TestTotalProcessedSize(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	total, err := db.TotalProcessedSize(ctx, CategoryNormal)
	if err != nil {
		t.Fatalf("TotalProcessedSize failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected 0 on empty catalog, got %d", total)
	}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	createProcessed(t, db, "a.mp4", 100, CategoryNormal, base)
	createProcessed(t, db, "b.mp4", 250, CategoryNormal, base)
	createProcessed(t, db, "roi.mp4", 999, CategoryImportant, base)
	if _, err := db.CreateRecord(ctx, "staged.avi", "/recordings/staging", 500, CategoryNormal); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	total, err = db.TotalProcessedSize(ctx, CategoryNormal)
	if err != nil {
		t.Fatalf("TotalProcessedSize failed: %v", err)
	}
	if total != 350 {
		t.Errorf("Expected 350 (processed normal only), got %d", total)
	}
}

func TestOldestProcessedBatch(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	createProcessed(t, db, "newest.mp4", 100, CategoryNormal, base.Add(2*time.Hour))
	createProcessed(t, db, "oldest.mp4", 100, CategoryNormal, base)
	createProcessed(t, db, "middle.mp4", 100, CategoryNormal, base.Add(time.Hour))

	batch, err := db.OldestProcessedBatch(ctx, CategoryNormal, 2)
	if err != nil {
		t.Fatalf("OldestProcessedBatch failed: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("Expected batch of 2, got %d", len(batch))
	}
	if batch[0].FileName != "oldest.mp4" || batch[1].FileName != "middle.mp4" {
		t.Errorf("Expected oldest first, got %s, %s", batch[0].FileName, batch[1].FileName)
	}
}

func TestDeleteRecords(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := createProcessed(t, db, "a.mp4", 100, CategoryNormal, base)
	b := createProcessed(t, db, "b.mp4", 100, CategoryNormal, base)

	if err := db.DeleteRecords(ctx, nil); err != nil {
		t.Errorf("Deleting nothing should succeed, got %v", err)
	}

	if err := db.DeleteRecords(ctx, []int64{a.ID, b.ID}); err != nil {
		t.Fatalf("DeleteRecords failed: %v", err)
	}
	if _, err := db.GetRecord(ctx, a.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected record %d to be gone, got %v", a.ID, err)
	}
}

func TestListProcessedBatchPaging(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	createProcessed(t, db, "a.mp4", 100, CategoryNormal, base)
	createProcessed(t, db, "b.mp4", 100, CategoryImportant, base)
	createProcessed(t, db, "c.mp4", 100, CategoryNormal, base)

	var seen []string
	var afterID int64
	for {
		batch, err := db.ListProcessedBatch(ctx, 2, afterID)
		if err != nil {
			t.Fatalf("ListProcessedBatch failed: %v", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, rec := range batch {
			seen = append(seen, rec.FileName)
			afterID = rec.ID
		}
	}

	if len(seen) != 3 {
		t.Errorf("Expected to page over 3 records, got %d: %v", len(seen), seen)
	}
}
