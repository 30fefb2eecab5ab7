package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRecordNotFound is returned when a catalog lookup matches no row.
var ErrRecordNotFound = errors.New("file record not found")

const recordColumns = `id, file_name, file_path, file_size, type, processed,
	video_duration, video_width, video_height, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (*FileRecord, error) {
	var (
		rec       FileRecord
		cat       int
		processed int
		created   int64
		updated   int64
	)
	err := row.Scan(&rec.ID, &rec.FileName, &rec.FilePath, &rec.FileSize,
		&cat, &processed, &rec.VideoDuration, &rec.VideoWidth,
		&rec.VideoHeight, &created, &updated)
	if err != nil {
		return nil, err
	}
	rec.Type = Category(cat)
	rec.Processed = processed != 0
	rec.CreatedAt = time.Unix(created, 0).UTC()
	rec.UpdatedAt = time.Unix(updated, 0).UTC()
	return &rec, nil
}

// CreateRecord inserts a new unprocessed catalog entry for a freshly
// staged upload. fileSize must be measured from disk after the move, never
// taken from client metadata.
func (d *Database) CreateRecord(ctx context.Context, fileName, filePath string, fileSize int64, category Category) (*FileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC().Unix()
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO files (file_name, file_path, file_size, type, processed, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		fileName, filePath, fileSize, int(category), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert file record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted record id: %w", err)
	}

	return &FileRecord{
		ID:        id,
		FileName:  fileName,
		FilePath:  filePath,
		FileSize:  fileSize,
		Type:      category,
		CreatedAt: time.Unix(now, 0).UTC(),
		UpdatedAt: time.Unix(now, 0).UTC(),
	}, nil
}

// GetRecord fetches a catalog entry by id.
func (d *Database) GetRecord(ctx context.Context, id int64) (*FileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM files WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file record %d: %w", id, err)
	}
	return rec, nil
}

// GetRecordByFileName fetches a catalog entry by its current on-disk name.
func (d *Database) GetRecordByFileName(ctx context.Context, fileName string) (*FileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM files WHERE file_name = ? LIMIT 1`, fileName)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file record %q: %w", fileName, err)
	}
	return rec, nil
}

// MarkProcessed records the outcome of a successful transcode: the new
// on-disk identity, the re-measured size, best-effort probe metadata, and
// the processed flag. The flag never reverts to false.
func (d *Database) MarkProcessed(ctx context.Context, id int64, fileName, filePath string, fileSize int64, width, height, duration int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		UPDATE files
		SET file_name = ?, file_path = ?, file_size = ?,
			video_width = ?, video_height = ?, video_duration = ?,
			processed = 1, updated_at = ?
		WHERE id = ?`,
		fileName, filePath, fileSize, width, height, duration,
		time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark record %d processed: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListTable returns one page of processed recordings, newest first.
func (d *Database) ListTable(ctx context.Context, page, itemsPerPage int) (*TableListing, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if itemsPerPage < 1 {
		itemsPerPage = 10
	}

	var total int
	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM files WHERE processed = 1`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM files
		WHERE processed = 1
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		itemsPerPage, (page-1)*itemsPerPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	items, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}

	totalPages := (total + itemsPerPage - 1) / itemsPerPage
	return &TableListing{
		Items:        items,
		TotalItems:   total,
		Page:         page,
		ItemsPerPage: itemsPerPage,
		TotalPages:   totalPages,
	}, nil
}

// CountPerHour aggregates processed recordings of a category for one day
// into hourly buckets, hour ascending. The day is interpreted in UTC.
func (d *Database) CountPerHour(ctx context.Context, day time.Time, category Category) ([]HourCount, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start, end := dayBounds(day)
	rows, err := d.db.QueryContext(ctx, `
		SELECT CAST(strftime('%H', created_at, 'unixepoch') AS INTEGER) AS hour, COUNT(id)
		FROM files
		WHERE created_at BETWEEN ? AND ?
			AND processed = 1
			AND type = ?
		GROUP BY hour
		ORDER BY hour ASC`,
		start.Unix(), end.Unix(), int(category))
	if err != nil {
		return nil, fmt.Errorf("failed to count records per hour: %w", err)
	}
	defer rows.Close()

	counts := []HourCount{}
	for rows.Next() {
		var hc HourCount
		if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan hour count: %w", err)
		}
		counts = append(counts, hc)
	}
	return counts, rows.Err()
}

// ListHour returns the processed recordings of a category captured within
// the given hour of a day, newest first.
func (d *Database) ListHour(ctx context.Context, day time.Time, hour int, category Category) ([]FileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start, _ := dayBounds(day)
	hourStart := start.Add(time.Duration(hour) * time.Hour)
	hourEnd := hourStart.Add(time.Hour - time.Second)

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM files
		WHERE created_at BETWEEN ? AND ?
			AND processed = 1
			AND type = ?
		ORDER BY created_at DESC, id DESC`,
		hourStart.Unix(), hourEnd.Unix(), int(category))
	if err != nil {
		return nil, fmt.Errorf("failed to list records for hour %d: %w", hour, err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// TotalProcessedSize sums file_size over processed records of a category.
func (d *Database) TotalProcessedSize(ctx context.Context, category Category) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var total sql.NullInt64
	err := d.db.QueryRowContext(ctx,
		`SELECT SUM(file_size) FROM files WHERE processed = 1 AND type = ?`,
		int(category)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum file sizes: %w", err)
	}
	return total.Int64, nil
}

// OldestProcessedBatch returns up to limit processed records of a
// category, oldest capture first. Retention walks these batches.
func (d *Database) OldestProcessedBatch(ctx context.Context, category Category, limit int) ([]FileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM files
		WHERE processed = 1 AND type = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`,
		int(category), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query oldest records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// DeleteRecords removes catalog rows in a single transaction. Callers
// delete the underlying files first; a missing file is not an error.
func (d *Database) DeleteRecords(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM files WHERE id IN (`+placeholders+`)`, args...); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to delete records: %w (rollback: %v)", err, rbErr)
		}
		return fmt.Errorf("failed to delete records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit record deletion: %w", err)
	}
	return nil
}

// ListProcessedBatch pages through processed records in id order, used by
// the stale-record reconciler.
func (d *Database) ListProcessedBatch(ctx context.Context, limit int, afterID int64) ([]FileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM files
		WHERE processed = 1 AND id > ?
		ORDER BY id ASC
		LIMIT ?`,
		afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list processed records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]FileRecord, error) {
	records := []FileRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// dayBounds returns the inclusive UTC [00:00:00, 23:59:59] window of the
// calendar day containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Second)
}
