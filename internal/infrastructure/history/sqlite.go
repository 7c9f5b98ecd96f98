package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
)

const tableName = "scan_history"

const schema = `
CREATE TABLE IF NOT EXISTS scan_history (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    kind                 TEXT NOT NULL,
    product_name         TEXT NOT NULL DEFAULT '',
    brand                TEXT NOT NULL DEFAULT '',
    sustainability_score REAL NOT NULL DEFAULT 0,
    image_url            TEXT NOT NULL DEFAULT '',
    payload              TEXT NOT NULL,
    scanned_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_history_user ON scan_history (user_id, scanned_at DESC);
`

var historyColumns = []string{
	"id",
	"user_id",
	"kind",
	"product_name",
	"brand",
	"sustainability_score",
	"image_url",
	"payload",
	"scanned_at",
}

// SQLiteStore persists scans in a local SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates when needed) the database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: create directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// a single connection keeps ":memory:" databases intact and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts a scan. A missing ID or timestamp is filled in.
func (s *SQLiteStore) Save(ctx context.Context, entry *domain.HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil history entry", domain.ErrInvalidInput)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ScannedAt.IsZero() {
		entry.ScannedAt = time.Now().UTC()
	}

	query, args, err := squirrel.
		Insert(tableName).
		Columns(historyColumns...).
		Values(
			entry.ID,
			entry.UserID,
			string(entry.Kind),
			entry.ProductName,
			entry.Brand,
			entry.SustainabilityScore,
			entry.ImageURL,
			entry.Payload,
			entry.ScannedAt.UnixNano(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHistoryUnavailable, err)
	}
	return nil
}

// ListByUser returns the newest scans of a user first
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	builder := squirrel.
		Select(historyColumns...).
		From(tableName).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("scanned_at DESC", "id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHistoryUnavailable, err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var (
			entry     domain.HistoryEntry
			kind      string
			scannedAt int64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&kind,
			&entry.ProductName,
			&entry.Brand,
			&entry.SustainabilityScore,
			&entry.ImageURL,
			&entry.Payload,
			&scannedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		entry.Kind = domain.ScanKind(kind)
		entry.ScannedAt = time.Unix(0, scannedAt).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHistoryUnavailable, err)
	}
	return entries, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
