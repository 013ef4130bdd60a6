package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteRepository implements Repository backed by SQLite. The audit table
// is append-only; no update or delete operations exist.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates an audit repository using the given database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append writes a new entry to the trail. A missing ID or timestamp is
// filled in.
func (r *SQLiteRepository) Append(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = NewEntryID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_entries (id, caregiver_id, caregiver_name, action, kind, device_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.CaregiverID, e.CaregiverName, e.Action, string(e.Kind),
		nullableString(e.DeviceID), e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]*Entry, error) {
	query := `
		SELECT id, caregiver_id, caregiver_name, action, kind, device_id, created_at
		FROM audit_entries
	`
	where, args := buildFilter(f)
	query += where + ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			e         Entry
			kind      string
			deviceID  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.CaregiverID, &e.CaregiverName, &e.Action, &kind, &deviceID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Kind = Kind(kind)
		e.DeviceID = deviceID.String
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries matching the filter.
func (r *SQLiteRepository) Count(ctx context.Context, f Filter) (int, error) {
	query := `SELECT COUNT(*) FROM audit_entries`
	where, args := buildFilter(f)

	var count int
	if err := r.db.QueryRowContext(ctx, query+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

func buildFilter(f Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.CaregiverID != "" {
		clauses = append(clauses, "caregiver_id = ?")
		args = append(args, f.CaregiverID)
	}
	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if len(clauses) == 0 {
		return "", nil
	}

	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
