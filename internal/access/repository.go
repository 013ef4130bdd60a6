package access

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines persistence operations for caregivers.
type Repository interface {
	// GetByID retrieves a caregiver by ID. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*Caregiver, error)

	// List retrieves all caregivers in registration order.
	List(ctx context.Context) ([]*Caregiver, error)

	// Create inserts a new caregiver.
	Create(ctx context.Context, c *Caregiver) error

	// Update rewrites the mutable fields of an existing caregiver.
	Update(ctx context.Context, c *Caregiver) error

	// Delete removes a caregiver by ID.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository backed by SQLite. Permissions are
// stored as a JSON array in a single column.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a caregiver repository using the given database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const caregiverColumns = `id, name, email, phone, role, permissions, status, last_access_at, created_at, updated_at`

// GetByID retrieves a caregiver by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Caregiver, error) {
	query := `SELECT ` + caregiverColumns + ` FROM caregivers WHERE id = ?`

	c, err := scanCaregiver(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query caregiver %s: %w", id, err)
	}
	return c, nil
}

// List retrieves all caregivers in registration order.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Caregiver, error) {
	query := `SELECT ` + caregiverColumns + ` FROM caregivers ORDER BY rowid`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query caregivers: %w", err)
	}
	defer rows.Close()

	var caregivers []*Caregiver
	for rows.Next() {
		c, err := scanCaregiver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan caregiver: %w", err)
		}
		caregivers = append(caregivers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate caregivers: %w", err)
	}
	return caregivers, nil
}

// Create inserts a new caregiver.
func (r *SQLiteRepository) Create(ctx context.Context, c *Caregiver) error {
	perms, err := json.Marshal(c.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}

	query := `
		INSERT INTO caregivers (id, name, email, phone, role, permissions, status, last_access_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.Role, string(perms), string(c.Status),
		nullableTime(c.LastAccessAt), c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert caregiver %s: %w", c.ID, err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing caregiver.
func (r *SQLiteRepository) Update(ctx context.Context, c *Caregiver) error {
	perms, err := json.Marshal(c.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}

	query := `
		UPDATE caregivers
		SET name = ?, email = ?, phone = ?, role = ?, permissions = ?, status = ?, last_access_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		c.Name, c.Email, c.Phone, c.Role, string(perms), string(c.Status),
		nullableTime(c.LastAccessAt), c.UpdatedAt.UnixMilli(), c.ID,
	)
	if err != nil {
		return fmt.Errorf("update caregiver %s: %w", c.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update caregiver %s: rows affected: %w", c.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a caregiver by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM caregivers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete caregiver %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete caregiver %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCaregiver(s scanner) (*Caregiver, error) {
	var (
		c            Caregiver
		perms        string
		status       string
		lastAccessAt sql.NullInt64
		createdAt    int64
		updatedAt    int64
	)

	err := s.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Role, &perms, &status,
		&lastAccessAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(perms), &c.Permissions); err != nil {
		return nil, fmt.Errorf("unmarshal permissions: %w", err)
	}
	c.Status = Status(status)
	if lastAccessAt.Valid {
		t := time.UnixMilli(lastAccessAt.Int64).UTC()
		c.LastAccessAt = &t
	}
	c.CreatedAt = time.UnixMilli(createdAt).UTC()
	c.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &c, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}
