package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines persistence operations for devices.
type Repository interface {
	// GetByID retrieves a device by its ID. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices in registration order.
	List(ctx context.Context) ([]*Device, error)

	// Create inserts a new device. Returns ErrDuplicateID on conflict.
	Create(ctx context.Context, d *Device) error

	// Update rewrites the mutable fields of an existing device.
	Update(ctx context.Context, d *Device) error

	// Delete removes a device by ID. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored devices.
	Count(ctx context.Context) (int, error)
}

// SQLiteRepository implements Repository backed by SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a device repository using the given database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, room, type, is_on, rated_power_watts, temperature_c, level, created_at, updated_at`

// GetByID retrieves a device by its ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	d, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query device %s: %w", id, err)
	}
	return d, nil
}

// List retrieves all devices ordered by insertion (rowid preserves the
// order devices were registered, independent of ID or name).
func (r *SQLiteRepository) List(ctx context.Context) ([]*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY rowid`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	query := `
		INSERT INTO devices (id, name, room, type, is_on, rated_power_watts, temperature_c, level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.Name, d.Room, string(d.Type), d.IsOn, d.RatedPowerWatts,
		nullableInt(d.TemperatureC), nullableInt(d.Level),
		d.CreatedAt.UnixMilli(), d.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert device %s: %w", d.ID, err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device) error {
	query := `
		UPDATE devices
		SET name = ?, room = ?, is_on = ?, rated_power_watts = ?, temperature_c = ?, level = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		d.Name, d.Room, d.IsOn, d.RatedPowerWatts,
		nullableInt(d.TemperatureC), nullableInt(d.Level),
		d.UpdatedAt.UnixMilli(), d.ID,
	)
	if err != nil {
		return fmt.Errorf("update device %s: %w", d.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update device %s: rows affected: %w", d.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete device %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored devices.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count devices: %w", err)
	}
	return count, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanDevice.
type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*Device, error) {
	var (
		d            Device
		typ          string
		temperatureC sql.NullInt64
		level        sql.NullInt64
		createdAt    int64
		updatedAt    int64
	)

	err := s.Scan(&d.ID, &d.Name, &d.Room, &typ, &d.IsOn, &d.RatedPowerWatts,
		&temperatureC, &level, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	d.Type = Type(typ)
	if temperatureC.Valid {
		t := int(temperatureC.Int64)
		d.TemperatureC = &t
	}
	if level.Valid {
		l := int(level.Int64)
		d.Level = &l
	}
	d.CreatedAt = time.UnixMilli(createdAt).UTC()
	d.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &d, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// go-sqlite3 reports SQLITE_CONSTRAINT_UNIQUE/PRIMARYKEY with this text.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
