package audit

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const testSchema = `
CREATE TABLE audit_entries (
	id             TEXT PRIMARY KEY,
	caregiver_id   TEXT NOT NULL,
	caregiver_name TEXT NOT NULL,
	action         TEXT NOT NULL,
	kind           TEXT NOT NULL,
	device_id      TEXT,
	created_at     INTEGER NOT NULL
);
`

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return NewSQLiteRepository(db)
}

func appendEntry(t *testing.T, repo *SQLiteRepository, caregiverID string, kind Kind, at time.Time) *Entry {
	t.Helper()
	e := &Entry{
		CaregiverID:   caregiverID,
		CaregiverName: "Caregiver " + caregiverID,
		Action:        "Turned on lights",
		Kind:          kind,
		DeviceID:      "dev-1",
		CreatedAt:     at,
	}
	if err := repo.Append(context.Background(), e); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	return e
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	repo := newTestRepo(t)

	e := &Entry{CaregiverID: "cg-1", CaregiverName: "Sarah", Action: "Turned on lights", Kind: KindControl}
	if err := repo.Append(context.Background(), e); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if e.ID == "" {
		t.Error("Append() did not assign an ID")
	}
	if e.CreatedAt.IsZero() {
		t.Error("Append() did not assign a timestamp")
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		appendEntry(t, repo, fmt.Sprintf("cg-%d", i), KindControl, base.Add(time.Duration(i)*time.Second))
	}

	entries, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(entries))
	}
	if entries[0].CaregiverID != "cg-2" || entries[2].CaregiverID != "cg-0" {
		t.Errorf("List() order = [%s %s %s], want newest first",
			entries[0].CaregiverID, entries[1].CaregiverID, entries[2].CaregiverID)
	}
}

func TestListFilters(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now().UTC()

	appendEntry(t, repo, "cg-1", KindControl, now)
	appendEntry(t, repo, "cg-1", KindEmergency, now.Add(time.Second))
	appendEntry(t, repo, "cg-2", KindControl, now.Add(2*time.Second))

	byCaregiver, err := repo.List(context.Background(), Filter{CaregiverID: "cg-1"})
	if err != nil {
		t.Fatalf("List(caregiver) error = %v", err)
	}
	if len(byCaregiver) != 2 {
		t.Errorf("List(caregiver) returned %d entries, want 2", len(byCaregiver))
	}

	byKind, err := repo.List(context.Background(), Filter{Kind: KindEmergency})
	if err != nil {
		t.Fatalf("List(kind) error = %v", err)
	}
	if len(byKind) != 1 || byKind[0].CaregiverID != "cg-1" {
		t.Errorf("List(kind) = %+v, want single emergency entry for cg-1", byKind)
	}

	count, err := repo.Count(context.Background(), Filter{CaregiverID: "cg-1", Kind: KindControl})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestListPagination(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		appendEntry(t, repo, "cg-1", KindControl, base.Add(time.Duration(i)*time.Second))
	}

	page, err := repo.List(context.Background(), Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(page))
	}
}
