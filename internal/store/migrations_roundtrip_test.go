package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// openTestDB returns a clean database or skips when no test server is configured.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TECHCARE_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TECHCARE_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	return db
}

func TestMigrationsRoundTripPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	migrationsDir := filepath.Join("..", "..", "db", "migrations")

	applied, err := ApplyMigrations(ctx, db, migrationsDir)
	if err != nil {
		t.Fatalf("apply up migrations (pass 1): %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected migrations to be applied on an empty schema")
	}

	again, err := ApplyMigrations(ctx, db, migrationsDir)
	if err != nil {
		t.Fatalf("apply up migrations (idempotent pass): %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no pending migrations, got %v", again)
	}

	downs, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		t.Fatalf("glob down migrations: %v", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(downs)))
	for _, path := range downs {
		contents, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if _, err := db.ExecContext(ctx, string(contents)); err != nil {
			t.Fatalf("apply %s: %v", filepath.Base(path), err)
		}
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		t.Fatalf("clear schema_migrations: %v", err)
	}

	if _, err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply up migrations (pass 2): %v", err)
	}
}

func TestRecordDateRoundTripPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	s := NewPostgresStore(db)
	record := MaintenanceRecord{
		ID:          "rec_roundtrip",
		Equipment:   "Printer",
		AssetNumber: "A-001",
		User:        "Jane",
		Technician:  "Bob",
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:      StatusCompleted,
		Tasks:       []Task{{Description: "Cleaned rollers"}},
		CreatedBy:   "usr_editor",
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.InsertRecord(ctx, record); err != nil {
		t.Fatalf("insert record: %v", err)
	}

	notes := "Replaced toner"
	if err := s.UpdateRecord(ctx, record.ID, RecordPatch{Notes: &notes}); err != nil {
		t.Fatalf("update record: %v", err)
	}

	got, err := s.GetRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if got.Date.Format(time.DateOnly) != "2024-03-15" {
		t.Fatalf("expected date 2024-03-15, got %s", got.Date.Format(time.DateOnly))
	}
	if got.Notes != notes || got.Equipment != "Printer" || len(got.Tasks) != 1 {
		t.Fatalf("partial update clobbered fields: %+v", got)
	}
}
