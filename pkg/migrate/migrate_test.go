package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/cartflow/pkg/db"
	"github.com/angelmondragon/cartflow/pkg/migrate"
	"gorm.io/driver/sqlite"
)

func TestOrderSubmissionsMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_order_submissions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no order submissions migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS order_submissions",
		"payload_hash TEXT NOT NULL",
		"CREATE INDEX IF NOT EXISTS idx_order_submissions_session_created",
		"DROP TABLE IF EXISTS order_submissions",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir should validate: %v", err)
	}

	dir := t.TempDir()
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatalf("expected empty dir to fail validation")
	}

	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatalf("expected bad filename to fail validation")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Coupon Column")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasSuffix(path, "_add_coupon_column.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestRunUpOnSQLite(t *testing.T) {
	conn, err := db.Open(sqlite.Open("file::memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	if err := migrate.Run(context.Background(), sqlDB, db.DriverSQLite, "migrations", "up"); err != nil {
		t.Fatalf("goose up failed: %v", err)
	}
	if !conn.Migrator().HasTable("order_submissions") {
		t.Fatalf("expected order_submissions table after migration")
	}
	if !conn.Migrator().HasIndex("order_submissions", "idx_order_submissions_status_created") {
		t.Fatalf("expected retention index after migration")
	}
}

func TestDialect(t *testing.T) {
	if got := migrate.Dialect("sqlite"); got != "sqlite3" {
		t.Fatalf("unexpected sqlite dialect %q", got)
	}
	if got := migrate.Dialect("postgres"); got != "postgres" {
		t.Fatalf("unexpected postgres dialect %q", got)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	conn, err := db.Open(sqlite.Open("file::memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	defer sqlDB.Close()

	err = migrate.Run(context.Background(), sqlDB, db.DriverSQLite, "migrations", "reset")
	if err == nil || !strings.Contains(err.Error(), "unsupported goose command") {
		t.Fatalf("expected unsupported command error, got %v", err)
	}
}
