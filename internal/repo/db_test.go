package repo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tbourn/go-printshop-assistant/internal/config"
	"github.com/tbourn/go-printshop-assistant/internal/domain"
)

func TestOpenSQLite_ErrorOnMissingDir(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "does-not-exist", "app.db")
	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(config.DBConfig{Driver: "oracle"}, false); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestOpenSQLite_PragmasPoolAndMigrate(t *testing.T) {
	db := newRepoDB(t)
	sqlDB, _ := db.DB()

	var journal string
	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journal); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if strings.ToLower(journal) != "wal" {
		t.Fatalf("journal_mode = %q; want wal", journal)
	}
	var fk, busy int
	if err := db.Raw("PRAGMA foreign_keys;").Row().Scan(&fk); err != nil || fk != 1 {
		t.Fatalf("foreign_keys = %d (err %v); want 1", fk, err)
	}
	if err := db.Raw("PRAGMA busy_timeout;").Row().Scan(&busy); err != nil || busy != 5000 {
		t.Fatalf("busy_timeout = %d (err %v); want 5000", busy, err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 10 {
		t.Fatalf("MaxOpenConnections = %d; want 10", got)
	}

	m := db.Migrator()
	for _, tbl := range []any{
		&domain.ChatSession{}, &domain.ChatMessage{}, &domain.SupportTicket{},
		&domain.Category{}, &domain.SubCategory{}, &domain.Product{},
		&domain.Attribute{}, &domain.ProductAttribute{}, &domain.Idempotency{},
	} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T", tbl)
		}
	}
}

func TestWithPragmas(t *testing.T) {
	got := withPragmas("app.db")
	if !strings.HasPrefix(got, "app.db?_pragma=journal_mode(WAL)&") {
		t.Fatalf("unexpected dsn %q", got)
	}
	got = withPragmas("file:x?mode=memory")
	if !strings.HasPrefix(got, "file:x?mode=memory&_pragma=") || strings.Count(got, "?") != 1 {
		t.Fatalf("unexpected dsn %q", got)
	}
}

func TestIsDuplicateAndIsBusy(t *testing.T) {
	if IsDuplicate(nil) || IsBusy(nil) {
		t.Fatalf("nil is neither duplicate nor busy")
	}
	if !IsDuplicate(ErrDuplicate) {
		t.Fatalf("ErrDuplicate must be a duplicate")
	}
	if !IsDuplicate(errString("constraint failed: UNIQUE constraint failed: chat_sessions.session_key (2067)")) {
		t.Fatalf("sqlite unique message not detected")
	}
	if !IsDuplicate(errString(`ERROR: duplicate key value violates unique constraint "ux_chat_sessions_key" (SQLSTATE 23505)`)) {
		t.Fatalf("postgres unique message not detected")
	}
	if !IsBusy(errString("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatalf("busy message not detected")
	}
	if IsDuplicate(errString("no such table")) || IsBusy(errString("no such table")) {
		t.Fatalf("unrelated error misclassified")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
