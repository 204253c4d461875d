package migrate

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"0001_kv.up.sql":   {Data: []byte("create table kv_blobs (key text primary key, value jsonb);")},
		"0001_kv.down.sql": {Data: []byte("drop table kv_blobs;")},
		"0002_idx.up.sql":  {Data: []byte("create index kv_updated on kv_blobs(updated_at); comment on table kv_blobs is 'a;b';")},
		"README.md":        {Data: []byte("ignored")},
	}
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mgr := NewManager(db, testFS(), WithClock(func() time.Time { return fixed }))

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_kv.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("create index kv_updated").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("comment on table kv_blobs is 'a;b'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_migrations").WithArgs("0002_idx.up.sql", fixed).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := mgr.Up(context.Background()); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownRollsBackLatest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mgr := NewManager(db, testFS())

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_kv.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("drop table kv_blobs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("delete from schema_migrations where name").WithArgs("0001_kv.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := mgr.Down(context.Background()); err != nil {
		t.Fatalf("Down: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownWithoutHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mgr := NewManager(db, testFS())

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))

	if err := mgr.Down(context.Background()); err == nil {
		t.Fatal("expected error when nothing is applied")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := collect(Embedded(), ".up.sql")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(names) == 0 || names[0] != "0001_kv_blobs.up.sql" {
		t.Fatalf("unexpected embedded migrations: %v", names)
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("a; b 'x;y'; c")
	if len(got) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(got), got)
	}
}
