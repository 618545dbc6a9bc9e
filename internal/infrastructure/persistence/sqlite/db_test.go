package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	raw, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { raw.Close() })

	if _, err := raw.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	return NewDB(raw, zap.NewNop())
}

func countItems(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	return n
}

func TestWithTransaction_Commit(t *testing.T) {
	db := openTestDB(t)

	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		tx := ExtractTx(ctx)
		if tx == nil {
			t.Fatal("no transaction in context")
		}
		_, err := tx.Exec(`INSERT INTO items (name) VALUES ('one')`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTransaction() error = %v", err)
	}

	if got := countItems(t, db); got != 1 {
		t.Errorf("rows after commit = %d, want 1", got)
	}
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		tx := ExtractTx(ctx)
		if _, err := tx.Exec(`INSERT INTO items (name) VALUES ('one')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTransaction() error = %v, want boom", err)
	}

	if got := countItems(t, db); got != 0 {
		t.Errorf("rows after rollback = %d, want 0", got)
	}
}

func TestWithTransaction_NestedReusesTransaction(t *testing.T) {
	db := openTestDB(t)

	err := db.WithTransaction(context.Background(), func(outer context.Context) error {
		outerTx := ExtractTx(outer)
		return db.WithTransaction(outer, func(inner context.Context) error {
			if ExtractTx(inner) != outerTx {
				t.Error("nested call did not reuse the outer transaction")
			}
			_, err := ExtractTx(inner).Exec(`INSERT INTO items (name) VALUES ('nested')`)
			return err
		})
	})
	if err != nil {
		t.Fatalf("WithTransaction() error = %v", err)
	}

	if got := countItems(t, db); got != 1 {
		t.Errorf("rows after nested commit = %d, want 1", got)
	}
}

func TestExtractTx_Absent(t *testing.T) {
	if tx := ExtractTx(context.Background()); tx != nil {
		t.Errorf("ExtractTx() on bare context = %v, want nil", tx)
	}
}
