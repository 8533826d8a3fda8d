package tx

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "tx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE items (name TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestRunInTx_Commits(t *testing.T) {
	db := openDB(t)
	err := RunInTx(context.Background(), db, func(ctx context.Context) error {
		_, ok := From(ctx)
		assert.True(t, ok)
		_, err := Conn(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, db))
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	db := openDB(t)
	boom := errors.New("boom")
	err := RunInTx(context.Background(), db, func(ctx context.Context) error {
		if _, err := Conn(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, db))
}

func TestRunInTx_JoinsOuterTransaction(t *testing.T) {
	db := openDB(t)
	outer, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	ctx := WithTx(context.Background(), outer)

	err = RunInTx(ctx, db, func(inner context.Context) error {
		got, _ := From(inner)
		assert.Same(t, outer, got)
		_, err := Conn(inner, db).ExecContext(inner, `INSERT INTO items (name) VALUES ('a')`)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, outer.Rollback())
	assert.Equal(t, 0, count(t, db), "outer caller owns the rollback")
}

func TestConn_DefaultsToDB(t *testing.T) {
	db := openDB(t)
	assert.Equal(t, DBTX(db), Conn(context.Background(), db))
}
