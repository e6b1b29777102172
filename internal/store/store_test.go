package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "host", "item_key", "expression", "source", "created_at"}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	id1, err := m.Save(ctx, Record{Host: "h", Key: "k", Expression: "(({h:k.regexp(a)})<>0)", Source: "api"})
	require.NoError(t, err)
	id2, err := m.Save(ctx, Record{Host: "h", Key: "k", Expression: "(({h:k.regexp(b)})<>0)", Source: "api"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	again, err := m.Save(ctx, Record{Host: "h", Key: "k", Expression: "(({h:k.regexp(a)})<>0)", Source: "rule:a"})
	require.NoError(t, err)
	assert.Equal(t, id1, again, "same expression keeps its id")

	r, err := m.Get(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "rule:a", r.Source)
	assert.False(t, r.CreatedAt.IsZero())

	_, err = m.Get(ctx, 99)
	assert.True(t, errors.Is(err, ErrNotFound))

	list, err := m.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, id2, list[0].ID, "newest first")

	list, err = m.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = m.Save(ctx, Record{Host: "h", Key: "k", Expression: string(rune('a' + i%5))})
			_, _ = m.List(ctx, 3)
		}(i)
	}
	wg.Wait()

	list, err := m.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func newMock(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewSQLStore(db)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, mock
}

func TestSQLStore_Save(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO trigger_expressions(host, item_key, expression, source, created_at)`)).
		WithArgs("h", "k", "(({h:k.regexp(a)})<>0)", "api", created).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	id, err := s.Save(context.Background(), Record{Host: "h", Key: "k", Expression: "(({h:k.regexp(a)})<>0)", Source: "api"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Get(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM trigger_expressions WHERE id=$1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(7, "h", "k", "expr", "api", created))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM trigger_expressions WHERE id=$1`)).
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	r, err := s.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, Record{ID: 7, Host: "h", Key: "k", Expression: "expr", Source: "api", CreatedAt: created}, r)

	_, err = s.Get(context.Background(), 8)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_List(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY id DESC LIMIT $1`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "h", "k", "b", "api", created).
			AddRow(1, "h", "k", "a", "rule:x", created))

	list, err := s.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].Expression)
	assert.Equal(t, "rule:x", list[1].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ListError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM trigger_expressions ORDER BY id DESC`)).
		WillReturnError(errors.New("connection reset"))

	_, err := s.List(context.Background(), 0)
	assert.EqualError(t, err, "connection reset")
}

func TestRunMigrations(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002_b.sql"), []byte("CREATE INDEX b ON t (x);"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_a.sql"), []byte("CREATE TABLE t (x INT);\n\nINSERT INTO t VALUES (1);\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("ignored"), 0o644))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE t (x INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO t VALUES (1)")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX b ON t (x)")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, RunMigrations(context.Background(), db, dir))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_Failure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001.sql"), []byte("BROKEN"), 0o644))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("BROKEN").WillReturnError(errors.New("syntax error"))

	err = RunMigrations(context.Background(), db, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001.sql")
}

func TestRepoMigrationsParse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS trigger_expressions")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS trigger_expressions_host_idx")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, RunMigrations(context.Background(), db, "../../migrations"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
