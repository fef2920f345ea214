package sessionstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"peelojuice-staff/internal/database"
	"peelojuice-staff/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewPostgresStore(database.Wrap(sqlDB)), mock
}

func TestPostgresStoreGet(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT key, value FROM staff_session WHERE key IN \(\$1, \$2\)`).
		WithArgs(KeyAccessToken, KeyStaff).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).AddRow(KeyAccessToken, "t1"))

	got, err := store.Get(context.Background(), []string{KeyAccessToken, KeyStaff})
	require.NoError(t, err)
	require.Equal(t, map[string]string{KeyAccessToken: "t1"}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSetAllUsesOneTransaction(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO staff_session").
		WithArgs(KeyAccessToken, "t1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO staff_session").
		WithArgs(KeyBranch, "{}", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SetAll(context.Background(), map[string]string{KeyBranch: "{}", KeyAccessToken: "t1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSetAllRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO staff_session").
		WithArgs(KeyAccessToken, "t1", sqlmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.SetAll(context.Background(), map[string]string{KeyAccessToken: "t1"})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrStorage))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreRemoveAll(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM staff_session WHERE key IN \(\$1, \$2, \$3\)`).
		WithArgs(KeyAccessToken, KeyStaff, KeyBranch).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, store.RemoveAll(context.Background(), ExpiredKeys))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreQueryFailureIsStorageError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT key, value FROM staff_session").WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), SessionKeys)
	require.True(t, errors.Is(err, model.ErrStorage))
}
