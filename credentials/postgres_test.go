package credentials

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresFixture(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func accountColumns() []string {
	return []string{"id", "email", "name_parts", "password_hash", "joined_at"}
}

func TestPostgresFindByEmail_Success(t *testing.T) {
	store, mock := newPostgresFixture(t)
	rec := sampleRecord("a@x.com")

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE email =").
		WithArgs("a@x.com").
		WillReturnRows(pgxmock.NewRows(accountColumns()).
			AddRow(rec.ID, rec.Email, rec.Name, rec.PasswordHash, rec.JoinedAt))

	got, err := store.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByEmail_NotFound(t *testing.T) {
	store, mock := newPostgresFixture(t)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE email =").
		WithArgs("nobody@x.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.FindByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresInsert_Success(t *testing.T) {
	store, mock := newPostgresFixture(t)
	rec := sampleRecord("a@x.com")

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(rec.ID, rec.Email, rec.Name, rec.PasswordHash, rec.JoinedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsert_DuplicateEmail(t *testing.T) {
	store, mock := newPostgresFixture(t)
	rec := sampleRecord("a@x.com")

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(rec.ID, rec.Email, rec.Name, rec.PasswordHash, rec.JoinedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	err := store.Insert(context.Background(), rec)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestPostgresInsert_ConnectionError(t *testing.T) {
	store, mock := newPostgresFixture(t)
	rec := sampleRecord("a@x.com")

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(rec.ID, rec.Email, rec.Name, rec.PasswordHash, rec.JoinedAt).
		WillReturnError(errors.New("connection refused"))

	err := store.Insert(context.Background(), rec)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPostgresUpdatePassword(t *testing.T) {
	store, mock := newPostgresFixture(t)

	mock.ExpectExec("UPDATE accounts SET password_hash").
		WithArgs("new-hash", "a@x.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE accounts SET password_hash").
		WithArgs("new-hash", "nobody@x.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, store.UpdatePassword(context.Background(), "a@x.com", "new-hash"))
	assert.ErrorIs(t, store.UpdatePassword(context.Background(), "nobody@x.com", "new-hash"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList(t *testing.T) {
	store, mock := newPostgresFixture(t)
	first, second := sampleRecord("b@x.com"), sampleRecord("a@x.com")

	mock.ExpectQuery("SELECT .+ FROM accounts ORDER BY seq").
		WillReturnRows(pgxmock.NewRows(accountColumns()).
			AddRow(first.ID, first.Email, first.Name, first.PasswordHash, first.JoinedAt).
			AddRow(second.ID, second.Email, second.Name, second.PasswordHash, second.JoinedAt))

	got, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b@x.com", got[0].Email)
	assert.Equal(t, "a@x.com", got[1].Email)
}

func TestMigrate_UsesEmbeddedDir(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, "migrations", gotDir)

	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestMigrate_PropagatesError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.Error(t, Migrate(context.Background(), nil))
}

func TestRecordCodecJoinedAtUTC(t *testing.T) {
	rec := sampleRecord("a@x.com")
	data, err := encodeRecord(rec)
	require.NoError(t, err)
	got, err := decodeRecord(data)
	require.NoError(t, err)
	assert.True(t, got.JoinedAt.Equal(rec.JoinedAt))
	assert.Equal(t, time.UTC, got.JoinedAt.Location())
}
