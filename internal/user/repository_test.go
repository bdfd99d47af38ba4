package user

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "username", "password", "roles", "created_at"}

func TestUserRepository_GetByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("Three").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(3, "Three", "hash", "admin, ops", created))

	u, err := NewUserRepository().GetByUsername(context.Background(), db, "Three")
	require.NoError(t, err)
	assert.Equal(t, 3, u.ID)
	assert.Equal(t, "Three", u.Username)
	assert.Equal(t, "hash", u.Password)
	assert.Equal(t, []string{"admin", "ops"}, u.Roles)
	assert.Equal(t, created, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUsername_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("Nobody").
		WillReturnRows(sqlmock.NewRows(userColumns))

	u, err := NewUserRepository().GetByUsername(context.Background(), db, "Nobody")
	assert.Nil(t, u)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "One", "hash", "", time.Now()))

	u, err := NewUserRepository().GetByID(context.Background(), db, 1)
	require.NoError(t, err)
	assert.Equal(t, "One", u.Username)
	assert.Empty(t, u.Roles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(1).
		WillReturnError(errors.New("connection reset"))

	u, err := NewUserRepository().GetByID(context.Background(), db, 1)
	assert.Nil(t, u)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("Three", "hash", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	id, err := NewUserRepository().Create(context.Background(), db, &User{
		Username: "Three", Password: "hash", Roles: []string{"admin"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("One", "hash", "").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = NewUserRepository().Create(context.Background(), db, &User{Username: "One", Password: "hash"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}
