package task

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskRowColumns = []string{"id", "user_id", "title", "description", "done"}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestTaskRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(1, "Read a book", "").
		WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(10, 1, "Read a book", "", false))

	got, err := NewTaskRepository().Create(context.Background(), db, 1, NewTask{Title: "Read a book"})
	require.NoError(t, err)
	assert.Equal(t, &Task{ID: 10, UserID: 1, Title: "Read a book"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_GetByIDAndOwner(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND user_id = $2")).
		WithArgs(10, 1).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(10, 1, "A", "B", true))

	got, err := NewTaskRepository().GetByIDAndOwner(context.Background(), db, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)
	assert.True(t, got.Done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_GetByIDAndOwner_OtherOwner(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND user_id = $2")).
		WithArgs(10, 2).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	got, err := NewTaskRepository().GetByIDAndOwner(context.Background(), db, 10, 2)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskRepository_GetByIDAndOwner_DBError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks")).
		WithArgs(10, 1).
		WillReturnError(errors.New("connection reset"))

	_, err := NewTaskRepository().GetByIDAndOwner(context.Background(), db, 10, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskRepository_ListByOwner(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(1, 1, "first", "", false).
			AddRow(2, 1, "second", "desc", true))

	got, err := NewTaskRepository().ListByOwner(context.Background(), db, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, "desc", got[1].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_ListByOwner_Empty(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	got, err := NewTaskRepository().ListByOwner(context.Background(), db, 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTaskRepository_Update_PartialFields(t *testing.T) {
	db, mock := newMockDB(t)

	done := true
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE($3, title)")).
		WithArgs(10, 1, sql.NullString{}, sql.NullString{}, sql.NullBool{Bool: true, Valid: true}).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(10, 1, "A", "B", true))

	got, err := NewTaskRepository().Update(context.Background(), db, 10, 1, TaskPatch{Done: &done})
	require.NoError(t, err)
	assert.Equal(t, &Task{ID: 10, UserID: 1, Title: "A", Description: "B", Done: true}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	title := "new"
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks")).
		WithArgs(10, 2, sql.NullString{String: "new", Valid: true}, sql.NullString{}, sql.NullBool{}).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	_, err := NewTaskRepository().Update(context.Background(), db, 10, 2, TaskPatch{Title: &title})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks")).
		WithArgs(10, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks")).
		WithArgs(10, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewTaskRepository()
	assert.NoError(t, repo.Delete(context.Background(), db, 10, 1))
	assert.ErrorIs(t, repo.Delete(context.Background(), db, 10, 1), ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
