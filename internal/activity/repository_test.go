package activity

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"todo_api/internal/queue"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	occurred := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO task_activity")).
		WithArgs(5, 1, "created", occurred).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := NewActivityRepository().Record(context.Background(), db, queue.TaskEvent{
		TaskID: 5, UserID: 1, Action: queue.ActionCreated, OccurredAt: occurred,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_Record_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO task_activity")).
		WillReturnError(errors.New("deadlock detected"))

	_, err = NewActivityRepository().Record(context.Background(), db, queue.NewTaskEvent(5, 1, queue.ActionDeleted))
	assert.ErrorContains(t, err, "record activity")
}

func TestActivityRepository_ListByTask(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE task_id = $1 AND user_id = $2")).
		WithArgs(5, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "user_id", "action", "occurred_at", "recorded_at"}).
			AddRow(int64(1), 5, 1, "created", t1, t1).
			AddRow(int64(2), 5, 1, "updated", t2, t2))

	got, err := NewActivityRepository().ListByTask(context.Background(), db, 5, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, queue.ActionCreated, got[0].Action)
	assert.Equal(t, queue.ActionUpdated, got[1].Action)
	assert.Equal(t, t2, got[1].OccurredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
