package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo_api/internal/utils"

	"github.com/sirupsen/logrus"
)

type TaskRepository struct{}

// TaskRepositoryInterface is owner scoped: every method filters by the owner
// id, so a task owned by someone else behaves exactly like a missing one.
type TaskRepositoryInterface interface {
	Create(ctx context.Context, db utils.DBTX, ownerID int, in NewTask) (*Task, error)
	GetByIDAndOwner(ctx context.Context, db utils.DBTX, id, ownerID int) (*Task, error)
	ListByOwner(ctx context.Context, db utils.DBTX, ownerID int) ([]*Task, error)
	Update(ctx context.Context, db utils.DBTX, id, ownerID int, patch TaskPatch) (*Task, error)
	Delete(ctx context.Context, db utils.DBTX, id, ownerID int) error
}

func NewTaskRepository() TaskRepositoryInterface {
	return &TaskRepository{}
}

const taskColumns = `id, user_id, title, description, done`

func (r *TaskRepository) Create(
	ctx context.Context,
	db utils.DBTX,
	ownerID int,
	in NewTask,
) (*Task, error) {
	query := `
		INSERT INTO tasks (
			user_id, title, description, done
		)
		VALUES ($1, $2, $3, FALSE)
		RETURNING ` + taskColumns

	t, err := scanTask(db.QueryRowContext(ctx, query, ownerID, in.Title, in.Description))
	if err != nil {
		logrus.WithError(err).WithField("user_id", ownerID).Error("Failed to create task")
		return nil, fmt.Errorf("create task: %w", err)
	}

	return t, nil
}

func (r *TaskRepository) GetByIDAndOwner(
	ctx context.Context,
	db utils.DBTX,
	id, ownerID int,
) (*Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	t, err := scanTask(db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"task_id": id,
			"user_id": ownerID,
		}).Error("Failed to get task")
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}

	return t, nil
}

func (r *TaskRepository) ListByOwner(
	ctx context.Context,
	db utils.DBTX,
	ownerID int,
) ([]*Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := db.QueryContext(ctx, query, ownerID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", ownerID).Error("Failed to list tasks")
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Done); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		tasks = append(tasks, &t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

// Update applies patch in a single statement. Nil patch fields keep the
// stored value.
func (r *TaskRepository) Update(
	ctx context.Context,
	db utils.DBTX,
	id, ownerID int,
	patch TaskPatch,
) (*Task, error) {
	query := `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    done = COALESCE($5, done)
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns

	t, err := scanTask(db.QueryRowContext(ctx, query, id, ownerID,
		nullString(patch.Title),
		nullString(patch.Description),
		nullBool(patch.Done),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		logrus.WithError(err).WithField("task_id", id).Error("Failed to update task")
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}

	return t, nil
}

func (r *TaskRepository) Delete(
	ctx context.Context,
	db utils.DBTX,
	id, ownerID int,
) error {
	query := `
		DELETE FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	result, err := db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		logrus.WithError(err).WithField("task_id", id).Error("Failed to delete task")
		return fmt.Errorf("delete task %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrTaskNotFound
	}

	return nil
}

func scanTask(row *sql.Row) (*Task, error) {
	var t Task
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Done); err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
