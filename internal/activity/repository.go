package activity

import (
	"context"
	"fmt"
	"time"

	"todo_api/internal/queue"
	"todo_api/internal/utils"

	"github.com/sirupsen/logrus"
)

// Activity is one recorded task event.
type Activity struct {
	ID         int64
	TaskID     int
	UserID     int
	Action     queue.Action
	OccurredAt time.Time
	RecordedAt time.Time
}

type ActivityRepository struct{}

type ActivityRepositoryInterface interface {
	Record(ctx context.Context, db utils.DBTX, ev queue.TaskEvent) (int64, error)
	ListByTask(ctx context.Context, db utils.DBTX, taskID, userID int) ([]*Activity, error)
}

func NewActivityRepository() ActivityRepositoryInterface {
	return &ActivityRepository{}
}

// Record appends ev to the activity log.
func (r *ActivityRepository) Record(ctx context.Context, db utils.DBTX, ev queue.TaskEvent) (int64, error) {
	query := `
		INSERT INTO task_activity (
			task_id, user_id, action, occurred_at, recorded_at
		)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`

	var id int64
	if err := db.QueryRowContext(ctx, query, ev.TaskID, ev.UserID, string(ev.Action), ev.OccurredAt).Scan(&id); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"task_id": ev.TaskID,
			"action":  ev.Action,
		}).Error("Failed to record task activity")
		return 0, fmt.Errorf("record activity: %w", err)
	}

	return id, nil
}

// ListByTask returns the history of one task, oldest first.
func (r *ActivityRepository) ListByTask(ctx context.Context, db utils.DBTX, taskID, userID int) ([]*Activity, error) {
	query := `
		SELECT id, task_id, user_id, action, occurred_at, recorded_at
		FROM task_activity
		WHERE task_id = $1 AND user_id = $2
		ORDER BY occurred_at, id
	`

	rows, err := db.QueryContext(ctx, query, taskID, userID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []*Activity
	for rows.Next() {
		var a Activity
		var action string
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &action, &a.OccurredAt, &a.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		a.Action = queue.Action(action)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return out, nil
}
