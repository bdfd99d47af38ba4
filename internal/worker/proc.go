package worker

import (
	"context"
	"database/sql"

	"todo_api/internal/queue"
	"todo_api/internal/utils"
)

// process stores ev in the activity log.
func (w *Worker) process(ctx context.Context, ev queue.TaskEvent) error {
	return utils.WithTransaction(ctx, w.db, func(tx *sql.Tx) error {
		_, err := w.repo.Record(ctx, tx, ev)
		return err
	})
}
