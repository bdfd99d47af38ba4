package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// TaskEvent records one successful mutation of a task.
type TaskEvent struct {
	TaskID     int       `json:"task_id"`
	UserID     int       `json:"user_id"`
	Action     Action    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewTaskEvent(taskID, userID int, action Action) TaskEvent {
	return TaskEvent{
		TaskID:     taskID,
		UserID:     userID,
		Action:     action,
		OccurredAt: time.Now().UTC(),
	}
}

// DecodeTaskEvent parses a message body and rejects unknown actions.
func DecodeTaskEvent(body []byte) (TaskEvent, error) {
	var ev TaskEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return TaskEvent{}, fmt.Errorf("decode task event: %w", err)
	}
	if !ev.Action.Valid() {
		return TaskEvent{}, fmt.Errorf("unknown task event action %q", ev.Action)
	}
	if ev.TaskID <= 0 || ev.UserID <= 0 {
		return TaskEvent{}, fmt.Errorf("task event missing ids")
	}
	return ev, nil
}
