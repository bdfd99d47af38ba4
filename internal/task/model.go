package task

import "errors"

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Task struct {
	ID          int
	UserID      int
	Title       string
	Description string
	Done        bool
}

// NewTask is the client-supplied part of a task on creation.
type NewTask struct {
	Title       string
	Description string
}

// TaskPatch holds the fields to change on update. Nil fields are kept.
type TaskPatch struct {
	Title       *string
	Description *string
	Done        *bool
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Done == nil
}
