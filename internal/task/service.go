package task

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"todo_api/internal/observability"
	"todo_api/internal/queue"
	"todo_api/internal/user"

	"github.com/sirupsen/logrus"
)

const publishTimeout = 2 * time.Second

// OwnerLookup resolves a username to its user record for the admin view.
type OwnerLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
}

type TaskServiceInterface interface {
	ListTasks(ctx context.Context, ownerID int) ([]*Task, error)
	GetTask(ctx context.Context, ownerID, taskID int) (*Task, error)
	CreateTask(ctx context.Context, ownerID int, in NewTask) (*Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID int, patch TaskPatch) (*Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID int) error
	ListTasksForUsername(ctx context.Context, username string) ([]*Task, error)
}

type TaskService struct {
	repo      TaskRepositoryInterface
	owners    OwnerLookup
	publisher queue.Publisher
	metrics   *observability.Metrics
	DB        *sql.DB
}

func NewTaskService(
	repo TaskRepositoryInterface,
	owners OwnerLookup,
	publisher queue.Publisher,
	metrics *observability.Metrics,
	db *sql.DB,
) TaskServiceInterface {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &TaskService{
		repo:      repo,
		owners:    owners,
		publisher: publisher,
		metrics:   metrics,
		DB:        db,
	}
}

func (s *TaskService) ListTasks(ctx context.Context, ownerID int) ([]*Task, error) {
	return s.repo.ListByOwner(ctx, s.DB, ownerID)
}

func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID int) (*Task, error) {
	return s.repo.GetByIDAndOwner(ctx, s.DB, taskID, ownerID)
}

// CreateTask stores a new task owned by ownerID. done always starts false.
func (s *TaskService) CreateTask(ctx context.Context, ownerID int, in NewTask) (*Task, error) {
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: owner id %d", ErrInvalidInput, ownerID)
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	t, err := s.repo.Create(ctx, s.DB, ownerID, in)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, t.ID, ownerID, queue.ActionCreated)
	return t, nil
}

// UpdateTask merges patch into the caller's task.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, taskID int, patch TaskPatch) (*Task, error) {
	if patch.Title != nil && *patch.Title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}

	if patch.Empty() {
		return s.repo.GetByIDAndOwner(ctx, s.DB, taskID, ownerID)
	}

	t, err := s.repo.Update(ctx, s.DB, taskID, ownerID, patch)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, t.ID, ownerID, queue.ActionUpdated)
	return t, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID int) error {
	if err := s.repo.Delete(ctx, s.DB, taskID, ownerID); err != nil {
		return err
	}

	s.emit(ctx, taskID, ownerID, queue.ActionDeleted)
	return nil
}

// ListTasksForUsername returns every task owned by username. It returns
// user.ErrUserNotFound for an unknown name.
func (s *TaskService) ListTasksForUsername(ctx context.Context, username string) ([]*Task, error) {
	owner, err := s.owners.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(ctx, s.DB, owner.ID)
}

// emit publishes a task event. Failures are logged and never reach the caller.
func (s *TaskService) emit(ctx context.Context, taskID, ownerID int, action queue.Action) {
	if s.metrics != nil {
		s.metrics.TaskMutationsTotal.WithLabelValues(string(action)).Inc()
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, queue.NewTaskEvent(taskID, ownerID, action)); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"task_id": taskID,
			"user_id": ownerID,
			"action":  action,
		}).Warn("Failed to publish task event")
	}
}
