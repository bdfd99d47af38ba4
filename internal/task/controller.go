package task

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"todo_api/internal/auth"
	"todo_api/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type TaskController struct {
	service TaskServiceInterface
	baseURL string
}

// NewTaskController creates the task handlers. baseURL prefixes task URIs;
// when empty it is derived from each request.
func NewTaskController(service TaskServiceInterface, baseURL string) *TaskController {
	return &TaskController{
		service: service,
		baseURL: baseURL,
	}
}

// ListTasks returns the caller's tasks.
func (tc *TaskController) ListTasks(c *gin.Context) {
	identity, ok := tc.identity(c)
	if !ok {
		return
	}

	tasks, err := tc.service.ListTasks(c.Request.Context(), identity.UserID)
	if err != nil {
		tc.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": ToPublicList(tc.base(c), tasks)})
}

// GetTask returns one of the caller's tasks.
func (tc *TaskController) GetTask(c *gin.Context) {
	identity, ok := tc.identity(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	t, err := tc.service.GetTask(c.Request.Context(), identity.UserID, id)
	if err != nil {
		tc.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": ToPublic(tc.base(c), t)})
}

// CreateTask adds a task owned by the caller.
func (tc *TaskController) CreateTask(c *gin.Context) {
	identity, ok := tc.identity(c)
	if !ok {
		return
	}

	body, ok := readBody(c)
	if !ok {
		return
	}
	in, err := ParseNewTask(body)
	if err != nil {
		tc.fail(c, err)
		return
	}

	t, err := tc.service.CreateTask(c.Request.Context(), identity.UserID, in)
	if err != nil {
		tc.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"new_task": ToPublic(tc.base(c), t)})
}

// UpdateTask changes the provided fields of one of the caller's tasks.
func (tc *TaskController) UpdateTask(c *gin.Context) {
	identity, ok := tc.identity(c)
	if !ok {
		return
	}

	id, ok := taskID(c)
	if !ok {
		return
	}

	body, ok := readBody(c)
	if !ok {
		return
	}
	patch, err := ParseTaskPatch(body)
	if err != nil {
		// a missing task is reported before a malformed body
		if _, gerr := tc.service.GetTask(c.Request.Context(), identity.UserID, id); gerr != nil {
			tc.fail(c, gerr)
			return
		}
		tc.fail(c, err)
		return
	}

	t, err := tc.service.UpdateTask(c.Request.Context(), identity.UserID, id, patch)
	if err != nil {
		tc.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task_update": ToPublic(tc.base(c), t)})
}

// DeleteTask removes one of the caller's tasks.
func (tc *TaskController) DeleteTask(c *gin.Context) {
	identity, ok := tc.identity(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	if err := tc.service.DeleteTask(c.Request.Context(), identity.UserID, id); err != nil {
		tc.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task_delete": "Success"})
}

// AdminListTasks returns the tasks of the user named in the path.
func (tc *TaskController) AdminListTasks(c *gin.Context) {
	tasks, err := tc.service.ListTasksForUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		tc.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": ToPublicList(tc.base(c), tasks)})
}

func (tc *TaskController) base(c *gin.Context) string {
	if tc.baseURL != "" {
		return tc.baseURL
	}
	return RequestBaseURL(c.Request)
}

func (tc *TaskController) identity(c *gin.Context) (auth.Identity, bool) {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return auth.Identity{}, false
	}
	return identity, true
}

func (tc *TaskController) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad request"})
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, user.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Task request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// taskID parses the :id path parameter. Anything but a positive integer that
// fits the INTEGER id column is treated as a missing task.
func taskID(c *gin.Context) (int, bool) {
	id, err := ParseTaskID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return id, true
}

// ParseTaskID accepts positive ids within the range of the tasks.id column.
func ParseTaskID(s string) (int, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: task id %q", ErrTaskNotFound, s)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: task id %d", ErrTaskNotFound, id)
	}
	return int(id), nil
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad request"})
		return nil, false
	}
	return body, true
}
