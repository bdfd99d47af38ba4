package activity

import (
	"database/sql"
	"net/http"
	"time"

	"todo_api/internal/auth"
	"todo_api/internal/task"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ActivityController struct {
	repo ActivityRepositoryInterface
	db   *sql.DB
}

func NewActivityController(repo ActivityRepositoryInterface, db *sql.DB) *ActivityController {
	return &ActivityController{repo: repo, db: db}
}

type publicActivity struct {
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ListTaskActivity returns the recorded history of one of the caller's tasks.
// History outlives the task, so a deleted task still has entries.
func (ac *ActivityController) ListTaskActivity(c *gin.Context) {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	taskID, err := task.ParseTaskID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	entries, err := ac.repo.ListByTask(c.Request.Context(), ac.db, taskID, identity.UserID)
	if err != nil {
		logrus.WithError(err).WithField("task_id", taskID).Error("Failed to list task activity")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if len(entries) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	out := make([]publicActivity, 0, len(entries))
	for _, e := range entries {
		out = append(out, publicActivity{Action: string(e.Action), OccurredAt: e.OccurredAt})
	}
	c.JSON(http.StatusOK, gin.H{"activity": out})
}
