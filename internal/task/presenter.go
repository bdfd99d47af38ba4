package task

import (
	"net/http"
	"strconv"
	"strings"
)

// TasksPath is where single tasks are addressed; it must match the router.
const TasksPath = "/api/v.1.0/todo/tasks"

// PublicTask is the client view of a task: the id is replaced by its URI and
// the owner is omitted.
type PublicTask struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

func TaskURI(baseURL string, id int) string {
	return strings.TrimRight(baseURL, "/") + TasksPath + "/" + strconv.Itoa(id)
}

func ToPublic(baseURL string, t *Task) PublicTask {
	return PublicTask{
		URI:         TaskURI(baseURL, t.ID),
		Title:       t.Title,
		Description: t.Description,
		Done:        t.Done,
	}
}

// ToPublicList shapes tasks for output. An empty list becomes the literal
// "no tasks".
func ToPublicList(baseURL string, tasks []*Task) interface{} {
	if len(tasks) == 0 {
		return "no tasks"
	}
	out := make([]PublicTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToPublic(baseURL, t))
	}
	return out
}

// RequestBaseURL derives scheme://host from the incoming request.
func RequestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
