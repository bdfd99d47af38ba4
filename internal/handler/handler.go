package handler

import (
	"database/sql"
	"net/http"
	"time"

	"todo_api/internal/activity"
	"todo_api/internal/auth"
	"todo_api/internal/config"
	"todo_api/internal/middleware"
	"todo_api/internal/observability"
	"todo_api/internal/queue"
	"todo_api/internal/task"
	"todo_api/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIPrefix is the mount point of every API route.
const APIPrefix = "/api/v.1.0"

// Deps are the shared resources the router is built from. Redis and
// Publisher are optional.
type Deps struct {
	DB        *sql.DB
	Redis     *redis.Client
	Publisher queue.Publisher
	Metrics   *observability.Metrics
	Gatherer  prometheus.Gatherer
	Config    *config.Config
}

// Repositories lets tests swap the SQL repositories.
type Repositories struct {
	Users    user.UserRepositoryInterface
	Tasks    task.TaskRepositoryInterface
	Activity activity.ActivityRepositoryInterface
}

func defaultRepositories() Repositories {
	return Repositories{
		Users:    user.NewUserRepository(),
		Tasks:    task.NewTaskRepository(),
		Activity: activity.NewActivityRepository(),
	}
}

// SetupHandler initializes all dependencies and routes
func SetupHandler(deps Deps) *gin.Engine {
	return setupHandler(deps, defaultRepositories())
}

func setupHandler(deps Deps, repos Repositories) *gin.Engine {
	cfg := deps.Config

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.AccessLifespan, cfg.JWT.RefreshGrace)

	// Initialize services
	userService := user.NewUserService(repos.Users, tokens, deps.DB)
	taskService := task.NewTaskService(repos.Tasks, userService, deps.Publisher, deps.Metrics, deps.DB)

	// Initialize controllers
	userController := user.NewUserController(userService, deps.Metrics)
	taskController := task.NewTaskController(taskService, cfg.PublicBaseURL)
	activityController := activity.NewActivityController(repos.Activity, deps.DB)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())
	if deps.Metrics != nil {
		r.Use(middleware.PrometheusMiddleware(deps.Metrics, "/metrics", "/healthz"))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/cors/pong", cors.New(corsConfig(cfg.CORS)), func(c *gin.Context) {
		c.JSON(http.StatusOK, "Pong!")
	})

	authn := middleware.AuthMiddleware(tokens, userService)
	userLimit := middleware.RateLimiterMiddleware(deps.Redis, middleware.RateLimiterFromConfig(cfg.RateLimit), middleware.UserKey, deps.Metrics)
	ipLimit := middleware.RateLimiterMiddleware(deps.Redis, middleware.StrictRateLimiter(), middleware.ClientIPKey, deps.Metrics)

	setupRoutes(r.Group(APIPrefix), routes{
		user:      userController,
		task:      taskController,
		activity:  activityController,
		authn:     authn,
		userLimit: userLimit,
		ipLimit:   ipLimit,
	})

	return r
}

type routes struct {
	user     *user.UserController
	task     *task.TaskController
	activity *activity.ActivityController

	authn     gin.HandlerFunc
	userLimit gin.HandlerFunc
	ipLimit   gin.HandlerFunc
}

// setupRoutes configures all application routes
func setupRoutes(api *gin.RouterGroup, rt routes) {
	// Public routes
	api.GET("/ping", user.Ping)
	api.POST("/login", rt.ipLimit, rt.user.Login)
	api.POST("/refresh", rt.ipLimit, rt.user.Refresh)

	api.GET("/protected", rt.authn, rt.user.Protected)

	todo := api.Group("/todo/tasks")
	todo.Use(rt.authn, rt.userLimit)
	{
		todo.GET("", rt.task.ListTasks)
		todo.POST("/new", rt.task.CreateTask)
		todo.GET("/:id", rt.task.GetTask)
		todo.PUT("/:id", rt.task.UpdateTask)
		todo.DELETE("/:id", rt.task.DeleteTask)
		todo.GET("/:id/activity", rt.activity.ListTaskActivity)
	}

	admin := api.Group("/admin")
	admin.Use(rt.authn, middleware.RequireRole(user.RoleAdmin), rt.userLimit)
	{
		admin.GET("/todo/tasks/:username", rt.task.AdminListTasks)
	}
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	c.MaxAge = 12 * time.Hour
	if len(cfg.AllowOrigins) == 0 || (len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowOrigins
	}
	return c
}
