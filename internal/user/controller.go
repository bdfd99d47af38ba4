package user

import (
	"errors"
	"net/http"

	"todo_api/internal/auth"
	"todo_api/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserController struct {
	userService UserServiceInterface
	metrics     *observability.Metrics
}

// NewUserController creates the auth handlers. metrics may be nil.
func NewUserController(userService UserServiceInterface, metrics *observability.Metrics) *UserController {
	return &UserController{
		userService: userService,
		metrics:     metrics,
	}
}

// Login exchanges a username and password for an access token.
func (a *UserController) Login(c *gin.Context) {
	var req struct {
		Username *string `json:"username" binding:"required"`
		Password *string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		a.recordLogin("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad request"})
		return
	}

	token, _, err := a.userService.Login(c.Request.Context(), *req.Username, *req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			a.recordLogin("invalid")
			logrus.WithField("username", *req.Username).Info("Rejected login attempt")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		a.recordLogin("error")
		logrus.WithError(err).Error("Login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	a.recordLogin("success")
	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

// Refresh exchanges a token for a new one with a fresh expiry.
func (a *UserController) Refresh(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad request"})
		return
	}

	token, _, err := a.userService.RefreshToken(req.Token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
		case errors.Is(err, auth.ErrInvalidToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		default:
			logrus.WithError(err).Error("Token refresh failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"update_token": token})
}

// Protected echoes the authenticated caller.
func (a *UserController) Protected(c *gin.Context) {
	id, err := auth.IdentityFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":    "You are in a special area!",
		"your_id":   id.UserID,
		"your_name": id.Username,
	})
}

func (a *UserController) recordLogin(result string) {
	if a.metrics != nil {
		a.metrics.LoginAttemptsTotal.WithLabelValues(result).Inc()
	}
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"response": "Hello, friend"})
}
