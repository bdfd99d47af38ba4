package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todo_api/internal/auth"
	"todo_api/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserService is a mock implementation of UserServiceInterface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	args := m.Called(username, password)
	return args.String(0), time.Time{}, args.Error(1)
}

func (m *MockUserService) RefreshToken(tokenString string) (string, time.Time, error) {
	args := m.Called(tokenString)
	return args.String(0), time.Time{}, args.Error(1)
}

func (m *MockUserService) Identify(ctx context.Context, userID int) (auth.Identity, error) {
	args := m.Called(userID)
	return args.Get(0).(auth.Identity), args.Error(1)
}

func (m *MockUserService) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserService) CreateUsers(ctx context.Context, creds []Credential) ([]int, error) {
	args := m.Called(creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func setupTestRouter(service UserServiceInterface) (*gin.Engine, *UserController) {
	gin.SetMode(gin.TestMode)
	return gin.New(), NewUserController(service, nil)
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestLogin_ReturnsToken(t *testing.T) {
	mockService := new(MockUserService)
	router, controller := setupTestRouter(mockService)
	router.POST("/login", controller.Login)

	mockService.On("Login", "One", "one").Return("signed-token", nil)

	w := doJSON(router, http.MethodPost, "/login", `{"username":"One","password":"one"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "signed-token", decode(t, w)["access_token"])
	mockService.AssertExpectations(t)
}

func TestLogin_BadCredentials(t *testing.T) {
	mockService := new(MockUserService)
	router, controller := setupTestRouter(mockService)
	router.POST("/login", controller.Login)

	mockService.On("Login", "One", "wrong").Return("", ErrInvalidCredentials)
	mockService.On("Login", "", "").Return("", ErrInvalidCredentials)

	w := doJSON(router, http.MethodPost, "/login", `{"username":"One","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode(t, w)["error"])

	w = doJSON(router, http.MethodPost, "/login", `{"username":"","password":""}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_BadRequest(t *testing.T) {
	mockService := new(MockUserService)
	router, controller := setupTestRouter(mockService)
	router.POST("/login", controller.Login)

	for _, body := range []string{
		``,
		`not json`,
		`{"username":"One"}`,
		`{"password":"one"}`,
		`{"username":1,"password":"one"}`,
		`[]`,
	} {
		w := doJSON(router, http.MethodPost, "/login", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		assert.Equal(t, "Bad request", decode(t, w)["error"])
	}
	mockService.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestLogin_RecordsAttempts(t *testing.T) {
	mockService := new(MockUserService)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/login", NewUserController(mockService, metrics).Login)

	mockService.On("Login", "One", "one").Return("signed-token", nil)
	mockService.On("Login", "One", "wrong").Return("", ErrInvalidCredentials)

	doJSON(router, http.MethodPost, "/login", `{"username":"One","password":"one"}`)
	doJSON(router, http.MethodPost, "/login", `{"username":"One","password":"wrong"}`)
	doJSON(router, http.MethodPost, "/login", `{"username":"One","password":"wrong"}`)
	doJSON(router, http.MethodPost, "/login", `{}`)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues("bad_request")))
}

func TestLogin_InternalError(t *testing.T) {
	mockService := new(MockUserService)
	router, controller := setupTestRouter(mockService)
	router.POST("/login", controller.Login)

	mockService.On("Login", "One", "one").Return("", errors.New("db down"))

	w := doJSON(router, http.MethodPost, "/login", `{"username":"One","password":"one"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["error"])
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(m *MockUserService)
		wantStatus int
		wantKey    string
		wantValue  string
	}{
		{
			name:       "success",
			body:       `{"token":"old"}`,
			setup:      func(m *MockUserService) { m.On("RefreshToken", "old").Return("new", nil) },
			wantStatus: http.StatusOK,
			wantKey:    "update_token",
			wantValue:  "new",
		},
		{
			name:       "expired",
			body:       `{"token":"old"}`,
			setup:      func(m *MockUserService) { m.On("RefreshToken", "old").Return("", auth.ErrExpiredToken) },
			wantStatus: http.StatusUnauthorized,
			wantKey:    "error",
			wantValue:  "Token expired",
		},
		{
			name:       "invalid",
			body:       `{"token":"old"}`,
			setup:      func(m *MockUserService) { m.On("RefreshToken", "old").Return("", auth.ErrInvalidToken) },
			wantStatus: http.StatusUnauthorized,
			wantKey:    "error",
			wantValue:  "Invalid token",
		},
		{
			name:       "missing token",
			body:       `{}`,
			setup:      func(m *MockUserService) {},
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
			wantValue:  "Bad request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockUserService)
			tt.setup(mockService)
			router, controller := setupTestRouter(mockService)
			router.POST("/refresh", controller.Refresh)

			w := doJSON(router, http.MethodPost, "/refresh", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantValue, decode(t, w)[tt.wantKey])
			mockService.AssertExpectations(t)
		})
	}
}

func TestProtected(t *testing.T) {
	router, controller := setupTestRouter(new(MockUserService))
	router.GET("/protected", func(c *gin.Context) {
		auth.SetIdentity(c, auth.Identity{UserID: 2, Username: "Two"})
		controller.Protected(c)
	})

	w := doJSON(router, http.MethodGet, "/protected", "")

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, "You are in a special area!", response["result"])
	assert.Equal(t, float64(2), response["your_id"])
	assert.Equal(t, "Two", response["your_name"])
}

func TestProtected_NoIdentity(t *testing.T) {
	router, controller := setupTestRouter(new(MockUserService))
	router.GET("/protected", controller.Protected)

	w := doJSON(router, http.MethodGet, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPing(t *testing.T) {
	router, _ := setupTestRouter(new(MockUserService))
	router.GET("/ping", Ping)

	w := doJSON(router, http.MethodGet, "/ping", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello, friend", decode(t, w)["response"])
}
