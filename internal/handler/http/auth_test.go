package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/baijianruoli/bot-chat/internal/domain"
	"github.com/baijianruoli/bot-chat/internal/repository"
	"github.com/baijianruoli/bot-chat/internal/repository/mocks"
	"github.com/baijianruoli/bot-chat/internal/service"
)

func newAuthRouter(t *testing.T, userRepo *mocks.MockUserRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authService, err := service.NewAuthService(userRepo, "test-secret", 1)
	require.NoError(t, err)
	handler := NewAuthHandler(authService)

	router := gin.New()
	router.POST("/register", handler.Register)
	router.POST("/login", handler.Login)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestRegisterEndpoint_Success(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	userRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	router := newAuthRouter(t, userRepo)

	w, resp := doJSON(t, router, "/register", gin.H{
		"username": "alice",
		"password": "secret123",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	user := data["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	_, hasPassword := user["password"]
	assert.False(t, hasPassword, "password must never appear in responses")
}

func TestRegisterEndpoint_DuplicateUsername(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	userRepo.On("Save", mock.Anything, mock.Anything).Return(repository.ErrDuplicateEntry)
	router := newAuthRouter(t, userRepo)

	w, resp := doJSON(t, router, "/register", gin.H{
		"username": "alice",
		"password": "secret123",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeUserExists, resp.Code)
}

func TestRegisterEndpoint_ShortPassword(t *testing.T) {
	router := newAuthRouter(t, new(mocks.MockUserRepository))

	_, resp := doJSON(t, router, "/register", gin.H{
		"username": "alice",
		"password": "123",
	})
	assert.Equal(t, CodeParamError, resp.Code)
}

func TestLoginEndpoint_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	userRepo := new(mocks.MockUserRepository)
	userRepo.On("FindByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID:   "u_11111111",
		Username: "alice",
		Password: string(hash),
	}, nil)
	router := newAuthRouter(t, userRepo)

	_, resp := doJSON(t, router, "/login", gin.H{
		"username": "alice",
		"password": "secret123",
	})

	require.Equal(t, CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.NotEmpty(t, data["token"])
}

func TestLoginEndpoint_BadCredentials(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	userRepo.On("FindByUsername", mock.Anything, "ghost").Return(nil, repository.ErrUserNotFound)
	router := newAuthRouter(t, userRepo)

	w, resp := doJSON(t, router, "/login", gin.H{
		"username": "ghost",
		"password": "whatever",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodePasswordError, resp.Code)
}
