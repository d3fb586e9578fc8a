package handlers

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

	"relay-service/internal/auth"
	"relay-service/internal/mocks"
	"relay-service/internal/models"
	"relay-service/internal/repositories"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/users/register", handler.Register)
	r.POST("/api/users/login", handler.Login)
	r.GET("/api/users/:id", handler.GetUser)
	r.POST("/api/users/:id/active", handler.SetActive)
	return r
}

func TestRegisterSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(NewAuthHandler(users, nil))

	users.On("CreateUser", mock.Anything, "joao", mock.Anything, "joao@example.com").
		Return(models.User{ID: "u1", Username: "joao", IsActive: true}, nil).Once()

	body := bytes.NewBufferString(`{"username":"joao","password":"senha123","password_confirm":"senha123","email":"joao@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Usuário registrado com sucesso", resp["message"])
	users.AssertExpectations(t)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(NewAuthHandler(users, nil))

	body := bytes.NewBufferString(`{"username":"joao","password":"senha123","password_confirm":"outra"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterUsernameTaken(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(NewAuthHandler(users, nil))

	users.On("CreateUser", mock.Anything, "joao", mock.Anything, "").
		Return(models.User{}, repositories.ErrUsernameTaken).Once()

	body := bytes.NewBufferString(`{"username":"joao","password":"senha123","password_confirm":"senha123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	users.AssertExpectations(t)
}

func TestLoginSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(NewAuthHandler(users, nil))

	hash, err := auth.HashPassword("senha123")
	require.NoError(t, err)
	stored := models.User{ID: "u1", Username: "joao", PasswordHash: hash, IsActive: true}

	users.On("GetUserByUsername", mock.Anything, "joao").Return(stored, nil).Once()
	users.On("TouchLastLogin", mock.Anything, "u1").Return(stored, nil).Once()

	body := bytes.NewBufferString(`{"username":"joao","password":"senha123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	users.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(NewAuthHandler(users, nil))

	hash, err := auth.HashPassword("senha123")
	require.NoError(t, err)
	users.On("GetUserByUsername", mock.Anything, "joao").
		Return(models.User{ID: "u1", Username: "joao", PasswordHash: hash, IsActive: true}, nil).Once()

	body := bytes.NewBufferString(`{"username":"joao","password":"errada"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	users.AssertNotCalled(t, "TouchLastLogin", mock.Anything, mock.Anything)
}

func TestLoginUnknownUserSameAsWrongPassword(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(NewAuthHandler(users, nil))

	users.On("GetUserByUsername", mock.Anything, "fantasma").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"username":"fantasma","password":"qualquer"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginInactiveUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(NewAuthHandler(users, nil))

	hash, err := auth.HashPassword("senha123")
	require.NoError(t, err)
	users.On("GetUserByUsername", mock.Anything, "joao").
		Return(models.User{ID: "u1", Username: "joao", PasswordHash: hash, IsActive: false}, nil).Once()

	body := bytes.NewBufferString(`{"username":"joao","password":"senha123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetActive(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(NewAuthHandler(users, nil))

	users.On("SetActive", mock.Anything, "u1", false).
		Return(models.User{ID: "u1", Username: "joao", IsActive: false}, nil).Once()

	body := bytes.NewBufferString(`{"active":false}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users/u1/active", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	users.AssertExpectations(t)
}
