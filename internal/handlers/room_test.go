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

	"relay-service/internal/apperrors"
	"relay-service/internal/mocks"
	"relay-service/internal/models"
	"relay-service/internal/repositories"
)

func setupRoomRouter(handler *RoomHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/rooms", handler.ListRooms)
	r.POST("/api/rooms", handler.CreateRoom)
	r.GET("/api/rooms/:name", handler.GetRoom)
	r.POST("/api/rooms/:name/join", handler.JoinRoom)
	r.POST("/api/rooms/:name/leave", handler.LeaveRoom)
	r.GET("/api/messages/:room_name", handler.GetMessages)
	r.POST("/api/send-message", handler.SendMessage)
	return r
}

func TestCreateRoomEmitsEvent(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	sink := new(mocks.EventSinkMock)
	handler := NewRoomHandler(rooms, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), sink, nil)
	router := setupRoomRouter(handler)

	rooms.On("CreateRoom", mock.Anything, "geral").
		Return(models.Room{ID: "r1", Name: "geral"}, nil).Once()

	body := bytes.NewBufferString(`{"name":"geral"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, sink.Events, 1)
	assert.Equal(t, models.EventRoomCreated, sink.Events[0].Type)
	assert.Equal(t, "r1", sink.Events[0].RoomID)
	rooms.AssertExpectations(t)
}

func TestCreateRoomDuplicate(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	handler := NewRoomHandler(rooms, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), new(mocks.EventSinkMock), nil)
	router := setupRoomRouter(handler)

	rooms.On("CreateRoom", mock.Anything, "geral").
		Return(models.Room{}, repositories.ErrRoomNameTaken).Once()

	body := bytes.NewBufferString(`{"name":"geral"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetMessagesUnknownRoomReturnsEmptyList(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	handler := NewRoomHandler(rooms, messages, new(mocks.UserRepositoryMock), new(mocks.EventSinkMock), nil)
	router := setupRoomRouter(handler)

	rooms.On("GetRoomByName", mock.Anything, "fantasma").
		Return(models.Room{}, repositories.ErrRoomNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/messages/fantasma", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	messages.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestSendMessageCreatesRoomOnFirstUse(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	sink := new(mocks.EventSinkMock)
	handler := NewRoomHandler(rooms, messages, users, sink, nil)
	router := setupRoomRouter(handler)

	sender := models.User{ID: "u1", Username: "joao", IsActive: true}
	users.On("GetUser", mock.Anything, "u1").Return(sender, nil).Once()
	rooms.On("GetRoomByName", mock.Anything, "nova").
		Return(models.Room{}, repositories.ErrRoomNotFound).Once()
	rooms.On("CreateRoom", mock.Anything, "nova").
		Return(models.Room{ID: "r1", Name: "nova"}, nil).Once()
	messages.On("Append", mock.Anything, "r1", sender, "oi", "").
		Return(models.Message{ID: "m1", RoomID: "r1", Content: "oi"}, nil).Once()

	body := bytes.NewBufferString(`{"room_name":"nova","sender_id":"u1","content":"oi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/send-message", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, sink.Events, 1)
	assert.Equal(t, models.EventMessageAppended, sink.Events[0].Type)
	rooms.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestSendMessageUnknownSender(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(rooms, new(mocks.MessageRepositoryMock), users, new(mocks.EventSinkMock), nil)
	router := setupRoomRouter(handler)

	users.On("GetUser", mock.Anything, "fantasma").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"room_name":"geral","sender_id":"fantasma","content":"oi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/send-message", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Usuário não encontrado", resp["error"])
}

func TestSendMessageTransientUserLookupFailure(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(rooms, new(mocks.MessageRepositoryMock), users, new(mocks.EventSinkMock), nil)
	router := setupRoomRouter(handler)

	users.On("GetUser", mock.Anything, "u1").
		Return(models.User{}, apperrors.Wrap(apperrors.ErrTransient, "storage contention, retries exhausted")).Once()

	body := bytes.NewBufferString(`{"room_name":"geral","sender_id":"u1","content":"oi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/send-message", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSendMessageInactiveSender(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(rooms, new(mocks.MessageRepositoryMock), users, new(mocks.EventSinkMock), nil)
	router := setupRoomRouter(handler)

	users.On("GetUser", mock.Anything, "u1").
		Return(models.User{ID: "u1", Username: "joao", IsActive: false}, nil).Once()

	body := bytes.NewBufferString(`{"room_name":"geral","sender_id":"u1","content":"oi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/send-message", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinAndLeaveRoom(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	sink := new(mocks.EventSinkMock)
	handler := NewRoomHandler(rooms, new(mocks.MessageRepositoryMock), users, sink, nil)
	router := setupRoomRouter(handler)

	user := models.User{ID: "u1", Username: "joao", IsActive: true}
	users.On("GetUser", mock.Anything, "u1").Return(user, nil).Twice()
	rooms.On("GetRoomByName", mock.Anything, "geral").
		Return(models.Room{ID: "r1", Name: "geral"}, nil).Twice()
	rooms.On("AddParticipant", mock.Anything, "r1", models.Participant{UserID: "u1", Username: "joao"}).
		Return(nil).Once()
	rooms.On("RemoveParticipant", mock.Anything, "r1", "u1").Return(nil).Once()

	join := httptest.NewRequest(http.MethodPost, "/api/rooms/geral/join", bytes.NewBufferString(`{"user_id":"u1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, join)
	require.Equal(t, http.StatusOK, rec.Code)

	leave := httptest.NewRequest(http.MethodPost, "/api/rooms/geral/leave", bytes.NewBufferString(`{"user_id":"u1"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, leave)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, sink.Events, 2)
	assert.Equal(t, models.EventUserJoined, sink.Events[0].Type)
	assert.Equal(t, models.EventUserLeft, sink.Events[1].Type)
	rooms.AssertExpectations(t)
}
