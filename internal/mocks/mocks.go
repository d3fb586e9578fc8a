package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"relay-service/internal/models"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, username, passwordHash, email string) (models.User, error) {
	args := m.Called(ctx, username, passwordHash, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) TouchLastLogin(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) SetActive(ctx context.Context, id string, active bool) (models.User, error) {
	args := m.Called(ctx, id, active)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) CreateRoom(ctx context.Context, name string) (models.Room, error) {
	args := m.Called(ctx, name)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoomByName(ctx context.Context, name string) (models.Room, error) {
	args := m.Called(ctx, name)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, id string) (models.Room, error) {
	args := m.Called(ctx, id)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) ListRooms(ctx context.Context) ([]models.Room, error) {
	args := m.Called(ctx)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) AddParticipant(ctx context.Context, roomID string, user models.Participant) error {
	args := m.Called(ctx, roomID, user)
	return args.Error(0)
}

func (m *RoomRepositoryMock) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) Participants(ctx context.Context, roomID string) ([]models.Participant, error) {
	args := m.Called(ctx, roomID)
	var list []models.Participant
	if val := args.Get(0); val != nil {
		list = val.([]models.Participant)
	}
	return list, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, roomID string, sender models.User, content, messageType string) (models.Message, error) {
	args := m.Called(ctx, roomID, sender, content, messageType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListSince(ctx context.Context, roomID, cursor string, limit int) ([]models.Message, string, error) {
	args := m.Called(ctx, roomID, cursor, limit)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.String(1), args.Error(2)
}

func (m *MessageRepositoryMock) List(ctx context.Context, roomID string) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) HeadCursor(ctx context.Context, roomID string) (string, error) {
	args := m.Called(ctx, roomID)
	return args.String(0), args.Error(1)
}

type FileRepositoryMock struct {
	mock.Mock
}

func (m *FileRepositoryMock) Store(ctx context.Context, filename string, data []byte, roomID, uploaderUsername, description string) (models.FileRecord, error) {
	args := m.Called(ctx, filename, data, roomID, uploaderUsername, description)
	var rec models.FileRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.FileRecord)
	}
	return rec, args.Error(1)
}

func (m *FileRepositoryMock) Retrieve(ctx context.Context, fileID string) (models.FileRecord, []byte, error) {
	args := m.Called(ctx, fileID)
	var rec models.FileRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.FileRecord)
	}
	var data []byte
	if val := args.Get(1); val != nil {
		data = val.([]byte)
	}
	return rec, data, args.Error(2)
}

func (m *FileRepositoryMock) Delete(ctx context.Context, fileID string) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}

func (m *FileRepositoryMock) List(ctx context.Context, roomID string) ([]models.FileRecord, error) {
	args := m.Called(ctx, roomID)
	var list []models.FileRecord
	if val := args.Get(0); val != nil {
		list = val.([]models.FileRecord)
	}
	return list, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	args := m.Called(ctx, n)
	var out models.Notification
	if val := args.Get(0); val != nil {
		out = val.(models.Notification)
	}
	return out, args.Error(1)
}

func (m *NotificationRepositoryMock) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, notificationID, userID string) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *NotificationRepositoryMock) Delete(ctx context.Context, notificationID, userID string) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}
