package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"relay-service/internal/apperrors"
	"relay-service/internal/models"
)

var (
	ErrRoomNotFound  = apperrors.Wrap(apperrors.ErrNotFound, "room not found")
	ErrRoomNameTaken = apperrors.Wrap(apperrors.ErrConflict, "room name already exists")
	ErrRoomNameEmpty = apperrors.Wrap(apperrors.ErrValidation, "room name must not be empty")
)

// RoomRepository defines interactions with chat rooms and their participants.
type RoomRepository interface {
	CreateRoom(ctx context.Context, name string) (models.Room, error)
	GetRoomByName(ctx context.Context, name string) (models.Room, error)
	GetRoom(ctx context.Context, id string) (models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	AddParticipant(ctx context.Context, roomID string, user models.Participant) error
	RemoveParticipant(ctx context.Context, roomID, userID string) error
	Participants(ctx context.Context, roomID string) ([]models.Participant, error)
}

// RoomRepo is a Badger-backed repository.
type RoomRepo struct {
	db *badger.DB
}

// NewRoomRepo constructs RoomRepo.
func NewRoomRepo(database *badger.DB) *RoomRepo {
	return &RoomRepo{db: database}
}

// CreateRoom stores a room, enforcing name uniqueness via the room:name index.
func (r *RoomRepo) CreateRoom(ctx context.Context, name string) (models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Room{}, ErrRoomNameEmpty
	}

	now := time.Now().UTC()
	room := models.Room{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(roomNameKey(name)); err == nil {
			return ErrRoomNameTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(roomNameKey(name), []byte(room.ID)); err != nil {
			return err
		}
		return setJSON(txn, roomIDKey(room.ID), room)
	})
	if err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// GetRoomByName resolves the name index and loads the room.
func (r *RoomRepo) GetRoomByName(ctx context.Context, name string) (models.Room, error) {
	var room models.Room
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomNameKey(name))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, roomIDKey(string(id)), &room)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// GetRoom loads a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, id string) (models.Room, error) {
	var room models.Room
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, roomIDKey(id), &room)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// ListRooms returns all rooms ordered by name ascending. The room:name index
// keys iterate in exactly that order.
func (r *RoomRepo) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms := make([]models.Room, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("room:name:")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return apperrors.Wrap(apperrors.ErrTransient, "room listing canceled")
			}
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var room models.Room
			if err := getJSON(txn, roomIDKey(string(id)), &room); err != nil {
				return err
			}
			rooms = append(rooms, room)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// AddParticipant marks a user as having interacted with the room.
func (r *RoomRepo) AddParticipant(ctx context.Context, roomID string, user models.Participant) error {
	return runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(roomIDKey(roomID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		return setJSON(txn, participantKey(roomID, user.UserID), user)
	})
}

// RemoveParticipant drops a user from the room's participant set, so later
// events in the room no longer notify them.
func (r *RoomRepo) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	return runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		return txn.Delete(participantKey(roomID, userID))
	})
}

// Participants returns every user who joined, messaged, or uploaded a file in
// the room.
func (r *RoomRepo) Participants(ctx context.Context, roomID string) ([]models.Participant, error) {
	participants := make([]models.Participant, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := participantPrefix(roomID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p models.Participant
			if err := it.Item().Value(func(val []byte) error {
				return decodeJSON(val, &p)
			}); err != nil {
				return err
			}
			participants = append(participants, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}
