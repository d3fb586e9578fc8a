package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"relay-service/internal/apperrors"
	"relay-service/internal/models"
)

var ErrEmptyContent = apperrors.Wrap(apperrors.ErrValidation, "message content must not be empty")

// MessageRepository is the append-only, per-room-ordered message log.
type MessageRepository interface {
	Append(ctx context.Context, roomID string, sender models.User, content, messageType string) (models.Message, error)
	ListSince(ctx context.Context, roomID, cursor string, limit int) ([]models.Message, string, error)
	List(ctx context.Context, roomID string) ([]models.Message, error)
	HeadCursor(ctx context.Context, roomID string) (string, error)
}

// MessageRepo is a Badger-backed repository.
type MessageRepo struct {
	db *badger.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(database *badger.DB) *MessageRepo {
	return &MessageRepo{db: database}
}

// Append stores a message and bumps the room's message counter and sequence
// in the same transaction, so the counter can never diverge from the actual
// message count. Concurrent appends to the same room conflict on the room
// record and serialize through the commit retry in runUpdate.
func (r *MessageRepo) Append(ctx context.Context, roomID string, sender models.User, content, messageType string) (models.Message, error) {
	if messageType == "" {
		messageType = models.MessageTypeText
	}
	if !models.ValidMessageType(messageType) {
		return models.Message{}, apperrors.Wrapf(apperrors.ErrValidation, "unknown message type %q", messageType)
	}
	if messageType == models.MessageTypeText && content == "" {
		return models.Message{}, ErrEmptyContent
	}

	var msg models.Message
	err := runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		var room models.Room
		if err := getJSON(txn, roomIDKey(roomID), &room); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		room.LastSeq++
		room.MessageCount++
		room.UpdatedAt = time.Now().UTC()

		msg = models.Message{
			ID:             uuid.NewString(),
			RoomID:         room.ID,
			RoomName:       room.Name,
			SenderID:       sender.ID,
			SenderUsername: sender.Username,
			Content:        content,
			Timestamp:      room.UpdatedAt,
			Type:           messageType,
			Seq:            room.LastSeq,
		}

		if err := setJSON(txn, messageKey(room.ID, msg.Seq), msg); err != nil {
			return err
		}
		if err := setJSON(txn, roomIDKey(room.ID), room); err != nil {
			return err
		}
		// The sender becomes a room participant as part of the same commit.
		return setJSON(txn, participantKey(room.ID, sender.ID), models.Participant{
			UserID:   sender.ID,
			Username: sender.Username,
		})
	})
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListSince returns messages with ordering key strictly greater than cursor,
// ascending, plus the cursor of the last returned message. An empty cursor
// reads from the beginning; limit <= 0 means unbounded. The read has no side
// effects, so re-polling with the same cursor is idempotent.
func (r *MessageRepo) ListSince(ctx context.Context, roomID, cursor string, limit int) ([]models.Message, string, error) {
	messages := make([]models.Message, 0)
	next := cursor

	err := r.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomIDKey(roomID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		prefix := messagePrefix(roomID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if cursor != "" {
			seek = append(append([]byte{}, prefix...), cursor...)
		}
		it.Seek(seek)
		// The cursor names the last message already delivered; skip it.
		if cursor != "" && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seek) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return apperrors.Wrap(apperrors.ErrTransient, "message listing canceled")
			}
			if limit > 0 && len(messages) == limit {
				break
			}
			var msg models.Message
			if err := it.Item().Value(func(val []byte) error {
				return decodeJSON(val, &msg)
			}); err != nil {
				return err
			}
			msg.Seq = seqFromKey(it.Item().Key(), prefix)
			messages = append(messages, msg)
			next = FormatCursor(msg.Seq)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return messages, next, nil
}

// List returns the full room history in order.
func (r *MessageRepo) List(ctx context.Context, roomID string) ([]models.Message, error) {
	messages, _, err := r.ListSince(ctx, roomID, "", 0)
	return messages, err
}

// HeadCursor returns the cursor pointing at the room's newest message, used
// to seed live-only polling sessions.
func (r *MessageRepo) HeadCursor(ctx context.Context, roomID string) (string, error) {
	var room models.Room
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, roomIDKey(roomID), &room)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrRoomNotFound
	}
	if err != nil {
		return "", err
	}
	if room.LastSeq == 0 {
		return "", nil
	}
	return FormatCursor(room.LastSeq), nil
}

func seqFromKey(key, prefix []byte) int64 {
	var seq int64
	for _, c := range key[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		seq = seq*10 + int64(c-'0')
	}
	return seq
}
