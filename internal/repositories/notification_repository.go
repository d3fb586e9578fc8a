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
	ErrNotificationNotFound = apperrors.Wrap(apperrors.ErrNotFound, "notification not found")
	ErrNotOwner             = apperrors.Wrap(apperrors.ErrForbidden, "notification belongs to another user")
)

// NotificationRepository stores per-user notifications. Only the owning user
// may mark or delete them.
type NotificationRepository interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, notificationID, userID string) error
}

// NotificationRepo is a Badger-backed repository.
type NotificationRepo struct {
	db *badger.DB
}

// NewNotificationRepo constructs NotificationRepo.
func NewNotificationRepo(database *badger.DB) *NotificationRepo {
	return &NotificationRepo{db: database}
}

// Create persists a notification under its owner, plus an id index so
// mark/delete can locate it without the owner's key prefix.
func (r *NotificationRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Priority == "" {
		n.Priority = models.PriorityMedium
	}
	// A zero time would put a negative UnixNano into the primary key.
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	primary := notificationKey(n.UserID, n.CreatedAt, n.ID)
	err := runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(userIDKey(n.UserID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := setJSON(txn, primary, n); err != nil {
			return err
		}
		return txn.Set(notificationIndexKey(n.ID), primary)
	})
	if err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// List returns the user's notifications newest first.
func (r *NotificationRepo) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	notifications := make([]models.Notification, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := notificationPrefix(userID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return apperrors.Wrap(apperrors.ErrTransient, "notification listing canceled")
			}
			var n models.Notification
			if err := it.Item().Value(func(val []byte) error {
				return decodeJSON(val, &n)
			}); err != nil {
				return err
			}
			if unreadOnly && n.IsRead {
				continue
			}
			notifications = append(notifications, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flips is_read for the owner; anyone else gets ErrNotOwner.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID, userID string) error {
	return runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		primary, n, err := r.load(txn, notificationID, userID)
		if err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		return setJSON(txn, primary, n)
	})
}

// MarkAllRead flips every unread notification of the user, returning how many
// were updated.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	updated := 0
	err := runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		updated = 0
		prefix := notificationPrefix(userID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var n models.Notification
			if err := it.Item().Value(func(val []byte) error {
				return decodeJSON(val, &n)
			}); err != nil {
				return err
			}
			if n.IsRead {
				continue
			}
			n.IsRead = true
			if err := setJSON(txn, it.Item().KeyCopy(nil), n); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// Delete removes the owner's notification and its id index entry.
func (r *NotificationRepo) Delete(ctx context.Context, notificationID, userID string) error {
	return runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		primary, _, err := r.load(txn, notificationID, userID)
		if err != nil {
			return err
		}
		if err := txn.Delete(primary); err != nil {
			return err
		}
		return txn.Delete(notificationIndexKey(notificationID))
	})
}

// load resolves the id index and enforces ownership. The owner's user id is
// embedded in the primary key, so the check needs no extra read.
func (r *NotificationRepo) load(txn *badger.Txn, notificationID, userID string) ([]byte, models.Notification, error) {
	item, err := txn.Get(notificationIndexKey(notificationID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, models.Notification{}, ErrNotificationNotFound
		}
		return nil, models.Notification{}, err
	}
	primary, err := item.ValueCopy(nil)
	if err != nil {
		return nil, models.Notification{}, err
	}
	if !strings.HasPrefix(string(primary), string(notificationPrefix(userID))) {
		return nil, models.Notification{}, ErrNotOwner
	}

	var n models.Notification
	if err := getJSON(txn, primary, &n); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, models.Notification{}, ErrNotificationNotFound
		}
		return nil, models.Notification{}, err
	}
	return primary, n, nil
}
