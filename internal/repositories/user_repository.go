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

var (
	ErrUserNotFound  = apperrors.Wrap(apperrors.ErrNotFound, "user not found")
	ErrUsernameTaken = apperrors.Wrap(apperrors.ErrConflict, "username already taken")
)

// UserRepository defines interactions with registered accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, username, passwordHash, email string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	TouchLastLogin(ctx context.Context, id string) (models.User, error)
	SetActive(ctx context.Context, id string, active bool) (models.User, error)
}

// UserRepo is a Badger-backed repository.
type UserRepo struct {
	db *badger.DB
}

// NewUserRepo constructs UserRepo.
func NewUserRepo(database *badger.DB) *UserRepo {
	return &UserRepo{db: database}
}

// CreateUser stores a new user. Username uniqueness is enforced inside the
// transaction via the user:name index key.
func (r *UserRepo) CreateUser(ctx context.Context, username, passwordHash, email string) (models.User, error) {
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
	}

	err := runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(userNameKey(username)); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(userNameKey(username), []byte(user.ID)); err != nil {
			return err
		}
		return setJSON(txn, userIDKey(user.ID), user)
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// GetUserByUsername resolves the username index and loads the user.
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userNameKey(username))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, userIDKey(string(id)), &user)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUser loads a user by id.
func (r *UserRepo) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userIDKey(id), &user)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// TouchLastLogin records a successful login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id string) (models.User, error) {
	return r.mutate(ctx, id, func(user *models.User) {
		now := time.Now().UTC()
		user.LastLoginAt = &now
	})
}

// SetActive toggles the account, the admin-equivalent action.
func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) (models.User, error) {
	return r.mutate(ctx, id, func(user *models.User) {
		user.IsActive = active
	})
}

func (r *UserRepo) mutate(ctx context.Context, id string, change func(*models.User)) (models.User, error) {
	var user models.User
	err := runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		if err := getJSON(txn, userIDKey(id), &user); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		change(&user)
		return setJSON(txn, userIDKey(id), user)
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}
