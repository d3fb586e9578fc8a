package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-service/internal/apperrors"
	"relay-service/internal/models"
)

func seedNotificationUser(t *testing.T, users *UserRepo, username string) models.User {
	t.Helper()
	user, err := users.CreateUser(context.Background(), username, "hash", "")
	require.NoError(t, err)
	return user
}

func TestCreateAndListNewestFirst(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepo(database)
	repo := NewNotificationRepo(database)
	ctx := context.Background()

	owner := seedNotificationUser(t, users, "joao")
	base := time.Now().UTC()
	for i, title := range []string{"primeira", "segunda", "terceira"} {
		_, err := repo.Create(ctx, models.Notification{
			UserID:    owner.ID,
			Type:      models.NotificationTypeMessage,
			Title:     title,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	list, err := repo.List(ctx, owner.ID, false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "terceira", list[0].Title)
	assert.Equal(t, "primeira", list[2].Title)
	assert.Equal(t, models.PriorityMedium, list[0].Priority)
}

func TestCreateDefaultsCreatedAt(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepo(database)
	repo := NewNotificationRepo(database)
	ctx := context.Background()

	owner := seedNotificationUser(t, users, "joao")
	created, err := repo.Create(ctx, models.Notification{
		UserID: owner.ID,
		Type:   models.NotificationTypeMessage,
		Title:  "sem data",
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), created.CreatedAt, time.Minute)

	// The stored key is well formed, so the listing finds it.
	list, err := repo.List(ctx, owner.ID, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sem data", list[0].Title)
}

func TestCreateRequiresExistingUser(t *testing.T) {
	repo := NewNotificationRepo(openTestDB(t))

	_, err := repo.Create(context.Background(), models.Notification{
		UserID:    "missing",
		Type:      models.NotificationTypeMessage,
		CreatedAt: time.Now().UTC(),
	})
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestMarkReadAndUnreadFilter(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepo(database)
	repo := NewNotificationRepo(database)
	ctx := context.Background()

	owner := seedNotificationUser(t, users, "joao")
	n, err := repo.Create(ctx, models.Notification{
		UserID:    owner.ID,
		Type:      models.NotificationTypeMessage,
		Title:     "oi",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	unread, err := repo.List(ctx, owner.ID, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, repo.MarkRead(ctx, n.ID, owner.ID))
	// Marking an already-read notification is a no-op.
	require.NoError(t, repo.MarkRead(ctx, n.ID, owner.ID))

	unread, err = repo.List(ctx, owner.ID, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestMarkReadEnforcesOwnership(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepo(database)
	repo := NewNotificationRepo(database)
	ctx := context.Background()

	owner := seedNotificationUser(t, users, "joao")
	other := seedNotificationUser(t, users, "maria")
	n, err := repo.Create(ctx, models.Notification{
		UserID:    owner.ID,
		Type:      models.NotificationTypeMessage,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	err = repo.MarkRead(ctx, n.ID, other.ID)
	assert.True(t, errors.Is(err, ErrNotOwner))
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	err = repo.Delete(ctx, n.ID, other.ID)
	assert.True(t, errors.Is(err, ErrNotOwner))

	// The owner still sees it unread.
	unread, err := repo.List(ctx, owner.ID, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
}

func TestMarkAllRead(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepo(database)
	repo := NewNotificationRepo(database)
	ctx := context.Background()

	owner := seedNotificationUser(t, users, "joao")
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, models.Notification{
			UserID:    owner.ID,
			Type:      models.NotificationTypeMessage,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		})
		require.NoError(t, err)
	}

	updated, err := repo.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	updated, err = repo.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestDeleteNotification(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepo(database)
	repo := NewNotificationRepo(database)
	ctx := context.Background()

	owner := seedNotificationUser(t, users, "joao")
	n, err := repo.Create(ctx, models.Notification{
		UserID:    owner.ID,
		Type:      models.NotificationTypeMessage,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, n.ID, owner.ID))

	err = repo.Delete(ctx, n.ID, owner.ID)
	assert.True(t, errors.Is(err, ErrNotificationNotFound))

	list, err := repo.List(ctx, owner.ID, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}
