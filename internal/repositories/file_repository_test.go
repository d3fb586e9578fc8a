package repositories

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-service/internal/apperrors"
)

func TestStoreAndRetrieveRoundTrip(t *testing.T) {
	database := openTestDB(t)
	rooms := NewRoomRepo(database)
	files := NewFileRepo(database, 1024)
	ctx := context.Background()

	room, err := rooms.CreateRoom(ctx, "geral")
	require.NoError(t, err)

	payload := []byte("conteudo do arquivo")
	record, err := files.Store(ctx, "relatorio.pdf", payload, room.ID, "joao", "relatório mensal")
	require.NoError(t, err)
	assert.NotEmpty(t, record.FileID)
	assert.Equal(t, int64(len(payload)), record.SizeBytes)
	assert.Equal(t, "geral", record.RoomName)

	got, data, err := files.Retrieve(ctx, record.FileID)
	require.NoError(t, err)
	assert.Equal(t, record.FileID, got.FileID)
	assert.True(t, bytes.Equal(payload, data))
}

func TestStoreRejectsOversizedWithoutRecord(t *testing.T) {
	database := openTestDB(t)
	rooms := NewRoomRepo(database)
	files := NewFileRepo(database, 8)
	ctx := context.Background()

	room, err := rooms.CreateRoom(ctx, "geral")
	require.NoError(t, err)

	_, err = files.Store(ctx, "grande.bin", bytes.Repeat([]byte{1}, 9), room.ID, "joao", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSizeLimit))

	records, err := files.List(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStoreValidation(t *testing.T) {
	database := openTestDB(t)
	files := NewFileRepo(database, 1024)
	ctx := context.Background()

	_, err := files.Store(ctx, "  ", []byte("x"), "room", "joao", "")
	assert.True(t, errors.Is(err, ErrEmptyFilename))

	_, err = files.Store(ctx, "a.txt", []byte("x"), "missing", "joao", "")
	assert.True(t, errors.Is(err, ErrRoomNotFound))
}

func TestListNewestFirstAndRoomFilter(t *testing.T) {
	database := openTestDB(t)
	rooms := NewRoomRepo(database)
	files := NewFileRepo(database, 1024)
	ctx := context.Background()

	roomA, err := rooms.CreateRoom(ctx, "geral")
	require.NoError(t, err)
	roomB, err := rooms.CreateRoom(ctx, "suporte")
	require.NoError(t, err)

	for _, up := range []struct {
		name string
		room string
	}{
		{"primeiro.txt", roomA.ID},
		{"segundo.txt", roomA.ID},
		{"outro.txt", roomB.ID},
	} {
		_, err := files.Store(ctx, up.name, []byte("x"), up.room, "joao", "")
		require.NoError(t, err)
	}

	inA, err := files.List(ctx, roomA.ID)
	require.NoError(t, err)
	require.Len(t, inA, 2)
	assert.Equal(t, "segundo.txt", inA[0].Filename)
	assert.Equal(t, "primeiro.txt", inA[1].Filename)

	all, err := files.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "outro.txt", all[0].Filename)
}

func TestDeleteRemovesEverything(t *testing.T) {
	database := openTestDB(t)
	rooms := NewRoomRepo(database)
	files := NewFileRepo(database, 1024)
	ctx := context.Background()

	room, err := rooms.CreateRoom(ctx, "geral")
	require.NoError(t, err)

	record, err := files.Store(ctx, "a.txt", []byte("x"), room.ID, "joao", "")
	require.NoError(t, err)

	require.NoError(t, files.Delete(ctx, record.FileID))

	_, _, err = files.Retrieve(ctx, record.FileID)
	assert.True(t, errors.Is(err, ErrFileNotFound))

	records, err := files.List(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	err = files.Delete(ctx, record.FileID)
	assert.True(t, errors.Is(err, ErrFileNotFound))
}
