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
	ErrFileNotFound  = apperrors.Wrap(apperrors.ErrNotFound, "file not found")
	ErrEmptyFilename = apperrors.Wrap(apperrors.ErrValidation, "filename must not be empty")
)

// FileRepository owns file metadata and the blob bytes behind it. It never
// appends chat messages; announcing an upload in the room is the upload
// handler's composition.
type FileRepository interface {
	Store(ctx context.Context, filename string, data []byte, roomID, uploaderUsername, description string) (models.FileRecord, error)
	Retrieve(ctx context.Context, fileID string) (models.FileRecord, []byte, error)
	Delete(ctx context.Context, fileID string) error
	List(ctx context.Context, roomID string) ([]models.FileRecord, error)
}

// FileRepo is a Badger-backed repository.
type FileRepo struct {
	db       *badger.DB
	maxBytes int64
}

// NewFileRepo constructs FileRepo with the configured upload size limit.
func NewFileRepo(database *badger.DB, maxBytes int64) *FileRepo {
	return &FileRepo{db: database, maxBytes: maxBytes}
}

// Store validates the size limit before touching the store, then writes the
// record, the blob, and the two time-ordered index entries together.
func (r *FileRepo) Store(ctx context.Context, filename string, data []byte, roomID, uploaderUsername, description string) (models.FileRecord, error) {
	if strings.TrimSpace(filename) == "" {
		return models.FileRecord{}, ErrEmptyFilename
	}
	if int64(len(data)) > r.maxBytes {
		return models.FileRecord{}, apperrors.Wrapf(apperrors.ErrSizeLimit,
			"file is %d bytes, limit is %d", len(data), r.maxBytes)
	}

	record := models.FileRecord{
		FileID:           uuid.NewString(),
		Filename:         filename,
		SizeBytes:        int64(len(data)),
		UploadedAt:       time.Now().UTC(),
		RoomID:           roomID,
		UploaderUsername: uploaderUsername,
		Description:      description,
	}

	err := runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		var room models.Room
		if err := getJSON(txn, roomIDKey(roomID), &room); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		record.RoomName = room.Name

		if err := setJSON(txn, fileIDKey(record.FileID), record); err != nil {
			return err
		}
		if err := txn.Set(blobKey(record.FileID), data); err != nil {
			return err
		}
		if err := txn.Set(fileRoomKey(roomID, record.UploadedAt, record.FileID), []byte(record.FileID)); err != nil {
			return err
		}
		return txn.Set(fileTimeKey(record.UploadedAt, record.FileID), []byte(record.FileID))
	})
	if err != nil {
		return models.FileRecord{}, err
	}
	return record, nil
}

// Retrieve returns the record plus the raw blob bytes.
func (r *FileRepo) Retrieve(ctx context.Context, fileID string) (models.FileRecord, []byte, error) {
	var record models.FileRecord
	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		if err := getJSON(txn, fileIDKey(fileID), &record); err != nil {
			return err
		}
		item, err := txn.Get(blobKey(fileID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.FileRecord{}, nil, ErrFileNotFound
	}
	if err != nil {
		return models.FileRecord{}, nil, err
	}
	return record, data, nil
}

// Delete removes the record, the blob, and both index entries. Used by the
// upload handler's compensation path when the chat announcement fails.
func (r *FileRepo) Delete(ctx context.Context, fileID string) error {
	return runUpdate(ctx, r.db, func(txn *badger.Txn) error {
		var record models.FileRecord
		if err := getJSON(txn, fileIDKey(fileID), &record); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrFileNotFound
			}
			return err
		}
		for _, key := range [][]byte{
			fileIDKey(fileID),
			blobKey(fileID),
			fileRoomKey(record.RoomID, record.UploadedAt, fileID),
			fileTimeKey(record.UploadedAt, fileID),
		} {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns file records newest first, filtered by room when roomID is
// non-empty. The index keys are time-ordered, so a reverse iteration yields
// uploadedAt descending directly.
func (r *FileRepo) List(ctx context.Context, roomID string) ([]models.FileRecord, error) {
	prefix := fileTimePrefix()
	if roomID != "" {
		prefix = fileRoomPrefix(roomID)
	}

	records := make([]models.FileRecord, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode the seek key must sit past the last prefixed key.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return apperrors.Wrap(apperrors.ErrTransient, "file listing canceled")
			}
			fileID, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var record models.FileRecord
			if err := getJSON(txn, fileIDKey(string(fileID)), &record); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
