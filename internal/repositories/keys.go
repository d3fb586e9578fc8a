package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"relay-service/internal/apperrors"
	"relay-service/internal/observability"
)

// Key layout. Message and index keys embed a zero-padded numeric component so
// Badger's lexicographic iteration order matches the domain order:
//
//	user:name:{username}            -> user id
//	user:id:{id}                    -> User
//	room:name:{name}                -> room id
//	room:id:{id}                    -> Room
//	msg:{roomID}:{seq %019d}        -> Message
//	part:{roomID}:{userID}          -> Participant
//	file:id:{fileID}                -> FileRecord
//	file:room:{roomID}:{nano}:{id}  -> file id (per-room, time-ordered)
//	file:time:{nano}:{id}           -> file id (global, time-ordered)
//	blob:{fileID}                   -> raw bytes
//	notif:{userID}:{nano}:{id}      -> Notification
//	notifidx:{id}                   -> primary notification key
func userNameKey(username string) []byte { return []byte("user:name:" + username) }
func userIDKey(id string) []byte         { return []byte("user:id:" + id) }
func roomNameKey(name string) []byte     { return []byte("room:name:" + name) }
func roomIDKey(id string) []byte         { return []byte("room:id:" + id) }

func messageKey(roomID string, seq int64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d", roomID, seq))
}

func messagePrefix(roomID string) []byte { return []byte("msg:" + roomID + ":") }

func participantKey(roomID, userID string) []byte {
	return []byte("part:" + roomID + ":" + userID)
}

func participantPrefix(roomID string) []byte { return []byte("part:" + roomID + ":") }

func fileIDKey(fileID string) []byte { return []byte("file:id:" + fileID) }
func blobKey(fileID string) []byte   { return []byte("blob:" + fileID) }

func fileRoomKey(roomID string, at time.Time, fileID string) []byte {
	return []byte(fmt.Sprintf("file:room:%s:%019d:%s", roomID, at.UnixNano(), fileID))
}

func fileRoomPrefix(roomID string) []byte { return []byte("file:room:" + roomID + ":") }

func fileTimeKey(at time.Time, fileID string) []byte {
	return []byte(fmt.Sprintf("file:time:%019d:%s", at.UnixNano(), fileID))
}

func fileTimePrefix() []byte { return []byte("file:time:") }

func notificationKey(userID string, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("notif:%s:%019d:%s", userID, at.UnixNano(), id))
}

func notificationPrefix(userID string) []byte { return []byte("notif:" + userID + ":") }
func notificationIndexKey(id string) []byte   { return []byte("notifidx:" + id) }

// FormatCursor renders a message ordering key as the opaque cursor handed to
// polling clients. An empty cursor means "beginning of the room history".
func FormatCursor(seq int64) string {
	return fmt.Sprintf("%019d", seq)
}

func getJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

func decodeJSON(raw []byte, dest any) error {
	return json.Unmarshal(raw, dest)
}

func setJSON(txn *badger.Txn, key []byte, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return txn.Set(key, raw)
}

const maxCommitRetries = 16

// runUpdate executes fn in a read-write transaction, retrying transparently
// when Badger's conflict detection aborts the commit. Conflicts only arise
// between writers touching the same room, so the retry is the per-room
// serialization point; writers on disjoint rooms never conflict.
func runUpdate(ctx context.Context, database *badger.DB, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return apperrors.Wrap(apperrors.ErrTransient, "storage update canceled")
		}

		txn := database.NewTransaction(true)
		err := fn(txn)
		if err != nil {
			txn.Discard()
			return err
		}

		err = txn.Commit()
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		observability.IncCommitConflict()
	}
	return apperrors.Wrap(apperrors.ErrTransient, "storage contention, retries exhausted")
}
