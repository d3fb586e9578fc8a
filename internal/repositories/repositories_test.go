package repositories

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"relay-service/internal/db"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	database, err := db.Open("", true, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}
