package db

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Open initializes the embedded Badger store. An empty dir or inMemory=true
// opens a purely in-memory instance (used by tests and throwaway runs).
func Open(dir string, inMemory bool, logger *zap.SugaredLogger) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if inMemory || dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{logger: logger})

	database, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return database, nil
}

// badgerLogger adapts zap to badger.Logger. Badger's INFO output is chatty
// compaction detail, so it is logged at debug.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Errorf("badger: "+format, args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warnf("badger: "+format, args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debugf("badger: "+format, args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debugf("badger: "+format, args...)
}
